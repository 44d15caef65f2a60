// Package reading orchestrates the prediction pipeline: geocoding,
// sunrise/sunset lookup, the ephemeris subprocess, and the final
// language-model call whose output is reshaped into a fixed template.
package reading

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/lillylight/Nako-backend/internal/astro"
	"github.com/lillylight/Nako-backend/internal/openai"
)

// BirthData is the user-supplied input for a prediction.
type BirthData struct {
	Method              string `json:"method"`
	Location            string `json:"location"`
	Date                string `json:"date"`
	TimeOfDay           string `json:"timeOfDay"`
	PhysicalDescription string `json:"physicalDescription"`
}

// Locator resolves a birthplace to coordinates.
type Locator interface {
	Locate(ctx context.Context, location string) astro.Coordinates
}

// SunTimer resolves sunrise and sunset for a date and place.
type SunTimer interface {
	Times(ctx context.Context, lat, lon float64, date string) astro.SunTimes
}

// Ephemeris computes planetary positions for the birth day.
type Ephemeris interface {
	Compute(ctx context.Context, input astro.EphemerisInput) (*astro.EphemerisData, error)
}

// ChatClient runs chat completions, including vision requests.
type ChatClient interface {
	Complete(ctx context.Context, req openai.Request) (string, error)
}

// Generator runs the prediction pipeline.
type Generator struct {
	llm       ChatClient
	locator   Locator
	sun       SunTimer
	ephemeris Ephemeris

	// persona is the system-prompt opening for the text branch.
	persona string
}

// Option adjusts generator behavior.
type Option func(*Generator)

// WithPersona overrides the built-in astrologer persona for the text
// branch. The astronomy context is still appended after it.
func WithPersona(persona string) Option {
	return func(g *Generator) {
		if persona != "" {
			g.persona = persona
		}
	}
}

// NewGenerator wires the pipeline stages together.
func NewGenerator(llm ChatClient, locator Locator, sun SunTimer, ephemeris Ephemeris, opts ...Option) *Generator {
	g := &Generator{
		llm:       llm,
		locator:   locator,
		sun:       sun,
		ephemeris: ephemeris,
		persona:   defaultPersona,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces a prediction for the given birth data. When photo is
// non-empty the image branch is taken: the photo is sent to a
// vision-capable model call and no geocoding or ephemeris work happens.
func (g *Generator) Generate(ctx context.Context, birth BirthData, photo []byte, photoMIME string) (string, error) {
	if len(photo) > 0 {
		return g.generateFromPhoto(ctx, birth, photo, photoMIME)
	}
	return g.generateFromText(ctx, birth)
}

func (g *Generator) generateFromText(ctx context.Context, birth BirthData) (string, error) {
	location := birth.Location
	if location == "" {
		location = "Unknown location"
	}
	date := birth.Date
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	coords := g.locator.Locate(ctx, location)
	sun := g.sun.Times(ctx, coords.Latitude, coords.Longitude, date)

	eph, err := g.ephemeris.Compute(ctx, astro.EphemerisInput{
		Date:      date,
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
		Timezone:  coords.Timezone,
		Sunrise:   sun.Sunrise,
		Sunset:    sun.Sunset,
	})
	if err != nil {
		return "", fmt.Errorf("reading: ephemeris stage: %w", err)
	}

	content, err := g.llm.Complete(ctx, openai.Request{
		Messages: []openai.Message{
			openai.TextMessage("system", textSystemPrompt(g.persona, eph, birth)),
			openai.TextMessage("user", textUserPrompt(birth)),
			openai.TextMessage("user", textFormatPrompt),
		},
		Temperature: 1,
		MaxTokens:   1010,
	})
	if err != nil {
		return "", fmt.Errorf("reading: model stage: %w", err)
	}

	fields := parseFields(content, birth)
	slog.Info("prediction generated", "location", fields.Location, "ascendant", fields.Ascendant)
	return fields.render(), nil
}

func (g *Generator) generateFromPhoto(ctx context.Context, birth BirthData, photo []byte, photoMIME string) (string, error) {
	if photoMIME == "" {
		photoMIME = "image/jpeg"
	}
	dataURL := "data:" + photoMIME + ";base64," + base64.StdEncoding.EncodeToString(photo)

	content, err := g.llm.Complete(ctx, openai.Request{
		Messages: []openai.Message{
			openai.TextMessage("system", photoSystemPrompt),
			openai.ImageMessage(photoUserPrompt(birth), dataURL),
			openai.TextMessage("user", photoFormatPrompt),
		},
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	if err != nil {
		return "", fmt.Errorf("reading: image analysis: %w", err)
	}
	return content, nil
}

// IsTimeout reports whether a pipeline error is timeout flavored, so the
// handler can answer with a gateway-timeout status instead of a plain 500.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "timeout")
}

const defaultPersona = "You are Heru, world best classic vedic astrologer."

// textSystemPrompt folds the ephemeris output into the astrologer persona
// as authoritative astronomy context.
func textSystemPrompt(persona string, eph *astro.EphemerisData, birth BirthData) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\n")
	b.WriteString("Here is the astronomy data for the user's birth date and location:\n")
	fmt.Fprintf(&b, "Sunrise: %s\nSunset: %s\n\n", eph.Sunrise, eph.Sunset)
	fmt.Fprintf(&b, "Ruling Ascendant for the selected time range: %s\n\n", eph.RulingAscendant)
	b.WriteString("Ascendant and planetary positions for each half-hour in the selected time range:")

	for _, iv := range eph.Intervals {
		fmt.Fprintf(&b, "\n%s: Ascendant = %.2f (%s), Planets = %s", iv.Time, iv.Ascendant, iv.AscendantSign, formatPlanets(iv.Planets))
	}

	fmt.Fprintf(&b, "\n\nPhysical Traits: %s", birth.PhysicalDescription)
	return b.String()
}

func formatPlanets(planets map[string]float64) string {
	names := make([]string, 0, len(planets))
	for name := range planets {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %.2f", name, planets[name]))
	}
	return strings.Join(parts, ", ")
}

func textUserPrompt(birth BirthData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a detailed vedic astrological birth time prediction based on the following information:\nLocation: %s\nDate: %s\nApproximate Time of Day: %s\n", birth.Location, birth.Date, birth.TimeOfDay)
	if birth.PhysicalDescription != "" {
		fmt.Fprintf(&b, "\nPhysical Description:\n%s\n", birth.PhysicalDescription)
	}
	return b.String()
}

const textFormatPrompt = "Please format your response using this exact template:\n\n" +
	"Based on your birth details and the astronomy data above, combined with intuitive analysis and precise Vedic astrology calculations for [Location] on [Date], your predicted birth time is approximately [Predicted Time] local time, with [Ascendant Sign] as the calculated Ascendant.\n\n" +
	"Alternative birth times:\n[Alternative Time 1]\n[Alternative Time 2]\n\n" +
	"Replace the placeholders with the actual values from your analysis. Do not include any explanations of your analysis process or methodology - just provide the final prediction in this format."

const photoSystemPrompt = "You are Heru, world best classic vedic astrologer programmed to accurately predict an individual's birth time after predicting their vedic ascendant using Kundli (Vedic) Astrology calculations. " +
	"You analyze physical characteristics and birth details to match the vedic ascendant sign's traits. Using accurate and precise geographical and temporal details, you utilize the exact astronomical data to cross-reference these aspects with detailed Kundli ascendant physical characteristics and rigorous analysis of Vedic Ephemeris data. " +
	"Use the Lahiri Ayanamsa and use intuition when choosing the right ascendant. Do not write the calculation text, just give the predicted time, ascendant and the 2 alternative birth times.\n\n" +
	"Your task is to:\n" +
	"1. Extract and analyze accurate physical features from the uploaded image (face shape, forehead, eyes, nose, lips, chin, overall body structure, etc.)\n" +
	"2. Match these physical traits accurately to classic Vedic astrology ascendant sign physical traits and characteristics\n" +
	"3. Determine the most accurate vedic ascendant sign based on the physical traits\n" +
	"4. Use the ascendant sign and all other details to calculate the precise birth time that corresponds with this ascendant sign, given the birth date and location"

func photoUserPrompt(birth BirthData) string {
	if birth.Location == "" && birth.Date == "" {
		return "Please analyze this image to extract physical traits and facial features, then match them with classic Vedic astrology ascendant sign traits."
	}
	return fmt.Sprintf("Generate a detailed vedic astrological birth time prediction based on the following information AND the attached photo:\n\nLocation: %s\nDate: %s\nApproximate Time of Day: %s\n\nPlease analyze the attached photo to extract physical traits and facial features, then match them with classic Vedic astrology ascendant sign traits. Based on the match between physical traits and classic vedic ascendant signs, determine the most accurate birth time.", birth.Location, birth.Date, birth.TimeOfDay)
}

const photoFormatPrompt = "Please format your response using this exact template:\n\n" +
	"Based on your physical features, combined with intuitive analysis and precise Vedic astrology calculations for [Location] on [Date], your predicted birth time is approximately [Predicted Time] local time, with [Ascendant Sign] as the calculated Ascendant.\n\n" +
	"Alternative birth times:\n[Alternative Time 1]\n[Alternative Time 2]\n\n" +
	"Replace the placeholders with the actual values from your analysis. Do not include any explanations of your analysis process or methodology, just use the above format structure as output format."
