// Package astro resolves the astronomy inputs for a reading: coordinates
// for a birthplace, sunrise/sunset times, and ephemeris tables from the
// external calculator.
package astro

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lillylight/Nako-backend/internal/openai"
)

const geocodeUserAgent = "astroclock-app"

// ChatClient is the slice of the OpenAI client the fallback paths need.
type ChatClient interface {
	Complete(ctx context.Context, req openai.Request) (string, error)
}

// Coordinates is a resolved birthplace.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// Timezone is a rough UTC offset in hours derived from the country.
	Timezone float64 `json:"timezone"`
}

// Rough country-to-UTC-offset mapping used when no better timezone data is
// available from the geocoder.
var countryOffsets = map[string]float64{
	"zambia":       2,
	"kenya":        3,
	"nigeria":      1,
	"south africa": 2,
	"india":        5.5,
	"usa":          -5,
	"canada":       -5,
	"uk":           0,
	"germany":      1,
	"france":       1,
}

// Geocoder resolves a free-text location to coordinates, trying Nominatim
// first and a language-model guess second. It never fails: when both
// sources are unavailable it falls back to (0, 0) so the rest of the
// pipeline can proceed.
type Geocoder struct {
	baseURL string
	client  *http.Client
	llm     ChatClient
}

// NewGeocoder creates a geocoder backed by the Nominatim search API with
// llm as the fallback source.
func NewGeocoder(llm ChatClient) *Geocoder {
	return &Geocoder{
		baseURL: "https://nominatim.openstreetmap.org",
		client:  &http.Client{Timeout: 15 * time.Second},
		llm:     llm,
	}
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Locate resolves location to coordinates.
func (g *Geocoder) Locate(ctx context.Context, location string) Coordinates {
	coords, err := g.locateNominatim(ctx, location)
	if err == nil {
		return coords
	}
	slog.Warn("geocoding failed, trying model estimate", "location", location, "error", err)

	coords, err = g.locateWithModel(ctx, location)
	if err == nil {
		return coords
	}
	slog.Warn("model geocoding fallback failed, defaulting to (0,0)", "location", location, "error", err)

	return Coordinates{}
}

func (g *Geocoder) locateNominatim(ctx context.Context, location string) (Coordinates, error) {
	u := g.baseURL + "/search?format=json&q=" + url.QueryEscape(location)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("astro: create request: %w", err)
	}
	req.Header.Set("User-Agent", geocodeUserAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("astro: geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, fmt.Errorf("astro: geocode status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Coordinates{}, fmt.Errorf("astro: decode geocode response: %w", err)
	}
	if len(results) == 0 {
		return Coordinates{}, fmt.Errorf("astro: no geocode results for %q", location)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("astro: parse latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("astro: parse longitude: %w", err)
	}

	return Coordinates{
		Latitude:  lat,
		Longitude: lon,
		Timezone:  offsetFor(results[0].DisplayName, location),
	}, nil
}

func (g *Geocoder) locateWithModel(ctx context.Context, location string) (Coordinates, error) {
	content, err := g.llm.Complete(ctx, openai.Request{
		Messages: []openai.Message{
			openai.TextMessage("system", "You are a helpful assistant that provides geographic coordinates. Respond with only a JSON object containing latitude and longitude."),
			openai.TextMessage("user", fmt.Sprintf(`What are the latitude and longitude coordinates of %s? Respond with only a JSON object in the format: {"latitude": number, "longitude": number}`, location)),
		},
		Temperature: 0,
		MaxTokens:   100,
	})
	if err != nil {
		return Coordinates{}, err
	}

	var coords Coordinates
	if err := openai.ExtractJSON(content, &coords); err != nil {
		return Coordinates{}, err
	}
	coords.Timezone = offsetFor("", location)
	return coords, nil
}

// offsetFor derives a UTC offset from the trailing country of a geocoder
// display name, falling back to substring matching against the query.
func offsetFor(displayName, query string) float64 {
	if displayName != "" {
		parts := strings.Split(displayName, ",")
		country := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
		if offset, ok := countryOffsets[country]; ok {
			return offset
		}
	}

	q := strings.ToLower(query)
	for country, offset := range countryOffsets {
		if strings.Contains(q, country) {
			return offset
		}
	}
	return 0
}
