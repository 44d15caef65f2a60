package astro

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lillylight/Nako-backend/internal/openai"
)

// SunTimes holds sunrise and sunset in 12-hour clock format, e.g. "6:30 AM".
type SunTimes struct {
	Sunrise string `json:"sunrise"`
	Sunset  string `json:"sunset"`
}

// DefaultSunTimes is the last-resort estimate when both the sunrise API and
// the model fallback are unavailable.
var DefaultSunTimes = SunTimes{Sunrise: "6:30 AM", Sunset: "7:15 PM"}

// SunProvider fetches sunrise and sunset times for a date and place. Like
// the geocoder it degrades through fallbacks instead of failing.
type SunProvider struct {
	baseURL string
	client  *http.Client
	llm     ChatClient
}

// NewSunProvider creates a provider backed by the sunrise-sunset.org API
// with llm as the fallback source.
func NewSunProvider(llm ChatClient) *SunProvider {
	return &SunProvider{
		baseURL: "https://api.sunrise-sunset.org",
		client:  &http.Client{Timeout: 15 * time.Second},
		llm:     llm,
	}
}

type sunAPIResponse struct {
	Status  string `json:"status"`
	Results struct {
		Sunrise string `json:"sunrise"`
		Sunset  string `json:"sunset"`
	} `json:"results"`
}

// Times returns sunrise and sunset for the given coordinates and date
// (YYYY-MM-DD).
func (p *SunProvider) Times(ctx context.Context, lat, lon float64, date string) SunTimes {
	times, err := p.timesFromAPI(ctx, lat, lon, date)
	if err == nil {
		return times
	}
	slog.Warn("sunrise API failed, trying model estimate", "date", date, "error", err)

	times, err = p.timesWithModel(ctx, lat, lon, date)
	if err == nil {
		return times
	}
	slog.Warn("model sunrise fallback failed, using defaults", "date", date, "error", err)

	return DefaultSunTimes
}

func (p *SunProvider) timesFromAPI(ctx context.Context, lat, lon float64, date string) (SunTimes, error) {
	u := fmt.Sprintf("%s/json?lat=%f&lng=%f&date=%s&formatted=0", p.baseURL, lat, lon, date)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return SunTimes{}, fmt.Errorf("astro: create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return SunTimes{}, fmt.Errorf("astro: sunrise request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return SunTimes{}, fmt.Errorf("astro: sunrise API status %d", resp.StatusCode)
	}

	var apiResp sunAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return SunTimes{}, fmt.Errorf("astro: decode sunrise response: %w", err)
	}
	if apiResp.Status != "OK" {
		return SunTimes{}, fmt.Errorf("astro: sunrise API status %q", apiResp.Status)
	}

	sunrise, err := formatClockTime(apiResp.Results.Sunrise)
	if err != nil {
		return SunTimes{}, err
	}
	sunset, err := formatClockTime(apiResp.Results.Sunset)
	if err != nil {
		return SunTimes{}, err
	}

	return SunTimes{Sunrise: sunrise, Sunset: sunset}, nil
}

func (p *SunProvider) timesWithModel(ctx context.Context, lat, lon float64, date string) (SunTimes, error) {
	content, err := p.llm.Complete(ctx, openai.Request{
		Messages: []openai.Message{
			openai.TextMessage("system", "You are a helpful assistant that estimates sunrise and sunset times. Respond with only a JSON object."),
			openai.TextMessage("user", fmt.Sprintf(`Estimate the sunrise and sunset times for latitude %f, longitude %f on %s. Respond with only a JSON object in the format: {"sunrise": "H:MM AM", "sunset": "H:MM PM"}`, lat, lon, date)),
		},
		Temperature: 0,
		MaxTokens:   100,
	})
	if err != nil {
		return SunTimes{}, err
	}

	var times SunTimes
	if err := openai.ExtractJSON(content, &times); err != nil {
		return SunTimes{}, err
	}
	if times.Sunrise == "" || times.Sunset == "" {
		return SunTimes{}, fmt.Errorf("astro: incomplete sun times in model response")
	}
	return times, nil
}

// formatClockTime converts an ISO 8601 timestamp to 12-hour clock format.
func formatClockTime(iso string) (string, error) {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return "", fmt.Errorf("astro: parse sun time %q: %w", iso, err)
	}
	return t.UTC().Format("3:04 PM"), nil
}
