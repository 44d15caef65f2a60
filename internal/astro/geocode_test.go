package astro

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lillylight/Nako-backend/internal/openai"
)

// mockChat is a ChatClient whose behavior is supplied per test.
type mockChat struct {
	completeFn func(ctx context.Context, req openai.Request) (string, error)
	calls      int
}

func (m *mockChat) Complete(ctx context.Context, req openai.Request) (string, error) {
	m.calls++
	if m.completeFn == nil {
		return "", errors.New("unexpected Complete call")
	}
	return m.completeFn(ctx, req)
}

func newTestGeocoder(t *testing.T, handler http.HandlerFunc, llm ChatClient) *Geocoder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g := NewGeocoder(llm)
	g.baseURL = srv.URL
	return g
}

func TestLocateFromNominatim(t *testing.T) {
	llm := &mockChat{}
	g := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != geocodeUserAgent {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		if q := r.URL.Query().Get("q"); q != "Lusaka, Zambia" {
			t.Errorf("q = %q", q)
		}
		json.NewEncoder(w).Encode([]map[string]string{
			{"lat": "-15.4167", "lon": "28.2833", "display_name": "Lusaka, Lusaka District, Zambia"},
		})
	}, llm)

	got := g.Locate(context.Background(), "Lusaka, Zambia")

	if got.Latitude != -15.4167 || got.Longitude != 28.2833 {
		t.Errorf("coords = %+v", got)
	}
	if got.Timezone != 2 {
		t.Errorf("timezone = %v, want 2", got.Timezone)
	}
	if llm.calls != 0 {
		t.Errorf("model fallback called %d times, want 0", llm.calls)
	}
}

func TestLocateFallsBackToModel(t *testing.T) {
	llm := &mockChat{
		completeFn: func(ctx context.Context, req openai.Request) (string, error) {
			return `{"latitude": 51.5074, "longitude": -0.1278}`, nil
		},
	}
	g := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]string{}) // no results
	}, llm)

	got := g.Locate(context.Background(), "London, UK")

	if got.Latitude != 51.5074 || got.Longitude != -0.1278 {
		t.Errorf("coords = %+v", got)
	}
	if got.Timezone != 0 {
		t.Errorf("timezone = %v, want 0", got.Timezone)
	}
	if llm.calls != 1 {
		t.Errorf("model fallback called %d times, want 1", llm.calls)
	}
}

func TestLocateDefaultsToOrigin(t *testing.T) {
	llm := &mockChat{
		completeFn: func(ctx context.Context, req openai.Request) (string, error) {
			return "", errors.New("model unavailable")
		},
	}
	g := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, llm)

	got := g.Locate(context.Background(), "Atlantis")

	if got != (Coordinates{}) {
		t.Errorf("coords = %+v, want zero value", got)
	}
}

func TestOffsetFor(t *testing.T) {
	tests := []struct {
		name        string
		displayName string
		query       string
		want        float64
	}{
		{"country from display name", "Nairobi, Nairobi County, Kenya", "Nairobi", 3},
		{"country from query", "", "Mumbai, India", 5.5},
		{"case insensitive", "Berlin, GERMANY", "berlin", 1},
		{"unknown country", "Somewhere, Atlantis", "Somewhere", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := offsetFor(tt.displayName, tt.query); got != tt.want {
				t.Errorf("offsetFor(%q, %q) = %v, want %v", tt.displayName, tt.query, got, tt.want)
			}
		})
	}
}
