package pincode

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"zingo/backend/internal/config"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func testClient(baseURL string) *Client {
	return NewClient(config.PincodeLookupConfig{Enabled: true, BaseURL: baseURL},
		"test-agent", slog.New(slog.NewTextHandler(discard{}, nil)))
}

// TestLookupCityFromDistrict verifies lookup city from district behavior.
func TestLookupCityFromDistrict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/411001" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`[{"Status":"Success","PostOffice":[{"Name":"Camp","District":"pune","Region":"Pune Region"}]}]`))
	}))
	defer srv.Close()

	got := testClient(srv.URL + "/").LookupCity(context.Background(), "411001")
	if got != "Pune" {
		t.Fatalf("expected capitalized district, got %q", got)
	}
}

// TestLookupCityFallsBackToRegionAndName verifies fallback order behavior.
func TestLookupCityFallsBackToRegionAndName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"Status":"Success","PostOffice":[{"Name":"fort","District":"","Region":""}]}]`))
	}))
	defer srv.Close()

	if got := testClient(srv.URL+"/").LookupCity(context.Background(), "400001"); got != "Fort" {
		t.Fatalf("expected office name fallback, got %q", got)
	}
}

// TestLookupCityNeverFailsHard verifies lookup city never fails hard behavior.
func TestLookupCityNeverFailsHard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL + "/")
	if got := c.LookupCity(context.Background(), "411001"); got != "" {
		t.Fatalf("expected empty on server error, got %q", got)
	}
	if got := c.LookupCity(context.Background(), ""); got != "" {
		t.Fatalf("expected empty on blank pincode, got %q", got)
	}

	disabled := NewClient(config.PincodeLookupConfig{Enabled: false}, "test-agent",
		slog.New(slog.NewTextHandler(discard{}, nil)))
	if got := disabled.LookupCity(context.Background(), "411001"); got != "" {
		t.Fatalf("expected empty when disabled, got %q", got)
	}
}
