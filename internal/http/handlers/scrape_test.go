package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"zingo/backend/internal/config"
	"zingo/backend/internal/scrape/core"
	"zingo/backend/internal/scrape/ingest"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func newTestHandler(t *testing.T, cfg *config.Config) *Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(discard{}, nil))
	// An orchestrator with no providers makes Sync return an empty result
	// without touching storage.
	svc := ingest.NewService(core.NewOrchestrator(logger), nil, nil, nil, cfg.Scrape, logger)
	return New(nil, svc, cfg, logger)
}

func postScrapeSync(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/admin/scrape/sync", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ScrapeSync(rec, req)
	return rec
}

// TestScrapeSyncValidation verifies scrape sync validation behavior.
func TestScrapeSyncValidation(t *testing.T) {
	h := newTestHandler(t, &config.Config{Scrape: config.ScrapeConfig{Zone: "UTC", Days: 7}})

	if rec := postScrapeSync(h, `{not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid json, got %d", rec.Code)
	}
	if rec := postScrapeSync(h, `{"postalCode":"abc"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad postal code, got %d", rec.Code)
	}
	if rec := postScrapeSync(h, `{"cityName":"Pune","days":90}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range days, got %d", rec.Code)
	}
	if rec := postScrapeSync(h, `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a location, got %d", rec.Code)
	}

	rec := postScrapeSync(h, `{"cityName":"Pune"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result ingest.SyncResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.CityName != "Pune" || result.Showtimes != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

// TestScrapeSyncRateLimited verifies scrape sync rate limited behavior.
func TestScrapeSyncRateLimited(t *testing.T) {
	h := newTestHandler(t, &config.Config{Scrape: config.ScrapeConfig{Zone: "UTC", Days: 7}})

	limited := false
	for i := 0; i < 6; i++ {
		rec := postScrapeSync(h, `{"cityName":"Pune"}`)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status before limit: %d", rec.Code)
		}
	}
	if !limited {
		t.Fatalf("expected a 429 after repeated sync calls")
	}
}

// TestAuthAdmin verifies auth admin behavior.
func TestAuthAdmin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	cfg := &config.Config{
		JWTSecret:         "secret",
		AdminPasswordHash: string(hash),
		Scrape:            config.ScrapeConfig{Zone: "UTC"},
	}
	h := newTestHandler(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/auth/admin", strings.NewReader(`{"password":"hunter2"}`))
	rec := httptest.NewRecorder()
	h.AuthAdmin(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["token"] == "" {
		t.Fatalf("expected a token")
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/admin", strings.NewReader(`{"password":"wrong"}`))
	rec = httptest.NewRecorder()
	h.AuthAdmin(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
