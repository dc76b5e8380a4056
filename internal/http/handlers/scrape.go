package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"zingo/backend/internal/scrape/ingest"
)

type scrapeSyncRequest struct {
	PostalCode string `json:"postalCode" validate:"omitempty,numeric,len=6"`
	CityName   string `json:"cityName" validate:"omitempty,min=2,max=80"`
	Days       int    `json:"days" validate:"omitempty,min=1,max=31"`
}

// ScrapeSync runs a full scrape-and-ingest cycle for one location. The call
// is synchronous: it returns once all providers have been reconciled.
func (h *Handler) ScrapeSync(w http.ResponseWriter, r *http.Request) {
	var req scrapeSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid sync request")
		return
	}
	if !h.syncLimiter.Allow(r.RemoteAddr) {
		writeError(w, http.StatusTooManyRequests, "too many sync requests")
		return
	}

	result, err := h.ingest.Sync(r.Context(), req.PostalCode, req.CityName, req.Days)
	if err != nil {
		if errors.Is(err, ingest.ErrCityRequired) {
			writeError(w, http.StatusBadRequest, "cityName or postalCode is required")
			return
		}
		h.loggerForRequest(r).Error("scrape_sync_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "sync failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
