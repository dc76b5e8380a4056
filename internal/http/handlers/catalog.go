package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"zingo/backend/internal/models"
)

// ListEvents returns recent events of one type, movies by default.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	eventType := models.EventType(r.URL.Query().Get("type"))
	if eventType == "" {
		eventType = models.EventTypeMovie
	}
	if !eventType.Valid() {
		writeError(w, http.StatusBadRequest, "unknown event type")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()
	events, err := h.repo.ListEventsByType(ctx, eventType, limit)
	if err != nil {
		h.loggerForRequest(r).Error("list_events_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// ListCityVenues returns every venue of a city.
func (h *Handler) ListCityVenues(w http.ResponseWriter, r *http.Request) {
	cityID, err := strconv.ParseInt(chi.URLParam(r, "cityID"), 10, 64)
	if err != nil || cityID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid city id")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()
	venues, err := h.repo.ListVenuesByCity(ctx, cityID)
	if err != nil {
		h.loggerForRequest(r).Error("list_venues_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"venues": venues})
}

// ListCityShowtimes returns a city's showtimes for one day, today in the
// configured zone by default.
func (h *Handler) ListCityShowtimes(w http.ResponseWriter, r *http.Request) {
	cityID, err := strconv.ParseInt(chi.URLParam(r, "cityID"), 10, 64)
	if err != nil || cityID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid city id")
		return
	}

	loc := h.cfg.Scrape.Location()
	day := time.Now().In(loc)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
			return
		}
		day = parsed
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	to := from.AddDate(0, 0, 1)

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()
	showtimes, err := h.repo.ListShowtimesByCity(ctx, cityID, from, to)
	if err != nil {
		h.loggerForRequest(r).Error("list_showtimes_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	eventIDs := make([]int64, 0, len(showtimes))
	venueIDs := make([]int64, 0, len(showtimes))
	seenEvents := make(map[int64]bool)
	seenVenues := make(map[int64]bool)
	for _, showtime := range showtimes {
		if !seenEvents[showtime.EventID] {
			seenEvents[showtime.EventID] = true
			eventIDs = append(eventIDs, showtime.EventID)
		}
		if !seenVenues[showtime.VenueID] {
			seenVenues[showtime.VenueID] = true
			venueIDs = append(venueIDs, showtime.VenueID)
		}
	}
	events, err := h.repo.FindEventsByIDs(ctx, eventIDs)
	if err != nil {
		h.loggerForRequest(r).Error("list_showtimes_events_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	venues, err := h.repo.FindVenuesByIDs(ctx, venueIDs)
	if err != nil {
		h.loggerForRequest(r).Error("list_showtimes_venues_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"showtimes": showtimes,
		"events":    events,
		"venues":    venues,
	})
}
