// Package ingest reconciles scraped provider output into the canonical
// city, venue, event and showtime records.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"zingo/backend/internal/config"
	"zingo/backend/internal/metrics"
	"zingo/backend/internal/models"
	"zingo/backend/internal/scrape/core"
)

// ErrCityRequired is returned when neither a city name nor a resolvable
// postal code was supplied.
var ErrCityRequired = errors.New("city name or resolvable postal code required")

// Store is the persistence surface of the ingest pass. Find methods return
// (nil, nil) when no row matches.
type Store interface {
	FindCityByPostalCode(ctx context.Context, postalCode string) (*models.City, error)
	FindCityByName(ctx context.Context, name string) (*models.City, error)
	SaveCity(ctx context.Context, city *models.City) (*models.City, error)

	FindVenueBySource(ctx context.Context, source, sourceID string) (*models.Venue, error)
	FindVenueByCityAndName(ctx context.Context, cityID int64, name string) (*models.Venue, error)
	SaveVenue(ctx context.Context, venue *models.Venue) (*models.Venue, error)

	FindEventBySource(ctx context.Context, source, sourceID string) (*models.Event, error)
	FindEventByTitleAndType(ctx context.Context, title string, eventType models.EventType) (*models.Event, error)
	SaveEvent(ctx context.Context, event *models.Event) (*models.Event, error)

	FindShowtimeBySource(ctx context.Context, source, sourceID string) (*models.Showtime, error)
	FindShowtimeBySlot(ctx context.Context, eventID, venueID int64, startsAt time.Time, format models.ShowFormat) (*models.Showtime, error)
	SaveShowtime(ctx context.Context, showtime *models.Showtime) (*models.Showtime, error)
}

// CityLookup resolves a postal code to a city name, "" when unknown.
type CityLookup interface {
	LookupCity(ctx context.Context, postalCode string) string
}

// PosterMirror copies a remote poster into owned storage and returns the
// serving URL. Implementations return the input URL on failure.
type PosterMirror interface {
	Mirror(ctx context.Context, rawURL string) string
}

// SyncResult reports upsert attempt counts for one cycle.
type SyncResult struct {
	PostalCode string `json:"postalCode,omitempty"`
	CityName   string `json:"cityName,omitempty"`
	Venues     int    `json:"venues"`
	Events     int    `json:"events"`
	Showtimes  int    `json:"showtimes"`
}

// Service runs the full scrape-and-reconcile cycle.
type Service struct {
	orchestrator *core.Orchestrator
	store        Store
	cityLookup   CityLookup
	posterMirror PosterMirror
	cfg          config.ScrapeConfig
	logger       *slog.Logger
	now          func() time.Time
}

func NewService(orchestrator *core.Orchestrator, store Store, cityLookup CityLookup, posterMirror PosterMirror, cfg config.ScrapeConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		orchestrator: orchestrator,
		store:        store,
		cityLookup:   cityLookup,
		posterMirror: posterMirror,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// Sync scrapes all providers for the location and reconciles the output in
// two passes: venues and events first, then showtimes once their parents
// have canonical ids. Re-running with identical input updates rows in place
// instead of duplicating them.
func (s *Service) Sync(ctx context.Context, postalCode, cityName string, days int) (SyncResult, error) {
	runID := uuid.NewString()
	log := s.logger.With("run_id", runID)

	if days <= 0 {
		days = s.cfg.Days
	}
	resolvedCity := strings.TrimSpace(cityName)
	if resolvedCity == "" && strings.TrimSpace(postalCode) != "" && s.cityLookup != nil {
		resolvedCity = s.cityLookup.LookupCity(ctx, postalCode)
	}
	if resolvedCity == "" && strings.TrimSpace(postalCode) == "" {
		metrics.SyncRuns.WithLabelValues("invalid").Inc()
		return SyncResult{}, ErrCityRequired
	}

	loc := s.cfg.Location()
	startOfDay := s.now().In(loc)
	startOfDay = time.Date(startOfDay.Year(), startOfDay.Month(), startOfDay.Day(), 0, 0, 0, 0, loc)
	request := core.ScrapeRequest{
		PostalCode: strings.TrimSpace(postalCode),
		CityName:   resolvedCity,
		StartDate:  startOfDay,
		Days:       days,
	}
	log.Info("scrape_sync_start", "postal_code", request.PostalCode, "city", resolvedCity, "days", days)

	results := s.orchestrator.RunAll(ctx, request)
	if len(results) == 0 {
		log.Info("scrape_sync_empty")
		metrics.SyncRuns.WithLabelValues("empty").Inc()
		return SyncResult{PostalCode: request.PostalCode, CityName: resolvedCity}, nil
	}

	city, err := s.resolveCity(ctx, results, request, resolvedCity)
	if err != nil {
		metrics.SyncRuns.WithLabelValues("error").Inc()
		return SyncResult{}, err
	}

	out := SyncResult{PostalCode: request.PostalCode, CityName: city.Name}
	venueBySourceKey := make(map[string]*models.Venue)
	eventBySourceKey := make(map[string]*models.Event)

	for _, result := range results {
		for _, sv := range result.Venues {
			if strings.TrimSpace(sv.Name) == "" {
				continue
			}
			venue, err := s.upsertVenue(ctx, city, result.Source, sv, request.PostalCode)
			if err != nil {
				return out, fmt.Errorf("upsert venue %q: %w", sv.Name, err)
			}
			out.Venues++
			if sv.SourceID != "" {
				venueBySourceKey[result.Source+"|"+sv.SourceID] = venue
			}
		}
		for _, se := range result.Events {
			if strings.TrimSpace(se.Title) == "" {
				continue
			}
			event, err := s.upsertEvent(ctx, result.Source, se)
			if err != nil {
				return out, fmt.Errorf("upsert event %q: %w", se.Title, err)
			}
			out.Events++
			if se.SourceID != "" {
				eventBySourceKey[result.Source+"|"+se.SourceID] = event
			}
		}
	}

	for _, result := range results {
		for _, ss := range result.Showtimes {
			if ss.StartsAt.IsZero() {
				continue
			}
			event, err := s.resolveShowtimeEvent(ctx, result.Source, ss, eventBySourceKey)
			if err != nil {
				return out, err
			}
			if event == nil {
				continue
			}
			venue, err := s.resolveShowtimeVenue(ctx, city, result.Source, ss, venueBySourceKey)
			if err != nil {
				return out, err
			}
			if venue == nil {
				continue
			}
			if err := s.upsertShowtime(ctx, result.Source, ss, event, venue); err != nil {
				return out, fmt.Errorf("upsert showtime %q: %w", ss.SourceID, err)
			}
			out.Showtimes++
		}
	}

	log.Info("scrape_sync_done",
		"city", out.CityName,
		"venues", out.Venues,
		"events", out.Events,
		"showtimes", out.Showtimes)
	metrics.SyncRuns.WithLabelValues("ok").Inc()
	return out, nil
}

// resolveCity takes the first provider city report, falling back to the
// request itself, and reconciles it against the store by postal code first
// and case-insensitive name second.
func (s *Service) resolveCity(ctx context.Context, results []core.ScrapeResult, req core.ScrapeRequest, resolvedName string) (*models.City, error) {
	var info *core.CityInfo
	for _, result := range results {
		if result.City != nil {
			info = result.City
			break
		}
	}
	if info == nil {
		info = &core.CityInfo{Name: resolvedName, PostalCode: req.PostalCode}
	}

	var existing *models.City
	var err error
	if req.PostalCode != "" {
		existing, err = s.store.FindCityByPostalCode(ctx, req.PostalCode)
		if err != nil {
			return nil, fmt.Errorf("find city by postal code: %w", err)
		}
	}
	for _, name := range []string{info.Name, resolvedName} {
		if existing != nil || name == "" {
			break
		}
		existing, err = s.store.FindCityByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("find city by name: %w", err)
		}
	}

	city := existing
	if city == nil {
		city = &models.City{}
	}
	if name := strings.TrimSpace(info.Name); name != "" {
		city.Name = name
	} else if resolvedName != "" {
		city.Name = resolvedName
	}
	if city.Name == "" {
		return nil, ErrCityRequired
	}
	if req.PostalCode != "" {
		city.PostalCode = req.PostalCode
	} else if info.PostalCode != "" {
		city.PostalCode = info.PostalCode
	}
	city.TimeZone = s.cfg.Zone

	saved, err := s.store.SaveCity(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("save city: %w", err)
	}
	metrics.EntitiesUpserted.WithLabelValues("city").Inc()
	return saved, nil
}

func (s *Service) upsertVenue(ctx context.Context, city *models.City, source string, sv core.ScrapedVenue, fallbackPostalCode string) (*models.Venue, error) {
	var existing *models.Venue
	var err error
	if sv.SourceID != "" {
		existing, err = s.store.FindVenueBySource(ctx, source, sv.SourceID)
		if err != nil {
			return nil, err
		}
	}
	if existing == nil {
		existing, err = s.store.FindVenueByCityAndName(ctx, city.ID, sv.Name)
		if err != nil {
			return nil, err
		}
	}

	venue := existing
	if venue == nil {
		venue = &models.Venue{}
	}
	venue.CityID = city.ID
	venue.Name = sv.Name
	venue.Address = sv.Address
	venue.PostalCode = sv.PostalCode
	if venue.PostalCode == "" {
		venue.PostalCode = fallbackPostalCode
	}
	venue.Source = source
	venue.SourceID = sv.SourceID
	venue.SourceURL = sv.SourceURL

	saved, err := s.store.SaveVenue(ctx, venue)
	if err != nil {
		return nil, err
	}
	metrics.EntitiesUpserted.WithLabelValues("venue").Inc()
	return saved, nil
}

func (s *Service) upsertEvent(ctx context.Context, source string, se core.ScrapedEvent) (*models.Event, error) {
	var existing *models.Event
	var err error
	if se.SourceID != "" {
		existing, err = s.store.FindEventBySource(ctx, source, se.SourceID)
		if err != nil {
			return nil, err
		}
	}
	eventType := se.Type
	if !eventType.Valid() {
		eventType = models.EventTypeOther
	}
	if existing == nil {
		existing, err = s.store.FindEventByTitleAndType(ctx, se.Title, eventType)
		if err != nil {
			return nil, err
		}
	}

	event := existing
	if event == nil {
		event = &models.Event{}
	}
	event.Title = se.Title
	event.Type = eventType
	event.PosterURL = s.mirrorPoster(ctx, se.PosterURL)
	event.Source = source
	event.SourceID = se.SourceID
	event.SourceURL = se.BookingURL

	saved, err := s.store.SaveEvent(ctx, event)
	if err != nil {
		return nil, err
	}
	metrics.EntitiesUpserted.WithLabelValues("event").Inc()
	return saved, nil
}

func (s *Service) mirrorPoster(ctx context.Context, rawURL string) string {
	if rawURL == "" || s.posterMirror == nil {
		return rawURL
	}
	return s.posterMirror.Mirror(ctx, rawURL)
}

func (s *Service) resolveShowtimeEvent(ctx context.Context, source string, ss core.ScrapedShowtime, cache map[string]*models.Event) (*models.Event, error) {
	if event, ok := cache[source+"|"+ss.EventSourceID]; ok {
		return event, nil
	}
	if ss.EventSourceID == "" {
		return nil, nil
	}
	event, err := s.store.FindEventBySource(ctx, source, ss.EventSourceID)
	if err != nil {
		return nil, fmt.Errorf("find showtime event: %w", err)
	}
	return event, nil
}

func (s *Service) resolveShowtimeVenue(ctx context.Context, city *models.City, source string, ss core.ScrapedShowtime, cache map[string]*models.Venue) (*models.Venue, error) {
	if ss.VenueSourceID != "" {
		if venue, ok := cache[source+"|"+ss.VenueSourceID]; ok {
			return venue, nil
		}
		venue, err := s.store.FindVenueBySource(ctx, source, ss.VenueSourceID)
		if err != nil {
			return nil, fmt.Errorf("find showtime venue: %w", err)
		}
		if venue != nil {
			return venue, nil
		}
	}
	if ss.VenueName == "" {
		return nil, nil
	}
	venue, err := s.store.FindVenueByCityAndName(ctx, city.ID, ss.VenueName)
	if err != nil {
		return nil, fmt.Errorf("find showtime venue by name: %w", err)
	}
	return venue, nil
}

func (s *Service) upsertShowtime(ctx context.Context, source string, ss core.ScrapedShowtime, event *models.Event, venue *models.Venue) error {
	var existing *models.Showtime
	var err error
	if ss.SourceID != "" {
		existing, err = s.store.FindShowtimeBySource(ctx, source, ss.SourceID)
		if err != nil {
			return err
		}
	}
	format := ss.Format
	if format == "" {
		format = models.ShowFormatGeneral
	}
	if existing == nil {
		existing, err = s.store.FindShowtimeBySlot(ctx, event.ID, venue.ID, ss.StartsAt, format)
		if err != nil {
			return err
		}
	}

	showtime := existing
	if showtime == nil {
		showtime = &models.Showtime{}
	}
	showtime.EventID = event.ID
	showtime.VenueID = venue.ID
	showtime.StartsAt = ss.StartsAt
	showtime.Format = format
	showtime.Source = source
	showtime.SourceID = ss.SourceID
	showtime.SourceURL = ss.BookingURL

	if _, err := s.store.SaveShowtime(ctx, showtime); err != nil {
		return err
	}
	metrics.EntitiesUpserted.WithLabelValues("showtime").Inc()
	return nil
}
