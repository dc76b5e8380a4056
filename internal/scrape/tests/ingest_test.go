package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"zingo/backend/internal/config"
	"zingo/backend/internal/models"
	"zingo/backend/internal/scrape/core"
	"zingo/backend/internal/scrape/ingest"
	"zingo/backend/internal/scrape/providers"
)

type fakeLookup map[string]string

func (f fakeLookup) LookupCity(_ context.Context, postalCode string) string {
	return f[postalCode]
}

func ingestConfig() config.ScrapeConfig {
	return config.ScrapeConfig{Zone: "UTC", Days: 2}
}

// TestSyncIsIdempotent verifies sync is idempotent behavior.
func TestSyncIsIdempotent(t *testing.T) {
	sandbox := providers.NewMovieGluProvider(nil, sandboxConfig(), nil, time.UTC, testLogger())
	store := &fakeStore{}
	svc := ingest.NewService(core.NewOrchestrator(testLogger(), sandbox), store, nil, nil, ingestConfig(), testLogger())

	first, err := svc.Sync(context.Background(), "411001", "Pune", 2)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if first.CityName != "Pune" {
		t.Fatalf("unexpected city: %q", first.CityName)
	}
	if first.Venues != 2 || first.Events != 7 || first.Showtimes != 8 {
		t.Fatalf("unexpected counters: %+v", first)
	}
	if len(store.cities) != 1 || len(store.venues) != 2 || len(store.events) != 7 || len(store.showtimes) != 8 {
		t.Fatalf("unexpected store sizes: %d cities, %d venues, %d events, %d showtimes",
			len(store.cities), len(store.venues), len(store.events), len(store.showtimes))
	}

	second, err := svc.Sync(context.Background(), "411001", "Pune", 2)
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if second.Showtimes != first.Showtimes {
		t.Fatalf("expected identical attempt counters, got %+v", second)
	}
	if len(store.cities) != 1 || len(store.venues) != 2 || len(store.events) != 7 || len(store.showtimes) != 8 {
		t.Fatalf("second run must update in place: %d cities, %d venues, %d events, %d showtimes",
			len(store.cities), len(store.venues), len(store.events), len(store.showtimes))
	}

	city := store.cities[0]
	if city.PostalCode != "411001" || city.TimeZone != "UTC" {
		t.Fatalf("unexpected city row: %+v", city)
	}
	for _, st := range store.showtimes {
		if st.EventID == 0 || st.VenueID == 0 {
			t.Fatalf("showtime missing parent ids: %+v", st)
		}
	}
}

// TestSyncResolvesCityFromPincode verifies city resolution from pincode behavior.
func TestSyncResolvesCityFromPincode(t *testing.T) {
	sandbox := providers.NewMovieGluProvider(nil, sandboxConfig(), nil, time.UTC, testLogger())
	store := &fakeStore{}
	lookup := fakeLookup{"411001": "Pune"}
	svc := ingest.NewService(core.NewOrchestrator(testLogger(), sandbox), store, lookup, nil, ingestConfig(), testLogger())

	result, err := svc.Sync(context.Background(), "411001", "", 1)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if result.CityName != "Pune" || result.PostalCode != "411001" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

// TestSyncRequiresCity verifies sync requires city behavior.
func TestSyncRequiresCity(t *testing.T) {
	store := &fakeStore{}
	svc := ingest.NewService(core.NewOrchestrator(testLogger()), store, nil, nil, ingestConfig(), testLogger())

	if _, err := svc.Sync(context.Background(), "", "", 0); !errors.Is(err, ingest.ErrCityRequired) {
		t.Fatalf("expected ErrCityRequired, got %v", err)
	}
}

// TestSyncTwoPassResolvesLaterParents verifies two pass parent resolution
// behavior: a showtime whose event and venue only appear in a later result
// still resolves, because every venue and event across all results is
// upserted before any showtime is processed. The in-run maps are keyed by
// source name, so a reference under a different source stays unresolved.
func TestSyncTwoPassResolvesLaterParents(t *testing.T) {
	startsAt := time.Date(2026, time.March, 12, 21, 0, 0, 0, time.UTC)
	early := &stubProvider{
		source: "GOOD",
		result: core.ScrapeResult{
			Source: "GOOD",
			City:   &core.CityInfo{Name: "Pune"},
			Showtimes: []core.ScrapedShowtime{
				{SourceID: "s1", EventSourceID: "e1", VenueSourceID: "v1", StartsAt: startsAt},
			},
		},
	}
	late := &stubProvider{
		source: "GOOD",
		result: core.ScrapeResult{
			Source: "GOOD",
			Venues: []core.ScrapedVenue{{SourceID: "v1", Name: "Late Hall"}},
			Events: []core.ScrapedEvent{{SourceID: "e1", Title: "Late Film", Type: models.EventTypeMovie}},
		},
	}
	foreign := &stubProvider{
		source: "OTHER",
		result: core.ScrapeResult{
			Source: "OTHER",
			Showtimes: []core.ScrapedShowtime{
				{SourceID: "s2", EventSourceID: "e1", VenueSourceID: "v1", StartsAt: startsAt},
			},
		},
	}
	store := &fakeStore{}
	svc := ingest.NewService(core.NewOrchestrator(testLogger(), early, late, foreign), store, nil, nil, ingestConfig(), testLogger())

	result, err := svc.Sync(context.Background(), "", "Pune", 1)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if result.Showtimes != 1 {
		t.Fatalf("expected exactly the same-source showtime, got %+v", result)
	}
	if len(store.showtimes) != 1 || store.showtimes[0].SourceID != "s1" {
		t.Fatalf("unexpected stored showtimes: %+v", store.showtimes)
	}
	st := store.showtimes[0]
	if st.EventID != store.events[0].ID || st.VenueID != store.venues[0].ID {
		t.Fatalf("showtime not linked to the later-result parents: %+v", st)
	}
}

// TestSyncVenuePostalCodeAndSourceURL verifies venue postal code and source
// url propagation behavior.
func TestSyncVenuePostalCodeAndSourceURL(t *testing.T) {
	provider := &stubProvider{
		source: "GOOD",
		result: core.ScrapeResult{
			Source: "GOOD",
			City:   &core.CityInfo{Name: "Pune"},
			Venues: []core.ScrapedVenue{
				{SourceID: "v1", Name: "Grand Hall", PostalCode: "411045", SourceURL: "https://site.test/venues/grand-hall"},
				{SourceID: "v2", Name: "Plain Hall"},
			},
		},
	}
	store := &fakeStore{}
	svc := ingest.NewService(core.NewOrchestrator(testLogger(), provider), store, nil, nil, ingestConfig(), testLogger())

	if _, err := svc.Sync(context.Background(), "411001", "Pune", 1); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if len(store.venues) != 2 {
		t.Fatalf("unexpected venues: %+v", store.venues)
	}
	grand := store.venues[0]
	if grand.PostalCode != "411045" || grand.SourceURL != "https://site.test/venues/grand-hall" {
		t.Fatalf("scraped venue fields should carry through: %+v", grand)
	}
	plain := store.venues[1]
	if plain.PostalCode != "411001" {
		t.Fatalf("venue without a pincode should fall back to the request postal code: %+v", plain)
	}
}

// TestSyncResolvesShowtimeVenueByName verifies showtime venue resolution by name behavior.
func TestSyncResolvesShowtimeVenueByName(t *testing.T) {
	startsAt := time.Date(2026, time.March, 11, 20, 0, 0, 0, time.UTC)
	provider := &stubProvider{
		source: "GOOD",
		result: core.ScrapeResult{
			Source: "GOOD",
			City:   &core.CityInfo{Name: "Pune"},
			Venues: []core.ScrapedVenue{{SourceID: "v1", Name: "Blue Hall"}},
			Events: []core.ScrapedEvent{{SourceID: "e1", Title: "Indie Night", Type: models.EventTypeOther}},
			Showtimes: []core.ScrapedShowtime{
				// No venue source id: resolved by name within the city.
				{SourceID: "s1", EventSourceID: "e1", VenueName: "blue hall", StartsAt: startsAt},
				// Unknown venue: skipped without failing the run.
				{SourceID: "s2", EventSourceID: "e1", VenueName: "Nowhere Hall", StartsAt: startsAt},
			},
		},
	}
	store := &fakeStore{}
	svc := ingest.NewService(core.NewOrchestrator(testLogger(), provider), store, nil, nil, ingestConfig(), testLogger())

	result, err := svc.Sync(context.Background(), "", "Pune", 1)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if result.Showtimes != 1 {
		t.Fatalf("expected one stored showtime, got %+v", result)
	}
	if len(store.showtimes) != 1 {
		t.Fatalf("unexpected store showtimes: %+v", store.showtimes)
	}
	st := store.showtimes[0]
	if st.VenueID != store.venues[0].ID || st.Format != models.ShowFormatGeneral {
		t.Fatalf("unexpected showtime row: %+v", st)
	}
}
