package tests

import (
	"context"
	"testing"
	"time"

	"zingo/backend/internal/config"
	"zingo/backend/internal/models"
	"zingo/backend/internal/scrape/core"
	"zingo/backend/internal/scrape/providers"
)

func listingConfig(base string) config.ListingProviderConfig {
	return config.ListingProviderConfig{
		Enabled:            true,
		BaseURL:            base,
		MoviesPathTemplate: "/explore/movies-{citySlug}",
		EventsPathTemplate: "/explore/events-{citySlug}",
	}
}

// TestBookMyShowListingAndDetailFixtures verifies book my show listing and detail fixtures behavior.
func TestBookMyShowListingAndDetailFixtures(t *testing.T) {
	moviesHTML := `
<script type="application/ld+json">
{
  "@type": "ItemList",
  "itemListElement": [
    {"@type": "ListItem", "item": {"@type": "Movie", "name": "Interstellar", "url": "https://bms.test/movies/interstellar/ET001"}}
  ]
}
</script>
<a href="/movies/interstellar/ET001">Interstellar</a>`

	detailHTML := `
<script type="application/ld+json">
{
  "@type": "Movie",
  "name": "Interstellar",
  "url": "https://bms.test/movies/interstellar/ET001",
  "image": "https://img.test/interstellar.jpg",
  "startDate": "2026-03-12T21:15:00",
  "location": {
    "@type": "Place",
    "name": "PVR Icon",
    "address": {"streetAddress": "Pavilion Mall", "addressLocality": "Pune"}
  },
  "offers": {"price": "350"}
}
</script>`

	eventsHTML := `
<script type="application/ld+json">
{
  "@type": "Event",
  "name": "Sunburn Arena",
  "url": "https://bms.test/events/sunburn/ET999",
  "startDate": "2026-03-14T19:00:00",
  "location": {"@type": "Place", "name": "Phoenix Marketcity", "address": "Viman Nagar, Pune"}
}
</script>`

	fetcher := &fakeFetcher{responses: map[string]fakeResponse{
		"https://bms.test/explore/movies-pune":       {status: 200, body: []byte(moviesHTML)},
		"https://bms.test/movies/interstellar/ET001": {status: 200, body: []byte(detailHTML)},
		"https://bms.test/explore/events-pune":       {status: 200, body: []byte(eventsHTML)},
	}}
	p := providers.NewBookMyShowProvider(fetcher, listingConfig("https://bms.test"), 5, nil, time.UTC, testLogger())

	result, err := p.Scrape(context.Background(), core.ScrapeRequest{CityName: "Pune", Days: 7})
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	if result.Source != core.SourceBookMyShow {
		t.Fatalf("unexpected source: %q", result.Source)
	}
	if result.City == nil || result.City.Name != "Pune" {
		t.Fatalf("expected city info, got %+v", result.City)
	}

	if len(result.Events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(result.Events), result.Events)
	}
	movie := result.Events[0]
	if movie.Title != "Interstellar" || movie.Type != models.EventTypeMovie {
		t.Fatalf("unexpected movie event: %+v", movie)
	}
	if movie.SourceID != "https://bms.test/movies/interstellar/ET001" {
		t.Fatalf("unexpected movie source id: %q", movie.SourceID)
	}
	other := result.Events[1]
	if other.Title != "Sunburn Arena" || other.Type != models.EventTypeOther {
		t.Fatalf("unexpected listing event: %+v", other)
	}

	if len(result.Venues) != 2 {
		t.Fatalf("expected 2 venues, got %d: %+v", len(result.Venues), result.Venues)
	}
	if result.Venues[0].Name != "PVR Icon" || result.Venues[0].Address != "Pavilion Mall, Pune" {
		t.Fatalf("unexpected venue: %+v", result.Venues[0])
	}
	if result.Venues[1].Name != "Phoenix Marketcity" || result.Venues[1].Address != "Viman Nagar, Pune" {
		t.Fatalf("unexpected venue: %+v", result.Venues[1])
	}

	if len(result.Showtimes) != 2 {
		t.Fatalf("expected 2 showtimes, got %d: %+v", len(result.Showtimes), result.Showtimes)
	}
	first := result.Showtimes[0]
	if first.StartsAt.Hour() != 21 || first.StartsAt.Minute() != 15 {
		t.Fatalf("unexpected start: %v", first.StartsAt)
	}
	if first.EventSourceID != movie.SourceID || first.SourceID != movie.SourceID+"|start" {
		t.Fatalf("unexpected showtime keys: %+v", first)
	}
	if first.Format != models.ShowFormatGeneral {
		t.Fatalf("unexpected format: %q", first.Format)
	}
}

// TestBookMyShowGraphWrappedEvents verifies graph wrapped events behavior.
func TestBookMyShowGraphWrappedEvents(t *testing.T) {
	eventsHTML := `
<script type="application/ld+json">
{"@context": "https://schema.org", "@graph": [
  {"@type": "Event", "name": "Indie Gig",
   "url": "https://bms.test/events/indie-gig/ET500",
   "startDate": "2026-03-14T20:30:00",
   "location": {"@type": "Place", "name": "Hard Rock Cafe"}}
]}
</script>`

	fetcher := &fakeFetcher{responses: map[string]fakeResponse{
		"https://bms.test/explore/movies-pune": {status: 200, body: []byte(``)},
		"https://bms.test/explore/events-pune": {status: 200, body: []byte(eventsHTML)},
	}}
	p := providers.NewBookMyShowProvider(fetcher, listingConfig("https://bms.test"), 5, nil, time.UTC, testLogger())

	result, err := p.Scrape(context.Background(), core.ScrapeRequest{CityName: "Pune"})
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	if len(result.Events) != 1 || result.Events[0].Title != "Indie Gig" {
		t.Fatalf("expected the graph-wrapped event, got %+v", result.Events)
	}
	if len(result.Venues) != 1 || result.Venues[0].Name != "Hard Rock Cafe" {
		t.Fatalf("unexpected venues: %+v", result.Venues)
	}
	if len(result.Showtimes) != 1 || result.Showtimes[0].StartsAt.Hour() != 20 {
		t.Fatalf("unexpected showtimes: %+v", result.Showtimes)
	}
}

// TestBookMyShowDetailPageBudget verifies detail page budget behavior.
func TestBookMyShowDetailPageBudget(t *testing.T) {
	moviesHTML := `
<a href="/movies/one-mv/ET001">One</a>
<a href="/movies/two-mv/ET002">Two</a>
<a href="/movies/three-mv/ET003">Three</a>
<a href="/movies/one-mv/ET001">One again</a>`

	eventsHTML := `
<a href="/events/gig-a/ET101">A</a>
<a href="/events/gig-b/ET102">B</a>
<a href="/events/gig-c/ET103">C</a>`

	fetcher := &fakeFetcher{responses: map[string]fakeResponse{
		"https://bms.test/explore/movies-pune": {status: 200, body: []byte(moviesHTML)},
		"https://bms.test/explore/events-pune": {status: 200, body: []byte(eventsHTML)},
		"https://bms.test/movies/one-mv/ET001": {status: 200, body: []byte(``)},
		"https://bms.test/movies/two-mv/ET002": {status: 200, body: []byte(``)},
		"https://bms.test/events/gig-a/ET101":  {status: 200, body: []byte(``)},
		"https://bms.test/events/gig-b/ET102":  {status: 200, body: []byte(``)},
	}}
	p := providers.NewBookMyShowProvider(fetcher, listingConfig("https://bms.test"), 2, nil, time.UTC, testLogger())

	if _, err := p.Scrape(context.Background(), core.ScrapeRequest{CityName: "Pune"}); err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	// The budget applies per listing page: two detail fetches from the
	// movies listing and two more from the events listing, with the
	// duplicate and over-budget links skipped.
	if len(fetcher.calls) != 6 {
		t.Fatalf("expected 6 fetches, got %d: %v", len(fetcher.calls), fetcher.calls)
	}
}

// TestBookMyShowUnresolvedCity verifies unresolved city behavior.
func TestBookMyShowUnresolvedCity(t *testing.T) {
	p := providers.NewBookMyShowProvider(&fakeFetcher{}, listingConfig("https://bms.test"), 5, nil, time.UTC, testLogger())
	result, err := p.Scrape(context.Background(), core.ScrapeRequest{PostalCode: "999999"})
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	if len(result.Events) != 0 || len(result.Venues) != 0 || len(result.Showtimes) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}
