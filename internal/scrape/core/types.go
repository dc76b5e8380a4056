// Package core defines the provider contract of the scrape pipeline and the
// intermediate representation every provider normalizes into.
package core

import (
	"context"
	"time"

	"zingo/backend/internal/models"
)

// Canonical source names. Providers report exactly one of these and every
// scraped row carries it as the first half of its natural key.
const (
	SourceBookMyShow = "BOOKMYSHOW"
	SourceDistrict   = "DISTRICT"
	SourceMovieGlu   = "MOVIEGLU"
)

// ScrapeRequest describes one scrape pass: a target location and a date
// window starting at StartDate spanning Days calendar days.
type ScrapeRequest struct {
	PostalCode string
	CityName   string
	StartDate  time.Time
	Days       int
}

// CityInfo is a provider's view of the requested city. Blank fields mean the
// provider does not know.
type CityInfo struct {
	Name       string
	State      string
	PostalCode string
}

// ScrapedVenue is a venue exactly as one provider saw it.
type ScrapedVenue struct {
	SourceID   string
	SourceURL  string
	Name       string
	Address    string
	PostalCode string
	CityName   string
}

// ScrapedEvent is an event or film exactly as one provider saw it.
type ScrapedEvent struct {
	SourceID    string
	Title       string
	Type        models.EventType
	Description string
	Category    string
	Language    string
	DurationMin int
	PosterURL   string
	BookingURL  string
	PriceText   string
}

// ScrapedShowtime links a scraped event to a scraped venue at an instant.
// EventSourceID is required; VenueSourceID may be blank when the provider
// only knows the venue by name.
type ScrapedShowtime struct {
	SourceID      string
	EventSourceID string
	VenueSourceID string
	VenueName     string
	StartsAt      time.Time
	Format        models.ShowFormat
	PriceText     string
	BookingURL    string
}

// ScrapeResult is everything one provider produced for one request.
type ScrapeResult struct {
	Source    string
	City      *CityInfo
	Venues    []ScrapedVenue
	Events    []ScrapedEvent
	Showtimes []ScrapedShowtime
}

// EmptyResult is the well-formed zero result for a source.
func EmptyResult(source string) ScrapeResult {
	return ScrapeResult{Source: source}
}

// Provider is one upstream listing source.
type Provider interface {
	Source() string
	Scrape(ctx context.Context, req ScrapeRequest) (ScrapeResult, error)
}

// Fetcher abstracts HTTP retrieval so providers stay testable offline.
type Fetcher interface {
	Get(ctx context.Context, url string, headers map[string]string) (body []byte, status int, err error)
}
