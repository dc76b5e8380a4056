// Package providers implements the upstream listing sources. Each provider
// normalizes one site or vendor API into the shared scrape result shape.
package providers

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"zingo/backend/internal/scrape/core"
	"zingo/backend/internal/scrape/parse"
)

// accumulator collects scraped rows with in-run dedup on normalized source
// ids, so a listing page and a detail page yielding the same entity produce
// one row.
type accumulator struct {
	result     core.ScrapeResult
	seenVenues map[string]struct{}
	seenEvents map[string]struct{}
	seenShows  map[string]struct{}
}

func newAccumulator(source string) *accumulator {
	return &accumulator{
		result:     core.EmptyResult(source),
		seenVenues: make(map[string]struct{}),
		seenEvents: make(map[string]struct{}),
		seenShows:  make(map[string]struct{}),
	}
}

func (a *accumulator) setCity(city core.CityInfo) {
	if a.result.City == nil {
		a.result.City = &city
	}
}

func (a *accumulator) addVenue(v core.ScrapedVenue) {
	v.SourceID = parse.NormalizeSourceID(v.SourceID)
	if v.SourceID == "" || strings.TrimSpace(v.Name) == "" {
		return
	}
	if _, ok := a.seenVenues[v.SourceID]; ok {
		return
	}
	a.seenVenues[v.SourceID] = struct{}{}
	a.result.Venues = append(a.result.Venues, v)
}

func (a *accumulator) addEvent(e core.ScrapedEvent) {
	e.SourceID = parse.NormalizeSourceID(e.SourceID)
	if e.SourceID == "" || strings.TrimSpace(e.Title) == "" {
		return
	}
	if _, ok := a.seenEvents[e.SourceID]; ok {
		return
	}
	a.seenEvents[e.SourceID] = struct{}{}
	a.result.Events = append(a.result.Events, e)
}

func (a *accumulator) addShowtime(s core.ScrapedShowtime) {
	s.SourceID = parse.NormalizeSourceID(s.SourceID)
	s.EventSourceID = parse.NormalizeSourceID(s.EventSourceID)
	s.VenueSourceID = parse.NormalizeSourceID(s.VenueSourceID)
	if s.SourceID == "" || s.EventSourceID == "" || s.StartsAt.IsZero() {
		return
	}
	if _, ok := a.seenShows[s.SourceID]; ok {
		return
	}
	a.seenShows[s.SourceID] = struct{}{}
	a.result.Showtimes = append(a.result.Showtimes, s)
}

// fetchDocument grabs a page and parses it; a failed fetch or non-2xx status
// logs a warning and returns nil so the caller moves on.
func fetchDocument(ctx context.Context, fetcher core.Fetcher, logger *slog.Logger, pageURL string) *goquery.Document {
	body, status, err := fetcher.Get(ctx, pageURL, nil)
	if err != nil {
		logger.Warn("page_fetch_failed", "url", pageURL, "error", err)
		return nil
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		logger.Warn("page_fetch_status", "url", pageURL, "status", status)
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		logger.Warn("page_parse_failed", "url", pageURL, "error", err)
		return nil
	}
	return doc
}

// absoluteURL resolves href against base. Returns "" for anything that is
// not http(s) after resolution.
func absoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := baseURL.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}
