package providers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"zingo/backend/internal/config"
	"zingo/backend/internal/models"
	"zingo/backend/internal/scrape/core"
	"zingo/backend/internal/scrape/parse"
)

// BookMyShowProvider scrapes the explore listing pages and follows a bounded
// number of detail pages, reading schema.org JSON-LD from each.
type BookMyShowProvider struct {
	fetcher        core.Fetcher
	cfg            config.ListingProviderConfig
	maxDetailPages int
	cityMap        map[string]string
	loc            *time.Location
	logger         *slog.Logger
}

func NewBookMyShowProvider(fetcher core.Fetcher, cfg config.ListingProviderConfig, maxDetailPages int, cityMap map[string]string, loc *time.Location, logger *slog.Logger) *BookMyShowProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	if maxDetailPages <= 0 {
		maxDetailPages = 25
	}
	return &BookMyShowProvider{
		fetcher:        fetcher,
		cfg:            cfg,
		maxDetailPages: maxDetailPages,
		cityMap:        cityMap,
		loc:            loc,
		logger:         logger,
	}
}

func (p *BookMyShowProvider) Source() string { return core.SourceBookMyShow }

func (p *BookMyShowProvider) Scrape(ctx context.Context, req core.ScrapeRequest) (core.ScrapeResult, error) {
	cityName := parse.ResolveCityName(req.CityName, req.PostalCode, p.cityMap)
	if cityName == "" {
		p.logger.Warn("city_unresolved", "source", p.Source(), "postal_code", req.PostalCode)
		return core.EmptyResult(p.Source()), nil
	}
	citySlug := parse.Slugify(cityName)
	acc := newAccumulator(p.Source())
	acc.setCity(core.CityInfo{Name: cityName, PostalCode: req.PostalCode})

	seenDetails := make(map[string]struct{})

	listings := []struct {
		path string
		kind models.EventType
	}{
		{parse.ApplyTemplate(p.cfg.MoviesPathTemplate, citySlug), models.EventTypeMovie},
		{parse.ApplyTemplate(p.cfg.EventsPathTemplate, citySlug), models.EventTypeOther},
	}
	for _, listing := range listings {
		pageURL := p.cfg.BaseURL + listing.path
		doc := fetchDocument(ctx, p.fetcher, p.logger, pageURL)
		if doc == nil {
			continue
		}
		p.harvestStructured(doc, listing.kind, cityName, acc)

		// The detail budget is per listing page, so a link-heavy movies
		// page cannot starve the events page.
		budget := p.maxDetailPages
		for _, detailURL := range p.detailLinks(doc, pageURL) {
			if budget <= 0 {
				break
			}
			if _, ok := seenDetails[detailURL]; ok {
				continue
			}
			seenDetails[detailURL] = struct{}{}
			budget--
			detail := fetchDocument(ctx, p.fetcher, p.logger, detailURL)
			if detail == nil {
				continue
			}
			p.harvestStructured(detail, listing.kind, cityName, acc)
		}
	}
	return acc.result, nil
}

// detailLinks collects movie and event detail URLs from anchors on a
// listing page, preserving document order.
func (p *BookMyShowProvider) detailLinks(doc *goquery.Document, pageURL string) []string {
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := sel.AttrOr("href", "")
		if !strings.Contains(href, "/movies/") && !strings.Contains(href, "/events/") {
			return
		}
		if abs := absoluteURL(pageURL, href); abs != "" {
			links = append(links, abs)
		}
	})
	return links
}

// harvestStructured walks the page's JSON-LD blocks picking Event nodes and
// the items of ItemList nodes.
func (p *BookMyShowProvider) harvestStructured(doc *goquery.Document, kind models.EventType, cityName string, acc *accumulator) {
	for _, block := range parse.ExtractStructuredBlocks(doc) {
		node, ok := block.(map[string]any)
		if !ok {
			continue
		}
		p.harvestNode(node, kind, cityName, acc)
		for _, entry := range parse.FirstArray(node, "itemListElement") {
			item, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if nested, ok := item["item"].(map[string]any); ok {
				item = nested
			}
			p.harvestNode(item, kind, cityName, acc)
		}
	}
}

func (p *BookMyShowProvider) harvestNode(node map[string]any, kind models.EventType, cityName string, acc *accumulator) {
	if node == nil {
		return
	}
	isMovie := parse.TypeContains(node, "movie")
	if !isMovie && !parse.TypeContains(node, "event") {
		return
	}
	title := parse.FirstText(node, "name")
	eventURL := parse.FirstText(node, "url")
	eventSourceID := parse.FirstNonBlank(eventURL, title)
	if eventSourceID == "" || title == "" {
		return
	}
	eventSourceID = parse.NormalizeSourceID(eventSourceID)

	eventType := kind
	if isMovie {
		eventType = models.EventTypeMovie
	}
	event := core.ScrapedEvent{
		SourceID:    eventSourceID,
		Title:       title,
		Type:        eventType,
		Description: parse.FirstText(node, "description"),
		PosterURL:   posterFromNode(node),
		BookingURL:  eventURL,
	}
	if offers, ok := node["offers"].(map[string]any); ok {
		event.PriceText = parse.FirstText(offers, "price", "lowPrice")
		if event.BookingURL == "" {
			event.BookingURL = parse.FirstText(offers, "url")
		}
	}
	acc.addEvent(event)

	venueName, venueAddress := venueFromNode(node["location"])
	venueSourceID := ""
	if venueName != "" {
		venueSourceID = parse.NormalizeSourceID(venueName + "|" + eventSourceID)
		acc.addVenue(core.ScrapedVenue{
			SourceID:  venueSourceID,
			SourceURL: eventURL,
			Name:      venueName,
			Address:   venueAddress,
			CityName:  cityName,
		})
	}

	if startsAt := parse.ParseInstant(parse.FirstText(node, "startDate"), p.loc); startsAt != nil {
		acc.addShowtime(core.ScrapedShowtime{
			SourceID:      eventSourceID + "|start",
			EventSourceID: eventSourceID,
			VenueSourceID: venueSourceID,
			VenueName:     venueName,
			StartsAt:      *startsAt,
			Format:        models.ShowFormatGeneral,
			PriceText:     event.PriceText,
			BookingURL:    event.BookingURL,
		})
	}
}

func posterFromNode(node map[string]any) string {
	switch img := node["image"].(type) {
	case string:
		return strings.TrimSpace(img)
	case map[string]any:
		return parse.FirstText(img, "url", "contentUrl")
	case []any:
		for _, item := range img {
			if s := parse.TextValue(item); s != "" {
				return s
			}
		}
	}
	return ""
}

func venueFromNode(value any) (name, address string) {
	loc, ok := value.(map[string]any)
	if !ok {
		return "", ""
	}
	name = parse.FirstText(loc, "name")
	switch addr := loc["address"].(type) {
	case string:
		address = strings.TrimSpace(addr)
	case map[string]any:
		parts := []string{
			parse.FirstText(addr, "streetAddress"),
			parse.FirstText(addr, "addressLocality"),
			parse.FirstText(addr, "addressRegion"),
		}
		filtered := make([]string, 0, len(parts))
		for _, part := range parts {
			if part != "" {
				filtered = append(filtered, part)
			}
		}
		address = strings.Join(filtered, ", ")
	}
	return name, address
}
