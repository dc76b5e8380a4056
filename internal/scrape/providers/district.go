package providers

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/goccy/go-json"

	"zingo/backend/internal/config"
	"zingo/backend/internal/models"
	"zingo/backend/internal/scrape/core"
	"zingo/backend/internal/scrape/parse"
)

// DistrictProvider scrapes the activity listing cards plus a bounded number
// of event detail pages, and follows each movie link to its own page where
// the Next.js state blob and JSON-LD carry the cinema showtimes.
type DistrictProvider struct {
	fetcher        core.Fetcher
	cfg            config.ListingProviderConfig
	maxDetailPages int
	cityMap        map[string]string
	loc            *time.Location
	logger         *slog.Logger
}

func NewDistrictProvider(fetcher core.Fetcher, cfg config.ListingProviderConfig, maxDetailPages int, cityMap map[string]string, loc *time.Location, logger *slog.Logger) *DistrictProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	if maxDetailPages <= 0 {
		maxDetailPages = 25
	}
	return &DistrictProvider{
		fetcher:        fetcher,
		cfg:            cfg,
		maxDetailPages: maxDetailPages,
		cityMap:        cityMap,
		loc:            loc,
		logger:         logger,
	}
}

func (p *DistrictProvider) Source() string { return core.SourceDistrict }

func (p *DistrictProvider) Scrape(ctx context.Context, req core.ScrapeRequest) (core.ScrapeResult, error) {
	cityName := parse.ResolveCityName(req.CityName, req.PostalCode, p.cityMap)
	if cityName == "" {
		p.logger.Warn("city_unresolved", "source", p.Source(), "postal_code", req.PostalCode)
		return core.EmptyResult(p.Source()), nil
	}
	citySlug := parse.Slugify(cityName)
	acc := newAccumulator(p.Source())
	acc.setCity(core.CityInfo{Name: cityName, PostalCode: req.PostalCode})

	listingURL := p.cfg.BaseURL + parse.ApplyTemplate(p.cfg.EventsPathTemplate, citySlug)
	if doc := fetchDocument(ctx, p.fetcher, p.logger, listingURL); doc != nil {
		p.harvestActivityCards(doc, req, cityName, acc)
		p.harvestEventNodes(doc, listingURL, req, cityName, acc)
		p.followEventDetails(ctx, doc, req, cityName, acc)
	}
	if doc := fetchDocument(ctx, p.fetcher, p.logger, p.cfg.BaseURL+parse.ApplyTemplate(p.cfg.MoviesPathTemplate, citySlug)); doc != nil {
		p.harvestMovies(ctx, doc, req, cityName, citySlug, acc)
	}
	return acc.result, nil
}

var (
	clockRe    = regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}\s*(am|pm)?\b`)
	weekdayRe  = regexp.MustCompile(`(?i)\b(mon|tue|wed|thu|fri|sat|sun)\b`)
	monthRe    = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\b`)
	certRe     = regexp.MustCompile(`\s(U?A\d+\+?|U|A)$`)
	movieWords = regexp.MustCompile(`(?i)\b(movie|movies|film|cinema|screening)\b`)
	rupeesRe   = regexp.MustCompile(`(?i)\brs\.?\b`)
)

// harvestActivityCards reads the event cards: one anchor per activity, with
// a title heading and loose spans carrying date, price and venue text.
func (p *DistrictProvider) harvestActivityCards(doc *goquery.Document, req core.ScrapeRequest, cityName string, acc *accumulator) {
	doc.Find(`a[href*="/events/"]`).Each(func(_ int, card *goquery.Selection) {
		href := card.AttrOr("href", "")
		title := strings.TrimSpace(card.Find("h2, h3, h4, h5").First().Text())
		if title == "" || href == "" {
			return
		}
		eventSourceID := parse.NormalizeSourceID(href)
		bookingURL := absoluteURL(p.cfg.BaseURL, href)

		var dateText, priceText, venueText string
		card.Find("span").Each(func(_ int, span *goquery.Selection) {
			text := strings.TrimSpace(span.Text())
			if text == "" || text == title {
				return
			}
			switch {
			case isDateLike(text):
				if dateText == "" {
					dateText = text
				}
			case isPriceLike(text):
				if priceText == "" {
					priceText = text
				}
			default:
				if venueText == "" {
					venueText = text
				}
			}
		})

		eventType := models.EventTypeOther
		if movieWords.MatchString(title) || movieWords.MatchString(href) {
			eventType = models.EventTypeMovie
		}
		acc.addEvent(core.ScrapedEvent{
			SourceID:   eventSourceID,
			Title:      title,
			Type:       eventType,
			BookingURL: bookingURL,
			PriceText:  priceText,
		})

		venueSourceID := ""
		if venueText != "" {
			venueSourceID = parse.NormalizeSourceID(venueText + "|" + eventSourceID)
			acc.addVenue(core.ScrapedVenue{
				SourceID:  venueSourceID,
				SourceURL: bookingURL,
				Name:      venueText,
				CityName:  cityName,
			})
		}

		if startsAt := p.parseCardDate(dateText, req.StartDate); startsAt != nil {
			acc.addShowtime(core.ScrapedShowtime{
				SourceID:      eventSourceID + "|start",
				EventSourceID: eventSourceID,
				VenueSourceID: venueSourceID,
				VenueName:     venueText,
				StartsAt:      *startsAt,
				Format:        models.ShowFormatGeneral,
				PriceText:     priceText,
				BookingURL:    bookingURL,
			})
		}
	})
}

// harvestEventNodes picks schema.org Event nodes out of the page's JSON-LD.
// pageURL is the source-id fallback for nodes without their own url.
func (p *DistrictProvider) harvestEventNodes(doc *goquery.Document, pageURL string, req core.ScrapeRequest, cityName string, acc *accumulator) {
	for _, block := range parse.ExtractStructuredBlocks(doc) {
		node, ok := block.(map[string]any)
		if !ok || !parse.TypeContains(node, "event") {
			continue
		}
		title := parse.FirstText(node, "name")
		if title == "" {
			continue
		}
		eventURL := parse.FirstNonBlank(parse.FirstText(node, "url"), pageURL)
		eventSourceID := parse.NormalizeSourceID(eventURL)
		if eventSourceID == "" {
			eventSourceID = parse.NormalizeSourceID(title)
		}

		eventType := models.EventTypeOther
		if hasMovieKeyword(node, title, eventURL) {
			eventType = models.EventTypeMovie
		}
		acc.addEvent(core.ScrapedEvent{
			SourceID:   eventSourceID,
			Title:      title,
			Type:       eventType,
			PosterURL:  posterFromNode(node),
			BookingURL: eventURL,
		})

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
				BookingURL:    eventURL,
			})
		}
	}
}

// hasMovieKeyword applies the movie classification across the node's
// descriptive fields plus the visible name and url.
func hasMovieKeyword(node map[string]any, name, url string) bool {
	if movieWords.MatchString(name) || movieWords.MatchString(url) {
		return true
	}
	for _, key := range []string{"@type", "category", "genre", "keywords", "description"} {
		if movieWords.MatchString(parse.FirstText(node, key)) {
			return true
		}
	}
	return false
}

// followEventDetails fetches unseen /events/ detail pages under the detail
// budget and harvests each like a listing page.
func (p *DistrictProvider) followEventDetails(ctx context.Context, doc *goquery.Document, req core.ScrapeRequest, cityName string, acc *accumulator) {
	budget := p.maxDetailPages
	var links []string
	doc.Find(`a[href*="/events/"]`).Each(func(_ int, sel *goquery.Selection) {
		if abs := absoluteURL(p.cfg.BaseURL, sel.AttrOr("href", "")); abs != "" {
			links = append(links, abs)
		}
	})

	seen := make(map[string]struct{})
	for _, link := range links {
		if budget <= 0 {
			break
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		budget--
		detail := fetchDocument(ctx, p.fetcher, p.logger, link)
		if detail == nil {
			continue
		}
		p.harvestActivityCards(detail, req, cityName, acc)
		p.harvestEventNodes(detail, link, req, cityName, acc)
	}
}

func isDateLike(text string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "daily") || strings.Contains(lower, "multiple slots") {
		return true
	}
	return clockRe.MatchString(text) || weekdayRe.MatchString(text) || monthRe.MatchString(text)
}

func isPriceLike(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(text, "₹") ||
		rupeesRe.MatchString(text) ||
		strings.Contains(lower, "onwards")
}

// parseCardDate handles listing date strings. "Daily" style labels resolve
// to the window start at the default evening slot.
func (p *DistrictProvider) parseCardDate(text string, startDate time.Time) *time.Time {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return nil
	}
	if strings.Contains(lower, "daily") || strings.Contains(lower, "multiple slots") {
		t := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 19, 0, 0, 0, p.loc)
		return &t
	}
	return parse.ParseInstant(text, p.loc)
}

// harvestMovies picks the running-now movie links off the listing page and
// fetches each movie's own page for its showtimes. Movies whose page yields
// nothing still get one synthetic evening slot at a city-level placeholder
// venue, so the title shows up as bookable.
func (p *DistrictProvider) harvestMovies(ctx context.Context, doc *goquery.Document, req core.ScrapeRequest, cityName, citySlug string, acc *accumulator) {
	fallbackVenueID := "district-movies|" + citySlug
	fallbackVenueName := "District Movies - " + cityName
	fallbackVenueAdded := false

	seenMovies := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := sel.AttrOr("href", "")
		if !looksLikeMovieLink(href) {
			return
		}
		title := cleanMovieTitle(strings.TrimSpace(sel.Text()))
		if title == "" {
			title = cleanMovieTitle(strings.TrimSpace(sel.Find("h2, h3, h4, h5").First().Text()))
		}
		if title == "" {
			return
		}
		sourceID := parse.NormalizeSourceID(href)
		if _, ok := seenMovies[sourceID]; ok {
			return
		}
		seenMovies[sourceID] = struct{}{}

		detailURL := absoluteURL(p.cfg.BaseURL, href)
		acc.addEvent(core.ScrapedEvent{
			SourceID:   sourceID,
			Title:      title,
			Type:       models.EventTypeMovie,
			PosterURL:  absoluteURL(p.cfg.BaseURL, sel.Find("img").First().AttrOr("src", "")),
			BookingURL: detailURL,
		})

		if p.harvestMovieDetail(ctx, detailURL, sourceID, title, req, cityName, citySlug, acc) {
			return
		}
		if !fallbackVenueAdded {
			acc.addVenue(core.ScrapedVenue{
				SourceID: fallbackVenueID,
				Name:     fallbackVenueName,
				CityName: cityName,
			})
			fallbackVenueAdded = true
		}
		startsAt := time.Date(req.StartDate.Year(), req.StartDate.Month(), req.StartDate.Day(), 19, 0, 0, 0, p.loc)
		acc.addShowtime(core.ScrapedShowtime{
			SourceID:      sourceID + "|fallback",
			EventSourceID: sourceID,
			VenueSourceID: fallbackVenueID,
			VenueName:     fallbackVenueName,
			StartsAt:      startsAt,
			Format:        models.ShowFormatGeneral,
			BookingURL:    detailURL,
		})
	})
}

// harvestMovieDetail fetches one movie page and reads its sessions from the
// Next.js state blob and its JSON-LD schedule nodes. Reports whether any
// real showtime came out.
func (p *DistrictProvider) harvestMovieDetail(ctx context.Context, detailURL, eventSourceID, eventTitle string, req core.ScrapeRequest, cityName, citySlug string, acc *accumulator) bool {
	if detailURL == "" {
		return false
	}
	detail := fetchDocument(ctx, p.fetcher, p.logger, detailURL)
	if detail == nil {
		return false
	}
	before := len(acc.result.Showtimes)
	p.harvestNextData(detail, eventSourceID, eventTitle, req, cityName, acc)
	for _, block := range parse.ExtractStructuredBlocks(detail) {
		p.collectMovieShowtimes(block, 0, eventSourceID, eventTitle, cityName, citySlug, acc)
	}
	return len(acc.result.Showtimes) > before
}

// collectMovieShowtimes walks a movie page's JSON-LD looking for schedule
// nodes with a start date, descending through the schema.org containers that
// sites nest them in.
func (p *DistrictProvider) collectMovieShowtimes(node any, depth int, eventSourceID, eventTitle, cityName, citySlug string, acc *accumulator) {
	if depth > maxSessionWalkDepth {
		return
	}
	switch val := node.(type) {
	case []any:
		for _, item := range val {
			p.collectMovieShowtimes(item, depth+1, eventSourceID, eventTitle, cityName, citySlug, acc)
		}
	case map[string]any:
		for _, entry := range parse.FirstArray(val, "itemListElement") {
			if item, ok := entry.(map[string]any); ok {
				if nested, ok := item["item"]; ok {
					entry = nested
				}
			}
			p.collectMovieShowtimes(entry, depth+1, eventSourceID, eventTitle, cityName, citySlug, acc)
		}
		for _, key := range []string{"subEvent", "eventSchedule", "hasPart"} {
			if child, ok := val[key]; ok {
				p.collectMovieShowtimes(child, depth+1, eventSourceID, eventTitle, cityName, citySlug, acc)
			}
		}

		start := parse.FirstText(val, "startDate", "startTime")
		if start == "" {
			return
		}
		startsAt := parse.ParseInstant(start, p.loc)
		if startsAt == nil {
			return
		}

		venueName, venueAddress := venueFromNode(val["location"])
		venueSourceID := ""
		if venueName != "" {
			venueSourceID = parse.NormalizeSourceID("venue|" + venueName)
		} else {
			venueSourceID = "district-movies|" + citySlug
			venueName = "District Movies - " + cityName
		}
		acc.addVenue(core.ScrapedVenue{
			SourceID: venueSourceID,
			Name:     venueName,
			Address:  venueAddress,
			CityName: cityName,
		})
		acc.addShowtime(core.ScrapedShowtime{
			SourceID:      parse.NormalizeSourceID(eventSourceID + "|" + venueSourceID + "|" + startsAt.Format(time.RFC3339)),
			EventSourceID: eventSourceID,
			VenueSourceID: venueSourceID,
			VenueName:     venueName,
			StartsAt:      *startsAt,
			Format:        models.ShowFormatGeneral,
		})
	}
}

func looksLikeMovieLink(href string) bool {
	if !strings.Contains(href, "/movies/") {
		return false
	}
	return strings.Contains(href, "movie-tickets") || strings.Contains(href, "-mv")
}

// cleanMovieTitle strips the censor certificate suffix and anything past the
// first pipe separator.
func cleanMovieTitle(title string) string {
	if idx := strings.Index(title, " | "); idx >= 0 {
		title = title[:idx]
	}
	title = certRe.ReplaceAllString(strings.TrimSpace(title), "")
	return strings.TrimSpace(title)
}

const maxSessionWalkDepth = 12

type districtCinema struct {
	id      string
	name    string
	address string
	pincode string
}

// harvestNextData decodes script#__NEXT_DATA__ and walks the known
// movie-session paths. The enclosing movie's id and title seed the walk so
// sessions without their own movie fields still attach to it.
func (p *DistrictProvider) harvestNextData(doc *goquery.Document, movieID, movieName string, req core.ScrapeRequest, cityName string, acc *accumulator) {
	raw := strings.TrimSpace(doc.Find(`script#__NEXT_DATA__`).First().Text())
	if raw == "" {
		return
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		p.logger.Warn("next_data_decode_failed", "error", err)
		return
	}
	for _, path := range [][]string{
		{"props", "pageProps", "data", "serverState", "movieSessions"},
		{"props", "pageProps", "initialState", "movies", "movieSessions"},
	} {
		if node := digPath(payload, path); node != nil {
			p.walkSessions(node, 0, nil, movieID, movieName, req, cityName, acc)
		}
	}
}

func digPath(node any, path []string) any {
	current := node
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = obj[key]
		if !ok {
			return nil
		}
	}
	return current
}

// walkSessions recursively scans the session tree. Cinema info and movie
// identity propagate down from enclosing objects; any object carrying a
// sessions array emits showtimes.
func (p *DistrictProvider) walkSessions(node any, depth int, cinema *districtCinema, movieID, movieName string, req core.ScrapeRequest, cityName string, acc *accumulator) {
	if depth > maxSessionWalkDepth {
		return
	}
	switch val := node.(type) {
	case map[string]any:
		if info, ok := val["cinemaInfo"].(map[string]any); ok {
			cinema = &districtCinema{
				id:      parse.FirstText(info, "id", "cinemaId", "venueId"),
				name:    parse.FirstText(info, "name", "cinemaName"),
				address: parse.FirstText(info, "address", "area"),
				pincode: parse.FirstText(info, "pincode"),
			}
		}
		movieID = parse.FirstNonBlank(parse.FirstText(val, "movieId", "filmId"), movieID)
		movieName = parse.FirstNonBlank(parse.FirstText(val, "movieName", "filmName", "movieTitle"), movieName)

		if sessions := parse.FirstArray(val, "sessions", "showtimes", "times"); sessions != nil {
			p.emitSessions(sessions, cinema, movieID, movieName, req, cityName, acc)
		}
		for _, child := range val {
			p.walkSessions(child, depth+1, cinema, movieID, movieName, req, cityName, acc)
		}
	case []any:
		for _, item := range val {
			p.walkSessions(item, depth+1, cinema, movieID, movieName, req, cityName, acc)
		}
	}
}

func (p *DistrictProvider) emitSessions(sessions []any, cinema *districtCinema, movieID, movieName string, req core.ScrapeRequest, cityName string, acc *accumulator) {
	eventSourceID := parse.NormalizeSourceID(parse.FirstNonBlank(movieID, movieName))
	if eventSourceID == "" {
		return
	}
	if movieName != "" {
		acc.addEvent(core.ScrapedEvent{
			SourceID: eventSourceID,
			Title:    cleanMovieTitle(movieName),
			Type:     models.EventTypeMovie,
		})
	}

	venueSourceID := ""
	venueName := ""
	if cinema != nil && cinema.name != "" {
		venueName = cinema.name
		venueSourceID = parse.NormalizeSourceID(parse.FirstNonBlank(cinema.id, cinema.name))
		acc.addVenue(core.ScrapedVenue{
			SourceID:   venueSourceID,
			Name:       cinema.name,
			Address:    cinema.address,
			PostalCode: cinema.pincode,
			CityName:   cityName,
		})
	}

	for _, item := range sessions {
		session, ok := item.(map[string]any)
		if !ok {
			continue
		}
		showTime := parse.FirstText(session, "showTime", "showtime", "time", "startTime")
		startsAt := parse.ParseInstant(showTime, p.loc)
		if startsAt == nil {
			startsAt = parse.ParseClockTime(showTime, req.StartDate, p.loc)
		}
		if startsAt == nil {
			continue
		}
		sid := parse.FirstText(session, "sid", "sessionId", "id")
		if sid == "" {
			sid = eventSourceID + "|" + startsAt.Format("2006-01-02T15:04")
		}
		acc.addShowtime(core.ScrapedShowtime{
			SourceID:      sid,
			EventSourceID: eventSourceID,
			VenueSourceID: venueSourceID,
			VenueName:     venueName,
			StartsAt:      *startsAt,
			Format:        resolveFormat(parse.FirstText(session, "scrnFmt", "format")),
		})
	}
}

// resolveFormat maps loose screen-format labels onto the canonical set.
// IMAX wins over 3D which wins over 2D.
func resolveFormat(label string) models.ShowFormat {
	lower := strings.ToLower(label)
	switch {
	case strings.Contains(lower, "imax"):
		return models.ShowFormatIMAX
	case strings.Contains(lower, "3d"):
		return models.ShowFormatThreeD
	case strings.Contains(lower, "2d") || strings.Contains(lower, "standard"):
		return models.ShowFormatTwoD
	default:
		return models.ShowFormatGeneral
	}
}
