package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"zingo/backend/internal/config"
	"zingo/backend/internal/models"
	"zingo/backend/internal/scrape/core"
	"zingo/backend/internal/scrape/parse"
)

// MovieGluProvider pulls cinema showtimes from the MovieGlu vendor API. The
// sandbox mode produces a deterministic offline dataset; live mode searches
// cinemas for the city and walks cinemaShowTimes per cinema and day.
type MovieGluProvider struct {
	fetcher core.Fetcher
	cfg     config.MovieGluConfig
	cityMap map[string]string
	loc     *time.Location
	logger  *slog.Logger
	now     func() time.Time
}

func NewMovieGluProvider(fetcher core.Fetcher, cfg config.MovieGluConfig, cityMap map[string]string, loc *time.Location, logger *slog.Logger) *MovieGluProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &MovieGluProvider{
		fetcher: fetcher,
		cfg:     cfg,
		cityMap: cityMap,
		loc:     loc,
		logger:  logger,
		now:     time.Now,
	}
}

func (p *MovieGluProvider) Source() string { return core.SourceMovieGlu }

type movieGluHeaders struct {
	mode          string
	client        string
	apiKey        string
	authorization string
	territory     string
	apiVersion    string
	geolocation   string
}

type cinemaRef struct {
	cinemaID string
	name     string
	address  string
}

type sandboxFilm struct {
	filmID string
	title  string
}

func (p *MovieGluProvider) Scrape(ctx context.Context, req core.ScrapeRequest) (core.ScrapeResult, error) {
	cityName := parse.ResolveCityName(req.CityName, req.PostalCode, p.cityMap)
	if cityName == "" {
		return core.EmptyResult(p.Source()), nil
	}
	headers := p.resolveHeaders()
	if headers.mode == "sandbox" {
		return p.sandboxResult(req, cityName), nil
	}
	if headers.client == "" || headers.apiKey == "" || headers.authorization == "" {
		p.logger.Warn("movieglu_credentials_missing", "mode", headers.mode)
		return core.EmptyResult(p.Source()), nil
	}

	acc := newAccumulator(p.Source())
	acc.setCity(core.CityInfo{Name: cityName, PostalCode: req.PostalCode})

	rateLimited := false
	cinemas := p.loadCinemas(ctx, headers, cityName, &rateLimited)
	if len(cinemas) == 0 {
		return acc.result, nil
	}

	startDate := req.StartDate
	if startDate.IsZero() {
		startDate = p.now().In(p.loc)
	}
	dayCount := req.Days
	if dayCount < 1 {
		dayCount = 1
	}
	cinemaCount := len(cinemas)
	if p.cfg.MaxCinemas > 0 && p.cfg.MaxCinemas < cinemaCount {
		cinemaCount = p.cfg.MaxCinemas
	}

	for i := 0; i < cinemaCount && !rateLimited; i++ {
		cinema := cinemas[i]
		for dayOffset := 0; dayOffset < dayCount && !rateLimited; dayOffset++ {
			date := startDate.AddDate(0, 0, dayOffset)
			payload, ok := p.requestJSON(ctx, headers, "cinemaShowTimes/", map[string]string{
				"cinema_id": cinema.cinemaID,
				"date":      date.Format("2006-01-02"),
			}, &rateLimited).(map[string]any)
			if !ok {
				continue
			}
			p.collectShowtimes(payload, cinema, date, acc)
		}
	}
	return acc.result, nil
}

func (p *MovieGluProvider) resolveHeaders() movieGluHeaders {
	if p.cfg.UseSandbox {
		return movieGluHeaders{
			mode:          "sandbox",
			client:        parse.FirstNonBlank(p.cfg.SandboxClient, p.cfg.Client),
			apiKey:        parse.FirstNonBlank(p.cfg.SandboxAPIKey, p.cfg.APIKey),
			authorization: parse.FirstNonBlank(p.cfg.SandboxAuthorization, p.cfg.Authorization),
			territory:     parse.FirstNonBlank(p.cfg.SandboxTerritory, "XX"),
			apiVersion:    parse.FirstNonBlank(p.cfg.SandboxAPIVersion, "v201"),
			geolocation:   parse.FirstNonBlank(p.cfg.SandboxGeolocation, "52.47;-1.93"),
		}
	}
	return movieGluHeaders{
		mode:          "live",
		client:        p.cfg.Client,
		apiKey:        p.cfg.APIKey,
		authorization: p.cfg.Authorization,
		territory:     parse.FirstNonBlank(p.cfg.Territory, "IN"),
		apiVersion:    parse.FirstNonBlank(p.cfg.APIVersion, "v201"),
		geolocation:   parse.FirstNonBlank(p.cfg.Geolocation, "20.59;78.96"),
	}
}

func sandboxCinemas(requested int) []cinemaRef {
	all := []cinemaRef{
		{"8842", "Cinema 1", "Big Daddy"},
		{"8845", "Cinema 2", "Deadvlei"},
		{"8910", "Cinema 3", "Dune 45"},
		{"8930", "Cinema 4", "Hiddenvlei"},
		{"9435", "Cinema 5", "Sesriem Canyon"},
		{"10636", "Cinema 6", "Jetty"},
		{"42963", "Cinema 7", "Welwitschia Plains"},
		{"45353", "Cinema 8", "Sandbox Cinema 8"},
	}
	if requested >= len(all) {
		return all
	}
	if requested < 1 {
		requested = 1
	}
	return all[:requested]
}

func sandboxFilms() []sandboxFilm {
	return []sandboxFilm{
		{"25", "Stargate"},
		{"1685", "The Adventures of Priscilla, Queen of the Desert"},
		{"2756", "Max Max"},
		{"3427", "From Dusk Till Dawn"},
		{"4167", "Woman in the Dunes"},
		{"6650", "The English Patient"},
		{"7772", "Raiders of the Lost Ark"},
		{"8675", "Lawrence of Arabia - 70mm"},
		{"21448", "Three Kings"},
		{"59906", "There will be Blood"},
		{"62407", "The Fall"},
		{"184126", "The Martian"},
	}
}

// sandboxResult synthesizes the sandbox dataset without network calls: each
// cinema shows two slots per day and the film rotation is a pure function of
// cinema, day and slot, so repeated runs yield identical natural keys.
func (p *MovieGluProvider) sandboxResult(req core.ScrapeRequest, cityName string) core.ScrapeResult {
	acc := newAccumulator(p.Source())
	acc.setCity(core.CityInfo{Name: cityName, PostalCode: req.PostalCode})

	requested := p.cfg.MaxCinemas
	if requested <= 0 {
		requested = 8
	}
	cinemas := sandboxCinemas(requested)
	films := sandboxFilms()

	startDate := req.StartDate
	if startDate.IsZero() {
		startDate = p.now().In(p.loc)
	}
	dayCount := req.Days
	if dayCount < 1 {
		dayCount = 1
	}
	slots := []int{18, 21}

	for cinemaIndex, cinema := range cinemas {
		venueSourceID := "movieglu|cinema|" + cinema.cinemaID
		acc.addVenue(core.ScrapedVenue{
			SourceID: venueSourceID,
			Name:     cinema.name,
			Address:  cinema.address,
			CityName: cityName,
		})
		for dayOffset := 0; dayOffset < dayCount; dayOffset++ {
			date := startDate.AddDate(0, 0, dayOffset)
			for slotIndex, hour := range slots {
				film := films[(cinemaIndex*3+dayOffset*2+slotIndex)%len(films)]
				eventSourceID := "movieglu|film|" + film.filmID
				acc.addEvent(core.ScrapedEvent{
					SourceID: eventSourceID,
					Title:    film.title,
					Type:     models.EventTypeMovie,
				})
				startsAt := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, p.loc)
				acc.addShowtime(core.ScrapedShowtime{
					SourceID: fmt.Sprintf("%s|%s|%s|%s|%s", p.Source(), eventSourceID, venueSourceID,
						startsAt.UTC().Format(time.RFC3339), models.ShowFormatGeneral),
					EventSourceID: eventSourceID,
					VenueSourceID: venueSourceID,
					VenueName:     cinema.name,
					StartsAt:      startsAt,
					Format:        models.ShowFormatGeneral,
				})
			}
		}
	}
	return acc.result
}

func (p *MovieGluProvider) loadCinemas(ctx context.Context, headers movieGluHeaders, cityName string, rateLimited *bool) []cinemaRef {
	requested := p.cfg.MaxCinemas
	if requested <= 0 {
		requested = 10
	}
	payload := p.requestJSON(ctx, headers, "cinemaLiveSearch/", map[string]string{
		"n":     fmt.Sprintf("%d", requested),
		"query": cityName,
	}, rateLimited)
	return extractCinemas(payload)
}

func extractCinemas(payload any) []cinemaRef {
	if payload == nil {
		return nil
	}
	var list []any
	switch val := payload.(type) {
	case map[string]any:
		list = parse.FirstArray(val, "cinemas", "results", "data")
	case []any:
		list = val
	}
	if list == nil {
		return nil
	}

	seen := make(map[string]struct{})
	cinemas := make([]cinemaRef, 0, len(list))
	for _, item := range list {
		node, ok := item.(map[string]any)
		if !ok {
			continue
		}
		cinemaID := parse.FirstText(node, "cinema_id", "id")
		if cinemaID == "" {
			continue
		}
		if _, dup := seen[cinemaID]; dup {
			continue
		}
		seen[cinemaID] = struct{}{}
		name := parse.FirstText(node, "cinema_name", "name")
		if name == "" {
			name = "Cinema " + cinemaID
		}
		cinemas = append(cinemas, cinemaRef{
			cinemaID: cinemaID,
			name:     name,
			address:  parse.FirstText(node, "address", "cinema_address", "full_address"),
		})
	}
	return cinemas
}

func (p *MovieGluProvider) collectShowtimes(payload map[string]any, fallback cinemaRef, date time.Time, acc *accumulator) {
	cinemaNode, _ := payload["cinema"].(map[string]any)
	cinemaID := parse.FirstNonBlank(parse.FirstText(cinemaNode, "cinema_id", "id"), fallback.cinemaID)
	if cinemaID == "" {
		return
	}
	venueSourceID := "movieglu|cinema|" + cinemaID
	venueName := parse.FirstNonBlank(parse.FirstText(cinemaNode, "cinema_name", "name"), fallback.name)
	if venueName != "" {
		acc.addVenue(core.ScrapedVenue{
			SourceID: venueSourceID,
			Name:     venueName,
			Address:  parse.FirstNonBlank(parse.FirstText(cinemaNode, "address", "cinema_address", "full_address"), fallback.address),
		})
	}

	films, _ := payload["films"].([]any)
	for _, item := range films {
		filmNode, ok := item.(map[string]any)
		if !ok {
			continue
		}
		filmID := parse.FirstText(filmNode, "film_id", "id")
		title := parse.FirstText(filmNode, "film_name", "name", "title")
		if filmID == "" && title == "" {
			continue
		}
		eventSourceID := "movieglu|film|" + parse.FirstNonBlank(filmID, title)
		acc.addEvent(core.ScrapedEvent{
			SourceID:   eventSourceID,
			Title:      parse.FirstNonBlank(title, "Untitled"),
			Type:       models.EventTypeMovie,
			PosterURL:  extractPosterURL(filmNode),
			BookingURL: parse.FirstText(filmNode, "film_trailer", "film_url", "url"),
		})
		p.collectShowings(filmNode["showings"], "", date, eventSourceID, venueSourceID, venueName, acc, 0)
	}
}

// collectShowings walks the showings subtree. MovieGlu nests times under
// format-labelled objects and arrays with no fixed schema, so any object
// with a recognizable time field emits, and the nearest format label wins.
func (p *MovieGluProvider) collectShowings(node any, formatLabel string, date time.Time, eventSourceID, venueSourceID, venueName string, acc *accumulator, depth int) {
	if node == nil || depth > 8 {
		return
	}
	switch val := node.(type) {
	case string:
		p.emitShowing(val, formatLabel, date, eventSourceID, venueSourceID, venueName, acc)
	case []any:
		for _, item := range val {
			p.collectShowings(item, formatLabel, date, eventSourceID, venueSourceID, venueName, acc, depth+1)
		}
	case map[string]any:
		if start := parse.FirstText(val, "start_time", "time", "show_time", "showtime"); start != "" {
			label := parse.FirstNonBlank(formatLabel, parse.FirstText(val, "format", "showing_format", "showing_dimension", "type"))
			p.emitShowingNode(val, start, label, date, eventSourceID, venueSourceID, venueName, acc)
		}
		times := parse.FirstArray(val, "times", "showtimes", "sessions")
		if times != nil {
			label := parse.FirstNonBlank(
				parse.FirstText(val, "format", "showing_format", "showing_dimension", "type", "name"),
				formatLabel)
			p.collectShowings(times, label, date, eventSourceID, venueSourceID, venueName, acc, depth+1)
		}
		for key, child := range val {
			if isSameArray(child, times) {
				continue
			}
			switch child.(type) {
			case map[string]any, []any:
				label := parse.FirstNonBlank(formatLabel, key)
				p.collectShowings(child, label, date, eventSourceID, venueSourceID, venueName, acc, depth+1)
			}
		}
	}
}

func isSameArray(a any, b []any) bool {
	list, ok := a.([]any)
	if !ok || b == nil {
		return false
	}
	return len(list) == len(b) && (len(list) == 0 || &list[0] == &b[0])
}

func (p *MovieGluProvider) emitShowingNode(node map[string]any, start, formatLabel string, date time.Time, eventSourceID, venueSourceID, venueName string, acc *accumulator) {
	startsAt := p.parseShowtime(start, date)
	if startsAt == nil {
		return
	}
	label := parse.FirstNonBlank(formatLabel, "General")
	acc.addShowtime(core.ScrapedShowtime{
		SourceID: fmt.Sprintf("%s|%s|%s|%s|%s", p.Source(), eventSourceID, venueSourceID,
			startsAt.UTC().Format(time.RFC3339), label),
		EventSourceID: eventSourceID,
		VenueSourceID: venueSourceID,
		VenueName:     venueName,
		StartsAt:      *startsAt,
		Format:        resolveFormat(label),
		BookingURL:    parse.FirstText(node, "booking_url", "booking_link", "url"),
	})
}

func (p *MovieGluProvider) emitShowing(start, formatLabel string, date time.Time, eventSourceID, venueSourceID, venueName string, acc *accumulator) {
	p.emitShowingNode(map[string]any{}, start, formatLabel, date, eventSourceID, venueSourceID, venueName, acc)
}

// parseShowtime accepts full instants and bare clock strings, the latter
// anchored on the requested date.
func (p *MovieGluProvider) parseShowtime(value string, date time.Time) *time.Time {
	if t := parse.ParseInstant(value, p.loc); t != nil {
		return t
	}
	return parse.ParseClockTime(value, date, p.loc)
}

func extractPosterURL(filmNode map[string]any) string {
	if direct := parse.FirstText(filmNode, "film_image", "poster_url", "image_url"); direct != "" {
		return direct
	}
	return findFirstTextByField(filmNode["images"], "film_image", 0)
}

func findFirstTextByField(node any, field string, depth int) string {
	if node == nil || depth > 8 {
		return ""
	}
	switch val := node.(type) {
	case map[string]any:
		if direct := parse.TextValue(val[field]); direct != "" {
			return direct
		}
		for _, child := range val {
			if found := findFirstTextByField(child, field, depth+1); found != "" {
				return found
			}
		}
	case []any:
		for _, item := range val {
			if found := findFirstTextByField(item, field, depth+1); found != "" {
				return found
			}
		}
	}
	return ""
}

func (p *MovieGluProvider) requestJSON(ctx context.Context, headers movieGluHeaders, path string, query map[string]string, rateLimited *bool) any {
	reqURL := buildVendorURL(p.cfg.BaseURL, path, query)
	body, status, err := p.fetcher.Get(ctx, reqURL, map[string]string{
		"Accept":          "application/json",
		"client":          headers.client,
		"x-api-key":       headers.apiKey,
		"authorization":   headers.authorization,
		"territory":       headers.territory,
		"api-version":     headers.apiVersion,
		"geolocation":     headers.geolocation,
		"device-datetime": p.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		p.logger.Warn("movieglu_request_failed", "url", reqURL, "error", err)
		return nil
	}
	if status == http.StatusNoContent {
		return nil
	}
	if status == http.StatusTooManyRequests {
		*rateLimited = true
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		p.logger.Warn("movieglu_http_status", "url", reqURL, "status", status, "mode", headers.mode)
		return nil
	}
	if len(body) == 0 {
		return nil
	}
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		p.logger.Warn("movieglu_decode_failed", "url", reqURL, "error", err)
		return nil
	}
	return payload
}

func buildVendorURL(baseURL, path string, query map[string]string) string {
	base := strings.TrimSuffix(baseURL, "/")
	full := base + "/" + strings.TrimPrefix(path, "/")
	if len(query) == 0 {
		return full
	}
	values := url.Values{}
	for key, value := range query {
		if value == "" {
			continue
		}
		values.Set(key, value)
	}
	if encoded := values.Encode(); encoded != "" {
		return full + "?" + encoded
	}
	return full
}
