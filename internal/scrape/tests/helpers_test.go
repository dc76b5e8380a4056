package tests

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"zingo/backend/internal/models"
)

type fakeResponse struct {
	body   []byte
	status int
	err    error
}

type fakeFetcher struct {
	responses map[string]fakeResponse
	calls     []string
}

func (f *fakeFetcher) Get(_ context.Context, rawURL string, _ map[string]string) ([]byte, int, error) {
	if f == nil {
		return nil, 0, fmt.Errorf("fetcher is nil")
	}
	f.calls = append(f.calls, rawURL)
	if resp, ok := f.responses[rawURL]; ok {
		return resp.body, resp.status, resp.err
	}
	keys := make([]string, 0, len(f.responses))
	for k := range f.responses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return nil, 404, fmt.Errorf("no fake response for %s; available: %v", rawURL, keys)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(ioDiscard{}, nil))
}

type ioDiscard struct{}

func (ioDiscard) Write(p []byte) (int, error) { return len(p), nil }

// fakeStore is an in-memory ingest.Store with the same natural-key lookup
// semantics as the SQL repository.
type fakeStore struct {
	cities    []*models.City
	venues    []*models.Venue
	events    []*models.Event
	showtimes []*models.Showtime
	nextID    int64
}

func (s *fakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) FindCityByPostalCode(_ context.Context, postalCode string) (*models.City, error) {
	for _, c := range s.cities {
		if c.PostalCode == postalCode {
			return c, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindCityByName(_ context.Context, name string) (*models.City, error) {
	for _, c := range s.cities {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) SaveCity(_ context.Context, city *models.City) (*models.City, error) {
	if city.ID == 0 {
		city.ID = s.id()
		s.cities = append(s.cities, city)
	}
	return city, nil
}

func (s *fakeStore) FindVenueBySource(_ context.Context, source, sourceID string) (*models.Venue, error) {
	for _, v := range s.venues {
		if v.Source == source && v.SourceID == sourceID {
			return v, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindVenueByCityAndName(_ context.Context, cityID int64, name string) (*models.Venue, error) {
	for _, v := range s.venues {
		if v.CityID == cityID && strings.EqualFold(v.Name, name) {
			return v, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) SaveVenue(_ context.Context, venue *models.Venue) (*models.Venue, error) {
	if venue.ID == 0 {
		venue.ID = s.id()
		s.venues = append(s.venues, venue)
	}
	return venue, nil
}

func (s *fakeStore) FindEventBySource(_ context.Context, source, sourceID string) (*models.Event, error) {
	for _, e := range s.events {
		if e.Source == source && e.SourceID == sourceID {
			return e, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindEventByTitleAndType(_ context.Context, title string, eventType models.EventType) (*models.Event, error) {
	for _, e := range s.events {
		if strings.EqualFold(e.Title, title) && e.Type == eventType {
			return e, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) SaveEvent(_ context.Context, event *models.Event) (*models.Event, error) {
	if event.ID == 0 {
		event.ID = s.id()
		s.events = append(s.events, event)
	}
	return event, nil
}

func (s *fakeStore) FindShowtimeBySource(_ context.Context, source, sourceID string) (*models.Showtime, error) {
	for _, st := range s.showtimes {
		if st.Source == source && st.SourceID == sourceID {
			return st, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindShowtimeBySlot(_ context.Context, eventID, venueID int64, startsAt time.Time, format models.ShowFormat) (*models.Showtime, error) {
	for _, st := range s.showtimes {
		if st.EventID == eventID && st.VenueID == venueID && st.StartsAt.Equal(startsAt) && st.Format == format {
			return st, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) SaveShowtime(_ context.Context, showtime *models.Showtime) (*models.Showtime, error) {
	if showtime.ID == 0 {
		showtime.ID = s.id()
		s.showtimes = append(s.showtimes, showtime)
	}
	return showtime, nil
}
