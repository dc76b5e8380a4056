package models

import "time"

// EventType classifies a canonical event.
type EventType string

const (
	EventTypeMovie EventType = "MOVIE"
	EventTypeCafe  EventType = "CAFE"
	EventTypeTrek  EventType = "TREK"
	EventTypeOther EventType = "OTHER"
)

// Valid handles internal valid behavior.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeMovie, EventTypeCafe, EventTypeTrek, EventTypeOther:
		return true
	default:
		return false
	}
}

// ShowFormat is the screening format of a showtime.
type ShowFormat string

const (
	ShowFormatGeneral ShowFormat = "GENERAL"
	ShowFormatTwoD    ShowFormat = "TWO_D"
	ShowFormatThreeD  ShowFormat = "THREE_D"
	ShowFormatIMAX    ShowFormat = "IMAX"
)

// City represents city.
type City struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	PostalCode string    `json:"postalCode,omitempty"`
	TimeZone   string    `json:"timeZone,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Venue represents venue.
type Venue struct {
	ID         int64     `json:"id"`
	CityID     int64     `json:"cityId"`
	Name       string    `json:"name"`
	Address    string    `json:"address,omitempty"`
	PostalCode string    `json:"postalCode,omitempty"`
	Source     string    `json:"source,omitempty"`
	SourceID   string    `json:"sourceId,omitempty"`
	SourceURL  string    `json:"sourceUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Event represents event.
type Event struct {
	ID        int64     `json:"id"`
	Type      EventType `json:"type"`
	Title     string    `json:"title"`
	PosterURL string    `json:"posterUrl,omitempty"`
	Source    string    `json:"source,omitempty"`
	SourceID  string    `json:"sourceId,omitempty"`
	SourceURL string    `json:"sourceUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Showtime represents showtime.
type Showtime struct {
	ID        int64      `json:"id"`
	EventID   int64      `json:"eventId"`
	VenueID   int64      `json:"venueId"`
	StartsAt  time.Time  `json:"startsAt"`
	Format    ShowFormat `json:"format"`
	Source    string     `json:"source,omitempty"`
	SourceID  string     `json:"sourceId,omitempty"`
	SourceURL string     `json:"sourceUrl,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
