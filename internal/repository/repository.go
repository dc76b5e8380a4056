package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"zingo/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the canonical tables and natural-key indexes. The
// partial unique indexes on (source, source_id) make source-keyed upserts
// race-free; name-keyed rows are only reconciled best-effort.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS cities (
	id bigserial PRIMARY KEY,
	name text NOT NULL,
	postal_code text,
	time_zone text,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_cities_name_lower ON cities (lower(name))`,
		`CREATE INDEX IF NOT EXISTS idx_cities_postal_code ON cities (postal_code) WHERE postal_code IS NOT NULL`,
		`CREATE TABLE IF NOT EXISTS venues (
	id bigserial PRIMARY KEY,
	city_id bigint NOT NULL REFERENCES cities(id),
	name text NOT NULL,
	address text,
	postal_code text,
	source text,
	source_id text,
	source_url text,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_venues_source ON venues (source, source_id)
	WHERE source IS NOT NULL AND source_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_venues_city_name ON venues (city_id, lower(name))`,
		`CREATE TABLE IF NOT EXISTS events (
	id bigserial PRIMARY KEY,
	type text NOT NULL,
	title text NOT NULL,
	poster_url text,
	source text,
	source_id text,
	source_url text,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_events_source ON events (source, source_id)
	WHERE source IS NOT NULL AND source_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_events_title_type ON events (lower(title), type)`,
		`CREATE TABLE IF NOT EXISTS showtimes (
	id bigserial PRIMARY KEY,
	event_id bigint NOT NULL REFERENCES events(id),
	venue_id bigint NOT NULL REFERENCES venues(id),
	starts_at timestamptz NOT NULL,
	format text NOT NULL,
	source text,
	source_id text,
	source_url text,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_showtimes_source ON showtimes (source, source_id)
	WHERE source IS NOT NULL AND source_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_showtimes_slot ON showtimes (event_id, venue_id, starts_at, format)`,
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const cityColumns = `id, name, postal_code, time_zone, created_at, updated_at`

func (r *Repository) FindCityByPostalCode(ctx context.Context, postalCode string) (*models.City, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+cityColumns+` FROM cities WHERE postal_code = $1 ORDER BY id LIMIT 1`, postalCode)
	return scanCity(row)
}

func (r *Repository) FindCityByName(ctx context.Context, name string) (*models.City, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+cityColumns+` FROM cities WHERE lower(name) = lower($1) ORDER BY id LIMIT 1`, name)
	return scanCity(row)
}

func (r *Repository) SaveCity(ctx context.Context, city *models.City) (*models.City, error) {
	if city.ID == 0 {
		row := r.pool.QueryRow(ctx, `
INSERT INTO cities (name, postal_code, time_zone)
VALUES ($1, $2, $3)
RETURNING `+cityColumns+`;`,
			city.Name, nullString(city.PostalCode), nullString(city.TimeZone))
		return scanCity(row)
	}
	row := r.pool.QueryRow(ctx, `
UPDATE cities
SET name = $2, postal_code = $3, time_zone = $4, updated_at = now()
WHERE id = $1
RETURNING `+cityColumns+`;`,
		city.ID, city.Name, nullString(city.PostalCode), nullString(city.TimeZone))
	return scanCity(row)
}

const venueColumns = `id, city_id, name, address, postal_code, source, source_id, source_url, created_at, updated_at`

func (r *Repository) FindVenueBySource(ctx context.Context, source, sourceID string) (*models.Venue, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE source = $1 AND source_id = $2 LIMIT 1`, source, sourceID)
	return scanVenue(row)
}

func (r *Repository) FindVenueByCityAndName(ctx context.Context, cityID int64, name string) (*models.Venue, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE city_id = $1 AND lower(name) = lower($2) ORDER BY id LIMIT 1`,
		cityID, name)
	return scanVenue(row)
}

func (r *Repository) SaveVenue(ctx context.Context, venue *models.Venue) (*models.Venue, error) {
	if venue.ID == 0 && venue.Source != "" && venue.SourceID != "" {
		row := r.pool.QueryRow(ctx, `
INSERT INTO venues (city_id, name, address, postal_code, source, source_id, source_url)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (source, source_id) WHERE source IS NOT NULL AND source_id IS NOT NULL DO UPDATE SET
	city_id = EXCLUDED.city_id,
	name = EXCLUDED.name,
	address = EXCLUDED.address,
	postal_code = EXCLUDED.postal_code,
	source_url = EXCLUDED.source_url,
	updated_at = now()
RETURNING `+venueColumns+`;`,
			venue.CityID, venue.Name, nullString(venue.Address), nullString(venue.PostalCode),
			venue.Source, venue.SourceID, nullString(venue.SourceURL))
		return scanVenue(row)
	}
	if venue.ID == 0 {
		row := r.pool.QueryRow(ctx, `
INSERT INTO venues (city_id, name, address, postal_code, source, source_id, source_url)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+venueColumns+`;`,
			venue.CityID, venue.Name, nullString(venue.Address), nullString(venue.PostalCode),
			nullString(venue.Source), nullString(venue.SourceID), nullString(venue.SourceURL))
		return scanVenue(row)
	}
	row := r.pool.QueryRow(ctx, `
UPDATE venues
SET city_id = $2, name = $3, address = $4, postal_code = $5, source = $6, source_id = $7, source_url = $8,
	updated_at = now()
WHERE id = $1
RETURNING `+venueColumns+`;`,
		venue.ID, venue.CityID, venue.Name, nullString(venue.Address), nullString(venue.PostalCode),
		nullString(venue.Source), nullString(venue.SourceID), nullString(venue.SourceURL))
	return scanVenue(row)
}

func (r *Repository) ListVenuesByCity(ctx context.Context, cityID int64) ([]models.Venue, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE city_id = $1 ORDER BY name`, cityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Venue, 0)
	for rows.Next() {
		venue, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *venue)
	}
	return out, rows.Err()
}

func (r *Repository) FindVenuesByIDs(ctx context.Context, ids []int64) ([]models.Venue, error) {
	if len(ids) == 0 {
		return []models.Venue{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Venue, 0, len(ids))
	for rows.Next() {
		venue, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *venue)
	}
	return out, rows.Err()
}

const eventColumns = `id, type, title, poster_url, source, source_id, source_url, created_at, updated_at`

func (r *Repository) FindEventBySource(ctx context.Context, source, sourceID string) (*models.Event, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE source = $1 AND source_id = $2 LIMIT 1`, source, sourceID)
	return scanEvent(row)
}

func (r *Repository) FindEventByTitleAndType(ctx context.Context, title string, eventType models.EventType) (*models.Event, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE lower(title) = lower($1) AND type = $2 ORDER BY id LIMIT 1`,
		title, string(eventType))
	return scanEvent(row)
}

func (r *Repository) SaveEvent(ctx context.Context, event *models.Event) (*models.Event, error) {
	if event.ID == 0 && event.Source != "" && event.SourceID != "" {
		row := r.pool.QueryRow(ctx, `
INSERT INTO events (type, title, poster_url, source, source_id, source_url)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (source, source_id) WHERE source IS NOT NULL AND source_id IS NOT NULL DO UPDATE SET
	type = EXCLUDED.type,
	title = EXCLUDED.title,
	poster_url = EXCLUDED.poster_url,
	source_url = EXCLUDED.source_url,
	updated_at = now()
RETURNING `+eventColumns+`;`,
			string(event.Type), event.Title, nullString(event.PosterURL),
			event.Source, event.SourceID, nullString(event.SourceURL))
		return scanEvent(row)
	}
	if event.ID == 0 {
		row := r.pool.QueryRow(ctx, `
INSERT INTO events (type, title, poster_url, source, source_id, source_url)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+eventColumns+`;`,
			string(event.Type), event.Title, nullString(event.PosterURL),
			nullString(event.Source), nullString(event.SourceID), nullString(event.SourceURL))
		return scanEvent(row)
	}
	row := r.pool.QueryRow(ctx, `
UPDATE events
SET type = $2, title = $3, poster_url = $4, source = $5, source_id = $6, source_url = $7, updated_at = now()
WHERE id = $1
RETURNING `+eventColumns+`;`,
		event.ID, string(event.Type), event.Title, nullString(event.PosterURL),
		nullString(event.Source), nullString(event.SourceID), nullString(event.SourceURL))
	return scanEvent(row)
}

func (r *Repository) ListEventsByType(ctx context.Context, eventType models.EventType, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE type = $1 ORDER BY updated_at DESC LIMIT $2`,
		string(eventType), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *event)
	}
	return out, rows.Err()
}

func (r *Repository) FindEventsByIDs(ctx context.Context, ids []int64) ([]models.Event, error) {
	if len(ids) == 0 {
		return []models.Event{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Event, 0, len(ids))
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *event)
	}
	return out, rows.Err()
}

const showtimeColumns = `id, event_id, venue_id, starts_at, format, source, source_id, source_url, created_at, updated_at`

func (r *Repository) FindShowtimeBySource(ctx context.Context, source, sourceID string) (*models.Showtime, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+showtimeColumns+` FROM showtimes WHERE source = $1 AND source_id = $2 LIMIT 1`, source, sourceID)
	return scanShowtime(row)
}

func (r *Repository) FindShowtimeBySlot(ctx context.Context, eventID, venueID int64, startsAt time.Time, format models.ShowFormat) (*models.Showtime, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+showtimeColumns+`
FROM showtimes
WHERE event_id = $1 AND venue_id = $2 AND starts_at = $3 AND format = $4
ORDER BY id LIMIT 1`,
		eventID, venueID, startsAt, string(format))
	return scanShowtime(row)
}

func (r *Repository) SaveShowtime(ctx context.Context, showtime *models.Showtime) (*models.Showtime, error) {
	if showtime.ID == 0 && showtime.Source != "" && showtime.SourceID != "" {
		row := r.pool.QueryRow(ctx, `
INSERT INTO showtimes (event_id, venue_id, starts_at, format, source, source_id, source_url)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (source, source_id) WHERE source IS NOT NULL AND source_id IS NOT NULL DO UPDATE SET
	event_id = EXCLUDED.event_id,
	venue_id = EXCLUDED.venue_id,
	starts_at = EXCLUDED.starts_at,
	format = EXCLUDED.format,
	source_url = EXCLUDED.source_url,
	updated_at = now()
RETURNING `+showtimeColumns+`;`,
			showtime.EventID, showtime.VenueID, showtime.StartsAt, string(showtime.Format),
			showtime.Source, showtime.SourceID, nullString(showtime.SourceURL))
		return scanShowtime(row)
	}
	if showtime.ID == 0 {
		row := r.pool.QueryRow(ctx, `
INSERT INTO showtimes (event_id, venue_id, starts_at, format, source, source_id, source_url)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+showtimeColumns+`;`,
			showtime.EventID, showtime.VenueID, showtime.StartsAt, string(showtime.Format),
			nullString(showtime.Source), nullString(showtime.SourceID), nullString(showtime.SourceURL))
		return scanShowtime(row)
	}
	row := r.pool.QueryRow(ctx, `
UPDATE showtimes
SET event_id = $2, venue_id = $3, starts_at = $4, format = $5, source = $6, source_id = $7, source_url = $8,
	updated_at = now()
WHERE id = $1
RETURNING `+showtimeColumns+`;`,
		showtime.ID, showtime.EventID, showtime.VenueID, showtime.StartsAt, string(showtime.Format),
		nullString(showtime.Source), nullString(showtime.SourceID), nullString(showtime.SourceURL))
	return scanShowtime(row)
}

func (r *Repository) ListShowtimesByCity(ctx context.Context, cityID int64, from, to time.Time) ([]models.Showtime, error) {
	rows, err := r.pool.Query(ctx, `
SELECT s.id, s.event_id, s.venue_id, s.starts_at, s.format, s.source, s.source_id, s.source_url, s.created_at, s.updated_at
FROM showtimes s
JOIN venues v ON v.id = s.venue_id
WHERE v.city_id = $1 AND s.starts_at >= $2 AND s.starts_at < $3
ORDER BY s.starts_at`,
		cityID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Showtime, 0)
	for rows.Next() {
		showtime, err := scanShowtime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *showtime)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCity(row rowScanner) (*models.City, error) {
	var out models.City
	var postalCode, timeZone sql.NullString
	err := row.Scan(&out.ID, &out.Name, &postalCode, &timeZone, &out.CreatedAt, &out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out.PostalCode = postalCode.String
	out.TimeZone = timeZone.String
	return &out, nil
}

func scanVenue(row rowScanner) (*models.Venue, error) {
	var out models.Venue
	var address, postalCode, source, sourceID, sourceURL sql.NullString
	err := row.Scan(&out.ID, &out.CityID, &out.Name, &address, &postalCode, &source, &sourceID, &sourceURL, &out.CreatedAt, &out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out.Address = address.String
	out.PostalCode = postalCode.String
	out.Source = source.String
	out.SourceID = sourceID.String
	out.SourceURL = sourceURL.String
	return &out, nil
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var out models.Event
	var eventType string
	var posterURL, source, sourceID, sourceURL sql.NullString
	err := row.Scan(&out.ID, &eventType, &out.Title, &posterURL, &source, &sourceID, &sourceURL, &out.CreatedAt, &out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out.Type = models.EventType(eventType)
	out.PosterURL = posterURL.String
	out.Source = source.String
	out.SourceID = sourceID.String
	out.SourceURL = sourceURL.String
	return &out, nil
}

func scanShowtime(row rowScanner) (*models.Showtime, error) {
	var out models.Showtime
	var format string
	var source, sourceID, sourceURL sql.NullString
	err := row.Scan(&out.ID, &out.EventID, &out.VenueID, &out.StartsAt, &format, &source, &sourceID, &sourceURL, &out.CreatedAt, &out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out.Format = models.ShowFormat(format)
	out.Source = source.String
	out.SourceID = sourceID.String
	out.SourceURL = sourceURL.String
	return &out, nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
