package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/partyevents/partyevents/internal/eventsource"
	"github.com/partyevents/partyevents/internal/models"
)

// PostgresEventRepository reads and writes party events and their
// participations. It acts as an eventsource.Source for the feed and as an
// eventsource.Writer for seeding.
type PostgresEventRepository struct {
	db *sql.DB
}

// NewPostgresEventRepository creates a new PostgreSQL event repository.
func NewPostgresEventRepository(db *sql.DB) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

const eventColumns = `
	id, title, description, city, address, latitude, longitude,
	starts_at, created_at, category, max_participants, is_private,
	requires_approval, organizer_id, image_url`

// Create inserts a new event. A random id is assigned when ev.ID is empty and
// the stored event is returned.
func (r *PostgresEventRepository) Create(ctx context.Context, ev models.Event) (models.Event, error) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.ExecContext(ctx, query,
		ev.ID,
		ev.Title,
		ev.Description,
		ev.Location.City,
		nullString(ev.Location.Address),
		ev.Location.Latitude,
		ev.Location.Longitude,
		ev.Date,
		ev.CreatedAt,
		ev.Category,
		ev.MaxParticipants,
		ev.IsPrivate,
		ev.RequiresApproval,
		nullString(ev.OrganizerID),
		nullString(ev.ImageURL),
	)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to insert event: %w", err)
	}

	return ev, nil
}

// CountEvents returns the number of stored events.
func (r *PostgresEventRepository) CountEvents(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

// List returns every event in insertion order.
func (r *PostgresEventRepository) List(ctx context.Context) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}

// ParticipantCounts returns the number of accepted participants for each of
// ids. Events without participants are absent from the result.
func (r *PostgresEventRepository) ParticipantCounts(ctx context.Context, ids []string) (models.ParticipantCounts, error) {
	counts := make(models.ParticipantCounts, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT event_id, COUNT(*)
		FROM participations
		WHERE event_id = ANY($1) AND status = 'accepted'
		GROUP BY event_id
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to count participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan participant count: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participant counts: %w", err)
	}

	return counts, nil
}

// Join records userID as an accepted participant of eventID.
func (r *PostgresEventRepository) Join(ctx context.Context, eventID, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO participations (event_id, user_id, status, created_at)
		VALUES ($1, $2, 'accepted', NOW())
		ON CONFLICT (event_id, user_id) DO UPDATE SET status = 'accepted'
	`, eventID, userID)
	if err != nil {
		return fmt.Errorf("failed to join event %s: %w", eventID, err)
	}
	return nil
}

// Name implements eventsource.Source.
func (r *PostgresEventRepository) Name() string {
	return "postgres"
}

// Snapshot implements eventsource.Source.
func (r *PostgresEventRepository) Snapshot(ctx context.Context) (eventsource.Dataset, error) {
	events, err := r.List(ctx)
	if err != nil {
		return eventsource.Dataset{}, err
	}

	ids := make([]string, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}

	counts, err := r.ParticipantCounts(ctx, ids)
	if err != nil {
		return eventsource.Dataset{}, err
	}

	return eventsource.Dataset{Events: events, Counts: counts}, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (models.Event, error) {
	var ev models.Event
	var address, organizerID, imageURL sql.NullString
	var lat, lon sql.NullFloat64

	err := row.Scan(
		&ev.ID,
		&ev.Title,
		&ev.Description,
		&ev.Location.City,
		&address,
		&lat,
		&lon,
		&ev.Date,
		&ev.CreatedAt,
		&ev.Category,
		&ev.MaxParticipants,
		&ev.IsPrivate,
		&ev.RequiresApproval,
		&organizerID,
		&imageURL,
	)
	if err != nil {
		return models.Event{}, err
	}

	ev.Location.Address = address.String
	ev.Location.Latitude = lat.Float64
	ev.Location.Longitude = lon.Float64
	ev.OrganizerID = organizerID.String
	ev.ImageURL = imageURL.String

	return ev, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
