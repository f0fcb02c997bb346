// api/internal/store/event_store.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/GasperHribersek/SOA-project-fintech/models"
)

// ErrEventNotFound is returned when an operation references an id that does
// not exist in the analytics_events table.
var ErrEventNotFound = errors.New("event not found")

const eventColumns = "id, event_type, user_id, session_id, page_path, metadata, ip_address, user_agent, timestamp"

type EventStore struct {
	db *sql.DB
}

// NewEventStore creates a new EventStore instance.
func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*models.AnalyticsEvent, error) {
	event := &models.AnalyticsEvent{}
	err := row.Scan(
		&event.ID,
		&event.EventType,
		&event.UserID,
		&event.SessionID,
		&event.PagePath,
		&event.Metadata,
		&event.IPAddress,
		&event.UserAgent,
		&event.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	return event, nil
}

// Create persists a single event and fills in the server-assigned id and
// timestamp on the passed record.
func (s *EventStore) Create(ctx context.Context, event *models.AnalyticsEvent) error {
	if event.Metadata == nil {
		event.Metadata = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO analytics_events (event_type, user_id, session_id, page_path, metadata, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, timestamp;
	`
	err := s.db.QueryRowContext(ctx, query,
		event.EventType,
		event.UserID,
		event.SessionID,
		event.PagePath,
		[]byte(event.Metadata),
		event.IPAddress,
		event.UserAgent,
	).Scan(&event.ID, &event.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert analytics event: %w", err)
	}

	return nil
}

// CreateBatch persists the given events as one transaction. Either every
// event is stored or none is; ids and timestamps are filled in on success.
func (s *EventStore) CreateBatch(ctx context.Context, events []*models.AnalyticsEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch insert: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO analytics_events (event_type, user_id, session_id, page_path, metadata, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, timestamp;
	`
	for _, event := range events {
		if event.Metadata == nil {
			event.Metadata = json.RawMessage(`{}`)
		}
		err := tx.QueryRowContext(ctx, query,
			event.EventType,
			event.UserID,
			event.SessionID,
			event.PagePath,
			[]byte(event.Metadata),
			event.IPAddress,
			event.UserAgent,
		).Scan(&event.ID, &event.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert analytics event in batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch insert: %w", err)
	}

	log.Printf("Successfully inserted %d analytics events.", len(events))
	return nil
}

// List returns the page of events matching the filter, newest first, along
// with the total number of matching rows independent of the page window.
func (s *EventStore) List(ctx context.Context, filter EventFilter, limit, offset int) ([]models.AnalyticsEvent, int, error) {
	where, args := filter.whereClause()

	var total int
	countQuery := "SELECT COUNT(*) FROM analytics_events" + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count analytics events: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM analytics_events%s ORDER BY timestamp DESC LIMIT $%d OFFSET $%d",
		eventColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query analytics events: %w", err)
	}
	defer rows.Close()

	events := []models.AnalyticsEvent{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan analytics event row: %w", err)
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row error during analytics events query: %w", err)
	}

	return events, total, nil
}

// Aggregate returns the total number of matching events plus a per-type
// breakdown. Both counts are computed over the same filtered set.
func (s *EventStore) Aggregate(ctx context.Context, filter EventFilter) (int, map[string]int, error) {
	where, args := filter.whereClause()

	var total int
	countQuery := "SELECT COUNT(*) FROM analytics_events" + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("failed to count analytics events: %w", err)
	}

	query := "SELECT event_type, COUNT(*) FROM analytics_events" + where + " GROUP BY event_type"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to query event type distribution: %w", err)
	}
	defer rows.Close()

	distribution := map[string]int{}
	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			return 0, nil, fmt.Errorf("failed to scan event type count: %w", err)
		}
		distribution[eventType] = count
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("row error during event type distribution query: %w", err)
	}

	return total, distribution, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// applyUpdate writes the non-nil fields of the update to the row with the
// given id and returns the updated record. Returns ErrEventNotFound when no
// row matches.
func applyUpdate(ctx context.Context, q queryRower, id int64, update models.EventUpdate) (*models.AnalyticsEvent, error) {
	var sets []string
	var args []interface{}

	appendSet := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.EventType != nil {
		appendSet("event_type", *update.EventType)
	}
	if update.UserID != nil {
		appendSet("user_id", *update.UserID)
	}
	if update.SessionID != nil {
		appendSet("session_id", *update.SessionID)
	}
	if update.PagePath != nil {
		appendSet("page_path", *update.PagePath)
	}
	if update.Metadata != nil {
		appendSet("metadata", []byte(*update.Metadata))
	}

	if len(sets) == 0 {
		// Nothing to change; return the row as-is so a no-op update still
		// resolves the id.
		query := fmt.Sprintf("SELECT %s FROM analytics_events WHERE id = $1", eventColumns)
		event, err := scanEvent(q.QueryRowContext(ctx, query, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrEventNotFound
			}
			return nil, fmt.Errorf("failed to load analytics event %d: %w", id, err)
		}
		return event, nil
	}

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE analytics_events SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), eventColumns,
	)

	event, err := scanEvent(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to update analytics event %d: %w", id, err)
	}
	return event, nil
}

// UpdateByID applies a partial update to one event.
func (s *EventStore) UpdateByID(ctx context.Context, id int64, update models.EventUpdate) (*models.AnalyticsEvent, error) {
	return applyUpdate(ctx, s.db, id, update)
}

// UpdateBatch applies a list of partial updates in one transaction. Entries
// whose id does not resolve are skipped; only the events actually updated are
// returned.
func (s *EventStore) UpdateBatch(ctx context.Context, updates []models.EventUpdate) ([]models.AnalyticsEvent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin batch update: %w", err)
	}
	defer tx.Rollback()

	updated := []models.AnalyticsEvent{}
	for _, update := range updates {
		if update.ID == nil {
			continue
		}
		event, err := applyUpdate(ctx, tx, *update.ID, update)
		if err != nil {
			if errors.Is(err, ErrEventNotFound) {
				continue
			}
			return nil, err
		}
		updated = append(updated, *event)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch update: %w", err)
	}

	return updated, nil
}

// DeleteByID removes one event. Returns ErrEventNotFound when no row matches.
func (s *EventStore) DeleteByID(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM analytics_events WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete analytics event %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result for event %d: %w", id, err)
	}
	if affected == 0 {
		return ErrEventNotFound
	}
	return nil
}

// DeleteByFilter removes every event matching the filter and reports how many
// rows matched just before the delete ran. Under concurrent writers the
// reported count can differ from the rows actually removed; that window is
// accepted.
func (s *EventStore) DeleteByFilter(ctx context.Context, filter EventFilter) (int, error) {
	where, args := filter.whereClause()

	var count int
	countQuery := "SELECT COUNT(*) FROM analytics_events" + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count analytics events for delete: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM analytics_events"+where, args...); err != nil {
		return 0, fmt.Errorf("failed to delete analytics events: %w", err)
	}

	return count, nil
}
