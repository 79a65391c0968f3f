package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Repository handles activity event persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new activity repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert appends a new event to the log
func (r *Repository) Insert(ctx context.Context, groupID int64, typ Type, actorID int64, payload json.RawMessage) (*Event, error) {
	query := `
		INSERT INTO activity_events (group_id, type, actor_id, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, group_id, type, actor_id, payload, created_at
	`

	event := &Event{}
	err := r.db.QueryRowContext(ctx, query, groupID, typ, actorID, payload).Scan(
		&event.ID,
		&event.GroupID,
		&event.Type,
		&event.ActorID,
		&event.Payload,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert activity event: %w", err)
	}

	return event, nil
}

// ListByGroup retrieves the most recent events for a group, newest first
func (r *Repository) ListByGroup(ctx context.Context, groupID int64, limit int) ([]*Event, error) {
	query := `
		SELECT id, group_id, type, actor_id, payload, created_at
		FROM activity_events
		WHERE group_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event := &Event{}
		if err := rows.Scan(
			&event.ID,
			&event.GroupID,
			&event.Type,
			&event.ActorID,
			&event.Payload,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity event: %w", err)
		}
		events = append(events, event)
	}

	return events, nil
}
