package activity

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Service handles activity log business logic
type Service struct {
	repo *Repository
}

// NewService creates a new activity service
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Record appends an event to the log. The log is an audit trail for the
// UI; a failed append is logged but never fails the operation that
// produced the event.
func (s *Service) Record(ctx context.Context, groupID int64, typ Type, actorID int64, payload map[string]interface{}) {
	if payload == nil {
		payload = map[string]interface{}{}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal activity payload", "type", typ, "group_id", groupID, "error", err)
		return
	}

	if _, err := s.repo.Insert(ctx, groupID, typ, actorID, raw); err != nil {
		slog.ErrorContext(ctx, "failed to record activity event", "type", typ, "group_id", groupID, "error", err)
	}
}

// ListByGroup retrieves the most recent events for a group
func (s *Service) ListByGroup(ctx context.Context, groupID int64, limit int) ([]*Event, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return s.repo.ListByGroup(ctx, groupID, limit)
}
