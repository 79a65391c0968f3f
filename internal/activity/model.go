package activity

import (
	"context"
	"encoding/json"
	"time"
)

// Type enumerates the ledger-affecting events kept in the activity log.
type Type string

const (
	TypeInvite             Type = "invite"
	TypeTransactionAdded   Type = "transaction_added"
	TypeTransactionEdited  Type = "transaction_edited"
	TypeTransactionDeleted Type = "transaction_deleted"
	TypeMemberRemoved      Type = "member_removed"
	TypeMemberLeft         Type = "member_left"
	TypeSettled            Type = "settled"
)

// Event is an immutable record of something that changed a group's
// ledger or membership. Created once, never mutated.
type Event struct {
	ID        int64           `json:"id"`
	GroupID   int64           `json:"group_id"`
	Type      Type            `json:"type"`
	ActorID   int64           `json:"actor_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Recorder appends events to the activity log. Services depend on this
// interface so tests can substitute a recording stub.
type Recorder interface {
	Record(ctx context.Context, groupID int64, typ Type, actorID int64, payload map[string]interface{})
}
