package notification

import "time"

// Notification represents a stored notification for a user
type Notification struct {
	ID                int64     `json:"id"`
	RecipientID       int64     `json:"recipient_id"`
	Type              Type      `json:"type"`
	Title             string    `json:"title"`
	Message           string    `json:"message"`
	IsRead            bool      `json:"is_read"`
	RelatedEntityType *string   `json:"related_entity_type,omitempty"` // e.g. "GROUP", "TRANSACTION"
	RelatedEntityID   *int64    `json:"related_entity_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Type represents the type of notification
type Type string

const (
	TypeGroupInvite      Type = "GROUP_INVITE"
	TypeTransactionAdded Type = "TRANSACTION_ADDED"
	TypeMemberRemoved    Type = "MEMBER_REMOVED"
	TypeSettled          Type = "SETTLED"
)
