package notification

import "context"

// Message is what producers hand to the notification sink.
type Message struct {
	RecipientID       int64   `json:"recipient_id"`
	Type              Type    `json:"type"`
	Title             string  `json:"title"`
	Message           string  `json:"message"`
	RelatedEntityType *string `json:"related_entity_type,omitempty"`
	RelatedEntityID   *int64  `json:"related_entity_id,omitempty"`
}

// Notifier is the fire-and-forget notification sink. Implementations must
// never fail the calling operation; delivery errors are logged and dropped.
type Notifier interface {
	Notify(ctx context.Context, msg *Message)
}

// Nop is a Notifier that discards everything. Used when no sink is
// configured and as a default in tests.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(ctx context.Context, msg *Message) {}
