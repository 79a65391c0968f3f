package user

import "time"

// User represents a registered account. Authentication and session
// issuance live outside this service; accounts exist here so that group
// invites can be resolved from an email address to a user.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
