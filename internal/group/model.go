package group

import (
	"strings"
	"time"
)

// MemberStatus represents the lifecycle state of a group member
type MemberStatus string

const (
	MemberStatusPending  MemberStatus = "PENDING"
	MemberStatusAccepted MemberStatus = "ACCEPTED"
)

// MemberRole represents the role of a group member
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "ADMIN"
	MemberRoleMember MemberRole = "MEMBER"
)

// Group represents a cost-sharing group. A non-empty group always has
// exactly one admin.
type Group struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Member represents a participant in a group. A member may exist before
// the invited person has an account: UserID stays nil until the email
// matches a registered user.
type Member struct {
	ID          int64        `json:"id"`
	GroupID     int64        `json:"group_id"`
	UserID      *int64       `json:"user_id,omitempty"`
	Email       string       `json:"email"`
	Role        MemberRole   `json:"role"`
	Status      MemberStatus `json:"status"`
	InviteToken *string      `json:"-"`
	CreatedAt   time.Time    `json:"created_at"`

	// Populated from JOIN when an account exists
	Username string `json:"username,omitempty"`
}

// IsAdmin reports whether the member holds the admin role
func (m *Member) IsAdmin() bool {
	return m.Role == MemberRoleAdmin
}

// IsAccepted reports whether the member has accepted their invite. Only
// accepted members may act as payers or split participants.
func (m *Member) IsAccepted() bool {
	return m.Status == MemberStatusAccepted
}

// DisplayName returns the member's first name, falling back to the local
// part of their email when no account is linked yet.
func (m *Member) DisplayName() string {
	if fields := strings.Fields(m.Username); len(fields) > 0 {
		return fields[0]
	}
	if at := strings.Index(m.Email, "@"); at > 0 {
		return m.Email[:at]
	}
	return m.Email
}

// LeaveResult describes the outcome of a member leaving a group.
type LeaveResult struct {
	GroupDeleted bool    `json:"group_deleted"`
	Departed     *Member `json:"-"`
	NewAdmin     *Member `json:"new_admin,omitempty"`
}
