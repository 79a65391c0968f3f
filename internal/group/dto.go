package group

// CreateGroupRequest represents the request to create a new group
type CreateGroupRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=100"`
	Description *string `json:"description,omitempty"`
}

// UpdateGroupRequest represents the request to update a group
type UpdateGroupRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description,omitempty"`
}

// InviteMemberRequest represents the request to invite someone by email
type InviteMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// GroupResponse represents the response for a group
type GroupResponse struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Description *string           `json:"description,omitempty"`
	CreatedBy   int64             `json:"created_by"`
	CreatedAt   string            `json:"created_at"`
	Members     []*MemberResponse `json:"members,omitempty"`
}

// MemberResponse represents a member in a group response
type MemberResponse struct {
	ID        int64        `json:"id"`
	UserID    *int64       `json:"user_id,omitempty"`
	Username  string       `json:"username,omitempty"`
	Email     string       `json:"email"`
	Status    MemberStatus `json:"status"`
	Role      MemberRole   `json:"role"`
	CreatedAt string       `json:"created_at"`
}

// LeaveResponse represents the outcome of leaving a group
type LeaveResponse struct {
	GroupDeleted bool            `json:"group_deleted"`
	NewAdmin     *MemberResponse `json:"new_admin,omitempty"`
}

// ToResponse converts a Group model to a GroupResponse DTO
func (g *Group) ToResponse() *GroupResponse {
	return &GroupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		CreatedBy:   g.CreatedBy,
		CreatedAt:   g.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ToResponse converts a Member model to a MemberResponse DTO
func (m *Member) ToResponse() *MemberResponse {
	return &MemberResponse{
		ID:        m.ID,
		UserID:    m.UserID,
		Username:  m.Username,
		Email:     m.Email,
		Status:    m.Status,
		Role:      m.Role,
		CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
