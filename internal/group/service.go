package group

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"budgetbook/internal/activity"
	"budgetbook/internal/notification"
	"budgetbook/internal/user"
)

// Common errors
var (
	ErrGroupNotFound       = errors.New("group not found")
	ErrMemberNotFound      = errors.New("member not found")
	ErrMemberAlreadyExists = errors.New("email is already a member of this group")
	ErrNotAdmin            = errors.New("only the group admin can perform this action")
	ErrNotMember           = errors.New("not a member of this group")
	ErrCannotRemoveAdmin   = errors.New("the group admin cannot be removed")
	ErrNotInvited          = errors.New("no pending invite for this group")
	ErrNameRequired        = errors.New("group name is required")
	ErrEmailRequired       = errors.New("invitee email is required")
	ErrMemberHasHistory    = errors.New("member still has ledger entries; settle and remove their transactions first")
)

// UserDirectory resolves email addresses to registered accounts.
// Implemented by the user service.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// Service handles group business logic
type Service struct {
	store    Store
	users    UserDirectory
	activity activity.Recorder
	notifier notification.Notifier
}

// NewService creates a new group service
func NewService(store Store, users UserDirectory, recorder activity.Recorder, notifier notification.Notifier) *Service {
	return &Service{
		store:    store,
		users:    users,
		activity: recorder,
		notifier: notifier,
	}
}

// Create creates a new group with the caller as its accepted admin
func (s *Service) Create(ctx context.Context, callerID int64, callerEmail string, req *CreateGroupRequest) (*Group, *Member, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, nil, ErrNameRequired
	}

	return s.store.CreateGroup(ctx, req, callerID, strings.ToLower(callerEmail))
}

// GetByIDWithMembers retrieves a group and its members; the caller must
// belong to the group
func (s *Service) GetByIDWithMembers(ctx context.Context, id, callerUserID int64) (*Group, []*Member, error) {
	group, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if group == nil {
		return nil, nil, ErrGroupNotFound
	}

	members, err := s.store.GetMembers(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if findByUserID(members, callerUserID) == nil {
		return nil, nil, ErrNotMember
	}

	return group, members, nil
}

// ListByUser retrieves all groups for a user
func (s *Service) ListByUser(ctx context.Context, userID int64, page, perPage int) ([]*Group, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.store.ListGroupsByUser(ctx, userID, perPage, offset)
}

// Update applies a partial update; admin only
func (s *Service) Update(ctx context.Context, id, callerUserID int64, req *UpdateGroupRequest) (*Group, error) {
	if err := s.requireAdmin(ctx, id, callerUserID); err != nil {
		return nil, err
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, ErrNameRequired
	}

	return s.store.UpdateGroup(ctx, id, req)
}

// Invite adds a pending member by email; admin only. The email is
// resolved to an existing account when one matches, otherwise the member
// stays unlinked until the invited person registers and accepts.
func (s *Service) Invite(ctx context.Context, groupID, callerUserID int64, email string) (*Member, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrEmailRequired
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}

	if err := s.requireAdmin(ctx, groupID, callerUserID); err != nil {
		return nil, err
	}

	existing, err := s.store.GetMemberByEmail(ctx, groupID, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrMemberAlreadyExists
	}

	var userID *int64
	invited, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if invited != nil {
		userID = &invited.ID
	}

	member, err := s.store.AddMember(ctx, groupID, email, userID, uuid.NewString())
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, groupID, activity.TypeInvite, callerUserID, map[string]interface{}{
		"email":     member.Email,
		"member_id": member.ID,
	})

	if invited != nil {
		relatedType := "GROUP"
		s.notifier.Notify(ctx, &notification.Message{
			RecipientID:       invited.ID,
			Type:              notification.TypeGroupInvite,
			Title:             "Group invitation",
			Message:           fmt.Sprintf("You have been invited to join %s", group.Name),
			RelatedEntityType: &relatedType,
			RelatedEntityID:   &group.ID,
		})
	}

	return member, nil
}

// AcceptInvite transitions the caller's pending membership to accepted.
// Idempotent: re-accepting returns the member unchanged.
func (s *Service) AcceptInvite(ctx context.Context, groupID, callerUserID int64, callerEmail string) (*Member, error) {
	return s.store.AcceptInvite(ctx, groupID, callerEmail, callerUserID)
}

// RejectInvite removes the caller's pending membership
func (s *Service) RejectInvite(ctx context.Context, groupID int64, callerEmail string) error {
	return s.store.RejectInvite(ctx, groupID, callerEmail)
}

// RemoveMember removes a member; admin only, and the admin cannot be the
// target
func (s *Service) RemoveMember(ctx context.Context, groupID, callerUserID, memberID int64) error {
	removed, err := s.store.RemoveMember(ctx, groupID, callerUserID, memberID)
	if err != nil {
		return err
	}

	s.activity.Record(ctx, groupID, activity.TypeMemberRemoved, callerUserID, map[string]interface{}{
		"member_id": removed.ID,
		"email":     removed.Email,
	})

	if removed.UserID != nil {
		relatedType := "GROUP"
		s.notifier.Notify(ctx, &notification.Message{
			RecipientID:       *removed.UserID,
			Type:              notification.TypeMemberRemoved,
			Title:             "Removed from group",
			Message:           "You have been removed from a group",
			RelatedEntityType: &relatedType,
			RelatedEntityID:   &groupID,
		})
	}

	return nil
}

// Leave removes the caller from the group. The sole remaining member
// leaving deletes the group; a departing admin hands the role over first.
func (s *Service) Leave(ctx context.Context, groupID, callerUserID int64) (*LeaveResult, error) {
	result, err := s.store.LeaveGroup(ctx, groupID, callerUserID)
	if err != nil {
		return nil, err
	}

	if !result.GroupDeleted {
		payload := map[string]interface{}{
			"member_id": result.Departed.ID,
			"email":     result.Departed.Email,
		}
		if result.NewAdmin != nil {
			payload["new_admin_member_id"] = result.NewAdmin.ID
		}
		s.activity.Record(ctx, groupID, activity.TypeMemberLeft, callerUserID, payload)
	}

	return result, nil
}

// GetMembers retrieves the members of a group the caller belongs to
func (s *Service) GetMembers(ctx context.Context, groupID, callerUserID int64) ([]*Member, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}

	members, err := s.store.GetMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if findByUserID(members, callerUserID) == nil {
		return nil, ErrNotMember
	}

	return members, nil
}

// IsMember reports whether the user has a membership row in the group
func (s *Service) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	member, err := s.store.GetMemberByUserID(ctx, groupID, userID)
	if err != nil {
		return false, err
	}
	return member != nil, nil
}

// AcceptedMember returns the caller's accepted membership, or ErrNotMember
func (s *Service) AcceptedMember(ctx context.Context, groupID, userID int64) (*Member, error) {
	member, err := s.store.GetMemberByUserID(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil || !member.IsAccepted() {
		return nil, ErrNotMember
	}
	return member, nil
}

// Members exposes the stored member order for the balance and settlement
// computations
func (s *Service) Members(ctx context.Context, groupID int64) ([]*Member, error) {
	return s.store.GetMembers(ctx, groupID)
}

func (s *Service) requireAdmin(ctx context.Context, groupID, callerUserID int64) error {
	member, err := s.store.GetMemberByUserID(ctx, groupID, callerUserID)
	if err != nil {
		return err
	}
	if member == nil || !member.IsAccepted() {
		return ErrNotMember
	}
	if !member.IsAdmin() {
		return ErrNotAdmin
	}
	return nil
}

func findByUserID(members []*Member, userID int64) *Member {
	for _, m := range members {
		if m.UserID != nil && *m.UserID == userID {
			return m
		}
	}
	return nil
}
