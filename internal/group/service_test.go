package group

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetbook/internal/activity"
	"budgetbook/internal/notification"
	"budgetbook/internal/user"
)

// fakeStore is an in-memory Store used by the service tests. It mirrors
// the repository's validation behavior without the SQL locking.
type fakeStore struct {
	nextGroupID  int64
	nextMemberID int64
	groups       map[int64]*Group
	members      map[int64][]*Member
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		groups:  make(map[int64]*Group),
		members: make(map[int64][]*Member),
	}
}

func (s *fakeStore) CreateGroup(ctx context.Context, req *CreateGroupRequest, creatorID int64, creatorEmail string) (*Group, *Member, error) {
	s.nextGroupID++
	g := &Group{ID: s.nextGroupID, Name: req.Name, Description: req.Description, CreatedBy: creatorID}
	s.groups[g.ID] = g

	s.nextMemberID++
	m := &Member{
		ID:      s.nextMemberID,
		GroupID: g.ID,
		UserID:  &creatorID,
		Email:   creatorEmail,
		Role:    MemberRoleAdmin,
		Status:  MemberStatusAccepted,
	}
	s.members[g.ID] = []*Member{m}
	return g, m, nil
}

func (s *fakeStore) GetGroup(ctx context.Context, id int64) (*Group, error) {
	return s.groups[id], nil
}

func (s *fakeStore) GetMembers(ctx context.Context, groupID int64) ([]*Member, error) {
	return s.members[groupID], nil
}

func (s *fakeStore) GetMemberByEmail(ctx context.Context, groupID int64, email string) (*Member, error) {
	for _, m := range s.members[groupID] {
		if strings.EqualFold(m.Email, email) {
			return m, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetMemberByUserID(ctx context.Context, groupID, userID int64) (*Member, error) {
	for _, m := range s.members[groupID] {
		if m.UserID != nil && *m.UserID == userID {
			return m, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListGroupsByUser(ctx context.Context, userID int64, limit, offset int) ([]*Group, int, error) {
	var groups []*Group
	for _, g := range s.groups {
		if m, _ := s.GetMemberByUserID(ctx, g.ID, userID); m != nil {
			groups = append(groups, g)
		}
	}
	return groups, len(groups), nil
}

func (s *fakeStore) UpdateGroup(ctx context.Context, id int64, req *UpdateGroupRequest) (*Group, error) {
	g := s.groups[id]
	if g == nil {
		return nil, ErrGroupNotFound
	}
	if req.Name != nil {
		g.Name = *req.Name
	}
	if req.Description != nil {
		g.Description = req.Description
	}
	return g, nil
}

func (s *fakeStore) AddMember(ctx context.Context, groupID int64, email string, userID *int64, inviteToken string) (*Member, error) {
	if existing, _ := s.GetMemberByEmail(ctx, groupID, email); existing != nil {
		return nil, ErrMemberAlreadyExists
	}
	s.nextMemberID++
	m := &Member{
		ID:          s.nextMemberID,
		GroupID:     groupID,
		UserID:      userID,
		Email:       email,
		Role:        MemberRoleMember,
		Status:      MemberStatusPending,
		InviteToken: &inviteToken,
	}
	s.members[groupID] = append(s.members[groupID], m)
	return m, nil
}

func (s *fakeStore) AcceptInvite(ctx context.Context, groupID int64, email string, userID int64) (*Member, error) {
	if s.groups[groupID] == nil {
		return nil, ErrGroupNotFound
	}
	m, _ := s.GetMemberByEmail(ctx, groupID, email)
	if m == nil {
		return nil, ErrNotInvited
	}
	if m.IsAccepted() {
		return m, nil
	}
	m.Status = MemberStatusAccepted
	if m.UserID == nil {
		m.UserID = &userID
	}
	return m, nil
}

func (s *fakeStore) RejectInvite(ctx context.Context, groupID int64, email string) error {
	for i, m := range s.members[groupID] {
		if strings.EqualFold(m.Email, email) && !m.IsAccepted() {
			s.members[groupID] = append(s.members[groupID][:i], s.members[groupID][i+1:]...)
			return nil
		}
	}
	return ErrNotInvited
}

func (s *fakeStore) RemoveMember(ctx context.Context, groupID, callerUserID, memberID int64) (*Member, error) {
	if s.groups[groupID] == nil {
		return nil, ErrGroupNotFound
	}
	caller, _ := s.GetMemberByUserID(ctx, groupID, callerUserID)
	if caller == nil || !caller.IsAccepted() {
		return nil, ErrNotMember
	}
	if !caller.IsAdmin() {
		return nil, ErrNotAdmin
	}

	for i, m := range s.members[groupID] {
		if m.ID == memberID {
			if m.IsAdmin() {
				return nil, ErrCannotRemoveAdmin
			}
			s.members[groupID] = append(s.members[groupID][:i], s.members[groupID][i+1:]...)
			return m, nil
		}
	}
	return nil, ErrMemberNotFound
}

func (s *fakeStore) LeaveGroup(ctx context.Context, groupID, callerUserID int64) (*LeaveResult, error) {
	if s.groups[groupID] == nil {
		return nil, ErrGroupNotFound
	}
	caller, _ := s.GetMemberByUserID(ctx, groupID, callerUserID)
	if caller == nil || !caller.IsAccepted() {
		return nil, ErrNotMember
	}

	members := s.members[groupID]
	if len(members) == 1 {
		delete(s.groups, groupID)
		delete(s.members, groupID)
		return &LeaveResult{GroupDeleted: true, Departed: caller}, nil
	}

	result := &LeaveResult{Departed: caller}
	if caller.IsAdmin() {
		for _, m := range members {
			if m.ID != caller.ID {
				m.Role = MemberRoleAdmin
				result.NewAdmin = m
				break
			}
		}
	}

	for i, m := range members {
		if m.ID == caller.ID {
			s.members[groupID] = append(members[:i], members[i+1:]...)
			break
		}
	}
	return result, nil
}

// fakeDirectory resolves emails against a fixed set of accounts.
type fakeDirectory struct {
	users map[string]*user.User
}

func (d *fakeDirectory) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return d.users[strings.ToLower(email)], nil
}

// recorderStub captures activity events.
type recorderStub struct {
	events []activity.Type
}

func (r *recorderStub) Record(ctx context.Context, groupID int64, typ activity.Type, actorID int64, payload map[string]interface{}) {
	r.events = append(r.events, typ)
}

// notifierStub captures notifications.
type notifierStub struct {
	messages []*notification.Message
}

func (n *notifierStub) Notify(ctx context.Context, msg *notification.Message) {
	n.messages = append(n.messages, msg)
}

func newTestService(accounts ...*user.User) (*Service, *fakeStore, *recorderStub, *notifierStub) {
	store := newFakeStore()
	directory := &fakeDirectory{users: make(map[string]*user.User)}
	for _, u := range accounts {
		directory.users[strings.ToLower(u.Email)] = u
	}
	recorder := &recorderStub{}
	notifier := &notifierStub{}
	return NewService(store, directory, recorder, notifier), store, recorder, notifier
}

func TestService_Create(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	t.Run("creator becomes the accepted admin", func(t *testing.T) {
		g, m, err := svc.Create(ctx, 1, "alice@example.com", &CreateGroupRequest{Name: "Trip"})
		require.NoError(t, err)
		assert.Equal(t, "Trip", g.Name)
		assert.True(t, m.IsAdmin())
		assert.True(t, m.IsAccepted())
		assert.Equal(t, "alice@example.com", m.Email)
	})

	t.Run("rejects a blank name", func(t *testing.T) {
		_, _, err := svc.Create(ctx, 1, "alice@example.com", &CreateGroupRequest{Name: "   "})
		assert.ErrorIs(t, err, ErrNameRequired)
	})
}

func TestService_Invite(t *testing.T) {
	ctx := context.Background()
	bob := &user.User{ID: 2, Email: "bob@example.com"}

	setup := func(t *testing.T) (*Service, *Group, *recorderStub, *notifierStub) {
		svc, _, recorder, notifier := newTestService(bob)
		g, _, err := svc.Create(ctx, 1, "alice@example.com", &CreateGroupRequest{Name: "Trip"})
		require.NoError(t, err)
		return svc, g, recorder, notifier
	}

	t.Run("invited member starts pending", func(t *testing.T) {
		svc, g, recorder, notifier := setup(t)

		m, err := svc.Invite(ctx, g.ID, 1, "Bob@Example.com")
		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", m.Email)
		assert.Equal(t, MemberStatusPending, m.Status)
		require.NotNil(t, m.UserID)
		assert.Equal(t, bob.ID, *m.UserID)
		require.NotNil(t, m.InviteToken)
		assert.NotEmpty(t, *m.InviteToken)

		assert.Equal(t, []activity.Type{activity.TypeInvite}, recorder.events)
		require.Len(t, notifier.messages, 1)
		assert.Equal(t, notification.TypeGroupInvite, notifier.messages[0].Type)
		assert.Equal(t, bob.ID, notifier.messages[0].RecipientID)
	})

	t.Run("unregistered email stays unlinked and unnotified", func(t *testing.T) {
		svc, g, _, notifier := setup(t)

		m, err := svc.Invite(ctx, g.ID, 1, "carol@example.com")
		require.NoError(t, err)
		assert.Nil(t, m.UserID)
		assert.Empty(t, notifier.messages)
	})

	t.Run("duplicate invite conflicts", func(t *testing.T) {
		svc, g, _, _ := setup(t)

		_, err := svc.Invite(ctx, g.ID, 1, "bob@example.com")
		require.NoError(t, err)
		_, err = svc.Invite(ctx, g.ID, 1, "bob@example.com")
		assert.ErrorIs(t, err, ErrMemberAlreadyExists)
	})

	t.Run("non-admin cannot invite", func(t *testing.T) {
		svc, g, _, _ := setup(t)

		_, err := svc.Invite(ctx, g.ID, 1, "bob@example.com")
		require.NoError(t, err)
		_, err = svc.AcceptInvite(ctx, g.ID, bob.ID, bob.Email)
		require.NoError(t, err)

		_, err = svc.Invite(ctx, g.ID, bob.ID, "carol@example.com")
		assert.ErrorIs(t, err, ErrNotAdmin)
	})

	t.Run("requires an email", func(t *testing.T) {
		svc, g, _, _ := setup(t)

		_, err := svc.Invite(ctx, g.ID, 1, "  ")
		assert.ErrorIs(t, err, ErrEmailRequired)
	})

	t.Run("unknown group", func(t *testing.T) {
		svc, _, _, _ := setup(t)

		_, err := svc.Invite(ctx, 999, 1, "bob@example.com")
		assert.ErrorIs(t, err, ErrGroupNotFound)
	})
}

func TestService_AcceptInvite(t *testing.T) {
	ctx := context.Background()
	bob := &user.User{ID: 2, Email: "bob@example.com"}

	svc, _, _, _ := newTestService(bob)
	g, _, err := svc.Create(ctx, 1, "alice@example.com", &CreateGroupRequest{Name: "Trip"})
	require.NoError(t, err)
	_, err = svc.Invite(ctx, g.ID, 1, bob.Email)
	require.NoError(t, err)

	t.Run("pending member becomes accepted", func(t *testing.T) {
		m, err := svc.AcceptInvite(ctx, g.ID, bob.ID, bob.Email)
		require.NoError(t, err)
		assert.True(t, m.IsAccepted())
	})

	t.Run("re-accepting is a no-op", func(t *testing.T) {
		m, err := svc.AcceptInvite(ctx, g.ID, bob.ID, bob.Email)
		require.NoError(t, err)
		assert.True(t, m.IsAccepted())
	})

	t.Run("uninvited user cannot accept", func(t *testing.T) {
		_, err := svc.AcceptInvite(ctx, g.ID, 3, "carol@example.com")
		assert.ErrorIs(t, err, ErrNotInvited)
	})
}

func TestService_RemoveMember(t *testing.T) {
	ctx := context.Background()
	bob := &user.User{ID: 2, Email: "bob@example.com"}

	setup := func(t *testing.T) (*Service, *Group, *Member, *recorderStub, *notifierStub) {
		svc, _, recorder, notifier := newTestService(bob)
		g, _, err := svc.Create(ctx, 1, "alice@example.com", &CreateGroupRequest{Name: "Trip"})
		require.NoError(t, err)
		_, err = svc.Invite(ctx, g.ID, 1, bob.Email)
		require.NoError(t, err)
		m, err := svc.AcceptInvite(ctx, g.ID, bob.ID, bob.Email)
		require.NoError(t, err)
		recorder.events = nil
		notifier.messages = nil
		return svc, g, m, recorder, notifier
	}

	t.Run("admin removes a member", func(t *testing.T) {
		svc, g, m, recorder, notifier := setup(t)

		err := svc.RemoveMember(ctx, g.ID, 1, m.ID)
		require.NoError(t, err)

		assert.Equal(t, []activity.Type{activity.TypeMemberRemoved}, recorder.events)
		require.Len(t, notifier.messages, 1)
		assert.Equal(t, notification.TypeMemberRemoved, notifier.messages[0].Type)
		assert.Equal(t, bob.ID, notifier.messages[0].RecipientID)
	})

	t.Run("non-admin cannot remove", func(t *testing.T) {
		svc, g, _, _, _ := setup(t)
		members, err := svc.GetMembers(ctx, g.ID, 1)
		require.NoError(t, err)

		err = svc.RemoveMember(ctx, g.ID, bob.ID, members[0].ID)
		assert.ErrorIs(t, err, ErrNotAdmin)
	})

	t.Run("admin cannot be removed", func(t *testing.T) {
		svc, g, _, _, _ := setup(t)
		members, err := svc.GetMembers(ctx, g.ID, 1)
		require.NoError(t, err)

		err = svc.RemoveMember(ctx, g.ID, 1, members[0].ID)
		assert.ErrorIs(t, err, ErrCannotRemoveAdmin)
	})
}

func TestService_Leave(t *testing.T) {
	ctx := context.Background()
	bob := &user.User{ID: 2, Email: "bob@example.com"}

	t.Run("sole member leaving deletes the group", func(t *testing.T) {
		svc, _, recorder, _ := newTestService()
		g, _, err := svc.Create(ctx, 1, "alice@example.com", &CreateGroupRequest{Name: "Solo"})
		require.NoError(t, err)

		result, err := svc.Leave(ctx, g.ID, 1)
		require.NoError(t, err)
		assert.True(t, result.GroupDeleted)

		_, _, err = svc.GetByIDWithMembers(ctx, g.ID, 1)
		assert.ErrorIs(t, err, ErrGroupNotFound)

		// No member_left event survives a deleted group.
		assert.Empty(t, recorder.events)
	})

	t.Run("departing admin hands over the role", func(t *testing.T) {
		svc, _, recorder, _ := newTestService(bob)
		g, _, err := svc.Create(ctx, 1, "alice@example.com", &CreateGroupRequest{Name: "Trip"})
		require.NoError(t, err)
		_, err = svc.Invite(ctx, g.ID, 1, bob.Email)
		require.NoError(t, err)
		bobMember, err := svc.AcceptInvite(ctx, g.ID, bob.ID, bob.Email)
		require.NoError(t, err)
		recorder.events = nil

		result, err := svc.Leave(ctx, g.ID, 1)
		require.NoError(t, err)
		assert.False(t, result.GroupDeleted)
		require.NotNil(t, result.NewAdmin)
		assert.Equal(t, bobMember.ID, result.NewAdmin.ID)
		assert.True(t, result.NewAdmin.IsAdmin())

		assert.Equal(t, []activity.Type{activity.TypeMemberLeft}, recorder.events)
	})

	t.Run("non-member cannot leave", func(t *testing.T) {
		svc, _, _, _ := newTestService()
		g, _, err := svc.Create(ctx, 1, "alice@example.com", &CreateGroupRequest{Name: "Trip"})
		require.NoError(t, err)

		_, err = svc.Leave(ctx, g.ID, 99)
		assert.ErrorIs(t, err, ErrNotMember)
	})
}
