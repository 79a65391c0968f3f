package group

import "context"

// Store is the persistence contract for groups and their members.
//
// Implementations must apply every membership mutation with per-group
// mutual exclusion: the SQL store locks the group row and re-validates the
// current membership inside the same transaction as the write, so that,
// for example, concurrent RemoveMember and LeaveGroup calls can never
// leave a non-empty group without an admin.
type Store interface {
	// CreateGroup inserts the group and its creator as an accepted admin
	// member, atomically.
	CreateGroup(ctx context.Context, req *CreateGroupRequest, creatorID int64, creatorEmail string) (*Group, *Member, error)

	// GetGroup returns the group or nil when it does not exist.
	GetGroup(ctx context.Context, id int64) (*Group, error)

	// GetMembers returns all members in stored order (insertion order).
	GetMembers(ctx context.Context, groupID int64) ([]*Member, error)

	// GetMemberByEmail returns the member with the given email, or nil.
	GetMemberByEmail(ctx context.Context, groupID int64, email string) (*Member, error)

	// GetMemberByUserID returns the member linked to the given account, or nil.
	GetMemberByUserID(ctx context.Context, groupID, userID int64) (*Member, error)

	// ListGroupsByUser returns the groups the user belongs to.
	ListGroupsByUser(ctx context.Context, userID int64, limit, offset int) ([]*Group, int, error)

	// UpdateGroup applies a partial update.
	UpdateGroup(ctx context.Context, id int64, req *UpdateGroupRequest) (*Group, error)

	// AddMember inserts a pending member. Returns ErrMemberAlreadyExists
	// when the email is already present in the group.
	AddMember(ctx context.Context, groupID int64, email string, userID *int64, inviteToken string) (*Member, error)

	// AcceptInvite transitions the member matching the email to accepted,
	// backfilling the user id if it was unknown at invite time. Accepting
	// an already-accepted member is a no-op returning the member as is.
	AcceptInvite(ctx context.Context, groupID int64, email string, userID int64) (*Member, error)

	// RejectInvite removes the pending member matching the email.
	RejectInvite(ctx context.Context, groupID int64, email string) error

	// RemoveMember deletes the target member after re-validating, under
	// the group lock, that the caller is the admin and the target is not.
	RemoveMember(ctx context.Context, groupID, callerUserID, memberID int64) (*Member, error)

	// LeaveGroup removes the caller's own membership. The sole remaining
	// member leaving deletes the group; an admin leaving a group with
	// other members first hands the admin role to the first non-departing
	// member in stored order.
	LeaveGroup(ctx context.Context, groupID, callerUserID int64) (*LeaveResult, error)
}
