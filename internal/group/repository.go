package group

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Repository is the Postgres-backed Store implementation
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new group repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const memberColumns = `gm.id, gm.group_id, gm.user_id, gm.email, gm.role, gm.status, gm.invite_token, gm.created_at, COALESCE(u.username, '')`

func scanMember(row interface{ Scan(...interface{}) error }) (*Member, error) {
	member := &Member{}
	err := row.Scan(
		&member.ID,
		&member.GroupID,
		&member.UserID,
		&member.Email,
		&member.Role,
		&member.Status,
		&member.InviteToken,
		&member.CreatedAt,
		&member.Username,
	)
	if err != nil {
		return nil, err
	}
	return member, nil
}

// CreateGroup inserts a new group and its creator as accepted admin in
// one transaction
func (r *Repository) CreateGroup(ctx context.Context, req *CreateGroupRequest, creatorID int64, creatorEmail string) (*Group, *Member, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO groups (name, description, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, name, description, created_by, created_at
	`

	group := &Group{}
	err = tx.QueryRowContext(ctx, query, req.Name, req.Description, creatorID).Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&group.CreatedBy,
		&group.CreatedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create group: %w", err)
	}

	memberQuery := `
		INSERT INTO group_members (group_id, user_id, email, role, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, group_id, user_id, email, role, status, invite_token, created_at
	`

	member := &Member{}
	err = tx.QueryRowContext(ctx, memberQuery, group.ID, creatorID, creatorEmail, MemberRoleAdmin, MemberStatusAccepted).Scan(
		&member.ID,
		&member.GroupID,
		&member.UserID,
		&member.Email,
		&member.Role,
		&member.Status,
		&member.InviteToken,
		&member.CreatedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to add creator as admin: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit group creation: %w", err)
	}

	return group, member, nil
}

// GetGroup retrieves a group by its ID
func (r *Repository) GetGroup(ctx context.Context, id int64) (*Group, error) {
	return r.getGroup(ctx, r.db, id, false)
}

func (r *Repository) getGroup(ctx context.Context, q querier, id int64, forUpdate bool) (*Group, error) {
	query := `
		SELECT id, name, description, created_by, created_at
		FROM groups
		WHERE id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	group := &Group{}
	err := q.QueryRowContext(ctx, query, id).Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&group.CreatedBy,
		&group.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return group, nil
}

// GetMembers retrieves all members of a group in stored order
func (r *Repository) GetMembers(ctx context.Context, groupID int64) ([]*Member, error) {
	return r.getMembers(ctx, r.db, groupID)
}

func (r *Repository) getMembers(ctx context.Context, q querier, groupID int64) ([]*Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM group_members gm
		LEFT JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1
		ORDER BY gm.created_at, gm.id
	`

	rows, err := q.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	return members, nil
}

// GetMemberByEmail retrieves the member with the given email, or nil
func (r *Repository) GetMemberByEmail(ctx context.Context, groupID int64, email string) (*Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM group_members gm
		LEFT JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1 AND lower(gm.email) = lower($2)
	`

	member, err := scanMember(r.db.QueryRowContext(ctx, query, groupID, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member by email: %w", err)
	}

	return member, nil
}

// GetMemberByUserID retrieves the member linked to the given account, or nil
func (r *Repository) GetMemberByUserID(ctx context.Context, groupID, userID int64) (*Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM group_members gm
		LEFT JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1 AND gm.user_id = $2
	`

	member, err := scanMember(r.db.QueryRowContext(ctx, query, groupID, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return member, nil
}

// ListGroupsByUser retrieves the groups a user belongs to
func (r *Repository) ListGroupsByUser(ctx context.Context, userID int64, limit, offset int) ([]*Group, int, error) {
	var total int
	countQuery := `
		SELECT COUNT(DISTINCT g.id)
		FROM groups g
		JOIN group_members gm ON g.id = gm.group_id
		WHERE gm.user_id = $1
	`
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count groups: %w", err)
	}

	query := `
		SELECT g.id, g.name, g.description, g.created_by, g.created_at
		FROM groups g
		JOIN group_members gm ON g.id = gm.group_id
		WHERE gm.user_id = $1
		ORDER BY g.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		group := &Group{}
		if err := rows.Scan(
			&group.ID,
			&group.Name,
			&group.Description,
			&group.CreatedBy,
			&group.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}

	return groups, total, nil
}

// UpdateGroup applies a partial update to a group
func (r *Repository) UpdateGroup(ctx context.Context, id int64, req *UpdateGroupRequest) (*Group, error) {
	query := `
		UPDATE groups
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description)
		WHERE id = $1
		RETURNING id, name, description, created_by, created_at
	`

	group := &Group{}
	err := r.db.QueryRowContext(ctx, query, id, req.Name, req.Description).Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&group.CreatedBy,
		&group.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to update group: %w", err)
	}

	return group, nil
}

// AddMember inserts a pending member into a group
func (r *Repository) AddMember(ctx context.Context, groupID int64, email string, userID *int64, inviteToken string) (*Member, error) {
	query := `
		INSERT INTO group_members (group_id, user_id, email, role, status, invite_token)
		VALUES ($1, $2, lower($3), $4, $5, $6)
		RETURNING id, group_id, user_id, email, role, status, invite_token, created_at
	`

	member := &Member{}
	err := r.db.QueryRowContext(ctx, query, groupID, userID, email, MemberRoleMember, MemberStatusPending, inviteToken).Scan(
		&member.ID,
		&member.GroupID,
		&member.UserID,
		&member.Email,
		&member.Role,
		&member.Status,
		&member.InviteToken,
		&member.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrMemberAlreadyExists
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	return member, nil
}

// AcceptInvite transitions the pending member matching the email to
// accepted inside a group-locked transaction
func (r *Repository) AcceptInvite(ctx context.Context, groupID int64, email string, userID int64) (*Member, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	group, err := r.getGroup(ctx, tx, groupID, true)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}

	members, err := r.getMembers(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}

	var target *Member
	for _, m := range members {
		if strings.EqualFold(m.Email, email) {
			target = m
			break
		}
	}
	if target == nil {
		return nil, ErrNotInvited
	}

	// Re-accepting is a no-op, not an error
	if target.IsAccepted() {
		return target, tx.Commit()
	}

	update := `
		UPDATE group_members
		SET status = $2, user_id = COALESCE(user_id, $3)
		WHERE id = $1
		RETURNING id, group_id, user_id, email, role, status, invite_token, created_at
	`

	member := &Member{Username: target.Username}
	err = tx.QueryRowContext(ctx, update, target.ID, MemberStatusAccepted, userID).Scan(
		&member.ID,
		&member.GroupID,
		&member.UserID,
		&member.Email,
		&member.Role,
		&member.Status,
		&member.InviteToken,
		&member.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to accept invite: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit accept: %w", err)
	}

	return member, nil
}

// RejectInvite removes the pending member matching the email
func (r *Repository) RejectInvite(ctx context.Context, groupID int64, email string) error {
	query := `
		DELETE FROM group_members
		WHERE group_id = $1 AND lower(email) = lower($2) AND status = $3
	`

	result, err := r.db.ExecContext(ctx, query, groupID, email, MemberStatusPending)
	if err != nil {
		return fmt.Errorf("failed to reject invite: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotInvited
	}

	return nil
}

// RemoveMember deletes the target member after re-validating membership
// under the group lock
func (r *Repository) RemoveMember(ctx context.Context, groupID, callerUserID, memberID int64) (*Member, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	group, err := r.getGroup(ctx, tx, groupID, true)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}

	members, err := r.getMembers(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}

	var caller, target *Member
	for _, m := range members {
		if m.UserID != nil && *m.UserID == callerUserID {
			caller = m
		}
		if m.ID == memberID {
			target = m
		}
	}

	if caller == nil || !caller.IsAccepted() {
		return nil, ErrNotMember
	}
	if !caller.IsAdmin() {
		return nil, ErrNotAdmin
	}
	if target == nil {
		return nil, ErrMemberNotFound
	}
	if target.IsAdmin() {
		return nil, ErrCannotRemoveAdmin
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM group_members WHERE id = $1`, target.ID); err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrMemberHasHistory
		}
		return nil, fmt.Errorf("failed to remove member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit removal: %w", err)
	}

	return target, nil
}

// isForeignKeyViolation reports whether the error is a Postgres FK
// violation, which on a member delete means the ledger still references
// them as payer or split participant.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

// LeaveGroup removes the caller's membership, deleting the group when they
// are the sole member and transferring the admin role first when needed
func (r *Repository) LeaveGroup(ctx context.Context, groupID, callerUserID int64) (*LeaveResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	group, err := r.getGroup(ctx, tx, groupID, true)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}

	members, err := r.getMembers(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}

	var caller *Member
	for _, m := range members {
		if m.UserID != nil && *m.UserID == callerUserID {
			caller = m
			break
		}
	}
	if caller == nil || !caller.IsAccepted() {
		return nil, ErrNotMember
	}

	// Sole member leaving dissolves the group entirely, ledger included.
	// Splits and transactions go first so no FK ever dangles mid-delete.
	if len(members) == 1 {
		cleanup := []string{
			`DELETE FROM transaction_splits WHERE transaction_id IN (SELECT id FROM transactions WHERE group_id = $1)`,
			`DELETE FROM transactions WHERE group_id = $1`,
			`DELETE FROM groups WHERE id = $1`,
		}
		for _, q := range cleanup {
			if _, err := tx.ExecContext(ctx, q, groupID); err != nil {
				return nil, fmt.Errorf("failed to delete group: %w", err)
			}
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit group deletion: %w", err)
		}
		return &LeaveResult{GroupDeleted: true, Departed: caller}, nil
	}

	result := &LeaveResult{Departed: caller}

	// A group must never be left without an admin: hand the role to the
	// first non-departing member in stored order before removing the
	// departing admin.
	if caller.IsAdmin() {
		var successor *Member
		for _, m := range members {
			if m.ID != caller.ID {
				successor = m
				break
			}
		}

		update := `UPDATE group_members SET role = $2 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, update, successor.ID, MemberRoleAdmin); err != nil {
			return nil, fmt.Errorf("failed to transfer admin role: %w", err)
		}
		successor.Role = MemberRoleAdmin
		result.NewAdmin = successor
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM group_members WHERE id = $1`, caller.ID); err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrMemberHasHistory
		}
		return nil, fmt.Errorf("failed to remove member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit leave: %w", err)
	}

	return result, nil
}
