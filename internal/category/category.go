// Package category is the category-store collaborator consumed by the
// settlement engine. Full category management lives elsewhere; the core
// only needs the reserved "Settlement" category to exist per group.
package category

import (
	"context"
	"database/sql"
	"fmt"
)

// SettlementName is the reserved category attached to settle-up
// transactions.
const SettlementName = "Settlement"

// Category represents an expense category scoped to a group (or global
// when GroupID is nil).
type Category struct {
	ID      int64  `json:"id"`
	GroupID *int64 `json:"group_id,omitempty"`
	Name    string `json:"name"`
}

// Store is what the settlement engine depends on.
type Store interface {
	EnsureSettlement(ctx context.Context, groupID int64) (*Category, error)
}

// Repository handles category persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new category repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSettlement creates the reserved Settlement category for a group
// if it does not exist yet, and returns it either way.
func (r *Repository) EnsureSettlement(ctx context.Context, groupID int64) (*Category, error) {
	insert := `
		INSERT INTO categories (group_id, name)
		VALUES ($1, $2)
		ON CONFLICT (group_id, name) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, insert, groupID, SettlementName); err != nil {
		return nil, fmt.Errorf("failed to ensure settlement category: %w", err)
	}

	query := `
		SELECT id, group_id, name
		FROM categories
		WHERE group_id = $1 AND name = $2
	`

	c := &Category{}
	err := r.db.QueryRowContext(ctx, query, groupID, SettlementName).Scan(
		&c.ID,
		&c.GroupID,
		&c.Name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement category: %w", err)
	}

	return c, nil
}
