package transaction

import "context"

// Store is the persistence contract for the ledger. Implementations
// write a transaction and its splits atomically; all invariant checks
// run in the service before any write.
type Store interface {
	// Create persists a new transaction with its splits.
	Create(ctx context.Context, t *Transaction) (*Transaction, error)

	// GetByID returns the transaction with splits, or nil.
	GetByID(ctx context.Context, id int64) (*Transaction, error)

	// Update replaces the transaction row and its splits.
	Update(ctx context.Context, t *Transaction) (*Transaction, error)

	// Delete removes the transaction and its splits.
	Delete(ctx context.Context, id int64) error

	// ListByGroup returns a page of a group's transactions, newest first.
	ListByGroup(ctx context.Context, groupID int64, limit, offset int) ([]*Transaction, int, error)

	// ListAllByGroup returns the group's complete transaction set, in
	// insertion order. Balance computation always reads the full set.
	ListAllByGroup(ctx context.Context, groupID int64) ([]*Transaction, error)
}
