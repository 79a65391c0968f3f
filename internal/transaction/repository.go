package transaction

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Repository is the Postgres-backed Store implementation
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new transaction repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

// Create persists a new transaction and its splits in one database
// transaction
func (r *Repository) Create(ctx context.Context, t *Transaction) (*Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO transactions (group_id, created_by, paid_by, amount, category, note, occurred_on, split_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, group_id, created_by, paid_by, amount, category, note, occurred_on, split_type, created_at
	`

	created := &Transaction{}
	err = tx.QueryRowContext(ctx, query,
		t.GroupID,
		t.CreatedBy,
		t.PaidBy,
		t.Amount,
		t.Category,
		t.Note,
		t.Date,
		t.SplitType,
	).Scan(
		&created.ID,
		&created.GroupID,
		&created.CreatedBy,
		&created.PaidBy,
		&created.Amount,
		&created.Category,
		&created.Note,
		&created.Date,
		&created.SplitType,
		&created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if err := insertSplits(ctx, tx, created, t.Splits); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return created, nil
}

func insertSplits(ctx context.Context, tx *sql.Tx, t *Transaction, splits []*Split) error {
	query := `
		INSERT INTO transaction_splits (transaction_id, member_id, share)
		VALUES ($1, $2, $3)
		RETURNING id, transaction_id, member_id, share
	`

	for _, s := range splits {
		created := &Split{}
		err := tx.QueryRowContext(ctx, query, t.ID, s.MemberID, s.Share).Scan(
			&created.ID,
			&created.TransactionID,
			&created.MemberID,
			&created.Share,
		)
		if err != nil {
			return fmt.Errorf("failed to create split: %w", err)
		}
		t.Splits = append(t.Splits, created)
	}

	return nil
}

// GetByID retrieves a transaction with its splits
func (r *Repository) GetByID(ctx context.Context, id int64) (*Transaction, error) {
	query := `
		SELECT id, group_id, created_by, paid_by, amount, category, note, occurred_on, split_type, created_at
		FROM transactions
		WHERE id = $1
	`

	t := &Transaction{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.GroupID,
		&t.CreatedBy,
		&t.PaidBy,
		&t.Amount,
		&t.Category,
		&t.Note,
		&t.Date,
		&t.SplitType,
		&t.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	if err := r.attachSplits(ctx, []*Transaction{t}); err != nil {
		return nil, err
	}

	return t, nil
}

// Update replaces the transaction row and its splits in one database
// transaction
func (r *Repository) Update(ctx context.Context, t *Transaction) (*Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE transactions
		SET group_id = $2, paid_by = $3, amount = $4, category = $5, note = $6, occurred_on = $7, split_type = $8
		WHERE id = $1
		RETURNING id, group_id, created_by, paid_by, amount, category, note, occurred_on, split_type, created_at
	`

	updated := &Transaction{}
	err = tx.QueryRowContext(ctx, query,
		t.ID,
		t.GroupID,
		t.PaidBy,
		t.Amount,
		t.Category,
		t.Note,
		t.Date,
		t.SplitType,
	).Scan(
		&updated.ID,
		&updated.GroupID,
		&updated.CreatedBy,
		&updated.PaidBy,
		&updated.Amount,
		&updated.Category,
		&updated.Note,
		&updated.Date,
		&updated.SplitType,
		&updated.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM transaction_splits WHERE transaction_id = $1`, t.ID); err != nil {
		return nil, fmt.Errorf("failed to clear splits: %w", err)
	}

	if err := insertSplits(ctx, tx, updated, t.Splits); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}

	return updated, nil
}

// Delete removes a transaction; splits cascade
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTransactionNotFound
	}

	return nil
}

// ListByGroup retrieves a page of a group's transactions, newest first
func (r *Repository) ListByGroup(ctx context.Context, groupID int64, limit, offset int) ([]*Transaction, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM transactions WHERE group_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, groupID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := `
		SELECT id, group_id, created_by, paid_by, amount, category, note, occurred_on, split_type, created_at
		FROM transactions
		WHERE group_id = $1
		ORDER BY occurred_on DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	transactions, err := r.queryTransactions(ctx, query, groupID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}

// ListAllByGroup retrieves the complete transaction set of a group in
// insertion order
func (r *Repository) ListAllByGroup(ctx context.Context, groupID int64) ([]*Transaction, error) {
	query := `
		SELECT id, group_id, created_by, paid_by, amount, category, note, occurred_on, split_type, created_at
		FROM transactions
		WHERE group_id = $1
		ORDER BY id
	`

	return r.queryTransactions(ctx, query, groupID)
}

func (r *Repository) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]*Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*Transaction
	for rows.Next() {
		t := &Transaction{}
		if err := rows.Scan(
			&t.ID,
			&t.GroupID,
			&t.CreatedBy,
			&t.PaidBy,
			&t.Amount,
			&t.Category,
			&t.Note,
			&t.Date,
			&t.SplitType,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err := r.attachSplits(ctx, transactions); err != nil {
		return nil, err
	}

	return transactions, nil
}

// attachSplits loads the splits for a batch of transactions in one query
func (r *Repository) attachSplits(ctx context.Context, transactions []*Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	byID := make(map[int64]*Transaction, len(transactions))
	ids := make([]int64, len(transactions))
	for i, t := range transactions {
		byID[t.ID] = t
		ids[i] = t.ID
	}

	query := `
		SELECT id, transaction_id, member_id, share
		FROM transaction_splits
		WHERE transaction_id = ANY($1)
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s := &Split{}
		if err := rows.Scan(&s.ID, &s.TransactionID, &s.MemberID, &s.Share); err != nil {
			return fmt.Errorf("failed to scan split: %w", err)
		}
		if t, ok := byID[s.TransactionID]; ok {
			t.Splits = append(t.Splits, s)
		}
	}

	return nil
}
