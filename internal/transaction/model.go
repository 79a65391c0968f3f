package transaction

import "time"

// Transaction represents a ledger entry. GroupID nil means a personal,
// non-group transaction; when GroupID is set and Splits is non-empty the
// split shares sum exactly to Amount and every split references a member
// of that group. A group transaction without splits is 100%-owned by the
// payer, attributing no debt to others.
type Transaction struct {
	ID        int64     `json:"id"`
	GroupID   *int64    `json:"group_id,omitempty"`
	CreatedBy int64     `json:"created_by"`
	PaidBy    *int64    `json:"paid_by,omitempty"` // member id; nil on legacy personal rows
	Amount    float64   `json:"amount"`
	Category  string    `json:"category"`
	Note      string    `json:"note"`
	Date      time.Time `json:"date"`
	SplitType *string   `json:"split_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Splits []*Split `json:"splits,omitempty"`
}

// Split represents one participant's share of a group transaction
type Split struct {
	ID            int64   `json:"id"`
	TransactionID int64   `json:"transaction_id"`
	MemberID      int64   `json:"member_id"`
	Share         float64 `json:"share"`
}

// IsGroupScoped reports whether the transaction belongs to a group ledger
func (t *Transaction) IsGroupScoped() bool {
	return t.GroupID != nil
}
