package transaction

import "budgetbook/internal/transaction/split"

// Participant is one entry of a requested split
type Participant struct {
	MemberID int64    `json:"member_id" validate:"required"`
	Percent  *float64 `json:"percent,omitempty"` // For PERCENT mode
	Amount   *float64 `json:"amount,omitempty"`  // For EXACT mode
}

// ToSplitInput converts to the split package's input type
func (p *Participant) ToSplitInput() split.Input {
	return split.Input{
		MemberID: p.MemberID,
		Percent:  p.Percent,
		Amount:   p.Amount,
	}
}

// CreateTransactionRequest represents the request to add a transaction
type CreateTransactionRequest struct {
	GroupID      *int64         `json:"group_id,omitempty"`
	Amount       float64        `json:"amount" validate:"required,gt=0"`
	Category     string         `json:"category" validate:"required,min=1,max=100"`
	Note         string         `json:"note,omitempty" validate:"max=500"`
	Date         string         `json:"date" validate:"required"` // YYYY-MM-DD
	PaidBy       *int64         `json:"paid_by,omitempty"`        // member id; defaults to the caller's membership
	SplitMode    string         `json:"split_mode,omitempty"`     // EQUAL, PERCENT, EXACT; defaults to EQUAL
	Participants []*Participant `json:"participants,omitempty"`
}

// UpdateTransactionRequest represents a partial edit. Participants nil
// means the split is unchanged; RemoveFromGroup detaches the transaction
// from its group (a tracked group attribution change).
type UpdateTransactionRequest struct {
	GroupID         *int64         `json:"group_id,omitempty"`
	RemoveFromGroup bool           `json:"remove_from_group,omitempty"`
	Amount          *float64       `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Category        *string        `json:"category,omitempty"`
	Note            *string        `json:"note,omitempty"`
	Date            *string        `json:"date,omitempty"`
	PaidBy          *int64         `json:"paid_by,omitempty"`
	SplitMode       *string        `json:"split_mode,omitempty"`
	Participants    []*Participant `json:"participants,omitempty"`
}

// SplitResponse represents one share in a response
type SplitResponse struct {
	ID       int64   `json:"id"`
	MemberID int64   `json:"member_id"`
	Share    float64 `json:"share"`
}

// TransactionResponse represents the response for a transaction
type TransactionResponse struct {
	ID        int64            `json:"id"`
	GroupID   *int64           `json:"group_id,omitempty"`
	CreatedBy int64            `json:"created_by"`
	PaidBy    *int64           `json:"paid_by,omitempty"`
	Amount    float64          `json:"amount"`
	Category  string           `json:"category"`
	Note      string           `json:"note,omitempty"`
	Date      string           `json:"date"`
	SplitType *string          `json:"split_type,omitempty"`
	CreatedAt string           `json:"created_at"`
	Splits    []*SplitResponse `json:"splits,omitempty"`
}

// ToResponse converts a Transaction model to a TransactionResponse DTO
func (t *Transaction) ToResponse() *TransactionResponse {
	resp := &TransactionResponse{
		ID:        t.ID,
		GroupID:   t.GroupID,
		CreatedBy: t.CreatedBy,
		PaidBy:    t.PaidBy,
		Amount:    t.Amount,
		Category:  t.Category,
		Note:      t.Note,
		Date:      t.Date.Format("2006-01-02"),
		SplitType: t.SplitType,
		CreatedAt: t.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	for _, s := range t.Splits {
		resp.Splits = append(resp.Splits, &SplitResponse{
			ID:       s.ID,
			MemberID: s.MemberID,
			Share:    s.Share,
		})
	}
	return resp
}
