package settlement

// SettleUpRequest records a repayment between two members
type SettleUpRequest struct {
	FromMemberID int64   `json:"from_member_id" validate:"required"`
	ToMemberID   int64   `json:"to_member_id" validate:"required"`
	Amount       float64 `json:"amount" validate:"required,gt=0"`
	Note         string  `json:"note,omitempty" validate:"max=500"`
}

// SummaryResponse carries the balances and the suggested transfers
type SummaryResponse struct {
	Balances  []*Balance  `json:"balances"`
	Transfers []*Transfer `json:"transfers"`
}
