package settlement

import (
	"math"

	"budgetbook/internal/group"
	"budgetbook/internal/transaction"
)

// Balance is one member's net position in a group. Positive means the
// group owes the member, negative means the member owes the group. The
// sum over all members is always zero.
type Balance struct {
	MemberID    int64   `json:"member_id"`
	UserID      *int64  `json:"user_id,omitempty"`
	Email       string  `json:"email"`
	DisplayName string  `json:"display_name"`
	Amount      float64 `json:"amount"`
}

// ComputeBalances folds a group's full transaction history into one net
// amount per member, in the stored member order. Every member appears,
// at zero if nothing touched them. A transaction without splits is
// wholly owned by its payer and moves no balance.
func ComputeBalances(members []*group.Member, transactions []*transaction.Transaction) []*Balance {
	amounts := make(map[int64]float64, len(members))
	for _, m := range members {
		amounts[m.ID] = 0
	}

	for _, t := range transactions {
		if t.PaidBy == nil || len(t.Splits) == 0 {
			continue
		}
		amounts[*t.PaidBy] += t.Amount
		for _, s := range t.Splits {
			amounts[s.MemberID] -= s.Share
		}
	}

	balances := make([]*Balance, len(members))
	for i, m := range members {
		balances[i] = &Balance{
			MemberID:    m.ID,
			UserID:      m.UserID,
			Email:       m.Email,
			DisplayName: m.DisplayName(),
			Amount:      round2(amounts[m.ID]),
		}
	}

	return balances
}

// epsilon is one minor unit: balances inside it are treated as settled
const epsilon = 0.01

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
