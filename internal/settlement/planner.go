package settlement

import (
	"math"
	"sort"
)

// Transfer is one suggested repayment: From pays To the Amount.
type Transfer struct {
	FromMemberID int64   `json:"from_member_id"`
	FromName     string  `json:"from_name"`
	ToMemberID   int64   `json:"to_member_id"`
	ToName       string  `json:"to_name"`
	Amount       float64 `json:"amount"`
}

// Plan produces a minimal set of transfers that zeroes the balances.
// Creditors and debtors are each taken largest first, ties broken by
// the incoming balance order, and matched greedily; each transfer
// extinguishes at least one side, so a group of n members never needs
// more than n-1 transfers. Balances within one minor unit of zero are
// already settled and produce nothing.
func Plan(balances []*Balance) []*Transfer {
	var creditors, debtors []*Balance
	for _, b := range balances {
		switch {
		case b.Amount > epsilon:
			creditors = append(creditors, &Balance{
				MemberID:    b.MemberID,
				DisplayName: b.DisplayName,
				Amount:      b.Amount,
			})
		case b.Amount < -epsilon:
			debtors = append(debtors, &Balance{
				MemberID:    b.MemberID,
				DisplayName: b.DisplayName,
				Amount:      -b.Amount,
			})
		}
	}

	sortByAmountDesc(creditors)
	sortByAmountDesc(debtors)

	transfers := []*Transfer{}
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor, creditor := debtors[i], creditors[j]
		amount := round2(math.Min(debtor.Amount, creditor.Amount))

		transfers = append(transfers, &Transfer{
			FromMemberID: debtor.MemberID,
			FromName:     debtor.DisplayName,
			ToMemberID:   creditor.MemberID,
			ToName:       creditor.DisplayName,
			Amount:       amount,
		})

		debtor.Amount = round2(debtor.Amount - amount)
		creditor.Amount = round2(creditor.Amount - amount)

		if debtor.Amount <= epsilon {
			i++
		}
		if creditor.Amount <= epsilon {
			j++
		}
	}

	return transfers
}

// sortByAmountDesc orders by amount descending, keeping the incoming
// order for equal amounts so the plan is deterministic
func sortByAmountDesc(balances []*Balance) {
	sort.SliceStable(balances, func(a, b int) bool {
		return balances[a].Amount > balances[b].Amount
	})
}
