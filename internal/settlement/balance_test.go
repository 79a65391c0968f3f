package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetbook/internal/group"
	"budgetbook/internal/transaction"
)

func member(id int64, email string) *group.Member {
	return &group.Member{
		ID:     id,
		Email:  email,
		Role:   group.MemberRoleMember,
		Status: group.MemberStatusAccepted,
	}
}

func groupTx(paidBy int64, amount float64, shares map[int64]float64) *transaction.Transaction {
	t := &transaction.Transaction{PaidBy: &paidBy, Amount: amount}
	for memberID, share := range shares {
		t.Splits = append(t.Splits, &transaction.Split{MemberID: memberID, Share: share})
	}
	return t
}

func sumBalances(balances []*Balance) float64 {
	var total float64
	for _, b := range balances {
		total += b.Amount
	}
	return total
}

func TestComputeBalances(t *testing.T) {
	members := []*group.Member{
		member(1, "alice@example.com"),
		member(2, "bob@example.com"),
		member(3, "carol@example.com"),
	}

	t.Run("empty ledger yields all zeros", func(t *testing.T) {
		balances := ComputeBalances(members, nil)
		require.Len(t, balances, 3)
		for _, b := range balances {
			assert.Equal(t, 0.0, b.Amount)
		}
	})

	t.Run("equal three-way split", func(t *testing.T) {
		// Alice pays 300, split equally across all three.
		txs := []*transaction.Transaction{
			groupTx(1, 300, map[int64]float64{1: 100, 2: 100, 3: 100}),
		}

		balances := ComputeBalances(members, txs)
		require.Len(t, balances, 3)
		assert.Equal(t, 200.0, balances[0].Amount)
		assert.Equal(t, -100.0, balances[1].Amount)
		assert.Equal(t, -100.0, balances[2].Amount)
	})

	t.Run("balances follow the stored member order", func(t *testing.T) {
		txs := []*transaction.Transaction{
			groupTx(2, 90, map[int64]float64{1: 30, 2: 30, 3: 30}),
		}

		balances := ComputeBalances(members, txs)
		assert.Equal(t, int64(1), balances[0].MemberID)
		assert.Equal(t, int64(2), balances[1].MemberID)
		assert.Equal(t, int64(3), balances[2].MemberID)
	})

	t.Run("transactions without splits move no balance", func(t *testing.T) {
		payer := int64(1)
		txs := []*transaction.Transaction{
			{PaidBy: &payer, Amount: 500},
		}

		balances := ComputeBalances(members, txs)
		for _, b := range balances {
			assert.Equal(t, 0.0, b.Amount)
		}
	})

	t.Run("balances always sum to zero", func(t *testing.T) {
		txs := []*transaction.Transaction{
			groupTx(1, 100, map[int64]float64{1: 33.33, 2: 33.33, 3: 33.34}),
			groupTx(2, 47.5, map[int64]float64{1: 23.75, 2: 23.75}),
			groupTx(3, 12.99, map[int64]float64{3: 0, 1: 12.99}),
			groupTx(1, 0.03, map[int64]float64{1: 0.01, 2: 0.01, 3: 0.01}),
		}

		balances := ComputeBalances(members, txs)
		assert.InDelta(t, 0.0, sumBalances(balances), 0.001)
	})

	t.Run("settlement shifts balance between debtor and creditor", func(t *testing.T) {
		txs := []*transaction.Transaction{
			// Alice pays 300 equal, then Bob settles his 100 back.
			groupTx(1, 300, map[int64]float64{1: 100, 2: 100, 3: 100}),
			groupTx(2, 100, map[int64]float64{1: 100}),
		}

		balances := ComputeBalances(members, txs)
		assert.Equal(t, 100.0, balances[0].Amount)
		assert.Equal(t, 0.0, balances[1].Amount)
		assert.Equal(t, -100.0, balances[2].Amount)
	})
}
