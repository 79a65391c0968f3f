package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func balance(memberID int64, name string, amount float64) *Balance {
	return &Balance{MemberID: memberID, DisplayName: name, Amount: amount}
}

// applyTransfers replays a plan against the balances and returns the
// residual per member.
func applyTransfers(balances []*Balance, transfers []*Transfer) map[int64]float64 {
	residual := make(map[int64]float64, len(balances))
	for _, b := range balances {
		residual[b.MemberID] = b.Amount
	}
	for _, t := range transfers {
		residual[t.FromMemberID] = round2(residual[t.FromMemberID] + t.Amount)
		residual[t.ToMemberID] = round2(residual[t.ToMemberID] - t.Amount)
	}
	return residual
}

func TestPlan(t *testing.T) {
	t.Run("settled group produces no transfers", func(t *testing.T) {
		balances := []*Balance{
			balance(1, "Alice", 0),
			balance(2, "Bob", 0),
		}
		assert.Empty(t, Plan(balances))
	})

	t.Run("one creditor two debtors", func(t *testing.T) {
		// Alice paid 300 split equally across three members.
		balances := []*Balance{
			balance(1, "Alice", 200),
			balance(2, "Bob", -100),
			balance(3, "Carol", -100),
		}

		transfers := Plan(balances)
		require.Len(t, transfers, 2)

		assert.Equal(t, int64(2), transfers[0].FromMemberID)
		assert.Equal(t, int64(1), transfers[0].ToMemberID)
		assert.Equal(t, 100.0, transfers[0].Amount)
		assert.Equal(t, "Bob", transfers[0].FromName)
		assert.Equal(t, "Alice", transfers[0].ToName)

		assert.Equal(t, int64(3), transfers[1].FromMemberID)
		assert.Equal(t, int64(1), transfers[1].ToMemberID)
		assert.Equal(t, 100.0, transfers[1].Amount)
	})

	t.Run("largest balances match first", func(t *testing.T) {
		balances := []*Balance{
			balance(1, "Alice", 50),
			balance(2, "Bob", 150),
			balance(3, "Carol", -120),
			balance(4, "Dave", -80),
		}

		transfers := Plan(balances)
		require.NotEmpty(t, transfers)
		assert.Equal(t, int64(3), transfers[0].FromMemberID)
		assert.Equal(t, int64(2), transfers[0].ToMemberID)
		assert.Equal(t, 120.0, transfers[0].Amount)
	})

	t.Run("plan zeroes the balances", func(t *testing.T) {
		cases := [][]*Balance{
			{
				balance(1, "Alice", 200),
				balance(2, "Bob", -100),
				balance(3, "Carol", -100),
			},
			{
				balance(1, "Alice", 33.34),
				balance(2, "Bob", -33.33),
				balance(3, "Carol", -0.01),
			},
			{
				balance(1, "Alice", 10.5),
				balance(2, "Bob", -3.5),
				balance(3, "Carol", -3.5),
				balance(4, "Dave", -3.5),
			},
			{
				balance(1, "Alice", 75.25),
				balance(2, "Bob", 24.75),
				balance(3, "Carol", -50),
				balance(4, "Dave", -50),
			},
		}

		for _, balances := range cases {
			transfers := Plan(balances)
			residual := applyTransfers(balances, transfers)
			for memberID, amount := range residual {
				assert.InDelta(t, 0.0, amount, epsilon, "member %d", memberID)
			}
		}
	})

	t.Run("never needs more than n-1 transfers", func(t *testing.T) {
		balances := []*Balance{
			balance(1, "Alice", 40),
			balance(2, "Bob", 30),
			balance(3, "Carol", -25),
			balance(4, "Dave", -25),
			balance(5, "Eve", -20),
		}

		transfers := Plan(balances)
		assert.LessOrEqual(t, len(transfers), len(balances)-1)
	})

	t.Run("near-zero balances are already settled", func(t *testing.T) {
		balances := []*Balance{
			balance(1, "Alice", 0.01),
			balance(2, "Bob", -0.01),
		}
		assert.Empty(t, Plan(balances))
	})

	t.Run("equal amounts keep the incoming member order", func(t *testing.T) {
		balances := []*Balance{
			balance(1, "Alice", 50),
			balance(2, "Bob", 50),
			balance(3, "Carol", -50),
			balance(4, "Dave", -50),
		}

		first := Plan(balances)
		second := Plan(balances)
		require.Equal(t, first, second)

		assert.Equal(t, int64(3), first[0].FromMemberID)
		assert.Equal(t, int64(1), first[0].ToMemberID)
	})

	t.Run("does not mutate the input balances", func(t *testing.T) {
		balances := []*Balance{
			balance(1, "Alice", 100),
			balance(2, "Bob", -100),
		}
		Plan(balances)
		assert.Equal(t, 100.0, balances[0].Amount)
		assert.Equal(t, -100.0, balances[1].Amount)
	})
}
