package split

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func sumShares(shares []Share) float64 {
	var total float64
	for _, s := range shares {
		total += s.Amount
	}
	return total
}

func TestFactory_Create(t *testing.T) {
	factory := NewFactory()

	tests := []struct {
		mode    string
		want    Mode
		wantErr bool
	}{
		{mode: "EQUAL", want: ModeEqual},
		{mode: "PERCENT", want: ModePercent},
		{mode: "EXACT", want: ModeExact},
		{mode: "RATIO", wantErr: true},
		{mode: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			strategy, err := factory.CreateFromString(tt.mode)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, strategy.Mode())
		})
	}
}

func TestEqualStrategy_Compute(t *testing.T) {
	strategy := &EqualStrategy{}

	t.Run("splits evenly when divisible", func(t *testing.T) {
		shares, err := strategy.Compute(300, []Input{{MemberID: 1}, {MemberID: 2}, {MemberID: 3}})
		require.NoError(t, err)
		require.Len(t, shares, 3)
		for _, s := range shares {
			assert.Equal(t, 100.0, s.Amount)
		}
	})

	t.Run("last participant absorbs the remainder", func(t *testing.T) {
		shares, err := strategy.Compute(100, []Input{{MemberID: 1}, {MemberID: 2}, {MemberID: 3}})
		require.NoError(t, err)
		require.Len(t, shares, 3)
		assert.Equal(t, 33.33, shares[0].Amount)
		assert.Equal(t, 33.33, shares[1].Amount)
		assert.Equal(t, 33.34, shares[2].Amount)
		assert.Equal(t, 100.0, sumShares(shares))
	})

	t.Run("single participant takes everything", func(t *testing.T) {
		shares, err := strategy.Compute(42.37, []Input{{MemberID: 7}})
		require.NoError(t, err)
		require.Len(t, shares, 1)
		assert.Equal(t, 42.37, shares[0].Amount)
	})

	t.Run("shares always sum exactly to the total", func(t *testing.T) {
		totals := []float64{0.01, 0.05, 1, 10.01, 99.99, 1234.56}
		for _, total := range totals {
			for n := 1; n <= 7; n++ {
				participants := make([]Input, n)
				for i := range participants {
					participants[i] = Input{MemberID: int64(i + 1)}
				}
				shares, err := strategy.Compute(total, participants)
				require.NoError(t, err)
				assert.InDelta(t, total, sumShares(shares), 0.0001,
					"total %.2f over %d participants", total, n)
			}
		}
	})

	t.Run("rejects empty participants", func(t *testing.T) {
		_, err := strategy.Compute(100, nil)
		assert.ErrorIs(t, err, ErrNoParticipants)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := strategy.Compute(0, []Input{{MemberID: 1}})
		assert.ErrorIs(t, err, ErrNonPositiveAmount)
	})
}

func TestPercentStrategy_Compute(t *testing.T) {
	strategy := &PercentStrategy{}

	t.Run("distributes by percentage", func(t *testing.T) {
		shares, err := strategy.Compute(200, []Input{
			{MemberID: 1, Percent: f64(50)},
			{MemberID: 2, Percent: f64(30)},
			{MemberID: 3, Percent: f64(20)},
		})
		require.NoError(t, err)
		assert.Equal(t, 100.0, shares[0].Amount)
		assert.Equal(t, 60.0, shares[1].Amount)
		assert.Equal(t, 40.0, shares[2].Amount)
	})

	t.Run("last participant absorbs rounding drift", func(t *testing.T) {
		shares, err := strategy.Compute(100, []Input{
			{MemberID: 1, Percent: f64(33.33)},
			{MemberID: 2, Percent: f64(33.33)},
			{MemberID: 3, Percent: f64(33.34)},
		})
		require.NoError(t, err)
		assert.Equal(t, 100.0, sumShares(shares))
	})

	t.Run("rejects percentages not summing to 100", func(t *testing.T) {
		_, err := strategy.Compute(100, []Input{
			{MemberID: 1, Percent: f64(50)},
			{MemberID: 2, Percent: f64(40)},
		})
		require.ErrorIs(t, err, ErrPercentTotal)
		assert.Contains(t, err.Error(), "90.00")
	})

	t.Run("rejects missing percent", func(t *testing.T) {
		_, err := strategy.Compute(100, []Input{
			{MemberID: 1, Percent: f64(100)},
			{MemberID: 2},
		})
		assert.ErrorIs(t, err, ErrMissingPercent)
	})

	t.Run("rejects out-of-range percent", func(t *testing.T) {
		_, err := strategy.Compute(100, []Input{
			{MemberID: 1, Percent: f64(150)},
			{MemberID: 2, Percent: f64(-50)},
		})
		assert.ErrorIs(t, err, ErrPercentOutOfRange)
	})
}

func TestExactStrategy_Compute(t *testing.T) {
	strategy := &ExactStrategy{}

	t.Run("uses the supplied shares", func(t *testing.T) {
		shares, err := strategy.Compute(250, []Input{
			{MemberID: 1, Amount: f64(150)},
			{MemberID: 2, Amount: f64(100)},
		})
		require.NoError(t, err)
		assert.Equal(t, 150.0, shares[0].Amount)
		assert.Equal(t, 100.0, shares[1].Amount)
	})

	t.Run("tolerates one minor unit of drift", func(t *testing.T) {
		_, err := strategy.Compute(100, []Input{
			{MemberID: 1, Amount: f64(50)},
			{MemberID: 2, Amount: f64(49.99)},
		})
		assert.NoError(t, err)
	})

	t.Run("rejects mismatched totals with both numbers in the message", func(t *testing.T) {
		_, err := strategy.Compute(300, []Input{
			{MemberID: 1, Amount: f64(150)},
			{MemberID: 2, Amount: f64(149)},
		})
		require.ErrorIs(t, err, ErrShareTotal)
		assert.Contains(t, err.Error(), "299.00")
		assert.Contains(t, err.Error(), "300.00")
	})

	t.Run("allows a zero share", func(t *testing.T) {
		shares, err := strategy.Compute(100, []Input{
			{MemberID: 1, Amount: f64(100)},
			{MemberID: 2, Amount: f64(0)},
		})
		require.NoError(t, err)
		assert.Equal(t, 0.0, shares[1].Amount)
	})

	t.Run("rejects negative shares", func(t *testing.T) {
		_, err := strategy.Compute(100, []Input{
			{MemberID: 1, Amount: f64(150)},
			{MemberID: 2, Amount: f64(-50)},
		})
		assert.ErrorIs(t, err, ErrNegativeShare)
	})

	t.Run("rejects missing amounts", func(t *testing.T) {
		_, err := strategy.Compute(100, []Input{
			{MemberID: 1, Amount: f64(100)},
			{MemberID: 2},
		})
		assert.ErrorIs(t, err, ErrMissingAmount)
	})
}
