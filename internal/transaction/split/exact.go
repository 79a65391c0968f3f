package split

import (
	"fmt"
	"math"
)

// ExactStrategy takes a caller-supplied monetary share per participant.
// The shares must sum to the transaction amount within one minor unit.
type ExactStrategy struct{}

// Mode returns the split mode identifier
func (s *ExactStrategy) Mode() Mode {
	return ModeExact
}

// Validate checks if the inputs are valid for an exact split. The error
// for a mismatched total names both numbers; the UI surfaces it as is.
func (s *ExactStrategy) Validate(total float64, participants []Input) error {
	if len(participants) == 0 {
		return ErrNoParticipants
	}
	if total <= 0 {
		return ErrNonPositiveAmount
	}

	var totalShares float64
	for _, p := range participants {
		if p.Amount == nil {
			return ErrMissingAmount
		}
		if *p.Amount < 0 {
			return ErrNegativeShare
		}
		totalShares += *p.Amount
	}

	if math.Abs(totalShares-total) > epsilon {
		return fmt.Errorf("%w: shares total %.2f does not match transaction total %.2f",
			ErrShareTotal, totalShares, total)
	}

	return nil
}

// Compute returns the supplied shares at minor-unit precision.
func (s *ExactStrategy) Compute(total float64, participants []Input) ([]Share, error) {
	if err := s.Validate(total, participants); err != nil {
		return nil, err
	}

	shares := make([]Share, len(participants))
	for i, p := range participants {
		shares[i] = Share{MemberID: p.MemberID, Amount: round2(*p.Amount)}
	}

	return shares, nil
}
