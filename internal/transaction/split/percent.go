package split

import (
	"fmt"
	"math"
)

// PercentStrategy divides the amount according to a percentage per
// participant. Percentages must sum to 100 within ±0.01.
type PercentStrategy struct{}

// Mode returns the split mode identifier
func (s *PercentStrategy) Mode() Mode {
	return ModePercent
}

// Validate checks if the inputs are valid for a percent split
func (s *PercentStrategy) Validate(total float64, participants []Input) error {
	if len(participants) == 0 {
		return ErrNoParticipants
	}
	if total <= 0 {
		return ErrNonPositiveAmount
	}

	var totalPercent float64
	for _, p := range participants {
		if p.Percent == nil {
			return ErrMissingPercent
		}
		if *p.Percent < 0 || *p.Percent > 100 {
			return ErrPercentOutOfRange
		}
		totalPercent += *p.Percent
	}

	if math.Abs(totalPercent-100) > epsilon {
		return fmt.Errorf("%w: got %.2f, expected 100.00", ErrPercentTotal, totalPercent)
	}

	return nil
}

// Compute assigns each participant their percentage of the total, with
// the last participant absorbing the rounding remainder.
func (s *PercentStrategy) Compute(total float64, participants []Input) ([]Share, error) {
	if err := s.Validate(total, participants); err != nil {
		return nil, err
	}

	shares := make([]Share, len(participants))
	var distributed float64
	for i, p := range participants {
		amount := round2(total * (*p.Percent) / 100)
		if i == len(participants)-1 {
			amount = round2(total - distributed)
		}
		distributed = round2(distributed + amount)
		shares[i] = Share{MemberID: p.MemberID, Amount: amount}
	}

	return shares, nil
}
