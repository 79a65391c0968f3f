package split

// EqualStrategy divides the amount evenly among all participants. The
// final participant absorbs the rounding remainder so the shares sum
// exactly to the amount.
type EqualStrategy struct{}

// Mode returns the split mode identifier
func (s *EqualStrategy) Mode() Mode {
	return ModeEqual
}

// Validate checks if the inputs are valid for an equal split
func (s *EqualStrategy) Validate(total float64, participants []Input) error {
	if len(participants) == 0 {
		return ErrNoParticipants
	}
	if total <= 0 {
		return ErrNonPositiveAmount
	}
	return nil
}

// Compute divides the total evenly, assigning the rounding remainder to
// the last participant. A single participant receives the full amount.
func (s *EqualStrategy) Compute(total float64, participants []Input) ([]Share, error) {
	if err := s.Validate(total, participants); err != nil {
		return nil, err
	}

	perHead := round2(total / float64(len(participants)))

	shares := make([]Share, len(participants))
	var distributed float64
	for i, p := range participants {
		amount := perHead
		if i == len(participants)-1 {
			// Remainder absorption: the last share closes the gap so the
			// sum equals the total exactly
			amount = round2(total - distributed)
		}
		distributed = round2(distributed + amount)
		shares[i] = Share{MemberID: p.MemberID, Amount: amount}
	}

	return shares, nil
}
