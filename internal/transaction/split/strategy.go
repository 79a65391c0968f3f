package split

import (
	"errors"
	"fmt"
	"math"
)

// Mode defines how a transaction amount is distributed across participants
type Mode string

const (
	ModeEqual   Mode = "EQUAL"
	ModePercent Mode = "PERCENT"
	ModeExact   Mode = "EXACT"
)

// Input represents a participant in a split with mode-specific values
type Input struct {
	MemberID int64    `json:"member_id"`
	Percent  *float64 `json:"percent,omitempty"` // For PERCENT mode
	Amount   *float64 `json:"amount,omitempty"`  // For EXACT mode
}

// Share is the computed share for a single participant. The payer is a
// participant like any other; the shares of all participants always sum
// exactly to the transaction amount.
type Share struct {
	MemberID int64   `json:"member_id"`
	Amount   float64 `json:"amount"`
}

// Strategy is the interface that all split modes implement
type Strategy interface {
	// Compute produces one share per participant, summing exactly to total
	Compute(total float64, participants []Input) ([]Share, error)

	// Mode returns the mode identifier for this strategy
	Mode() Mode

	// Validate checks if the inputs are valid for this mode
	Validate(total float64, participants []Input) error
}

// Factory creates split strategies based on the requested mode
type Factory struct{}

// NewFactory creates a new factory instance
func NewFactory() *Factory {
	return &Factory{}
}

// Create returns the strategy implementation for the mode
func (f *Factory) Create(mode Mode) (Strategy, error) {
	switch mode {
	case ModeEqual:
		return &EqualStrategy{}, nil
	case ModePercent:
		return &PercentStrategy{}, nil
	case ModeExact:
		return &ExactStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown split mode: %s", mode)
	}
}

// CreateFromString creates a strategy from a string mode (useful for API requests)
func (f *Factory) CreateFromString(mode string) (Strategy, error) {
	return f.Create(Mode(mode))
}

var (
	ErrNoParticipants    = errors.New("at least one participant is required")
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
	ErrPercentTotal      = errors.New("percentages must sum to 100")
	ErrShareTotal        = errors.New("shares must sum to the transaction amount")
	ErrMissingPercent    = errors.New("percent value required for all participants")
	ErrMissingAmount     = errors.New("exact amount required for all participants")
	ErrPercentOutOfRange = errors.New("percent must be between 0 and 100")
	ErrNegativeShare     = errors.New("shares cannot be negative")
)

// epsilon is one minor unit: the tolerance for caller-supplied totals
const epsilon = 0.01

// round2 rounds a value to minor-unit (two decimal) precision
func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
