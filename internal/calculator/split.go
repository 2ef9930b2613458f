package calculator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// SplitType selects how an expense amount is divided among participants.
type SplitType string

const (
	// SplitEqual divides the amount evenly. Leftover cents go to the first
	// participants in input order.
	SplitEqual SplitType = "equal"
	// SplitExact uses the amounts given for each participant, rounded to
	// cents.
	SplitExact SplitType = "exact"
	// SplitPercent treats each value as a percentage of the amount.
	SplitPercent SplitType = "percent"
	// SplitShares treats each value as a relative weight.
	SplitShares SplitType = "shares"
)

var (
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrAmountPrecision      = errors.New("amount must have at most two decimal places")
	ErrNoParticipants       = errors.New("must have at least one participant")
	ErrMissingParticipant   = errors.New("participant id required")
	ErrDuplicateParticipant = errors.New("participant listed more than once")
	ErrNegativeShare        = errors.New("split values cannot be negative")
	ErrSplitMismatch        = errors.New("split amounts must add up to the expense amount")
	ErrPercentTotal         = errors.New("percentages must add up to 100")
	ErrZeroShares           = errors.New("at least one share must be greater than zero")
	ErrUnknownSplitType     = errors.New("unknown split type")
)

const centPlaces = 2

var hundred = decimal.NewFromInt(100)

// Share is one participant's input to a split. Value is an exact amount,
// a percentage or a weight depending on the SplitType, and is ignored for
// equal splits.
type Share struct {
	UserID string
	Value  decimal.Decimal
}

// Split is one participant's computed portion of an expense.
type Split struct {
	UserID string
	Amount decimal.Decimal
}

// ParseSplitType converts a wire value to a SplitType. Empty means equal.
func ParseSplitType(s string) (SplitType, error) {
	switch SplitType(s) {
	case "", SplitEqual:
		return SplitEqual, nil
	case SplitExact, SplitPercent, SplitShares:
		return SplitType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSplitType, s)
	}
}

// ValidateAmount checks that amount is a positive number of whole cents.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(centPlaces)) {
		return ErrAmountPrecision
	}
	return nil
}

// ComputeSplits divides amount among the participants in shares according
// to splitType. The returned amounts always add up to amount exactly and
// are returned in input order.
func ComputeSplits(amount decimal.Decimal, splitType SplitType, shares []Share) ([]Split, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}
	if len(shares) == 0 {
		return nil, ErrNoParticipants
	}
	if err := checkParticipants(shares); err != nil {
		return nil, err
	}

	weights := make([]decimal.Decimal, len(shares))
	switch splitType {
	case SplitEqual, "":
		for i := range weights {
			weights[i] = decimal.NewFromInt(1)
		}

	case SplitExact:
		splits := make([]Split, len(shares))
		for i, s := range shares {
			splits[i] = Split{UserID: s.UserID, Amount: s.Value.Round(centPlaces)}
		}
		if err := ValidateSplits(amount, splits); err != nil {
			return nil, err
		}
		return splits, nil

	case SplitPercent:
		total := decimal.Zero
		for i, s := range shares {
			if s.Value.IsNegative() {
				return nil, ErrNegativeShare
			}
			weights[i] = s.Value
			total = total.Add(s.Value)
		}
		if !total.Equal(hundred) {
			return nil, fmt.Errorf("%w: got %s", ErrPercentTotal, total.String())
		}

	case SplitShares:
		total := decimal.Zero
		for i, s := range shares {
			if s.Value.IsNegative() {
				return nil, ErrNegativeShare
			}
			weights[i] = s.Value
			total = total.Add(s.Value)
		}
		if total.IsZero() {
			return nil, ErrZeroShares
		}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSplitType, splitType)
	}

	cents := allocate(amount.Shift(centPlaces), weights)
	splits := make([]Split, len(shares))
	for i, s := range shares {
		splits[i] = Split{UserID: s.UserID, Amount: cents[i].Shift(-centPlaces)}
	}
	if err := ValidateSplits(amount, splits); err != nil {
		return nil, fmt.Errorf("allocating %s: %w", amount.String(), err)
	}
	return splits, nil
}

// ValidateSplits checks that splits form a complete division of amount:
// at least one participant, no duplicates, no negative or fractional-cent
// amounts, and a sum equal to amount.
func ValidateSplits(amount decimal.Decimal, splits []Split) error {
	if len(splits) == 0 {
		return ErrNoParticipants
	}
	seen := make(map[string]bool, len(splits))
	sum := decimal.Zero
	for _, s := range splits {
		if s.UserID == "" {
			return ErrMissingParticipant
		}
		if seen[s.UserID] {
			return fmt.Errorf("%w: %s", ErrDuplicateParticipant, s.UserID)
		}
		seen[s.UserID] = true
		if s.Amount.IsNegative() {
			return ErrNegativeShare
		}
		if !s.Amount.Equal(s.Amount.Round(centPlaces)) {
			return ErrAmountPrecision
		}
		sum = sum.Add(s.Amount)
	}
	if !sum.Equal(amount) {
		return fmt.Errorf("%w: splits total %s, expense is %s", ErrSplitMismatch, sum.StringFixed(centPlaces), amount.StringFixed(centPlaces))
	}
	return nil
}

// Total returns the sum of the split amounts.
func Total(splits []Split) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range splits {
		sum = sum.Add(s.Amount)
	}
	return sum
}

func checkParticipants(shares []Share) error {
	seen := make(map[string]bool, len(shares))
	for _, s := range shares {
		if s.UserID == "" {
			return ErrMissingParticipant
		}
		if seen[s.UserID] {
			return fmt.Errorf("%w: %s", ErrDuplicateParticipant, s.UserID)
		}
		seen[s.UserID] = true
	}
	return nil
}

// allocate distributes a whole number of cents proportionally to weights
// using the largest remainder method. Ties are broken by input order. The
// result always sums to cents.
func allocate(cents decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	total := decimal.Zero
	for _, w := range weights {
		total = total.Add(w)
	}

	type part struct {
		index     int
		remainder decimal.Decimal
	}

	out := make([]decimal.Decimal, len(weights))
	parts := make([]part, len(weights))
	assigned := decimal.Zero
	for i, w := range weights {
		q, r := cents.Mul(w).QuoRem(total, 0)
		out[i] = q
		assigned = assigned.Add(q)
		parts[i] = part{index: i, remainder: r}
	}

	sort.SliceStable(parts, func(a, b int) bool {
		return parts[a].remainder.GreaterThan(parts[b].remainder)
	})
	// Fewer leftover cents than participants, so this fits an int.
	leftover := int(cents.Sub(assigned).IntPart())
	for i := 0; i < leftover; i++ {
		out[parts[i].index] = out[parts[i].index].Add(decimal.NewFromInt(1))
	}
	return out
}
