package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Categories offered for expenses. Anything else is stored as CategoryGeneral.
const (
	CategoryGeneral       = "General"
	CategoryFood          = "Food"
	CategoryTransport     = "Transport"
	CategoryEntertainment = "Entertainment"
	CategoryShopping      = "Shopping"
	CategoryBills         = "Bills"
	CategoryOther         = "Other"
)

var categories = []string{
	CategoryGeneral,
	CategoryFood,
	CategoryTransport,
	CategoryEntertainment,
	CategoryShopping,
	CategoryBills,
	CategoryOther,
}

// NormalizeCategory returns the canonical spelling of c, matched
// case-insensitively. Unknown or empty categories map to CategoryGeneral.
func NormalizeCategory(c string) string {
	c = strings.TrimSpace(c)
	for _, known := range categories {
		if strings.EqualFold(c, known) {
			return known
		}
	}
	return CategoryGeneral
}

// DateLayout is the format of Expense.Date.
const DateLayout = "2006-01-02"

// Expense is something one user paid for on behalf of one or more
// participants.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// Description is what the money was spent on.
	Description string

	// Amount is the total paid. Always equals the sum of Splits.
	Amount decimal.Decimal

	// Date is the calendar day of the expense in DateLayout format.
	Date string

	// Category is one of the Category* constants.
	Category string

	// PaidBy is the user ID of the payer.
	PaidBy string

	// CreatedBy is the user ID of whoever recorded the expense.
	CreatedBy string

	// GroupID is the group the expense belongs to. Empty for expenses
	// between friends outside any group.
	GroupID string

	// SplitType records how the splits were computed (equal, exact,
	// percent, shares).
	SplitType string

	// Splits are the participants' portions.
	Splits []ExpenseSplit

	// Version starts at 1 and increments on every update.
	Version int64

	// RequestID is an optional client-supplied idempotency key, unique per
	// creator.
	RequestID string

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// ExpenseSplit is one participant's portion of an expense.
type ExpenseSplit struct {
	ExpenseID string
	UserID    string
	Amount    decimal.Decimal
}

// Participants returns the payer followed by every split user not already
// listed.
func (e *Expense) Participants() []string {
	seen := map[string]bool{e.PaidBy: true}
	out := []string{e.PaidBy}
	for _, s := range e.Splits {
		if !seen[s.UserID] {
			seen[s.UserID] = true
			out = append(out, s.UserID)
		}
	}
	return out
}

// Involves reports whether userID paid for or shares in the expense.
func (e *Expense) Involves(userID string) bool {
	if e.PaidBy == userID {
		return true
	}
	for _, s := range e.Splits {
		if s.UserID == userID {
			return true
		}
	}
	return false
}
