package models

import "github.com/shopspring/decimal"

// Payment methods accepted for settlements.
const (
	MethodCash         = "cash"
	MethodBankTransfer = "bank_transfer"
	MethodPayPal       = "paypal"
	MethodVenmo        = "venmo"
	MethodOther        = "other"
)

// ValidMethod reports whether m is a known payment method.
func ValidMethod(m string) bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodPayPal, MethodVenmo, MethodOther:
		return true
	}
	return false
}

// Settlement represents a payment between two users to clear debts.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// FromUserID is the user who paid (debtor settling up).
	FromUserID string

	// ToUserID is the user who received payment (creditor being paid).
	ToUserID string

	// Amount is the payment amount.
	Amount decimal.Decimal

	// Method is how the payment was made (cash, venmo, ...).
	Method string

	// Note is an optional description for the settlement.
	Note string

	// GroupID scopes the settlement to a group's balances. Empty means the
	// settlement applies to the users' balance outside any group.
	GroupID string

	// CreatedBy is the user ID who recorded this settlement.
	CreatedBy string

	// RequestID is an optional client-supplied idempotency key.
	RequestID string

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64
}
