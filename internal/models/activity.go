package models

import "github.com/shopspring/decimal"

// ActivityType identifies what an Activity records.
type ActivityType string

const (
	ActivityExpenseAdded      ActivityType = "expense_added"
	ActivityExpenseEdited     ActivityType = "expense_edited"
	ActivityExpenseDeleted    ActivityType = "expense_deleted"
	ActivitySettlement        ActivityType = "settlement"
	ActivitySettlementDeleted ActivityType = "settlement_deleted"
	ActivityGroupCreated      ActivityType = "group_created"
	ActivityFriendAdded       ActivityType = "friend_added"
)

// ValidActivityType reports whether t is a known activity type.
func ValidActivityType(t ActivityType) bool {
	switch t {
	case ActivityExpenseAdded, ActivityExpenseEdited, ActivityExpenseDeleted,
		ActivitySettlement, ActivitySettlementDeleted, ActivityGroupCreated, ActivityFriendAdded:
		return true
	}
	return false
}

// Activity is an append-only feed entry. It is written in the same
// transaction as the change it describes and outlives the expense or
// settlement it refers to.
type Activity struct {
	// Seq orders activities; higher is newer. Used as a pagination cursor.
	Seq int64

	ID      string
	Type    ActivityType
	ActorID string

	// At most one of these is set, depending on Type (GroupID may also
	// accompany an expense or settlement).
	GroupID      string
	ExpenseID    string
	SettlementID string

	// Amount and Description snapshot the subject at the time of the change.
	Amount      decimal.Decimal
	Description string

	// Involved lists every user the activity is visible to.
	Involved []string

	CreatedAt int64
}
