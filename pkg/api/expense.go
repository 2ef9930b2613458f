package api

import "github.com/shopspring/decimal"

// Share is one participant's input to a split. Value is an exact amount, a
// percentage or a weight depending on the split type, and is ignored for
// equal splits.
type Share struct {
	UserID string          `json:"userId"`
	Value  decimal.Decimal `json:"value"`
}

type Split struct {
	UserID string          `json:"userId"`
	Amount decimal.Decimal `json:"amount"`
}

type Expense struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	PaidBy      string          `json:"paidBy"`
	CreatedBy   string          `json:"createdBy"`
	GroupID     string          `json:"groupId,omitempty"`
	SplitType   string          `json:"splitType"`
	Splits      []*Split        `json:"splits"`
	Version     int64           `json:"version"`
	CreatedAt   int64           `json:"createdAt"`
	UpdatedAt   int64           `json:"updatedAt"`
}

type CreateExpenseRequest struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	// Date is YYYY-MM-DD and defaults to today.
	Date     string `json:"date,omitempty"`
	Category string `json:"category,omitempty"`
	// PaidBy defaults to the caller.
	PaidBy       string   `json:"paidBy,omitempty"`
	GroupID      string   `json:"groupId,omitempty"`
	SplitType    string   `json:"splitType,omitempty"`
	Participants []*Share `json:"participants"`
	// RequestID makes retries safe: a second create with the same id
	// returns the first expense.
	RequestID string `json:"requestId,omitempty"`
}

type CreateExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type GetExpenseRequest struct {
	ExpenseID string `json:"expenseId"`
}

type GetExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type UpdateExpenseRequest struct {
	ExpenseID string `json:"expenseId"`
	// Version must match the stored version.
	Version      int64           `json:"version"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Date         string          `json:"date,omitempty"`
	Category     string          `json:"category,omitempty"`
	PaidBy       string          `json:"paidBy,omitempty"`
	SplitType    string          `json:"splitType,omitempty"`
	Participants []*Share        `json:"participants"`
}

type UpdateExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expenseId"`
}

type DeleteExpenseResponse struct{}

type ListExpensesRequest struct {
	// GroupID lists one group's expenses. Otherwise the caller's expenses
	// are listed, optionally only those shared with FriendID.
	GroupID  string `json:"groupId,omitempty"`
	FriendID string `json:"friendId,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type PreviewSplitsRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	SplitType    string          `json:"splitType,omitempty"`
	Participants []*Share        `json:"participants"`
}

type PreviewSplitsResponse struct {
	Splits []*Split `json:"splits"`
}
