package api

import "github.com/shopspring/decimal"

type Activity struct {
	ID           string          `json:"id"`
	Seq          int64           `json:"seq"`
	Type         string          `json:"type"`
	ActorID      string          `json:"actorId"`
	ActorName    string          `json:"actorName,omitempty"`
	GroupID      string          `json:"groupId,omitempty"`
	ExpenseID    string          `json:"expenseId,omitempty"`
	SettlementID string          `json:"settlementId,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	Involved     []string        `json:"involved"`
	CreatedAt    int64           `json:"createdAt"`
}

type ListActivityRequest struct {
	Type     string `json:"type,omitempty"`
	FriendID string `json:"friendId,omitempty"`
	GroupID  string `json:"groupId,omitempty"`
	// Before is a cursor: only activities older than this seq are returned.
	Before int64 `json:"before,omitempty"`
	Limit  int   `json:"limit,omitempty"`
}

type ListActivityResponse struct {
	Activities []*Activity `json:"activities"`
	// NextBefore is the cursor for the next page, zero when there is none.
	NextBefore int64 `json:"nextBefore,omitempty"`
}
