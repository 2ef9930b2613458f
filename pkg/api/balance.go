package api

import "github.com/shopspring/decimal"

type GetUserBalanceRequest struct{}

type GetUserBalanceResponse struct {
	// Net is OwedToUser - UserOwes.
	Net        decimal.Decimal `json:"net"`
	OwedToUser decimal.Decimal `json:"owedToUser"`
	UserOwes   decimal.Decimal `json:"userOwes"`
}

type GetBalanceBetweenUsersRequest struct {
	// UserID is the counterparty; the balance is between them and the caller.
	UserID string `json:"userId"`
}

type GetBalanceBetweenUsersResponse struct {
	// Amount is positive when UserID owes the caller.
	Amount decimal.Decimal `json:"amount"`
}

type FriendBalance struct {
	Friend *User `json:"friend"`
	// Amount is positive when the friend owes the caller.
	Amount decimal.Decimal `json:"amount"`
}

type ListFriendBalancesRequest struct{}

type ListFriendBalancesResponse struct {
	Balances   []*FriendBalance `json:"balances"`
	OwedToUser decimal.Decimal  `json:"owedToUser"`
	UserOwes   decimal.Decimal  `json:"userOwes"`
}

type Settlement struct {
	ID         string          `json:"id"`
	FromUserID string          `json:"fromUserId"`
	ToUserID   string          `json:"toUserId"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	Note       string          `json:"note,omitempty"`
	GroupID    string          `json:"groupId,omitempty"`
	CreatedBy  string          `json:"createdBy"`
	CreatedAt  int64           `json:"createdAt"`
}

type SettleUpRequest struct {
	// FromUserID defaults to the caller. The caller must be one of the two
	// parties.
	FromUserID string `json:"fromUserId,omitempty"`
	ToUserID   string `json:"toUserId"`
	// Amount defaults to the full outstanding debt.
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method,omitempty"`
	Note      string          `json:"note,omitempty"`
	GroupID   string          `json:"groupId,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
}

type SettleUpResponse struct {
	Settlement *Settlement `json:"settlement"`
}

type ListSettlementsRequest struct {
	GroupID  string `json:"groupId,omitempty"`
	FriendID string `json:"friendId,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type ListSettlementsResponse struct {
	Settlements []*Settlement `json:"settlements"`
}

type DeleteSettlementRequest struct {
	SettlementID string `json:"settlementId"`
}

type DeleteSettlementResponse struct{}
