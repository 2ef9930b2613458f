package api

import "github.com/shopspring/decimal"

type Group struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	CreatedBy   string  `json:"createdBy"`
	Members     []*User `json:"members"`
	CreatedAt   int64   `json:"createdAt"`
}

type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// MemberIDs must be in the caller's friend list. The caller is always
	// added.
	MemberIDs []string `json:"memberIds,omitempty"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupResponse struct {
	Group *Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

type AddGroupMembersRequest struct {
	GroupID string   `json:"groupId"`
	UserIDs []string `json:"userIds"`
}

type AddGroupMembersResponse struct {
	Group *Group `json:"group"`
}

type RemoveGroupMemberRequest struct {
	GroupID string `json:"groupId"`
	UserID  string `json:"userId"`
}

type RemoveGroupMemberResponse struct {
	Group *Group `json:"group"`
}

type DeleteGroupRequest struct {
	GroupID string `json:"groupId"`
}

type DeleteGroupResponse struct{}

// MemberBalance is a member's position within a group. Positive Net means
// the rest of the group owes the member.
type MemberBalance struct {
	UserID string          `json:"userId"`
	Paid   decimal.Decimal `json:"paid"`
	Owed   decimal.Decimal `json:"owed"`
	Net    decimal.Decimal `json:"net"`
}

// Payment is a transfer that would settle part of a group's balances.
type Payment struct {
	FromUserID string          `json:"fromUserId"`
	ToUserID   string          `json:"toUserId"`
	Amount     decimal.Decimal `json:"amount"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupBalancesResponse struct {
	Balances []*MemberBalance `json:"balances"`
	// SuggestedPayments settles every balance in the group with the fewest
	// transfers the greedy matching finds.
	SuggestedPayments []*Payment `json:"suggestedPayments"`
	// Settled is true when no pair of members owes each other anything,
	// which DeleteGroup requires. A cycle of debts can leave every net at
	// zero and SuggestedPayments empty while Settled is still false.
	Settled bool `json:"settled"`
}
