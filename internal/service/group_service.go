package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
	"github.com/mmynk/settleup/pkg/api"
)

// GroupService implements the Connect GroupService
type GroupService struct {
	store storage.Store
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store}
}

// CreateGroup creates a new group. The caller becomes its creator and a
// member; every other member must be in the caller's friend list.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("CreateGroup request received",
		"user_id", userID,
		"name", req.Msg.Name,
		"members_count", len(req.Msg.MemberIDs),
	)

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, fail("CreateGroup", fmt.Errorf("%w: group name required", ErrInvalidArgument), "user_id", userID)
	}
	if err := s.checkFriends(ctx, userID, req.Msg.MemberIDs); err != nil {
		return nil, fail("CreateGroup", err, "user_id", userID)
	}

	group := &models.Group{
		Name:        name,
		Description: strings.TrimSpace(req.Msg.Description),
		CreatedBy:   userID,
		Members:     req.Msg.MemberIDs,
	}

	// Save to storage (generates ID and CreatedAt)
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, fail("CreateGroup", err, "user_id", userID)
	}

	slog.Info("Group created", "group_id", group.ID, "members_count", len(group.Members))

	out, err := s.toAPI(ctx, group)
	if err != nil {
		return nil, fail("CreateGroup", err, "group_id", group.ID)
	}
	return connect.NewResponse(&api.CreateGroupResponse{Group: out}), nil
}

// GetGroup retrieves a group by ID.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("GetGroup request received", "user_id", userID, "group_id", req.Msg.GroupID)

	group, err := memberGroup(ctx, s.store, req.Msg.GroupID, userID)
	if err != nil {
		return nil, fail("GetGroup", err, "user_id", userID, "group_id", req.Msg.GroupID)
	}

	out, err := s.toAPI(ctx, group)
	if err != nil {
		return nil, fail("GetGroup", err, "group_id", group.ID)
	}

	slog.Info("GetGroup successful", "group_id", group.ID, "name", group.Name)
	return connect.NewResponse(&api.GetGroupResponse{Group: out}), nil
}

// ListGroups retrieves the caller's groups, newest first.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("ListGroups request received", "user_id", userID)

	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, fail("ListGroups", err, "user_id", userID)
	}

	var ids []string
	for _, g := range groups {
		ids = append(ids, g.Members...)
	}
	users, err := usersByID(ctx, s.store, ids)
	if err != nil {
		return nil, fail("ListGroups", err, "user_id", userID)
	}

	out := make([]*api.Group, len(groups))
	for i, group := range groups {
		out[i] = toAPIGroup(group, users)
	}

	slog.Info("ListGroups successful", "user_id", userID, "count", len(groups))
	return connect.NewResponse(&api.ListGroupsResponse{Groups: out}), nil
}

// AddGroupMembers adds users to a group. Any member may add people from
// their own friend list.
func (s *GroupService) AddGroupMembers(ctx context.Context, req *connect.Request[api.AddGroupMembersRequest]) (*connect.Response[api.AddGroupMembersResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("AddGroupMembers request received",
		"user_id", userID,
		"group_id", req.Msg.GroupID,
		"members_count", len(req.Msg.UserIDs),
	)

	if _, err := memberGroup(ctx, s.store, req.Msg.GroupID, userID); err != nil {
		return nil, fail("AddGroupMembers", err, "user_id", userID, "group_id", req.Msg.GroupID)
	}
	if len(req.Msg.UserIDs) == 0 {
		return nil, fail("AddGroupMembers", fmt.Errorf("%w: no users to add", ErrInvalidArgument), "group_id", req.Msg.GroupID)
	}
	if err := s.checkFriends(ctx, userID, req.Msg.UserIDs); err != nil {
		return nil, fail("AddGroupMembers", err, "user_id", userID, "group_id", req.Msg.GroupID)
	}

	if err := s.store.AddGroupMembers(ctx, req.Msg.GroupID, req.Msg.UserIDs); err != nil {
		return nil, fail("AddGroupMembers", err, "group_id", req.Msg.GroupID)
	}

	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, fail("AddGroupMembers", err, "group_id", req.Msg.GroupID)
	}
	out, err := s.toAPI(ctx, group)
	if err != nil {
		return nil, fail("AddGroupMembers", err, "group_id", group.ID)
	}

	slog.Info("Group members added", "group_id", group.ID, "members_count", len(group.Members))
	return connect.NewResponse(&api.AddGroupMembersResponse{Group: out}), nil
}

// RemoveGroupMember removes a member whose group balance is settled.
// Members may leave; only the creator may remove others. The creator
// cannot be removed.
func (s *GroupService) RemoveGroupMember(ctx context.Context, req *connect.Request[api.RemoveGroupMemberRequest]) (*connect.Response[api.RemoveGroupMemberResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	groupID, memberID := req.Msg.GroupID, req.Msg.UserID
	slog.Info("RemoveGroupMember request received", "user_id", userID, "group_id", groupID, "member_id", memberID)

	group, err := memberGroup(ctx, s.store, groupID, userID)
	if err != nil {
		return nil, fail("RemoveGroupMember", err, "user_id", userID, "group_id", groupID)
	}
	if !group.HasMember(memberID) {
		return nil, fail("RemoveGroupMember", fmt.Errorf("member %s of group %s: %w", memberID, groupID, storage.ErrNotFound))
	}
	if memberID == group.CreatedBy {
		return nil, fail("RemoveGroupMember", fmt.Errorf("%w: the group creator cannot be removed", ErrFailedPrecondition), "group_id", groupID)
	}
	if memberID != userID && userID != group.CreatedBy {
		return nil, fail("RemoveGroupMember", fmt.Errorf("%w: only the group creator can remove other members", ErrPermissionDenied), "user_id", userID, "group_id", groupID)
	}

	ledger, err := groupLedger(ctx, s.store, groupID)
	if err != nil {
		return nil, fail("RemoveGroupMember", err, "group_id", groupID)
	}
	if !ledger.UserSettled(memberID) {
		return nil, fail("RemoveGroupMember", fmt.Errorf("%w: member %s has an outstanding balance in the group", ErrFailedPrecondition, memberID), "group_id", groupID)
	}

	if err := s.store.RemoveGroupMember(ctx, groupID, memberID); err != nil {
		return nil, fail("RemoveGroupMember", err, "group_id", groupID, "member_id", memberID)
	}

	group, err = s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, fail("RemoveGroupMember", err, "group_id", groupID)
	}
	out, err := s.toAPI(ctx, group)
	if err != nil {
		return nil, fail("RemoveGroupMember", err, "group_id", groupID)
	}

	slog.Info("Group member removed", "group_id", groupID, "member_id", memberID)
	return connect.NewResponse(&api.RemoveGroupMemberResponse{Group: out}), nil
}

// DeleteGroup removes a group and its expenses. Only the creator may
// delete it, and only once every balance in it is settled.
func (s *GroupService) DeleteGroup(ctx context.Context, req *connect.Request[api.DeleteGroupRequest]) (*connect.Response[api.DeleteGroupResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("DeleteGroup request received", "user_id", userID, "group_id", req.Msg.GroupID)

	group, err := memberGroup(ctx, s.store, req.Msg.GroupID, userID)
	if err != nil {
		return nil, fail("DeleteGroup", err, "user_id", userID, "group_id", req.Msg.GroupID)
	}
	if group.CreatedBy != userID {
		return nil, fail("DeleteGroup", fmt.Errorf("%w: only the group creator can delete the group", ErrPermissionDenied), "user_id", userID, "group_id", group.ID)
	}

	ledger, err := groupLedger(ctx, s.store, group.ID)
	if err != nil {
		return nil, fail("DeleteGroup", err, "group_id", group.ID)
	}
	if !ledger.Settled() {
		return nil, fail("DeleteGroup", fmt.Errorf("%w: group has outstanding balances", ErrFailedPrecondition), "group_id", group.ID)
	}

	if err := s.store.DeleteGroup(ctx, group.ID); err != nil {
		return nil, fail("DeleteGroup", err, "group_id", group.ID)
	}

	slog.Info("Group deleted", "group_id", group.ID)
	return connect.NewResponse(&api.DeleteGroupResponse{}), nil
}

// GetGroupBalances returns every member's position in the group, the
// payments that would zero every net balance, and whether the group is
// settled pair by pair.
func (s *GroupService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("GetGroupBalances request received", "user_id", userID, "group_id", req.Msg.GroupID)

	group, err := memberGroup(ctx, s.store, req.Msg.GroupID, userID)
	if err != nil {
		return nil, fail("GetGroupBalances", err, "user_id", userID, "group_id", req.Msg.GroupID)
	}
	ledger, err := groupLedger(ctx, s.store, group.ID)
	if err != nil {
		return nil, fail("GetGroupBalances", err, "group_id", group.ID)
	}

	// Members without any expenses still get a zero row; former members
	// with history keep theirs.
	balances := ledger.Balances()
	seen := make(map[string]bool, len(balances))
	resp := &api.GetGroupBalancesResponse{
		Balances:          make([]*api.MemberBalance, 0, len(group.Members)),
		SuggestedPayments: []*api.Payment{},
		Settled:           ledger.Settled(),
	}
	for _, b := range balances {
		seen[b.UserID] = true
		resp.Balances = append(resp.Balances, &api.MemberBalance{UserID: b.UserID, Paid: b.Paid, Owed: b.Owed, Net: b.Net})
	}
	for _, id := range group.Members {
		if !seen[id] {
			resp.Balances = append(resp.Balances, &api.MemberBalance{UserID: id})
		}
	}
	for _, edge := range ledger.Simplify() {
		resp.SuggestedPayments = append(resp.SuggestedPayments, &api.Payment{FromUserID: edge.From, ToUserID: edge.To, Amount: edge.Amount})
	}

	slog.Info("GetGroupBalances successful", "group_id", group.ID, "payments", len(resp.SuggestedPayments))
	return connect.NewResponse(resp), nil
}

// checkFriends verifies that every id other than userID is in userID's
// friend list.
func (s *GroupService) checkFriends(ctx context.Context, userID string, ids []string) error {
	for _, id := range ids {
		if id == userID {
			continue
		}
		ok, err := s.store.IsFriend(ctx, userID, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: user %s is not in your friend list", ErrPermissionDenied, id)
		}
	}
	return nil
}

func (s *GroupService) toAPI(ctx context.Context, group *models.Group) (*api.Group, error) {
	users, err := usersByID(ctx, s.store, group.Members)
	if err != nil {
		return nil, err
	}
	return toAPIGroup(group, users), nil
}
