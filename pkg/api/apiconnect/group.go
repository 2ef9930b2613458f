package apiconnect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/pkg/api"
)

// GroupServiceName is the fully-qualified name of GroupService.
const GroupServiceName = "settleup.v1.GroupService"

// Procedure names, used as HTTP paths and in interceptors.
const (
	GroupServiceCreateGroupProcedure       = "/settleup.v1.GroupService/CreateGroup"
	GroupServiceGetGroupProcedure          = "/settleup.v1.GroupService/GetGroup"
	GroupServiceListGroupsProcedure        = "/settleup.v1.GroupService/ListGroups"
	GroupServiceAddGroupMembersProcedure   = "/settleup.v1.GroupService/AddGroupMembers"
	GroupServiceRemoveGroupMemberProcedure = "/settleup.v1.GroupService/RemoveGroupMember"
	GroupServiceDeleteGroupProcedure       = "/settleup.v1.GroupService/DeleteGroup"
	GroupServiceGetGroupBalancesProcedure  = "/settleup.v1.GroupService/GetGroupBalances"
)

// GroupServiceHandler is the server side of GroupService. GroupService manages groups, their members and group balances.
type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error)
	ListGroups(context.Context, *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error)
	AddGroupMembers(context.Context, *connect.Request[api.AddGroupMembersRequest]) (*connect.Response[api.AddGroupMembersResponse], error)
	RemoveGroupMember(context.Context, *connect.Request[api.RemoveGroupMemberRequest]) (*connect.Response[api.RemoveGroupMemberResponse], error)
	DeleteGroup(context.Context, *connect.Request[api.DeleteGroupRequest]) (*connect.Response[api.DeleteGroupResponse], error)
	GetGroupBalances(context.Context, *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error)
}

// NewGroupServiceHandler builds an HTTP handler for svc. It returns the path
// to mount the handler on.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	createGroup := connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...)
	getGroup := connect.NewUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts...)
	listGroups := connect.NewUnaryHandler(GroupServiceListGroupsProcedure, svc.ListGroups, opts...)
	addGroupMembers := connect.NewUnaryHandler(GroupServiceAddGroupMembersProcedure, svc.AddGroupMembers, opts...)
	removeGroupMember := connect.NewUnaryHandler(GroupServiceRemoveGroupMemberProcedure, svc.RemoveGroupMember, opts...)
	deleteGroup := connect.NewUnaryHandler(GroupServiceDeleteGroupProcedure, svc.DeleteGroup, opts...)
	getGroupBalances := connect.NewUnaryHandler(GroupServiceGetGroupBalancesProcedure, svc.GetGroupBalances, opts...)
	return "/" + GroupServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case GroupServiceCreateGroupProcedure:
			createGroup.ServeHTTP(w, r)
		case GroupServiceGetGroupProcedure:
			getGroup.ServeHTTP(w, r)
		case GroupServiceListGroupsProcedure:
			listGroups.ServeHTTP(w, r)
		case GroupServiceAddGroupMembersProcedure:
			addGroupMembers.ServeHTTP(w, r)
		case GroupServiceRemoveGroupMemberProcedure:
			removeGroupMember.ServeHTTP(w, r)
		case GroupServiceDeleteGroupProcedure:
			deleteGroup.ServeHTTP(w, r)
		case GroupServiceGetGroupBalancesProcedure:
			getGroupBalances.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// GroupServiceClient is a typed client for GroupService.
type GroupServiceClient struct {
	createGroup       *connect.Client[api.CreateGroupRequest, api.CreateGroupResponse]
	getGroup          *connect.Client[api.GetGroupRequest, api.GetGroupResponse]
	listGroups        *connect.Client[api.ListGroupsRequest, api.ListGroupsResponse]
	addGroupMembers   *connect.Client[api.AddGroupMembersRequest, api.AddGroupMembersResponse]
	removeGroupMember *connect.Client[api.RemoveGroupMemberRequest, api.RemoveGroupMemberResponse]
	deleteGroup       *connect.Client[api.DeleteGroupRequest, api.DeleteGroupResponse]
	getGroupBalances  *connect.Client[api.GetGroupBalancesRequest, api.GetGroupBalancesResponse]
}

// NewGroupServiceClient returns a client for GroupService at baseURL, for example
// http://localhost:8080.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GroupServiceClient {
	opts = clientOptions(opts)
	return &GroupServiceClient{
		createGroup:       connect.NewClient[api.CreateGroupRequest, api.CreateGroupResponse](httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		getGroup:          connect.NewClient[api.GetGroupRequest, api.GetGroupResponse](httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		listGroups:        connect.NewClient[api.ListGroupsRequest, api.ListGroupsResponse](httpClient, baseURL+GroupServiceListGroupsProcedure, opts...),
		addGroupMembers:   connect.NewClient[api.AddGroupMembersRequest, api.AddGroupMembersResponse](httpClient, baseURL+GroupServiceAddGroupMembersProcedure, opts...),
		removeGroupMember: connect.NewClient[api.RemoveGroupMemberRequest, api.RemoveGroupMemberResponse](httpClient, baseURL+GroupServiceRemoveGroupMemberProcedure, opts...),
		deleteGroup:       connect.NewClient[api.DeleteGroupRequest, api.DeleteGroupResponse](httpClient, baseURL+GroupServiceDeleteGroupProcedure, opts...),
		getGroupBalances:  connect.NewClient[api.GetGroupBalancesRequest, api.GetGroupBalancesResponse](httpClient, baseURL+GroupServiceGetGroupBalancesProcedure, opts...),
	}
}

func (c *GroupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *GroupServiceClient) AddGroupMembers(ctx context.Context, req *connect.Request[api.AddGroupMembersRequest]) (*connect.Response[api.AddGroupMembersResponse], error) {
	return c.addGroupMembers.CallUnary(ctx, req)
}

func (c *GroupServiceClient) RemoveGroupMember(ctx context.Context, req *connect.Request[api.RemoveGroupMemberRequest]) (*connect.Response[api.RemoveGroupMemberResponse], error) {
	return c.removeGroupMember.CallUnary(ctx, req)
}

func (c *GroupServiceClient) DeleteGroup(ctx context.Context, req *connect.Request[api.DeleteGroupRequest]) (*connect.Response[api.DeleteGroupResponse], error) {
	return c.deleteGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}
