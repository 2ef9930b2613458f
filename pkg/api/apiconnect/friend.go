package apiconnect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/pkg/api"
)

// FriendServiceName is the fully-qualified name of FriendService.
const FriendServiceName = "settleup.v1.FriendService"

// Procedure names, used as HTTP paths and in interceptors.
const (
	FriendServiceAddFriendProcedure    = "/settleup.v1.FriendService/AddFriend"
	FriendServiceRemoveFriendProcedure = "/settleup.v1.FriendService/RemoveFriend"
	FriendServiceListFriendsProcedure  = "/settleup.v1.FriendService/ListFriends"
)

// FriendServiceHandler is the server side of FriendService. FriendService manages the caller's friend list.
type FriendServiceHandler interface {
	AddFriend(context.Context, *connect.Request[api.AddFriendRequest]) (*connect.Response[api.AddFriendResponse], error)
	RemoveFriend(context.Context, *connect.Request[api.RemoveFriendRequest]) (*connect.Response[api.RemoveFriendResponse], error)
	ListFriends(context.Context, *connect.Request[api.ListFriendsRequest]) (*connect.Response[api.ListFriendsResponse], error)
}

// NewFriendServiceHandler builds an HTTP handler for svc. It returns the path
// to mount the handler on.
func NewFriendServiceHandler(svc FriendServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	addFriend := connect.NewUnaryHandler(FriendServiceAddFriendProcedure, svc.AddFriend, opts...)
	removeFriend := connect.NewUnaryHandler(FriendServiceRemoveFriendProcedure, svc.RemoveFriend, opts...)
	listFriends := connect.NewUnaryHandler(FriendServiceListFriendsProcedure, svc.ListFriends, opts...)
	return "/" + FriendServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case FriendServiceAddFriendProcedure:
			addFriend.ServeHTTP(w, r)
		case FriendServiceRemoveFriendProcedure:
			removeFriend.ServeHTTP(w, r)
		case FriendServiceListFriendsProcedure:
			listFriends.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// FriendServiceClient is a typed client for FriendService.
type FriendServiceClient struct {
	addFriend    *connect.Client[api.AddFriendRequest, api.AddFriendResponse]
	removeFriend *connect.Client[api.RemoveFriendRequest, api.RemoveFriendResponse]
	listFriends  *connect.Client[api.ListFriendsRequest, api.ListFriendsResponse]
}

// NewFriendServiceClient returns a client for FriendService at baseURL, for example
// http://localhost:8080.
func NewFriendServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *FriendServiceClient {
	opts = clientOptions(opts)
	return &FriendServiceClient{
		addFriend:    connect.NewClient[api.AddFriendRequest, api.AddFriendResponse](httpClient, baseURL+FriendServiceAddFriendProcedure, opts...),
		removeFriend: connect.NewClient[api.RemoveFriendRequest, api.RemoveFriendResponse](httpClient, baseURL+FriendServiceRemoveFriendProcedure, opts...),
		listFriends:  connect.NewClient[api.ListFriendsRequest, api.ListFriendsResponse](httpClient, baseURL+FriendServiceListFriendsProcedure, opts...),
	}
}

func (c *FriendServiceClient) AddFriend(ctx context.Context, req *connect.Request[api.AddFriendRequest]) (*connect.Response[api.AddFriendResponse], error) {
	return c.addFriend.CallUnary(ctx, req)
}

func (c *FriendServiceClient) RemoveFriend(ctx context.Context, req *connect.Request[api.RemoveFriendRequest]) (*connect.Response[api.RemoveFriendResponse], error) {
	return c.removeFriend.CallUnary(ctx, req)
}

func (c *FriendServiceClient) ListFriends(ctx context.Context, req *connect.Request[api.ListFriendsRequest]) (*connect.Response[api.ListFriendsResponse], error) {
	return c.listFriends.CallUnary(ctx, req)
}
