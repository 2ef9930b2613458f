package apiconnect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/pkg/api"
)

// UserServiceName is the fully-qualified name of UserService.
const UserServiceName = "settleup.v1.UserService"

// Procedure names, used as HTTP paths and in interceptors.
const (
	UserServiceSearchUsersProcedure    = "/settleup.v1.UserService/SearchUsers"
	UserServiceGetUserProfileProcedure = "/settleup.v1.UserService/GetUserProfile"
)

// UserServiceHandler is the server side of UserService. UserService looks up other users.
type UserServiceHandler interface {
	SearchUsers(context.Context, *connect.Request[api.SearchUsersRequest]) (*connect.Response[api.SearchUsersResponse], error)
	GetUserProfile(context.Context, *connect.Request[api.GetUserProfileRequest]) (*connect.Response[api.GetUserProfileResponse], error)
}

// NewUserServiceHandler builds an HTTP handler for svc. It returns the path
// to mount the handler on.
func NewUserServiceHandler(svc UserServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	searchUsers := connect.NewUnaryHandler(UserServiceSearchUsersProcedure, svc.SearchUsers, opts...)
	getUserProfile := connect.NewUnaryHandler(UserServiceGetUserProfileProcedure, svc.GetUserProfile, opts...)
	return "/" + UserServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case UserServiceSearchUsersProcedure:
			searchUsers.ServeHTTP(w, r)
		case UserServiceGetUserProfileProcedure:
			getUserProfile.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// UserServiceClient is a typed client for UserService.
type UserServiceClient struct {
	searchUsers    *connect.Client[api.SearchUsersRequest, api.SearchUsersResponse]
	getUserProfile *connect.Client[api.GetUserProfileRequest, api.GetUserProfileResponse]
}

// NewUserServiceClient returns a client for UserService at baseURL, for example
// http://localhost:8080.
func NewUserServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *UserServiceClient {
	opts = clientOptions(opts)
	return &UserServiceClient{
		searchUsers:    connect.NewClient[api.SearchUsersRequest, api.SearchUsersResponse](httpClient, baseURL+UserServiceSearchUsersProcedure, opts...),
		getUserProfile: connect.NewClient[api.GetUserProfileRequest, api.GetUserProfileResponse](httpClient, baseURL+UserServiceGetUserProfileProcedure, opts...),
	}
}

func (c *UserServiceClient) SearchUsers(ctx context.Context, req *connect.Request[api.SearchUsersRequest]) (*connect.Response[api.SearchUsersResponse], error) {
	return c.searchUsers.CallUnary(ctx, req)
}

func (c *UserServiceClient) GetUserProfile(ctx context.Context, req *connect.Request[api.GetUserProfileRequest]) (*connect.Response[api.GetUserProfileResponse], error) {
	return c.getUserProfile.CallUnary(ctx, req)
}
