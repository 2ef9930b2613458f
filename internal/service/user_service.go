package service

import (
	"context"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/storage"
	"github.com/mmynk/settleup/pkg/api"
)

const defaultSearchLimit = 10

// UserService implements the Connect UserService.
type UserService struct {
	store storage.UserStore
}

// NewUserService creates a new UserService with the given storage backend.
func NewUserService(store storage.UserStore) *UserService {
	return &UserService{store: store}
}

// SearchUsers finds other users by name or email. An empty query matches
// nobody.
func (s *UserService) SearchUsers(ctx context.Context, req *connect.Request[api.SearchUsersRequest]) (*connect.Response[api.SearchUsersResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	query := strings.TrimSpace(req.Msg.Query)
	slog.Info("SearchUsers request received", "user_id", userID, "query", query)

	if query == "" {
		return connect.NewResponse(&api.SearchUsersResponse{Users: []*api.User{}}), nil
	}

	users, err := s.store.SearchUsers(ctx, query, userID, pageSize(req.Msg.Limit, defaultSearchLimit))
	if err != nil {
		return nil, fail("SearchUsers", err, "user_id", userID)
	}

	slog.Info("SearchUsers successful", "user_id", userID, "count", len(users))
	return connect.NewResponse(&api.SearchUsersResponse{Users: toAPIUsers(users)}), nil
}

// GetUserProfile returns one user's public profile.
func (s *UserService) GetUserProfile(ctx context.Context, req *connect.Request[api.GetUserProfileRequest]) (*connect.Response[api.GetUserProfileResponse], error) {
	callerID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	userID := req.Msg.UserID
	if userID == "" {
		userID = callerID
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fail("GetUserProfile", err, "user_id", callerID, "profile_id", userID)
	}
	return connect.NewResponse(&api.GetUserProfileResponse{User: toAPIUser(user)}), nil
}
