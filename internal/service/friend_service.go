package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/auth"
	"github.com/mmynk/settleup/internal/storage"
	"github.com/mmynk/settleup/pkg/api"
)

// FriendService implements the Connect FriendService.
type FriendService struct {
	store storage.Store
}

// NewFriendService creates a new FriendService with the given storage backend.
func NewFriendService(store storage.Store) *FriendService {
	return &FriendService{store: store}
}

// AddFriend adds the user registered under an email to the caller's friend
// list. The other user's list is not changed.
func (s *FriendService) AddFriend(ctx context.Context, req *connect.Request[api.AddFriendRequest]) (*connect.Response[api.AddFriendResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	email := auth.NormalizeEmail(req.Msg.Email)
	slog.Info("AddFriend request received", "user_id", userID, "email", email)

	if email == "" {
		return nil, fail("AddFriend", fmt.Errorf("%w: email required", ErrInvalidArgument), "user_id", userID)
	}

	friend, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fail("AddFriend", fmt.Errorf("no user registered with email %s: %w", email, storage.ErrNotFound), "user_id", userID)
	}
	if err != nil {
		return nil, fail("AddFriend", err, "user_id", userID)
	}
	if friend.ID == userID {
		return nil, fail("AddFriend", fmt.Errorf("%w: cannot add yourself as a friend", ErrInvalidArgument), "user_id", userID)
	}

	if err := s.store.AddFriend(ctx, userID, friend.ID); err != nil {
		return nil, fail("AddFriend", err, "user_id", userID, "friend_id", friend.ID)
	}

	slog.Info("Friend added", "user_id", userID, "friend_id", friend.ID)
	return connect.NewResponse(&api.AddFriendResponse{Friend: toAPIUser(friend)}), nil
}

// RemoveFriend drops a user from the caller's friend list. Balances with
// them are unaffected.
func (s *FriendService) RemoveFriend(ctx context.Context, req *connect.Request[api.RemoveFriendRequest]) (*connect.Response[api.RemoveFriendResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("RemoveFriend request received", "user_id", userID, "friend_id", req.Msg.FriendID)

	if err := s.store.RemoveFriend(ctx, userID, req.Msg.FriendID); err != nil {
		return nil, fail("RemoveFriend", err, "user_id", userID, "friend_id", req.Msg.FriendID)
	}

	slog.Info("Friend removed", "user_id", userID, "friend_id", req.Msg.FriendID)
	return connect.NewResponse(&api.RemoveFriendResponse{}), nil
}

// ListFriends returns the caller's friend list, ordered by name.
func (s *FriendService) ListFriends(ctx context.Context, req *connect.Request[api.ListFriendsRequest]) (*connect.Response[api.ListFriendsResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("ListFriends request received", "user_id", userID)

	friends, err := s.store.ListFriends(ctx, userID)
	if err != nil {
		return nil, fail("ListFriends", err, "user_id", userID)
	}

	slog.Info("ListFriends successful", "user_id", userID, "count", len(friends))
	return connect.NewResponse(&api.ListFriendsResponse{Friends: toAPIUsers(friends)}), nil
}
