package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
	"github.com/mmynk/settleup/pkg/api"
)

// ActivityService implements the Connect ActivityService.
type ActivityService struct {
	store storage.Store
}

// NewActivityService creates a new ActivityService with the given storage backend.
func NewActivityService(store storage.Store) *ActivityService {
	return &ActivityService{store: store}
}

// ListActivity returns the caller's feed, newest first. Pages are chained
// through NextBefore.
func (s *ActivityService) ListActivity(ctx context.Context, req *connect.Request[api.ListActivityRequest]) (*connect.Response[api.ListActivityResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	msg := req.Msg
	slog.Info("ListActivity request received",
		"user_id", userID,
		"type", msg.Type,
		"friend_id", msg.FriendID,
		"group_id", msg.GroupID,
		"before", msg.Before,
	)

	activityType := models.ActivityType(msg.Type)
	if activityType != "" && !models.ValidActivityType(activityType) {
		return nil, fail("ListActivity", fmt.Errorf("%w: unknown activity type %q", ErrInvalidArgument, msg.Type), "user_id", userID)
	}

	limit := pageSize(msg.Limit, defaultPageSize)
	activities, err := s.store.ListActivity(ctx, storage.ActivityFilter{
		UserID:         userID,
		Type:           activityType,
		CounterpartyID: msg.FriendID,
		GroupID:        msg.GroupID,
		Before:         msg.Before,
		Limit:          limit,
	})
	if err != nil {
		return nil, fail("ListActivity", err, "user_id", userID)
	}

	actorIDs := make([]string, len(activities))
	for i, a := range activities {
		actorIDs[i] = a.ActorID
	}
	actors, err := usersByID(ctx, s.store, actorIDs)
	if err != nil {
		return nil, fail("ListActivity", err, "user_id", userID)
	}

	resp := &api.ListActivityResponse{Activities: make([]*api.Activity, len(activities))}
	for i, a := range activities {
		var name string
		if actor, ok := actors[a.ActorID]; ok {
			name = actor.FullName
		}
		resp.Activities[i] = toAPIActivity(a, name)
	}
	if len(activities) == limit {
		resp.NextBefore = activities[len(activities)-1].Seq
	}

	slog.Info("ListActivity successful", "user_id", userID, "count", len(activities))
	return connect.NewResponse(resp), nil
}
