package service

import (
	"context"
	"sync"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/pkg/api"
)

func TestGetUserBalance(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register("alice")
	bob := env.register("bob")
	carol := env.register("carol")
	env.befriend(alice, bob)
	env.befriend(bob, carol)

	resp, err := env.balances.GetUserBalance(ctx, as(alice, &api.GetUserBalanceRequest{}))
	require.NoError(t, err)
	assertAmount(t, "0", resp.Msg.Net)
	assertAmount(t, "0", resp.Msg.OwedToUser)
	assertAmount(t, "0", resp.Msg.UserOwes)

	env.equalExpense(alice, "30", "", alice, bob)
	env.equalExpense(carol, "10", "", bob, carol)

	resp, err = env.balances.GetUserBalance(ctx, as(bob, &api.GetUserBalanceRequest{}))
	require.NoError(t, err)
	assertAmount(t, "-20", resp.Msg.Net)
	assertAmount(t, "0", resp.Msg.OwedToUser)
	assertAmount(t, "20", resp.Msg.UserOwes)

	env.equalExpense(bob, "8", "", bob, carol)

	resp, err = env.balances.GetUserBalance(ctx, as(bob, &api.GetUserBalanceRequest{}))
	require.NoError(t, err)
	assertAmount(t, "-16", resp.Msg.Net)
	assertAmount(t, "0", resp.Msg.OwedToUser)
	assertAmount(t, "16", resp.Msg.UserOwes)

	resp, err = env.balances.GetUserBalance(ctx, as(alice, &api.GetUserBalanceRequest{}))
	require.NoError(t, err)
	assertAmount(t, "15", resp.Msg.Net)
	assertAmount(t, "15", resp.Msg.OwedToUser)
}

func TestGetBalanceBetweenUsers(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register("alice")
	bob := env.register("bob")
	env.befriend(alice, bob)
	group := env.createGroup(alice, bob)

	env.equalExpense(alice, "30", "", alice, bob)
	env.equalExpense(bob, "10", group.ID, alice, bob)

	resp, err := env.balances.GetBalanceBetweenUsers(ctx, as(alice, &api.GetBalanceBetweenUsersRequest{UserID: bob.ID}))
	require.NoError(t, err)
	assertAmount(t, "10", resp.Msg.Amount)

	resp, err = env.balances.GetBalanceBetweenUsers(ctx, as(bob, &api.GetBalanceBetweenUsersRequest{UserID: alice.ID}))
	require.NoError(t, err)
	assertAmount(t, "-10", resp.Msg.Amount)

	_, err = env.balances.GetBalanceBetweenUsers(ctx, as(alice, &api.GetBalanceBetweenUsersRequest{UserID: alice.ID}))
	assertCode(t, connect.CodeInvalidArgument, err)

	_, err = env.balances.GetBalanceBetweenUsers(ctx, as(alice, &api.GetBalanceBetweenUsersRequest{UserID: "missing"}))
	assertCode(t, connect.CodeNotFound, err)
}

func TestListFriendBalances(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register("alice")
	bob := env.register("bob")
	carol := env.register("carol")
	dave := env.register("dave")
	env.befriend(alice, bob)
	env.befriend(alice, carol)
	env.befriend(alice, dave)

	env.equalExpense(alice, "20", "", alice, bob)
	env.equalExpense(carol, "50", "", alice, carol)

	resp, err := env.balances.ListFriendBalances(ctx, as(alice, &api.ListFriendBalancesRequest{}))
	require.NoError(t, err)

	got := make(map[string]string)
	for _, b := range resp.Msg.Balances {
		got[b.Friend.ID] = b.Amount.StringFixed(2)
	}
	assert.Equal(t, map[string]string{
		bob.ID:   "10.00",
		carol.ID: "-25.00",
		dave.ID:  "0.00",
	}, got)
	assertAmount(t, "10", resp.Msg.OwedToUser)
	assertAmount(t, "25", resp.Msg.UserOwes)
}

func TestSettleUp(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register("alice")
	bob := env.register("bob")
	env.befriend(alice, bob)
	env.equalExpense(alice, "40", "", alice, bob)

	between := func() string {
		t.Helper()
		resp, err := env.balances.GetBalanceBetweenUsers(ctx, as(alice, &api.GetBalanceBetweenUsersRequest{UserID: bob.ID}))
		require.NoError(t, err)
		return resp.Msg.Amount.StringFixed(2)
	}
	require.Equal(t, "20.00", between())

	t.Run("more than owed", func(t *testing.T) {
		_, err := env.balances.SettleUp(ctx, as(bob, &api.SettleUpRequest{ToUserID: alice.ID, Amount: amount("25")}))
		assertCode(t, connect.CodeFailedPrecondition, err)
	})

	t.Run("wrong direction", func(t *testing.T) {
		_, err := env.balances.SettleUp(ctx, as(alice, &api.SettleUpRequest{ToUserID: bob.ID, Amount: amount("5")}))
		assertCode(t, connect.CodeFailedPrecondition, err)
	})

	t.Run("partial", func(t *testing.T) {
		resp, err := env.balances.SettleUp(ctx, as(bob, &api.SettleUpRequest{
			ToUserID: alice.ID,
			Amount:   amount("5"),
			Method:   "venmo",
			Note:     " pizza ",
		}))
		require.NoError(t, err)

		s := resp.Msg.Settlement
		assert.NotEmpty(t, s.ID)
		assert.Equal(t, bob.ID, s.FromUserID)
		assert.Equal(t, alice.ID, s.ToUserID)
		assert.Equal(t, "venmo", s.Method)
		assert.Equal(t, "pizza", s.Note)
		assert.Equal(t, bob.ID, s.CreatedBy)
		assertAmount(t, "5", s.Amount)
		assert.Equal(t, "15.00", between())
	})

	t.Run("recorded by the creditor", func(t *testing.T) {
		resp, err := env.balances.SettleUp(ctx, as(alice, &api.SettleUpRequest{
			FromUserID: bob.ID,
			ToUserID:   alice.ID,
			Amount:     amount("5"),
		}))
		require.NoError(t, err)
		assert.Equal(t, "cash", resp.Msg.Settlement.Method)
		assert.Equal(t, "10.00", between())
	})

	t.Run("full debt when amount omitted", func(t *testing.T) {
		resp, err := env.balances.SettleUp(ctx, as(bob, &api.SettleUpRequest{ToUserID: alice.ID}))
		require.NoError(t, err)
		assertAmount(t, "10", resp.Msg.Settlement.Amount)
		assert.Equal(t, "0.00", between())
	})

	t.Run("nothing left to settle", func(t *testing.T) {
		_, err := env.balances.SettleUp(ctx, as(bob, &api.SettleUpRequest{ToUserID: alice.ID}))
		assertCode(t, connect.CodeFailedPrecondition, err)
	})
}

func TestSettleUp_Validation(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register("alice")
	bob := env.register("bob")
	carol := env.register("carol")
	env.befriend(alice, bob)
	env.equalExpense(alice, "40", "", alice, bob)

	tests := []struct {
		name string
		as   testUser
		req  *api.SettleUpRequest
		code connect.Code
	}{
		{"missing payee", bob, &api.SettleUpRequest{}, connect.CodeInvalidArgument},
		{"to self", bob, &api.SettleUpRequest{ToUserID: bob.ID}, connect.CodeInvalidArgument},
		{"third party", carol, &api.SettleUpRequest{FromUserID: bob.ID, ToUserID: alice.ID}, connect.CodePermissionDenied},
		{"unknown method", bob, &api.SettleUpRequest{ToUserID: alice.ID, Method: "barter"}, connect.CodeInvalidArgument},
		{"unknown payee", bob, &api.SettleUpRequest{ToUserID: "missing"}, connect.CodeNotFound},
		{"negative amount", bob, &api.SettleUpRequest{ToUserID: alice.ID, Amount: amount("-1")}, connect.CodeInvalidArgument},
		{"fractional cents", bob, &api.SettleUpRequest{ToUserID: alice.ID, Amount: amount("1.001")}, connect.CodeInvalidArgument},
		{"group outsider", bob, &api.SettleUpRequest{ToUserID: alice.ID, GroupID: "missing"}, connect.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.balances.SettleUp(ctx, as(tt.as, tt.req))
			assertCode(t, tt.code, err)
		})
	}
}

func TestSettleUp_GroupScope(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register("alice")
	bob := env.register("bob")
	env.befriend(alice, bob)
	group := env.createGroup(alice, bob)

	env.equalExpense(alice, "10", group.ID, alice, bob)
	env.equalExpense(alice, "60", "", alice, bob)

	// Only the 5 owed inside the group can be settled against it.
	_, err := env.balances.SettleUp(ctx, as(bob, &api.SettleUpRequest{ToUserID: alice.ID, GroupID: group.ID, Amount: amount("6")}))
	assertCode(t, connect.CodeFailedPrecondition, err)

	resp, err := env.balances.SettleUp(ctx, as(bob, &api.SettleUpRequest{ToUserID: alice.ID, GroupID: group.ID}))
	require.NoError(t, err)
	assert.Equal(t, group.ID, resp.Msg.Settlement.GroupID)
	assertAmount(t, "5", resp.Msg.Settlement.Amount)

	balances, err := env.groups.GetGroupBalances(ctx, as(alice, &api.GetGroupBalancesRequest{GroupID: group.ID}))
	require.NoError(t, err)
	assert.Empty(t, balances.Msg.SuggestedPayments)

	overall, err := env.balances.GetBalanceBetweenUsers(ctx, as(alice, &api.GetBalanceBetweenUsersRequest{UserID: bob.ID}))
	require.NoError(t, err)
	assertAmount(t, "30", overall.Msg.Amount)
}

func TestSettleUp_RequestIDIsIdempotent(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register("alice")
	bob := env.register("bob")
	env.befriend(alice, bob)
	env.equalExpense(alice, "40", "", alice, bob)

	req := &api.SettleUpRequest{ToUserID: alice.ID, RequestID: "pay-1"}
	first, err := env.balances.SettleUp(ctx, as(bob, req))
	require.NoError(t, err)

	// The debt is now zero, but the retry still succeeds with the original.
	second, err := env.balances.SettleUp(ctx, as(bob, req))
	require.NoError(t, err)
	assert.Equal(t, first.Msg.Settlement.ID, second.Msg.Settlement.ID)

	list, err := env.balances.ListSettlements(ctx, as(bob, &api.ListSettlementsRequest{}))
	require.NoError(t, err)
	assert.Len(t, list.Msg.Settlements, 1)
}

func TestListSettlements(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register("alice")
	bob := env.register("bob")
	carol := env.register("carol")
	env.befriend(alice, bob)
	env.befriend(alice, carol)
	group := env.createGroup(alice, bob, carol)

	env.equalExpense(alice, "20", "", alice, bob)
	env.equalExpense(alice, "20", "", alice, carol)
	env.equalExpense(alice, "20", group.ID, bob, carol)

	for _, u := range []testUser{bob, carol} {
		_, err := env.balances.SettleUp(ctx, as(u, &api.SettleUpRequest{ToUserID: alice.ID, Amount: amount("10")}))
		require.NoError(t, err)
	}
	_, err := env.balances.SettleUp(ctx, as(carol, &api.SettleUpRequest{ToUserID: alice.ID, GroupID: group.ID}))
	require.NoError(t, err)

	count := func(u testUser, req *api.ListSettlementsRequest) int {
		t.Helper()
		resp, err := env.balances.ListSettlements(ctx, as(u, req))
		require.NoError(t, err)
		return len(resp.Msg.Settlements)
	}

	assert.Equal(t, 3, count(alice, &api.ListSettlementsRequest{}))
	assert.Equal(t, 1, count(bob, &api.ListSettlementsRequest{}))
	assert.Equal(t, 2, count(alice, &api.ListSettlementsRequest{FriendID: carol.ID}))
	assert.Equal(t, 1, count(bob, &api.ListSettlementsRequest{GroupID: group.ID}))
	assert.Equal(t, 2, count(alice, &api.ListSettlementsRequest{Limit: 2}))

	outsider := env.register("outsider")
	_, err = env.balances.ListSettlements(ctx, as(outsider, &api.ListSettlementsRequest{GroupID: group.ID}))
	assertCode(t, connect.CodePermissionDenied, err)
}

func TestDeleteSettlement(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register("alice")
	bob := env.register("bob")
	env.befriend(alice, bob)
	env.equalExpense(alice, "40", "", alice, bob)

	resp, err := env.balances.SettleUp(ctx, as(bob, &api.SettleUpRequest{ToUserID: alice.ID}))
	require.NoError(t, err)
	id := resp.Msg.Settlement.ID

	_, err = env.balances.DeleteSettlement(ctx, as(alice, &api.DeleteSettlementRequest{SettlementID: id}))
	assertCode(t, connect.CodePermissionDenied, err)

	_, err = env.balances.DeleteSettlement(ctx, as(bob, &api.DeleteSettlementRequest{SettlementID: id}))
	require.NoError(t, err)

	bal, err := env.balances.GetBalanceBetweenUsers(ctx, as(alice, &api.GetBalanceBetweenUsersRequest{UserID: bob.ID}))
	require.NoError(t, err)
	assertAmount(t, "20", bal.Msg.Amount)

	feed, err := env.activity.ListActivity(ctx, as(alice, &api.ListActivityRequest{}))
	require.NoError(t, err)
	require.NotEmpty(t, feed.Msg.Activities)
	latest := feed.Msg.Activities[0]
	assert.Equal(t, string(models.ActivitySettlementDeleted), latest.Type)
	assert.Equal(t, id, latest.SettlementID)
	assert.Equal(t, bob.ID, latest.ActorID)
	assertAmount(t, "20", latest.Amount)

	deleted, err := env.activity.ListActivity(ctx, as(bob, &api.ListActivityRequest{Type: string(models.ActivitySettlementDeleted)}))
	require.NoError(t, err)
	assert.Len(t, deleted.Msg.Activities, 1)

	_, err = env.balances.DeleteSettlement(ctx, as(bob, &api.DeleteSettlementRequest{SettlementID: id}))
	assertCode(t, connect.CodeNotFound, err)
}

func TestSettleUp_ConcurrentPaymentsNeverOverpay(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register("alice")
	bob := env.register("bob")
	env.befriend(alice, bob)
	env.equalExpense(alice, "40", "", alice, bob)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.balances.SettleUp(ctx, as(bob, &api.SettleUpRequest{ToUserID: alice.ID, Amount: amount("5")}))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err), "error: %v", err)
	}
	assert.Equal(t, 4, succeeded)

	bal, err := env.balances.GetBalanceBetweenUsers(ctx, as(alice, &api.GetBalanceBetweenUsersRequest{UserID: bob.ID}))
	require.NoError(t, err)
	assertAmount(t, "0", bal.Msg.Amount)
}
