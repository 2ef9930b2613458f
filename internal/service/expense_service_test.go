package service

import (
	"context"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/pkg/api"
)

func splitAmounts(splits []*api.Split) map[string]string {
	out := make(map[string]string, len(splits))
	for _, s := range splits {
		out[s.UserID] = s.Amount.StringFixed(2)
	}
	return out
}

func TestCreateExpense(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register("alice")
	bob := env.register("bob")
	carol := env.register("carol")
	env.befriend(alice, bob)
	env.befriend(alice, carol)

	resp, err := env.expenses.CreateExpense(ctx, as(alice, &api.CreateExpenseRequest{
		Description: "Groceries",
		Amount:      amount("100"),
		Category:    "food",
		Participants: []*api.Share{
			{UserID: alice.ID},
			{UserID: bob.ID},
			{UserID: carol.ID},
		},
	}))
	require.NoError(t, err)

	e := resp.Msg.Expense
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "Groceries", e.Description)
	assert.Equal(t, "Food", e.Category)
	assert.Equal(t, alice.ID, e.PaidBy)
	assert.Equal(t, alice.ID, e.CreatedBy)
	assert.Equal(t, "equal", e.SplitType)
	assert.Equal(t, int64(1), e.Version)
	assert.Equal(t, time.Now().Format(models.DateLayout), e.Date)
	assert.Equal(t, map[string]string{
		alice.ID: "33.34",
		bob.ID:   "33.33",
		carol.ID: "33.33",
	}, splitAmounts(e.Splits))
}

func TestCreateExpense_SplitTypes(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register("alice")
	bob := env.register("bob")
	env.befriend(alice, bob)

	tests := []struct {
		name      string
		splitType string
		values    [2]string
		want      [2]string
		code      connect.Code
	}{
		{name: "exact", splitType: "exact", values: [2]string{"12.50", "37.50"}, want: [2]string{"12.50", "37.50"}},
		{name: "percent", splitType: "percent", values: [2]string{"30", "70"}, want: [2]string{"15.00", "35.00"}},
		{name: "shares", splitType: "shares", values: [2]string{"1", "4"}, want: [2]string{"10.00", "40.00"}},
		{name: "exact mismatch", splitType: "exact", values: [2]string{"10", "10"}, code: connect.CodeInvalidArgument},
		{name: "percent not 100", splitType: "percent", values: [2]string{"50", "40"}, code: connect.CodeInvalidArgument},
		{name: "zero shares", splitType: "shares", values: [2]string{"0", "0"}, code: connect.CodeInvalidArgument},
		{name: "unknown type", splitType: "random", values: [2]string{"1", "1"}, code: connect.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.expenses.CreateExpense(ctx, as(alice, &api.CreateExpenseRequest{
				Description: tt.name,
				Amount:      amount("50"),
				SplitType:   tt.splitType,
				Participants: []*api.Share{
					{UserID: alice.ID, Value: amount(tt.values[0])},
					{UserID: bob.ID, Value: amount(tt.values[1])},
				},
			}))
			if tt.code != 0 {
				assertCode(t, tt.code, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, map[string]string{
				alice.ID: tt.want[0],
				bob.ID:   tt.want[1],
			}, splitAmounts(resp.Msg.Expense.Splits))
		})
	}
}

func TestCreateExpense_Validation(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register("alice")
	bob := env.register("bob")
	stranger := env.register("stranger")
	env.befriend(alice, bob)

	base := func() *api.CreateExpenseRequest {
		return &api.CreateExpenseRequest{
			Description:  "Taxi",
			Amount:       amount("20"),
			Participants: []*api.Share{{UserID: alice.ID}, {UserID: bob.ID}},
		}
	}

	tests := []struct {
		name   string
		modify func(*api.CreateExpenseRequest)
		code   connect.Code
	}{
		{"missing description", func(r *api.CreateExpenseRequest) { r.Description = "  " }, connect.CodeInvalidArgument},
		{"zero amount", func(r *api.CreateExpenseRequest) { r.Amount = amount("0") }, connect.CodeInvalidArgument},
		{"negative amount", func(r *api.CreateExpenseRequest) { r.Amount = amount("-5") }, connect.CodeInvalidArgument},
		{"fractional cents", func(r *api.CreateExpenseRequest) { r.Amount = amount("1.005") }, connect.CodeInvalidArgument},
		{"bad date", func(r *api.CreateExpenseRequest) { r.Date = "14/10/2026" }, connect.CodeInvalidArgument},
		{"no participants", func(r *api.CreateExpenseRequest) { r.Participants = nil }, connect.CodeInvalidArgument},
		{"duplicate participant", func(r *api.CreateExpenseRequest) {
			r.Participants = []*api.Share{{UserID: bob.ID}, {UserID: bob.ID}}
		}, connect.CodeInvalidArgument},
		{"participant not a friend", func(r *api.CreateExpenseRequest) {
			r.Participants = append(r.Participants, &api.Share{UserID: stranger.ID})
		}, connect.CodePermissionDenied},
		{"caller not involved", func(r *api.CreateExpenseRequest) {
			r.PaidBy = bob.ID
			r.Participants = []*api.Share{{UserID: bob.ID}}
		}, connect.CodePermissionDenied},
		{"group caller is not in", func(r *api.CreateExpenseRequest) { r.GroupID = "missing" }, connect.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.modify(req)
			_, err := env.expenses.CreateExpense(ctx, as(alice, req))
			assertCode(t, tt.code, err)
		})
	}
}

func TestCreateExpense_GroupMembership(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register("alice")
	bob := env.register("bob")
	carol := env.register("carol")
	env.befriend(alice, bob)
	env.befriend(alice, carol)
	group := env.createGroup(alice, bob)

	_, err := env.expenses.CreateExpense(ctx, as(alice, &api.CreateExpenseRequest{
		Description:  "Hotel",
		Amount:       amount("90"),
		GroupID:      group.ID,
		Participants: []*api.Share{{UserID: alice.ID}, {UserID: carol.ID}},
	}))
	assertCode(t, connect.CodePermissionDenied, err)

	// Any member may record an expense for other members.
	resp, err := env.expenses.CreateExpense(ctx, as(bob, &api.CreateExpenseRequest{
		Description:  "Hotel",
		Amount:       amount("90"),
		GroupID:      group.ID,
		Participants: []*api.Share{{UserID: alice.ID}, {UserID: bob.ID}},
	}))
	require.NoError(t, err)
	assert.Equal(t, group.ID, resp.Msg.Expense.GroupID)

	_, err = env.expenses.CreateExpense(ctx, as(carol, &api.CreateExpenseRequest{
		Description:  "Snacks",
		Amount:       amount("10"),
		GroupID:      group.ID,
		Participants: []*api.Share{{UserID: carol.ID}},
	}))
	assertCode(t, connect.CodePermissionDenied, err)
}

func TestCreateExpense_RequestIDIsIdempotent(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register("alice")
	bob := env.register("bob")
	env.befriend(alice, bob)

	req := &api.CreateExpenseRequest{
		Description:  "Tickets",
		Amount:       amount("40"),
		Participants: []*api.Share{{UserID: alice.ID}, {UserID: bob.ID}},
		RequestID:    "req-1",
	}
	first, err := env.expenses.CreateExpense(ctx, as(alice, req))
	require.NoError(t, err)
	second, err := env.expenses.CreateExpense(ctx, as(alice, req))
	require.NoError(t, err)
	assert.Equal(t, first.Msg.Expense.ID, second.Msg.Expense.ID)

	list, err := env.expenses.ListExpenses(ctx, as(alice, &api.ListExpensesRequest{}))
	require.NoError(t, err)
	assert.Len(t, list.Msg.Expenses, 1)

	bal, err := env.balances.GetBalanceBetweenUsers(ctx, as(alice, &api.GetBalanceBetweenUsersRequest{UserID: bob.ID}))
	require.NoError(t, err)
	assertAmount(t, "20", bal.Msg.Amount)
}

func TestGetExpense(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register("alice")
	bob := env.register("bob")
	carol := env.register("carol")
	env.befriend(alice, bob)
	env.befriend(alice, carol)
	group := env.createGroup(alice, bob, carol)

	personal := env.equalExpense(alice, "10", "", alice, bob)
	shared := env.equalExpense(alice, "10", group.ID, alice, bob)

	resp, err := env.expenses.GetExpense(ctx, as(bob, &api.GetExpenseRequest{ExpenseID: personal.ID}))
	require.NoError(t, err)
	assert.Equal(t, personal.ID, resp.Msg.Expense.ID)

	_, err = env.expenses.GetExpense(ctx, as(carol, &api.GetExpenseRequest{ExpenseID: personal.ID}))
	assertCode(t, connect.CodePermissionDenied, err)

	// Group members can see group expenses they are not part of.
	_, err = env.expenses.GetExpense(ctx, as(carol, &api.GetExpenseRequest{ExpenseID: shared.ID}))
	require.NoError(t, err)

	_, err = env.expenses.GetExpense(ctx, as(alice, &api.GetExpenseRequest{ExpenseID: "missing"}))
	assertCode(t, connect.CodeNotFound, err)
}

func TestUpdateExpense(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register("alice")
	bob := env.register("bob")
	env.befriend(alice, bob)
	original := env.equalExpense(alice, "30", "", alice, bob)

	resp, err := env.expenses.UpdateExpense(ctx, as(alice, &api.UpdateExpenseRequest{
		ExpenseID:    original.ID,
		Version:      original.Version,
		Description:  "Dinner and drinks",
		Amount:       amount("45"),
		SplitType:    "exact",
		Participants: []*api.Share{{UserID: alice.ID, Value: amount("15")}, {UserID: bob.ID, Value: amount("30")}},
	}))
	require.NoError(t, err)

	updated := resp.Msg.Expense
	assert.Equal(t, original.ID, updated.ID)
	assert.Equal(t, original.Version+1, updated.Version)
	assert.Equal(t, original.Date, updated.Date)
	assert.Equal(t, alice.ID, updated.PaidBy)
	assert.Equal(t, "Dinner and drinks", updated.Description)

	bal, err := env.balances.GetBalanceBetweenUsers(ctx, as(alice, &api.GetBalanceBetweenUsersRequest{UserID: bob.ID}))
	require.NoError(t, err)
	assertAmount(t, "30", bal.Msg.Amount)

	t.Run("stale version", func(t *testing.T) {
		_, err := env.expenses.UpdateExpense(ctx, as(alice, &api.UpdateExpenseRequest{
			ExpenseID:    original.ID,
			Version:      original.Version,
			Description:  "Lost update",
			Amount:       amount("10"),
			Participants: []*api.Share{{UserID: alice.ID}, {UserID: bob.ID}},
		}))
		assertCode(t, connect.CodeAborted, err)
	})

	t.Run("participant who did not pay or create", func(t *testing.T) {
		_, err := env.expenses.UpdateExpense(ctx, as(bob, &api.UpdateExpenseRequest{
			ExpenseID:    original.ID,
			Version:      updated.Version,
			Description:  "Mine now",
			Amount:       amount("10"),
			Participants: []*api.Share{{UserID: bob.ID}},
		}))
		assertCode(t, connect.CodePermissionDenied, err)
	})

	t.Run("invalid splits", func(t *testing.T) {
		_, err := env.expenses.UpdateExpense(ctx, as(alice, &api.UpdateExpenseRequest{
			ExpenseID:    original.ID,
			Version:      updated.Version,
			Description:  "Dinner",
			Amount:       amount("45"),
			SplitType:    "exact",
			Participants: []*api.Share{{UserID: alice.ID, Value: amount("1")}},
		}))
		assertCode(t, connect.CodeInvalidArgument, err)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := env.expenses.UpdateExpense(ctx, as(alice, &api.UpdateExpenseRequest{ExpenseID: "missing"}))
		assertCode(t, connect.CodeNotFound, err)
	})
}

func TestDeleteExpense(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register("alice")
	bob := env.register("bob")
	env.befriend(alice, bob)
	expense := env.equalExpense(alice, "30", "", alice, bob)

	_, err := env.expenses.DeleteExpense(ctx, as(bob, &api.DeleteExpenseRequest{ExpenseID: expense.ID}))
	assertCode(t, connect.CodePermissionDenied, err)

	_, err = env.expenses.DeleteExpense(ctx, as(alice, &api.DeleteExpenseRequest{ExpenseID: expense.ID}))
	require.NoError(t, err)

	_, err = env.expenses.GetExpense(ctx, as(alice, &api.GetExpenseRequest{ExpenseID: expense.ID}))
	assertCode(t, connect.CodeNotFound, err)

	bal, err := env.balances.GetUserBalance(ctx, as(bob, &api.GetUserBalanceRequest{}))
	require.NoError(t, err)
	assertAmount(t, "0", bal.Msg.Net)
}

func TestListExpenses(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register("alice")
	bob := env.register("bob")
	carol := env.register("carol")
	env.befriend(alice, bob)
	env.befriend(alice, carol)
	group := env.createGroup(alice, bob, carol)

	env.equalExpense(alice, "10", "", alice, bob)
	env.equalExpense(alice, "20", "", alice, carol)
	env.equalExpense(alice, "30", group.ID, bob, carol)

	count := func(u testUser, req *api.ListExpensesRequest) int {
		t.Helper()
		resp, err := env.expenses.ListExpenses(ctx, as(u, req))
		require.NoError(t, err)
		return len(resp.Msg.Expenses)
	}

	assert.Equal(t, 3, count(alice, &api.ListExpensesRequest{}))
	assert.Equal(t, 2, count(bob, &api.ListExpensesRequest{}))
	assert.Equal(t, 1, count(alice, &api.ListExpensesRequest{GroupID: group.ID}))
	assert.Equal(t, 2, count(alice, &api.ListExpensesRequest{FriendID: bob.ID}))
	assert.Equal(t, 1, count(alice, &api.ListExpensesRequest{FriendID: bob.ID, Limit: 1}))
	assert.Equal(t, 2, count(alice, &api.ListExpensesRequest{Limit: 2}))

	outsider := env.register("outsider")
	_, err := env.expenses.ListExpenses(ctx, as(outsider, &api.ListExpensesRequest{GroupID: group.ID}))
	assertCode(t, connect.CodePermissionDenied, err)
}

func TestPreviewSplits(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register("alice")

	resp, err := env.expenses.PreviewSplits(ctx, as(alice, &api.PreviewSplitsRequest{
		Amount:       amount("10"),
		Participants: []*api.Share{{UserID: "a"}, {UserID: "b"}, {UserID: "c"}},
	}))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "3.34", "b": "3.33", "c": "3.33"}, splitAmounts(resp.Msg.Splits))

	_, err = env.expenses.PreviewSplits(ctx, as(alice, &api.PreviewSplitsRequest{Amount: amount("10")}))
	assertCode(t, connect.CodeInvalidArgument, err)

	list, err := env.expenses.ListExpenses(ctx, as(alice, &api.ListExpensesRequest{}))
	require.NoError(t, err)
	assert.Empty(t, list.Msg.Expenses)
}

func TestCreateExpense_AmountBeyondInt64Cents(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register("alice")
	bob := env.register("bob")
	env.befriend(alice, bob)

	created := env.equalExpense(alice, "100000000000000000000", "", alice, bob)
	assert.Equal(t, map[string]string{
		alice.ID: "50000000000000000000.00",
		bob.ID:   "50000000000000000000.00",
	}, splitAmounts(created.Splits))

	got, err := env.expenses.GetExpense(ctx, as(alice, &api.GetExpenseRequest{ExpenseID: created.ID}))
	require.NoError(t, err)
	total := amount("0")
	for _, s := range got.Msg.Expense.Splits {
		total = total.Add(s.Amount)
	}
	assertAmount(t, "100000000000000000000", total)

	bal, err := env.balances.GetBalanceBetweenUsers(ctx, as(alice, &api.GetBalanceBetweenUsersRequest{UserID: bob.ID}))
	require.NoError(t, err)
	assertAmount(t, "50000000000000000000", bal.Msg.Amount)
}
