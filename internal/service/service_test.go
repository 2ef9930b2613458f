package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/settleup/internal/auth"
	"github.com/mmynk/settleup/internal/middleware"
	"github.com/mmynk/settleup/internal/storage/sqlite"
	"github.com/mmynk/settleup/pkg/api"
	"github.com/mmynk/settleup/pkg/api/apiconnect"
)

// testEnv is a server running every service against a temp-file SQLite
// store, plus a typed client for each.
type testEnv struct {
	t     *testing.T
	store *sqlite.SQLiteStore

	auth     *apiconnect.AuthServiceClient
	users    *apiconnect.UserServiceClient
	friends  *apiconnect.FriendServiceClient
	groups   *apiconnect.GroupServiceClient
	expenses *apiconnect.ExpenseServiceClient
	balances *apiconnect.BalanceServiceClient
	activity *apiconnect.ActivityServiceClient
}

// testUser is a registered account and its bearer token.
type testUser struct {
	ID    string
	Email string
	Token string
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)

	public := connect.WithInterceptors(middleware.OptionalAuth(jwtManager))
	private := connect.WithInterceptors(middleware.RequireAuth(jwtManager))

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewAuthServiceHandler(NewAuthService(authenticator, jwtManager, store, nil), public))
	mux.Handle(apiconnect.NewUserServiceHandler(NewUserService(store), private))
	mux.Handle(apiconnect.NewFriendServiceHandler(NewFriendService(store), private))
	mux.Handle(apiconnect.NewGroupServiceHandler(NewGroupService(store), private))
	mux.Handle(apiconnect.NewExpenseServiceHandler(NewExpenseService(store), private))
	mux.Handle(apiconnect.NewBalanceServiceHandler(NewBalanceService(store), private))
	mux.Handle(apiconnect.NewActivityServiceHandler(NewActivityService(store), private))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	client := http.DefaultClient
	return &testEnv{
		t:        t,
		store:    store,
		auth:     apiconnect.NewAuthServiceClient(client, server.URL),
		users:    apiconnect.NewUserServiceClient(client, server.URL),
		friends:  apiconnect.NewFriendServiceClient(client, server.URL),
		groups:   apiconnect.NewGroupServiceClient(client, server.URL),
		expenses: apiconnect.NewExpenseServiceClient(client, server.URL),
		balances: apiconnect.NewBalanceServiceClient(client, server.URL),
		activity: apiconnect.NewActivityServiceClient(client, server.URL),
	}
}

// register signs up a user named name with the address name@example.com.
func (e *testEnv) register(name string) testUser {
	e.t.Helper()
	email := name + "@example.com"
	resp, err := e.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Email:    email,
		FullName: name,
		Password: "password123",
	}))
	require.NoError(e.t, err)
	return testUser{ID: resp.Msg.User.ID, Email: email, Token: resp.Msg.Token}
}

// befriend makes a and b friends of each other.
func (e *testEnv) befriend(a, b testUser) {
	e.t.Helper()
	ctx := context.Background()
	_, err := e.friends.AddFriend(ctx, as(a, &api.AddFriendRequest{Email: b.Email}))
	require.NoError(e.t, err)
	_, err = e.friends.AddFriend(ctx, as(b, &api.AddFriendRequest{Email: a.Email}))
	require.NoError(e.t, err)
}

// createGroup creates a group owned by owner with the given members, who
// must already be owner's friends.
func (e *testEnv) createGroup(owner testUser, members ...testUser) *api.Group {
	e.t.Helper()
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	resp, err := e.groups.CreateGroup(context.Background(), as(owner, &api.CreateGroupRequest{
		Name:      "Trip",
		MemberIDs: ids,
	}))
	require.NoError(e.t, err)
	return resp.Msg.Group
}

// equalExpense records an expense paid by payer and split equally between
// the participants.
func (e *testEnv) equalExpense(payer testUser, total, groupID string, participants ...testUser) *api.Expense {
	e.t.Helper()
	shares := make([]*api.Share, len(participants))
	for i, p := range participants {
		shares[i] = &api.Share{UserID: p.ID}
	}
	resp, err := e.expenses.CreateExpense(context.Background(), as(payer, &api.CreateExpenseRequest{
		Description:  "Dinner",
		Amount:       amount(total),
		GroupID:      groupID,
		Participants: shares,
	}))
	require.NoError(e.t, err)
	return resp.Msg.Expense
}

// as wraps msg in a request authenticated as u.
func as[T any](u testUser, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+u.Token)
	return req
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, amount(want).Equal(got), "want %s, got %s", want, got.String())
}

func assertCode(t *testing.T, want connect.Code, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, connect.CodeOf(err), "error: %v", err)
}
