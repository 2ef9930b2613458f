package apiconnect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/pkg/api"
)

// BalanceServiceName is the fully-qualified name of BalanceService.
const BalanceServiceName = "settleup.v1.BalanceService"

// Procedure names, used as HTTP paths and in interceptors.
const (
	BalanceServiceGetUserBalanceProcedure         = "/settleup.v1.BalanceService/GetUserBalance"
	BalanceServiceGetBalanceBetweenUsersProcedure = "/settleup.v1.BalanceService/GetBalanceBetweenUsers"
	BalanceServiceListFriendBalancesProcedure     = "/settleup.v1.BalanceService/ListFriendBalances"
	BalanceServiceSettleUpProcedure               = "/settleup.v1.BalanceService/SettleUp"
	BalanceServiceListSettlementsProcedure        = "/settleup.v1.BalanceService/ListSettlements"
	BalanceServiceDeleteSettlementProcedure       = "/settleup.v1.BalanceService/DeleteSettlement"
)

// BalanceServiceHandler is the server side of BalanceService. BalanceService reports balances and records settlements.
type BalanceServiceHandler interface {
	GetUserBalance(context.Context, *connect.Request[api.GetUserBalanceRequest]) (*connect.Response[api.GetUserBalanceResponse], error)
	GetBalanceBetweenUsers(context.Context, *connect.Request[api.GetBalanceBetweenUsersRequest]) (*connect.Response[api.GetBalanceBetweenUsersResponse], error)
	ListFriendBalances(context.Context, *connect.Request[api.ListFriendBalancesRequest]) (*connect.Response[api.ListFriendBalancesResponse], error)
	SettleUp(context.Context, *connect.Request[api.SettleUpRequest]) (*connect.Response[api.SettleUpResponse], error)
	ListSettlements(context.Context, *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error)
	DeleteSettlement(context.Context, *connect.Request[api.DeleteSettlementRequest]) (*connect.Response[api.DeleteSettlementResponse], error)
}

// NewBalanceServiceHandler builds an HTTP handler for svc. It returns the path
// to mount the handler on.
func NewBalanceServiceHandler(svc BalanceServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	getUserBalance := connect.NewUnaryHandler(BalanceServiceGetUserBalanceProcedure, svc.GetUserBalance, opts...)
	getBalanceBetweenUsers := connect.NewUnaryHandler(BalanceServiceGetBalanceBetweenUsersProcedure, svc.GetBalanceBetweenUsers, opts...)
	listFriendBalances := connect.NewUnaryHandler(BalanceServiceListFriendBalancesProcedure, svc.ListFriendBalances, opts...)
	settleUp := connect.NewUnaryHandler(BalanceServiceSettleUpProcedure, svc.SettleUp, opts...)
	listSettlements := connect.NewUnaryHandler(BalanceServiceListSettlementsProcedure, svc.ListSettlements, opts...)
	deleteSettlement := connect.NewUnaryHandler(BalanceServiceDeleteSettlementProcedure, svc.DeleteSettlement, opts...)
	return "/" + BalanceServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case BalanceServiceGetUserBalanceProcedure:
			getUserBalance.ServeHTTP(w, r)
		case BalanceServiceGetBalanceBetweenUsersProcedure:
			getBalanceBetweenUsers.ServeHTTP(w, r)
		case BalanceServiceListFriendBalancesProcedure:
			listFriendBalances.ServeHTTP(w, r)
		case BalanceServiceSettleUpProcedure:
			settleUp.ServeHTTP(w, r)
		case BalanceServiceListSettlementsProcedure:
			listSettlements.ServeHTTP(w, r)
		case BalanceServiceDeleteSettlementProcedure:
			deleteSettlement.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// BalanceServiceClient is a typed client for BalanceService.
type BalanceServiceClient struct {
	getUserBalance         *connect.Client[api.GetUserBalanceRequest, api.GetUserBalanceResponse]
	getBalanceBetweenUsers *connect.Client[api.GetBalanceBetweenUsersRequest, api.GetBalanceBetweenUsersResponse]
	listFriendBalances     *connect.Client[api.ListFriendBalancesRequest, api.ListFriendBalancesResponse]
	settleUp               *connect.Client[api.SettleUpRequest, api.SettleUpResponse]
	listSettlements        *connect.Client[api.ListSettlementsRequest, api.ListSettlementsResponse]
	deleteSettlement       *connect.Client[api.DeleteSettlementRequest, api.DeleteSettlementResponse]
}

// NewBalanceServiceClient returns a client for BalanceService at baseURL, for example
// http://localhost:8080.
func NewBalanceServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *BalanceServiceClient {
	opts = clientOptions(opts)
	return &BalanceServiceClient{
		getUserBalance:         connect.NewClient[api.GetUserBalanceRequest, api.GetUserBalanceResponse](httpClient, baseURL+BalanceServiceGetUserBalanceProcedure, opts...),
		getBalanceBetweenUsers: connect.NewClient[api.GetBalanceBetweenUsersRequest, api.GetBalanceBetweenUsersResponse](httpClient, baseURL+BalanceServiceGetBalanceBetweenUsersProcedure, opts...),
		listFriendBalances:     connect.NewClient[api.ListFriendBalancesRequest, api.ListFriendBalancesResponse](httpClient, baseURL+BalanceServiceListFriendBalancesProcedure, opts...),
		settleUp:               connect.NewClient[api.SettleUpRequest, api.SettleUpResponse](httpClient, baseURL+BalanceServiceSettleUpProcedure, opts...),
		listSettlements:        connect.NewClient[api.ListSettlementsRequest, api.ListSettlementsResponse](httpClient, baseURL+BalanceServiceListSettlementsProcedure, opts...),
		deleteSettlement:       connect.NewClient[api.DeleteSettlementRequest, api.DeleteSettlementResponse](httpClient, baseURL+BalanceServiceDeleteSettlementProcedure, opts...),
	}
}

func (c *BalanceServiceClient) GetUserBalance(ctx context.Context, req *connect.Request[api.GetUserBalanceRequest]) (*connect.Response[api.GetUserBalanceResponse], error) {
	return c.getUserBalance.CallUnary(ctx, req)
}

func (c *BalanceServiceClient) GetBalanceBetweenUsers(ctx context.Context, req *connect.Request[api.GetBalanceBetweenUsersRequest]) (*connect.Response[api.GetBalanceBetweenUsersResponse], error) {
	return c.getBalanceBetweenUsers.CallUnary(ctx, req)
}

func (c *BalanceServiceClient) ListFriendBalances(ctx context.Context, req *connect.Request[api.ListFriendBalancesRequest]) (*connect.Response[api.ListFriendBalancesResponse], error) {
	return c.listFriendBalances.CallUnary(ctx, req)
}

func (c *BalanceServiceClient) SettleUp(ctx context.Context, req *connect.Request[api.SettleUpRequest]) (*connect.Response[api.SettleUpResponse], error) {
	return c.settleUp.CallUnary(ctx, req)
}

func (c *BalanceServiceClient) ListSettlements(ctx context.Context, req *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error) {
	return c.listSettlements.CallUnary(ctx, req)
}

func (c *BalanceServiceClient) DeleteSettlement(ctx context.Context, req *connect.Request[api.DeleteSettlementRequest]) (*connect.Response[api.DeleteSettlementResponse], error) {
	return c.deleteSettlement.CallUnary(ctx, req)
}
