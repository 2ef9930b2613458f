package apiconnect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/pkg/api"
)

// ExpenseServiceName is the fully-qualified name of ExpenseService.
const ExpenseServiceName = "settleup.v1.ExpenseService"

// Procedure names, used as HTTP paths and in interceptors.
const (
	ExpenseServiceCreateExpenseProcedure = "/settleup.v1.ExpenseService/CreateExpense"
	ExpenseServiceGetExpenseProcedure    = "/settleup.v1.ExpenseService/GetExpense"
	ExpenseServiceUpdateExpenseProcedure = "/settleup.v1.ExpenseService/UpdateExpense"
	ExpenseServiceDeleteExpenseProcedure = "/settleup.v1.ExpenseService/DeleteExpense"
	ExpenseServiceListExpensesProcedure  = "/settleup.v1.ExpenseService/ListExpenses"
	ExpenseServicePreviewSplitsProcedure = "/settleup.v1.ExpenseService/PreviewSplits"
)

// ExpenseServiceHandler is the server side of ExpenseService. ExpenseService records and edits shared expenses.
type ExpenseServiceHandler interface {
	CreateExpense(context.Context, *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error)
	GetExpense(context.Context, *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error)
	UpdateExpense(context.Context, *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.UpdateExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error)
	PreviewSplits(context.Context, *connect.Request[api.PreviewSplitsRequest]) (*connect.Response[api.PreviewSplitsResponse], error)
}

// NewExpenseServiceHandler builds an HTTP handler for svc. It returns the path
// to mount the handler on.
func NewExpenseServiceHandler(svc ExpenseServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	createExpense := connect.NewUnaryHandler(ExpenseServiceCreateExpenseProcedure, svc.CreateExpense, opts...)
	getExpense := connect.NewUnaryHandler(ExpenseServiceGetExpenseProcedure, svc.GetExpense, opts...)
	updateExpense := connect.NewUnaryHandler(ExpenseServiceUpdateExpenseProcedure, svc.UpdateExpense, opts...)
	deleteExpense := connect.NewUnaryHandler(ExpenseServiceDeleteExpenseProcedure, svc.DeleteExpense, opts...)
	listExpenses := connect.NewUnaryHandler(ExpenseServiceListExpensesProcedure, svc.ListExpenses, opts...)
	previewSplits := connect.NewUnaryHandler(ExpenseServicePreviewSplitsProcedure, svc.PreviewSplits, opts...)
	return "/" + ExpenseServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ExpenseServiceCreateExpenseProcedure:
			createExpense.ServeHTTP(w, r)
		case ExpenseServiceGetExpenseProcedure:
			getExpense.ServeHTTP(w, r)
		case ExpenseServiceUpdateExpenseProcedure:
			updateExpense.ServeHTTP(w, r)
		case ExpenseServiceDeleteExpenseProcedure:
			deleteExpense.ServeHTTP(w, r)
		case ExpenseServiceListExpensesProcedure:
			listExpenses.ServeHTTP(w, r)
		case ExpenseServicePreviewSplitsProcedure:
			previewSplits.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// ExpenseServiceClient is a typed client for ExpenseService.
type ExpenseServiceClient struct {
	createExpense *connect.Client[api.CreateExpenseRequest, api.CreateExpenseResponse]
	getExpense    *connect.Client[api.GetExpenseRequest, api.GetExpenseResponse]
	updateExpense *connect.Client[api.UpdateExpenseRequest, api.UpdateExpenseResponse]
	deleteExpense *connect.Client[api.DeleteExpenseRequest, api.DeleteExpenseResponse]
	listExpenses  *connect.Client[api.ListExpensesRequest, api.ListExpensesResponse]
	previewSplits *connect.Client[api.PreviewSplitsRequest, api.PreviewSplitsResponse]
}

// NewExpenseServiceClient returns a client for ExpenseService at baseURL, for example
// http://localhost:8080.
func NewExpenseServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ExpenseServiceClient {
	opts = clientOptions(opts)
	return &ExpenseServiceClient{
		createExpense: connect.NewClient[api.CreateExpenseRequest, api.CreateExpenseResponse](httpClient, baseURL+ExpenseServiceCreateExpenseProcedure, opts...),
		getExpense:    connect.NewClient[api.GetExpenseRequest, api.GetExpenseResponse](httpClient, baseURL+ExpenseServiceGetExpenseProcedure, opts...),
		updateExpense: connect.NewClient[api.UpdateExpenseRequest, api.UpdateExpenseResponse](httpClient, baseURL+ExpenseServiceUpdateExpenseProcedure, opts...),
		deleteExpense: connect.NewClient[api.DeleteExpenseRequest, api.DeleteExpenseResponse](httpClient, baseURL+ExpenseServiceDeleteExpenseProcedure, opts...),
		listExpenses:  connect.NewClient[api.ListExpensesRequest, api.ListExpensesResponse](httpClient, baseURL+ExpenseServiceListExpensesProcedure, opts...),
		previewSplits: connect.NewClient[api.PreviewSplitsRequest, api.PreviewSplitsResponse](httpClient, baseURL+ExpenseServicePreviewSplitsProcedure, opts...),
	}
}

func (c *ExpenseServiceClient) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	return c.getExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) UpdateExpense(ctx context.Context, req *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.UpdateExpenseResponse], error) {
	return c.updateExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) PreviewSplits(ctx context.Context, req *connect.Request[api.PreviewSplitsRequest]) (*connect.Response[api.PreviewSplitsResponse], error) {
	return c.previewSplits.CallUnary(ctx, req)
}
