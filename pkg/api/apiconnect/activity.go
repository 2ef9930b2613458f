package apiconnect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/pkg/api"
)

// ActivityServiceName is the fully-qualified name of ActivityService.
const ActivityServiceName = "settleup.v1.ActivityService"

// Procedure names, used as HTTP paths and in interceptors.
const (
	ActivityServiceListActivityProcedure = "/settleup.v1.ActivityService/ListActivity"
)

// ActivityServiceHandler is the server side of ActivityService. ActivityService reads the caller's activity feed.
type ActivityServiceHandler interface {
	ListActivity(context.Context, *connect.Request[api.ListActivityRequest]) (*connect.Response[api.ListActivityResponse], error)
}

// NewActivityServiceHandler builds an HTTP handler for svc. It returns the path
// to mount the handler on.
func NewActivityServiceHandler(svc ActivityServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	listActivity := connect.NewUnaryHandler(ActivityServiceListActivityProcedure, svc.ListActivity, opts...)
	return "/" + ActivityServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ActivityServiceListActivityProcedure:
			listActivity.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// ActivityServiceClient is a typed client for ActivityService.
type ActivityServiceClient struct {
	listActivity *connect.Client[api.ListActivityRequest, api.ListActivityResponse]
}

// NewActivityServiceClient returns a client for ActivityService at baseURL, for example
// http://localhost:8080.
func NewActivityServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ActivityServiceClient {
	opts = clientOptions(opts)
	return &ActivityServiceClient{
		listActivity: connect.NewClient[api.ListActivityRequest, api.ListActivityResponse](httpClient, baseURL+ActivityServiceListActivityProcedure, opts...),
	}
}

func (c *ActivityServiceClient) ListActivity(ctx context.Context, req *connect.Request[api.ListActivityRequest]) (*connect.Response[api.ListActivityResponse], error) {
	return c.listActivity.CallUnary(ctx, req)
}
