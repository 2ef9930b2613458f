package middleware

import (
	"context"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/metrics"
)

// MetricsInterceptor records the count, latency and in-flight number of
// RPCs.
func MetricsInterceptor(m *metrics.Metrics) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			done := m.StartRPC(req.Spec().Procedure)
			resp, err := next(ctx, req)
			done(codeLabel(err))
			return resp, err
		}
	}
}

// codeLabel is "ok" for success, otherwise the Connect code name.
func codeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return connect.CodeOf(err).String()
}
