package middleware

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor writes one line per RPC. Failures the caller caused
// log at warn, server faults at error.
func LoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			attrs := []slog.Attr{
				slog.String("procedure", req.Spec().Procedure),
				slog.String("user_id", GetUserID(ctx)),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			}
			level, msg := slog.LevelInfo, "RPC ok"
			if err != nil {
				code := connect.CodeOf(err)
				level, msg = slog.LevelWarn, "RPC error"
				if serverFault(code) {
					level = slog.LevelError
				}
				attrs = append(attrs, slog.String("code", code.String()), slog.Any("error", err))
			}
			logger.LogAttrs(ctx, level, msg, attrs...)

			return resp, err
		}
	}
}

func serverFault(code connect.Code) bool {
	switch code {
	case connect.CodeInternal, connect.CodeUnknown, connect.CodeDataLoss, connect.CodeUnavailable:
		return true
	}
	return false
}
