package middleware

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracingInterceptor opens a server span per RPC, named after the
// procedure. Incoming trace headers are read with the global propagator,
// so the span joins the caller's trace.
func TracingInterceptor(tracer trace.Tracer) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			procedure := req.Spec().Procedure
			service, method := splitProcedure(procedure)

			ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(req.Header()))
			ctx, span := tracer.Start(ctx, strings.TrimPrefix(procedure, "/"),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("rpc.system", "connect_rpc"),
					attribute.String("rpc.service", service),
					attribute.String("rpc.method", method),
				),
			)
			defer span.End()

			resp, err := next(ctx, req)

			span.SetAttributes(attribute.String("rpc.connect_rpc.error_code", codeLabel(err)))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, connect.CodeOf(err).String())
			}
			return resp, err
		}
	}
}

// splitProcedure turns "/pkg.Service/Method" into ("pkg.Service", "Method").
func splitProcedure(procedure string) (string, string) {
	service, method, _ := strings.Cut(strings.TrimPrefix(procedure, "/"), "/")
	return service, method
}
