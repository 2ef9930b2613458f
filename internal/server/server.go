// Package server assembles the settleup HTTP handler: every Connect service,
// the interceptor chain, health and metrics endpoints and optional static
// files, served over h2c.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/settleup/internal/auth"
	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/middleware"
	"github.com/mmynk/settleup/internal/service"
	"github.com/mmynk/settleup/internal/storage"
	"github.com/mmynk/settleup/pkg/api/apiconnect"
)

// apiPrefix is the path prefix shared by every Connect procedure.
const apiPrefix = "/settleup.v1."

// Options configures New. Store, Authenticator and JWTManager are required.
type Options struct {
	Store         storage.Store
	Authenticator auth.Authenticator
	JWTManager    *auth.JWTManager
	Logger        *slog.Logger
	// Metrics enables the RPC metrics interceptor and /metrics when set.
	Metrics *metrics.Metrics
	// Tracer opens a span per RPC. Defaults to a no-op tracer.
	Tracer trace.Tracer
	// StaticDir serves a frontend from this directory when set.
	StaticDir string
}

// New builds the root handler.
func New(opts Options) (http.Handler, error) {
	if opts.Store == nil || opts.Authenticator == nil || opts.JWTManager == nil {
		return nil, errors.New("server: store, authenticator and jwt manager are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("settleup")
	}

	// Tracing and metrics wrap auth so rejected calls are still counted;
	// logging runs inside auth to report the user.
	chain := func(authInterceptor connect.Interceptor) connect.HandlerOption {
		interceptors := []connect.Interceptor{middleware.TracingInterceptor(tracer)}
		if opts.Metrics != nil {
			interceptors = append(interceptors, middleware.MetricsInterceptor(opts.Metrics))
		}
		interceptors = append(interceptors, authInterceptor, middleware.LoggingInterceptor(logger))
		return connect.WithInterceptors(interceptors...)
	}
	public := chain(middleware.OptionalAuth(opts.JWTManager))
	private := chain(middleware.RequireAuth(opts.JWTManager))

	store := opts.Store
	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewAuthServiceHandler(service.NewAuthService(opts.Authenticator, opts.JWTManager, store, logger), public))
	mux.Handle(apiconnect.NewUserServiceHandler(service.NewUserService(store), private))
	mux.Handle(apiconnect.NewFriendServiceHandler(service.NewFriendService(store), private))
	mux.Handle(apiconnect.NewGroupServiceHandler(service.NewGroupService(store), private))
	mux.Handle(apiconnect.NewExpenseServiceHandler(service.NewExpenseService(store), private))
	mux.Handle(apiconnect.NewBalanceServiceHandler(service.NewBalanceService(store), private))
	mux.Handle(apiconnect.NewActivityServiceHandler(service.NewActivityService(store), private))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics.Handler())
	}

	if opts.StaticDir != "" {
		staticDir, err := filepath.Abs(opts.StaticDir)
		if err != nil {
			return nil, err
		}
		logger.Info("Serving static files", "path", staticDir)
		mux.Handle("/", staticHandler(staticDir))
	}

	return h2c.NewHandler(loggingMiddleware(logger, corsMiddleware(mux)), &http2.Server{}), nil
}

// Run serves handler on addr until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Connect server starting", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// staticHandler serves files from dir, falling back to index.html for
// unknown paths.
func staticHandler(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, apiPrefix) {
			http.NotFound(w, r)
			return
		}

		urlPath := r.URL.Path
		if urlPath == "/" {
			urlPath = "/index.html"
		}

		filePath := filepath.Join(dir, filepath.Clean("/"+urlPath))
		if info, err := os.Stat(filePath); err != nil || info.IsDir() {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}

		http.ServeFile(w, r, filePath)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
