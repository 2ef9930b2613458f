package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmynk/settleup/internal/auth"
	"github.com/mmynk/settleup/internal/config"
	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/server"
	"github.com/mmynk/settleup/internal/storage/sqlite"
	"github.com/mmynk/settleup/internal/telemetry"
	"github.com/mmynk/settleup/pkg/logging"
)

// ServeOptions holds flags for the serve command. Flags left unset keep
// the value from the config file or environment.
type ServeOptions struct {
	*RootOptions
	Addr      string
	Database  string
	StaticDir string
	LogLevel  string
	LogFormat string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the SettleUp Connect server",
		Long: `Run the SettleUp Connect server.

Settings come from the config file, then the environment, then flags.
JWT_SECRET (or auth.jwt_secret) is required.

Example:
  JWT_SECRET=change-me settleup serve --addr :8080 --db ./data/settleup.db
  settleup serve --config ./settleup.yaml --log-format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().StringVar(&opts.StaticDir, "static", "", "directory of static files to serve (overrides config)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	cmd.Flags().StringVar(&opts.LogFormat, "log-format", "", "log format: text, json (overrides config)")

	return cmd
}

// resolve loads the configuration, applies flags that were set and
// validates the result.
func (o *ServeOptions) resolve(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := o.loadConfig(o.Database)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr = o.Addr
	}
	if flags.Changed("static") {
		cfg.StaticDir = o.StaticDir
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = o.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.Setup(logging.Options{Level: level, Format: cfg.Log.Format})

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("Storage initialized", "database", cfg.DBPath)

	tp, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Insecure:    cfg.Tracing.Insecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to flush traces", "error", err)
		}
	}()
	logger.Info("Tracing configured", "enabled", tp.Enabled(), "endpoint", cfg.Tracing.Endpoint)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	handler, err := server.New(server.Options{
		Store:         store,
		Authenticator: auth.NewPasswordAuthenticator(store),
		JWTManager:    auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Logger:        logger,
		Metrics:       m,
		Tracer:        tp.RPCTracer(),
		StaticDir:     cfg.StaticDir,
	})
	if err != nil {
		return err
	}

	return server.Run(ctx, cfg.Addr, handler, logger)
}
