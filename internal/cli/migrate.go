package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/settleup/internal/storage/sqlite"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	Database string
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(opts.Database)
			if err != nil {
				return err
			}

			store, err := sqlite.New(cfg.DBPath)
			if err != nil {
				return err
			}
			if err := store.Close(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "database ready: %s\n", cfg.DBPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")

	return cmd
}
