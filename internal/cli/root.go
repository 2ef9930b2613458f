// Package cli implements the settleup command line: the server and a few
// maintenance commands that work directly on the database.
package cli

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mmynk/settleup/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	// ConfigPath is an optional YAML config file.
	ConfigPath string
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the settleup CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "settleup",
		Short: "SettleUp - shared expenses and balances",
		Long:  "Track shared expenses between friends and groups, see who owes whom, and settle up.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewBalancesCommand(opts))

	return cmd
}

// loadConfig reads the config file and environment, then applies dbPath
// when the command was given one.
func (o *RootOptions) loadConfig(dbPath string) (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if cfg.DBPath == "" {
		return nil, errors.New("no database path configured")
	}
	return cfg, nil
}
