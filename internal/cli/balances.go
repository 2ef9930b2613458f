package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/mmynk/settleup/internal/auth"
	"github.com/mmynk/settleup/internal/middleware"
	"github.com/mmynk/settleup/internal/service"
	"github.com/mmynk/settleup/internal/storage/sqlite"
	"github.com/mmynk/settleup/pkg/api"
)

// BalancesOptions holds flags for the balances command.
type BalancesOptions struct {
	*RootOptions
	Database string
}

// balancesReport is the JSON shape of the balances command.
type balancesReport struct {
	User    *api.User                       `json:"user"`
	Total   *api.GetUserBalanceResponse     `json:"total"`
	Friends *api.ListFriendBalancesResponse `json:"friends"`
}

// NewBalancesCommand creates the balances command.
func NewBalancesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BalancesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "balances <email>",
		Short: "Print a user's balances from the database",
		Long: `Print a user's overall balance and their balance with each friend,
read directly from the database.

Example:
  settleup balances --db ./data/settleup.db alice@example.com
  settleup balances --format json alice@example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printBalances(cmd.Context(), opts, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")

	return cmd
}

func printBalances(ctx context.Context, opts *BalancesOptions, email string, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := opts.loadConfig(opts.Database)
	if err != nil {
		return err
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := store.GetUserByEmail(ctx, auth.NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("user %s: %w", email, err)
	}

	// Run the queries as the user, the same way an RPC would.
	ctx = middleware.WithUser(ctx, user.ID, user.Email)
	balances := service.NewBalanceService(store)
	total, err := balances.GetUserBalance(ctx, connect.NewRequest(&api.GetUserBalanceRequest{}))
	if err != nil {
		return err
	}
	friends, err := balances.ListFriendBalances(ctx, connect.NewRequest(&api.ListFriendBalancesRequest{}))
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(balancesReport{
			User:    &api.User{ID: user.ID, Email: user.Email, FullName: user.FullName, CreatedAt: user.CreatedAt},
			Total:   total.Msg,
			Friends: friends.Msg,
		})
	}

	fmt.Fprintf(w, "%s <%s>\n", user.FullName, user.Email)
	fmt.Fprintf(w, "  net:          %s\n", total.Msg.Net.StringFixed(2))
	fmt.Fprintf(w, "  owed to you:  %s\n", total.Msg.OwedToUser.StringFixed(2))
	fmt.Fprintf(w, "  you owe:      %s\n", total.Msg.UserOwes.StringFixed(2))
	for _, b := range friends.Msg.Balances {
		switch {
		case b.Amount.IsPositive():
			fmt.Fprintf(w, "  %s owes you %s\n", b.Friend.Email, b.Amount.StringFixed(2))
		case b.Amount.IsNegative():
			fmt.Fprintf(w, "  you owe %s %s\n", b.Friend.Email, b.Amount.Neg().StringFixed(2))
		default:
			fmt.Fprintf(w, "  settled up with %s\n", b.Friend.Email)
		}
	}
	return nil
}
