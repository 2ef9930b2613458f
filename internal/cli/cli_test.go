package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage/sqlite"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "settleup", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "migrate", "balances"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "migrate", "--db", filepath.Join(t.TempDir(), "x.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestMigrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "settleup.db")

	out, err := execute(t, "migrate", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "database ready: "+dbPath)

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestMigrate_UsesConfigFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "from-config.db")
	configPath := filepath.Join(dir, "settleup.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("db_path: "+dbPath+"\n"), 0o644))

	_, err := execute(t, "--config", configPath, "migrate")
	require.NoError(t, err)

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestServe_RejectsInvalidConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	dir := t.TempDir()
	configPath := filepath.Join(dir, "settleup.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("log:\n  level: loud\n"), 0o644))

	_, err := execute(t, "--config", configPath, "serve", "--db", filepath.Join(dir, "x.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
	assert.Contains(t, err.Error(), "log.level")
}

func TestServe_FlagsOverrideConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	dir := t.TempDir()
	configPath := filepath.Join(dir, "settleup.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("addr: \":9000\"\nlog:\n  format: json\n"), 0o644))

	root := NewRootCommand()
	serveCmd, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	require.NoError(t, serveCmd.Flags().Set("addr", ":9999"))
	require.NoError(t, serveCmd.Flags().Set("db", filepath.Join(dir, "flag.db")))

	opts := &ServeOptions{
		RootOptions: &RootOptions{ConfigPath: configPath, Format: "text"},
		Addr:        ":9999",
		Database:    filepath.Join(dir, "flag.db"),
	}
	cfg, err := opts.resolve(serveCmd)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, filepath.Join(dir, "flag.db"), cfg.DBPath)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func seedBalances(t *testing.T, dbPath string) {
	t.Helper()
	ctx := context.Background()
	store, err := sqlite.New(dbPath)
	require.NoError(t, err)
	defer store.Close()

	alice := models.NewUser("alice@example.com", "Alice", "hash")
	bob := models.NewUser("bob@example.com", "Bob", "hash")
	require.NoError(t, store.CreateUser(ctx, alice))
	require.NoError(t, store.CreateUser(ctx, bob))
	require.NoError(t, store.AddFriend(ctx, alice.ID, bob.ID))

	require.NoError(t, store.CreateExpense(ctx, &models.Expense{
		Description: "Dinner",
		Amount:      mustDecimal(t, "30"),
		Date:        "2026-10-01",
		Category:    models.CategoryFood,
		PaidBy:      alice.ID,
		CreatedBy:   alice.ID,
		SplitType:   "equal",
		Splits: []models.ExpenseSplit{
			{UserID: alice.ID, Amount: mustDecimal(t, "15")},
			{UserID: bob.ID, Amount: mustDecimal(t, "15")},
		},
	}))
}

func TestBalances(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "settleup.db")
	seedBalances(t, dbPath)

	out, err := execute(t, "balances", "--db", dbPath, "Alice@Example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Alice <alice@example.com>")
	assert.Contains(t, out, "net:          15.00")
	assert.Contains(t, out, "bob@example.com owes you 15.00")
}

func TestBalances_JSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "settleup.db")
	seedBalances(t, dbPath)

	out, err := execute(t, "--format", "json", "balances", "--db", dbPath, "alice@example.com")
	require.NoError(t, err)

	var report struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
		Total struct {
			Net string `json:"net"`
		} `json:"total"`
		Friends struct {
			Balances []struct {
				Amount string `json:"amount"`
			} `json:"balances"`
		} `json:"friends"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "alice@example.com", report.User.Email)
	assert.Equal(t, "15", report.Total.Net)
	require.Len(t, report.Friends.Balances, 1)
	assert.Equal(t, "15", report.Friends.Balances[0].Amount)
}

func TestBalances_UnknownUser(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "settleup.db")
	seedBalances(t, dbPath)

	_, err := execute(t, "balances", "--db", dbPath, "nobody@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nobody@example.com")
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}
