package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"earntracker/internal/cli"
	"earntracker/internal/config"
	"earntracker/internal/core"
	"earntracker/internal/log"
	"earntracker/internal/services"
	"earntracker/internal/storage"
)

// app holds what every subcommand shares: flags, configuration and the
// lazily opened store.
type app struct {
	dbPath string
	asJSON bool
	stdin  io.Reader
	cfg    *config.Config
	logger *log.Logger
	repo   *storage.SQLiteRepository
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "taxctl",
		Short: "Administer earntracker users, tax rules and reports",
		Long: `taxctl works directly on the earntracker SQLite database.

It creates users, records income, computes quarterly taxes, copies tax
settings between quarters and applies schema migrations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (default from configuration)")
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "print results as JSON")

	root.AddCommand(
		newUserCmd(a),
		newIncomeCmd(a),
		newTaxesCmd(a),
		newRulesCmd(a),
		newMigrateCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cli.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	if a.dbPath == "" {
		a.dbPath = cfg.SQLiteDBPath
	}

	// Diagnostics go to stderr so command output stays machine readable.
	lc := log.DefaultConfig()
	lc.Component = log.ComponentCLI
	lc.Level = log.ParseLevel(cfg.LogLevel)
	lc.Format = cfg.LogFormat
	lc.Output = cmd.ErrOrStderr()
	a.logger = log.New(lc)
	log.SetDefault(a.logger)
	return nil
}

func (a *app) store() (*storage.SQLiteRepository, error) {
	if a.repo != nil {
		return a.repo, nil
	}
	repo, err := storage.NewSQLiteRepository(a.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", a.dbPath, err)
	}
	a.repo = repo
	return repo, nil
}

func (a *app) close() error {
	if a.repo == nil {
		return nil
	}
	err := a.repo.Close()
	a.repo = nil
	return err
}

// lookupUser resolves the --user flag, which takes a username in any case.
func (a *app) lookupUser(cmd *cobra.Command, username string) (core.User, error) {
	if username == "" {
		return core.User{}, fmt.Errorf("--user is required")
	}
	repo, err := a.store()
	if err != nil {
		return core.User{}, err
	}
	u, err := repo.GetUserByUsername(cmd.Context(), services.NormalizeUsername(username))
	if err != nil {
		return core.User{}, fmt.Errorf("user %q: %w", username, err)
	}
	return u, nil
}

func (a *app) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// run executes one command line and closes the store whatever the outcome.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	a := &app{stdin: stdin}
	defer func() {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
