// Package cli implements the voicetask CLI commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/voicetask/internal/config"
	"github.com/rcliao/voicetask/internal/lifecycle"
	"github.com/rcliao/voicetask/internal/logging"
	"github.com/rcliao/voicetask/internal/notify"
	"github.com/rcliao/voicetask/internal/parser"
	"github.com/rcliao/voicetask/internal/store"
	"github.com/rcliao/voicetask/internal/timewin"
)

var (
	dbPath     string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "voicetask",
	Short: "Turn spoken or typed sentences into task changes",
	Long:  "voicetask parses a free-form sentence into task intents, reviews them, and applies them to a SQLite-backed task list. Works offline via a deterministic fallback parser.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $VOICETASK_DB or ~/.voicetask/tasks.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: json or text")
}

// env is the wired-up application: config, store, parser, ops, logger.
type env struct {
	cfg    *config.Config
	store  *store.SQLiteStore
	parser parser.Parser
	ops    *lifecycle.Ops
	calc   *timewin.Calculator
	logger *slog.Logger
}

func (e *env) close() {
	e.store.Close()
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	logger := logging.New(cfg.LogLevel)

	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	calc := timewin.New(timewin.DefaultConfig())
	p := parser.NewFromOptions(parser.Options{
		BaseURL: cfg.Parser.BaseURL,
		APIKey:  cfg.Parser.APIKey,
		Model:   cfg.Parser.Model,
		Timeout: cfg.Parser.Timeout,
	}, logger)

	var scheduler notify.Scheduler
	if cfg.PushURL != "" {
		scheduler, err = notify.NewPushScheduler(cfg.PushURL, logger)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("push scheduler: %w", err)
		}
	}
	ops := lifecycle.New(st, scheduler, calc, logger, nil)

	return &env{cfg: cfg, store: st, parser: p, ops: ops, calc: calc, logger: logger}, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
