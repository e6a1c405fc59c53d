package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yourorg/apicheck/internal/config"
	"github.com/yourorg/apicheck/internal/store"
)

const defaultConfigContent = `target:
  base_url: "https://nextgen-aichat.preview.emergentagent.com"
  api_prefix: "/api"
  token: "dummy_token_for_testing"
  timeout: 10s
  generation_timeout: 30s

provider:
  base_url: "https://api.groq.com/openai/v1"
  model: "llama-3.3-70b-versatile"
  env_file: "/app/.env"
  key_name: "GROQ_API_KEY"
  max_tokens: 10
  temperature: 0.7
  timeout: 30s

report:
  format: "text"
  excerpt_limit: 200
  xlsx: ""

history:
  enabled: false

sanitize:
  headers:
    - Authorization
    - Cookie
    - X-Api-Key
  body_fields:
    - password
    - secret
    - token
    - api_key
    - access_token
  replacement: "***REDACTED***"

log:
  level: "info"
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(GetExitCode(err))
	}
}

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	cfgPath string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "apicheck",
		Short:         "API conformance checks for the chat service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.cfgPath, "config", "", "config file path")
	root.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "enable debug logging")

	root.AddCommand(newInitCmd())
	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newProbeCmd(opts))
	root.AddCommand(newStubCmd(opts))
	root.AddCommand(newHistoryCmd(opts))

	return root
}

// load reads the config file and env overrides and builds the logger.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.cfgPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "load config", err)
	}
	return cfg, newLogger(cmd.ErrOrStderr(), cfg.Log.Level, o.verbose), nil
}

func newLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize ~/.apicheck directory and default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return WrapExitError(ExitCommandError, "resolve home dir", err)
			}
			baseDir := filepath.Join(home, ".apicheck")
			if err := os.MkdirAll(baseDir, 0o755); err != nil {
				return WrapExitError(ExitCommandError, "create config dir", err)
			}

			cfgFile := filepath.Join(baseDir, "config.yaml")
			if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
				if err := os.WriteFile(cfgFile, []byte(defaultConfigContent), 0o644); err != nil {
					return WrapExitError(ExitCommandError, "write config", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created", cfgFile)
			} else if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "exists", cfgFile)
			} else {
				return WrapExitError(ExitCommandError, "stat config", err)
			}

			dbPath := filepath.Join(baseDir, "history.db")
			s, err := store.NewSQLiteStore(dbPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "open history", err)
			}
			defer s.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "history ready", dbPath)
			fmt.Fprintln(cmd.OutOrStdout(), "set target.base_url in", cfgFile, "or export APICHECK_BASE_URL")
			return nil
		},
	}
}
