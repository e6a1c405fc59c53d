package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourorg/apicheck/internal/check"
	"github.com/yourorg/apicheck/internal/config"
	"github.com/yourorg/apicheck/internal/redact"
	"github.com/yourorg/apicheck/internal/report"
	"github.com/yourorg/apicheck/internal/runner"
	"github.com/yourorg/apicheck/internal/store"
	"github.com/yourorg/apicheck/internal/suite"
	"github.com/yourorg/apicheck/pkg/types"
)

type runFlags struct {
	suite   string
	baseURL string
	token   string
	format  string
	xlsx    string
	history bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a check suite against the target API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load(cmd)
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			return execute(cmd, cfg, logger, f.suite)
		},
	}
	cmd.Flags().StringVar(&f.suite, "suite", suite.NameBackend, "suite to run ("+strings.Join(suite.Names(), "|")+")")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "target base URL (overrides target.base_url)")
	cmd.Flags().StringVar(&f.token, "token", "", "bearer token for authenticated checks")
	cmd.Flags().StringVar(&f.format, "format", "", "report format: text|json|markdown")
	cmd.Flags().StringVar(&f.xlsx, "xlsx", "", "also write an xlsx report to this path")
	cmd.Flags().BoolVar(&f.history, "history", false, "store the run in the history database")
	return cmd
}

func newProbeCmd(root *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Call the completion provider directly",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load(cmd)
			if err != nil {
				return err
			}
			if format != "" {
				cfg.Report.Format = format
			}
			return execute(cmd, cfg, logger, suite.NameCompletion)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "report format: text|json|markdown")
	return cmd
}

// apply layers flags that were set explicitly over the loaded config.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.Target.BaseURL = f.baseURL
	}
	if flags.Changed("token") {
		cfg.Target.Token = f.token
	}
	if flags.Changed("format") {
		cfg.Report.Format = f.format
	}
	if flags.Changed("xlsx") {
		cfg.Report.XLSX = f.xlsx
	}
	if flags.Changed("history") {
		cfg.History.Enabled = f.history
	}
}

func execute(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, name string) error {
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	checks, target, err := buildSuite(cfg, name)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	streaming := cfg.Report.Format == "text"
	r := &runner.Runner{
		Exec: &check.Executor{
			BaseURL:      cfg.APIBase(),
			Client:       &http.Client{},
			Redactor:     redact.New(cfg.Sanitize),
			Logger:       logger,
			ExcerptLimit: cfg.Report.ExcerptLimit,
		},
		BaseURL: target,
		Logger:  logger,
	}
	if streaming {
		report.Header(out, name, target)
		r.OnResult = func(res types.CheckResult) { report.Line(out, res) }
	}

	rep, err := r.Run(cmd.Context(), name, checks)
	if err != nil {
		return WrapExitError(ExitCommandError, "run suite", err)
	}

	if cfg.History.Enabled {
		if err := saveHistory(cfg.History.Path, rep); err != nil {
			logger.Warn("history not saved", "path", cfg.History.Path, "error", err)
		} else {
			logger.Info("run saved", "id", rep.ID)
		}
	}

	if err := render(out, cfg.Report.Format, rep, streaming); err != nil {
		return WrapExitError(ExitCommandError, "write report", err)
	}
	if cfg.Report.XLSX != "" {
		if err := report.WriteExcel(cfg.Report.XLSX, rep); err != nil {
			return WrapExitError(ExitCommandError, "write xlsx", err)
		}
		logger.Info("xlsx report written", "path", cfg.Report.XLSX)
	}

	if !rep.AllPassed() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d check(s) failed", rep.Total()-rep.Passed(), rep.Total()))
	}
	return nil
}

func buildSuite(cfg *config.Config, name string) ([]check.Check, string, error) {
	switch name {
	case suite.NameBackend:
		checks := suite.Backend(suite.BackendOptions{
			Token:             cfg.Target.Token,
			Timeout:           cfg.Target.Timeout,
			GenerationTimeout: cfg.Target.GenerationTimeout,
		})
		return checks, cfg.APIBase(), nil
	case suite.NameCompletion:
		if err := cfg.ValidateProbe(); err != nil {
			return nil, "", WrapExitError(ExitCommandError, "invalid provider config", err)
		}
		p := cfg.Provider
		checks := suite.Completion(suite.CompletionOptions{
			BaseURL:     p.BaseURL,
			Model:       p.Model,
			Temperature: p.Temperature,
			MaxTokens:   p.MaxTokens,
			Timeout:     p.Timeout,
			APIKey: func() (string, error) {
				key, err := config.ReadEnvKey(p.EnvFile, p.KeyName)
				if err != nil {
					return "", fmt.Errorf("%s from %s: %w", p.KeyName, p.EnvFile, err)
				}
				return key, nil
			},
		})
		return checks, p.BaseURL, nil
	default:
		return nil, "", NewExitError(ExitCommandError, fmt.Sprintf("unknown suite %q (want %s)", name, strings.Join(suite.Names(), ", ")))
	}
}

// render writes the final report. Text output has already streamed each
// result line, so only the summary remains.
func render(w io.Writer, format string, rep *types.RunReport, streamed bool) error {
	switch format {
	case "json":
		return report.JSON(w, rep)
	case "markdown":
		return report.Markdown(w, rep)
	default:
		if streamed {
			report.Summary(w, rep)
		} else {
			report.Text(w, rep)
		}
		return nil
	}
}

func saveHistory(path string, rep *types.RunReport) error {
	s, err := openStore(path)
	if err != nil {
		return err
	}
	defer s.Close()
	_, err = s.SaveRun(rep)
	return err
}

func openStore(path string) (*store.SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return store.NewSQLiteStore(path)
}
