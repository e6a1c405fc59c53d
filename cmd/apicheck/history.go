package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourorg/apicheck/internal/store"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect stored runs",
	}
	cmd.AddCommand(newHistoryListCmd(root))
	cmd.AddCommand(newHistoryShowCmd(root))
	cmd.AddCommand(newHistoryDeleteCmd(root))
	return cmd
}

// withStore opens the history database named by the config for one command.
func withStore(root *rootOptions, cmd *cobra.Command, fn func(s store.Store) error) error {
	cfg, _, err := root.load(cmd)
	if err != nil {
		return err
	}
	s, err := openStore(cfg.History.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "open history", err)
	}
	defer s.Close()
	return fn(s)
}

func newHistoryListCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(root, cmd, func(s store.Store) error {
				runs, err := s.ListRuns()
				if err != nil {
					return WrapExitError(ExitCommandError, "list runs", err)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSUITE\tSTARTED\tPASSED\tTARGET")
				for _, r := range runs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\n", r.ID, r.Suite, r.StartedAt.UTC().Format(time.RFC3339), r.Passed, r.Total, r.BaseURL)
				}
				return tw.Flush()
			})
		},
	}
}

func newHistoryShowCmd(root *rootOptions) *cobra.Command {
	var runID, format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the report of a stored run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(root, cmd, func(s store.Store) error {
				rep, err := s.GetRun(runID)
				if err != nil {
					return notFoundOr(err, "get run")
				}
				if err := render(cmd.OutOrStdout(), format, rep, false); err != nil {
					return WrapExitError(ExitCommandError, "write report", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id")
	cmd.Flags().StringVar(&format, "format", "text", "report format: text|json|markdown")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}

func newHistoryDeleteCmd(root *rootOptions) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a stored run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(root, cmd, func(s store.Store) error {
				if err := s.DeleteRun(runID); err != nil {
					return notFoundOr(err, "delete run")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "deleted", runID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, store.ErrRunNotFound) {
		return NewExitError(ExitCommandError, err.Error())
	}
	return WrapExitError(ExitCommandError, msg, err)
}

