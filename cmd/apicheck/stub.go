package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourorg/apicheck/internal/stubapi"
)

func newStubCmd(root *rootOptions) *cobra.Command {
	var addr, providerKey string
	var missingRelations bool
	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Serve an in-memory imitation of the target API",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := root.load(cmd)
			if err != nil {
				return err
			}
			srv := &http.Server{
				Addr: addr,
				Handler: stubapi.New(stubapi.Options{
					ProviderKey:      providerKey,
					MissingRelations: missingRelations,
				}).Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx := cmd.Context()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			logger.Info("stub listening", "addr", addr, "missing_relations", missingRelations)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return WrapExitError(ExitCommandError, "serve stub", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8001", "listen address")
	cmd.Flags().StringVar(&providerKey, "provider-key", "stub-provider-key", "credential the completions endpoint accepts")
	cmd.Flags().BoolVar(&missingRelations, "missing-relations", false, "answer store-backed endpoints like an unmigrated database")
	return cmd
}
