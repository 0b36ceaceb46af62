package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/sqlite"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/transport"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRemoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Run the reference remote project store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(false)
			if err != nil {
				return err
			}
			defer rt.Close()
			return serveRemote(cmd.Context(), rt)
		},
	}
	cmd.AddCommand(newRemoteKeyCmd())
	return cmd
}

func newRemoteKeyCmd() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "issue-key <owner>",
		Short: "Issue a bearer token for an owner of the remote store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(true)
			if err != nil {
				return err
			}
			defer rt.Close()

			db, err := rt.openDB(rt.cfg.Remote.DBPath)
			if err != nil {
				return err
			}
			token, err := sqlite.NewAPIKeyRepository(db).Create(cmd.Context(), args[0], description)
			if err != nil {
				return fmt.Errorf("issuing key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "note stored with the key")
	return cmd
}

func serveRemote(ctx context.Context, rt *runtime) error {
	logger := rt.logger
	db, err := rt.openDB(rt.cfg.Remote.DBPath)
	if err != nil {
		return err
	}

	keys := sqlite.NewAPIKeyRepository(db)
	for _, key := range rt.cfg.Remote.APIKeys {
		if err := keys.Register(ctx, key.Owner, key.Token, "config"); err != nil {
			return fmt.Errorf("seeding api key for %s: %w", key.Owner, err)
		}
	}

	router := transport.NewServer(sqlite.NewRemoteRepository(db), transport.AuthMiddleware(keys), logger)
	addr := fmt.Sprintf("%s:%d", rt.cfg.Remote.Host, rt.cfg.Remote.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("remote store listening", "addr", addr, "seeded_keys", len(rt.cfg.Remote.APIKeys))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(sctx)
	})
	return g.Wait()
}
