package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/config"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/mcp"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var transport string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the authoring tools over MCP (stdio or streamable HTTP)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(true)
			if err != nil {
				return err
			}
			defer rt.Close()

			mode := rt.cfg.Transport.Mode
			if transport != "" {
				mode = transport
			}
			switch mode {
			case config.TransportStdio, config.TransportHTTP:
			default:
				return fmt.Errorf("unknown transport %q", mode)
			}
			return serve(cmd.Context(), rt, mode == config.TransportStdio)
		},
	}
	cmd.Flags().StringVar(&transport, "transport", "", "stdio or http, overrides ALF_TRANSPORT")
	return cmd
}

func serve(ctx context.Context, rt *runtime, stdio bool) error {
	logger := rt.logger
	l, err := rt.buildLocal()
	if err != nil {
		return err
	}

	if l.sync != nil {
		// Workers outlive the signal context so Close can stop them after the final flush.
		if err := l.sync.Start(context.WithoutCancel(ctx)); err != nil {
			return fmt.Errorf("starting sync: %w", err)
		}
	}

	server := mcp.NewServer(mcp.Config{
		Services: l.services(),
		Version:  version,
		Logger:   logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	if stdio {
		logger.Info("starting stdio transport", "sync", l.sync != nil)
		g.Go(func() error {
			return server.Run(gctx, &sdkmcp.StdioTransport{})
		})
	} else {
		addr := fmt.Sprintf("%s:%d", rt.cfg.Server.Host, rt.cfg.Server.Port)
		httpServer := &http.Server{
			Addr:              addr,
			Handler:           mcpRouter(server),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("server listening", "addr", addr, "sync", l.sync != nil)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(sctx)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	logger.Info("shutting down")
	fctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if ferr := l.stages.FlushAll(fctx); ferr != nil {
		logger.Error("flushing drafts failed", "error", ferr)
	}
	return err
}

func mcpRouter(server *sdkmcp.Server) http.Handler {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return server },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: 30 * time.Minute},
	)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/mcp", mcpHandler)
	r.Handle("/mcp/*", mcpHandler)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}
