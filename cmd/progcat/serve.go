package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pevans/progcat/catalog"
	"github.com/pevans/progcat/runs"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve catalog snapshots and run history over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := catalog.NewStore(a.settings.SnapshotDir)
			if err != nil {
				return fmt.Errorf("failed to open snapshot store: %w", err)
			}

			history, err := runs.NewRunStore(a.settings.RunsDB)
			if err != nil {
				return fmt.Errorf("failed to open run history: %w", err)
			}
			defer history.Close()

			if a.settings.LogLevel != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			router := catalog.NewAPIServer(store).SetupRouter()
			runs.NewRunAPIServer(history).RegisterRoutes(router.Group("/api/v1"))

			server := &http.Server{
				Addr:    addr,
				Handler: router,
			}

			return serve(cmd.Context(), server)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "Listen address")

	return cmd
}

// serve runs server until ctx is done, then shuts it down.
func serve(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting catalog API server", "url", "http://"+server.Addr+"/api/v1/catalog")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down catalog API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
