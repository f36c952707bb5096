package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lehigh-university-libraries/shelfimport/internal/config"
	"github.com/lehigh-university-libraries/shelfimport/internal/handlers"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the import preview/confirm API",
		Long: `Starts the shelfimport HTTP API on the specified port.

Endpoints:
  GET  /api/books              list the library
  POST /api/books              add a book
  POST /api/imports/preview    classify {"records": [...]}
  POST /api/imports/upload     classify an uploaded csv/tsv/json/jsonl/yaml/parquet file
  POST /api/imports/confirm    apply {"classifications": [...], "decisions": {...}}`,
		Example: `  # Start server on default port 8888 with an in-memory library
  shelfimport serve

  # Start server on custom port backed by SQLite
  shelfimport serve --port 3000 --db ./library.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, store, cfg, err := openEngine(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer store.Close()

			handler := handlers.New(store, engine)

			addr := ":" + cfg.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Shelfimport API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringP("port", "p", "8888", "Port to listen on")
	_ = v.BindPFlag(config.KeyPort, cmd.Flags().Lookup("port"))

	return cmd
}
