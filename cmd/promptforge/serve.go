package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/promptforge/promptforge/internal/assets"
	"github.com/promptforge/promptforge/internal/config"
	"github.com/promptforge/promptforge/internal/enhance"
	"github.com/promptforge/promptforge/internal/media"
	"github.com/promptforge/promptforge/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			if addr != "" {
				cfg.ListenAddr = addr
			}

			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			store, err := openStore(cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			srv := server.New(
				store,
				enhance.NewEnhancer(store, log),
				media.NewImageClient(cfg.ReplicateToken, log),
				media.NewVideoClient(cfg.FALKey, log),
				assets.NewSaver(cfg.AssetsDir, cfg.PublicBaseURL, log),
				cfg,
				log,
			)

			httpServer := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           srv.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Infow("server listening", "addr", cfg.ListenAddr, "storage", cfg.StorageBackend)
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("serve: %w", err)
			case <-ctx.Done():
				log.Infow("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return httpServer.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides PROMPTFORGE_ADDR)")
	return cmd
}
