package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/promptforge/promptforge/internal/config"
	"github.com/promptforge/promptforge/internal/profile"
)

func main() {
	root := &cobra.Command{
		Use:   "promptforge",
		Short: "Context-aware prompt enhancement for AI image and video generation",
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newProfileCmd())
	root.AddCommand(newEnhanceCmd())
	root.AddCommand(newScoreCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the process logger from the configured mode.
func newLogger(cfg config.Config) (*zap.SugaredLogger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.LogMode == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger.Sugar(), nil
}

// openStore builds and initializes the profile store over the configured
// backend.
func openStore(cfg config.Config, log *zap.SugaredLogger) (*profile.Store, error) {
	var backend profile.Storage
	switch cfg.StorageBackend {
	case config.StorageBadger:
		b, err := profile.NewBadgerStorage(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		backend = b
	case config.StorageFile:
		backend = profile.NewFileStorage(cfg.DataDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	store := profile.NewStore(backend, log)
	if err := store.Initialize(); err != nil {
		return nil, err
	}
	return store, nil
}
