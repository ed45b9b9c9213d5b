package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/config"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/model"
)

// Version is the CLI version.
const Version = "0.1.0"

var (
	cfg    *config.Config
	logger *slog.Logger

	providerType string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:           "emotisense",
	Short:         "Facial expression detection from the terminal",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	// Configuration comes from the same environment as the API; flags override it
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if providerType != "" {
			cfg.ProviderType = providerType
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		level := "warn"
		if verbose {
			level = "debug"
		}
		logger = config.NewLogger(os.Stderr, cfg.Environment, level)
		return nil
	},
}

// newModel builds the configured provider behind a model service
func newModel() (*model.Service, error) {
	p, err := model.NewProvider(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	return model.NewService(p, model.WithLogger(logger), model.WithLoadTimeout(cfg.ModelLoadTimeout)), nil
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&providerType, "provider", "p", "", "Expression provider: deepface, rekognition or mock (default: $PROVIDER_TYPE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log provider activity to stderr")
}
