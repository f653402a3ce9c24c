// Package cmd implements the barscan command line.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/barscan/internal/config"
	"github.com/MeKo-Tech/barscan/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Configuration file path.
	cfgFile string
	// Loader and configuration resolved for the running command.
	configLoader *config.Loader
	globalConfig *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "barscan",
	Short: "Locate and decode EAN-13 and UPC-A barcodes",
	Long: `barscan finds and decodes EAN-13 and UPC-A barcodes in images and PDFs
by scanning pixel rows for guard patterns. No models or training data are
needed.

This tool provides:
- Single and batch image scanning with text, JSON or CSV output
- Barcode extraction from PDF page images
- An HTTP and WebSocket server with Prometheus metrics

Examples:
  barscan image shelf.jpg
  barscan batch photos/ --recursive --format csv
  barscan pdf catalog.pdf --pages 1-3
  barscan serve --port 8080`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
			return err
		}
		return cmd.Help()
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for tests that must not exit.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/barscan, /etc/barscan)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("version", false, "print version information and exit")

	rootCmd.PersistentPreRunE = setupCommand
}

// setupCommand resolves configuration for the command being run and installs
// the JSON logger at the configured level.
func setupCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	globalConfig = cfg

	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig layers flags over env vars, the config file and defaults. A
// fresh viper per run keeps flag bindings from leaking between commands.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	loader := config.NewLoaderWithViper(viper.New())
	if err := loader.BindFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	cfg, err := loader.LoadWithFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	configLoader = loader
	return cfg, nil
}

// GetConfig returns the configuration of the running command, loading
// defaults when no command has been set up.
func GetConfig() *config.Config {
	if globalConfig == nil {
		d := config.DefaultConfig()
		return &d
	}
	return globalConfig
}

// GetConfigLoader returns the loader used for the running command.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoaderWithViper(viper.New())
	}
	return configLoader
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
