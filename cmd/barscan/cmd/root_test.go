package cmd

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "barscan", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.Same(t, rootCmd, GetRootCommand())
}

func TestRootCommandHelp(t *testing.T) {
	out, _, err := runCLI(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "EAN-13 and UPC-A")
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	out, _, err := runCLI(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "barscan dev")
}

func TestRootCommandNoArgs(t *testing.T) {
	out, _, err := runCLI(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
}

func TestRootCommandSubcommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, sub := range rootCmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, expected := range []string{"image", "batch", "pdf", "serve", "config", "version", "bench"} {
		assert.Contains(t, names, expected, "Expected subcommand '%s' not found", expected)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	_, stderr, err := runCLI(t, "--invalid-flag")
	require.Error(t, err)
	assert.Contains(t, stderr, "unknown flag")
}

func TestRootCommandConfiguration(t *testing.T) {
	assert.True(t, rootCmd.HasSubCommands())
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("log-level"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestSetupCommandLogLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	_, _, err := runCLI(t, "version", "--verbose")
	require.NoError(t, err)
	assert.True(t, GetConfig().Verbose)
	assert.Equal(t, slog.LevelDebug, GetConfig().SlogLevel())
	assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelDebug))
}

func TestSetupCommandRejectsInvalidConfig(t *testing.T) {
	_, _, err := runCLI(t, "image", "--channel", "9", "missing.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading configuration")
}

func TestGetConfigDefaults(t *testing.T) {
	globalConfig = nil
	cfg := GetConfig()
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.NotNil(t, GetConfigLoader())
}
