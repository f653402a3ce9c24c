package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/barscan/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag of c and its subcommands to its default so
// executions in one test binary do not leak into each other.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	// cobra keeps the first ExecuteContext context on subcommands; clear it
	// so a canceled context from an earlier test is not reused.
	c.SetContext(nil) //nolint:staticcheck // nil lets cobra inherit the new context
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCLI executes the root command with args and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfgFile = ""
	globalConfig = nil
	t.Cleanup(func() { globalConfig = nil })

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

// writeBarcode renders code as a PNG in dir and returns its path.
func writeBarcode(t *testing.T, dir, name, code string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, testutil.WritePNG(testutil.BarcodeImage(t, code), path))
	return path
}
