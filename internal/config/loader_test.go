package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// isolate points every config search path at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Chdir(dir)
	return dir
}

func writeYAML(t *testing.T, path string, v any) {
	t.Helper()
	data, err := yaml.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestNewLoader(t *testing.T) {
	assert.Same(t, viper.GetViper(), NewLoader().GetViper())
	assert.NotNil(t, NewLoaderWithViper(nil).GetViper())
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)

	cfg, err := NewLoaderWithViper(viper.New()).Load()
	require.NoError(t, err)

	want := DefaultConfig()
	assert.Equal(t, want.LogLevel, cfg.LogLevel)
	assert.Equal(t, want.Scan.Channel, cfg.Scan.Channel)
	assert.Equal(t, want.Scan.TryRotations, cfg.Scan.TryRotations)
	assert.Equal(t, want.Server, cfg.Server)
	assert.Equal(t, want.PDF, cfg.PDF)
	assert.Empty(t, cfg.Scan.Formats)
}

func TestLoadFromSearchPath(t *testing.T) {
	dir := isolate(t)

	raw := map[string]any{
		"log_level": "debug",
		"scan":      map[string]any{"channel": 2, "formats": []string{"upca"}, "roi": "0,0,100,100"},
		"server":    map[string]any{"port": 9090},
	}
	writeYAML(t, filepath.Join(dir, "barscan.yaml"), raw)

	l := NewLoaderWithViper(viper.New())
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2, cfg.Scan.Channel)
	assert.Equal(t, []string{"upca"}, cfg.Scan.Formats)
	assert.Equal(t, 9090, cfg.Server.Port)
	// untouched keys keep their defaults
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, filepath.Join(dir, "barscan.yaml"), l.GetConfigFileUsed())
}

func TestLoadWithFileRoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")

	in := DefaultConfig()
	in.Scan.Multi = true
	in.Scan.Formats = []string{"ean13"}
	in.Batch.Include = []string{"*.png"}
	in.Batch.Exclude = []string{"*_overlay.png"}
	in.Server.RateLimit.Enabled = true
	in.PDF.Pages = "1-3"
	writeYAML(t, path, in)

	cfg, err := NewLoaderWithViper(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, in, *cfg)
}

func TestLoadWithFileErrors(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	_, err := NewLoaderWithViper(viper.New()).LoadWithFile(filepath.Join(dir, "missing.yaml"))
	require.ErrorContains(t, err, "does not exist")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("scan: [unterminated"), 0o600))
	_, err = NewLoaderWithViper(viper.New()).LoadWithFile(bad)
	require.ErrorContains(t, err, "error reading config file")

	invalid := filepath.Join(dir, "invalid.yaml")
	writeYAML(t, invalid, map[string]any{"scan": map[string]any{"channel": 9}})
	_, err = NewLoaderWithViper(viper.New()).LoadWithFile(invalid)
	require.ErrorContains(t, err, "configuration validation failed")

	cfg, err := NewLoaderWithViper(viper.New()).LoadWithFileWithoutValidation(invalid)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Scan.Channel)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("BARSCAN_SCAN_CHANNEL", "0")
	t.Setenv("BARSCAN_OUTPUT_FORMAT", "json")
	t.Setenv("BARSCAN_SERVER_RATE_LIMIT_ENABLED", "true")

	cfg, err := NewLoaderWithViper(viper.New()).Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Scan.Channel)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.True(t, cfg.Server.RateLimit.Enabled)
}

func TestBindFlags(t *testing.T) {
	isolate(t)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("channel", -1, "")
	fs.String("format", "text", "")
	fs.StringSlice("formats", nil, "")
	fs.Bool("unrelated", false, "")
	require.NoError(t, fs.Parse([]string{"--channel=1", "--format=csv", "--formats=ean13,upca"}))

	l := NewLoaderWithViper(viper.New())
	require.NoError(t, l.BindFlags(fs))
	require.NoError(t, l.BindFlags(nil))

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Scan.Channel)
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.Equal(t, []string{"ean13", "upca"}, cfg.Scan.Formats)
	// unset flags do not override defaults
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoaderAccessors(t *testing.T) {
	isolate(t)
	l := NewLoaderWithViper(viper.New())
	l.Set("scan.row_stride", 9)
	assert.Equal(t, 9, l.Get("scan.row_stride"))

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Scan.RowStride)
	assert.Contains(t, l.GetResolvedConfig(), "scan")
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "barscan.yaml")
	require.NoError(t, GenerateDefaultConfigFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Config
	require.NoError(t, yaml.Unmarshal(data, &got))
	want := DefaultConfig()
	assert.Equal(t, want.Server, got.Server)
	assert.Equal(t, want.Scan.Channel, got.Scan.Channel)
	assert.Equal(t, want.Output, got.Output)
	assert.Equal(t, want.PDF, got.PDF)

	// the generated file loads and validates
	cfg, err := NewLoaderWithViper(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, want.Batch.Workers, cfg.Batch.Workers)
}

func TestGetConfigSearchPaths(t *testing.T) {
	dir := isolate(t)
	assert.Equal(t, []string{".", dir, filepath.Join(dir, "barscan"), "/etc/barscan"}, GetConfigSearchPaths())
}

func TestPrintConfigInfo(t *testing.T) {
	isolate(t)
	var buf bytes.Buffer
	NewLoaderWithViper(viper.New()).PrintConfigInfo(&buf)
	assert.Contains(t, buf.String(), "Configuration file used: (none)")
	assert.Contains(t, buf.String(), "Environment prefix: BARSCAN_")
}
