package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "barscan"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "BARSCAN"
)

// FlagBindings maps configuration keys to the persistent and command flags
// that override them.
var FlagBindings = map[string]string{
	"log_level":                 "log-level",
	"verbose":                   "verbose",
	"scan.channel":              "channel",
	"scan.row_workers":          "row-workers",
	"scan.row_stride":           "row-stride",
	"scan.try_rotations":        "try-rotations",
	"scan.multi":                "multi",
	"scan.formats":              "formats",
	"scan.roi":                  "roi",
	"scan.strict":               "strict",
	"output.format":             "format",
	"output.file":               "output",
	"output.overlay_dir":        "overlay-dir",
	"output.overlay_box_color":  "overlay-box-color",
	"server.host":               "host",
	"server.port":               "port",
	"server.cors_origin":        "cors-origin",
	"server.max_upload_mb":      "max-upload-mb",
	"server.timeout_sec":        "timeout",
	"server.overlay_enabled":    "overlay-enabled",
	"server.rate_limit.enabled": "rate-limit",
	"batch.workers":             "workers",
	"batch.recursive":           "recursive",
	"batch.continue_on_error":   "continue-on-error",
	"batch.include":             "include",
	"batch.exclude":             "exclude",
	"pdf.pages":                 "pages",
	"pdf.target_dpi":            "target-dpi",
	"pdf.user_password":         "password",
	"pdf.owner_password":        "owner-password",
}

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader backed by the global viper instance, so flag
// bindings made by the CLI apply.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWithViper creates a loader backed by v.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	if v == nil {
		v = viper.New()
	}
	return &Loader{v: v}
}

// Load reads configuration from the search paths, the environment and the
// defaults, then validates it.
func (l *Loader) Load() (*Config, error) {
	cfg, err := l.LoadWithoutValidation()
	if err != nil {
		return nil, err
	}
	return validated(cfg)
}

// LoadWithoutValidation is Load without the validation step.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()
	l.prepare()

	if err := l.v.ReadInConfig(); err != nil {
		// a missing file is fine; defaults and env vars still apply
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return l.unmarshal()
}

// LoadWithFile loads configuration from a specific file path. An empty path
// falls back to Load.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}
	cfg, err := l.LoadWithFileWithoutValidation(configFile)
	if err != nil {
		return nil, err
	}
	return validated(cfg)
}

// LoadWithFileWithoutValidation is LoadWithFile without the validation step.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	if configFile == "" {
		return l.LoadWithoutValidation()
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)
	l.prepare()
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}
	return l.unmarshal()
}

func validated(cfg *Config) (*Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) prepare() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	l.setDefaults()
}

func (l *Loader) unmarshal() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// BindFlags binds every flag of fs that appears in FlagBindings to its
// configuration key. Flags missing from fs are skipped.
func (l *Loader) BindFlags(fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	for key, name := range FlagBindings {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := l.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s to %s: %w", name, key, err)
		}
	}
	return nil
}

// Get returns a raw value from the configuration.
func (l *Loader) Get(key string) any { return l.v.Get(key) }

// Set overrides a configuration value.
func (l *Loader) Set(key string, value any) { l.v.Set(key, value) }

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string { return l.v.ConfigFileUsed() }

// GetViper returns the underlying viper instance.
func (l *Loader) GetViper() *viper.Viper { return l.v }

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// setDefaults registers every default so that env vars bind to known keys
// and generated files list every option.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)

	l.v.SetDefault("scan.channel", d.Scan.Channel)
	l.v.SetDefault("scan.row_workers", d.Scan.RowWorkers)
	l.v.SetDefault("scan.row_stride", d.Scan.RowStride)
	l.v.SetDefault("scan.try_rotations", d.Scan.TryRotations)
	l.v.SetDefault("scan.multi", d.Scan.Multi)
	l.v.SetDefault("scan.formats", []string{})
	l.v.SetDefault("scan.roi", d.Scan.ROI)
	l.v.SetDefault("scan.strict", d.Scan.Strict)

	l.v.SetDefault("output.format", d.Output.Format)
	l.v.SetDefault("output.file", d.Output.File)
	l.v.SetDefault("output.overlay_dir", d.Output.OverlayDir)
	l.v.SetDefault("output.overlay_box_color", d.Output.OverlayBoxColor)

	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	l.v.SetDefault("server.overlay_enabled", d.Server.OverlayEnabled)
	l.v.SetDefault("server.rate_limit.enabled", d.Server.RateLimit.Enabled)
	l.v.SetDefault("server.rate_limit.requests_per_minute", d.Server.RateLimit.RequestsPerMinute)
	l.v.SetDefault("server.rate_limit.requests_per_hour", d.Server.RateLimit.RequestsPerHour)
	l.v.SetDefault("server.rate_limit.max_requests_per_day", d.Server.RateLimit.MaxRequestsPerDay)
	l.v.SetDefault("server.rate_limit.max_data_per_day_mb", d.Server.RateLimit.MaxDataPerDayMB)

	l.v.SetDefault("batch.workers", d.Batch.Workers)
	l.v.SetDefault("batch.recursive", d.Batch.Recursive)
	l.v.SetDefault("batch.continue_on_error", d.Batch.ContinueOnError)
	l.v.SetDefault("batch.include", []string{})
	l.v.SetDefault("batch.exclude", []string{})

	l.v.SetDefault("pdf.pages", d.PDF.Pages)
	l.v.SetDefault("pdf.target_dpi", d.PDF.TargetDPI)
	l.v.SetDefault("pdf.max_upscale_dim", d.PDF.MaxUpscaleDim)
	l.v.SetDefault("pdf.workers", d.PDF.Workers)
	l.v.SetDefault("pdf.user_password", d.PDF.UserPassword)
	l.v.SetDefault("pdf.owner_password", d.PDF.OwnerPassword)
}

// GetResolvedConfig returns every resolved setting for debugging.
func (l *Loader) GetResolvedConfig() map[string]any {
	return l.v.AllSettings()
}

// WriteConfigToFile writes the current configuration to a file.
func (l *Loader) WriteConfigToFile(filename string) error {
	return l.v.WriteConfigAs(filename)
}

// GenerateDefaultConfigFile writes a configuration file holding every
// default. The file name defaults to barscan.yaml.
func GenerateDefaultConfigFile(filename string) error {
	loader := NewLoaderWithViper(viper.New())
	loader.setDefaults()
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	return loader.WriteConfigToFile(filename)
}

// GetConfigSearchPaths returns the directories searched for barscan.yaml, in
// priority order.
func GetConfigSearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}
	if configDir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		paths = append(paths, filepath.Join(configDir, ConfigFileName))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", ConfigFileName))
	}
	return append(paths, filepath.Join("/etc", ConfigFileName))
}

// PrintConfigInfo writes where configuration was loaded from.
func (l *Loader) PrintConfigInfo(w io.Writer) {
	used := l.GetConfigFileUsed()
	if used == "" {
		used = "(none)"
	}
	_, _ = fmt.Fprintf(w, "Configuration file used: %s\n", used)
	_, _ = fmt.Fprintf(w, "Configuration search paths: %v\n", GetConfigSearchPaths())
	_, _ = fmt.Fprintf(w, "Environment prefix: %s_\n", EnvPrefix)
}
