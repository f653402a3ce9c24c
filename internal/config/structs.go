//nolint:lll
package config

// Config represents the complete configuration for barscan.
// It covers every command (image, batch, pdf, serve) and is loaded from
// configuration files, environment variables and command-line flags.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Scan   ScanConfig   `mapstructure:"scan" yaml:"scan" json:"scan"`
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
	Batch  BatchConfig  `mapstructure:"batch" yaml:"batch" json:"batch"`
	PDF    PDFConfig    `mapstructure:"pdf" yaml:"pdf" json:"pdf"`
}

// ScanConfig contains decoder settings applied to every image. Channel is
// 0-3 for R, G, B, A or -1 for luminance. ROI is "x,y,w,h" in pixels and
// empty scans the whole image.
type ScanConfig struct {
	Channel      int      `mapstructure:"channel" yaml:"channel" json:"channel"`
	RowWorkers   int      `mapstructure:"row_workers" yaml:"row_workers" json:"row_workers"`
	RowStride    int      `mapstructure:"row_stride" yaml:"row_stride" json:"row_stride"`
	TryRotations bool     `mapstructure:"try_rotations" yaml:"try_rotations" json:"try_rotations"`
	Multi        bool     `mapstructure:"multi" yaml:"multi" json:"multi"`
	Formats      []string `mapstructure:"formats" yaml:"formats" json:"formats"`
	ROI          string   `mapstructure:"roi" yaml:"roi" json:"roi"`
	Strict       bool     `mapstructure:"strict" yaml:"strict" json:"strict"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format          string `mapstructure:"format" yaml:"format" json:"format"`
	File            string `mapstructure:"file" yaml:"file" json:"file"`
	OverlayDir      string `mapstructure:"overlay_dir" yaml:"overlay_dir" json:"overlay_dir"`
	OverlayBoxColor string `mapstructure:"overlay_box_color" yaml:"overlay_box_color" json:"overlay_box_color"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	OverlayEnabled  bool            `mapstructure:"overlay_enabled" yaml:"overlay_enabled" json:"overlay_enabled"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig bounds per-client request rates and daily quotas. Zero
// disables the corresponding limit.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int  `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int  `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
}

// PDFConfig contains PDF extraction settings.
type PDFConfig struct {
	Pages         string `mapstructure:"pages" yaml:"pages" json:"pages"`
	TargetDPI     int    `mapstructure:"target_dpi" yaml:"target_dpi" json:"target_dpi"`
	MaxUpscaleDim int    `mapstructure:"max_upscale_dim" yaml:"max_upscale_dim" json:"max_upscale_dim"`
	Workers       int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	UserPassword  string `mapstructure:"user_password" yaml:"user_password" json:"user_password"`
	OwnerPassword string `mapstructure:"owner_password" yaml:"owner_password" json:"owner_password"`
}
