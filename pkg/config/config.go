// Package config loads xdiff settings from a YAML file, XDIFF_* environment
// variables and defaults, and turns them into diff, merge and telemetry
// options.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidContext     = errors.New("context lines must not be negative")
	ErrInvalidEngine      = errors.New("unknown engine")
	ErrInvalidColor       = errors.New("color must be auto, always or never")
	ErrInvalidLogFormat   = errors.New("log format must be text or json")
	ErrInvalidSize        = errors.New("invalid size")
	ErrInvalidMarkerSize  = errors.New("invalid conflict marker size")
	ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")
)

// Engine names.
const (
	EngineNative  = "native"
	EngineLibgit2 = "libgit2"
	// EngineAuto uses libgit2 and falls back to native for options libgit2
	// cannot honour.
	EngineAuto = "auto"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

const (
	envPrefix     = "XDIFF"
	maxMarkerSize = 1<<16 - 1
)

// Config holds all xdiff settings.
type Config struct {
	Diff      DiffConfig              `mapstructure:"diff"`
	Merge     MergeConfig             `mapstructure:"merge"`
	Engine    EngineConfig            `mapstructure:"engine"`
	Limits    LimitsConfig            `mapstructure:"limits"`
	Output    OutputConfig            `mapstructure:"output"`
	Logging   LoggingConfig           `mapstructure:"logging"`
	Telemetry TelemetryConfig         `mapstructure:"telemetry"`
	Drivers   map[string]DriverConfig `mapstructure:"drivers"`
}

// DiffConfig holds line comparison and hunk layout settings.
type DiffConfig struct {
	Flags          []string `mapstructure:"flags"`
	Ignore         []string `mapstructure:"ignore"`
	Anchors        []string `mapstructure:"anchors"`
	ContextLines   int      `mapstructure:"context_lines"`
	InterhunkLines int      `mapstructure:"interhunk_lines"`
	IgnoreCase     bool     `mapstructure:"ignore_case"`
	FuncNames      bool     `mapstructure:"func_names"`
	FuncContext    bool     `mapstructure:"func_context"`
	NoHunkHeader   bool     `mapstructure:"no_hunk_header"`
}

// MergeConfig holds three-way merge settings.
type MergeConfig struct {
	Level         string `mapstructure:"level"`
	Favor         string `mapstructure:"favor"`
	Style         string `mapstructure:"style"`
	AncestorLabel string `mapstructure:"ancestor_label"`
	OursLabel     string `mapstructure:"ours_label"`
	TheirsLabel   string `mapstructure:"theirs_label"`
	MarkerSize    int    `mapstructure:"marker_size"`
}

// EngineConfig selects the diff engine.
type EngineConfig struct {
	Name    string        `mapstructure:"name"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LimitsConfig bounds memory use. Sizes use humanize format (e.g. "64MiB").
type LimitsConfig struct {
	MemoryBudget string `mapstructure:"memory_budget"`
	MaxFileSize  string `mapstructure:"max_file_size"`
}

// OutputConfig holds rendering settings.
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Color  string `mapstructure:"color"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	Environment  string  `mapstructure:"environment"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	DebugTrace   bool    `mapstructure:"debug_trace"`
}

// DriverConfig is a custom function-name driver in git's xfuncname form.
// Drivers are keyed by language name, matched case-insensitively.
type DriverConfig struct {
	Pattern    string `mapstructure:"pattern"`
	IgnoreCase bool   `mapstructure:"ignore_case"`
}

// LoadConfig loads configuration from configPath, or from .xdiff.yaml in the
// working directory or $HOME when configPath is empty. A missing default file
// is not an error; a missing explicit file is.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(".xdiff")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := v.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	err := v.Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in defaults, ignoring files and environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config

	_ = v.Unmarshal(&cfg) //nolint:errcheck // defaults always decode.

	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("diff.flags", []string{})
	v.SetDefault("diff.ignore", []string{})
	v.SetDefault("diff.anchors", []string{})
	v.SetDefault("diff.context_lines", DefaultContextLines)
	v.SetDefault("diff.interhunk_lines", DefaultInterhunkLines)
	v.SetDefault("diff.ignore_case", false)
	v.SetDefault("diff.func_names", false)
	v.SetDefault("diff.func_context", false)
	v.SetDefault("diff.no_hunk_header", false)

	v.SetDefault("merge.marker_size", DefaultMarkerSize)
	v.SetDefault("merge.level", DefaultMergeLevel)
	v.SetDefault("merge.favor", DefaultMergeFavor)
	v.SetDefault("merge.style", DefaultMergeStyle)
	v.SetDefault("merge.ancestor_label", "")
	v.SetDefault("merge.ours_label", "")
	v.SetDefault("merge.theirs_label", "")

	v.SetDefault("engine.name", DefaultEngine)
	v.SetDefault("engine.timeout", DefaultEngineTimeout)

	v.SetDefault("limits.memory_budget", DefaultMemoryBudget)
	v.SetDefault("limits.max_file_size", DefaultMaxFileSize)

	v.SetDefault("output.format", DefaultFormat)
	v.SetDefault("output.color", DefaultColor)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_headers", "")
	v.SetDefault("telemetry.otlp_insecure", false)
	v.SetDefault("telemetry.environment", "")
	v.SetDefault("telemetry.sample_ratio", 0.0)
	v.SetDefault("telemetry.debug_trace", false)
}
