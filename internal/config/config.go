package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jaragunde/picture-collection-tools/internal/aggregate"
	"github.com/jaragunde/picture-collection-tools/internal/dateparse"
	"github.com/jaragunde/picture-collection-tools/internal/mediatypes"
)

// ErrValidation marks invalid user input: bad configuration values, a
// missing root directory or a malformed filter date.
var ErrValidation = errors.New("validation error")

// Config represents the main configuration structure
type Config struct {
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Media     MediaConfig     `mapstructure:"media"`
	Video     VideoConfig     `mapstructure:"video"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// CatalogConfig contains catalog write settings
type CatalogConfig struct {
	CommitEvery int `mapstructure:"commit_every"`
}

// MediaConfig lists the recognised file extensions
type MediaConfig struct {
	ImageExtensions []string `mapstructure:"image_extensions"`
	VideoExtensions []string `mapstructure:"video_extensions"`
}

// VideoConfig selects how video metadata is probed
type VideoConfig struct {
	Prober       string `mapstructure:"prober"` // ffprobe, exiftool
	FFprobePath  string `mapstructure:"ffprobe_path"`
	ExiftoolPath string `mapstructure:"exiftool_path"`
}

// AnalyticsConfig contains defaults for the plot command
type AnalyticsConfig struct {
	GroupBy    string `mapstructure:"group_by"` // month, year
	SplitByDir bool   `mapstructure:"split_by_dir"`
	Renderer   string `mapstructure:"renderer"` // png, text
}

// ServerConfig contains web server settings
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // text, json
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			CommitEvery: 100,
		},
		Media: MediaConfig{
			ImageExtensions: append([]string(nil), mediatypes.DefaultImageExtensions...),
			VideoExtensions: append([]string(nil), mediatypes.DefaultVideoExtensions...),
		},
		Video: VideoConfig{
			Prober:      "ffprobe",
			FFprobePath: "ffprobe",
		},
		Analytics: AnalyticsConfig{
			GroupBy:  "month",
			Renderer: "png",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			FilePath:   "",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.picture-collection")
	}

	v.SetEnvPrefix("COLLECTION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// bindEnv registers every key so AutomaticEnv applies to Unmarshal even when
// no config file mentions it.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"catalog.commit_every",
		"media.image_extensions",
		"media.video_extensions",
		"video.prober",
		"video.ffprobe_path",
		"video.exiftool_path",
		"analytics.group_by",
		"analytics.split_by_dir",
		"analytics.renderer",
		"server.port",
		"logging.level",
		"logging.format",
		"logging.file_path",
		"logging.max_size",
		"logging.max_backups",
		"logging.max_age",
		"logging.compress",
	} {
		_ = v.BindEnv(key)
	}
}

// Validate checks enums and normalises extensions. Every returned error
// wraps ErrValidation.
func (c *Config) Validate() error {
	if c.Catalog.CommitEvery <= 0 {
		c.Catalog.CommitEvery = 100
	}

	c.Media.ImageExtensions = mediatypes.NormalizeExtensions(c.Media.ImageExtensions)
	c.Media.VideoExtensions = mediatypes.NormalizeExtensions(c.Media.VideoExtensions)
	if len(c.Media.ImageExtensions) == 0 && len(c.Media.VideoExtensions) == 0 {
		return fmt.Errorf("%w: no media extensions configured", ErrValidation)
	}

	c.Video.Prober = strings.ToLower(c.Video.Prober)
	switch c.Video.Prober {
	case "ffprobe", "exiftool":
	default:
		return fmt.Errorf("%w: invalid video prober: %s (valid: ffprobe, exiftool)", ErrValidation, c.Video.Prober)
	}
	if c.Video.FFprobePath == "" {
		c.Video.FFprobePath = "ffprobe"
	}

	groupBy, err := aggregate.ParseGroupBy(strings.ToLower(c.Analytics.GroupBy))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	c.Analytics.GroupBy = string(groupBy)

	if err := ValidateRenderer(c.Analytics.Renderer); err != nil {
		return err
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: invalid server port: %d", ErrValidation, c.Server.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("%w: invalid log level: %s (valid: debug, info, warn, error)", ErrValidation, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "":
		c.Logging.Format = "text"
	case "text", "json":
	default:
		return fmt.Errorf("%w: invalid log format: %s (valid: text, json)", ErrValidation, c.Logging.Format)
	}

	return nil
}

// Classifier builds the extension classifier from the media settings.
func (c *Config) Classifier() *mediatypes.Classifier {
	return mediatypes.NewClassifier(c.Media.ImageExtensions, c.Media.VideoExtensions)
}

// ValidateRenderer checks a renderer name.
func ValidateRenderer(name string) error {
	switch name {
	case "png", "text":
		return nil
	default:
		return fmt.Errorf("%w: invalid renderer: %s (valid: png, text)", ErrValidation, name)
	}
}

// ResolveRoot expands dir and checks it is an existing directory. It returns
// the absolute path.
func ResolveRoot(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("%w: directory is required", ErrValidation)
	}

	expanded := os.ExpandEnv(dir)
	if strings.HasPrefix(expanded, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("%w: cannot expand %s: %w", ErrValidation, dir, err)
		}
		expanded = filepath.Join(home, expanded[1:])
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrValidation, dir, err)
	}

	stat, err := os.Stat(abs)
	if err != nil || !stat.IsDir() {
		return "", fmt.Errorf("%w: directory '%s' does not exist", ErrValidation, dir)
	}
	return abs, nil
}

// ParseDateFilter parses an optional YYYY-MM-DD bound. The empty string
// yields nil.
func ParseDateFilter(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := dateparse.ParseDay(value)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s %q, expected YYYY-MM-DD", ErrValidation, name, value)
	}
	return &t, nil
}
