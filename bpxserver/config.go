package bpxserver

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/buyukakyuz/bpx"
	"github.com/buyukakyuz/bpx/bpxlog"
	"github.com/spf13/viper"
)

// FileConfig is the on-disk/env/flag-bindable shape of a server
// configuration, per spec § 6's option table plus the ambient listen
// address and logging options of SPEC_FULL.md § 10.2.
type FileConfig struct {
	ListenAddr             string         `mapstructure:"listen_addr"`
	MaxSessions            int            `mapstructure:"max_sessions"`
	MaxResourcesPerSession int            `mapstructure:"max_resources_per_session"`
	SessionTTL             time.Duration  `mapstructure:"session_ttl"`
	MaxDiffSize            int            `mapstructure:"max_diff_size"`
	MinCompressionRatio    float64        `mapstructure:"min_compression_ratio"`
	CleanupInterval        time.Duration  `mapstructure:"cleanup_interval"`
	Logging                bpxlog.Options `mapstructure:"logging"`
}

// DefaultFileConfig mirrors bpx.DefaultConfig plus ambient defaults.
func DefaultFileConfig() FileConfig {
	d := bpx.DefaultConfig()
	return FileConfig{
		ListenAddr:             "127.0.0.1:3000",
		MaxSessions:            d.MaxSessions,
		MaxResourcesPerSession: d.MaxResourcesPerSession,
		SessionTTL:             d.SessionTTL,
		MaxDiffSize:            d.MaxDiffSize,
		MinCompressionRatio:    d.MinCompressionRatio,
		CleanupInterval:        d.CleanupInterval,
		Logging:                bpxlog.Options{Stdout: true, Level: "info"},
	}
}

// ToCoreConfig projects the file-facing shape down to the core's
// bpx.Config.
func (f FileConfig) ToCoreConfig() bpx.Config {
	return bpx.Config{
		MaxSessions:            f.MaxSessions,
		MaxResourcesPerSession: f.MaxResourcesPerSession,
		SessionTTL:             f.SessionTTL,
		MaxDiffSize:            f.MaxDiffSize,
		MinCompressionRatio:    f.MinCompressionRatio,
		CleanupInterval:        f.CleanupInterval,
	}
}

// LoadConfig loads a FileConfig from, in ascending precedence: built-in
// defaults, an optional YAML file at configPath, and BPX_-prefixed
// environment variables. A missing config file is not an error.
func LoadConfig(configPath string) (*FileConfig, error) {
	v := viper.New()

	defaults := DefaultFileConfig()
	v.SetDefault("listen_addr", defaults.ListenAddr)
	v.SetDefault("max_sessions", defaults.MaxSessions)
	v.SetDefault("max_resources_per_session", defaults.MaxResourcesPerSession)
	v.SetDefault("session_ttl", defaults.SessionTTL)
	v.SetDefault("max_diff_size", defaults.MaxDiffSize)
	v.SetDefault("min_compression_ratio", defaults.MinCompressionRatio)
	v.SetDefault("cleanup_interval", defaults.CleanupInterval)
	v.SetDefault("logging.stdout", defaults.Logging.Stdout)
	v.SetDefault("logging.level", defaults.Logging.Level)

	v.SetEnvPrefix("BPX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg FileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
