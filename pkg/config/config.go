// Package config resolves wellspring settings from defaults, an optional
// config.yaml in the data directory, WELLSPRING_* environment variables
// and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/stefanpenner/wellspring/pkg/store"
)

const (
	EnvPrefix  = "WELLSPRING"
	ConfigName = "config"

	BackendFiles  = "files"
	BackendSQLite = "sqlite"
)

// Keys.
const (
	KeyDir         = "dir"
	KeyBackend     = "backend"
	KeyLogLevel    = "log_level"
	KeyLogFormat   = "log_format"
	KeyMetricsAddr = "metrics_addr"
)

// Config is the resolved configuration.
type Config struct {
	Dir         string `mapstructure:"dir" json:"dir"`
	Backend     string `mapstructure:"backend" json:"backend"`
	LogLevel    string `mapstructure:"log_level" json:"log_level"`
	LogFormat   string `mapstructure:"log_format" json:"log_format"`
	MetricsAddr string `mapstructure:"metrics_addr" json:"metrics_addr,omitempty"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-" json:"file,omitempty"`
}

// New returns a viper instance with wellspring's defaults and env binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDir, store.DefaultDataDir())
	v.SetDefault(KeyBackend, BackendFiles)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyMetricsAddr, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags makes flags override env and file values. A flag named
// "metrics-addr" binds to the metrics_addr key.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, key := range []string{KeyDir, KeyBackend, KeyLogLevel, KeyLogFormat, KeyMetricsAddr} {
		name := strings.ReplaceAll(key, "_", "-")
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}
	return nil
}

// Load reads config.yaml from the resolved data directory, if present,
// and returns the validated result.
func Load(v *viper.Viper) (*Config, error) {
	dir, err := homedir.Expand(v.GetString(KeyDir))
	if err != nil {
		return nil, fmt.Errorf("expanding data dir: %w", err)
	}

	v.SetConfigName(ConfigName) // .yaml is implicit
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	// The file may not move the data dir out from under itself.
	cfg.Dir = dir
	cfg.File = v.ConfigFileUsed()
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFiles, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendFiles, BackendSQLite)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q (want text or json)", c.LogFormat)
	}
	return nil
}

// DBPath is where the sqlite backend keeps its database.
func (c *Config) DBPath() string {
	return filepath.Join(c.Dir, store.DBFile)
}

// Logger builds a logrus logger from the log settings.
func (c *Config) Logger() *logrus.Logger {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
