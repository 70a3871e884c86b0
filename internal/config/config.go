// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package config loads adxquery's runtime configuration. Precedence is
// CLI flags highest, then ADXQUERY_* environment variables, then an
// optional config file, then built-in defaults.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds the settings that can be supplied outside of an explicit
// per-invocation CLI flag: a default snapshot path, an output format, and
// logging verbosity. Format is loaded but not read by the commands, which
// take the output format only from --format (query) or :format
// (interactive). Per-query settings (filter, attributes, limit) are always
// explicit CLI flags and are not part of this struct.
type Config struct {
	Snapshot string `mapstructure:"snapshot"`
	Format   string `mapstructure:"format"`
	LogLevel string `mapstructure:"log_level"`
}

// Default returns the built-in defaults applied when neither a config
// file nor an environment variable supplies a value.
func Default() *Config {
	return &Config{
		Format:   "table",
		LogLevel: "info",
	}
}

// Load reads configuration from, in ascending precedence: built-in
// defaults, an optional config file at configPath (if non-empty), and
// ADXQUERY_* environment variables. CLI flags are applied by the caller
// afterward via the cobra command's own flag values, which always win.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("snapshot", "")
	v.SetDefault("format", "table")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("ADXQUERY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
