// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

// Package config holds the runtime configuration of the wollet CLI. Values
// come from WOLLET_* environment variables; command-line flags override them.
package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Prefix is the environment variable prefix.
const Prefix = "WOLLET"

// LogFileName is the log file created in the data directory by default.
const LogFileName = "wollet.log"

// LogDisabled as log file turns logging off.
const LogDisabled = "none"

const masked = "*** Masked ***"

// Config is used to hold all runtime configuration.
type Config struct {
	DataDir     string        `default:"./wallet_data" envconfig:"DATA_DIR" json:"data_dir"`
	Network     string        `default:"regtest" envconfig:"NETWORK" json:"network"`
	PolicyAsset string        `default:"0f82e3be4e0644251bccfc1281249d5fa77bc67bb3d32af2025b4a3c3a0eb9c8" envconfig:"POLICY_ASSET" json:"policy_asset"`
	EsploraURL  string        `default:"http://127.0.0.1:3102/" envconfig:"ESPLORA_URL" json:"esplora_url"`
	Waterfalls  bool          `default:"true" envconfig:"WATERFALLS" json:"waterfalls"`
	Timeout     time.Duration `default:"0s" envconfig:"TIMEOUT" json:"timeout"` // 0 waits forever
	WordCount   int           `default:"12" envconfig:"WORD_COUNT" json:"word_count"`
	Language    string        `default:"en" envconfig:"LANGUAGE" json:"language"`
	FeeRate     uint64        `default:"100" envconfig:"FEE_RATE" json:"fee_rate"` // sat/kvB
	GapLimit    uint32        `default:"20" envconfig:"GAP_LIMIT" json:"gap_limit"`
	LogLevel    string        `default:"info" envconfig:"LOG_LEVEL" json:"log_level"`
	LogFile     string        `envconfig:"LOG_FILE" json:"log_file"`
}

// Environment returns configuration sourced from environment variables.
func Environment() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	switch c.WordCount {
	case 12, 15, 18, 21, 24:
	default:
		return errors.Errorf("word count %d must be 12, 15, 18, 21 or 24", c.WordCount)
	}
	if c.FeeRate == 0 {
		return errors.New("fee rate must be greater than zero")
	}
	if c.GapLimit == 0 {
		return errors.New("gap limit must be greater than zero")
	}
	if c.DataDir == "" {
		return errors.New("data directory must not be empty")
	}
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	return nil
}

// LogPath returns where logs are written: the configured file, the default
// file in the data directory, or "" when logging is disabled.
func (c *Config) LogPath() string {
	switch c.LogFile {
	case LogDisabled:
		return ""
	case "":
		return filepath.Join(c.DataDir, LogFileName)
	default:
		return c.LogFile
	}
}

// SafeConfig masks sensitive config values.
func SafeConfig(cfg Config) *Config {
	cfgSafe := cfg

	if u, err := url.Parse(cfgSafe.EsploraURL); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), masked)
			cfgSafe.EsploraURL = u.String()
		}
	}

	return &cfgSafe
}
