package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// hostConfig is the resolved CLI configuration. Flags override the
// config file; the file overrides these defaults.
type hostConfig struct {
	Port           string
	BackupBase     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	StabilityDelay time.Duration
	Verbose        bool
}

func defaultHostConfig() hostConfig {
	return hostConfig{
		BackupBase:     ".",
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		StabilityDelay: time.Second,
	}
}

type fileConfig struct {
	Port           string `toml:"port"`
	BackupBase     string `toml:"backup_base"`
	ReadTimeout    string `toml:"read_timeout"`
	WriteTimeout   string `toml:"write_timeout"`
	StabilityDelay string `toml:"stability_delay"`
	Verbose        bool   `toml:"verbose"`
}

// loadHostConfig overlays the TOML file at path onto the defaults.
// A missing file is fine when the path is the implicit default.
func loadHostConfig(path string, required bool) (hostConfig, error) {
	cfg := defaultHostConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return cfg, nil
		}
		return hostConfig{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("backup_base") {
		cfg.BackupBase = strings.TrimSpace(raw.BackupBase)
	}
	if meta.IsDefined("read_timeout") {
		if cfg.ReadTimeout, err = parseTimeout(raw.ReadTimeout); err != nil {
			return hostConfig{}, fmt.Errorf("parse read_timeout: %w", err)
		}
	}
	if meta.IsDefined("write_timeout") {
		if cfg.WriteTimeout, err = parseTimeout(raw.WriteTimeout); err != nil {
			return hostConfig{}, fmt.Errorf("parse write_timeout: %w", err)
		}
	}
	if meta.IsDefined("stability_delay") {
		if cfg.StabilityDelay, err = parseTimeout(raw.StabilityDelay); err != nil {
			return hostConfig{}, fmt.Errorf("parse stability_delay: %w", err)
		}
	}
	if meta.IsDefined("verbose") {
		cfg.Verbose = raw.Verbose
	}

	return cfg, nil
}

func parseTimeout(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", d)
	}
	return d, nil
}
