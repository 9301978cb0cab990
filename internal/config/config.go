// Package config loads erpmon settings through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/rusenback/erpmon/internal/diagnose"
	"github.com/rusenback/erpmon/internal/docker"
	"github.com/rusenback/erpmon/internal/stats"
)

// Config is the resolved application configuration.
type Config struct {
	Docker          docker.Config
	StatsTimeout    time.Duration
	RefreshInterval time.Duration
	Ports           diagnose.PortRange
	DataDir         string
	Retention       time.Duration
	MetricsAddr     string
	LogLevel        string
	LogDevelopment  bool
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	d := docker.DefaultConfig()
	v.SetDefault("docker.host", d.Host)
	v.SetDefault("docker.tls_verify", false)
	v.SetDefault("docker.cert_path", "")
	v.SetDefault("docker.timeout", d.Timeout)
	v.SetDefault("docker.stats_timeout", 5*time.Second)
	v.SetDefault("refresh_interval", 2*time.Second)
	v.SetDefault("platform", "")
	v.SetDefault("ports.min", diagnose.DefaultPortRange.Min)
	v.SetDefault("ports.max", diagnose.DefaultPortRange.Max)
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("retention", 7*24*time.Hour)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".erpmon"
	}
	return filepath.Join(home, ".erpmon")
}

// Load reads the settings from v and validates them.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Docker: docker.Config{
			Host:         v.GetString("docker.host"),
			TLSVerify:    v.GetBool("docker.tls_verify"),
			CertPath:     v.GetString("docker.cert_path"),
			Timeout:      v.GetDuration("docker.timeout"),
			StatsTimeout: v.GetDuration("docker.stats_timeout"),
			Platform:     stats.ParsePlatform(v.GetString("platform")),
		},
		StatsTimeout:    v.GetDuration("docker.stats_timeout"),
		RefreshInterval: v.GetDuration("refresh_interval"),
		Ports: diagnose.PortRange{
			Min: v.GetInt("ports.min"),
			Max: v.GetInt("ports.max"),
		},
		DataDir:        v.GetString("data_dir"),
		Retention:      v.GetDuration("retention"),
		MetricsAddr:    v.GetString("metrics.addr"),
		LogLevel:       v.GetString("log.level"),
		LogDevelopment: v.GetBool("log.development"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Ports.Min < 1 || c.Ports.Max > 65535 || c.Ports.Min > c.Ports.Max {
		errs = append(errs, fmt.Errorf("invalid port band %d-%d", c.Ports.Min, c.Ports.Max))
	}
	if c.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("refresh_interval must be positive, got %s", c.RefreshInterval))
	}
	if c.StatsTimeout <= 0 {
		errs = append(errs, fmt.Errorf("docker.stats_timeout must be positive, got %s", c.StatsTimeout))
	}
	if c.Docker.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("docker.timeout must be positive, got %s", c.Docker.Timeout))
	}
	if c.Docker.Host == "" {
		errs = append(errs, errors.New("docker.host is required"))
	}
	if c.Retention <= 0 {
		errs = append(errs, fmt.Errorf("retention must be positive, got %s", c.Retention))
	}
	return errors.Join(errs...)
}
