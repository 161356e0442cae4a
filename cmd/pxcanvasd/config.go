package main

import (
	"fmt"
	"strings"

	"github.com/danmuck/pxcanvas/internal/config"
	"github.com/spf13/pflag"
)

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("pxcanvasd", pflag.ContinueOnError)
	flags.StringP("config", "c", "", "path to a TOML config file (defaults apply when empty)")
	flags.String("addr", "", "pixel protocol listen address (overrides config)")
	flags.String("admin-addr", "", "admin HTTP listen address; empty disables (overrides config)")
	flags.Int("width", 0, "canvas width in pixels (overrides config)")
	flags.Int("height", 0, "canvas height in pixels (overrides config)")
	flags.Duration("read-timeout", 0, "idle read deadline per connection; 0 waits forever (overrides config)")
	return flags
}

// loadServiceConfig resolves defaults, then the config file, then any flag the
// caller actually set.
func loadServiceConfig(flags *pflag.FlagSet) (config.ServerConfig, error) {
	cfg := config.Default()

	path, err := flags.GetString("config")
	if err != nil {
		return config.ServerConfig{}, err
	}
	if path = strings.TrimSpace(path); path != "" {
		if cfg, err = config.Load(path); err != nil {
			return config.ServerConfig{}, err
		}
	}

	if flags.Changed("addr") {
		v, _ := flags.GetString("addr")
		cfg.Addr = strings.TrimSpace(v)
	}
	if flags.Changed("admin-addr") {
		v, _ := flags.GetString("admin-addr")
		cfg.AdminAddr = strings.TrimSpace(v)
	}
	if flags.Changed("width") {
		cfg.Width, _ = flags.GetInt("width")
	}
	if flags.Changed("height") {
		cfg.Height, _ = flags.GetInt("height")
	}
	if flags.Changed("read-timeout") {
		cfg.ReadTimeout, _ = flags.GetDuration("read-timeout")
	}

	if err := config.Validate(cfg); err != nil {
		return config.ServerConfig{}, fmt.Errorf("load pxcanvasd config: %w", err)
	}
	return cfg, nil
}
