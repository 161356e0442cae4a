package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/pxcanvas/internal/config"
)

func TestLoadServiceConfigDefaults(t *testing.T) {
	flags := newFlagSet()
	if err := flags.Parse(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := loadServiceConfig(flags)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Addr != ":1337" || cfg.Width != 800 || cfg.Height != 600 || cfg.AdminAddr != "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadServiceConfigFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
addr = "127.0.0.1:2000"
width = 100
height = 50
admin_addr = "127.0.0.1:9000"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	flags := newFlagSet()
	args := []string{"--config", path, "--width", "320", "--admin-addr", "", "--read-timeout", "3s"}
	if err := flags.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := loadServiceConfig(flags)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Addr != "127.0.0.1:2000" {
		t.Fatalf("file addr should survive, got %q", cfg.Addr)
	}
	if cfg.Width != 320 || cfg.Height != 50 {
		t.Fatalf("unexpected canvas size: %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.AdminAddr != "" {
		t.Fatalf("explicit empty --admin-addr should disable admin, got %q", cfg.AdminAddr)
	}
	if cfg.ReadTimeout != 3*time.Second {
		t.Fatalf("unexpected read timeout: %v", cfg.ReadTimeout)
	}
}

func TestLoadServiceConfigRejectsInvalidFlags(t *testing.T) {
	flags := newFlagSet()
	if err := flags.Parse([]string{"--height", "0"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if _, err := loadServiceConfig(flags); !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
