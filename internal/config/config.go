package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

var ErrInvalidConfig = errors.New("config: invalid")

// ServerConfig is the resolved runtime configuration for pxcanvasd.
type ServerConfig struct {
	Name              string
	Addr              string
	Width             int
	Height            int
	QueueDepth        int
	MaxLineBytes      int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	AdminAddr         string
	CorsOrigins       []string
	HeartbeatInterval time.Duration
}

// fileConfig is the on-disk TOML shape. Durations are Go duration strings.
type fileConfig struct {
	Name              string   `toml:"name"`
	Addr              string   `toml:"addr"`
	Width             int      `toml:"width"`
	Height            int      `toml:"height"`
	QueueDepth        int      `toml:"queue_depth"`
	MaxLineBytes      int      `toml:"max_line_bytes"`
	ReadTimeout       string   `toml:"read_timeout"`
	WriteTimeout      string   `toml:"write_timeout"`
	AdminAddr         string   `toml:"admin_addr"`
	CorsOrigins       []string `toml:"cors_origins"`
	HeartbeatInterval string   `toml:"heartbeat_interval"`
}

// Default is an 800x600 canvas on :1337 with no idle read deadline and the
// admin endpoint disabled.
func Default() ServerConfig {
	return ServerConfig{
		Name:              "pxcanvas",
		Addr:              ":1337",
		Width:             800,
		Height:            600,
		QueueDepth:        32,
		MaxLineBytes:      1024,
		ReadTimeout:       0,
		WriteTimeout:      2 * time.Second,
		AdminAddr:         "",
		HeartbeatInterval: 30 * time.Second,
	}
}

// Load reads path and overlays every key it defines onto Default.
func Load(path string) (ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return ServerConfig{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML text the same way Load does.
func Parse(data string) (ServerConfig, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return ServerConfig{}, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return ServerConfig{}, fmt.Errorf("%w: unknown keys %s", ErrInvalidConfig, strings.Join(keys, ", "))
	}

	if meta.IsDefined("name") {
		cfg.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("width") {
		cfg.Width = raw.Width
	}
	if meta.IsDefined("height") {
		cfg.Height = raw.Height
	}
	if meta.IsDefined("queue_depth") {
		cfg.QueueDepth = raw.QueueDepth
	}
	if meta.IsDefined("max_line_bytes") {
		cfg.MaxLineBytes = raw.MaxLineBytes
	}
	if meta.IsDefined("read_timeout") {
		if cfg.ReadTimeout, err = parseDuration("read_timeout", raw.ReadTimeout); err != nil {
			return ServerConfig{}, err
		}
	}
	if meta.IsDefined("write_timeout") {
		if cfg.WriteTimeout, err = parseDuration("write_timeout", raw.WriteTimeout); err != nil {
			return ServerConfig{}, err
		}
	}
	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}
	if meta.IsDefined("heartbeat_interval") {
		if cfg.HeartbeatInterval, err = parseDuration("heartbeat_interval", raw.HeartbeatInterval); err != nil {
			return ServerConfig{}, err
		}
	}

	if err := Validate(cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

func Validate(cfg ServerConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("%w: missing addr", ErrInvalidConfig)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: canvas must be at least 1x1, got %dx%d", ErrInvalidConfig, cfg.Width, cfg.Height)
	}
	if uint64(cfg.Width) > math.MaxUint32 || uint64(cfg.Height) > math.MaxUint32 || cfg.Width > math.MaxInt/cfg.Height {
		return fmt.Errorf("%w: canvas %dx%d too large", ErrInvalidConfig, cfg.Width, cfg.Height)
	}
	if cfg.QueueDepth < 1 {
		return fmt.Errorf("%w: queue_depth must be >= 1", ErrInvalidConfig)
	}
	if cfg.MaxLineBytes < 16 {
		return fmt.Errorf("%w: max_line_bytes must be >= 16", ErrInvalidConfig)
	}
	if cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	if cfg.HeartbeatInterval <= 0 {
		return fmt.Errorf("%w: heartbeat_interval must be positive", ErrInvalidConfig)
	}
	return nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, key, err)
	}
	return d, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
