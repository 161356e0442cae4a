package main

import (
	"fmt"
	"os"

	"github.com/danmuck/pxcanvas/internal/config"
	"github.com/danmuck/pxcanvas/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

const defaultConfigPath = "cmd/pxcanvasd/config.toml"

func main() {
	kind := pflag.String("kind", "server", "config kind: server")
	output := pflag.StringP("output", "o", "", "output path for config template")
	validate := pflag.Bool("validate", false, "validate an existing config file")
	input := pflag.StringP("input", "i", "", "config path for validation (defaults to "+defaultConfigPath+")")
	force := pflag.BoolP("force", "f", false, "overwrite existing config file")
	pflag.Parse()

	logging.ConfigureRuntime("configgen")

	if *validate {
		path := *input
		if path == "" {
			path = defaultConfigPath
		}
		if _, err := config.Template(*kind); err != nil {
			fatal(err)
		}
		cfg, err := config.Load(path)
		if err != nil {
			fatal(err)
		}
		log.Info().
			Str("kind", *kind).
			Str("path", path).
			Str("addr", cfg.Addr).
			Int("width", cfg.Width).
			Int("height", cfg.Height).
			Msg("configgen validated")
		return
	}

	target := *output
	if target == "" {
		target = defaultConfigPath
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		fatal(err)
	}
	log.Info().Str("kind", *kind).Str("path", target).Msg("configgen wrote template")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "configgen: %v\n", err)
	os.Exit(1)
}
