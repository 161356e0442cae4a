package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/danmuck/pxcanvas/internal/logging"
	"github.com/danmuck/pxcanvas/internal/server"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "pxcanvasd: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		return err
	}

	logging.ConfigureRuntime("pxcanvasd")
	cfg, err := loadServiceConfig(flags)
	if err != nil {
		return err
	}

	svc, err := server.NewService(cfg)
	if err != nil {
		return err
	}
	return svc.Run()
}
