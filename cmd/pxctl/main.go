package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/danmuck/pxcanvas/internal/client"
	"github.com/danmuck/pxcanvas/internal/logging"
	"github.com/danmuck/pxcanvas/internal/protocol"
	"github.com/spf13/pflag"
)

const usage = "usage: pxctl [--addr host:port] [--timeout d] [--retries n] SIZE | HELP | PX x y [color]"

func main() {
	logging.ConfigureRuntime("pxctl")
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "pxctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("pxctl", pflag.ContinueOnError)
	addr := flags.StringP("addr", "a", "127.0.0.1:1337", "pixel server address")
	timeout := flags.DurationP("timeout", "t", 5*time.Second, "overall timeout across all attempts")
	retries := flags.IntP("retries", "r", 1, "dial attempts before giving up")
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return err
	}

	line := strings.Join(flags.Args(), " ")
	if strings.TrimSpace(line) == "" {
		return errors.New(usage)
	}

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	cmd, err := protocol.ParseLine(line)
	if err != nil {
		return err
	}

	policy := client.DefaultRetryPolicy()
	policy.Attempts = *retries
	resp, err := client.SendRetry(ctx, *addr, cmd, policy)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, resp)
	return err
}
