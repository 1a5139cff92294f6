// cmd/osp3-dump/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	osp3 "github.com/luhtfiimanal/go-osp3"
	"github.com/luhtfiimanal/go-osp3/internal/cli"
	"github.com/luhtfiimanal/go-osp3/internal/dump"
)

// Block until data arrives.
const defaultTimeout = 0

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("osp3-dump", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Dump serial output from an ODROID Smart Power 3.\n\nUsage: osp3-dump [OPTION]...\nOptions:\n")
		fs.PrintDefaults()
	}

	var flags cli.Flags
	flags.Register(fs, defaultTimeout)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := flags.Load()
	if err != nil {
		slog.Error("configuration failed", slog.Any("error", err))
		return 1
	}
	logger, err := cli.NewLogger(cfg)
	if err != nil {
		slog.Error("configuration failed", slog.Any("error", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	conn, err := cli.Open(cfg)
	if err != nil {
		logger.Error("failed to open ODROID Smart Power 3 connection", slog.String("path", cfg.Device.Path), slog.Any("error", err))
		return 1
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close ODROID Smart Power 3 connection", slog.Any("error", err))
		}
	}()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	timeout := cfg.Timeout(defaultTimeout)
	if err := dump.Run(ctx, conn, os.Stdout, timeout); err != nil {
		if errors.Is(err, osp3.ErrTimeout) {
			logger.Error("read timeout expired", slog.Duration("timeout", timeout))
		} else {
			logger.Error("dump failed", slog.Any("error", err))
		}
		return 1
	}
	return 0
}
