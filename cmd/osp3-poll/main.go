// cmd/osp3-poll/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	osp3 "github.com/luhtfiimanal/go-osp3"
	"github.com/luhtfiimanal/go-osp3/internal/cli"
	"github.com/luhtfiimanal/go-osp3/internal/metrics"
	"github.com/luhtfiimanal/go-osp3/internal/poll"
	"github.com/prometheus/client_golang/prometheus"
)

// Conservative, but effective.
const defaultTimeout = 2 * osp3.IntervalMax

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("osp3-poll", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Poll log entries from an ODROID Smart Power 3.\n\nUsage: osp3-poll [OPTION]...\nOptions:\n")
		fs.PrintDefaults()
	}

	var (
		flags       cli.Flags
		num         int
		noParse     bool
		noChecksum  bool
		metricsAddr string
	)
	flags.Register(fs, defaultTimeout)
	fs.IntVar(&num, "n", 0, "Stop after N log entries")
	fs.IntVar(&num, "num", 0, "Stop after N log entries")
	fs.BoolVar(&noParse, "no-parse", false, "Disable log entry parsing verification")
	fs.BoolVar(&noChecksum, "no-checksum", false, "Disable log entry checksum verification")
	fs.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)")

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
	if flags.Visited("n") || flags.Visited("num") {
		cfg.Poll.Count = num
	}
	if noParse {
		cfg.Poll.NoParse = true
	}
	if noChecksum {
		cfg.Poll.NoChecksum = true
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}
	if cfg.Poll.Count < 0 {
		slog.Error("configuration failed", slog.Any("error", fmt.Errorf("num must be >= 0, got %d", cfg.Poll.Count)))
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
	// Closing unblocks a read waiting on the device.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	opts := poll.Options{
		Timeout:    cfg.Timeout(defaultTimeout),
		Count:      cfg.Poll.Count,
		NoParse:    cfg.Poll.NoParse,
		NoChecksum: cfg.Poll.NoChecksum,
		Logger:     logger,
	}

	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		opts.Observer = metrics.New(reg)
		srv := metrics.NewServer(cfg.Metrics.Addr, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	if err := poll.Run(ctx, conn, os.Stdout, opts); err != nil {
		if errors.Is(err, osp3.ErrTimeout) {
			logger.Error("read timeout expired", slog.Duration("timeout", opts.Timeout))
		} else {
			logger.Error("polling failed", slog.Any("error", err))
		}
		return 1
	}
	return 0
}
