// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

// Taskrelay-unit is the per-machine daemon that accepts connections
// from taskrelay-hub and executes folder, file-transfer, and task
// requests against its local filesystem. It has no outbound
// connections of its own — everything is driven by the hub.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/taskrelay/taskrelay/lib/clock"
	"github.com/taskrelay/taskrelay/lib/process"
	"github.com/taskrelay/taskrelay/lib/scheduler"
	"github.com/taskrelay/taskrelay/lib/version"
	"github.com/taskrelay/taskrelay/server"
	"github.com/taskrelay/taskrelay/transport"
	"github.com/taskrelay/taskrelay/unit"
	"github.com/taskrelay/taskrelay/unit/folder"
)

// staleTransferSweepPeriod and staleTransferMaxAge bound how long an
// abandoned file transfer's partial file and handle can outlive its
// hub connection.
const (
	staleTransferSweepPeriod = 30 * time.Second
	staleTransferMaxAge      = 10 * time.Minute
)

// shutdownGracePeriod bounds how long Shutdown waits for running
// processes to exit after SIGTERM before the daemon gives up on them.
const shutdownGracePeriod = 10 * time.Second

// config is the optional YAML file loadable via --config. Flags
// always take precedence over file values when both are set.
type config struct {
	Workdir string   `yaml:"workdir"`
	Bind    string   `yaml:"bind"`
	Folders []string `yaml:"bootstrap_folders"`
}

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	flags := pflag.NewFlagSet("taskrelay-unit", pflag.ContinueOnError)
	workdir := flags.String("workdir", "/var/lib/taskrelay-unit", "root directory for task folders")
	bind := flags.String("bind", "0.0.0.0:7790", "address to listen on for hub connections")
	configPath := flags.String("config", "", "optional YAML config file")
	showVersion := flags.Bool("version", false, "print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	if *showVersion {
		fmt.Println(version.Full())
		return nil
	}

	cfg := config{Workdir: *workdir, Bind: *bind}
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		fileCfg := config{Workdir: cfg.Workdir, Bind: cfg.Bind}
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
		if !flags.Changed("workdir") {
			cfg.Workdir = fileCfg.Workdir
		}
		if !flags.Changed("bind") {
			cfg.Bind = fileCfg.Bind
		}
		cfg.Folders = fileCfg.Folders
	}

	logger := newLogger()

	registry := folder.NewRegistry(cfg.Workdir)
	if err := registry.Init(); err != nil {
		return fmt.Errorf("initializing folder registry: %w", err)
	}
	for _, name := range cfg.Folders {
		if err := registry.Create(name); err != nil {
			logger.Warn("bootstrap folder create failed", "folder", name, "error", err)
		}
	}

	dispatcher := unit.New(cfg.Workdir, registry, clock.Real(), logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dispatcher.RunBackground(ctx)

	go scheduler.RunIdleTicks(ctx, clock.Real(), staleTransferSweepPeriod, func() {
		dispatcher.ReapStaleTransfers(ctx, staleTransferMaxAge)
	})

	handler := func(ctx context.Context, client *server.Client) {
		listener := transport.NewListener(client.Conn)
		if err := dispatcher.Run(ctx, listener); err != nil {
			logger.Info("connection closed", "client_id", client.ID, "error", err)
		}
	}

	srv, err := server.New(cfg.Bind, logger, handler)
	if err != nil {
		return fmt.Errorf("binding %s: %w", cfg.Bind, err)
	}

	logger.Info("taskrelay-unit starting", "bind", cfg.Bind, "workdir", cfg.Workdir, "version", version.Short())
	serveErr := srv.Serve(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer shutdownCancel()
	logger.Info("taskrelay-unit shutting down, draining transfers and processes")
	dispatcher.Shutdown(shutdownCtx)

	return serveErr
}

// newLogger prefers a human-readable handler when stderr is an
// attached terminal (local runs, manual debugging) and falls back to
// structured JSON when it's redirected to a file or log collector.
func newLogger() *slog.Logger {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, nil))
}
