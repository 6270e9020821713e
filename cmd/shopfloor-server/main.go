// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

// shopfloor-server is the factory-floor telemetry aggregator. It
// polls every configured machine, tags each reading with its source
// machine, and forwards it to every configured sink until SIGINT or
// SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/shopfloor-works/shopfloor/fabric"
	"github.com/shopfloor-works/shopfloor/lib/clock"
	"github.com/shopfloor-works/shopfloor/lib/config"
	"github.com/shopfloor-works/shopfloor/lib/version"
	"github.com/shopfloor-works/shopfloor/machine"
	"github.com/shopfloor-works/shopfloor/machine/haas"
	"github.com/shopfloor-works/shopfloor/machine/lathe"
	"github.com/shopfloor-works/shopfloor/machine/opcuamill"
	"github.com/shopfloor-works/shopfloor/server"
)

// shutdownGrace bounds how long we wait for the receive loop to drain
// after a termination signal.
const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// drivers is the registry of device driver factories. New device
// types register here.
func drivers() map[string]machine.Factory {
	return map[string]machine.Factory{
		"lathe":     lathe.FromConfig,
		"haas":      haas.FromConfig,
		"opcuamill": opcuamill.FromConfig,
	}
}

func run() error {
	var configPath string
	var metricsListen string
	var showVersion bool

	flagSet := pflag.NewFlagSet("shopfloor-server", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to shopfloor.yaml (overrides SHOPFLOOR_CONFIG)")
	flagSet.StringVar(&metricsListen, "metrics-listen", "", "prometheus listen address (overrides config)")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		version.Print("shopfloor-server")
		return nil
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if metricsListen == "" {
		metricsListen = cfg.MetricsListen
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	metrics := server.NewMetrics(registry)

	srv, err := server.New(ctx, server.Options{
		Listen:   cfg.Listen,
		Sinks:    cfg.Sinks,
		Machines: cfg.MachineConfigs(),
	}, fabric.NewZMQ(ctx), drivers(), clock.Real(), logger, metrics)
	if err != nil {
		return err
	}

	if metricsListen != "" {
		metricsServer := &http.Server{
			Addr:    metricsListen,
			Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics listener failed", "error", err)
			}
		}()
		defer metricsServer.Close()
		logger.Info("metrics listening", "address", metricsListen)
	}

	srv.Start()
	logger.Info("aggregating", "endpoint", srv.Endpoint())

	select {
	case <-ctx.Done():
		logger.Info("signal received, shutting down")
		srv.Stop()
	case <-srv.Done():
		// The receive loop died on its own; surface that as an error.
		return errors.New("server stopped unexpectedly")
	}

	select {
	case <-srv.Done():
	case <-time.After(shutdownGrace):
		logger.Warn("shutdown grace period elapsed, exiting anyway")
	}
	return nil
}
