// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

// shopfloor-tap is a debugging sink: it binds a pull endpoint, lets an
// aggregator connect to it, and prints every tagged reading as one
// JSON line on stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/shopfloor-works/shopfloor/fabric"
	"github.com/shopfloor-works/shopfloor/lib/version"
	"github.com/shopfloor-works/shopfloor/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// line is the printed form of one tagged reading.
type line struct {
	Machine string            `json:"machine"`
	Reading telemetry.Reading `json:"reading"`
}

func run() error {
	var listen string
	var showVersion bool

	flagSet := pflag.NewFlagSet("shopfloor-tap", pflag.ContinueOnError)
	flagSet.StringVar(&listen, "listen", "tcp://127.0.0.1:0", "pull endpoint to bind")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		version.Print("shopfloor-tap")
		return nil
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pull, endpoint, err := fabric.NewZMQ(ctx).BindPull(listen)
	if err != nil {
		return fmt.Errorf("binding %s: %w", listen, err)
	}
	logger.Info("listening", "endpoint", endpoint)

	// Unblock the pending Recv on shutdown by closing the socket.
	go func() {
		<-ctx.Done()
		pull.Close()
	}()

	encoder := json.NewEncoder(os.Stdout)
	for {
		payload, err := pull.Recv()
		if err != nil {
			if errors.Is(err, fabric.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receiving: %w", err)
		}
		tagged, err := telemetry.DecodeTagged(payload)
		if err != nil {
			logger.Warn("skipping undecodable payload", "error", err)
			continue
		}
		if err := encoder.Encode(line{Machine: tagged.Machine, Reading: tagged.Reading}); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
}
