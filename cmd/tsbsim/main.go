// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rdkcentral/meta-middleware-generic-support-sub009/cmd/tsbsim/app"
	"github.com/rdkcentral/meta-middleware-generic-support-sub009/internal"
	"github.com/rdkcentral/meta-middleware-generic-support-sub009/pkg/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := app.LoadConfig(os.Args)
	if err != nil {
		if strings.Contains(err.Error(), "help requested") {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error loading config: %s\n", err.Error())
		return 1
	}

	if err := logging.InitSlog(cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %s\n", err.Error())
		return 1
	}

	slog.Info("tsbsim starting", "version", internal.GetVersion(), "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sim := app.NewSim(cfg, slog.Default())
	server := app.SetupServer(ctx, cfg, sim)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- http.ListenAndServe(fmt.Sprintf(":%d", cfg.Port), server.Router)
	}()

	select {
	case <-stop:
		slog.Info("shutting down")
	case err := <-srvErr:
		if err != nil && err != http.ErrServerClosed {
			slog.Error(err.Error())
			return 1
		}
	}
	return 0
}
