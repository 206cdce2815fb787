// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rdkcentral/meta-middleware-generic-support-sub009/internal"
	"github.com/rdkcentral/meta-middleware-generic-support-sub009/pkg/logging"
)

// Server exposes a running Sim's state over HTTP, the way livesim2's Server
// exposes its asset manager: a thin chi mux in front of a handful of
// read-only diagnostic endpoints.
type Server struct {
	Router *chi.Mux
	Cfg    *Config
	sim    *Sim
}

// SetupServer builds the router and starts sim running in the background,
// returning once both are ready to serve.
func SetupServer(ctx context.Context, cfg *Config, sim *Sim) *Server {
	logger := slog.Default()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.SlogMiddleWare(logger))
	r.Use(middleware.Recoverer)

	r.Mount("/metrics", promhttp.HandlerFor(sim.Registry, promhttp.HandlerOpts{}))
	for _, route := range logging.LogRoutes {
		r.MethodFunc(route.Method, route.Path, route.Handler)
	}

	server := &Server{Router: r, Cfg: cfg, sim: sim}
	r.Get("/status", server.handleStatus)
	r.Get("/version", server.handleVersion)

	go sim.Run(ctx)

	return server
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.sim.Snapshot())
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(internal.GetVersion() + "\n"))
}
