// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func metricsHandler() http.Handler {
	r := mux.NewRouter()
	r.Path("/metrics").Handler(promhttp.HandlerFor(
		prometheus.DefaultGatherer,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		}))
	return handlers.RecoveryHandler()(handlers.CombinedLoggingHandler(os.Stderr, r))
}

// serveMetrics exposes the prometheus registry on addr until the process exits.
func serveMetrics(addr string) {
	logger.Infof("serving metrics on %s/metrics", addr)
	if err := http.ListenAndServe(addr, metricsHandler()); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Error("metrics server stopped")
	}
}
