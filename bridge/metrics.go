// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package bridge

import "github.com/prometheus/client_golang/prometheus"

var (
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webstomp",
			Name:      "frames_received_total",
			Help:      "STOMP frames decoded by the receive loop, by command",
		},
		[]string{"command"})

	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webstomp",
			Name:      "frames_sent_total",
			Help:      "STOMP frames written to the transport, by command",
		},
		[]string{"command"})

	framesMalformed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "webstomp",
			Name:      "frames_malformed_total",
			Help:      "Payloads the receive loop could not decode",
		})

	listenersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "webstomp",
			Name:      "listeners_active",
			Help:      "Listeners currently absorbed by running receive loops",
		})
)

func init() {
	prometheus.MustRegister(framesReceived, framesSent, framesMalformed, listenersActive)
}
