// Copyright 2025 The Docpipeline Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package proxy

import "github.com/prometheus/client_golang/prometheus"

var (
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_commands_total",
			Help: "Total command frames routed by the proxy, per command name.",
		},
		[]string{"command"},
	)
	commandFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_command_failures_total",
			Help: "Total command failures routed by the proxy, per error code.",
		},
		[]string{"code"},
	)
	commandLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "proxy_command_duration_seconds",
			Help:    "Command round-trip latency as observed by the proxy.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "proxy_queue_depth",
			Help: "Number of command frames currently awaiting a lock or response.",
		},
	)
	activeLocks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "proxy_active_document_locks",
			Help: "Number of document locks currently held.",
		},
	)
)

func init() {
	prometheus.MustRegister(commandsTotal, commandFailuresTotal, commandLatency, queueDepth, activeLocks)
}
