// Copyright 2021 FerretDB Inc.
//
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

package replication

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Parts of Prometheus metric names.
const (
	namespace = "rwrouter"
	subsystem = "router"
)

// Metrics counts routing events.
type Metrics struct {
	queries       *prometheus.CounterVec
	failovers     prometheus.Counter
	healthChanges *prometheus.CounterVec
	skipped       prometheus.Counter
}

// NewMetrics creates a new Metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "queries_total",
				Help:      "The total number of routed statements.",
			},
			[]string{"target"},
		),
		failovers: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "failovers_total",
				Help:      "The total number of replica queries retried on the primary.",
			},
		),
		healthChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "health_changes_total",
				Help:      "The total number of replica health changes.",
			},
			[]string{"healthy"},
		),
		skipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "skipped_replicas_total",
				Help:      "The total number of configured replicas that could not be opened.",
			},
		),
	}
}

// Routed implements Observer.
func (m *Metrics) Routed(replica *Replica) {
	target := "primary"
	if replica != nil {
		target = "replica"
	}

	m.queries.WithLabelValues(target).Inc()
}

// Failover implements Observer.
func (m *Metrics) Failover(*Replica, error) {
	m.failovers.Inc()
}

// HealthChanged implements Observer.
func (m *Metrics) HealthChanged(_ *Replica, healthy bool, _ error) {
	if healthy {
		m.healthChanges.WithLabelValues("true").Inc()
		return
	}

	m.healthChanges.WithLabelValues("false").Inc()
}

// ReplicaSkipped implements Observer.
func (m *Metrics) ReplicaSkipped(string, error) {
	m.skipped.Inc()
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.queries.Describe(ch)
	m.failovers.Describe(ch)
	m.healthChanges.Describe(ch)
	m.skipped.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.queries.Collect(ch)
	m.failovers.Collect(ch)
	m.healthChanges.Collect(ch)
	m.skipped.Collect(ch)
}

// check interfaces
var (
	_ Observer             = (*Metrics)(nil)
	_ prometheus.Collector = (*Metrics)(nil)
)
