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

package postgresql

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Parts of Prometheus metric names.
const (
	namespace = "rwrouter"
	subsystem = "pgxpool"
)

// metricsCollector exposes [pgxpool.Stat] as Prometheus metrics.
type metricsCollector struct {
	stat   func() *pgxpool.Stat
	labels prometheus.Labels
}

// newMetricsCollector creates a new metricsCollector for the pool with the given address.
func newMetricsCollector(addr string, stat func() *pgxpool.Stat) *metricsCollector {
	return &metricsCollector{
		stat: stat,
		labels: prometheus.Labels{
			"addr": addr,
		},
	}
}

// Describe implements [prometheus.Collector].
func (c *metricsCollector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

// Collect implements [prometheus.Collector].
func (c *metricsCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.stat()

	ch <- prometheus.MustNewConstMetric(
		prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "total"),
			"The total number of resources currently in the pool.",
			nil, c.labels,
		),
		prometheus.GaugeValue,
		float64(stat.TotalConns()),
	)

	ch <- prometheus.MustNewConstMetric(
		prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "acquired"),
			"The number of currently acquired connections in the pool.",
			nil, c.labels,
		),
		prometheus.GaugeValue,
		float64(stat.AcquiredConns()),
	)

	ch <- prometheus.MustNewConstMetric(
		prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "acquires_total"),
			"The cumulative count of successful acquires from the pool.",
			nil, c.labels,
		),
		prometheus.CounterValue,
		float64(stat.AcquireCount()),
	)

	ch <- prometheus.MustNewConstMetric(
		prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "acquire_duration_seconds_total"),
			"The total duration of all successful acquires from the pool.",
			nil, c.labels,
		),
		prometheus.CounterValue,
		stat.AcquireDuration().Seconds(),
	)
}

// check interfaces
var (
	_ prometheus.Collector = (*metricsCollector)(nil)
)
