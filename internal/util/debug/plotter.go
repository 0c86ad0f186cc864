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

package debug

import (
	"github.com/arl/statsviz"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/FerretDB/rwrouter/internal/util/lazyerrors"
)

// plotter builds statsviz plots for router metrics.
type plotter struct {
	g prometheus.Gatherer
}

// newPlotter returns a new plotter that reads metrics from the given gatherer.
func newPlotter(g prometheus.Gatherer) *plotter {
	return &plotter{
		g: g,
	}
}

// series describes a single plotted metric.
type series struct {
	title      string
	name       string
	labelName  string
	labelValue string
}

// plots returns all plots.
func (p *plotter) plots() ([]statsviz.TimeSeriesPlot, error) {
	configs := []struct {
		name     string
		title    string
		info     string
		yTitle   string
		plotType statsviz.TimeSeriesType
		series   []series
	}{
		{
			name:     "rwrouter_replicas",
			title:    "Replicas",
			info:     "Open and healthy replicas of the current generation.",
			yTitle:   "replicas",
			plotType: statsviz.Scatter,
			series: []series{
				{title: "open", name: "rwrouter_router_replicas"},
				{title: "healthy", name: "rwrouter_router_healthy_replicas"},
			},
		},
		{
			name:     "rwrouter_queries",
			title:    "Routed statements",
			info:     "The total number of statements sent to replicas and to the primary, and failovers.",
			yTitle:   "statements",
			plotType: statsviz.Scatter,
			series: []series{
				{title: "replica", name: "rwrouter_router_queries_total", labelName: "target", labelValue: "replica"},
				{title: "primary", name: "rwrouter_router_queries_total", labelName: "target", labelValue: "primary"},
				{title: "failovers", name: "rwrouter_router_failovers_total"},
			},
		},
	}

	res := make([]statsviz.TimeSeriesPlot, 0, len(configs))

	for _, c := range configs {
		ts := make([]statsviz.TimeSeries, len(c.series))
		for i, s := range c.series {
			ts[i] = statsviz.TimeSeries{
				Name:     s.title,
				Unitfmt:  "%{y:.4s}",
				GetValue: p.getter(s),
			}
		}

		plot, err := statsviz.TimeSeriesPlotConfig{
			Name:       c.name,
			Title:      c.title,
			Type:       c.plotType,
			InfoText:   c.info,
			YAxisTitle: c.yTitle,
			Series:     ts,
		}.Build()
		if err != nil {
			return nil, lazyerrors.Error(err)
		}

		res = append(res, plot)
	}

	return res, nil
}

// getter returns a function that returns the current value of the given series, or 0 if it is absent.
func (p *plotter) getter(s series) func() float64 {
	return func() float64 {
		mfs, _ := p.g.Gather()

		for _, mf := range mfs {
			if mf.GetName() != s.name {
				continue
			}

			for _, m := range mf.GetMetric() {
				if s.labelName != "" && !hasLabel(m, s.labelName, s.labelValue) {
					continue
				}

				return value(mf.GetType(), m)
			}
		}

		return 0
	}
}

// hasLabel returns true if the metric has the given label pair.
func hasLabel(m *dto.Metric, name, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}

	return false
}

// value returns the value of the metric of the given type.
func value(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_UNTYPED:
		return m.GetUntyped().GetValue()
	case dto.MetricType_SUMMARY:
		return m.GetSummary().GetSampleSum()
	case dto.MetricType_HISTOGRAM:
		return float64(m.GetHistogram().GetSampleCount())
	default:
		return 0
	}
}
