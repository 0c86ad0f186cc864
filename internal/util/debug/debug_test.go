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
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FerretDB/rwrouter/internal/util/testutil"
)

func TestHandler(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(testutil.Ctx(t))

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rwrouter_router_queries_total",
		Help: "Test counter.",
	}, []string{"target"})
	reg.MustRegister(counter)
	counter.WithLabelValues("replica").Add(3)

	var healthy atomic.Bool
	healthy.Store(true)

	h, err := Listen(&ListenOpts{
		TCPAddr: "127.0.0.1:0",
		L:       testutil.Logger(t),
		R:       reg,
		G:       reg,
		Health: func(context.Context) (any, error) {
			if healthy.Load() {
				return map[string]any{"enabled": true}, nil
			}

			return map[string]any{"enabled": false}, errors.New("primary is unreachable")
		},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		h.Serve(ctx)
	}()

	root := "http://" + h.Addr().String()

	get := func(t *testing.T, path string) (int, []byte) {
		t.Helper()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, root+path, nil)
		require.NoError(t, err)

		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)

		defer res.Body.Close()

		b, err := io.ReadAll(res.Body)
		require.NoError(t, err)

		return res.StatusCode, b
	}

	t.Run("Health", func(t *testing.T) {
		code, b := get(t, "/health")
		assert.Equal(t, http.StatusOK, code)

		var res map[string]any
		require.NoError(t, json.Unmarshal(b, &res))
		assert.Equal(t, map[string]any{"ok": true, "status": map[string]any{"enabled": true}}, res)

		healthy.Store(false)
		defer healthy.Store(true)

		code, b = get(t, "/health")
		assert.Equal(t, http.StatusServiceUnavailable, code)

		require.NoError(t, json.Unmarshal(b, &res))
		assert.Equal(t, false, res["ok"])
		assert.Equal(t, "primary is unreachable", res["error"])
	})

	t.Run("Metrics", func(t *testing.T) {
		code, b := get(t, "/debug/metrics")
		assert.Equal(t, http.StatusOK, code)
		assert.Contains(t, string(b), `rwrouter_router_queries_total{target="replica"} 3`)
	})

	t.Run("Index", func(t *testing.T) {
		code, b := get(t, "/debug")
		assert.Equal(t, http.StatusOK, code)

		for _, path := range []string{"/health", "/debug/graphs", "/debug/metrics", "/debug/pprof", "/debug/vars"} {
			assert.Contains(t, string(b), path)
		}

		code, _ = get(t, "/debug/vars")
		assert.Equal(t, http.StatusOK, code)

		code, _ = get(t, "/debug/pprof/")
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("Log", func(t *testing.T) {
		code, b := get(t, "/debug/log?level=debug")
		assert.Equal(t, http.StatusOK, code)

		var res []logEntry
		require.NoError(t, json.Unmarshal(b, &res))

		code, _ = get(t, "/debug/log?level=nope")
		assert.Equal(t, http.StatusBadRequest, code)
	})

	cancel()
	wg.Wait()
}

func TestPlotter(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()

	queries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rwrouter_router_queries_total",
		Help: "Test counter.",
	}, []string{"target"})
	replicas := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rwrouter_router_replicas",
		Help: "Test gauge.",
	})
	reg.MustRegister(queries, replicas)

	queries.WithLabelValues("replica").Add(5)
	queries.WithLabelValues("primary").Add(2)
	replicas.Set(3)

	p := newPlotter(reg)

	plots, err := p.plots()
	require.NoError(t, err)
	assert.Len(t, plots, 2)

	assert.Equal(t, float64(5), p.getter(series{name: "rwrouter_router_queries_total", labelName: "target", labelValue: "replica"})())
	assert.Equal(t, float64(2), p.getter(series{name: "rwrouter_router_queries_total", labelName: "target", labelValue: "primary"})())
	assert.Equal(t, float64(3), p.getter(series{name: "rwrouter_router_replicas"})())
	assert.Equal(t, float64(0), p.getter(series{name: "rwrouter_router_healthy_replicas"})())
}

func TestArchiveHelpers(t *testing.T) {
	t.Parallel()

	l := testutil.Logger(t)

	r := filterExpvar(io.NopCloser(strings.NewReader(`{"cmdline": ["rwrouter", "--primary-url=secret"], "memstats": {}}`)), l)
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret")
	assert.Contains(t, string(b), "memstats")

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	require.NoError(t, addToZip(w, "test.txt", io.NopCloser(strings.NewReader("hello"))))
	require.NoError(t, w.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "test.txt", zr.File[0].Name)
}
