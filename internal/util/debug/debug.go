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

// Package debug provides debug facilities.
package debug

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"slices"
	"text/template"
	"time"

	"github.com/arl/statsviz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	"github.com/FerretDB/rwrouter/internal/util/lazyerrors"
	"github.com/FerretDB/rwrouter/internal/util/must"
)

// HealthFunc returns the current state to show and an error if the process is not healthy.
type HealthFunc func(ctx context.Context) (any, error)

// Handler represents debug handler.
type Handler struct {
	lis      net.Listener
	s        *http.Server
	l        *zap.Logger
	handlers map[string]string
}

// ListenOpts represents the options of Listen function.
//
//nolint:vet // for readability
type ListenOpts struct {
	TCPAddr string
	L       *zap.Logger
	R       prometheus.Registerer
	G       prometheus.Gatherer
	Health  HealthFunc
}

// Listen creates a new debug handler and starts listener on the given TCP address.
func Listen(opts *ListenOpts) (*Handler, error) {
	must.NotBeZero(opts.L)
	must.NotBeZero(opts.R)
	must.NotBeZero(opts.G)
	must.NotBeZero(opts.Health)

	stdL := must.NotFail(zap.NewStdLogAt(opts.L, zap.WarnLevel))
	g := newGatherer(opts.G, opts.L)
	mux := http.NewServeMux()

	metricHandler := promhttp.InstrumentMetricHandler(
		opts.R, promhttp.HandlerFor(g, promhttp.HandlerOpts{
			ErrorLog:          stdL,
			ErrorHandling:     promhttp.ContinueOnError,
			Registry:          opts.R,
			EnableOpenMetrics: true,
		}),
	)
	mux.Handle("/debug/metrics", metricHandler)

	plots, err := newPlotter(g).plots()
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	svOpts := []statsviz.Option{statsviz.Root("/debug/graphs")}
	for _, p := range plots {
		svOpts = append(svOpts, statsviz.TimeseriesPlot(p))
	}

	if err = statsviz.Register(mux, svOpts...); err != nil {
		return nil, lazyerrors.Error(err)
	}

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())

	mux.HandleFunc("/health", healthHandler(opts.Health, opts.L))
	mux.HandleFunc("/debug/archive", archiveHandler(opts.L))
	mux.HandleFunc("/debug/log", logHandler(opts.L))

	handlers := map[string]string{
		// custom handlers registered above
		"/health":        "Replication status and primary reachability (JSON)",
		"/debug/archive": "Zip archive with debugging information",
		"/debug/graphs":  "Visualize metrics",
		"/debug/log":     "Recent log entries (JSON); use ?level=debug for more",
		"/debug/metrics": "Metrics in Prometheus format",

		// stdlib handlers
		"/debug/vars":  "Expvar package metrics",
		"/debug/pprof": "Runtime profiling data for pprof",
	}

	var page bytes.Buffer
	must.NoError(template.Must(template.New("debug").Parse(`
	<html>
	<body>
	<ul>
	{{range $path, $desc := .}}
		<li><a href="{{$path}}">{{$path}}</a>: {{$desc}}</li>
	{{end}}
	</ul>
	</body>
	</html>
	`)).Execute(&page, handlers))

	mux.HandleFunc("/debug", func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write(page.Bytes())
	})

	mux.HandleFunc("/", func(rw http.ResponseWriter, req *http.Request) {
		http.Redirect(rw, req, "/debug", http.StatusSeeOther)
	})

	lis, err := net.Listen("tcp", opts.TCPAddr)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	return &Handler{
		lis: lis,
		s: &http.Server{
			Handler:           mux,
			ErrorLog:          stdL,
			ReadHeaderTimeout: 10 * time.Second,
		},
		l:        opts.L,
		handlers: handlers,
	}, nil
}

// Addr returns the listener address.
func (h *Handler) Addr() net.Addr {
	return h.lis.Addr()
}

// Serve runs debug handler until ctx is canceled.
//
// It exits when handler is stopped and listener closed.
func (h *Handler) Serve(ctx context.Context) {
	h.s.BaseContext = func(net.Listener) context.Context {
		return ctx
	}

	root := fmt.Sprintf("http://%s", h.lis.Addr())

	h.l.Sugar().Infof("Starting debug server on %s ...", root)

	paths := maps.Keys(h.handlers)
	slices.Sort(paths)

	for _, path := range paths {
		h.l.Sugar().Infof("%s%s - %s", root, path, h.handlers[path])
	}

	done := make(chan struct{})

	go func() {
		defer close(done)

		if err := h.s.Serve(h.lis); !errors.Is(err, http.ErrServerClosed) {
			h.l.DPanic("Debug server stopped unexpectedly", zap.Error(err))
		}
	}()

	<-ctx.Done()

	// ctx is already canceled, but we want to inherit its values
	stopCtx, stopCancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer stopCancel()

	if err := h.s.Shutdown(stopCtx); err != nil {
		h.l.Error("Debug server shutdown failed", zap.Error(err))
	}

	_ = h.s.Close()
	<-done

	h.l.Info("Debug server stopped.")
}

// healthHandler returns a handler that reports health as JSON.
func healthHandler(f HealthFunc, l *zap.Logger) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()

		status, err := f(ctx)

		res := map[string]any{
			"status": status,
			"ok":     err == nil,
		}

		code := http.StatusOK
		if err != nil {
			l.Warn("Health check failed", zap.Error(err))
			res["error"] = err.Error()
			code = http.StatusServiceUnavailable
		}

		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(code)

		if err = json.NewEncoder(rw).Encode(res); err != nil {
			l.Warn("Failed to write health response", zap.Error(err))
		}
	}
}
