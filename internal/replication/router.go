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
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FerretDB/rwrouter/internal/backends"
	"github.com/FerretDB/rwrouter/internal/backends/decorators/timeout"
	"github.com/FerretDB/rwrouter/internal/config"
	"github.com/FerretDB/rwrouter/internal/util/lazyerrors"
	"github.com/FerretDB/rwrouter/internal/util/must"
	"github.com/FerretDB/rwrouter/internal/util/observability"
)

// Gauge descriptors.
var (
	replicasDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, subsystem, "replicas"),
		"The number of replicas in the current generation.",
		nil, nil,
	)
	healthyReplicasDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, subsystem, "healthy_replicas"),
		"The number of healthy replicas in the current generation.",
		nil, nil,
	)
)

// generation represents replicas opened by a single Initialize call.
//
// It is immutable once published.
type generation struct {
	replicas []*Replica
	selector *Selector
	checker  *HealthChecker
}

// state is published atomically; generation is nil when replication is disabled.
type state struct {
	primary backends.Backend
	gen     *generation
}

// Router routes statements between the primary and replicas.
//
// Query and Run can be called concurrently with each other and with Initialize and Close.
type Router struct {
	l        *zap.Logger
	cfg      *config.Config
	clock    clockwork.Clock
	open     Opener
	metrics  *Metrics
	observer Observer

	lifecycle sync.Mutex
	state     atomic.Pointer[state]
}

// NewRouterOpts represents the options of NewRouter function.
//
//nolint:vet // for readability
type NewRouterOpts struct {
	L *zap.Logger

	// Config is loaded from the environment on Initialize if nil.
	Config *config.Config

	// Clock is a real clock if nil.
	Clock clockwork.Clock

	// Open is OpenBackend if nil.
	Open Opener

	// Observer receives events in addition to built-in logging and metrics.
	Observer Observer
}

// NewRouter creates a new disabled Router.
func NewRouter(opts *NewRouterOpts) *Router {
	must.NotBeZero(opts.L)

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	open := opts.Open
	if open == nil {
		open = OpenBackend
	}

	metrics := NewMetrics()

	observer := MultiObserver{NewLogObserver(opts.L), metrics}
	if opts.Observer != nil {
		observer = append(observer, opts.Observer)
	}

	return &Router{
		l:        opts.L,
		cfg:      opts.Config,
		clock:    clock,
		open:     open,
		metrics:  metrics,
		observer: observer,
	}
}

// Initialize opens replicas and starts the health checker.
//
// Embedded mode uses SQLite replica files, networked mode uses replica servers.
// Replicas that can't be opened are skipped; if none are left, replication stays disabled
// and all statements go to the primary. Errors are logged, not returned.
// If the Router is already enabled, the previous generation is closed first.
func (r *Router) Initialize(ctx context.Context, primary backends.Backend, embedded bool) {
	must.NotBeZero(primary)

	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.closeLocked()
	r.state.Store(&state{primary: primary})

	cfg := r.cfg
	if cfg == nil {
		var err error
		if cfg, err = config.Load(r.l); err != nil {
			r.l.Error("Failed to load replication configuration, using primary only.", zap.Error(err))
			return
		}
	}

	locations := cfg.Locations(embedded)
	if !cfg.Enabled || len(locations) == 0 {
		r.l.Info(
			"Replication is not configured, using primary only.",
			zap.Bool("enabled", cfg.Enabled), zap.Int("locations", len(locations)),
		)
		return
	}

	opened := make([]backends.Backend, len(locations))

	var g errgroup.Group

	for i, loc := range locations {
		g.Go(func() error {
			openCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
			defer cancel()

			b, err := r.open(openCtx, &OpenParams{
				Embedded: embedded,
				Index:    i,
				Location: loc,
				Config:   cfg,
				L:        r.l.Named("replica"),
			})
			if err != nil {
				r.observer.ReplicaSkipped(loc, err)
				return nil
			}

			opened[i] = timeout.NewBackend(b, cfg.QueryTimeout, cfg.HealthCheckTimeout)

			return nil
		})
	}

	_ = g.Wait()

	var replicas []*Replica

	for i, b := range opened {
		if b != nil {
			replicas = append(replicas, newReplica(i, b))
		}
	}

	if len(replicas) == 0 {
		r.l.Warn("No replicas could be opened, using primary only.", zap.Int("configured", len(locations)))
		return
	}

	checker := NewHealthChecker(&NewHealthCheckerParams{
		Replicas: replicas,
		Interval: cfg.HealthCheckInterval,
		Grace:    cfg.ShutdownGrace,
		L:        r.l.Named("health"),
		Clock:    r.clock,
		Observer: r.observer,
	})

	r.state.Store(&state{
		primary: primary,
		gen: &generation{
			replicas: replicas,
			selector: NewSelector(replicas),
			checker:  checker,
		},
	})

	checker.Start()

	r.l.Info(
		"Replication enabled.",
		zap.Bool("embedded", embedded), zap.Int("replicas", len(replicas)), zap.Int("configured", len(locations)),
	)
}

// Query executes a statement that returns rows.
//
// Read-only statements go to the next healthy replica if replication is enabled;
// if that fails, the replica is marked unhealthy and the statement is executed on the primary.
// If ctx is canceled or expired, the replica error is returned as is and the replica stays healthy.
// Primary errors are returned as is.
func (r *Router) Query(ctx context.Context, sql string, args ...any) (*backends.Rows, error) {
	ctx, span := observability.Tracer().Start(ctx, "rwrouter.query")
	defer span.End()

	s := r.state.Load()
	if s == nil {
		return nil, lazyerrors.New("router is not initialized")
	}

	var replica *Replica
	if s.gen != nil && s.gen.selector.HasHealthy() && IsReadOnly(sql) {
		replica = s.gen.selector.Pick()
	}

	if replica != nil {
		r.observer.Routed(replica)
		setTarget(span, replica)

		rows, err := replica.b.Query(ctx, sql, args...)
		if err == nil {
			return rows, nil
		}

		// the caller gave up; that says nothing about the replica
		if ctx.Err() != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		if replica.setHealthy(false) {
			r.observer.HealthChanged(replica, false, err)
		}

		r.observer.Failover(replica, err)
		span.AddEvent("failover", oteltrace.WithAttributes(attribute.String("error", err.Error())))
	}

	r.observer.Routed(nil)
	setTarget(span, nil)

	rows, err := s.primary.Query(ctx, sql, args...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}

	return rows, err
}

// Run executes a statement that does not return rows on the primary.
func (r *Router) Run(ctx context.Context, sql string, args ...any) (*backends.Result, error) {
	ctx, span := observability.Tracer().Start(ctx, "rwrouter.run")
	defer span.End()

	s := r.state.Load()
	if s == nil {
		return nil, lazyerrors.New("router is not initialized")
	}

	r.observer.Routed(nil)
	setTarget(span, nil)

	res, err := s.primary.Exec(ctx, sql, args...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}

	return res, err
}

// setTarget sets span attributes for the chosen target; nil replica means the primary.
func setTarget(span oteltrace.Span, replica *Replica) {
	if replica == nil {
		span.SetAttributes(attribute.String("rwrouter.target", "primary"))
		return
	}

	span.SetAttributes(
		attribute.String("rwrouter.target", "replica"),
		attribute.Int("rwrouter.replica.id", replica.ID),
		attribute.String("rwrouter.replica.location", replica.Location()),
	)
}

// IsEnabled returns true if at least one replica is open.
func (r *Router) IsEnabled() bool {
	s := r.state.Load()
	return s != nil && s.gen != nil
}

// Status returns a snapshot of the replication state.
func (r *Router) Status() *Status {
	res := &Status{
		Replicas: []ReplicaStatus{},
	}

	s := r.state.Load()
	if s == nil || s.gen == nil {
		return res
	}

	res.Enabled = true
	res.ReplicaCount = len(s.gen.replicas)

	for _, replica := range s.gen.replicas {
		rs := replica.status()
		if rs.Healthy {
			res.HealthyReplicaCount++
		}

		res.Replicas = append(res.Replicas, rs)
	}

	return res
}

// Primary returns the primary backend, or nil if the Router was not initialized.
func (r *Router) Primary() backends.Backend {
	s := r.state.Load()
	if s == nil {
		return nil
	}

	return s.primary
}

// Close stops the health checker and closes all replicas.
//
// The primary is not closed; statements keep going to it.
// It is safe to call Close on a disabled Router and to call it multiple times.
func (r *Router) Close() {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.closeLocked()
}

// closeLocked closes the current generation, if any.
//
// Lifecycle mutex must be held.
func (r *Router) closeLocked() {
	s := r.state.Load()
	if s == nil || s.gen == nil {
		return
	}

	r.state.Store(&state{primary: s.primary})

	s.gen.checker.Stop()

	var errs []error

	for _, replica := range s.gen.replicas {
		if err := replica.close(); err != nil {
			errs = append(errs, lazyerrors.Errorf("replica %d (%s): %w", replica.ID, replica.Location(), err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		r.l.Error("Failed to close some replicas.", zap.Error(err))
	}

	r.l.Info("Replication disabled.", zap.Int("replicas", len(s.gen.replicas)))
}

// Describe implements prometheus.Collector.
//
// Nothing is described, so the Router is an unchecked collector:
// the set of replica metrics changes between generations.
func (r *Router) Describe(ch chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector.
func (r *Router) Collect(ch chan<- prometheus.Metric) {
	r.metrics.Collect(ch)

	st := r.Status()
	ch <- prometheus.MustNewConstMetric(replicasDesc, prometheus.GaugeValue, float64(st.ReplicaCount))
	ch <- prometheus.MustNewConstMetric(healthyReplicasDesc, prometheus.GaugeValue, float64(st.HealthyReplicaCount))

	if s := r.state.Load(); s != nil && s.gen != nil {
		for _, replica := range s.gen.replicas {
			replica.b.Collect(ch)
		}
	}
}

// check interfaces
var (
	_ prometheus.Collector = (*Router)(nil)
)
