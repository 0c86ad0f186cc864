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
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/FerretDB/rwrouter/internal/util/ctxutil"
	"github.com/FerretDB/rwrouter/internal/util/lazyerrors"
)

// HealthChecker periodically probes replicas and updates their health flags.
//
// Probes of different replicas run concurrently;
// a replica is not probed again while the previous probe is still running.
type HealthChecker struct {
	l        *zap.Logger
	clock    clockwork.Clock
	observer Observer
	replicas []*Replica
	interval time.Duration
	grace    time.Duration

	cancel   context.CancelFunc
	loopDone chan struct{}
	probes   sync.WaitGroup
}

// NewHealthCheckerParams represents the parameters of NewHealthChecker function.
//
//nolint:vet // for readability
type NewHealthCheckerParams struct {
	Replicas []*Replica
	Interval time.Duration
	Grace    time.Duration

	L        *zap.Logger
	Clock    clockwork.Clock
	Observer Observer
}

// NewHealthChecker creates a new stopped HealthChecker.
func NewHealthChecker(params *NewHealthCheckerParams) *HealthChecker {
	return &HealthChecker{
		l:        params.L,
		clock:    params.Clock,
		observer: params.Observer,
		replicas: params.Replicas,
		interval: params.Interval,
		grace:    params.Grace,
	}
}

// Start starts the background loop.
//
// It should be called once.
func (hc *HealthChecker) Start() {
	ctx, cancel := context.WithCancel(context.Background())

	hc.cancel = cancel
	hc.loopDone = make(chan struct{})

	go hc.run(ctx)
}

// Stop stops the background loop immediately
// and waits for in-flight probes at most the grace period.
func (hc *HealthChecker) Stop() {
	if hc.cancel == nil {
		return
	}

	hc.cancel()
	<-hc.loopDone

	done := make(chan struct{})

	go func() {
		hc.probes.Wait()
		close(done)
	}()

	if !ctxutil.WaitClosed(done, hc.grace) {
		hc.l.Warn("Health probes are still running after the grace period.", zap.Duration("grace", hc.grace))
	}
}

// run ticks until ctx is canceled.
func (hc *HealthChecker) run(ctx context.Context) {
	defer close(hc.loopDone)

	hc.l.Debug("Health checker started.", zap.Duration("interval", hc.interval), zap.Int("replicas", len(hc.replicas)))

	t := hc.clock.NewTicker(hc.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			hc.l.Debug("Health checker stopped.")
			return

		case <-t.Chan():
			hc.round(ctx)
		}
	}
}

// round starts probes for all replicas that are not being probed already.
func (hc *HealthChecker) round(ctx context.Context) {
	for _, r := range hc.replicas {
		if !r.probing.CompareAndSwap(false, true) {
			hc.l.Debug("Previous probe is still running.", zap.Int("replica", r.ID))
			continue
		}

		hc.probes.Add(1)

		go func() {
			defer hc.probes.Done()
			defer r.probing.Store(false)

			hc.probe(ctx, r)
		}()
	}
}

// probe pings a single replica and updates its health flag.
func (hc *HealthChecker) probe(ctx context.Context, r *Replica) {
	var err error

	defer func() {
		if p := recover(); p != nil {
			err = lazyerrors.Errorf("probe panicked: %v", p)
			hc.l.Error("Health probe panicked.", zap.Int("replica", r.ID), zap.String("panic", fmt.Sprint(p)))
		}

		// results of probes interrupted by Stop are meaningless
		if ctx.Err() != nil {
			return
		}

		healthy := err == nil
		if r.setHealthy(healthy) {
			hc.observer.HealthChanged(r, healthy, err)
		}
	}()

	err = r.b.Ping(ctx)
}
