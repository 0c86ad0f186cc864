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

// Package backendstest provides a fake backend for tests.
package backendstest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/FerretDB/rwrouter/internal/backends"
)

// Fake is an in-memory backends.Backend for tests.
//
// It records executed statements and returns configured results or errors.
// Zero value is not usable; use New.
type Fake struct {
	kind     backends.Kind
	location string

	rw       sync.RWMutex
	rows     *backends.Rows
	result   *backends.Result
	queryErr error
	execErr  error
	pingErr  error
	block    chan struct{}

	queries atomic.Int64
	execs   atomic.Int64
	pings   atomic.Int64
	closes  atomic.Int64
}

// New creates a new Fake that returns the given rows for every query.
func New(kind backends.Kind, location string, rows *backends.Rows) *Fake {
	return &Fake{
		kind:     kind,
		location: location,
		rows:     rows,
		result:   &backends.Result{},
	}
}

// SetQueryErr sets the error returned by Query.
func (f *Fake) SetQueryErr(err error) {
	f.rw.Lock()
	defer f.rw.Unlock()

	f.queryErr = err
}

// SetPingErr sets the error returned by Ping.
func (f *Fake) SetPingErr(err error) {
	f.rw.Lock()
	defer f.rw.Unlock()

	f.pingErr = err
}

// SetExecResult sets the result and error returned by Exec.
func (f *Fake) SetExecResult(res *backends.Result, err error) {
	f.rw.Lock()
	defer f.rw.Unlock()

	f.result = res
	f.execErr = err
}

// BlockPings makes Ping block until ctx is canceled or Unblock is called.
func (f *Fake) BlockPings() {
	f.rw.Lock()
	defer f.rw.Unlock()

	f.block = make(chan struct{})
}

// Unblock releases blocked pings.
func (f *Fake) Unblock() {
	f.rw.Lock()
	defer f.rw.Unlock()

	if f.block != nil {
		close(f.block)
		f.block = nil
	}
}

// Queries returns the number of Query calls.
func (f *Fake) Queries() int { return int(f.queries.Load()) }

// Execs returns the number of Exec calls.
func (f *Fake) Execs() int { return int(f.execs.Load()) }

// Pings returns the number of Ping calls.
func (f *Fake) Pings() int { return int(f.pings.Load()) }

// Closes returns the number of Close calls.
func (f *Fake) Closes() int { return int(f.closes.Load()) }

// Query implements backends.Backend.
func (f *Fake) Query(ctx context.Context, sql string, args ...any) (*backends.Rows, error) {
	f.queries.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.rw.RLock()
	defer f.rw.RUnlock()

	if f.queryErr != nil {
		return nil, f.queryErr
	}

	return f.rows, nil
}

// Exec implements backends.Backend.
func (f *Fake) Exec(ctx context.Context, sql string, args ...any) (*backends.Result, error) {
	f.execs.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.rw.RLock()
	defer f.rw.RUnlock()

	if f.execErr != nil {
		return nil, f.execErr
	}

	return f.result, nil
}

// Ping implements backends.Backend.
func (f *Fake) Ping(ctx context.Context) error {
	f.pings.Add(1)

	f.rw.RLock()
	block, err := f.block, f.pingErr
	f.rw.RUnlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return err
}

// Close implements backends.Backend.
func (f *Fake) Close() error {
	f.closes.Add(1)
	return nil
}

// Kind implements backends.Backend.
func (f *Fake) Kind() backends.Kind {
	return f.kind
}

// Location implements backends.Backend.
func (f *Fake) Location() string {
	return f.location
}

// Describe implements prometheus.Collector.
func (f *Fake) Describe(ch chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector.
func (f *Fake) Collect(ch chan<- prometheus.Metric) {}

// check interfaces
var (
	_ backends.Backend = (*Fake)(nil)
)
