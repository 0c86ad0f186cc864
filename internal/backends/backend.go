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

package backends

import (
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/FerretDB/rwrouter/internal/util/observability"
	"github.com/FerretDB/rwrouter/internal/util/resource"
)

// ProbeQuery is a trivial side-effect-free statement supported by all backends.
const ProbeQuery = "SELECT 1"

// Backend is a generic interface for all backends.
//
// Backend methods can be called concurrently.
//
// See backendContract and its methods for additional details.
type Backend interface {
	// Query executes a statement that returns rows.
	Query(ctx context.Context, sql string, args ...any) (*Rows, error)

	// Exec executes a statement that does not return rows.
	Exec(ctx context.Context, sql string, args ...any) (*Result, error)

	// Ping executes ProbeQuery.
	Ping(ctx context.Context) error

	// Close closes all connections and frees all resources.
	Close() error

	// Kind returns the backend kind.
	Kind() Kind

	// Location returns file path for embedded backends and host:port for networked ones.
	Location() string

	prometheus.Collector
}

// backendContract implements Backend interface.
type backendContract struct {
	b      Backend
	closed atomic.Bool
	token  *resource.Token
}

// BackendContract wraps Backend and enforces its contract.
//
// All backend implementations should use that function when they create new Backend instances.
//
// See backendContract and its methods for additional details.
func BackendContract(b Backend) Backend {
	bc := &backendContract{
		b:     b,
		token: resource.NewToken(),
	}
	resource.Track(bc, bc.token)

	return bc
}

// Query executes a statement that returns rows.
//
// It returns *Error with ErrorCodeBackendClosed code after Close.
func (bc *backendContract) Query(ctx context.Context, sql string, args ...any) (*Rows, error) {
	defer observability.FuncCall(ctx)()

	if bc.closed.Load() {
		return nil, NewError(ErrorCodeBackendClosed, nil)
	}

	res, err := bc.b.Query(ctx, sql, args...)
	if err == nil && res == nil {
		panic("both result and error are nil")
	}

	return res, err
}

// Exec executes a statement that does not return rows.
//
// It returns *Error with ErrorCodeBackendClosed code after Close.
func (bc *backendContract) Exec(ctx context.Context, sql string, args ...any) (*Result, error) {
	defer observability.FuncCall(ctx)()

	if bc.closed.Load() {
		return nil, NewError(ErrorCodeBackendClosed, nil)
	}

	res, err := bc.b.Exec(ctx, sql, args...)
	if err == nil && res == nil {
		panic("both result and error are nil")
	}

	return res, err
}

// Ping executes ProbeQuery.
//
// It returns *Error with ErrorCodeBackendClosed code after Close.
func (bc *backendContract) Ping(ctx context.Context) error {
	defer observability.FuncCall(ctx)()

	if bc.closed.Load() {
		return NewError(ErrorCodeBackendClosed, nil)
	}

	return bc.b.Ping(ctx)
}

// Close closes the backend.
//
// Only the first call closes the underlying backend; subsequent calls are no-op.
func (bc *backendContract) Close() error {
	if bc.closed.Swap(true) {
		return nil
	}

	resource.Untrack(bc, bc.token)

	return bc.b.Close()
}

// Kind implements Backend.
func (bc *backendContract) Kind() Kind {
	return bc.b.Kind()
}

// Location implements Backend.
func (bc *backendContract) Location() string {
	return bc.b.Location()
}

// Describe implements prometheus.Collector.
func (bc *backendContract) Describe(ch chan<- *prometheus.Desc) {
	bc.b.Describe(ch)
}

// Collect implements prometheus.Collector.
func (bc *backendContract) Collect(ch chan<- prometheus.Metric) {
	if bc.closed.Load() {
		return
	}

	bc.b.Collect(ch)
}

// check interfaces
var (
	_ Backend = (*backendContract)(nil)
)
