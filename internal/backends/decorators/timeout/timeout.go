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

// Package timeout provides a decorator that bounds every backend operation with a timeout.
//
// Drivers without their own bounded acquire or statement timeout must be wrapped with it,
// so that a wedged backend fails the operation instead of stalling the caller.
package timeout

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/FerretDB/rwrouter/internal/backends"
)

// backend implements backends.Backend interface by delegating all methods to the wrapped backend
// with a bounded context.
type backend struct {
	b     backends.Backend
	query time.Duration
	ping  time.Duration
}

// NewBackend creates a new backend that wraps the given backend.
//
// Query and Exec are bounded by query timeout, Ping by ping timeout.
// Non-positive timeouts disable the corresponding bound.
func NewBackend(b backends.Backend, query, ping time.Duration) backends.Backend {
	return &backend{
		b:     b,
		query: query,
		ping:  ping,
	}
}

// bound returns a context bounded by d, if d is positive.
func bound(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, d)
}

// Query implements backends.Backend interface.
func (b *backend) Query(ctx context.Context, sql string, args ...any) (*backends.Rows, error) {
	ctx, cancel := bound(ctx, b.query)
	defer cancel()

	return b.b.Query(ctx, sql, args...)
}

// Exec implements backends.Backend interface.
func (b *backend) Exec(ctx context.Context, sql string, args ...any) (*backends.Result, error) {
	ctx, cancel := bound(ctx, b.query)
	defer cancel()

	return b.b.Exec(ctx, sql, args...)
}

// Ping implements backends.Backend interface.
func (b *backend) Ping(ctx context.Context) error {
	ctx, cancel := bound(ctx, b.ping)
	defer cancel()

	return b.b.Ping(ctx)
}

// Close implements backends.Backend interface.
func (b *backend) Close() error {
	return b.b.Close()
}

// Kind implements backends.Backend interface.
func (b *backend) Kind() backends.Kind {
	return b.b.Kind()
}

// Location implements backends.Backend interface.
func (b *backend) Location() string {
	return b.b.Location()
}

// Describe implements prometheus.Collector.
func (b *backend) Describe(ch chan<- *prometheus.Desc) {
	b.b.Describe(ch)
}

// Collect implements prometheus.Collector.
func (b *backend) Collect(ch chan<- prometheus.Metric) {
	b.b.Collect(ch)
}

// check interfaces
var (
	_ backends.Backend = (*backend)(nil)
)
