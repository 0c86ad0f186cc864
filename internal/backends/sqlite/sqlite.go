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

// Package sqlite provides the embedded-file backend.
//
// # Design principles
//
//  1. One Backend is one SQLite database file.
//  2. Read-only backends are opened with SQLite's read-only open flag (`mode=ro`),
//     so the file descriptor itself is read-only and a misrouted write fails fast.
//     `query_only` pragma is set too.
//  3. The driver is modernc.org/sqlite; it has no bounded acquire timeout,
//     so callers wrap backends with the timeout decorator.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // register database/sql driver

	"github.com/FerretDB/rwrouter/internal/backends"
	"github.com/FerretDB/rwrouter/internal/util/fsql"
	"github.com/FerretDB/rwrouter/internal/util/lazyerrors"
)

// backend implements backends.Backend interface.
type backend struct {
	db   *fsql.DB
	path string
}

// NewBackendParams represents the parameters of NewBackend function.
//
//nolint:vet // for readability
type NewBackendParams struct {
	Path     string
	ReadOnly bool
	L        *zap.Logger
}

// NewBackend creates a new backend for the SQLite database file.
//
// Read-only backends require the file to exist;
// *backends.Error with ErrorCodeFileDoesNotExist code is returned otherwise.
// Read-write backends create the file if needed.
func NewBackend(ctx context.Context, params *NewBackendParams) (backends.Backend, error) {
	if params.Path == "" {
		return nil, backends.NewError(backends.ErrorCodeInvalidLocation, errors.New("empty SQLite path"))
	}

	if params.ReadOnly {
		if _, err := os.Stat(params.Path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, backends.NewError(backends.ErrorCodeFileDoesNotExist, err)
			}

			return nil, lazyerrors.Error(err)
		}
	}

	uri := databaseURI(params.Path, params.ReadOnly)

	sqlDB, err := sql.Open("sqlite", uri)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	sqlDB.SetConnMaxIdleTime(0)
	sqlDB.SetConnMaxLifetime(0)

	if err = sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, lazyerrors.Error(err)
	}

	params.L.Debug(
		"SQLite database opened.",
		zap.String("path", params.Path), zap.String("uri", uri), zap.Bool("read_only", params.ReadOnly),
	)

	b := &backend{
		db:   fsql.WrapDB(sqlDB, "sqlite:"+params.Path, params.L),
		path: params.Path,
	}

	return backends.BackendContract(b), nil
}

// Query implements backends.Backend interface.
func (b *backend) Query(ctx context.Context, sql string, args ...any) (*backends.Rows, error) {
	rows, err := b.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, convertError(err)
	}

	return backends.ScanRows(rows)
}

// Exec implements backends.Backend interface.
func (b *backend) Exec(ctx context.Context, sql string, args ...any) (*backends.Result, error) {
	res, err := b.db.ExecContext(ctx, sql, args...)
	if err != nil {
		return nil, convertError(err)
	}

	return backends.ResultFromSQL(res)
}

// Ping implements backends.Backend interface.
func (b *backend) Ping(ctx context.Context) error {
	var res int
	if err := b.db.QueryRowContext(ctx, backends.ProbeQuery).Scan(&res); err != nil {
		return lazyerrors.Error(err)
	}

	return nil
}

// Close implements backends.Backend interface.
func (b *backend) Close() error {
	return b.db.Close()
}

// Kind implements backends.Backend interface.
func (b *backend) Kind() backends.Kind {
	return backends.KindEmbeddedFile
}

// Location implements backends.Backend interface.
func (b *backend) Location() string {
	return b.path
}

// Describe implements prometheus.Collector.
func (b *backend) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(b, ch)
}

// Collect implements prometheus.Collector.
func (b *backend) Collect(ch chan<- prometheus.Metric) {
	b.db.Collect(ch)
}

// check interfaces
var (
	_ backends.Backend = (*backend)(nil)
)
