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

// Package postgresql provides the networked-pool backend for PostgreSQL.
//
// # Design principles
//
//  1. One Backend is one pgx connection pool to one PostgreSQL server.
//  2. Results are read with pgx directly, without database/sql.
//  3. Read-only backends set `default_transaction_read_only` runtime parameter.
package postgresql

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/FerretDB/rwrouter/internal/backends"
	"github.com/FerretDB/rwrouter/internal/util/logging"
	"github.com/FerretDB/rwrouter/internal/util/lazyerrors"
	"github.com/FerretDB/rwrouter/internal/util/observability"
)

// DefaultPort is the PostgreSQL standard port.
const DefaultPort = 5432

// backend implements backends.Backend interface.
type backend struct {
	*metricsCollector

	p    *pgxpool.Pool
	addr string
}

// NewBackendParams represents the parameters of NewBackend function.
//
//nolint:vet // for readability
type NewBackendParams struct {
	// URL is a full connection string; Host, Port, User, Password, and Database are ignored if set.
	URL string

	Host     string
	Port     int // DefaultPort if 0
	User     string
	Password string
	Database string

	ReadOnly bool
	MaxConns int
	Timeout  time.Duration

	L *zap.Logger
}

// connString returns the connection string for the given parameters.
func connString(params *NewBackendParams) string {
	if params.URL != "" {
		return params.URL
	}

	port := params.Port
	if port == 0 {
		port = DefaultPort
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(params.Host, strconv.Itoa(port)),
		Path:   "/" + params.Database,
	}

	if params.User != "" {
		if params.Password != "" {
			u.User = url.UserPassword(params.User, params.Password)
		} else {
			u.User = url.User(params.User)
		}
	}

	return u.String()
}

// config returns pool configuration for the given parameters.
func config(params *NewBackendParams) (*pgxpool.Config, error) {
	if params.URL == "" && params.Host == "" {
		return nil, backends.NewError(backends.ErrorCodeInvalidLocation, lazyerrors.New("empty PostgreSQL host"))
	}

	cfg, err := pgxpool.ParseConfig(connString(params))
	if err != nil {
		return nil, backends.NewError(backends.ErrorCodeInvalidLocation, lazyerrors.Error(err))
	}

	cfg.ConnConfig.RuntimeParams["application_name"] = "rwrouter"

	if params.ReadOnly {
		cfg.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"
	}

	if params.Timeout > 0 {
		cfg.ConnConfig.ConnectTimeout = params.Timeout
	}

	if params.MaxConns > 0 {
		cfg.MaxConns = int32(params.MaxConns)
	}

	if params.L != nil {
		cfg.ConnConfig.Tracer = logging.NewPgxTracer(params.L)
	}

	return cfg, nil
}

// NewBackend creates a new backend for the PostgreSQL server and checks that it is reachable.
func NewBackend(ctx context.Context, params *NewBackendParams) (backends.Backend, error) {
	cfg, err := config(params)
	if err != nil {
		return nil, err
	}

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	if err = p.Ping(ctx); err != nil {
		p.Close()
		return nil, lazyerrors.Error(err)
	}

	addr := net.JoinHostPort(cfg.ConnConfig.Host, strconv.Itoa(int(cfg.ConnConfig.Port)))

	params.L.Debug("PostgreSQL pool opened.", zap.String("addr", addr), zap.Bool("read_only", params.ReadOnly))

	b := &backend{
		metricsCollector: newMetricsCollector(addr, p.Stat),
		p:                p,
		addr:             addr,
	}

	return backends.BackendContract(b), nil
}

// Query implements backends.Backend interface.
func (b *backend) Query(ctx context.Context, sql string, args ...any) (*backends.Rows, error) {
	defer observability.FuncCall(ctx)()

	rows, err := b.p.Query(ctx, sql, args...)
	if err != nil {
		return nil, convertError(err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()

	res := &backends.Rows{
		Columns: make([]string, len(fields)),
		Values:  [][]any{},
	}

	for i, f := range fields {
		res.Columns[i] = f.Name
	}

	for rows.Next() {
		var values []any

		if values, err = rows.Values(); err != nil {
			return nil, lazyerrors.Error(err)
		}

		res.Values = append(res.Values, values)
	}

	if err = rows.Err(); err != nil {
		return nil, convertError(err)
	}

	return res, nil
}

// Exec implements backends.Backend interface.
//
// PostgreSQL does not report inserted IDs, use `RETURNING` with Query instead.
func (b *backend) Exec(ctx context.Context, sql string, args ...any) (*backends.Result, error) {
	defer observability.FuncCall(ctx)()

	tag, err := b.p.Exec(ctx, sql, args...)
	if err != nil {
		return nil, convertError(err)
	}

	return &backends.Result{
		AffectedRows: tag.RowsAffected(),
	}, nil
}

// Ping implements backends.Backend interface.
func (b *backend) Ping(ctx context.Context) error {
	var res int
	if err := b.p.QueryRow(ctx, backends.ProbeQuery).Scan(&res); err != nil {
		return lazyerrors.Error(err)
	}

	return nil
}

// Close implements backends.Backend interface.
func (b *backend) Close() error {
	b.p.Close()
	return nil
}

// Kind implements backends.Backend interface.
func (b *backend) Kind() backends.Kind {
	return backends.KindNetworkPool
}

// Location implements backends.Backend interface.
func (b *backend) Location() string {
	return b.addr
}

// check interfaces
var (
	_ backends.Backend = (*backend)(nil)
)
