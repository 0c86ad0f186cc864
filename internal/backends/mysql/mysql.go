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

// Package mysql provides the networked-pool backend for MySQL.
//
// # Design principles
//
//  1. One Backend is one [database/sql] connection pool to one MySQL server.
//  2. Connection, read and write timeouts are always set in the DSN;
//     database/sql has no acquire timeout, so operations must be bounded by context.
//  3. Read-only backends set `transaction_read_only` session variable on every connection.
package mysql

import (
	"context"
	"database/sql"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/FerretDB/rwrouter/internal/backends"
	"github.com/FerretDB/rwrouter/internal/util/fsql"
	"github.com/FerretDB/rwrouter/internal/util/lazyerrors"
)

// DefaultPort is the MySQL standard port.
const DefaultPort = 3306

// backend implements backends.Backend interface.
type backend struct {
	db   *fsql.DB
	addr string
}

// NewBackendParams represents the parameters of NewBackend function.
//
//nolint:vet // for readability
type NewBackendParams struct {
	Host     string
	Port     int // DefaultPort if 0
	User     string
	Password string
	Database string
	Params   map[string]string

	ReadOnly     bool
	MaxOpenConns int
	Timeout      time.Duration

	L *zap.Logger
}

// dsn returns database/sql data source name for the given parameters.
func dsn(params *NewBackendParams) string {
	port := params.Port
	if port == 0 {
		port = DefaultPort
	}

	cfg := mysql.NewConfig()
	cfg.User = params.User
	cfg.Passwd = params.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(params.Host, strconv.Itoa(port))
	cfg.DBName = params.Database
	cfg.ParseTime = true

	if params.Timeout > 0 {
		cfg.Timeout = params.Timeout
		cfg.ReadTimeout = params.Timeout
		cfg.WriteTimeout = params.Timeout
	}

	if len(params.Params) > 0 || params.ReadOnly {
		cfg.Params = make(map[string]string, len(params.Params)+1)
		for k, v := range params.Params {
			cfg.Params[k] = v
		}
	}

	if params.ReadOnly {
		cfg.Params["transaction_read_only"] = "1"
	}

	return cfg.FormatDSN()
}

// NewBackend creates a new backend for the MySQL server and checks that it is reachable.
func NewBackend(ctx context.Context, params *NewBackendParams) (backends.Backend, error) {
	if params.Host == "" {
		return nil, backends.NewError(backends.ErrorCodeInvalidLocation, lazyerrors.New("empty MySQL host"))
	}

	sqlDB, err := sql.Open("mysql", dsn(params))
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	if params.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(params.MaxOpenConns)
		sqlDB.SetMaxIdleConns(params.MaxOpenConns)
	}

	sqlDB.SetConnMaxLifetime(time.Hour)

	if err = sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, lazyerrors.Error(err)
	}

	port := params.Port
	if port == 0 {
		port = DefaultPort
	}

	addr := net.JoinHostPort(params.Host, strconv.Itoa(port))

	params.L.Debug("MySQL pool opened.", zap.String("addr", addr), zap.Bool("read_only", params.ReadOnly))

	b := &backend{
		db:   fsql.WrapDB(sqlDB, "mysql:"+addr, params.L),
		addr: addr,
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
	return backends.KindNetworkPool
}

// Location implements backends.Backend interface.
func (b *backend) Location() string {
	return b.addr
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
