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

	"go.uber.org/zap"

	"github.com/FerretDB/rwrouter/internal/backends"
	"github.com/FerretDB/rwrouter/internal/backends/mysql"
	"github.com/FerretDB/rwrouter/internal/backends/postgresql"
	"github.com/FerretDB/rwrouter/internal/backends/sqlite"
	"github.com/FerretDB/rwrouter/internal/config"
)

// OpenParams represents the parameters of Opener.
//
//nolint:vet // for readability
type OpenParams struct {
	Embedded bool
	Index    int
	Location string
	Config   *config.Config
	L        *zap.Logger
}

// Opener opens a read-only backend for a single configured replica location.
//
// Context is bounded by the connect timeout.
type Opener func(ctx context.Context, params *OpenParams) (backends.Backend, error)

// OpenBackend is the default Opener.
//
// Embedded replicas are SQLite files; networked replicas use the configured driver.
func OpenBackend(ctx context.Context, params *OpenParams) (backends.Backend, error) {
	c := params.Config

	if params.Embedded {
		return sqlite.NewBackend(ctx, &sqlite.NewBackendParams{
			Path:     params.Location,
			ReadOnly: true,
			L:        params.L,
		})
	}

	switch c.Driver {
	case config.DriverPostgreSQL:
		return postgresql.NewBackend(ctx, &postgresql.NewBackendParams{
			Host:     params.Location,
			Port:     c.Port(params.Index, postgresql.DefaultPort),
			User:     c.User,
			Password: c.Password,
			Database: c.Database,
			ReadOnly: true,
			MaxConns: c.PoolSize,
			Timeout:  c.ConnectTimeout,
			L:        params.L,
		})

	default:
		return mysql.NewBackend(ctx, &mysql.NewBackendParams{
			Host:         params.Location,
			Port:         c.Port(params.Index, mysql.DefaultPort),
			User:         c.User,
			Password:     c.Password,
			Database:     c.Database,
			ReadOnly:     true,
			MaxOpenConns: c.PoolSize,
			Timeout:      c.ConnectTimeout,
			L:            params.L,
		})
	}
}
