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

package main

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/FerretDB/rwrouter/internal/backends"
	"github.com/FerretDB/rwrouter/internal/backends/mysql"
	"github.com/FerretDB/rwrouter/internal/backends/postgresql"
	"github.com/FerretDB/rwrouter/internal/backends/sqlite"
	"github.com/FerretDB/rwrouter/internal/util/lazyerrors"
)

// openPrimaryParams represents the parameters of openPrimary function.
//
//nolint:vet // for readability
type openPrimaryParams struct {
	URL      string
	PoolSize int
	Timeout  time.Duration
	L        *zap.Logger
}

// openPrimary opens read-write primary backend for the given URL.
//
// It returns true for embedded (SQLite) primary.
func openPrimary(ctx context.Context, params *openPrimaryParams) (backends.Backend, bool, error) {
	u, err := url.Parse(params.URL)
	if err != nil {
		return nil, false, lazyerrors.Error(err)
	}

	if params.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.Timeout)

		defer cancel()
	}

	switch u.Scheme {
	case "file":
		path := u.Opaque
		if path == "" {
			path = u.Path
		}

		b, err := sqlite.NewBackend(ctx, &sqlite.NewBackendParams{
			Path: path,
			L:    params.L,
		})

		return b, true, err

	case "mysql":
		p, err := mysql.ParseURL(params.URL)
		if err != nil {
			return nil, false, err
		}

		p.MaxOpenConns = params.PoolSize
		p.Timeout = params.Timeout
		p.L = params.L

		b, err := mysql.NewBackend(ctx, p)

		return b, false, err

	case "postgres", "postgresql":
		b, err := postgresql.NewBackend(ctx, &postgresql.NewBackendParams{
			URL:      params.URL,
			MaxConns: params.PoolSize,
			Timeout:  params.Timeout,
			L:        params.L,
		})

		return b, false, err

	default:
		return nil, false, lazyerrors.Errorf("unsupported primary URL scheme %q", u.Scheme)
	}
}
