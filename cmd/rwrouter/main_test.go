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
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FerretDB/rwrouter/internal/backends"
	"github.com/FerretDB/rwrouter/internal/config"
	"github.com/FerretDB/rwrouter/internal/replication"
	"github.com/FerretDB/rwrouter/internal/util/testutil"
)

func TestOpenPrimary(t *testing.T) {
	t.Parallel()

	t.Run("File", func(t *testing.T) {
		t.Parallel()

		ctx := testutil.Ctx(t)
		f := filepath.Join(t.TempDir(), "primary.sqlite")

		b, embedded, err := openPrimary(ctx, &openPrimaryParams{URL: "file:" + f, L: testutil.Logger(t)})
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, b.Close()) })

		assert.True(t, embedded)
		assert.Equal(t, backends.KindEmbeddedFile, b.Kind())
		assert.Equal(t, f, b.Location())

		_, err = b.Exec(ctx, "CREATE TABLE notes (id INTEGER PRIMARY KEY)")
		require.NoError(t, err)
	})

	t.Run("FileAbsolute", func(t *testing.T) {
		t.Parallel()

		f := filepath.Join(t.TempDir(), "primary.sqlite")

		b, embedded, err := openPrimary(testutil.Ctx(t), &openPrimaryParams{URL: "file://" + f, L: testutil.Logger(t)})
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, b.Close()) })

		assert.True(t, embedded)
		assert.Equal(t, f, b.Location())
	})

	t.Run("UnsupportedScheme", func(t *testing.T) {
		t.Parallel()

		_, _, err := openPrimary(testutil.Ctx(t), &openPrimaryParams{URL: "redis://127.0.0.1", L: testutil.Logger(t)})
		require.ErrorContains(t, err, `unsupported primary URL scheme "redis"`)
	})

	t.Run("InvalidMySQL", func(t *testing.T) {
		t.Parallel()

		_, embedded, err := openPrimary(testutil.Ctx(t), &openPrimaryParams{URL: "mysql://", L: testutil.Logger(t)})
		require.Error(t, err)
		assert.False(t, embedded)
	})
}

func TestHealthFunc(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	l := testutil.Logger(t)

	router := replication.NewRouter(&replication.NewRouterOpts{L: l, Config: config.Default()})

	_, err := healthFunc(router)(ctx)
	require.Error(t, err)

	f := testutil.SQLiteFile(t, "primary.sqlite")

	primary, _, err := openPrimary(ctx, &openPrimaryParams{URL: "file:" + f, L: l})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, primary.Close()) })

	router.Initialize(ctx, primary, true)
	t.Cleanup(router.Close)

	res, err := healthFunc(router)(ctx)
	require.NoError(t, err)

	st, ok := res.(*replication.Status)
	require.True(t, ok)
	assert.False(t, st.Enabled)
}

func TestCLI(t *testing.T) {
	t.Setenv("RWROUTER_PRIMARY_URL", "postgres://127.0.0.1/notehub")
	t.Setenv("RWROUTER_LOG_LEVEL", "warn")

	parser, err := kong.New(&cli, kongOptions...)
	require.NoError(t, err)

	_, err = parser.Parse([]string{"--debug-addr=-", "--primary-pool-size=5"})
	require.NoError(t, err)

	assert.Equal(t, "postgres://127.0.0.1/notehub", cli.Primary.URL)
	assert.Equal(t, 5, cli.Primary.PoolSize)
	assert.Equal(t, "warn", cli.Log.Level)
	assert.Equal(t, "-", cli.DebugAddr)
	assert.Equal(t, "console", cli.Log.Format)
}
