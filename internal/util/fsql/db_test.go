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

package fsql

import (
	"database/sql"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // register database/sql driver

	rwtestutil "github.com/FerretDB/rwrouter/internal/util/testutil"
)

func TestDB(t *testing.T) {
	t.Parallel()

	ctx := rwtestutil.Ctx(t)

	sqlDB, err := sql.Open("sqlite", "file:"+t.TempDir()+"/test.sqlite?mode=rwc")
	require.NoError(t, err)

	db := WrapDB(sqlDB, "test", rwtestutil.Logger(t))
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	require.NoError(t, db.PingContext(ctx))

	_, err = db.ExecContext(ctx, "CREATE TABLE notes (id INTEGER PRIMARY KEY, title TEXT)")
	require.NoError(t, err)

	res, err := db.ExecContext(ctx, "INSERT INTO notes (title) VALUES (?), (?)", "a", "b")
	require.NoError(t, err)

	affected, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT count(*) FROM notes").Scan(&count))
	assert.Equal(t, 2, count)

	rows, err := db.QueryContext(ctx, "SELECT title FROM notes ORDER BY id")
	require.NoError(t, err)

	var titles []string

	for rows.Next() {
		var title string
		require.NoError(t, rows.Scan(&title))
		titles = append(titles, title)
	}

	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())
	assert.Equal(t, []string{"a", "b"}, titles)

	assert.Equal(t, 4, testutil.CollectAndCount(db))
}

func TestWrapNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, WrapDB(nil, "nil", rwtestutil.Logger(t)))
}
