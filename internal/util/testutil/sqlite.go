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

package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // register database/sql driver
)

// SQLiteFile creates a new SQLite database file in a temporary directory,
// runs the given statements in it, and returns the file path.
func SQLiteFile(tb testing.TB, name string, statements ...string) string {
	tb.Helper()

	f := filepath.Join(tb.TempDir(), name)

	db, err := sql.Open("sqlite", "file:"+f+"?mode=rwc")
	require.NoError(tb, err)

	defer func() {
		require.NoError(tb, db.Close())
	}()

	for _, s := range statements {
		_, err = db.Exec(s)
		require.NoError(tb, err, s)
	}

	// make sure the file exists even if no statements were given
	require.NoError(tb, db.Ping())

	_, err = os.Stat(f)
	require.NoError(tb, err)

	return f
}
