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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsReadOnly(t *testing.T) {
	t.Parallel()

	for sql, expected := range map[string]bool{
		"SELECT 1":                                     true,
		"select * from notes where id = ?":             true,
		"  \n\tSelect id FROM notes":                   true,
		"(SELECT 1) UNION (SELECT 2)":                  true,
		"-- comment\nSELECT 1":                         true,
		"/* hint */ SELECT 1":                          true,
		"WITH t AS (SELECT 1) SELECT * FROM t":         true,
		"SHOW TABLES":                                  true,
		"EXPLAIN SELECT 1":                             true,
		"DESCRIBE notes":                               true,
		"DESC notes":                                   true,
		"VALUES (1), (2)":                              true,
		"SELECT updated_at, deleted FROM notes":        true,
		"SELECT 'insert into t' AS s":                  true,
		"SELECT `update` FROM t":                       true,
		`SELECT "delete" FROM t`:                       true,
		"SELECT 'it''s' FROM t":                        true,
		"SELECT 1 -- FOR UPDATE":                       true,
		"SELECT * FROM notes ORDER BY id DESC LIMIT 1": true,

		"":                                       false,
		"   ":                                    false,
		"-- SELECT 1":                            false,
		"INSERT INTO notes (body) VALUES ('a')":  false,
		"UPDATE notes SET body = 'a'":            false,
		"DELETE FROM notes":                      false,
		"REPLACE INTO notes VALUES (1, 'a')":     false,
		"CREATE TABLE t (id int)":                false,
		"BEGIN":                                  false,
		"SET NAMES utf8mb4":                      false,
		"SELECT * FROM notes FOR UPDATE":         false,
		"select * from notes for share":          false,
		"SELECT * FROM notes FOR NO KEY UPDATE":  false,
		"SELECT * FROM notes LOCK IN SHARE MODE": false,
		"SELECT * INTO backup FROM notes":        false,
		"WITH d AS (DELETE FROM notes RETURNING *) SELECT * FROM d": false,
		"EXPLAIN ANALYZE UPDATE notes SET body = 'a'":               false,
		"/* SELECT */ DELETE FROM notes":                            false,
	} {
		assert.Equal(t, expected, IsReadOnly(sql), "%q", sql)
	}
}
