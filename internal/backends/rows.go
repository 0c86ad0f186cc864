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

package backends

import (
	"database/sql"
	"strings"

	"github.com/FerretDB/rwrouter/internal/util/lazyerrors"
)

// Rows represents fully read query results.
type Rows struct {
	Columns []string
	Values  [][]any
}

// Len returns the number of rows.
func (r *Rows) Len() int {
	return len(r.Values)
}

// Maps returns rows as column name to value maps.
func (r *Rows) Maps() []map[string]any {
	res := make([]map[string]any, len(r.Values))

	for i, row := range r.Values {
		m := make(map[string]any, len(r.Columns))
		for j, c := range r.Columns {
			m[c] = row[j]
		}

		res[i] = m
	}

	return res
}

// Result represents the result of a statement that does not return rows.
type Result struct {
	// InsertID is the last inserted row ID if the backend reports it, 0 otherwise.
	InsertID int64

	// AffectedRows is the number of rows changed by the statement.
	AffectedRows int64
}

// ScanRows reads all rows from [*sql.Rows] and closes them.
//
// Byte slices of non-binary columns are converted to strings,
// so that text columns look the same for all backends.
func ScanRows(rows *sql.Rows) (*Rows, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	binary := make([]bool, len(types))
	for i, t := range types {
		binary[i] = isBinary(t.DatabaseTypeName())
	}

	res := &Rows{
		Columns: cols,
		Values:  [][]any{},
	}

	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))

		for i := range dest {
			ptrs[i] = &dest[i]
		}

		if err = rows.Scan(ptrs...); err != nil {
			return nil, lazyerrors.Error(err)
		}

		for i, v := range dest {
			if b, ok := v.([]byte); ok && !binary[i] {
				dest[i] = string(b)
			}
		}

		res.Values = append(res.Values, dest)
	}

	if err = rows.Err(); err != nil {
		return nil, lazyerrors.Error(err)
	}

	return res, nil
}

// isBinary returns true for database type names of binary columns.
func isBinary(typeName string) bool {
	t := strings.ToUpper(typeName)
	return strings.Contains(t, "BLOB") || strings.Contains(t, "BINARY") || t == "BYTEA"
}

// ResultFromSQL converts [sql.Result].
func ResultFromSQL(res sql.Result) (*Result, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	// not all drivers support it
	id, _ := res.LastInsertId()

	return &Result{
		InsertID:     id,
		AffectedRows: affected,
	}, nil
}
