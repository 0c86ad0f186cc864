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

package mysql

import (
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/FerretDB/rwrouter/internal/backends"
	"github.com/FerretDB/rwrouter/internal/util/lazyerrors"
)

// MySQL server error numbers.
const (
	// ER_OPTION_PREVENTS_STATEMENT, returned by servers running with --read-only.
	errOptionPreventsStatement = 1290

	// ER_CANT_EXECUTE_IN_READ_ONLY_TRANSACTION.
	errCantExecuteInReadOnlyTransaction = 1792
)

// convertError converts MySQL errors to backend errors where possible.
func convertError(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case errOptionPreventsStatement, errCantExecuteInReadOnlyTransaction:
			return backends.NewError(backends.ErrorCodeReadOnly, err)
		}
	}

	return lazyerrors.Error(err)
}
