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
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"

	"github.com/FerretDB/rwrouter/internal/backends"
)

func TestConvertError(t *testing.T) {
	t.Parallel()

	for _, n := range []uint16{errOptionPreventsStatement, errCantExecuteInReadOnlyTransaction} {
		err := convertError(&mysql.MySQLError{Number: n, Message: "read only"})
		assert.True(t, backends.ErrorCodeIs(err, backends.ErrorCodeReadOnly), "%d", n)
	}

	err := convertError(&mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"})
	assert.False(t, backends.ErrorCodeIs(err, backends.ErrorCodeReadOnly))

	var myErr *mysql.MySQLError
	assert.True(t, errors.As(err, &myErr))
}
