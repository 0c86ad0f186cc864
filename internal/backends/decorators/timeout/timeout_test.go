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

package timeout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FerretDB/rwrouter/internal/backends"
	"github.com/FerretDB/rwrouter/internal/backends/backendstest"
	"github.com/FerretDB/rwrouter/internal/util/testutil"
)

func TestPingTimeout(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)

	fake := backendstest.New(backends.KindNetworkPool, "replica:3306", &backends.Rows{})
	fake.BlockPings()
	t.Cleanup(fake.Unblock)

	b := NewBackend(fake, time.Second, 50*time.Millisecond)

	start := time.Now()
	err := b.Ping(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)

	assert.Equal(t, backends.KindNetworkPool, b.Kind())
	assert.Equal(t, "replica:3306", b.Location())
}

func TestNoTimeout(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)

	rows := &backends.Rows{Columns: []string{"1"}, Values: [][]any{{int64(1)}}}
	fake := backendstest.New(backends.KindEmbeddedFile, "replica.sqlite", rows)
	b := NewBackend(fake, 0, 0)

	res, err := b.Query(ctx, backends.ProbeQuery)
	require.NoError(t, err)
	assert.Same(t, rows, res)

	_, err = b.Exec(ctx, "DELETE FROM notes")
	require.NoError(t, err)

	require.NoError(t, b.Ping(ctx))
	require.NoError(t, b.Close())
	assert.Equal(t, 1, fake.Closes())
}
