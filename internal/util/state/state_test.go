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

package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider(t *testing.T) {
	t.Parallel()

	t.Run("Persisted", func(t *testing.T) {
		t.Parallel()

		filename := filepath.Join(t.TempDir(), "state", "state.json")

		p, err := NewProvider(filename)
		require.NoError(t, err)

		s := p.Get()
		_, err = uuid.Parse(s.UUID)
		require.NoError(t, err)
		assert.False(t, s.Start.IsZero())

		// returns copies
		s.UUID = "changed"
		assert.NotEqual(t, "changed", p.Get().UUID)

		p2, err := NewProvider(filename)
		require.NoError(t, err)
		assert.Equal(t, p.Get().UUID, p2.Get().UUID)
	})

	t.Run("Invalid", func(t *testing.T) {
		t.Parallel()

		filename := filepath.Join(t.TempDir(), "state.json")
		require.NoError(t, os.WriteFile(filename, []byte(`{"uuid": "invalid"}`), 0o666))

		p, err := NewProvider(filename)
		require.NoError(t, err)

		_, err = uuid.Parse(p.Get().UUID)
		require.NoError(t, err)
	})

	t.Run("InMemory", func(t *testing.T) {
		t.Parallel()

		p1, err := NewProvider("")
		require.NoError(t, err)

		p2, err := NewProvider("")
		require.NoError(t, err)

		assert.NotEqual(t, p1.Get().UUID, p2.Get().UUID)
	})
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	p, err := NewProvider("")
	require.NoError(t, err)

	assert.Equal(t, 2, testutil.CollectAndCount(p.MetricsCollector(true)))
	assert.Equal(t, 1, testutil.CollectAndCount(p.MetricsCollector(false), "rwrouter_up"))
}
