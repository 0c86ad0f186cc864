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

package resource

import (
	"runtime/pprof"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handle struct {
	token *Token
}

func TestTrackUntrack(t *testing.T) {
	t.Parallel()

	h := &handle{token: NewToken()}
	Track(h, h.token)

	p := pprof.Lookup(profileName(h))
	require.NotNil(t, p)
	assert.Positive(t, p.Count())

	Untrack(h, h.token)
	Untrack(h, h.token)
}

func TestCheckArgs(t *testing.T) {
	t.Parallel()

	h := &handle{token: NewToken()}

	assert.Panics(t, func() { Track(h, NewToken()) })
	assert.Panics(t, func() { Track(h, nil) })

	s := "not a struct"
	assert.Panics(t, func() { Track(&s, NewToken()) })
}
