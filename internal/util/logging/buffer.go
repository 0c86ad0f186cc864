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

package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap/zapcore"
)

// CircularBuffer stores the last N log entries in memory.
type CircularBuffer struct {
	mu    sync.RWMutex
	log   []*zapcore.Entry
	index int
}

// NewCircularBuffer creates a buffer for the given number of entries.
func NewCircularBuffer(size int) *CircularBuffer {
	if size < 1 {
		panic(fmt.Sprintf("buffer size must be at least 1, but %d provided", size))
	}

	return &CircularBuffer{
		log: make([]*zapcore.Entry, size),
	}
}

// append adds an entry, overwriting the oldest one.
func (b *CircularBuffer) append(entry *zapcore.Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.log[b.index] = entry
	b.index = (b.index + 1) % len(b.log)
}

// GetArray returns stored entries at or above the given level, oldest first.
func (b *CircularBuffer) GetArray(level zapcore.Level) []*zapcore.Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var res []*zapcore.Entry

	for i := range b.log {
		e := b.log[(i+b.index)%len(b.log)]
		if e != nil && e.Level >= level {
			res = append(res, e)
		}
	}

	return res
}
