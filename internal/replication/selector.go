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

import "sync"

// Selector picks healthy replicas in round-robin order.
type Selector struct {
	replicas []*Replica

	m      sync.Mutex
	cursor int
}

// NewSelector creates a new Selector for the given replicas, starting with the first one.
func NewSelector(replicas []*Replica) *Selector {
	return &Selector{
		replicas: replicas,
	}
}

// Pick returns the next healthy replica, or nil if there is none.
//
// Starting from the cursor, it scans at most one full cycle and moves the cursor
// to the position after the returned replica.
func (s *Selector) Pick() *Replica {
	n := len(s.replicas)
	if n == 0 {
		return nil
	}

	s.m.Lock()
	defer s.m.Unlock()

	for i := range n {
		pos := (s.cursor + i) % n

		if r := s.replicas[pos]; r.Healthy() {
			s.cursor = (pos + 1) % n
			return r
		}
	}

	return nil
}

// HasHealthy returns true if at least one replica is healthy.
func (s *Selector) HasHealthy() bool {
	for _, r := range s.replicas {
		if r.Healthy() {
			return true
		}
	}

	return false
}
