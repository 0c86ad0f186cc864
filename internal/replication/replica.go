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

// Package replication routes read-only statements to healthy replicas
// and everything else to the primary.
//
// # Design principles
//
//  1. The primary is always the source of truth. Any replica problem degrades to primary-only
//     routing; it never fails the caller.
//  2. Query and Run never take a lock. The set of replicas is an immutable generation
//     published atomically; only health flags and the round-robin cursor change.
//  3. Replicas are read-only at the backend level, not only by routing decision.
//  4. Every replica-bound call is bounded by a timeout.
package replication

import (
	"sync/atomic"

	"github.com/FerretDB/rwrouter/internal/backends"
	"github.com/FerretDB/rwrouter/internal/util/resource"
)

// Replica represents a single read-only replica connection.
//
// Its health flag is changed concurrently by the health checker and by failed queries.
type Replica struct {
	b     backends.Backend
	token *resource.Token

	// ID is the position of the replica in configuration.
	ID int

	healthy atomic.Bool
	probing atomic.Bool
}

// newReplica creates a new healthy replica that owns the given backend.
func newReplica(id int, b backends.Backend) *Replica {
	r := &Replica{
		b:     b,
		token: resource.NewToken(),
		ID:    id,
	}

	r.healthy.Store(true)
	resource.Track(r, r.token)

	return r
}

// Kind returns the replica backend kind.
func (r *Replica) Kind() backends.Kind {
	return r.b.Kind()
}

// Location returns the replica file path or host:port.
func (r *Replica) Location() string {
	return r.b.Location()
}

// Healthy returns true if the replica is considered healthy.
func (r *Replica) Healthy() bool {
	return r.healthy.Load()
}

// setHealthy updates the health flag and returns true if it changed.
func (r *Replica) setHealthy(healthy bool) bool {
	return r.healthy.Swap(healthy) != healthy
}

// status returns the replica status.
func (r *Replica) status() ReplicaStatus {
	return ReplicaStatus{
		ID:       r.ID,
		Kind:     r.Kind(),
		Location: r.Location(),
		Healthy:  r.Healthy(),
	}
}

// close closes the replica backend.
//
// Closed replicas are never reused.
func (r *Replica) close() error {
	resource.Untrack(r, r.token)

	return r.b.Close()
}
