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

import "github.com/FerretDB/rwrouter/internal/backends"

// ReplicaStatus represents a single replica in Status.
type ReplicaStatus struct {
	ID       int           `json:"id"`
	Kind     backends.Kind `json:"kind"`
	Location string        `json:"location"`
	Healthy  bool          `json:"healthy"`
}

// Status represents a point-in-time snapshot of the replication state.
type Status struct {
	Enabled             bool            `json:"enabled"`
	ReplicaCount        int             `json:"replica_count"`
	HealthyReplicaCount int             `json:"healthy_replica_count"`
	Replicas            []ReplicaStatus `json:"replicas"`
}
