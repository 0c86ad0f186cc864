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

import "fmt"

// Kind represents a backend transport kind.
type Kind int

// Backend kinds.
const (
	_ Kind = iota

	// KindEmbeddedFile is a local database file opened directly by the process.
	KindEmbeddedFile

	// KindNetworkPool is a client/server database reached through a connection pool.
	KindNetworkPool
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindEmbeddedFile:
		return "embedded-file"
	case KindNetworkPool:
		return "network-pool"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	switch k {
	case KindEmbeddedFile, KindNetworkPool:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("backends: invalid kind %d", int(k))
	}
}
