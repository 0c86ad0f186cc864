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

// Package backends provides common interfaces and code for all backend implementations.
//
// # Design principles
//
//  1. A Backend is one reachable datastore: an embedded SQLite file or a networked connection pool.
//     The set of kinds is closed; see [Kind].
//  2. Backend objects are stateful and own their connection(s).
//     Close is terminal: a closed Backend is never reopened, a new one is created instead.
//  3. Contexts are per-operation and should not be stored.
//     Every operation must respect context deadlines; the router relies on that for failover.
//  4. Results are fully read before methods return,
//     so the caller may cancel the operation context right after the call.
//  5. Errors returned by methods could be nil, *Error, or some other opaque (driver) error.
package backends
