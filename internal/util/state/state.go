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

// Package state stores rwrouter process state.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FerretDB/rwrouter/internal/util/must"
)

// State represents rwrouter process state.
type State struct {
	UUID  string    `json:"uuid"`
	Start time.Time `json:"-"`
}

// Provider provides access to rwrouter process state.
type Provider struct {
	filename string

	rw sync.RWMutex
	s  State
}

// NewProvider creates a new Provider that stores state in the given file.
//
// If filename is empty, then the state is not persisted and UUID changes on every start.
func NewProvider(filename string) (*Provider, error) {
	p := &Provider{
		filename: filename,
		s: State{
			Start: time.Now(),
		},
	}

	if filename != "" {
		b, _ := os.ReadFile(filename)
		_ = json.Unmarshal(b, &p.s)
	}

	// all errors (missing file, invalid JSON, invalid UUID, etc)
	// are handled in the same way - by regenerating state
	if _, err := uuid.Parse(p.s.UUID); err == nil {
		return p, nil
	}

	p.s.UUID = must.NotFail(uuid.NewRandom()).String()

	if filename == "" {
		return p, nil
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0o777); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	if err := os.WriteFile(filename, must.NotFail(json.Marshal(p.s)), 0o666); err != nil {
		return nil, fmt.Errorf("failed to write state file: %w", err)
	}

	return p, nil
}

// Get returns a copy of the current process state.
//
// It is okay to call this function often.
func (p *Provider) Get() *State {
	p.rw.RLock()
	defer p.rw.RUnlock()

	s := p.s

	return &s
}
