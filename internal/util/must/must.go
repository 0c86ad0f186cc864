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

// Package must provides helpers that panic on error.
//
// They should be used only for errors that can't happen unless there is a bug,
// or in the main package during startup.
package must

import "reflect"

// NotFail panics if err is not nil, returns res otherwise.
func NotFail[T any](res T, err error) T {
	if err != nil {
		panic(err)
	}

	return res
}

// NoError panics if err is not nil.
func NoError(err error) {
	if err != nil {
		panic(err)
	}
}

// BeTrue panics if b is not true.
func BeTrue(b bool) {
	if !b {
		panic("not true")
	}
}

// NotBeZero panics if v is the zero value of its type, including nil interfaces and pointers.
func NotBeZero[T any](v T) {
	if rv := reflect.ValueOf(&v).Elem(); rv.IsZero() {
		panic("zero value of " + rv.Type().String())
	}
}
