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

// Package resource provides utilities for tracking lifetimes of owned resources
// such as replica connection handles.
package resource

import (
	"fmt"
	"reflect"
	"runtime"
	"runtime/pprof"
	"sync"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/FerretDB/rwrouter/internal/util/debugbuild"
)

// Token is a field of a tracked object.
//
// It holds the cleanup handle and the message reported if the object is garbage-collected
// without being untracked.
type Token struct {
	h   atomic.Pointer[runtime.Cleanup]
	msg string
}

// NewToken returns a new Token.
func NewToken() *Token {
	return new(Token)
}

// profilesM protects creation of pprof profiles.
var profilesM sync.Mutex

// profileName returns the pprof profile name for the given object.
func profileName(obj any) string {
	return "rwrouter/" + reflect.TypeOf(obj).Elem().String()
}

// leaked is called when a tracked object is garbage-collected without Untrack call.
//
// Debug builds panic to make leaks visible in tests.
func leaked(t *Token) {
	if debugbuild.Enabled {
		panic(t.msg)
	}

	zap.L().Warn("Resource leak detected.", zap.String("msg", t.msg))
}

// Track tracks the lifetime of an object until Untrack is called on it.
//
// Obj should be a pointer to a struct with a field "token" of type *Token.
func Track[T any](obj *T, token *Token) {
	checkArgs(obj, token)

	name := profileName(obj)

	p := pprof.Lookup(name)
	if p == nil {
		profilesM.Lock()

		// a concurrent call might have created it
		if p = pprof.Lookup(name); p == nil {
			p = pprof.NewProfile(name)
		}

		profilesM.Unlock()
	}

	// token, not obj, to let the cleanup run
	p.Add(token, 1)

	token.msg = fmt.Sprintf("%T has not been closed", obj)
	if s := debugbuild.Stack(); s != nil {
		token.msg += "\nObject created by " + string(s)
	}

	h := runtime.AddCleanup(obj, leaked, token)
	token.h.Store(&h)
}

// Untrack stops tracking the lifetime of an object.
//
// It is safe to call it multiple times, including concurrently.
func Untrack[T any](obj *T, token *Token) {
	checkArgs(obj, token)

	h := token.h.Swap(nil)
	if h == nil {
		return
	}

	h.Stop()

	if p := pprof.Lookup(profileName(obj)); p != nil {
		p.Remove(token)
	}
}

// checkArgs panics on invalid Track and Untrack arguments.
func checkArgs(obj any, token *Token) {
	if obj == nil {
		panic("obj must not be nil")
	}

	if token == nil {
		panic("token must not be nil")
	}

	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("obj must be a pointer to struct, got %T", obj))
	}

	f := v.Elem().FieldByName("token")
	if f.Kind() != reflect.Ptr || f.UnsafePointer() != unsafe.Pointer(token) {
		panic("token must be a pointer field of a struct")
	}
}
