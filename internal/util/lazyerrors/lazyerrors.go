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

// Package lazyerrors wraps errors with the location of the wrapping call.
//
// It is used at package boundaries where defining a dedicated error type is not worth it.
package lazyerrors

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// located is an error annotated with a program counter of the call site.
type located struct {
	err error
	pc  uintptr
}

// Error implements error interface.
func (e *located) Error() string {
	return "[" + location(e.pc) + "] " + e.err.Error()
}

// Unwrap returns the wrapped error.
func (e *located) Unwrap() error {
	return e.err
}

// New returns a new error with the given message and the caller's location.
func New(msg string) error {
	return &located{err: errors.New(msg), pc: caller()}
}

// Error wraps err with the caller's location.
//
// It panics if err is nil.
func Error(err error) error {
	if err == nil {
		panic("lazyerrors.Error: err is nil")
	}

	return &located{err: err, pc: caller()}
}

// Errorf is [fmt.Errorf] with the caller's location.
func Errorf(format string, args ...any) error {
	return &located{err: fmt.Errorf(format, args...), pc: caller()}
}

// UnwrapAll returns the innermost error of the chain, or nil for nil error.
func UnwrapAll(err error) error {
	for err != nil {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}

		err = next
	}

	return nil
}

// caller returns the program counter of New/Error/Errorf caller.
func caller() uintptr {
	pcs := make([]uintptr, 1)
	if runtime.Callers(3, pcs) == 0 {
		return 0
	}

	return pcs[0]
}

// location formats pc as "file.go:line pkg.Func".
func location(pc uintptr) string {
	if pc == 0 {
		return "unknown"
	}

	f, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if f.File == "" {
		return "unknown"
	}

	res := filepath.Base(f.File) + ":" + strconv.Itoa(f.Line)

	if fn := f.Function; fn != "" {
		res += " " + fn[strings.LastIndex(fn, "/")+1:]
	}

	return res
}
