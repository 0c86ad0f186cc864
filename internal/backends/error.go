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

import (
	"errors"
	"fmt"
)

// ErrorCode represent a backend error code.
type ErrorCode int

// Error codes.
const (
	_ ErrorCode = iota

	ErrorCodeBackendClosed
	ErrorCodeFileDoesNotExist
	ErrorCodeInvalidLocation
	ErrorCodeReadOnly
)

// String implements fmt.Stringer.
func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeBackendClosed:
		return "ErrorCodeBackendClosed"
	case ErrorCodeFileDoesNotExist:
		return "ErrorCodeFileDoesNotExist"
	case ErrorCodeInvalidLocation:
		return "ErrorCodeInvalidLocation"
	case ErrorCodeReadOnly:
		return "ErrorCodeReadOnly"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// Error represents a backend error returned by Backend methods and constructors.
type Error struct {
	// This internal error exists only for debugging.
	// It may be nil.
	err error

	code ErrorCode
}

// NewError creates a new backend error.
//
// Code must not be 0. Err may be nil.
func NewError(code ErrorCode, err error) *Error {
	if code == 0 {
		panic("backends.NewError: code must not be 0")
	}

	return &Error{
		code: code,
		err:  err,
	}
}

// Code returns the error code.
func (err *Error) Code() ErrorCode {
	return err.code
}

// Error implements error interface.
func (err *Error) Error() string {
	if err.err == nil {
		return err.code.String()
	}

	return fmt.Sprintf("%s: %s", err.code, err.err)
}

// Unwrap returns the internal error.
func (err *Error) Unwrap() error {
	return err.err
}

// ErrorCodeIs returns true if err is *Error with one of the given error codes.
//
// At least one error code must be given.
func ErrorCodeIs(err error, code ErrorCode, codes ...ErrorCode) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	if e.code == code {
		return true
	}

	for _, c := range codes {
		if e.code == c {
			return true
		}
	}

	return false
}
