// Copyright (c) 2015-2021 MinIO, Inc.
//
// This file is part of MinIO Object Storage stack
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package engine

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies an engine error for HTTP status mapping and logging
// policy.
type Kind int

// Enum of engine error kinds.
const (
	KindUnknown Kind = iota
	KindBucketNotFound
	KindNotFound
	KindBucketExists
	KindDuplicateContent
	KindHolderHasReferences
	KindInvalidKey
	KindInvalidETag
	KindInvalidCustomMetadata
	KindInvalidDedupMode
	KindInvalidMultipart
	KindInvalidRequest
	KindPayloadTooLarge
	KindIoError
	KindCorruptMetadata
)

func (k Kind) String() string {
	switch k {
	case KindBucketNotFound:
		return "BucketNotFound"
	case KindNotFound:
		return "NotFound"
	case KindBucketExists:
		return "BucketExists"
	case KindDuplicateContent:
		return "DuplicateContent"
	case KindHolderHasReferences:
		return "HolderHasReferences"
	case KindInvalidKey:
		return "InvalidKey"
	case KindInvalidETag:
		return "InvalidETag"
	case KindInvalidCustomMetadata:
		return "InvalidCustomMetadata"
	case KindInvalidDedupMode:
		return "InvalidDedupMode"
	case KindInvalidMultipart:
		return "InvalidMultipart"
	case KindInvalidRequest:
		return "InvalidRequest"
	case KindPayloadTooLarge:
		return "PayloadTooLarge"
	case KindIoError:
		return "IoError"
	case KindCorruptMetadata:
		return "CorruptMetadata"
	default:
		return "Unknown"
	}
}

// Error is the engine's single error type. Callers type-assert on Kind
// rather than comparing error values directly.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind.String()
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// newErr builds a validation-style error with no underlying cause.
func newErr(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewInvalidRequest builds a malformed-request error for use at the
// HTTP boundary, before any engine-level validation runs.
func NewInvalidRequest(format string, args ...interface{}) *Error {
	return newErr(KindInvalidRequest, format, args...)
}

// wrapIoErr wraps a filesystem error, preserving its stack via pkg/errors
// so a logged repair hint can point at the originating call site.
func wrapIoErr(cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindIoError,
		Message: fmt.Sprintf(format, args...),
		cause:   pkgerrors.WithStack(cause),
	}
}

// wrapCorrupt flags a runtime invariant violation. These must abort the
// operation rather than silently paper over the inconsistency.
func wrapCorrupt(cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindCorruptMetadata,
		Message: fmt.Sprintf(format, args...),
		cause:   pkgerrors.WithStack(cause),
	}
}

// KindOf extracts the Kind from err, or KindUnknown if err is not an
// *Error.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindUnknown
}
