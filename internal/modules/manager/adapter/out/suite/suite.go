// Package suite is the in-process ABI bridge: a fixed table of
// function pointers bound to an opaque handle, through which a manager
// implementation built elsewhere can satisfy the ManagerInterface
// contract without sharing types beyond this package's wire surface.
// Failures cross the table as error codes plus a message written into a
// caller-owned fixed-capacity buffer, never as panics.
package suite

import (
	traitdomain "amio/internal/modules/trait/domain"
)

// ErrorCode is the wire-stable result of every suite function. The
// numeric values are frozen; additions are append-only.
type ErrorCode int

const (
	ErrorCodeOK             ErrorCode = 0
	ErrorCodeUnknown        ErrorCode = 1
	ErrorCodeException      ErrorCode = 2
	ErrorCodeNotImplemented ErrorCode = 3
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeOK:
		return "ok"
	case ErrorCodeUnknown:
		return "unknown"
	case ErrorCodeException:
		return "exception"
	case ErrorCodeNotImplemented:
		return "notImplemented"
	default:
		return "invalid"
	}
}

// DefaultCapacity is the buffer size callers allocate for error and
// return-value strings. Generous enough that truncation is rare.
const DefaultCapacity = 500

// StringView is a fixed-capacity byte buffer with an explicit used
// length: {capacity, data, size}. Writers fill at most capacity bytes
// and set the used size; content longer than capacity is truncated,
// never overflowed. The data is not null-terminated and size may be
// anything up to capacity.
type StringView struct {
	data []byte
	size int
}

func NewStringView(capacity int) *StringView {
	return &StringView{data: make([]byte, capacity)}
}

// Assign writes s into the buffer, truncating to capacity.
func (v *StringView) Assign(s string) {
	v.size = copy(v.data, s)
}

// String reads the used-length prefix of the buffer.
func (v *StringView) String() string {
	return string(v.data[:v.size])
}

func (v *StringView) Capacity() int { return len(v.data) }
func (v *StringView) Size() int     { return v.size }

// Handle is an opaque reference to bridge-side state. It is owned
// exclusively by the Adapter wrapping it and must only be given to
// functions of the suite it was issued with.
type Handle any

// V1 is the versioned function table for the manager identity surface.
// A breaking change to any signature requires a V2, never an in-place
// edit here. Batch and control methods are not bridged in V1; the
// consuming Adapter rejects them with a not-implemented error.
type V1 struct {
	Identifier  func(errMsg, out *StringView, h Handle) ErrorCode
	DisplayName func(errMsg, out *StringView, h Handle) ErrorCode
	Info        func(errMsg *StringView, out *traitdomain.InfoDictionary, h Handle) ErrorCode
	Dtor        func(h Handle)
}
