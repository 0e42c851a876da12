package domain

import (
	"fmt"
	"strings"
)

// ErrorCode classifies a per-element batch failure. The set is closed
// and wire-stable; additions are append-only.
type ErrorCode int

const (
	ErrorCodeUnknown ErrorCode = iota
	ErrorCodeInvalidEntityReference
	ErrorCodeMalformedEntityReference
	ErrorCodeEntityResolutionError
	ErrorCodeEntityAccessError
	ErrorCodeInvalidPreflightHint
	ErrorCodeInvalidTraitSet
)

func (c ErrorCode) Name() string {
	switch c {
	case ErrorCodeUnknown:
		return "unknown"
	case ErrorCodeInvalidEntityReference:
		return "invalidEntityReference"
	case ErrorCodeMalformedEntityReference:
		return "malformedEntityReference"
	case ErrorCodeEntityResolutionError:
		return "entityResolutionError"
	case ErrorCodeEntityAccessError:
		return "entityAccessError"
	case ErrorCodeInvalidPreflightHint:
		return "invalidPreflightHint"
	case ErrorCodeInvalidTraitSet:
		return "invalidTraitSet"
	default:
		return "unknown"
	}
}

// BatchElementError describes the failure of one element within a
// batch. Pure data; compared by (code, message) equality.
type BatchElementError struct {
	Code    ErrorCode
	Message string
}

// BatchElementException surfaces a BatchElementError as a Go error
// under the exception policy. It records which batch element failed
// and, where known, the access mode and entity reference involved.
type BatchElementException struct {
	Index int
	Err   BatchElementError

	message string
}

// NewBatchElementException builds the exception for element index. The
// access and entity arguments are optional context; pass nil to omit
// the corresponding message segment.
func NewBatchElementException(index int, err BatchElementError, access *Access, entity *EntityReference) *BatchElementException {
	var sb strings.Builder
	sb.WriteString(err.Code.Name())
	sb.WriteString(":")
	if err.Message != "" {
		sb.WriteString(" ")
		sb.WriteString(err.Message)
	}
	fmt.Fprintf(&sb, " [index=%d]", index)
	if access != nil {
		fmt.Fprintf(&sb, " [access=%s]", access.Name())
	}
	if entity != nil {
		fmt.Fprintf(&sb, " [entity=%s]", entity.String())
	}
	return &BatchElementException{Index: index, Err: err, message: sb.String()}
}

func (e *BatchElementException) Error() string { return e.message }

// Outcome is the two-state variant used by the variant policy: exactly
// one of Value or Error is meaningful, selected by Error being nil.
type Outcome[T any] struct {
	Value T
	Error *BatchElementError
}

func SuccessOutcome[T any](value T) Outcome[T] {
	return Outcome[T]{Value: value}
}

func ErrorOutcome[T any](err BatchElementError) Outcome[T] {
	return Outcome[T]{Error: &err}
}
