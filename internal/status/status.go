// Package status provides the three-state result envelope shared by every
// data source and repository call: a request is either still loading, has
// succeeded with data, or has failed with one of four canonical error kinds.
package status

import "fmt"

// ErrorKind classifies an expected failure. Every backend-specific error
// code a data source can observe maps to exactly one of these kinds; nothing
// backend-specific crosses the data source boundary.
type ErrorKind int

const (
	// NotFound means the entity or URI does not resolve.
	NotFound ErrorKind = iota + 1

	// IO means a transport or parse failure.
	IO

	// InvalidCredentials means the backend rejected authentication.
	InvalidCredentials

	// NotImplemented means the capability is absent on this backend.
	NotImplemented
)

// String returns the kind's name.
func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case IO:
		return "io"
	case InvalidCredentials:
		return "invalid_credentials"
	case NotImplemented:
		return "not_implemented"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// State is the coarse request state.
type State int

const (
	StateLoading State = iota
	StateSuccess
	StateError
)

// Status wraps the outcome of an asynchronous call. Loading may precede a
// terminal Success or Error any number of times as a query re-runs; once a
// terminal state is emitted for a request instance, no further state follows
// unless a new input re-triggers the query.
type Status[T any] struct {
	state State
	data  T
	kind  ErrorKind
	cause error
}

// Loading returns the in-progress state.
func Loading[T any]() Status[T] {
	return Status[T]{state: StateLoading}
}

// Success returns a terminal success carrying data.
func Success[T any](data T) Status[T] {
	return Status[T]{state: StateSuccess, data: data}
}

// Error returns a terminal failure of the given kind. cause may be nil.
func Error[T any](kind ErrorKind, cause error) Status[T] {
	return Status[T]{state: StateError, kind: kind, cause: cause}
}

// State returns the coarse request state.
func (s Status[T]) State() State {
	return s.state
}

// IsLoading reports whether the request is still in progress.
func (s Status[T]) IsLoading() bool {
	return s.state == StateLoading
}

// IsSuccess reports whether the request succeeded.
func (s Status[T]) IsSuccess() bool {
	return s.state == StateSuccess
}

// IsError reports whether the request failed.
func (s Status[T]) IsError() bool {
	return s.state == StateError
}

// Get returns the data and whether the status is a success.
func (s Status[T]) Get() (T, bool) {
	return s.data, s.state == StateSuccess
}

// Data returns the carried data; the zero value unless IsSuccess.
func (s Status[T]) Data() T {
	return s.data
}

// Kind returns the error kind; zero unless IsError.
func (s Status[T]) Kind() ErrorKind {
	return s.kind
}

// Cause returns the underlying error, if any was attached.
func (s Status[T]) Cause() error {
	return s.cause
}

// Map converts a success value to another type, passing loading and error
// states through unchanged.
func Map[T, R any](s Status[T], f func(T) R) Status[R] {
	switch s.state {
	case StateSuccess:
		return Success(f(s.data))
	case StateError:
		return Error[R](s.kind, s.cause)
	default:
		return Loading[R]()
	}
}

// Convert re-wraps a failed or loading status with a new data type. It
// panics on success states; use Map for those.
func Convert[T, R any](s Status[T]) Status[R] {
	switch s.state {
	case StateError:
		return Error[R](s.kind, s.cause)
	case StateLoading:
		return Loading[R]()
	default:
		panic("status: Convert called on a success")
	}
}
