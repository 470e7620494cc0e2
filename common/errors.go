package common

import "fmt"

// Code classifies the failure kinds this core can surface. Most operations
// communicate failure via a plain bool or a nil/empty result (resource
// exhaustion, invalid operation, not found, duplicate); Code is reserved
// for failures that must propagate rather than degrade to a boolean:
// disk I/O failure, and structural corruption.
type Code int

const (
	// CodeIO indicates the underlying disk manager returned an error. This
	// core treats disk I/O failure as fatal at its abstraction level: it
	// does not retry, and the caller must decide how to recover.
	CodeIO Code = iota
	// CodeNotFound indicates a request for a page, block, or catalog entry
	// that does not exist.
	CodeNotFound
	// CodeCorrupt indicates a page-resident structure rejected an operation
	// or failed an internal consistency check (e.g. a catalog name that is
	// already registered, or a hash table resize that left no room for its
	// own collected pairs).
	CodeCorrupt
)

func (c Code) String() string {
	switch c {
	case CodeIO:
		return "IO"
	case CodeNotFound:
		return "NotFound"
	case CodeCorrupt:
		return "Corrupt"
	}
	return "Unknown"
}

// Error is the error type returned by the storage core's fatal paths.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap builds an Error of the given kind, wrapping an underlying cause.
func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// New builds an Error of the given kind with no wrapped cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}
