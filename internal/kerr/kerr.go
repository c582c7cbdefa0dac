// Package kerr defines the kernel's recoverable error kinds and their
// negated-errno wire representation toward user space.
package kerr

import "fmt"

// Kind is one of the error kinds kernel boundaries may report.
type Kind int

const (
	// OutOfMemory: frame bitmap full, heap exhausted, or page-table
	// allocation failed.
	OutOfMemory Kind = iota
	// InvalidArgument: alignment, range, or filter violation; null
	// pointer where forbidden.
	InvalidArgument
	// NotPermitted: interrupt acquire without RPC bound; I/O acquire
	// without permission.
	NotPermitted
	// NotFound: no process with the given name or pid; no mapped
	// range at the given address.
	NotFound
	// AlreadyExists: shared-memory id collision; handler
	// re-registration.
	AlreadyExists
	// IOError: RPC transport failure, RPC-get-data failure.
	IOError
	// Again: transient scheduling failure (handler registration
	// could not bind).
	Again
	// NoMemory is distinct from OutOfMemory: userland buffer
	// allocation inside a handler failed.
	NoMemory
	// AlreadyMapped: map() called against a virtual address that is
	// already mapped in the target context.
	AlreadyMapped
)

// errno table, negated on the wire. Matches the POSIX values the
// syscall layer historically used for these kinds.
var errno = map[Kind]int32{
	OutOfMemory:     12, // ENOMEM
	InvalidArgument: 22, // EINVAL
	NotPermitted:    1,  // EPERM
	NotFound:        2,  // ENOENT
	AlreadyExists:   17, // EEXIST
	IOError:         5,  // EIO
	Again:           11, // EAGAIN
	NoMemory:        12, // ENOMEM (distinct kind, same wire errno)
	AlreadyMapped:   17, // EEXIST
}

var name = map[Kind]string{
	OutOfMemory:     "out of memory",
	InvalidArgument: "invalid argument",
	NotPermitted:    "not permitted",
	NotFound:        "not found",
	AlreadyExists:   "already exists",
	IOError:         "i/o error",
	Again:           "resource temporarily unavailable",
	NoMemory:        "no memory",
	AlreadyMapped:   "already mapped",
}

// Error is the concrete error type kernel subsystems return. It
// carries the kind plus an optional static message for diagnostics;
// only the kind crosses the syscall boundary.
type Error struct {
	Kind Kind
	Msg  string
}

func New(k Kind, msg string) *Error {
	return &Error{Kind: k, Msg: msg}
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return name[e.Kind]
	}
	return fmt.Sprintf("%s: %s", name[e.Kind], e.Msg)
}

// Negate returns the wire value a syscall handler writes back via
// populate_error: the negated errno for e's kind.
func (e *Error) Negate() int32 {
	return -errno[e.Kind]
}

// Is reports whether err is a *Error of kind k.
func Is(err error, k Kind) bool {
	ke, ok := err.(*Error)
	return ok && ke.Kind == k
}
