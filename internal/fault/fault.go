// Package fault implements the termination discipline for trust-boundary
// violations. A detected violation must be unrecoverable by the violating
// caller: the validator raises a distinguished *Fault via panic, ordinary
// code never catches it, and only the runtime's fault boundary (the
// transport service loop or spmd itself) recovers it to tear down the
// offending caller context.
package fault

import "fmt"

// Code identifies the class of violation that raised a fault.
type Code int

const (
	// CodeUnknownService: a connect or call named a service identifier
	// that does not exist.
	CodeUnknownService Code = iota + 1
	// CodeUnauthorized: a less-trusted caller reached for a secure-only
	// service.
	CodeUnauthorized
	// CodeVersionMismatch: the requested minor version is incompatible
	// with the service's supported version.
	CodeVersionMismatch
	// CodeBadHandle: a handle that does not name a live connection.
	CodeBadHandle
	// CodeMemoryViolation: a pointer/length range is not legal at the
	// caller's trust level.
	CodeMemoryViolation
	// CodeVecOverflow: combined I/O vector count exceeds the platform
	// maximum.
	CodeVecOverflow
	// CodeEnqueueFailed: the event path refused a validated message.
	CodeEnqueueFailed
)

func (c Code) String() string {
	switch c {
	case CodeUnknownService:
		return "unknown-service"
	case CodeUnauthorized:
		return "unauthorized"
	case CodeVersionMismatch:
		return "version-mismatch"
	case CodeBadHandle:
		return "bad-handle"
	case CodeMemoryViolation:
		return "memory-violation"
	case CodeVecOverflow:
		return "vec-overflow"
	case CodeEnqueueFailed:
		return "enqueue-failed"
	default:
		return "unknown"
	}
}

// Fault is the panic value raised on a trust-boundary violation. It is not
// an error by design: recoverable conditions use ordinary error returns,
// and nothing below the runtime boundary should type-switch on Fault.
type Fault struct {
	Code   Code
	Detail string
}

func (f *Fault) String() string {
	return fmt.Sprintf("fault %s: %s", f.Code, f.Detail)
}

// Trapf raises a Fault. It never returns.
func Trapf(code Code, format string, args ...any) {
	panic(&Fault{Code: code, Detail: fmt.Sprintf(format, args...)})
}

// Boundary runs fn and converts a raised Fault into a returned *Fault.
// Panics that are not Faults propagate unchanged. Only runtime-level code
// (the mailbox service loop, spmd's caller-context teardown) may use it;
// service-level logic must not intercept faults.
func Boundary(fn func()) (f *Fault) {
	defer func() {
		if r := recover(); r != nil {
			if ft, ok := r.(*Fault); ok {
				f = ft
				return
			}
			panic(r)
		}
	}()
	fn()
	return nil
}
