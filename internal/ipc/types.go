// Package ipc defines the wire-level types shared by the client-call
// dispatcher, the RPC indirection layer, and the out-of-band transports:
// trust levels, connection handles, status codes, I/O vector descriptors,
// and the message envelope handed to the service directory.
package ipc

// FrameworkVersion is the version of the client-call framework itself,
// reported independently of any per-service minor version.
const FrameworkVersion uint32 = 0x0100

// VersionNone is the sentinel returned by a version probe when the service
// does not exist or is not reachable at the caller's trust level.
const VersionNone uint32 = 0

// MaxIOVec is the platform maximum number of I/O vectors per call, counting
// inputs and outputs together. Sanitized request storage is sized to it.
const MaxIOVec = 4

// VecSize is the encoded size in bytes of one Vec in caller memory
// (two little-endian 64-bit words).
const VecSize = 16

// Handle names a live connection between a caller and a service.
type Handle int32

// NullHandle denotes "no connection". It is a legal, no-op argument to
// Close and the handle a connect message carries before a connection
// exists.
const NullHandle Handle = 0

// Status is the recoverable result of a connect or call request. Fatal
// validation failures never surface as a Status; they terminate the
// calling context instead.
type Status int32

const (
	StatusSuccess Status = 0
	// StatusBusy reports transient resource exhaustion; the caller may
	// retry.
	StatusBusy Status = -2
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// TrustLevel classifies the origin of one request. It is derived once,
// from the transport the request arrived on, and never re-derived
// mid-request.
type TrustLevel int

const (
	// TrustSecure marks a caller inside the secure domain.
	TrustSecure TrustLevel = iota
	// TrustNonSecure marks a less-trusted caller.
	TrustNonSecure
)

func (t TrustLevel) String() string {
	if t == TrustNonSecure {
		return "non-secure"
	}
	return "secure"
}

// Kind is the operation a message asks the service to perform.
type Kind int

const (
	KindConnect Kind = iota
	KindCall
	KindDisconnect
)

func (k Kind) String() string {
	switch k {
	case KindConnect:
		return "connect"
	case KindCall:
		return "call"
	case KindDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Vec describes one caller buffer: a base address and a length, both in
// the caller's address space. The dispatcher never dereferences a Vec
// before it has been boundary-checked.
type Vec struct {
	Base uint64
	Len  uint64
}

// VecRef names an array of Vec descriptors in caller memory. The span it
// covers (Count * VecSize bytes at Base) is itself subject to a boundary
// check before any descriptor is read out of it.
type VecRef struct {
	Base  uint64
	Count uint32
}

// Span returns the byte length of the referenced descriptor array.
func (r VecRef) Span() uint64 {
	return uint64(r.Count) * VecSize
}

// Message is a validated request envelope. In and Out hold the sanitized,
// dispatcher-owned copies of the caller's descriptors; CallerOut keeps the
// reference to the caller's original out-vector array so results can be
// written back to the true caller-visible location.
type Message struct {
	ID        string
	SID       uint32
	Handle    Handle
	Kind      Kind
	Trust     TrustLevel
	In        [MaxIOVec]Vec
	Out       [MaxIOVec]Vec
	InLen     uint32
	OutLen    uint32
	CallerOut VecRef
}
