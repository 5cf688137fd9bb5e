package client

import (
	"log/slog"

	"github.com/kestrelfw/spm/internal/fault"
	"github.com/kestrelfw/spm/internal/ipc"
	"github.com/kestrelfw/spm/internal/log"
)

// Service is the borrowed view of one service descriptor. The directory
// owns the descriptor; the dispatcher holds it only for the duration of a
// single request.
type Service interface {
	SID() uint32
	MinorVersion() uint32
	NonSecureCallable() bool
}

//go:generate mockgen -destination=mocks/mock_collaborators.go -package=mocks github.com/kestrelfw/spm/internal/client Service,Directory,Boundary,CallerMemory

// Directory resolves services, applies version policy, and owns the
// message factory and the enqueue/wake event path.
type Directory interface {
	BySID(sid uint32) (Service, bool)
	ByHandle(h ipc.Handle) (Service, bool)
	VersionCompatible(svc Service, minor uint32) bool
	// NewMessage returns false when the message pool is exhausted.
	NewMessage(svc Service, h ipc.Handle, kind ipc.Kind, trust ipc.TrustLevel) (*ipc.Message, bool)
	EnqueueAndWake(svc Service, msg *ipc.Message) error
}

// Boundary decides whether a whole address range is legal at a trust
// level.
type Boundary interface {
	CheckRange(base, length uint64, trust ipc.TrustLevel) bool
}

// CallerMemory reads descriptor arrays out of caller-shared memory. The
// returned slice must be a snapshot: later writes by the caller must not
// be visible through it.
type CallerMemory interface {
	ReadVecs(base uint64, n int) ([]ipc.Vec, error)
}

// Dispatcher validates client requests and hands them to the directory's
// event path. It runs to completion on the calling context and never
// blocks on the service side.
type Dispatcher struct {
	dir      Directory
	boundary Boundary
	mem      CallerMemory
	logger   *slog.Logger
}

// New creates a Dispatcher over the given collaborators.
func New(dir Directory, boundary Boundary, mem CallerMemory) *Dispatcher {
	return &Dispatcher{
		dir:      dir,
		boundary: boundary,
		mem:      mem,
		logger:   log.WithComponent("client"),
	}
}

// FrameworkVersion reports the version of the client-call framework.
func (d *Dispatcher) FrameworkVersion() uint32 {
	return ipc.FrameworkVersion
}

// Version looks up the minor version of a service. It returns VersionNone
// if the service does not exist, or exists but is not reachable at the
// caller's trust level. A version probe is never fatal.
func (d *Dispatcher) Version(sid uint32, trust ipc.TrustLevel) uint32 {
	svc, ok := d.dir.BySID(sid)
	if !ok {
		return ipc.VersionNone
	}
	if trust == ipc.TrustNonSecure && !svc.NonSecureCallable() {
		return ipc.VersionNone
	}
	return svc.MinorVersion()
}

// Connect validates a connection request and enqueues a connect message.
// A well-formed caller never names an unknown or unreachable service, so
// those are trust violations, not errors. The one recoverable outcome is
// StatusBusy when the message pool is exhausted; the connection handle
// itself is produced asynchronously by the service side.
func (d *Dispatcher) Connect(sid, minor uint32, trust ipc.TrustLevel) ipc.Status {
	svc, ok := d.dir.BySID(sid)
	if !ok {
		fault.Trapf(fault.CodeUnknownService, "connect to unknown sid %#x", sid)
	}
	if trust == ipc.TrustNonSecure && !svc.NonSecureCallable() {
		fault.Trapf(fault.CodeUnauthorized, "non-secure connect to secure-only sid %#x", sid)
	}
	if !d.dir.VersionCompatible(svc, minor) {
		fault.Trapf(fault.CodeVersionMismatch, "sid %#x: requested minor %d, supports %d", sid, minor, svc.MinorVersion())
	}

	// No input or output for a connect message; no connection exists yet.
	msg, ok := d.dir.NewMessage(svc, ipc.NullHandle, ipc.KindConnect, trust)
	if !ok {
		d.logger.Debug("connect rejected, message pool exhausted", "sid", sid)
		return ipc.StatusBusy
	}

	if err := d.dir.EnqueueAndWake(svc, msg); err != nil {
		d.logger.Warn("connect enqueue failed", "sid", sid, "error", err)
	}
	return ipc.StatusSuccess
}

// Call validates a call request against the trust boundary and enqueues a
// call message carrying a sanitized copy of the caller's descriptors.
//
// The descriptor arrays are checked and copied in two phases: first the
// range spanning each array, then, on the local snapshot only, the buffer
// range each element names. The snapshot between the phases closes the
// window in which the caller could swap descriptor contents after the
// array check.
func (d *Dispatcher) Call(h ipc.Handle, in, out ipc.VecRef, trust ipc.TrustLevel) ipc.Status {
	// Widen before adding so a hostile pair of counts cannot wrap.
	if uint64(in.Count)+uint64(out.Count) > ipc.MaxIOVec {
		fault.Trapf(fault.CodeVecOverflow, "%d in + %d out vectors exceeds %d", in.Count, out.Count, ipc.MaxIOVec)
	}

	svc, ok := d.dir.ByHandle(h)
	if !ok {
		fault.Trapf(fault.CodeBadHandle, "call on dead handle %d", h)
	}

	if !d.boundary.CheckRange(in.Base, in.Span(), trust) {
		fault.Trapf(fault.CodeMemoryViolation, "in-vec array [%#x, +%d) illegal for %s caller", in.Base, in.Span(), trust)
	}
	if !d.boundary.CheckRange(out.Base, out.Span(), trust) {
		fault.Trapf(fault.CodeMemoryViolation, "out-vec array [%#x, +%d) illegal for %s caller", out.Base, out.Span(), trust)
	}

	var invecs, outvecs [ipc.MaxIOVec]ipc.Vec
	d.snapshotVecs(invecs[:], in, trust)
	d.snapshotVecs(outvecs[:], out, trust)

	// Validate the buffers the snapshot names, never the caller's copy.
	for i := uint32(0); i < in.Count; i++ {
		if !d.boundary.CheckRange(invecs[i].Base, invecs[i].Len, trust) {
			fault.Trapf(fault.CodeMemoryViolation, "in vec %d [%#x, +%d) illegal for %s caller", i, invecs[i].Base, invecs[i].Len, trust)
		}
	}
	for i := uint32(0); i < out.Count; i++ {
		if !d.boundary.CheckRange(outvecs[i].Base, outvecs[i].Len, trust) {
			fault.Trapf(fault.CodeMemoryViolation, "out vec %d [%#x, +%d) illegal for %s caller", i, outvecs[i].Base, outvecs[i].Len, trust)
		}
	}

	msg, ok := d.dir.NewMessage(svc, h, ipc.KindCall, trust)
	if !ok {
		d.logger.Debug("call rejected, message pool exhausted", "sid", svc.SID(), "handle", h)
		return ipc.StatusBusy
	}
	msg.In = invecs
	msg.Out = outvecs
	msg.InLen = in.Count
	msg.OutLen = out.Count
	// Results are written back to the caller's original out-vec array.
	msg.CallerOut = out

	if err := d.dir.EnqueueAndWake(svc, msg); err != nil {
		fault.Trapf(fault.CodeEnqueueFailed, "sid %#x handle %d: %v", svc.SID(), h, err)
	}
	return ipc.StatusSuccess
}

// Close tears down a connection. Closing the null handle is a legal
// no-op; closing any other handle that does not name a live connection
// terminates the caller.
func (d *Dispatcher) Close(h ipc.Handle, trust ipc.TrustLevel) {
	if h == ipc.NullHandle {
		return
	}

	svc, ok := d.dir.ByHandle(h)
	if !ok {
		fault.Trapf(fault.CodeBadHandle, "close on dead handle %d", h)
	}

	// No input or output for a disconnect message.
	msg, ok := d.dir.NewMessage(svc, h, ipc.KindDisconnect, trust)
	if !ok {
		// Exhaustion is recoverable everywhere else; Close has no status
		// channel, so the disconnect is dropped and logged. The caller can
		// retry the close.
		d.logger.Warn("close dropped, message pool exhausted", "sid", svc.SID(), "handle", h)
		return
	}

	if err := d.dir.EnqueueAndWake(svc, msg); err != nil {
		d.logger.Warn("close enqueue failed", "sid", svc.SID(), "handle", h, "error", err)
	}
}

// snapshotVecs copies ref.Count descriptors into dst, which is zeroed
// fixed-capacity storage. Reading through CallerMemory is atomic with
// respect to the caller, so dst is immune to later mutation.
func (d *Dispatcher) snapshotVecs(dst []ipc.Vec, ref ipc.VecRef, trust ipc.TrustLevel) {
	if ref.Count == 0 {
		return
	}
	vecs, err := d.mem.ReadVecs(ref.Base, int(ref.Count))
	if err != nil {
		// The range passed the boundary check, so a failed read means the
		// caller's view and the region table disagree.
		fault.Trapf(fault.CodeMemoryViolation, "vec array [%#x, +%d) unreadable: %v", ref.Base, ref.Span(), err)
	}
	copy(dst, vecs)
}
