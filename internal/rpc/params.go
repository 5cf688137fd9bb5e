package rpc

import (
	"github.com/kestrelfw/spm/internal/fault"
	"github.com/kestrelfw/spm/internal/ipc"
)

// Op selects which client-call operation a parameter block requests.
type Op uint8

const (
	OpFrameworkVersion Op = iota + 1
	OpVersion
	OpConnect
	OpCall
	OpClose
)

func (o Op) String() string {
	switch o {
	case OpFrameworkVersion:
		return "framework-version"
	case OpVersion:
		return "version"
	case OpConnect:
		return "connect"
	case OpCall:
		return "call"
	case OpClose:
		return "close"
	default:
		return "unknown"
	}
}

// Params bundles the arguments of one out-of-band client call into a
// single block, the shape a mailbox transport carries across domains.
// Unused fields are zero for operations that do not need them.
type Params struct {
	SID     uint32
	Version uint32
	Handle  ipc.Handle
	In      ipc.VecRef
	Out     ipc.VecRef
}

// ClientCalls is the public client-call surface the wrappers forward to.
// *client.Dispatcher implements it.
type ClientCalls interface {
	FrameworkVersion() uint32
	Version(sid uint32, trust ipc.TrustLevel) uint32
	Connect(sid, minor uint32, trust ipc.TrustLevel) ipc.Status
	Call(h ipc.Handle, in, out ipc.VecRef, trust ipc.TrustLevel) ipc.Status
	Close(h ipc.Handle, trust ipc.TrustLevel)
}

// TrustOf maps the transport's non-secure flag to a trust level. It is
// applied once per request; nothing downstream re-derives it.
func TrustOf(nsCaller bool) ipc.TrustLevel {
	if nsCaller {
		return ipc.TrustNonSecure
	}
	return ipc.TrustSecure
}

// Dispatch unpacks a parameter block and forwards it to the same entry
// points a direct in-process caller would use. The returned code is what
// a reply carries: the version value for probes, the status otherwise.
func Dispatch(cc ClientCalls, op Op, p *Params, nsCaller bool) int32 {
	trust := TrustOf(nsCaller)
	switch op {
	case OpFrameworkVersion:
		return int32(cc.FrameworkVersion())
	case OpVersion:
		return int32(cc.Version(p.SID, trust))
	case OpConnect:
		return int32(cc.Connect(p.SID, p.Version, trust))
	case OpCall:
		return int32(cc.Call(p.Handle, p.In, p.Out, trust))
	case OpClose:
		cc.Close(p.Handle, trust)
		return int32(ipc.StatusSuccess)
	default:
		// A transport only hands over blocks it already decoded, so an
		// unknown op is a malformed block from the far side.
		fault.Trapf(fault.CodeUnknownService, "unknown rpc op %d", op)
		return 0
	}
}
