package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelfw/spm/internal/ipc"
)

func validOps(handled, replied *int) *Ops {
	return &Ops{
		HandleRequest: func() { *handled++ },
		Reply:         func(owner any, result int32) { *replied++ },
	}
}

func TestRegisterRejectsMissingCallbacks(t *testing.T) {
	t.Cleanup(Unregister)

	assert.ErrorIs(t, Register(nil), ErrInvalidParams)
	assert.ErrorIs(t, Register(&Ops{}), ErrInvalidParams)
	assert.ErrorIs(t, Register(&Ops{HandleRequest: func() {}}), ErrInvalidParams)
	assert.ErrorIs(t, Register(&Ops{Reply: func(any, int32) {}}), ErrInvalidParams)
}

func TestRegisterConflictsWhileBound(t *testing.T) {
	t.Cleanup(Unregister)

	var handled, replied int
	require.NoError(t, Register(validOps(&handled, &replied)))
	assert.ErrorIs(t, Register(validOps(&handled, &replied)), ErrConflict)

	// Unregister then register succeeds.
	Unregister()
	assert.NoError(t, Register(validOps(&handled, &replied)))
}

func TestUnregisterIsIdempotent(t *testing.T) {
	t.Cleanup(Unregister)

	Unregister()
	Unregister()

	// Defaults installed: call-throughs do nothing and do not panic.
	HandleRequest()
	Reply("owner", 0)
}

func TestCallThroughUsesBoundOps(t *testing.T) {
	t.Cleanup(Unregister)

	var handled, replied int
	require.NoError(t, Register(validOps(&handled, &replied)))

	HandleRequest()
	HandleRequest()
	Reply("owner", -1)

	assert.Equal(t, 2, handled)
	assert.Equal(t, 1, replied)

	// After unregister the counters stop moving.
	Unregister()
	HandleRequest()
	Reply("owner", 0)
	assert.Equal(t, 2, handled)
	assert.Equal(t, 1, replied)
}

// recordingCalls records which client-call entry point a dispatched block
// reached, with which arguments.
type recordingCalls struct {
	op      string
	sid     uint32
	minor   uint32
	handle  ipc.Handle
	in, out ipc.VecRef
	trust   ipc.TrustLevel
}

func (r *recordingCalls) FrameworkVersion() uint32 {
	r.op = "framework-version"
	return ipc.FrameworkVersion
}

func (r *recordingCalls) Version(sid uint32, trust ipc.TrustLevel) uint32 {
	r.op, r.sid, r.trust = "version", sid, trust
	return 2
}

func (r *recordingCalls) Connect(sid, minor uint32, trust ipc.TrustLevel) ipc.Status {
	r.op, r.sid, r.minor, r.trust = "connect", sid, minor, trust
	return ipc.StatusSuccess
}

func (r *recordingCalls) Call(h ipc.Handle, in, out ipc.VecRef, trust ipc.TrustLevel) ipc.Status {
	r.op, r.handle, r.in, r.out, r.trust = "call", h, in, out, trust
	return ipc.StatusSuccess
}

func (r *recordingCalls) Close(h ipc.Handle, trust ipc.TrustLevel) {
	r.op, r.handle, r.trust = "close", h, trust
}

func TestDispatchForwardsParams(t *testing.T) {
	t.Parallel()

	t.Run("version", func(t *testing.T) {
		cc := &recordingCalls{}
		got := Dispatch(cc, OpVersion, &Params{SID: 7}, true)
		assert.Equal(t, int32(2), got)
		assert.Equal(t, "version", cc.op)
		assert.Equal(t, uint32(7), cc.sid)
		assert.Equal(t, ipc.TrustNonSecure, cc.trust)
	})

	t.Run("connect", func(t *testing.T) {
		cc := &recordingCalls{}
		got := Dispatch(cc, OpConnect, &Params{SID: 7, Version: 2}, false)
		assert.Equal(t, int32(ipc.StatusSuccess), got)
		assert.Equal(t, "connect", cc.op)
		assert.Equal(t, uint32(2), cc.minor)
		assert.Equal(t, ipc.TrustSecure, cc.trust)
	})

	t.Run("call", func(t *testing.T) {
		cc := &recordingCalls{}
		in := ipc.VecRef{Base: 0x8000, Count: 1}
		out := ipc.VecRef{Base: 0x8100, Count: 2}
		got := Dispatch(cc, OpCall, &Params{Handle: 3, In: in, Out: out}, true)
		assert.Equal(t, int32(ipc.StatusSuccess), got)
		assert.Equal(t, "call", cc.op)
		assert.Equal(t, in, cc.in)
		assert.Equal(t, out, cc.out)
	})

	t.Run("close", func(t *testing.T) {
		cc := &recordingCalls{}
		got := Dispatch(cc, OpClose, &Params{Handle: 3}, true)
		assert.Equal(t, int32(ipc.StatusSuccess), got)
		assert.Equal(t, "close", cc.op)
		assert.Equal(t, ipc.Handle(3), cc.handle)
	})

	t.Run("unknown op faults", func(t *testing.T) {
		cc := &recordingCalls{}
		assert.Panics(t, func() { Dispatch(cc, Op(99), &Params{}, true) })
	})
}
