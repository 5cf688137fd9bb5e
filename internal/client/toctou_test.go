package client_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelfw/spm/internal/client"
	"github.com/kestrelfw/spm/internal/ipc"
)

// fakeCallerMem is caller-shared memory the test can rewrite mid-call,
// standing in for a hostile client racing the validator.
type fakeCallerMem struct {
	mu   sync.Mutex
	vecs map[uint64][]ipc.Vec
}

func (m *fakeCallerMem) ReadVecs(base uint64, n int) ([]ipc.Vec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ipc.Vec, n)
	copy(out, m.vecs[base])
	return out, nil
}

func (m *fakeCallerMem) rewrite(base uint64, vecs []ipc.Vec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vecs[base] = vecs
}

// hookedBoundary accepts every range, records what it was asked to check,
// and fires a hook on each check so the test can interleave a mutation.
type hookedBoundary struct {
	checks  []ipc.Vec
	onCheck func(base, length uint64)
}

func (b *hookedBoundary) CheckRange(base, length uint64, _ ipc.TrustLevel) bool {
	b.checks = append(b.checks, ipc.Vec{Base: base, Len: length})
	if b.onCheck != nil {
		b.onCheck(base, length)
	}
	return true
}

type stubService struct{}

func (stubService) SID() uint32             { return 7 }
func (stubService) MinorVersion() uint32    { return 2 }
func (stubService) NonSecureCallable() bool { return true }

type stubDirectory struct {
	enqueued []*ipc.Message
}

func (d *stubDirectory) BySID(uint32) (client.Service, bool) { return stubService{}, true }

func (d *stubDirectory) ByHandle(ipc.Handle) (client.Service, bool) { return stubService{}, true }

func (d *stubDirectory) VersionCompatible(client.Service, uint32) bool { return true }

func (d *stubDirectory) NewMessage(svc client.Service, h ipc.Handle, kind ipc.Kind, trust ipc.TrustLevel) (*ipc.Message, bool) {
	return &ipc.Message{SID: svc.SID(), Handle: h, Kind: kind, Trust: trust}, true
}

func (d *stubDirectory) EnqueueAndWake(_ client.Service, msg *ipc.Message) error {
	d.enqueued = append(d.enqueued, msg)
	return nil
}

// A caller that swaps its descriptor contents after the array-range check
// must not change which buffers get validated or forwarded: the
// dispatcher operates on its own snapshot, not the caller's array.
func TestCallValidatesSnapshotNotCallerArray(t *testing.T) {
	const arrayBase = 0x8000
	good := []ipc.Vec{{Base: 0x8100, Len: 32}, {Base: 0x8200, Len: 16}}
	evil := ipc.Vec{Base: 0x1000, Len: 4096} // secure memory the caller hopes to smuggle in

	mem := &fakeCallerMem{vecs: map[uint64][]ipc.Vec{arrayBase: good}}
	boundary := &hookedBoundary{}
	dir := &stubDirectory{}

	// The moment the first element buffer is checked, the caller rewrites
	// its descriptor array. The snapshot was already taken.
	boundary.onCheck = func(base, _ uint64) {
		if base == good[0].Base {
			mem.rewrite(arrayBase, []ipc.Vec{good[0], evil})
		}
	}

	d := client.New(dir, boundary, mem)
	got := d.Call(3, ipc.VecRef{Base: arrayBase, Count: 2}, ipc.VecRef{}, ipc.TrustNonSecure)
	require.Equal(t, ipc.StatusSuccess, got)

	for _, c := range boundary.checks {
		assert.NotEqual(t, evil.Base, c.Base, "dispatcher validated the caller's mutated descriptor")
	}

	require.Len(t, dir.enqueued, 1)
	msg := dir.enqueued[0]
	assert.Equal(t, good[0], msg.In[0])
	assert.Equal(t, good[1], msg.In[1], "forwarded descriptor must come from the snapshot")
}
