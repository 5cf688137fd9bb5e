package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelfw/spm/internal/ipc"
)

func testArena(t *testing.T) *Arena {
	t.Helper()
	a, err := NewArena([]RegionSpec{
		{Name: "secure-ram", Base: 0x1000, Size: 0x1000, NonSecure: false},
		{Name: "shared-ram", Base: 0x8000, Size: 0x2000, NonSecure: true},
	})
	require.NoError(t, err)
	return a
}

func TestNewArenaRejectsOverlap(t *testing.T) {
	t.Parallel()

	_, err := NewArena([]RegionSpec{
		{Name: "a", Base: 0x1000, Size: 0x1000},
		{Name: "b", Base: 0x1800, Size: 0x1000},
	})
	assert.Error(t, err)
}

func TestCheckRange(t *testing.T) {
	t.Parallel()

	a := testArena(t)

	tests := []struct {
		name   string
		base   uint64
		length uint64
		trust  ipc.TrustLevel
		want   bool
	}{
		{"zero length always legal", 0, 0, ipc.TrustNonSecure, true},
		{"shared region ns caller", 0x8000, 16, ipc.TrustNonSecure, true},
		{"secure region ns caller", 0x1000, 16, ipc.TrustNonSecure, false},
		{"secure region secure caller", 0x1000, 16, ipc.TrustSecure, true},
		{"range crosses region end", 0x9ff0, 32, ipc.TrustNonSecure, false},
		{"unmapped address", 0x4000, 8, ipc.TrustSecure, false},
		{"wrapping range", ^uint64(0) - 4, 16, ipc.TrustSecure, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.CheckRange(tt.base, tt.length, tt.trust))
		})
	}
}

func TestReadVecsRoundTrip(t *testing.T) {
	t.Parallel()

	a := testArena(t)
	vecs := []ipc.Vec{{Base: 0x8100, Len: 32}, {Base: 0x8200, Len: 64}}
	require.NoError(t, a.WriteVecs(0x8000, vecs))

	got, err := a.ReadVecs(0x8000, 2)
	require.NoError(t, err)
	assert.Equal(t, vecs, got)
}

func TestReadVecsSnapshotIsolation(t *testing.T) {
	t.Parallel()

	a := testArena(t)
	require.NoError(t, a.WriteVecs(0x8000, []ipc.Vec{{Base: 0x8100, Len: 32}}))

	snap, err := a.ReadVecs(0x8000, 1)
	require.NoError(t, err)

	// Mutating the arena after the read must not change the snapshot.
	require.NoError(t, a.WriteVecs(0x8000, []ipc.Vec{{Base: 0x1000, Len: 4096}}))
	assert.Equal(t, ipc.Vec{Base: 0x8100, Len: 32}, snap[0])
}

func TestReadOutsideRegionFails(t *testing.T) {
	t.Parallel()

	a := testArena(t)
	_, err := a.ReadVecs(0x4000, 1)
	assert.Error(t, err)
}

func TestReadWriteRejectWrappingRange(t *testing.T) {
	t.Parallel()

	a := testArena(t)

	// A length that wraps base past the top of the address space must be
	// refused, not allocated.
	_, err := a.Read(0x8000, ^uint64(0))
	assert.Error(t, err)

	err = a.Write(^uint64(0), []byte{1, 2})
	assert.Error(t, err)
}
