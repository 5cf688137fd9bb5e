// Package mem implements the memory-side collaborators of the client-call
// dispatcher: the boundary predicate that decides whether an address range
// is legal at a caller's trust level, and a byte-backed arena standing in
// for shared caller memory so descriptor arrays can be snapshot-read.
package mem

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/kestrelfw/spm/internal/ipc"
)

// RegionSpec declares one address region and the weakest trust level
// allowed to touch it.
type RegionSpec struct {
	Name      string
	Base      uint64
	Size      uint64
	NonSecure bool
}

type region struct {
	RegionSpec
	data []byte
}

// Arena is a region table with byte backing. It implements both the
// boundary check and the snapshot read primitive consumed by the
// dispatcher.
type Arena struct {
	mu      sync.RWMutex
	regions []*region
}

// NewArena builds an arena from the given specs. Regions must not overlap
// and must not wrap the address space.
func NewArena(specs []RegionSpec) (*Arena, error) {
	regions := make([]*region, 0, len(specs))
	for _, s := range specs {
		if s.Size == 0 {
			return nil, fmt.Errorf("region %q has zero size", s.Name)
		}
		if s.Base+s.Size < s.Base {
			return nil, fmt.Errorf("region %q wraps the address space", s.Name)
		}
		regions = append(regions, &region{RegionSpec: s, data: make([]byte, s.Size)})
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Base < regions[j].Base })
	for i := 1; i < len(regions); i++ {
		prev, cur := regions[i-1], regions[i]
		if prev.Base+prev.Size > cur.Base {
			return nil, fmt.Errorf("regions %q and %q overlap", prev.Name, cur.Name)
		}
	}
	return &Arena{regions: regions}, nil
}

// CheckRange reports whether [base, base+length) lies entirely inside one
// region legal at the given trust level. A zero-length range is always
// legal. Secure callers may reach every region; non-secure callers only
// regions marked non-secure.
func (a *Arena) CheckRange(base, length uint64, trust ipc.TrustLevel) bool {
	if length == 0 {
		return true
	}
	if base+length < base {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	r := a.find(base)
	if r == nil {
		return false
	}
	if base+length > r.Base+r.Size {
		return false
	}
	if trust == ipc.TrustNonSecure && !r.NonSecure {
		return false
	}
	return true
}

// ReadVecs decodes n I/O vector descriptors starting at base. The whole
// array is copied out under the arena lock, so the result is a snapshot
// immune to concurrent writers.
func (a *Arena) ReadVecs(base uint64, n int) ([]ipc.Vec, error) {
	if n == 0 {
		return nil, nil
	}
	raw, err := a.Read(base, uint64(n)*ipc.VecSize)
	if err != nil {
		return nil, err
	}
	vecs := make([]ipc.Vec, n)
	for i := range vecs {
		off := i * ipc.VecSize
		vecs[i].Base = binary.LittleEndian.Uint64(raw[off:])
		vecs[i].Len = binary.LittleEndian.Uint64(raw[off+8:])
	}
	return vecs, nil
}

// Read copies length bytes starting at base out of the arena.
func (a *Arena) Read(base, length uint64) ([]byte, error) {
	if base+length < base {
		return nil, fmt.Errorf("read [%#x, +%d) wraps the address space", base, length)
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	r := a.find(base)
	if r == nil || base+length > r.Base+r.Size {
		return nil, fmt.Errorf("read [%#x, +%d) outside any region", base, length)
	}
	out := make([]byte, length)
	copy(out, r.data[base-r.Base:])
	return out, nil
}

// Write copies data into the arena at base.
func (a *Arena) Write(base uint64, data []byte) error {
	if base+uint64(len(data)) < base {
		return fmt.Errorf("write [%#x, +%d) wraps the address space", base, len(data))
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	r := a.find(base)
	if r == nil || base+uint64(len(data)) > r.Base+r.Size {
		return fmt.Errorf("write [%#x, +%d) outside any region", base, len(data))
	}
	copy(r.data[base-r.Base:], data)
	return nil
}

// WriteVecs encodes descriptors at base, the inverse of ReadVecs.
func (a *Arena) WriteVecs(base uint64, vecs []ipc.Vec) error {
	raw := make([]byte, len(vecs)*ipc.VecSize)
	for i, v := range vecs {
		off := i * ipc.VecSize
		binary.LittleEndian.PutUint64(raw[off:], v.Base)
		binary.LittleEndian.PutUint64(raw[off+8:], v.Len)
	}
	return a.Write(base, raw)
}

// find returns the region containing base, or nil. Callers hold the lock.
func (a *Arena) find(base uint64) *region {
	i := sort.Search(len(a.regions), func(i int) bool {
		return a.regions[i].Base+a.regions[i].Size > base
	})
	if i == len(a.regions) || base < a.regions[i].Base {
		return nil
	}
	return a.regions[i]
}
