package mailbox

import (
	"encoding/binary"
	"errors"

	"github.com/zeebo/blake3"

	"github.com/kestrelfw/spm/internal/ipc"
	"github.com/kestrelfw/spm/internal/rpc"
)

// Frame layout, little-endian. The digest covers every preceding byte,
// so a block corrupted or forged in shared memory is rejected before any
// field is trusted.
//
//	offset size field
//	     0    4 magic
//	     4    1 op
//	     5    3 reserved (zero)
//	     8    4 sid
//	    12    4 version
//	    16    4 handle
//	    20    8 in-vec array base
//	    28    4 in-vec count
//	    32    8 out-vec array base
//	    40    4 out-vec count
//	    44   32 blake3 digest of bytes [0, 44)
const (
	frameMagic  uint32 = 0x53504d31 // "SPM1"
	headerSize         = 44
	FrameSize          = headerSize + 32
)

var (
	// ErrBadFrame reports a frame of the wrong size or magic.
	ErrBadFrame = errors.New("mailbox: malformed frame")
	// ErrBadDigest reports a frame whose integrity digest does not match.
	ErrBadDigest = errors.New("mailbox: frame digest mismatch")
)

// EncodeFrame packs one parameter block into a mailbox frame.
func EncodeFrame(op rpc.Op, p *rpc.Params) []byte {
	buf := make([]byte, FrameSize)
	binary.LittleEndian.PutUint32(buf[0:], frameMagic)
	buf[4] = byte(op)
	binary.LittleEndian.PutUint32(buf[8:], p.SID)
	binary.LittleEndian.PutUint32(buf[12:], p.Version)
	binary.LittleEndian.PutUint32(buf[16:], uint32(p.Handle))
	binary.LittleEndian.PutUint64(buf[20:], p.In.Base)
	binary.LittleEndian.PutUint32(buf[28:], p.In.Count)
	binary.LittleEndian.PutUint64(buf[32:], p.Out.Base)
	binary.LittleEndian.PutUint32(buf[40:], p.Out.Count)

	digest := blake3.Sum256(buf[:headerSize])
	copy(buf[headerSize:], digest[:])
	return buf
}

// DecodeFrame unpacks and verifies a mailbox frame. Nothing in the frame
// is used before the digest checks out.
func DecodeFrame(frame []byte) (rpc.Op, *rpc.Params, error) {
	if len(frame) != FrameSize {
		return 0, nil, ErrBadFrame
	}
	if binary.LittleEndian.Uint32(frame[0:]) != frameMagic {
		return 0, nil, ErrBadFrame
	}

	digest := blake3.Sum256(frame[:headerSize])
	if !digestEqual(digest[:], frame[headerSize:]) {
		return 0, nil, ErrBadDigest
	}

	op := rpc.Op(frame[4])
	p := &rpc.Params{
		SID:     binary.LittleEndian.Uint32(frame[8:]),
		Version: binary.LittleEndian.Uint32(frame[12:]),
		Handle:  ipc.Handle(binary.LittleEndian.Uint32(frame[16:])),
		In: ipc.VecRef{
			Base:  binary.LittleEndian.Uint64(frame[20:]),
			Count: binary.LittleEndian.Uint32(frame[28:]),
		},
		Out: ipc.VecRef{
			Base:  binary.LittleEndian.Uint64(frame[32:]),
			Count: binary.LittleEndian.Uint32(frame[40:]),
		},
	}
	return op, p, nil
}

func digestEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
