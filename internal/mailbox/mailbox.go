// Package mailbox is the reference out-of-band transport: a fixed-depth
// queue of parameter-block frames crossing from the non-secure domain
// into the secure one, bound to the dispatcher through the rpc slot.
//
// The non-secure side encodes a frame and signals; the secure side
// drains pending frames from the rpc slot's request handler, verifies
// each frame's integrity digest, derives the less-trusted level, and
// forwards through rpc.Dispatch inside a fault boundary. A frame that
// faults produces no reply: the remote caller observes only the absence
// of one.
package mailbox

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/kestrelfw/spm/internal/fault"
	"github.com/kestrelfw/spm/internal/log"
	"github.com/kestrelfw/spm/internal/rpc"
)

// DefaultDepth is the number of request slots a mailbox holds.
const DefaultDepth = 4

// ErrFull reports that every mailbox slot is occupied.
var ErrFull = errors.New("mailbox: all slots pending")

// Slot is one in-flight out-of-band request. It doubles as the opaque
// owner token a reply is addressed to.
type Slot struct {
	frame []byte
	reply chan int32

	once sync.Once
}

// Reply is the channel the originating caller receives its result on.
// A request that faulted never delivers.
func (s *Slot) Reply() <-chan int32 {
	return s.reply
}

func (s *Slot) deliver(result int32) {
	s.once.Do(func() {
		s.reply <- result
		close(s.reply)
	})
}

// Mailbox is the shared slot queue between the two domains.
type Mailbox struct {
	pending chan *Slot
}

// New creates a mailbox with the given slot depth.
func New(depth int) *Mailbox {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Mailbox{pending: make(chan *Slot, depth)}
}

// Send queues one request frame from the non-secure side and signals the
// secure side. The returned slot's Reply channel yields the result, if
// the request survives validation.
func (m *Mailbox) Send(op rpc.Op, p *rpc.Params) (*Slot, error) {
	s := &Slot{
		frame: EncodeFrame(op, p),
		reply: make(chan int32, 1),
	}
	select {
	case m.pending <- s:
	default:
		return nil, ErrFull
	}

	// Raise the "doorbell": in hardware this is an inter-core interrupt;
	// here it call-throughs the rpc slot on the sender's goroutine.
	rpc.HandleRequest()
	return s, nil
}

// FaultHook is invoked when an out-of-band request terminates the serving
// context, after the fault has been logged. Used to journal violations.
type FaultHook func(op rpc.Op, p *rpc.Params, f *fault.Fault)

// Service is the secure-side end of the mailbox.
type Service struct {
	mb      *Mailbox
	cc      rpc.ClientCalls
	onFault FaultHook
	logger  *slog.Logger
}

// NewService wires the secure side of a mailbox to the client-call
// surface. onFault may be nil.
func NewService(mb *Mailbox, cc rpc.ClientCalls, onFault FaultHook) *Service {
	return &Service{
		mb:      mb,
		cc:      cc,
		onFault: onFault,
		logger:  log.WithComponent("mailbox"),
	}
}

// Bind registers the service with the rpc slot. It fails if another
// transport is already bound.
func (s *Service) Bind() error {
	return rpc.Register(&rpc.Ops{
		HandleRequest: s.handlePending,
		Reply:         s.deliverReply,
	})
}

// Unbind restores the rpc slot defaults.
func (s *Service) Unbind() {
	rpc.Unregister()
}

// handlePending drains every pending slot. Each frame is verified and
// dispatched inside its own fault boundary, so one hostile frame cannot
// take later ones down with it.
func (s *Service) handlePending() {
	for {
		select {
		case slot := <-s.mb.pending:
			s.serve(slot)
		default:
			return
		}
	}
}

func (s *Service) serve(slot *Slot) {
	op, p, err := DecodeFrame(slot.frame)
	if err != nil {
		// Not a decodable request; there is no caller worth replying to.
		s.logger.Warn("dropping mailbox frame", "error", err)
		return
	}

	f := fault.Boundary(func() {
		result := rpc.Dispatch(s.cc, op, p, true)
		rpc.Reply(slot, result)
	})
	if f != nil {
		s.logger.Error("out-of-band caller terminated",
			"op", op.String(), "sid", p.SID, "handle", p.Handle, "fault", f.String())
		if s.onFault != nil {
			s.onFault(op, p, f)
		}
	}
}

// deliverReply resolves the opaque owner token back to its slot.
func (s *Service) deliverReply(owner any, result int32) {
	slot, ok := owner.(*Slot)
	if !ok {
		s.logger.Error("reply for unknown owner token")
		return
	}
	slot.deliver(result)
}
