// Package rpc decouples the dispatcher from the transport that delivers
// out-of-band requests. A process-wide slot holds one pair of callbacks:
// one invoked when a transport signals an arrived request, one invoked to
// deliver a reply back to an out-of-band caller. Before any transport
// binds, both are safe no-ops.
package rpc

import (
	"errors"
	"sync"
)

var (
	// ErrInvalidParams reports a nil ops struct or a missing callback.
	ErrInvalidParams = errors.New("rpc: invalid ops")
	// ErrConflict reports that a transport is already bound. One and only
	// one transport may be registered at a time.
	ErrConflict = errors.New("rpc: ops already registered")
)

// Ops is the callback pair a transport registers.
type Ops struct {
	// HandleRequest drains the transport's pending requests and feeds
	// them through the client-call entry points.
	HandleRequest func()
	// Reply delivers a result code to the out-of-band caller identified
	// by the opaque owner token.
	Reply func(owner any, result int32)
}

func defaultHandleRequest() {}

func defaultReply(owner any, result int32) {}

var slot = struct {
	sync.Mutex
	handleRequest func()
	reply         func(owner any, result int32)
	bound         bool
}{
	handleRequest: defaultHandleRequest,
	reply:         defaultReply,
}

// Register installs the transport callbacks. It fails with ErrConflict if
// a transport is already bound; the slot has exactly two states, default
// and bound.
func Register(ops *Ops) error {
	if ops == nil || ops.HandleRequest == nil || ops.Reply == nil {
		return ErrInvalidParams
	}

	slot.Lock()
	defer slot.Unlock()

	if slot.bound {
		return ErrConflict
	}
	slot.handleRequest = ops.HandleRequest
	slot.reply = ops.Reply
	slot.bound = true
	return nil
}

// Unregister restores the no-op defaults. It is idempotent.
func Unregister() {
	slot.Lock()
	defer slot.Unlock()

	slot.handleRequest = defaultHandleRequest
	slot.reply = defaultReply
	slot.bound = false
}

// HandleRequest invokes the bound request handler. The platform's event
// path calls it when a transport signals arrival; with no transport bound
// it does nothing.
func HandleRequest() {
	slot.Lock()
	h := slot.handleRequest
	slot.Unlock()
	h()
}

// Reply invokes the bound reply handler with an opaque owner token and a
// result code.
func Reply(owner any, result int32) {
	slot.Lock()
	r := slot.reply
	slot.Unlock()
	r(owner, result)
}
