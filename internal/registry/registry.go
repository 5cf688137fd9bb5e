// Package registry is the service directory: it owns the service
// descriptors, the connection-handle table, the message pool, and the
// enqueue/wake event path the dispatcher hands validated requests to.
package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/kestrelfw/spm/internal/client"
	"github.com/kestrelfw/spm/internal/events"
	"github.com/kestrelfw/spm/internal/ipc"
	"github.com/kestrelfw/spm/internal/log"
)

const (
	defaultQueueDepth = 8
	defaultPoolBudget = 32
)

// Service is one directory-owned descriptor plus its pending message
// queue. It implements client.Service; the dispatcher borrows it per
// request and never keeps it.
type Service struct {
	spec  ServiceSpec
	queue []*ipc.Message
	depth int
}

func (s *Service) SID() uint32             { return s.spec.SID }
func (s *Service) Name() string            { return s.spec.Name }
func (s *Service) MinorVersion() uint32    { return s.spec.MinorVersion }
func (s *Service) NonSecureCallable() bool { return s.spec.NonSecure }

// Registry resolves service identifiers and connection handles, applies
// version policy, and owns message allocation and the wake path.
type Registry struct {
	mu       sync.Mutex
	services map[uint32]*Service
	handles  map[ipc.Handle]*Service
	next     ipc.Handle
	inFlight int
	budget   int

	hub    *events.Hub
	logger *slog.Logger
}

// Option tweaks registry construction.
type Option func(*Registry)

// WithPoolBudget bounds the number of in-flight messages across all
// services. Exhaustion surfaces as the busy path, never as a fault.
func WithPoolBudget(n int) Option {
	return func(r *Registry) { r.budget = n }
}

// New builds a registry from a validated manifest.
func New(m *Manifest, hub *events.Hub, opts ...Option) *Registry {
	r := &Registry{
		services: make(map[uint32]*Service, len(m.Services)),
		handles:  make(map[ipc.Handle]*Service),
		budget:   defaultPoolBudget,
		hub:      hub,
		logger:   log.WithComponent("registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, spec := range m.Services {
		if spec.VersionPolicy == "" {
			spec.VersionPolicy = PolicyStrict
		}
		depth := spec.QueueDepth
		if depth == 0 {
			depth = defaultQueueDepth
		}
		r.services[spec.SID] = &Service{spec: spec, depth: depth}
	}
	return r
}

// BySID resolves a service by identifier.
func (r *Registry) BySID(sid uint32) (client.Service, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.services[sid]
	if !ok {
		return nil, false
	}
	return svc, true
}

// ByHandle resolves the service owning a live connection handle.
func (r *Registry) ByHandle(h ipc.Handle) (client.Service, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.handles[h]
	if !ok {
		return nil, false
	}
	return svc, true
}

// VersionCompatible applies the service's version policy to a requested
// minor version.
func (r *Registry) VersionCompatible(svc client.Service, minor uint32) bool {
	s, ok := svc.(*Service)
	if !ok {
		return false
	}
	switch s.spec.VersionPolicy {
	case PolicyRelaxed:
		return minor <= s.spec.MinorVersion
	default:
		return minor == s.spec.MinorVersion
	}
}

// NewMessage allocates a message from the pool, or reports exhaustion.
// A bounced request is published on the hub so the journal sees the busy
// outcome, not just the successes.
func (r *Registry) NewMessage(svc client.Service, h ipc.Handle, kind ipc.Kind, trust ipc.TrustLevel) (*ipc.Message, bool) {
	r.mu.Lock()
	if r.inFlight >= r.budget {
		r.mu.Unlock()
		r.hub.Publish("message.busy", map[string]any{
			"sid":    svc.SID(),
			"kind":   kind.String(),
			"trust":  trust.String(),
			"handle": h,
		})
		return nil, false
	}
	r.inFlight++
	r.mu.Unlock()
	return &ipc.Message{
		ID:     uuid.NewString(),
		SID:    svc.SID(),
		Handle: h,
		Kind:   kind,
		Trust:  trust,
	}, true
}

// EnqueueAndWake appends a validated message to the owning service's
// queue and publishes a wake event for the service side. A refused
// message releases its pool slot; refusal must stay retryable.
func (r *Registry) EnqueueAndWake(svc client.Service, msg *ipc.Message) error {
	r.mu.Lock()
	s, ok := r.services[svc.SID()]
	if !ok {
		r.inFlight--
		r.mu.Unlock()
		return fmt.Errorf("sid %#x not in directory", svc.SID())
	}
	if len(s.queue) >= s.depth {
		r.inFlight--
		r.mu.Unlock()
		return fmt.Errorf("service %q queue full (%d pending)", s.spec.Name, s.depth)
	}
	s.queue = append(s.queue, msg)
	r.mu.Unlock()

	r.hub.Publish("message.enqueued", map[string]any{
		"msg_id": msg.ID,
		"sid":    msg.SID,
		"kind":   msg.Kind.String(),
		"trust":  msg.Trust.String(),
		"handle": msg.Handle,
	})
	return nil
}

// NextMessage pops the oldest pending message for a service, releasing
// its pool slot. The service side calls it when woken; it returns nil
// when the queue is empty.
func (r *Registry) NextMessage(sid uint32) *ipc.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.services[sid]
	if !ok || len(s.queue) == 0 {
		return nil
	}
	msg := s.queue[0]
	s.queue = s.queue[1:]
	r.inFlight--
	return msg
}

// AllocHandle issues a fresh connection handle owned by the service.
// The service side calls it while processing a connect message.
func (r *Registry) AllocHandle(sid uint32) (ipc.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.services[sid]
	if !ok {
		return ipc.NullHandle, fmt.Errorf("sid %#x not in directory", sid)
	}
	r.next++
	h := r.next
	r.handles[h] = svc
	r.logger.Debug("handle allocated", "sid", sid, "handle", h)
	return h, nil
}

// ReleaseHandle retires a connection handle. Releasing an unknown handle
// is a no-op; the service side may retire a connection it already tore
// down.
func (r *Registry) ReleaseHandle(h ipc.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, h)
}

// Snapshot reports directory state for the inspection surface.
func (r *Registry) Snapshot() []ServiceStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ServiceStatus, 0, len(r.services))
	for _, s := range r.services {
		open := 0
		for _, owner := range r.handles {
			if owner == s {
				open++
			}
		}
		out = append(out, ServiceStatus{
			SID:          s.spec.SID,
			Name:         s.spec.Name,
			MinorVersion: s.spec.MinorVersion,
			NonSecure:    s.spec.NonSecure,
			Pending:      len(s.queue),
			OpenHandles:  open,
		})
	}
	return out
}

// InFlight reports how many pool slots are currently held.
func (r *Registry) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight
}

// ServiceStatus is one row of the directory snapshot.
type ServiceStatus struct {
	SID          uint32 `json:"sid"`
	Name         string `json:"name"`
	MinorVersion uint32 `json:"minor_version"`
	NonSecure    bool   `json:"non_secure"`
	Pending      int    `json:"pending"`
	OpenHandles  int    `json:"open_handles"`
}
