//go:generate go run go.uber.org/mock/mockgen -source=registry.go -destination=../mocks/mock_presence.go -package=mocks
// Package presence tracks which users currently hold live connections.
package presence

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"sync"
)

type IRegistry interface {
	Register(userID string, sink contract.EventSink) bool
	Deregister(userID string, sink contract.EventSink) bool
	AnyConnection(userID string) (contract.EventSink, bool)
	AllConnections(userID string) []contract.EventSink
	Broadcast(ctx context.Context, e event.DomainEvent)
	Online(userID string) bool
}

type sinkSet map[contract.EventSink]struct{}

// Registry maps a user to the set of its live connection sinks.
// The add/remove/emptiness sequence runs under one lock so concurrent
// connects and disconnects for the same user never produce lost or duplicate
// online/offline transitions.
type Registry struct {
	mu    sync.Mutex
	log   *slog.Logger
	conns map[string]sinkSet
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:   log,
		conns: make(map[string]sinkSet),
	}
}

// Register adds a connection sink for the user and reports whether this was
// the user's first live connection (the offline→online transition).
func (r *Registry) Register(userID string, sink contract.EventSink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		set = make(sinkSet)
		r.conns[userID] = set
	}
	first := len(set) == 0
	set[sink] = struct{}{}
	return first
}

// Deregister removes a connection sink and reports whether the user's set
// became empty (the online→offline transition). Removing a sink that was
// never registered is a no-op returning false, unless the user is unknown
// entirely, in which case the user is offline already.
func (r *Registry) Deregister(userID string, sink contract.EventSink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		return false
	}
	if _, registered := set[sink]; !registered {
		return false
	}
	delete(set, sink)
	if len(set) == 0 {
		// Drop the empty entry so the map does not grow with every
		// user that ever connected.
		delete(r.conns, userID)
		return true
	}
	return false
}

// AnyConnection returns one live connection for single-device fan-out.
// Selection among multiple connections is arbitrary.
func (r *Registry) AnyConnection(userID string) (contract.EventSink, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for sink := range r.conns[userID] {
		return sink, true
	}
	return nil, false
}

// AllConnections returns every live connection of the user.
func (r *Registry) AllConnections(userID string) []contract.EventSink {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(set))
	for sink := range set {
		sinks = append(sinks, sink)
	}
	return sinks
}

// Online reports whether the user holds at least one live connection.
func (r *Registry) Online(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns[userID]) > 0
}

// Broadcast delivers an event to every live connection of every user.
// Sinks are snapshotted under the lock and delivery happens outside it, so a
// slow connection never stalls register/deregister.
func (r *Registry) Broadcast(ctx context.Context, e event.DomainEvent) {
	r.mu.Lock()
	var sinks []contract.EventSink
	for _, set := range r.conns {
		for sink := range set {
			sinks = append(sinks, sink)
		}
	}
	r.mu.Unlock()

	for _, sink := range sinks {
		if err := sink.Consume(ctx, e); err != nil {
			r.log.Debug("broadcast delivery dropped", "event", e.EventName(), "error", err)
		}
	}
}
