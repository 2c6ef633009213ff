// Package delivery routes rendered notifications to sink handlers by the
// namespace of the subscriber identifier.
package delivery

import (
	"fmt"
	"strings"
	"sync"
)

// Handler sends a pre-formatted notification to one subscriber. The
// subscriber string is the full sink identifier, e.g. "telegram:-100123".
type Handler func(subscriber, message string) error

// Registry maps subscriber namespaces to sink handlers. A subscriber
// identifier is "<namespace>:<sink-specific id>"; the namespace selects
// the handler, the rest is opaque to the registry.
type Registry struct {
	mu    sync.RWMutex
	sinks map[string]Handler
}

// NewRegistry creates an empty sink registry.
func NewRegistry() *Registry {
	return &Registry{
		sinks: make(map[string]Handler),
	}
}

// Register adds a handler for the given namespace. A trailing colon in
// namespace is accepted and ignored, so Register("telegram:", h) and
// Register("telegram", h) are equivalent.
func (r *Registry) Register(namespace string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[strings.TrimSuffix(namespace, ":")] = handler
}

// Deliver looks up the handler for the subscriber's namespace and calls it
// with the full identifier. Returns an error for a malformed identifier or
// an unregistered namespace; the caller treats any error as a recoverable
// delivery failure.
func (r *Registry) Deliver(subscriber, message string) error {
	namespace, _, found := strings.Cut(subscriber, ":")
	if !found {
		return fmt.Errorf("malformed subscriber identifier: %s", subscriber)
	}

	r.mu.RLock()
	handler, ok := r.sinks[namespace]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no sink registered for namespace %q", namespace)
	}
	return handler(subscriber, message)
}
