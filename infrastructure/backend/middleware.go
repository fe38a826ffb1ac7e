package backend

import "github.com/ahrav/go-duel/internal/ports"

// Middleware wraps a ComputeBackend to add cross-cutting functionality.
// This pattern allows composition of caching, metrics, tracing, and rate
// limiting without modifying the core backend.
type Middleware func(ports.ComputeBackend) ports.ComputeBackend

// Chain applies middleware to a backend in reverse order, so the first
// middleware listed is the outermost layer.
func Chain(base ports.ComputeBackend, middleware ...Middleware) ports.ComputeBackend {
	wrapped := base
	for i := len(middleware) - 1; i >= 0; i-- {
		wrapped = middleware[i](wrapped)
	}
	return wrapped
}
