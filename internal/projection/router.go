// Package projection applies decoded events to the entity store, one handler per event kind.
package projection

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/pkg/contract"
)

// HandlerFunc applies one event. Errors wrapping event.ErrInvalidParam skip the event;
// any other error aborts the chunk.
type HandlerFunc func(ctx context.Context, hc *HandlerContext) error

// Route binds an event kind to its handler and the contract ABI used for its reads.
type Route struct {
	Handler  HandlerFunc
	Contract *contract.Binding
	// Log is the data source's logger; the projector's is used when nil
	Log *logger.Logger
}

// Router holds exactly one route per event kind.
type Router struct {
	mu     sync.RWMutex
	routes map[string]Route
}

func NewRouter() *Router {
	return &Router{routes: make(map[string]Route)}
}

// Register adds a route. Registering a kind twice is an error.
func (r *Router) Register(kind string, route Route) error {
	if route.Handler == nil {
		return fmt.Errorf("route %s has no handler", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.routes[kind]; exists {
		return fmt.Errorf("handler for event kind %s already registered", kind)
	}

	r.routes[kind] = route

	return nil
}

// Lookup returns the route of kind.
func (r *Router) Lookup(kind string) (Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	route, ok := r.routes[kind]
	return route, ok
}

// Kinds lists the registered kinds in sorted order.
func (r *Router) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.routes))
	for k := range r.routes {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)

	return kinds
}

// Dispatch invokes the handler registered for the event kind. It reports false when
// no handler is registered; such events are counted and dropped.
func (r *Router) Dispatch(ctx context.Context, hc *HandlerContext) (bool, error) {
	route, ok := r.Lookup(hc.Event.Kind)
	if !ok {
		EventSkippedInc(SkipUnrouted)
		return false, nil
	}

	if hc.Calls == nil {
		hc.Calls = revertingCaller{}
		if route.Contract != nil {
			hc.Calls = route.Contract.AtBlock(hc.Event.BlockHeight)
		}
	}

	if route.Log != nil {
		hc.Log = route.Log
	}

	return true, route.Handler(ctx, hc)
}
