// Package family is the registry of handler families. A family turns a data source
// configuration into the ABI it decodes with and a handler per event name.
package family

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/internal/projection"
	"github.com/scrub-finance/scrub-indexer/pkg/config"
)

// Definition is a family instantiated for one data source.
type Definition struct {
	// ABI declares the family's events and the view functions its handlers read
	ABI abi.ABI
	// Handlers maps event names to handlers
	Handlers map[string]projection.HandlerFunc
}

// NewDefinition parses abiJSON and checks that every handler names an ABI event.
func NewDefinition(abiJSON string, handlers map[string]projection.HandlerFunc) (*Definition, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse abi: %w", err)
	}

	for name := range handlers {
		if _, ok := parsed.Events[name]; !ok {
			return nil, fmt.Errorf("handler %s has no matching abi event", name)
		}
	}

	return &Definition{ABI: parsed, Handlers: handlers}, nil
}

// Events lists the handled event names in sorted order.
func (d *Definition) Events() []string {
	names := make([]string, 0, len(d.Handlers))
	for name := range d.Handlers {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// Factory builds a family for a data source or template.
type Factory func(ds config.DataSourceConfig, log *logger.Logger) (*Definition, error)

var (
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

// Register registers a family factory under kind, usually from an init function.
// Kinds are case-insensitive and stored in lowercase.
func Register(kind string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	name := strings.ToLower(kind)
	if _, exists := registry[name]; exists {
		logger.GetDefaultLogger().Infof("family %s already registered, it will be overwritten", name)
	}

	registry[name] = factory
}

// GetFactory returns the factory for kind, or nil if none is registered.
func GetFactory(kind string) Factory {
	mu.RLock()
	defer mu.RUnlock()
	return registry[strings.ToLower(kind)]
}

// IsRegistered reports whether a factory exists for kind.
func IsRegistered(kind string) bool {
	return GetFactory(kind) != nil
}

// ListRegistered returns the registered kinds in sorted order.
func ListRegistered() []string {
	mu.RLock()
	defer mu.RUnlock()

	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)

	return kinds
}

// Create instantiates the family of ds.Kind.
func Create(ds config.DataSourceConfig, log *logger.Logger) (*Definition, error) {
	factory := GetFactory(ds.Kind)
	if factory == nil {
		return nil, fmt.Errorf("unknown family kind: %s (registered types: %v)", ds.Kind, ListRegistered())
	}

	def, err := factory(ds, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s family for %s: %w", ds.Kind, ds.Name, err)
	}

	return def, nil
}
