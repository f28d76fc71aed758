package transform

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/theoremus-urban-solutions/gtfs-transformer/gtfs"
)

// ErrUnknownStrategy is returned by NewStrategy for unregistered names.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy rewrites a dataset in place.
type Strategy interface {
	Name() string
	Run(tctx *TransformContext, ds *gtfs.Dataset) error
}

// Factory builds a fresh strategy instance.
type Factory func() Strategy

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		CompactIDsName: func() Strategy { return &CompactIDsStrategy{} },
	}
)

// Register makes a strategy available to NewStrategy, replacing any factory
// already registered under name.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// NewStrategy builds the strategy registered under name.
func NewStrategy(name string) (Strategy, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownStrategy)
	}
	return f(), nil
}

// NewStrategies builds every named strategy in order.
func NewStrategies(names []string) ([]Strategy, error) {
	out := make([]Strategy, 0, len(names))
	for _, name := range names {
		s, err := NewStrategy(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// StrategyNames lists the registered names, sorted.
func StrategyNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StrategyError reports which strategy failed. Strategies that ran before it
// keep their changes.
type StrategyError struct {
	Strategy string
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy %s: %v", e.Strategy, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }
