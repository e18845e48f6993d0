package protocol

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DefaultName is the protocol returned by Default.
const DefaultName = "Binary"

// Constructor builds a fresh protocol instance with its own reporter.
type Constructor func() Protocol

var (
	mu       sync.RWMutex
	registry = map[string]registration{}
)

type registration struct {
	name string
	ctor Constructor
}

// Register makes a protocol available by name. Names are case-insensitive;
// registering a name twice replaces the earlier constructor.
func Register(name string, ctor Constructor) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || ctor == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	registry[key] = registration{name: name, ctor: ctor}
}

// Lookup builds a new instance of the named protocol.
func Lookup(name string) (Protocol, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	mu.RLock()
	reg, ok := registry[key]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, name)
	}
	return reg.ctor(), nil
}

// Names lists registered protocol names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for _, reg := range registry {
		out = append(out, reg.name)
	}
	sort.Strings(out)
	return out
}

// Default builds the default protocol. Its package must be imported for the
// lookup to succeed.
func Default() (Protocol, error) {
	return Lookup(DefaultName)
}
