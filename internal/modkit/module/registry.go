package module

import "sync"

// process wide port registry filled during bootstrap so binaries can
// look up another module's ports by name
var (
	regMu sync.RWMutex
	reg   = map[string]any{}
)

// Register records the port set published under a module name,
// replacing any previous registration
func Register(name string, ports any) {
	regMu.Lock()
	defer regMu.Unlock()
	reg[name] = ports
}

// PortsAs looks up the port set registered under name and asserts it to T
func PortsAs[T any](name string) (T, bool) {
	regMu.RLock()
	v, found := reg[name]
	regMu.RUnlock()
	if !found {
		var zero T
		return zero, false
	}
	out, ok := v.(T)
	return out, ok
}

// Reset empties the registry between tests
func Reset() {
	regMu.Lock()
	defer regMu.Unlock()
	reg = map[string]any{}
}
