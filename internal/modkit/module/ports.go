package module

import "reflect"

// PortSet marks the bundle a module publishes from Ports().
// Modules define their own concrete struct of port interfaces
type PortSet = any

// PortsOf extracts a T from a module's Ports() bundle: either the bundle
// itself satisfies T, or one of its exported struct fields does.
// ok is false when neither holds
func PortsOf[T any](m Module) (out T, ok bool) {
	bundle := m.Ports()
	if bundle == nil {
		return out, false
	}
	if v, hit := bundle.(T); hit {
		return v, true
	}
	rv := reflect.ValueOf(bundle)
	if rv.Kind() != reflect.Struct {
		return out, false
	}
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanInterface() {
			continue
		}
		if v, hit := f.Interface().(T); hit {
			return v, true
		}
	}
	return out, false
}

// MustPortsOf panics when the module does not publish a T; used at
// bootstrap where a missing port is a wiring bug
func MustPortsOf[T any](m Module) T {
	v, ok := PortsOf[T](m)
	if !ok {
		panic("module: requested port not found on module " + m.Name())
	}
	return v
}
