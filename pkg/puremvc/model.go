package puremvc

import (
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Proxy manages a piece of the data model.
type Proxy interface {
	OnRegister()
	OnRemove()
}

// BaseProxy carries a data object and has no-op hooks.
type BaseProxy[D any] struct {
	Data D
}

func (BaseProxy[D]) OnRegister() {}
func (BaseProxy[D]) OnRemove()   {}

// Model keeps one proxy per proxy type.
type Model struct {
	proxies map[reflect.Type]Proxy
	mu      sync.RWMutex
}

// NewModel creates an empty model
func NewModel() *Model {
	return &Model{proxies: make(map[reflect.Type]Proxy)}
}

// RegisterProxy stores p under its type, replacing any earlier proxy of
// that type, and calls its OnRegister.
func (m *Model) RegisterProxy(p Proxy) {
	key := reflect.TypeOf(p)

	m.mu.Lock()
	m.proxies[key] = p
	m.mu.Unlock()

	zap.L().Debug("registered proxy", zap.Stringer("type", key))
	p.OnRegister()
}

func (m *Model) proxy(key reflect.Type) (Proxy, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.proxies[key]
	return p, ok
}

func (m *Model) removeProxy(key reflect.Type) (Proxy, bool) {
	m.mu.Lock()
	p, ok := m.proxies[key]
	delete(m.proxies, key)
	m.mu.Unlock()

	if ok {
		zap.L().Debug("removed proxy", zap.Stringer("type", key))
		p.OnRemove()
	}
	return p, ok
}

// RetrieveProxy returns the registered proxy of type P
func RetrieveProxy[P Proxy](m *Model) (P, bool) {
	p, ok := m.proxy(reflect.TypeOf((*P)(nil)).Elem())
	if !ok {
		var zero P
		return zero, false
	}
	typed, ok := p.(P)
	return typed, ok
}

// RemoveProxy unregisters the proxy of type P and calls its OnRemove
func RemoveProxy[P Proxy](m *Model) (P, bool) {
	p, ok := m.removeProxy(reflect.TypeOf((*P)(nil)).Elem())
	if !ok {
		var zero P
		return zero, false
	}
	typed, ok := p.(P)
	return typed, ok
}

// HasProxy reports whether a proxy of type P is registered
func HasProxy[P Proxy](m *Model) bool {
	_, ok := m.proxy(reflect.TypeOf((*P)(nil)).Elem())
	return ok
}
