package puremvc

import (
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Mediator adapts a view component to the rest of the application.
type Mediator[B any] interface {
	// Interests lists the notifications the mediator handles
	Interests() []Interest
	// HandleNotification receives every notification of its interests
	HandleNotification(n Notification[B])
	// OnRegister is called after the mediator is registered
	OnRegister()
	// OnRemove is called after the mediator is removed
	OnRemove()
}

// BaseMediator has no interests and no-op hooks. Embed it and override what
// the concrete mediator needs.
type BaseMediator[B any] struct {
	ViewComponent any
}

func (BaseMediator[B]) Interests() []Interest                { return nil }
func (BaseMediator[B]) HandleNotification(n Notification[B]) {}
func (BaseMediator[B]) OnRegister()                          {}
func (BaseMediator[B]) OnRemove()                            {}

// View keeps the observer lists and the mediators, one per mediator type.
type View[B any] struct {
	observers map[Interest][]*Observer[B]
	mediators map[reflect.Type]Mediator[B]
	mu        sync.RWMutex
}

// NewView creates an empty view
func NewView[B any]() *View[B] {
	return &View[B]{
		observers: make(map[Interest][]*Observer[B]),
		mediators: make(map[reflect.Type]Mediator[B]),
	}
}

// RegisterObserver adds observer to the list for interest
func (v *View[B]) RegisterObserver(interest Interest, observer *Observer[B]) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.observers[interest] = append(v.observers[interest], observer)
}

// RemoveObserver removes the observer context registered for interest
func (v *View[B]) RemoveObserver(interest Interest, context any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.removeObserver(interest, context)
}

func (v *View[B]) removeObserver(interest Interest, context any) {
	list := v.observers[interest]
	for i, o := range list {
		if o.CompareContext(context) {
			// a context registers at most once per interest
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(v.observers, interest)
		return
	}
	v.observers[interest] = list
}

// Notify calls every observer of n.Interest in registration order. The
// list is copied first, so observers may register or remove observers.
func (v *View[B]) Notify(n Notification[B]) {
	v.mu.RLock()
	observers := append([]*Observer[B](nil), v.observers[n.Interest]...)
	v.mu.RUnlock()

	for _, o := range observers {
		o.NotifyObserver(n)
	}
}

// RegisterMediator registers m and subscribes it to its interests. A
// mediator of an already registered type is ignored.
func (v *View[B]) RegisterMediator(m Mediator[B]) {
	key := reflect.TypeOf(m)

	v.mu.Lock()
	if _, exists := v.mediators[key]; exists {
		v.mu.Unlock()
		return
	}
	v.mediators[key] = m

	if interests := m.Interests(); len(interests) > 0 {
		observer := NewObserver(m.HandleNotification, key)
		for _, interest := range interests {
			v.observers[interest] = append(v.observers[interest], observer)
		}
	}
	v.mu.Unlock()

	zap.L().Debug("registered mediator", zap.Stringer("type", key))
	m.OnRegister()
}

func (v *View[B]) mediator(key reflect.Type) (Mediator[B], bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	m, ok := v.mediators[key]
	return m, ok
}

func (v *View[B]) removeMediator(key reflect.Type) (Mediator[B], bool) {
	v.mu.Lock()
	m, ok := v.mediators[key]
	if !ok {
		v.mu.Unlock()
		return nil, false
	}
	delete(v.mediators, key)
	for _, interest := range m.Interests() {
		v.removeObserver(interest, key)
	}
	v.mu.Unlock()

	zap.L().Debug("removed mediator", zap.Stringer("type", key))
	m.OnRemove()
	return m, true
}

// RetrieveMediator returns the registered mediator of type M
func RetrieveMediator[M Mediator[B], B any](v *View[B]) (M, bool) {
	m, ok := v.mediator(reflect.TypeOf((*M)(nil)).Elem())
	if !ok {
		var zero M
		return zero, false
	}
	typed, ok := m.(M)
	return typed, ok
}

// RemoveMediator unregisters the mediator of type M, unsubscribes it and
// calls its OnRemove.
func RemoveMediator[M Mediator[B], B any](v *View[B]) (M, bool) {
	m, ok := v.removeMediator(reflect.TypeOf((*M)(nil)).Elem())
	if !ok {
		var zero M
		return zero, false
	}
	typed, ok := m.(M)
	return typed, ok
}

// HasMediator reports whether a mediator of type M is registered
func HasMediator[M Mediator[B], B any](v *View[B]) bool {
	_, ok := v.mediator(reflect.TypeOf((*M)(nil)).Elem())
	return ok
}
