// Package puremvc is a port of the PureMVC framework: a Facade over a
// Model of proxies, a View of mediators and observers, and a Controller
// mapping notifications to commands. Actors talk to each other only by
// sending notifications.
//
// Every registry is safe for concurrent use. Observers, commands and the
// OnRegister / OnRemove hooks run without any lock held, so they may call
// back into the framework.
package puremvc

// Interest names a kind of notification.
type Interest uint64

// Notification is what observers receive. B is the application's body type.
type Notification[B any] struct {
	Interest Interest
	Body     B
}

// Notifier sends notifications. The Facade is the usual implementation;
// proxies, mediators and commands keep a reference to it.
type Notifier[B any] interface {
	Send(interest Interest, body B)
}

// Observer pairs a callback with the context that registered it. The
// context identifies the observer for removal and must be comparable.
type Observer[B any] struct {
	notify  func(Notification[B])
	context any
}

// NewObserver creates an observer calling notify
func NewObserver[B any](notify func(Notification[B]), context any) *Observer[B] {
	return &Observer[B]{notify: notify, context: context}
}

// NotifyObserver calls the observer's callback
func (o *Observer[B]) NotifyObserver(n Notification[B]) {
	o.notify(n)
}

// Context returns the registering context
func (o *Observer[B]) Context() any {
	return o.context
}

// CompareContext reports whether context registered this observer
func (o *Observer[B]) CompareContext(context any) bool {
	return o.context == context
}
