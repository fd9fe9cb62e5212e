package puremvc

// Facade is the single entry point to a Model, View and Controller. It
// wires command registration to the view so that sending a notification
// runs its command as well as notifying mediators and observers.
type Facade[B any] struct {
	model      *Model
	view       *View[B]
	controller *Controller[B]
}

var _ Notifier[int] = (*Facade[int])(nil)

// NewFacade creates a facade over a fresh model, view and controller
func NewFacade[B any]() *Facade[B] {
	return &Facade[B]{
		model:      NewModel(),
		view:       NewView[B](),
		controller: NewController[B](),
	}
}

// Model returns the facade's model
func (f *Facade[B]) Model() *Model {
	return f.model
}

// View returns the facade's view
func (f *Facade[B]) View() *View[B] {
	return f.view
}

// Controller returns the facade's controller
func (f *Facade[B]) Controller() *Controller[B] {
	return f.controller
}

// RegisterCommand maps interest to cmd. The first command for an interest
// also subscribes the controller to it.
func (f *Facade[B]) RegisterCommand(interest Interest, cmd Command[B]) {
	if !f.controller.HasCommand(interest) {
		f.view.RegisterObserver(interest, NewObserver(f.controller.ExecuteCommand, f.controller))
	}
	f.controller.RegisterCommand(interest, cmd)
}

// RemoveCommand unmaps interest and unsubscribes the controller from it
func (f *Facade[B]) RemoveCommand(interest Interest) {
	if !f.controller.HasCommand(interest) {
		return
	}
	f.view.RemoveObserver(interest, f.controller)
	f.controller.RemoveCommand(interest)
}

// HasCommand reports whether interest has a command
func (f *Facade[B]) HasCommand(interest Interest) bool {
	return f.controller.HasCommand(interest)
}

// RegisterMediator registers m with the view
func (f *Facade[B]) RegisterMediator(m Mediator[B]) {
	f.view.RegisterMediator(m)
}

// RegisterProxy registers p with the model
func (f *Facade[B]) RegisterProxy(p Proxy) {
	f.model.RegisterProxy(p)
}

// RegisterObserver adds an observer to the view
func (f *Facade[B]) RegisterObserver(interest Interest, observer *Observer[B]) {
	f.view.RegisterObserver(interest, observer)
}

// RemoveObserver removes the observer context registered for interest
func (f *Facade[B]) RemoveObserver(interest Interest, context any) {
	f.view.RemoveObserver(interest, context)
}

// NotifyObservers passes n to the view
func (f *Facade[B]) NotifyObservers(n Notification[B]) {
	f.view.Notify(n)
}

// Send builds a notification and notifies its observers
func (f *Facade[B]) Send(interest Interest, body B) {
	f.NotifyObservers(Notification[B]{Interest: interest, Body: body})
}
