package fsm

import (
	"context"
	"time"
)

// DefaultPollInterval is how often a waiting Goto re-checks its guard.
const DefaultPollInterval = 10 * time.Millisecond

// Controller is the part of a machine handed to application code once all
// states are added.
type Controller[T any] struct {
	fsm *FSM[T]
}

// NewController wraps f
func NewController[T any](f *FSM[T]) *Controller[T] {
	return &Controller[T]{fsm: f}
}

type gotoOptions struct {
	guard func() bool
	wait  bool
	poll  time.Duration
}

// GotoOption configures Controller.Goto
type GotoOption func(*gotoOptions)

// WithGuard makes the transition conditional on guard
func WithGuard(guard func() bool) GotoOption {
	return func(o *gotoOptions) {
		o.guard = guard
	}
}

// WithWait chooses between waiting for a failing guard (the default) and
// giving up at once.
func WithWait(wait bool) GotoOption {
	return func(o *gotoOptions) {
		o.wait = wait
	}
}

// WithPollInterval sets how often a waiting Goto re-checks its guard
func WithPollInterval(d time.Duration) GotoOption {
	return func(o *gotoOptions) {
		if d > 0 {
			o.poll = d
		}
	}
}

// Goto moves the machine to state. With a guard that fails, Goto either
// returns false at once or, when waiting, polls the guard until it passes
// or ctx is done.
func (c *Controller[T]) Goto(ctx context.Context, state State[T], opts ...GotoOption) (bool, error) {
	o := gotoOptions{wait: true, poll: DefaultPollInterval}
	for _, opt := range opts {
		opt(&o)
	}

	if o.guard != nil && !o.guard() {
		if !o.wait {
			return false, nil
		}
		if err := c.waitFor(ctx, o.guard, o.poll); err != nil {
			return false, err
		}
	}

	return c.fsm.Goto(state), nil
}

func (c *Controller[T]) waitFor(ctx context.Context, guard func() bool, poll time.Duration) error {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if guard() {
				return nil
			}
		}
	}
}

// CurrentName returns the type name of the current state
func (c *Controller[T]) CurrentName() string {
	return c.fsm.CurrentName()
}
