package puremvc

import (
	"sync"

	"go.uber.org/zap"
)

// Command handles a notification.
type Command[B any] interface {
	Execute(n Notification[B])
}

// CommandFunc adapts a function to Command
type CommandFunc[B any] func(n Notification[B])

// Execute calls f(n)
func (f CommandFunc[B]) Execute(n Notification[B]) {
	f(n)
}

// SimpleCommand does nothing. Embed it in commands that only need part of
// a larger interface.
type SimpleCommand[B any] struct{}

// Execute implements Command
func (SimpleCommand[B]) Execute(Notification[B]) {}

// MacroCommand runs its sub-commands in the order they were added, each
// with the same notification.
type MacroCommand[B any] struct {
	subCommands []Command[B]
}

// NewMacroCommand creates a macro command from cmds
func NewMacroCommand[B any](cmds ...Command[B]) *MacroCommand[B] {
	return &MacroCommand[B]{subCommands: cmds}
}

// AddSubCommand appends cmd
func (m *MacroCommand[B]) AddSubCommand(cmd Command[B]) {
	m.subCommands = append(m.subCommands, cmd)
}

// Execute implements Command
func (m *MacroCommand[B]) Execute(n Notification[B]) {
	for _, cmd := range m.subCommands {
		cmd.Execute(n)
	}
}

// Controller maps interests to commands.
type Controller[B any] struct {
	commands map[Interest]Command[B]
	mu       sync.RWMutex
}

// NewController creates an empty controller
func NewController[B any]() *Controller[B] {
	return &Controller[B]{commands: make(map[Interest]Command[B])}
}

// RegisterCommand maps interest to cmd, replacing any earlier command
func (c *Controller[B]) RegisterCommand(interest Interest, cmd Command[B]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands[interest] = cmd
}

// RemoveCommand drops the command for interest
func (c *Controller[B]) RemoveCommand(interest Interest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.commands, interest)
}

// HasCommand reports whether interest has a command
func (c *Controller[B]) HasCommand(interest Interest) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.commands[interest]
	return ok
}

// ExecuteCommand runs the command registered for n.Interest, if any
func (c *Controller[B]) ExecuteCommand(n Notification[B]) {
	c.mu.RLock()
	cmd, ok := c.commands[n.Interest]
	c.mu.RUnlock()

	if !ok {
		zap.L().Debug("no command for interest", zap.Uint64("interest", uint64(n.Interest)))
		return
	}
	cmd.Execute(n)
}
