package puremvc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userAdded Interest = iota + 1
	userRemoved
	startup
)

type listMediator struct {
	BaseMediator[string]
	received   []string
	registered bool
	removed    bool
}

func (m *listMediator) Interests() []Interest { return []Interest{userAdded, userRemoved} }
func (m *listMediator) HandleNotification(n Notification[string]) {
	m.received = append(m.received, n.Body)
}
func (m *listMediator) OnRegister() { m.registered = true }
func (m *listMediator) OnRemove()   { m.removed = true }

type quietMediator struct {
	BaseMediator[string]
}

type usersProxy struct {
	BaseProxy[[]string]
	registered bool
	removed    bool
}

func (p *usersProxy) OnRegister() { p.registered = true }
func (p *usersProxy) OnRemove()   { p.removed = true }

type otherProxy struct {
	BaseProxy[int]
}

func TestViewNotifiesObserversInOrder(t *testing.T) {
	v := NewView[string]()
	var got []string
	v.RegisterObserver(userAdded, NewObserver(func(n Notification[string]) { got = append(got, "first "+n.Body) }, 1))
	v.RegisterObserver(userAdded, NewObserver(func(n Notification[string]) { got = append(got, "second "+n.Body) }, 2))
	v.RegisterObserver(userRemoved, NewObserver(func(n Notification[string]) { got = append(got, "removed") }, 3))

	v.Notify(Notification[string]{Interest: userAdded, Body: "ann"})
	assert.Equal(t, []string{"first ann", "second ann"}, got)
}

func TestViewRemoveObserverKeepsOthers(t *testing.T) {
	v := NewView[string]()
	var got []int
	v.RegisterObserver(userAdded, NewObserver(func(Notification[string]) { got = append(got, 1) }, "a"))
	v.RegisterObserver(userAdded, NewObserver(func(Notification[string]) { got = append(got, 2) }, "b"))

	v.RemoveObserver(userAdded, "a")
	v.Notify(Notification[string]{Interest: userAdded})
	assert.Equal(t, []int{2}, got)

	v.RemoveObserver(userAdded, "b")
	v.Notify(Notification[string]{Interest: userAdded})
	assert.Equal(t, []int{2}, got)
}

func TestObserverMayRemoveItselfWhileNotified(t *testing.T) {
	v := NewView[string]()
	calls := 0
	v.RegisterObserver(startup, NewObserver(func(Notification[string]) {
		calls++
		v.RemoveObserver(startup, "once")
	}, "once"))

	v.Notify(Notification[string]{Interest: startup})
	v.Notify(Notification[string]{Interest: startup})
	assert.Equal(t, 1, calls)
}

func TestMediatorLifecycle(t *testing.T) {
	v := NewView[string]()
	m := &listMediator{}

	v.RegisterMediator(m)
	assert.True(t, m.registered)
	assert.True(t, HasMediator[*listMediator](v))
	assert.False(t, HasMediator[*quietMediator](v))

	got, ok := RetrieveMediator[*listMediator](v)
	require.True(t, ok)
	assert.Same(t, m, got)

	v.Notify(Notification[string]{Interest: userAdded, Body: "ann"})
	v.Notify(Notification[string]{Interest: userRemoved, Body: "bob"})
	v.Notify(Notification[string]{Interest: startup, Body: "ignored"})
	assert.Equal(t, []string{"ann", "bob"}, m.received)

	removed, ok := RemoveMediator[*listMediator](v)
	require.True(t, ok)
	assert.Same(t, m, removed)
	assert.True(t, m.removed)
	assert.False(t, HasMediator[*listMediator](v))

	v.Notify(Notification[string]{Interest: userAdded, Body: "carol"})
	assert.Equal(t, []string{"ann", "bob"}, m.received)

	_, ok = RemoveMediator[*listMediator](v)
	assert.False(t, ok)
}

func TestDuplicateMediatorIgnored(t *testing.T) {
	v := NewView[string]()
	first := &listMediator{}
	second := &listMediator{}

	v.RegisterMediator(first)
	v.RegisterMediator(second)
	assert.False(t, second.registered)

	v.Notify(Notification[string]{Interest: userAdded, Body: "ann"})
	assert.Equal(t, []string{"ann"}, first.received)
	assert.Empty(t, second.received)
}

func TestModelProxies(t *testing.T) {
	m := NewModel()
	p := &usersProxy{}
	p.Data = []string{"ann"}

	m.RegisterProxy(p)
	assert.True(t, p.registered)
	assert.True(t, HasProxy[*usersProxy](m))
	assert.False(t, HasProxy[*otherProxy](m))

	got, ok := RetrieveProxy[*usersProxy](m)
	require.True(t, ok)
	assert.Equal(t, []string{"ann"}, got.Data)

	removed, ok := RemoveProxy[*usersProxy](m)
	require.True(t, ok)
	assert.Same(t, p, removed)
	assert.True(t, p.removed)

	_, ok = RetrieveProxy[*usersProxy](m)
	assert.False(t, ok)
}

func TestControllerExecutesRegisteredCommand(t *testing.T) {
	c := NewController[string]()
	var got []string
	c.RegisterCommand(startup, CommandFunc[string](func(n Notification[string]) { got = append(got, n.Body) }))

	assert.True(t, c.HasCommand(startup))
	c.ExecuteCommand(Notification[string]{Interest: startup, Body: "go"})
	c.ExecuteCommand(Notification[string]{Interest: userAdded, Body: "nothing"})
	assert.Equal(t, []string{"go"}, got)

	c.RemoveCommand(startup)
	assert.False(t, c.HasCommand(startup))
}

func TestMacroCommandRunsInOrder(t *testing.T) {
	var got []string
	step := func(name string) Command[string] {
		return CommandFunc[string](func(n Notification[string]) { got = append(got, name+":"+n.Body) })
	}

	macro := NewMacroCommand(step("prepare"), step("load"))
	macro.AddSubCommand(SimpleCommand[string]{})
	macro.AddSubCommand(step("show"))

	macro.Execute(Notification[string]{Interest: startup, Body: "x"})
	assert.Equal(t, []string{"prepare:x", "load:x", "show:x"}, got)

	macro.Execute(Notification[string]{Interest: startup, Body: "y"})
	assert.Len(t, got, 6)
}

func TestFacadeSendRunsCommandsAndMediators(t *testing.T) {
	f := NewFacade[string]()
	m := &listMediator{}
	f.RegisterMediator(m)

	var commands []string
	f.RegisterCommand(userAdded, CommandFunc[string](func(n Notification[string]) {
		commands = append(commands, "added "+n.Body)
	}))
	// a second command for the same interest replaces the first without
	// subscribing the controller twice
	f.RegisterCommand(userAdded, CommandFunc[string](func(n Notification[string]) {
		commands = append(commands, "welcomed "+n.Body)
	}))

	f.Send(userAdded, "ann")
	assert.Equal(t, []string{"welcomed ann"}, commands)
	assert.Equal(t, []string{"ann"}, m.received)

	f.RemoveCommand(userAdded)
	assert.False(t, f.HasCommand(userAdded))

	f.Send(userAdded, "bob")
	assert.Equal(t, []string{"welcomed ann"}, commands)
	assert.Equal(t, []string{"ann", "bob"}, m.received)
}

func TestFacadeProxyFromCommand(t *testing.T) {
	f := NewFacade[string]()
	f.RegisterProxy(&usersProxy{})

	f.RegisterCommand(userAdded, CommandFunc[string](func(n Notification[string]) {
		p, ok := RetrieveProxy[*usersProxy](f.Model())
		require.True(t, ok)
		p.Data = append(p.Data, n.Body)
	}))

	f.Send(userAdded, "ann")
	f.Send(userAdded, "bob")

	p, ok := RetrieveProxy[*usersProxy](f.Model())
	require.True(t, ok)
	assert.Equal(t, []string{"ann", "bob"}, p.Data)
}

func TestFacadeConcurrentUse(t *testing.T) {
	f := NewFacade[int]()
	var mu sync.Mutex
	total := 0
	f.RegisterCommand(startup, CommandFunc[int](func(n Notification[int]) {
		mu.Lock()
		total += n.Body
		mu.Unlock()
	}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.Send(startup, 1)
			f.RegisterObserver(Interest(100+i), NewObserver(func(Notification[int]) {}, i))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, total)
}
