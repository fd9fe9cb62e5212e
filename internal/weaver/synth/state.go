// Package synth rewrites an annotated function body into the woven
// pipeline: contract checks, aspect advice and the original body.
package synth

import (
	"github.com/weave-lang/weave/internal/weaver/aspect"
	"github.com/weave-lang/weave/internal/weaver/contract"
	"github.com/weave-lang/weave/internal/weaver/directive"
	"github.com/weave-lang/weave/pkg/weave"
)

// State accumulates the contracts and aspects found on one function. It is
// built while scanning the function's directives and consumed by Weave.
type State struct {
	Name       string
	Docs       []string
	Requires   []*contract.Contract
	Ensures    []*contract.Contract
	Invariants []*contract.Contract
	Aspects    []*aspect.Definition
}

// NewState starts an empty state for the function name.
func NewState(name string) *State {
	return &State{Name: name}
}

// AddContract files c under its kind.
func (s *State) AddContract(c *contract.Contract) {
	switch c.Kind {
	case weave.Requires:
		s.Requires = append(s.Requires, c)
	case weave.Ensures:
		s.Ensures = append(s.Ensures, c)
	default:
		s.Invariants = append(s.Invariants, c)
	}
}

// AddAspect appends def; declaration order is kept.
func (s *State) AddAspect(def *aspect.Definition) {
	s.Aspects = append(s.Aspects, def)
}

// Empty reports whether there is nothing to weave.
func (s *State) Empty() bool {
	return len(s.Requires) == 0 && len(s.Ensures) == 0 &&
		len(s.Invariants) == 0 && len(s.Aspects) == 0
}

func (s *State) contracts() []*contract.Contract {
	all := make([]*contract.Contract, 0, len(s.Requires)+len(s.Ensures)+len(s.Invariants))
	all = append(all, s.Requires...)
	all = append(all, s.Ensures...)
	all = append(all, s.Invariants...)
	return all
}

// directive names the first directive on the function, for messages.
func (s *State) directive() string {
	if all := s.contracts(); len(all) > 0 {
		return all[0].Directive()
	}
	return directive.Aspect
}

func (s *State) hasAround() bool {
	for _, def := range s.Aspects {
		if def.Around != nil {
			return true
		}
	}
	return false
}
