// Package weave is the runtime support library referenced by code produced
// by the weave generator.
//
// Woven functions call Assert, DebugAssert and TestAssert for their
// contracts, and around advice marks its joint point with Proceed. None of
// these are meant to be called by hand.
package weave

import (
	"fmt"
	"os"
	"sync/atomic"
	"testing"
)

// ImportPath is the import path woven files use for this package.
const ImportPath = "github.com/weave-lang/weave/pkg/weave"

// Kind identifies the contract that produced an assertion.
type Kind string

const (
	Requires  Kind = "requires"
	Ensures   Kind = "ensures"
	Invariant Kind = "invariant"
)

// MessageName returns the prefix used in violation messages.
func (k Kind) MessageName() string {
	switch k {
	case Requires:
		return "Pre-condition"
	case Ensures:
		return "Post-condition"
	default:
		return "Invariant"
	}
}

// ContractViolation is the panic value raised by a failed assertion.
type ContractViolation struct {
	Kind        Kind
	Description string
	Expr        string
}

func (v *ContractViolation) Error() string {
	if v.Description != "" {
		return fmt.Sprintf("%s violated: %s: %s", v.Kind.MessageName(), v.Description, v.Expr)
	}
	return fmt.Sprintf("%s violated: %s", v.Kind.MessageName(), v.Expr)
}

var debug atomic.Bool

func init() {
	debug.Store(buildDebug || os.Getenv("WEAVE_DEBUG") != "")
}

// SetDebug toggles debug_ contract checking at run time and returns the
// previous setting.
func SetDebug(enabled bool) bool {
	return debug.Swap(enabled)
}

// DebugEnabled reports whether debug_ contracts are checked.
func DebugEnabled() bool {
	return debug.Load()
}

// Assert panics with a *ContractViolation when cond is false.
func Assert(cond bool, kind Kind, desc, expr string) {
	if !cond {
		panic(&ContractViolation{Kind: kind, Description: desc, Expr: expr})
	}
}

// DebugAssert behaves like Assert when debug checking is enabled, either by
// the weavedebug build tag, the WEAVE_DEBUG environment variable or SetDebug.
func DebugAssert(cond bool, kind Kind, desc, expr string) {
	if DebugEnabled() {
		Assert(cond, kind, desc, expr)
	}
}

// TestAssert behaves like Assert inside test binaries and when debug
// checking is enabled.
func TestAssert(cond bool, kind Kind, desc, expr string) {
	if testing.Testing() || DebugEnabled() {
		Assert(cond, kind, desc, expr)
	}
}

// Proceed marks the joint point of around advice. The generator replaces
// every call with the next layer of advice or the original body; reaching
// it at run time means the advice was never woven.
func Proceed() {
	panic("weave: Proceed called outside of woven around advice")
}
