package contract

import (
	"fmt"
	"strings"

	"github.com/weave-lang/weave/pkg/weave"
)

// Mode is the checking mode of a contract.
type Mode int

const (
	// Always checks the contract
	Always Mode = iota
	// Disabled never checks the contract
	Disabled
	// Debug checks the contract only when weave debug checking is on
	Debug
	// Test checks the contract only in test binaries
	Test
	// LogOnly is reserved for log-and-continue checking and renders nothing
	LogOnly
)

func (m Mode) String() string {
	switch m {
	case Always:
		return "always"
	case Disabled:
		return "disabled"
	case Debug:
		return "debug"
	case Test:
		return "test"
	case LogOnly:
		return "log"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Override forces the mode of every contract in a generation run.
type Override string

const (
	OverrideNone    Override = ""
	OverrideDisable Override = "disable"
	OverrideDebug   Override = "debug"
	OverrideLog     Override = "log"
)

// ParseOverride validates a contracts.override setting.
func ParseOverride(s string) (Override, error) {
	switch o := Override(strings.ToLower(strings.TrimSpace(s))); o {
	case OverrideNone, OverrideDisable, OverrideDebug, OverrideLog:
		return o, nil
	default:
		return OverrideNone, fmt.Errorf("unknown contract override %q (want disable, debug or log)", s)
	}
}

// Final applies o to m. Disabled and Test contracts are never forced, and
// a debug override keeps LogOnly since it is the weaker of the two.
func (m Mode) Final(o Override) Mode {
	if m == Disabled || m == Test {
		return m
	}
	switch o {
	case OverrideDisable:
		return Disabled
	case OverrideDebug:
		if m == LogOnly {
			return m
		}
		return Debug
	case OverrideLog:
		return LogOnly
	default:
		return m
	}
}

// TypeAndMode maps a contract directive name to its kind and mode.
func TypeAndMode(name string) (weave.Kind, Mode, bool) {
	mode := Always
	switch {
	case strings.HasPrefix(name, "debug_"):
		mode = Debug
		name = strings.TrimPrefix(name, "debug_")
	case strings.HasPrefix(name, "test_"):
		mode = Test
		name = strings.TrimPrefix(name, "test_")
	}

	switch name {
	case "requires":
		return weave.Requires, mode, true
	case "ensures":
		return weave.Ensures, mode, true
	case "invariant":
		return weave.Invariant, mode, true
	default:
		return "", Always, false
	}
}
