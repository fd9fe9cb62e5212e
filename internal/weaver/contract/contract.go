// Package contract parses the rule bodies of requires, ensures and
// invariant directives and renders them as runtime assertions.
//
// A rule body is a list of segments separated by "->". Within a segment,
// expressions are separated by commas. The last expression of every segment
// but the last is a guard for the first expression of the next segment.
// The other expressions are assertions, each closing a rule case. A string
// literal in the very last position is the violation description.
//
//	x > 0                       one case
//	a, b, "both hold"           two cases with a description
//	x > 0 -> result > 0         one case guarded by x > 0
//	result == old(n) + 1        captures n before the body runs
package contract

import (
	"go/ast"
	"sort"

	"github.com/weave-lang/weave/pkg/weave"
)

// RuleExpression is one unit of a rule case.
type RuleExpression struct {
	// Guard marks an implication premise
	Guard bool
	// Text is the expression as written
	Text string

	code string
}

// CaseRule is a run of guards closed by a single assertion.
type CaseRule []RuleExpression

// Contract is one requires, ensures or invariant directive.
type Contract struct {
	Kind        weave.Kind
	Mode        Mode
	Description string
	Rules       []CaseRule
	// Decls maps the variables introduced for old(...) calls to the
	// captured expression text
	Decls map[string]string

	name   string
	idents map[string]bool
}

// New creates an empty contract.
func New(kind weave.Kind, mode Mode) *Contract {
	return &Contract{Kind: kind, Mode: mode, Decls: make(map[string]string)}
}

// Directive returns the name of the directive c was parsed from, such as
// debug_ensures.
func (c *Contract) Directive() string {
	if c.name != "" {
		return c.name
	}
	return string(c.Kind)
}

// Idents returns the identifiers written in the rule, sorted.
func (c *Contract) Idents() []string {
	out := make([]string, 0, len(c.idents))
	for id := range c.idents {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Assertion returns the rewritten source of an assertion or guard, with
// old(...) calls replaced by their variables.
func (r RuleExpression) Assertion() string {
	return r.code
}

// DeclExpr parses the captured expression of an old variable.
func (c *Contract) DeclExpr(name string) (ast.Expr, bool) {
	text, ok := c.Decls[name]
	if !ok {
		return nil, false
	}
	return mustParseExpr(text), true
}
