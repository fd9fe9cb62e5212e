package aspect

import (
	"fmt"
	"go/ast"
	"go/parser"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/weave-lang/weave/internal/weaver/astx"
)

// AdviceKind classifies an aspect method by name.
type AdviceKind int

const (
	Unrecognized AdviceKind = iota
	Before
	After
	Around
)

func (k AdviceKind) String() string {
	switch k {
	case Before:
		return "Before"
	case After:
		return "After"
	case Around:
		return "Around"
	default:
		return "Unrecognized"
	}
}

// Classify maps a method name to its advice kind. Only the first letter is
// compared without case, so both Before and before are advice.
func Classify(method string) AdviceKind {
	r, size := utf8.DecodeRuneInString(method)
	if r == utf8.RuneError {
		return Unrecognized
	}
	switch string(unicode.ToLower(r)) + method[size:] {
	case "before":
		return Before
	case "after":
		return After
	case "around":
		return Around
	default:
		return Unrecognized
	}
}

// Advice is one advice method of an aspect.
type Advice struct {
	Kind AdviceKind
	Docs []string
	Body string
}

// Block parses a fresh copy of the advice body. Every use site gets its
// own nodes, so rewriting one never affects another.
func (a *Advice) Block() (*ast.BlockStmt, error) {
	// a function literal wrapper lets ParseExpr accept a block
	expr, err := parser.ParseExpr("func()" + a.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s advice: %w", strings.ToLower(a.Kind.String()), err)
	}
	lit, ok := expr.(*ast.FuncLit)
	if !ok {
		return nil, fmt.Errorf("parse %s advice: body is not a block", strings.ToLower(a.Kind.String()))
	}
	astx.ClearPos(lit.Body)
	return lit.Body, nil
}

// Definition is a resolved aspect: its documentation, its advice and the
// imports the advice bodies may rely on.
type Definition struct {
	Path    string
	Name    string
	Docs    []string
	Before  *Advice
	After   *Advice
	Around  *Advice
	Imports []ImportRecord
}

// HasAdvice reports whether any advice slot is filled.
func (d *Definition) HasAdvice() bool {
	return d.Before != nil || d.After != nil || d.Around != nil
}

// MarkerName returns the identifier the aspect's file uses for the weave
// runtime package.
func (d *Definition) MarkerName(runtimeImport string) string {
	for _, imp := range d.Imports {
		if imp.Path == runtimeImport {
			return imp.LocalName()
		}
	}
	return "weave"
}
