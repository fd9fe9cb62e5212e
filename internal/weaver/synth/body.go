package synth

import (
	"fmt"
	"go/ast"
	"go/token"

	"github.com/weave-lang/weave/internal/weaver/aspect"
	"github.com/weave-lang/weave/internal/weaver/astx"
	"github.com/weave-lang/weave/internal/weaver/contract"
	werrors "github.com/weave-lang/weave/internal/weaver/errors"
)

// innerName is the closure holding the original body.
const innerName = "woven"

// Result describes a woven function.
type Result struct {
	// UsesRuntime is set when the body calls into the weave runtime
	UsesRuntime bool
	// Imports are the aspect imports the new body references
	Imports []aspect.ImportRecord
}

// Weave replaces fn's body with, in order: requires checks, invariant
// checks, old captures, before advice, the original body (directly or
// through around advice), after advice in reverse, invariant checks,
// ensures checks and the return of the results.
//
// Statements up to the original body are placed at its opening brace and
// the rest at its closing brace, so comments stay where they were.
func (s *State) Weave(fn *ast.FuncDecl) (*Result, error) {
	if fn.Body == nil {
		return nil, werrors.NewUnsupportedDeclaration(s.directive(), "functions with a body")
	}

	scope := newScope(fn)
	results, decl, renamed := resultVars(fn.Type.Results, scope)
	if renamed != "" && len(s.Ensures) > 0 {
		return nil, werrors.NewMalformedDirective(s.Ensures[0].Directive(),
			fmt.Sprintf("parameter %s hides the result variable; rename the parameter", renamed))
	}
	inner := scope.fresh(innerName)

	// old captures must not shadow the signature or anything a rule names
	taken := make(map[string]string, len(scope))
	for name := range scope {
		taken[name] = ""
	}
	for _, c := range s.contracts() {
		for _, id := range c.Idents() {
			taken[id] = ""
		}
	}
	for _, c := range s.Ensures {
		c.Rebind(taken)
	}

	var head []ast.Stmt
	for _, c := range s.Requires {
		head = append(head, c.Render()...)
	}
	for _, c := range s.Invariants {
		head = append(head, c.Render()...)
	}
	head = append(head, contract.RenderDecls(s.Ensures)...)
	if decl != nil {
		head = append(head, decl)
	}

	before, err := aspect.BeforeBlocks(s.Aspects)
	if err != nil {
		return nil, err
	}
	head = append(head, before...)

	comp, err := aspect.ComposeAround(s.Aspects, []ast.Stmt{callInner(inner, results)})
	if err != nil {
		return nil, err
	}
	if len(comp.Skipping) > 0 && len(s.Ensures) > 0 {
		return nil, werrors.NewAroundWithoutProceed(comp.Skipping[0], s.Name)
	}

	var tail []ast.Stmt
	if len(comp.Skipping) > 0 {
		// the body is never reached
		tail = append(tail, &ast.AssignStmt{
			Lhs: []ast.Expr{ast.NewIdent("_")},
			Tok: token.ASSIGN,
			Rhs: []ast.Expr{ast.NewIdent(inner)},
		})
	}
	if s.hasAround() {
		// around locals must not clash with the function's own names
		tail = append(tail, &ast.BlockStmt{List: comp.Stmts})
	} else {
		tail = append(tail, comp.Stmts...)
	}

	after, err := aspect.AfterBlocks(s.Aspects)
	if err != nil {
		return nil, err
	}
	tail = append(tail, after...)

	for _, c := range s.Invariants {
		tail = append(tail, c.Render()...)
	}
	for _, c := range s.Ensures {
		tail = append(tail, c.Render()...)
	}

	if len(results) > 0 {
		ret := &ast.ReturnStmt{}
		for _, name := range results {
			ret.Results = append(ret.Results, ast.NewIdent(name))
		}
		tail = append(tail, ret)
	}

	// the result declaration shares its types with the signature
	var shared []ast.Node
	if fn.Type.Results != nil {
		for _, f := range fn.Type.Results.List {
			shared = append(shared, f.Type)
		}
	}
	lbrace, rbrace := fn.Body.Lbrace, fn.Body.Rbrace
	for _, stmt := range head {
		astx.SetPos(stmt, lbrace, shared...)
	}
	for _, stmt := range tail {
		astx.SetPos(stmt, rbrace)
	}

	list := append(head, closure(inner, fn, lbrace))
	list = append(list, tail...)
	body := &ast.BlockStmt{Lbrace: lbrace, List: list, Rbrace: rbrace}
	fn.Body = body

	res := &Result{Imports: aspect.UsedImports(body, s.Aspects)}
	for _, c := range s.contracts() {
		if c.Uses() {
			res.UsesRuntime = true
			break
		}
	}
	return res, nil
}

// closure binds the original body of fn to name.
func closure(name string, fn *ast.FuncDecl, pos token.Pos) ast.Stmt {
	return &ast.AssignStmt{
		Lhs:    []ast.Expr{&ast.Ident{NamePos: pos, Name: name}},
		TokPos: pos,
		Tok:    token.DEFINE,
		Rhs: []ast.Expr{&ast.FuncLit{
			Type: &ast.FuncType{
				Func:    pos,
				Params:  &ast.FieldList{Opening: pos, Closing: pos},
				Results: fn.Type.Results,
			},
			Body: fn.Body,
		}},
	}
}

// scope holds the identifiers declared by a function's signature.
type scope map[string]bool

func newScope(fn *ast.FuncDecl) scope {
	s := make(scope)
	lists := []*ast.FieldList{fn.Recv, fn.Type.TypeParams, fn.Type.Params, fn.Type.Results}
	for _, fl := range lists {
		if fl == nil {
			continue
		}
		for _, f := range fl.List {
			for _, n := range f.Names {
				s[n.Name] = true
			}
		}
	}
	return s
}

// fresh returns name, or name followed by underscores when the signature
// already declares it, and reserves the result.
func (s scope) fresh(name string) string {
	for s[name] {
		name += "_"
	}
	s[name] = true
	return name
}

// resultVars names the results of a function. Named results keep their
// names and need no declaration; a single unnamed result is "result" and
// several are result0, result1 and so on. renamed reports the first
// default name that a parameter forced to change.
func resultVars(fields *ast.FieldList, sc scope) (names []string, decl ast.Stmt, renamed string) {
	if fields == nil || len(fields.List) == 0 {
		return nil, nil, ""
	}

	if len(fields.List[0].Names) > 0 {
		for _, f := range fields.List {
			for _, n := range f.Names {
				names = append(names, n.Name)
			}
		}
		return names, nil, ""
	}

	gen := &ast.GenDecl{Tok: token.VAR}
	for i, f := range fields.List {
		base := "result"
		if len(fields.List) > 1 {
			base = fmt.Sprintf("result%d", i)
		}
		name := sc.fresh(base)
		if name != base && renamed == "" {
			renamed = base
		}
		names = append(names, name)
		gen.Specs = append(gen.Specs, &ast.ValueSpec{
			Names: []*ast.Ident{ast.NewIdent(name)},
			Type:  f.Type,
		})
	}
	return names, &ast.DeclStmt{Decl: gen}, renamed
}

func callInner(inner string, results []string) ast.Stmt {
	call := &ast.CallExpr{Fun: ast.NewIdent(inner)}
	if len(results) == 0 {
		return &ast.ExprStmt{X: call}
	}
	lhs := make([]ast.Expr, len(results))
	for i, name := range results {
		lhs[i] = ast.NewIdent(name)
	}
	return &ast.AssignStmt{Lhs: lhs, Tok: token.ASSIGN, Rhs: []ast.Expr{call}}
}
