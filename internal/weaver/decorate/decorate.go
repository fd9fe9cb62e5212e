// Package decorate wraps function bodies in user supplied decorators.
//
// A decorator is a function taking and returning a function of the
// decorated type:
//
//	func Timed(next func(id int) error) func(id int) error
//
// A parametric decorator is a call producing such a function:
//
//	func Retry(n int) func(func(id int) error) func(id int) error
package decorate

import (
	"go/ast"
	"go/parser"
	"go/token"

	"github.com/weave-lang/weave/internal/weaver/astx"
	"github.com/weave-lang/weave/internal/weaver/directive"
	werrors "github.com/weave-lang/weave/internal/weaver/errors"
)

// Apply rewrites fn so its original body runs through the decorator named
// by d: "name" gives return name(inner)(params...) and "name(args...)"
// gives return name(args...)(inner)(params...).
func Apply(fset *token.FileSet, fn *ast.FuncDecl, d directive.Directive) error {
	pos := fset.Position(d.Pos)
	if fn.Body == nil {
		return werrors.NewUnsupportedDeclaration(directive.Decorate, "functions with a body").At(pos)
	}
	if fn.Type.TypeParams != nil && len(fn.Type.TypeParams.List) > 0 {
		return werrors.NewUnsupportedDeclaration(directive.Decorate, "non-generic functions").At(pos)
	}

	dec, err := decorator(d)
	if err != nil {
		return err.(*werrors.CompilerError).At(pos)
	}

	names, variadic := astx.ParamNames(fn.Type)
	typ, err := cloneType(fset, fn.Type)
	if err != nil {
		return werrors.Wrapf(err, "decorate %s", fn.Name.Name).At(pos)
	}

	inner := &ast.FuncLit{Type: typ, Body: fn.Body}
	wrapped := &ast.CallExpr{Fun: dec, Args: []ast.Expr{inner}}
	call := astx.ForwardCall(wrapped, names, variadic, fn.Body.Rbrace)

	var stmt ast.Stmt = &ast.ExprStmt{X: call}
	if astx.ResultCount(fn.Type) > 0 {
		stmt = &ast.ReturnStmt{Results: []ast.Expr{call}}
	}
	// the wrapper opens before the original body
	astx.SetPos(stmt, fn.Body.Lbrace, fn.Body)
	fn.Body = &ast.BlockStmt{Lbrace: fn.Body.Lbrace, List: []ast.Stmt{stmt}, Rbrace: fn.Body.Rbrace}
	return nil
}

// decorator parses the directive argument into the expression applied to
// the inner function.
func decorator(d directive.Directive) (ast.Expr, error) {
	if d.Args == "" {
		return nil, werrors.NewMalformedDirective(directive.Decorate, "missing decorator name").WithDirective(d.Text())
	}
	expr, err := parser.ParseExpr(d.Args)
	if err != nil {
		return nil, werrors.NewMalformedDirective(directive.Decorate, err.Error()).WithDirective(d.Text())
	}
	astx.ClearPos(expr)

	switch x := expr.(type) {
	case *ast.Ident, *ast.SelectorExpr:
		return x, nil
	case *ast.CallExpr:
		switch x.Fun.(type) {
		case *ast.Ident, *ast.SelectorExpr:
			return x, nil
		}
	}
	return nil, werrors.NewMalformedDirective(directive.Decorate, "expected name or name(args...)").WithDirective(d.Text())
}

// cloneType copies the parameters and results of ft without positions.
func cloneType(fset *token.FileSet, ft *ast.FuncType) (*ast.FuncType, error) {
	src := astx.String(fset, &ast.FuncType{Params: ft.Params, Results: ft.Results})
	expr, err := parser.ParseExpr(src)
	if err != nil {
		return nil, err
	}
	astx.ClearPos(expr)
	return expr.(*ast.FuncType), nil
}
