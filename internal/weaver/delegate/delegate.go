// Package delegate generates forwarding code: method bodies that call the
// same method on another value, and whole method sets composed from
// registered interfaces.
package delegate

import (
	"go/ast"
	"go/parser"
	"go/token"

	"github.com/weave-lang/weave/internal/weaver/astx"
	"github.com/weave-lang/weave/internal/weaver/directive"
	werrors "github.com/weave-lang/weave/internal/weaver/errors"
)

// Forward replaces the body of fn with a call of the same method on the
// receiver expression of its //weave:delegate directive. //weave:call
// renames the target method and //weave:into converts the single result to
// the declared result type.
func Forward(fset *token.FileSet, fn *ast.FuncDecl, set directive.Set) error {
	d, ok := set.Lookup(directive.Delegate)
	if !ok {
		return nil
	}
	pos := fset.Position(d.Pos)
	if fn.Body == nil {
		return werrors.NewUnsupportedDeclaration(directive.Delegate, "functions with a body").At(pos)
	}
	if d.Args == "" {
		return werrors.NewMalformedDirective(directive.Delegate, "missing receiver expression").At(pos).WithDirective(d.Text())
	}
	if astx.HasBlankParams(fn.Type) {
		return werrors.NewUnsupportedParameter(fn.Name.Name, "unnamed or blank parameter").At(pos)
	}

	recv, err := parser.ParseExpr(d.Args)
	if err != nil {
		return werrors.NewMalformedDirective(directive.Delegate, err.Error()).At(pos).WithDirective(d.Text())
	}
	astx.ClearPos(recv)

	target := fn.Name.Name
	if c, ok := set.Lookup(directive.Call); ok {
		if !token.IsIdentifier(c.Args) {
			return werrors.NewMalformedDirective(directive.Call, "expected a method name").
				At(fset.Position(c.Pos)).WithDirective(c.Text())
		}
		target = c.Args
	}

	names, variadic := astx.ParamNames(fn.Type)
	var call ast.Expr = astx.ForwardCall(
		&ast.SelectorExpr{X: recv, Sel: ast.NewIdent(target)},
		names, variadic, fn.Body.Lbrace)

	if into, ok := set.Lookup(directive.Into); ok {
		if astx.ResultCount(fn.Type) != 1 {
			return werrors.NewMalformedDirective(directive.Into, "the function must have exactly one result").
				At(fset.Position(into.Pos)).WithDirective(into.Text())
		}
		typ, err := conversionType(fset, fn.Type.Results.List[0].Type)
		if err != nil {
			return werrors.Wrapf(err, "convert result of %s", fn.Name.Name).At(fset.Position(into.Pos))
		}
		call = &ast.CallExpr{Fun: typ, Args: []ast.Expr{call}}
	}

	var stmt ast.Stmt = &ast.ExprStmt{X: call}
	if astx.ResultCount(fn.Type) > 0 {
		stmt = &ast.ReturnStmt{Results: []ast.Expr{call}}
	}
	astx.SetPos(stmt, fn.Body.Lbrace)
	fn.Body = &ast.BlockStmt{Lbrace: fn.Body.Lbrace, List: []ast.Stmt{stmt}, Rbrace: fn.Body.Rbrace}
	return nil
}

// conversionType copies t for use as a conversion. Pointer, function and
// channel types need parentheses to convert.
func conversionType(fset *token.FileSet, t ast.Expr) (ast.Expr, error) {
	text := astx.String(fset, t)
	typ, err := parser.ParseExpr(text)
	if err != nil {
		return nil, err
	}
	astx.ClearPos(typ)

	switch typ.(type) {
	case *ast.StarExpr, *ast.FuncType, *ast.ChanType:
		return &ast.ParenExpr{X: typ}, nil
	}
	return typ, nil
}
