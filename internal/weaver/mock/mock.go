// Package mock generates test doubles for //weave:mock interfaces.
//
// For an interface I the generator writes MockI, which embeds a fallback I
// and carries one optional override func per method, and MockIBuilder
// with a With<Method> setter per method.
package mock

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/weave-lang/weave/internal/weaver/astx"
	"github.com/weave-lang/weave/internal/weaver/directive"
	"github.com/weave-lang/weave/internal/weaver/emit"
	werrors "github.com/weave-lang/weave/internal/weaver/errors"
)

type method struct {
	name     string
	sig      string // parameters and results, without "func"
	funcType string
	params   []string
	variadic bool
	results  int
}

// Generate writes the mock and builder for the interface spec into g.
func Generate(fset *token.FileSet, spec *ast.TypeSpec, d directive.Directive, g *emit.Generator) error {
	pos := fset.Position(d.Pos)
	it, ok := spec.Type.(*ast.InterfaceType)
	if !ok {
		return werrors.NewUnsupportedDeclaration(directive.Mock, "interface types").At(pos)
	}
	if spec.TypeParams != nil && len(spec.TypeParams.List) > 0 {
		return werrors.NewUnsupportedDeclaration(directive.Mock, "non-generic interfaces").At(pos)
	}

	var methods []method
	for _, f := range it.Methods.List {
		ft, ok := f.Type.(*ast.FuncType)
		if !ok {
			continue
		}
		for _, n := range f.Names {
			m, err := describe(fset, n.Name, ft)
			if err != nil {
				return werrors.Wrapf(err, "mock %s.%s", spec.Name.Name, n.Name).At(pos)
			}
			methods = append(methods, m)
		}
	}

	write(g, spec.Name.Name, methods)
	return nil
}

func describe(fset *token.FileSet, name string, ft *ast.FuncType) (method, error) {
	expr, err := parser.ParseExpr(astx.String(fset, &ast.FuncType{Params: ft.Params, Results: ft.Results}))
	if err != nil {
		return method{}, err
	}
	clone := expr.(*ast.FuncType)
	astx.ClearPos(clone)

	params, variadic := astx.ParamNames(clone)
	funcType := astx.String(nil, clone)
	return method{
		name:     name,
		sig:      strings.TrimPrefix(funcType, "func"),
		funcType: funcType,
		params:   params,
		variadic: variadic,
		results:  astx.ResultCount(clone),
	}, nil
}

func write(g *emit.Generator, iface string, methods []method) {
	mock := "Mock" + iface
	builder := mock + "Builder"

	g.Line("// %s is a %s whose methods can be overridden one by one. Methods", mock, iface)
	g.Line("// without an override call the embedded fallback.")
	g.Line("type %s struct {", mock)
	g.In()
	g.Line("%s", iface)
	for _, m := range methods {
		g.Line("%sFunc %s", m.name, m.funcType)
	}
	g.Out()
	g.Line("}")
	g.Line("")

	for _, m := range methods {
		recv := receiver("m", m.params)
		args := strings.Join(m.params, ", ")
		if m.variadic {
			args += "..."
		}
		ret := ""
		if m.results > 0 {
			ret = "return "
		}

		g.Line("// %s calls %sFunc when set and the fallback otherwise.", m.name, m.name)
		g.Line("func (%s *%s) %s%s {", recv, mock, m.name, m.sig)
		g.In()
		g.Line("if %s.%sFunc != nil {", recv, m.name)
		g.In()
		g.Line("%s%s.%sFunc(%s)", ret, recv, m.name, args)
		if m.results == 0 {
			g.Line("return")
		}
		g.Out()
		g.Line("}")
		g.Line("%s%s.%s.%s(%s)", ret, recv, iface, m.name, args)
		g.Out()
		g.Line("}")
		g.Line("")
	}

	g.Line("// %s configures a %s.", builder, mock)
	g.Line("type %s struct {", builder)
	g.In()
	g.Line("mock *%s", mock)
	g.Out()
	g.Line("}")
	g.Line("")

	g.Line("// New%s starts a mock that falls back to fallback.", builder)
	g.Line("func New%s(fallback %s) *%s {", builder, iface, builder)
	g.In()
	g.Line("return &%s{mock: &%s{%s: fallback}}", builder, mock, iface)
	g.Out()
	g.Line("}")
	g.Line("")

	for _, m := range methods {
		g.Line("// With%s overrides %s.", m.name, m.name)
		g.Line("func (b *%s) With%s(f %s) *%s {", builder, m.name, m.funcType, builder)
		g.In()
		g.Line("b.mock.%sFunc = f", m.name)
		g.Line("return b")
		g.Out()
		g.Line("}")
		g.Line("")
	}

	g.Line("// Build returns the configured mock.")
	g.Line("func (b *%s) Build() *%s {", builder, mock)
	g.In()
	g.Line("return b.mock")
	g.Out()
	g.Line("}")
	g.Line("")
}

// receiver picks a receiver name that no parameter shadows.
func receiver(name string, params []string) string {
	for _, p := range params {
		if p == name {
			return "recv"
		}
	}
	return name
}
