package delegate

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"sort"
	"strings"

	"github.com/weave-lang/weave/internal/weaver/aspect"
	"github.com/weave-lang/weave/internal/weaver/astx"
	"github.com/weave-lang/weave/internal/weaver/directive"
	"github.com/weave-lang/weave/internal/weaver/emit"
	werrors "github.com/weave-lang/weave/internal/weaver/errors"
	"github.com/weave-lang/weave/internal/weaver/source"
)

// Composition is one parsed //weave:compose directive.
type Composition struct {
	Field string
	Paths []string
}

// ParseComposition reads "field path[,path...]".
func ParseComposition(d directive.Directive) (Composition, error) {
	field, rest, _ := strings.Cut(d.Args, " ")
	field = strings.TrimSpace(field)
	if !token.IsIdentifier(field) {
		return Composition{}, werrors.NewMalformedDirective(directive.Compose, "expected a field name").WithDirective(d.Text())
	}

	var c Composition
	c.Field = field
	for _, p := range strings.Split(rest, ",") {
		if p = strings.TrimSpace(p); p != "" {
			c.Paths = append(c.Paths, p)
		}
	}
	if len(c.Paths) == 0 {
		return Composition{}, werrors.NewMalformedDirective(directive.Compose, "expected at least one registered path").WithDirective(d.Text())
	}
	return c, nil
}

// Compose writes a forwarding method on the struct spec for every method of
// the interfaces the directive names. Methods the struct already declares
// are left alone. It returns the imports the generated signatures need.
func Compose(ctx context.Context, reg aspect.Registry, pkg *source.Package, spec *ast.TypeSpec, d directive.Directive, g *emit.Generator) ([]aspect.ImportRecord, error) {
	pos := pkg.Position(d.Pos)
	st, ok := spec.Type.(*ast.StructType)
	if !ok {
		return nil, werrors.NewUnsupportedDeclaration(directive.Compose, "struct types").At(pos)
	}
	c, err := ParseComposition(d)
	if err != nil {
		return nil, err.(*werrors.CompilerError).At(pos)
	}
	if !hasField(st, c.Field) {
		return nil, werrors.NewMalformedDirective(directive.Compose, fmt.Sprintf("%s has no field %s", spec.Name.Name, c.Field)).
			At(pos).WithDirective(d.Text())
	}

	declared := make(map[string]bool)
	for _, m := range pkg.MethodsOf(spec.Name.Name) {
		declared[m.Decl.Name.Name] = true
	}

	imports := make(map[aspect.ImportRecord]bool)
	for _, path := range c.Paths {
		rec, err := aspect.Fetch(ctx, reg, path)
		if err != nil {
			if ce, ok := werrors.As(err); ok {
				ce.At(pos)
			}
			return nil, err
		}
		if rec.Kind != aspect.KindInterface {
			return nil, werrors.NewMalformedDirective(directive.Compose, path+" is not a registered interface").
				At(pos).WithDirective(d.Text())
		}

		for _, m := range rec.Methods {
			if declared[m.Name] {
				continue
			}
			declared[m.Name] = true
			used, err := forward(g, pkg, spec.Name.Name, c.Field, rec, m)
			if err != nil {
				return nil, werrors.Wrapf(err, "compose %s from %s", m.Name, path).At(pos)
			}
			for _, imp := range used {
				imports[imp] = true
			}
		}
	}

	out := make([]aspect.ImportRecord, 0, len(imports))
	for imp := range imports {
		out = append(out, imp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func hasField(st *ast.StructType, name string) bool {
	for _, f := range st.Fields.List {
		if len(f.Names) == 0 {
			if embeddedName(f.Type) == name {
				return true
			}
			continue
		}
		for _, n := range f.Names {
			if n.Name == name {
				return true
			}
		}
	}
	return false
}

func embeddedName(t ast.Expr) string {
	switch x := t.(type) {
	case *ast.StarExpr:
		return embeddedName(x.X)
	case *ast.SelectorExpr:
		return x.Sel.Name
	case *ast.Ident:
		return x.Name
	}
	return ""
}

// forward writes one method and returns the imports its signature uses.
func forward(g *emit.Generator, pkg *source.Package, typeName, field string, rec *aspect.Record, m aspect.MethodRecord) ([]aspect.ImportRecord, error) {
	expr, err := parser.ParseExpr(m.Signature)
	if err != nil {
		return nil, err
	}
	ft, ok := expr.(*ast.FuncType)
	if !ok {
		return nil, fmt.Errorf("signature %q is not a function type", m.Signature)
	}
	astx.ClearPos(ft)

	used := qualify(ft, rec, pkg.ImportPath)
	names, variadic := astx.ParamNames(ft)

	recv := astx.ReceiverName(typeName)
	for _, n := range names {
		if n == recv {
			recv = "recv"
		}
	}

	args := strings.Join(names, ", ")
	if variadic {
		args += "..."
	}
	call := fmt.Sprintf("%s.%s.%s(%s)", recv, field, m.Name, args)

	sig := strings.TrimPrefix(astx.String(nil, ft), "func")
	g.Line("// %s forwards to %s.", m.Name, field)
	g.Line("func (%s *%s) %s%s {", recv, typeName, m.Name, sig)
	g.In()
	if astx.ResultCount(ft) > 0 {
		g.Line("return %s", call)
	} else {
		g.Line("%s", call)
	}
	g.Out()
	g.Line("}")
	g.Line("")
	return used, nil
}

// qualify rewrites ft so it reads correctly from the package at importPath:
// exported names declared by the record's package get its package name.
// It returns the imports the rewritten signature references.
func qualify(ft *ast.FuncType, rec *aspect.Record, importPath string) []aspect.ImportRecord {
	local := rec.ImportPath == "" || rec.ImportPath == importPath
	byName := make(map[string]aspect.ImportRecord)
	for _, imp := range rec.Imports {
		byName[imp.LocalName()] = imp
	}

	var used []aspect.ImportRecord
	seen := make(map[string]bool)
	use := func(imp aspect.ImportRecord) {
		if !seen[imp.Path] {
			seen[imp.Path] = true
			used = append(used, imp)
		}
	}

	rewrite := func(e ast.Expr) ast.Expr {
		switch x := e.(type) {
		case *ast.Ident:
			if !local && x.IsExported() {
				use(aspect.ImportRecord{Path: rec.ImportPath})
				return &ast.SelectorExpr{X: ast.NewIdent(rec.Package), Sel: x}
			}
		case *ast.SelectorExpr:
			if id, ok := x.X.(*ast.Ident); ok {
				if imp, ok := byName[id.Name]; ok {
					use(imp)
				}
			}
		}
		return e
	}
	for _, fl := range []*ast.FieldList{ft.Params, ft.Results} {
		if fl == nil {
			continue
		}
		for _, f := range fl.List {
			f.Type = qualifyType(f.Type, rewrite)
		}
	}
	return used
}

// qualifyType applies rewrite to every type name inside t.
func qualifyType(t ast.Expr, rewrite func(ast.Expr) ast.Expr) ast.Expr {
	switch x := t.(type) {
	case *ast.Ident, *ast.SelectorExpr:
		return rewrite(x)
	case *ast.StarExpr:
		x.X = qualifyType(x.X, rewrite)
	case *ast.ArrayType:
		x.Elt = qualifyType(x.Elt, rewrite)
	case *ast.MapType:
		x.Key = qualifyType(x.Key, rewrite)
		x.Value = qualifyType(x.Value, rewrite)
	case *ast.ChanType:
		x.Value = qualifyType(x.Value, rewrite)
	case *ast.Ellipsis:
		x.Elt = qualifyType(x.Elt, rewrite)
	case *ast.IndexExpr:
		x.X = qualifyType(x.X, rewrite)
		x.Index = qualifyType(x.Index, rewrite)
	case *ast.IndexListExpr:
		x.X = qualifyType(x.X, rewrite)
		for i := range x.Indices {
			x.Indices[i] = qualifyType(x.Indices[i], rewrite)
		}
	case *ast.FuncType:
		for _, fl := range []*ast.FieldList{x.Params, x.Results} {
			if fl == nil {
				continue
			}
			for _, f := range fl.List {
				f.Type = qualifyType(f.Type, rewrite)
			}
		}
	}
	return t
}
