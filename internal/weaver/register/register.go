// Package register turns //weave:register and //weave:mount declarations
// into registry records.
//
// The record kind follows the type name: a name ending in Aspect becomes an
// aspect record with advice bodies, Remote an interface record without
// bodies, Enum an enum record listing its supertypes. Any other type is
// registered as an interface record.
package register

import (
	"context"
	"go/ast"
	"strconv"
	"strings"

	"github.com/weave-lang/weave/internal/weaver/aspect"
	"github.com/weave-lang/weave/internal/weaver/astx"
	"github.com/weave-lang/weave/internal/weaver/directive"
	werrors "github.com/weave-lang/weave/internal/weaver/errors"
	"github.com/weave-lang/weave/internal/weaver/source"
)

const (
	aspectSuffix = "Aspect"
	remoteSuffix = "Remote"
	enumSuffix   = "Enum"
)

// Decl is a type declaration carrying a directive.
type Decl struct {
	File *source.File
	Spec *ast.TypeSpec
	Doc  *ast.CommentGroup
}

// Register builds the record for d and stores it under path.
func Register(ctx context.Context, reg aspect.Registry, pkg *source.Package, d Decl, path string) (*aspect.Record, error) {
	if err := checkPath(directive.Register, path); err != nil {
		return nil, err
	}
	rec, err := BuildRecord(pkg, d)
	if err != nil {
		return nil, err
	}
	if err := aspect.Store(ctx, reg, path, rec); err != nil {
		return nil, at(pkg, d, err)
	}
	return rec, nil
}

// Mount adds the struct d to the members of the enum registered under path.
func Mount(ctx context.Context, reg aspect.Registry, pkg *source.Package, d Decl, path string) error {
	if err := checkPath(directive.Mount, path); err != nil {
		return err
	}
	if _, ok := d.Spec.Type.(*ast.StructType); !ok {
		return werrors.NewUnsupportedDeclaration(directive.Mount, "struct types").At(pkg.Position(d.Spec.Pos()))
	}

	rec, err := aspect.Fetch(ctx, reg, path)
	if err != nil {
		return at(pkg, d, err)
	}
	if rec.Kind != aspect.KindEnum {
		return werrors.NewMalformedDirective(directive.Mount, path+" is not a registered enum").
			At(pkg.Position(d.Spec.Pos()))
	}

	pos := pkg.Position(d.Spec.Name.Pos())
	if rec.Members == nil {
		rec.Members = make(map[string]aspect.Location)
	}
	rec.Members[d.Spec.Name.Name] = aspect.Location{File: pos.Filename, Line: pos.Line}
	return at(pkg, d, aspect.Store(ctx, reg, path, rec))
}

// BuildRecord describes d without touching the registry.
func BuildRecord(pkg *source.Package, d Decl) (*aspect.Record, error) {
	name := d.Spec.Name.Name
	if d.Spec.TypeParams != nil && len(d.Spec.TypeParams.List) > 0 {
		return nil, werrors.NewUnsupportedDeclaration(directive.Register, "non-generic types").At(pkg.Position(d.Spec.Pos()))
	}

	rec := &aspect.Record{
		Name:       name,
		Package:    pkg.Name,
		ImportPath: pkg.ImportPath,
		Docs:       directive.DocLines(d.Doc),
	}
	for _, imp := range d.File.Imports() {
		rec.Imports = append(rec.Imports, aspect.ImportRecord{Name: imp.Name, Path: imp.Path})
	}

	switch {
	case strings.HasSuffix(name, aspectSuffix):
		rec.Kind = aspect.KindAspect
		return rec, addAspectMethods(pkg, rec)
	case strings.HasSuffix(name, enumSuffix):
		rec.Kind = aspect.KindEnum
		rec.Supertypes = embedded(pkg, d.Spec.Type)
		rec.Members = map[string]aspect.Location{}
		return rec, nil
	default:
		rec.Kind = aspect.KindInterface
		rec.Supertypes = embedded(pkg, d.Spec.Type)
		addMethods(pkg, rec, d.Spec, !strings.HasSuffix(name, remoteSuffix))
		return rec, nil
	}
}

func addAspectMethods(pkg *source.Package, rec *aspect.Record) error {
	for _, m := range pkg.MethodsOf(rec.Name) {
		name := m.Decl.Name.Name
		if aspect.Classify(name) == aspect.Unrecognized {
			return werrors.NewInvalidAspectMethod(rec.Name, name).At(pkg.Position(m.Decl.Pos()))
		}
		if m.Decl.Body == nil {
			continue
		}
		rec.Methods = append(rec.Methods, aspect.MethodRecord{
			Name:      name,
			Docs:      directive.DocLines(m.Decl.Doc),
			Signature: signature(pkg, m.Decl.Type),
			Body:      m.File.Text(pkg.Fset, m.Decl.Body),
		})
	}
	return nil
}

func addMethods(pkg *source.Package, rec *aspect.Record, spec *ast.TypeSpec, bodies bool) {
	if it, ok := spec.Type.(*ast.InterfaceType); ok {
		for _, f := range it.Methods.List {
			ft, ok := f.Type.(*ast.FuncType)
			if !ok {
				continue
			}
			for _, n := range f.Names {
				rec.Methods = append(rec.Methods, aspect.MethodRecord{
					Name:      n.Name,
					Docs:      directive.DocLines(f.Doc),
					Signature: signature(pkg, ft),
				})
			}
		}
		return
	}

	for _, m := range pkg.MethodsOf(rec.Name) {
		if !m.Decl.Name.IsExported() {
			continue
		}
		mr := aspect.MethodRecord{
			Name:      m.Decl.Name.Name,
			Docs:      directive.DocLines(m.Decl.Doc),
			Signature: signature(pkg, m.Decl.Type),
		}
		if bodies && m.Decl.Body != nil {
			mr.Body = m.File.Text(pkg.Fset, m.Decl.Body)
		}
		rec.Methods = append(rec.Methods, mr)
	}
}

// embedded lists the embedded types of an interface or struct.
func embedded(pkg *source.Package, t ast.Expr) []string {
	var fields *ast.FieldList
	switch x := t.(type) {
	case *ast.InterfaceType:
		fields = x.Methods
	case *ast.StructType:
		fields = x.Fields
	}
	if fields == nil {
		return nil
	}

	var out []string
	for _, f := range fields.List {
		if len(f.Names) > 0 {
			continue
		}
		if _, ok := f.Type.(*ast.FuncType); ok {
			continue
		}
		out = append(out, astx.String(pkg.Fset, f.Type))
	}
	return out
}

// signature prints ft without receiver or name, e.g. "func(x int) error".
func signature(pkg *source.Package, ft *ast.FuncType) string {
	return astx.String(pkg.Fset, &ast.FuncType{Params: ft.Params, Results: ft.Results})
}

func checkPath(name, path string) error {
	if path == "" || strings.ContainsAny(path, " \t") {
		return werrors.NewMalformedDirective(name, "expected a single dotted path, got "+strconv.Quote(path))
	}
	return nil
}

// at positions registry errors at the declaration they came from.
func at(pkg *source.Package, d Decl, err error) error {
	if err == nil {
		return nil
	}
	if ce, ok := werrors.As(err); ok && ce.Location.Line == 0 {
		ce.At(pkg.Position(d.Spec.Pos()))
	}
	return err
}
