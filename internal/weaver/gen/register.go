package gen

import (
	"context"
	"go/ast"
	"go/token"

	"github.com/weave-lang/weave/internal/weaver/aspect"
	"github.com/weave-lang/weave/internal/weaver/directive"
	werrors "github.com/weave-lang/weave/internal/weaver/errors"
	"github.com/weave-lang/weave/internal/weaver/register"
	"github.com/weave-lang/weave/internal/weaver/source"
)

// typeDecl is a type spec with the doc comment its directives live in.
type typeDecl struct {
	spec *ast.TypeSpec
	doc  *ast.CommentGroup
}

// typeDecls lists the type specs of gd. A lone spec takes the GenDecl's
// doc comment when it has none of its own.
func typeDecls(gd *ast.GenDecl) []typeDecl {
	if gd.Tok != token.TYPE {
		return nil
	}
	var out []typeDecl
	for _, s := range gd.Specs {
		ts := s.(*ast.TypeSpec)
		doc := ts.Doc
		if doc == nil && len(gd.Specs) == 1 {
			doc = gd.Doc
		}
		out = append(out, typeDecl{spec: ts, doc: doc})
	}
	return out
}

// registerPass stores every //weave:register record, then applies every
// //weave:mount. Mounts run second so an enum and its members may live in
// the same run in any order.
func registerPass(ctx context.Context, reg aspect.Registry, pkgs []*source.Package) ([]string, werrors.ErrorList) {
	type mount struct {
		pkg  *source.Package
		decl register.Decl
		path string
	}

	var (
		registered []string
		mounts     []mount
		errs       werrors.ErrorList
	)
	for _, pkg := range pkgs {
		for _, file := range pkg.Files {
			for _, d := range file.AST.Decls {
				gd, ok := d.(*ast.GenDecl)
				if !ok {
					continue
				}
				for _, td := range typeDecls(gd) {
					set, err := directive.Parse(pkg.Fset, td.doc)
					if err != nil {
						errs = append(errs, asCompilerError(err))
						continue
					}
					decl := register.Decl{File: file, Spec: td.spec, Doc: td.doc}
					if r, ok := set.Lookup(directive.Register); ok {
						if reg == nil {
							errs = append(errs, werrors.NewRegistryUnavailable("(none)", nil).At(pkg.Position(r.Pos)))
							continue
						}
						if _, err := register.Register(ctx, reg, pkg, decl, r.Args); err != nil {
							errs = append(errs, located(err, pkg.Position(r.Pos), r))
							continue
						}
						registered = append(registered, r.Args)
					}
					if m, ok := set.Lookup(directive.Mount); ok {
						mounts = append(mounts, mount{pkg: pkg, decl: decl, path: m.Args})
					}
				}
			}
		}
	}

	for _, m := range mounts {
		if reg == nil {
			errs = append(errs, werrors.NewRegistryUnavailable("(none)", nil).At(m.pkg.Position(m.decl.Spec.Pos())))
			continue
		}
		if err := register.Mount(ctx, reg, m.pkg, m.decl, m.path); err != nil {
			errs = append(errs, asCompilerError(err))
		}
	}
	return registered, errs
}

// located positions err at pos unless it already carries a location, and
// records the directive text.
func located(err error, pos token.Position, d directive.Directive) *werrors.CompilerError {
	ce := asCompilerError(err)
	if ce.Location.Line == 0 {
		ce.At(pos)
	}
	if ce.Directive == "" {
		ce.WithDirective(d.Text())
	}
	return ce
}
