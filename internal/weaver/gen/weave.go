package gen

import (
	"bytes"
	"context"
	"go/ast"
	"go/format"
	"go/token"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/weave-lang/weave/internal/weaver/aspect"
	"github.com/weave-lang/weave/internal/weaver/contract"
	"github.com/weave-lang/weave/internal/weaver/decorate"
	"github.com/weave-lang/weave/internal/weaver/delegate"
	"github.com/weave-lang/weave/internal/weaver/directive"
	"github.com/weave-lang/weave/internal/weaver/emit"
	werrors "github.com/weave-lang/weave/internal/weaver/errors"
	"github.com/weave-lang/weave/internal/weaver/mock"
	"github.com/weave-lang/weave/internal/weaver/source"
	"github.com/weave-lang/weave/internal/weaver/synth"
)

// funcOnly and typeOnly list the directives restricted to one kind of
// declaration. Contract directives are checked separately.
var (
	funcOnly = []string{directive.Aspect, directive.Delegate, directive.Call, directive.Into, directive.Decorate}
	typeOnly = []string{directive.Register, directive.Mount, directive.Compose, directive.Mock}
)

type wovenFile struct {
	source string
	src    []byte
}

// weaver rewrites one file. It owns the file's AST for the duration of
// pass 2.
type weaver struct {
	pkg      *source.Package
	file     *source.File
	opts     Options
	logger   *zap.Logger
	resolver *aspect.Resolver
	gen      *emit.Generator

	usesRuntime bool
	imports     []aspect.ImportRecord
	issues      werrors.ErrorList
}

func newWeaver(pkg *source.Package, file *source.File, opts Options, logger *zap.Logger) *weaver {
	w := &weaver{
		pkg:    pkg,
		file:   file,
		opts:   opts,
		logger: logger.With(zap.String("file", file.Path)),
		gen:    emit.NewGenerator(pkg.Fset),
	}
	if opts.Registry != nil {
		w.resolver = aspect.NewResolver(opts.Registry, w.logger)
	}
	return w
}

func (w *weaver) fset() *token.FileSet {
	return w.pkg.Fset
}

func (w *weaver) fail(err error) {
	w.issues = append(w.issues, asCompilerError(err))
}

// run weaves the file. It returns nil output when the file carries no
// directives or weaving failed.
func (w *weaver) run(ctx context.Context) (*wovenFile, werrors.ErrorList) {
	f := w.file.AST
	usedBefore := importUsage(f)
	found := false

	// generated declarations are appended to f.Decls; only walk the originals
	decls := append([]ast.Decl(nil), f.Decls...)
	for _, d := range decls {
		if ctx.Err() != nil {
			return nil, w.issues
		}
		switch d := d.(type) {
		case *ast.FuncDecl:
			set, err := directive.Parse(w.fset(), d.Doc)
			if err != nil {
				w.fail(err)
				continue
			}
			if set.HasAny() {
				found = true
				w.weaveFunc(ctx, d, set)
			}
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				set, err := directive.Parse(w.fset(), d.Doc)
				if err != nil {
					w.fail(err)
					continue
				}
				if set.HasAny() {
					found = true
					w.fail(werrors.NewUnsupportedDeclaration(set[0].Name, "functions and types").
						At(w.fset().Position(set[0].Pos)).WithDirective(set[0].Text()))
				}
				continue
			}
			for _, td := range typeDecls(d) {
				set, err := directive.Parse(w.fset(), td.doc)
				if err != nil {
					w.fail(err)
					continue
				}
				if set.HasAny() {
					found = true
					w.weaveType(ctx, td, set)
				}
			}
		}
	}

	if !found || w.issues.HasErrors() {
		return nil, w.issues
	}

	if err := w.gen.Attach(f, strings.TrimSuffix(w.file.Path, ".go")+"_weave.go"); err != nil {
		w.fail(err)
		return nil, w.issues
	}
	stripDirectives(f)
	w.fixImports(usedBefore)

	var buf bytes.Buffer
	if err := format.Node(&buf, w.fset(), f); err != nil {
		w.fail(werrors.NewCodeGenFailed("print " + filepath.Base(w.file.Path)).WithCause(err).WithFile(w.file.Path))
		return nil, w.issues
	}
	w.logger.Debug("woven file")
	return &wovenFile{source: w.file.Path, src: buf.Bytes()}, w.issues
}

// misplaced reports directives from names found on the wrong declaration.
func (w *weaver) misplaced(set directive.Set, names []string, want string) bool {
	bad := false
	for _, name := range names {
		if d, ok := set.Lookup(name); ok {
			w.fail(werrors.NewUnsupportedDeclaration(name, want).At(w.fset().Position(d.Pos)).WithDirective(d.Text()))
			bad = true
		}
	}
	return bad
}

func (w *weaver) weaveFunc(ctx context.Context, fn *ast.FuncDecl, set directive.Set) {
	if w.misplaced(set, typeOnly, "type declarations") {
		return
	}
	errs := len(w.issues)

	state := synth.NewState(fn.Name.Name)
	for _, d := range set.Contracts() {
		c, err := contract.Parse(d.Name, d.Args)
		if err != nil {
			w.fail(located(err, w.fset().Position(d.Pos), d))
			continue
		}
		c.Mode = c.Mode.Final(w.opts.Override)
		if c.Mode == contract.LogOnly {
			w.logger.Info("contract",
				zap.String("function", fn.Name.Name),
				zap.String("kind", string(c.Kind)),
				zap.String("rule", d.Args))
		}
		state.AddContract(c)
	}

	for _, d := range set.All(directive.Aspect) {
		paths := splitPaths(d.Args)
		if len(paths) == 0 {
			w.fail(werrors.NewMalformedDirective(d.Name, "expected a registered aspect path").
				At(w.fset().Position(d.Pos)).WithDirective(d.Text()))
		}
		for _, path := range paths {
			def, err := w.resolve(ctx, path, d)
			if err != nil {
				w.fail(err)
				continue
			}
			state.AddAspect(def)
		}
	}
	if len(w.issues) > errs && w.issues[errs:].HasErrors() {
		return
	}

	// forwarding replaces the body, so it goes first and the contracts and
	// aspects wrap the forwarding call
	if set.Has(directive.Delegate) {
		old := fn.Body
		if err := delegate.Forward(w.fset(), fn, set); err != nil {
			w.fail(err)
			return
		}
		w.dropComments(old)
	} else {
		for _, name := range []string{directive.Call, directive.Into} {
			if d, ok := set.Lookup(name); ok {
				w.fail(werrors.NewMalformedDirective(name, "needs a //weave:delegate directive").
					At(w.fset().Position(d.Pos)).WithDirective(d.Text()))
				return
			}
		}
	}

	pos := w.fset().Position(fn.Pos())
	if !state.Empty() {
		kept := directive.KeptTexts(fn.Doc)
		res, err := state.Weave(fn)
		if err != nil {
			w.fail(located(err, pos, set[0]))
			return
		}
		w.usesRuntime = w.usesRuntime || res.UsesRuntime
		w.imports = append(w.imports, res.Imports...)
		directive.RewriteDoc(fn.Doc, state.DocTexts(kept))
	}

	if d, ok := set.Lookup(directive.Decorate); ok {
		if err := decorate.Apply(w.fset(), fn, d); err != nil {
			w.fail(err)
		}
	}
}

// dropComments removes the comments of a replaced body from the file.
func (w *weaver) dropComments(body *ast.BlockStmt) {
	if body == nil {
		return
	}
	f := w.file.AST
	kept := f.Comments[:0]
	for _, cg := range f.Comments {
		if cg.Pos() > body.Lbrace && cg.End() <= body.Rbrace {
			continue
		}
		kept = append(kept, cg)
	}
	f.Comments = kept
}

func (w *weaver) resolve(ctx context.Context, path string, d directive.Directive) (*aspect.Definition, error) {
	pos := w.fset().Position(d.Pos)
	if w.resolver == nil {
		return nil, werrors.NewRegistryUnavailable("(none)", nil).At(pos)
	}
	def, warnings, err := w.resolver.Resolve(ctx, path)
	for _, warn := range warnings {
		w.issues = append(w.issues, located(warn, pos, d))
	}
	if err != nil {
		return nil, located(err, pos, d)
	}
	return def, nil
}

func (w *weaver) weaveType(ctx context.Context, td typeDecl, set directive.Set) {
	if w.misplaced(set, funcOnly, "functions") {
		return
	}
	if cs := set.Contracts(); len(cs) > 0 {
		d := cs[0]
		w.fail(werrors.NewUnsupportedDeclaration(d.Name, "functions").At(w.fset().Position(d.Pos)).WithDirective(d.Text()))
		return
	}

	for _, d := range set.All(directive.Compose) {
		if w.opts.Registry == nil {
			w.fail(werrors.NewRegistryUnavailable("(none)", nil).At(w.fset().Position(d.Pos)))
			return
		}
		imports, err := delegate.Compose(ctx, w.opts.Registry, w.pkg, td.spec, d, w.gen)
		if err != nil {
			w.fail(located(err, w.fset().Position(d.Pos), d))
			return
		}
		w.imports = append(w.imports, imports...)
	}

	if d, ok := set.Lookup(directive.Mock); ok {
		if err := mock.Generate(w.fset(), td.spec, d, w.gen); err != nil {
			w.fail(err)
		}
	}
}

// splitPaths splits a comma separated list of registry paths.
func splitPaths(args string) []string {
	var out []string
	for _, p := range strings.Split(args, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
