package gen

import (
	"go/ast"
	"strconv"
	"strings"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/weave-lang/weave/internal/weaver/directive"
	"github.com/weave-lang/weave/pkg/weave"
)

// importUsage records which imports of f are referenced.
func importUsage(f *ast.File) map[string]bool {
	used := make(map[string]bool)
	for _, spec := range f.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		used[path] = astutil.UsesImport(f, path)
	}
	return used
}

// fixImports adds the runtime and advice imports the woven code needs and
// drops imports whose only uses were woven away. An import is dropped only
// when it was in use before weaving, so imports whose name cannot be
// guessed from the path are left alone.
func (w *weaver) fixImports(usedBefore map[string]bool) {
	f := w.file.AST
	fset := w.fset()

	if w.usesRuntime {
		astutil.AddImport(fset, f, weave.ImportPath)
	}
	for _, imp := range w.imports {
		if imp.Path == w.pkg.ImportPath {
			continue
		}
		if imp.Name != "" {
			astutil.AddNamedImport(fset, f, imp.Name, imp.Path)
		} else {
			astutil.AddImport(fset, f, imp.Path)
		}
	}

	for _, spec := range append([]*ast.ImportSpec(nil), f.Imports...) {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil || !usedBefore[path] || astutil.UsesImport(f, path) {
			continue
		}
		name := ""
		if spec.Name != nil {
			name = spec.Name.Name
		}
		astutil.DeleteNamedImport(fset, f, name, path)
	}
}

// stripDirectives removes every //weave: line from the file's comments and
// detaches comment groups left empty.
func stripDirectives(f *ast.File) {
	kept := f.Comments[:0]
	for _, cg := range f.Comments {
		if hasDirective(cg) {
			directive.RewriteDoc(cg, directive.KeptTexts(cg))
		}
		if len(cg.List) > 0 {
			kept = append(kept, cg)
		}
	}
	f.Comments = kept

	f.Doc = nonEmpty(f.Doc)
	ast.Inspect(f, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.FuncDecl:
			x.Doc = nonEmpty(x.Doc)
		case *ast.GenDecl:
			x.Doc = nonEmpty(x.Doc)
		case *ast.TypeSpec:
			x.Doc = nonEmpty(x.Doc)
			x.Comment = nonEmpty(x.Comment)
		case *ast.ValueSpec:
			x.Doc = nonEmpty(x.Doc)
			x.Comment = nonEmpty(x.Comment)
		case *ast.ImportSpec:
			x.Doc = nonEmpty(x.Doc)
			x.Comment = nonEmpty(x.Comment)
		case *ast.Field:
			x.Doc = nonEmpty(x.Doc)
			x.Comment = nonEmpty(x.Comment)
		}
		return true
	})
}

func hasDirective(cg *ast.CommentGroup) bool {
	for _, c := range cg.List {
		if strings.HasPrefix(c.Text, directive.Prefix) {
			return true
		}
	}
	return false
}

func nonEmpty(cg *ast.CommentGroup) *ast.CommentGroup {
	if cg == nil || len(cg.List) == 0 {
		return nil
	}
	return cg
}
