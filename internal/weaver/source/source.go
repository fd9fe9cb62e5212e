// Package source loads the Go files of a package directory for weaving.
package source

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/mod/modfile"

	werrors "github.com/weave-lang/weave/internal/weaver/errors"
)

// File is one parsed source file.
type File struct {
	Path string
	Src  []byte
	AST  *ast.File
}

// Package is the set of non-test files of one directory.
type Package struct {
	Dir        string
	Name       string
	ImportPath string
	Fset       *token.FileSet
	Files      []*File

	methods map[string][]Method
}

// Method is a method declaration and the file holding it.
type Method struct {
	Decl *ast.FuncDecl
	File *File
}

// Load parses every .go file in dir except tests into fset. The import
// path is derived from the nearest go.mod.
func Load(fset *token.FileSet, dir string) (*Package, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, werrors.NewParseFailed(dir, err)
	}

	pkg := &Package{Dir: abs, Fset: fset}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}

		p := filepath.Join(abs, name)
		src, err := os.ReadFile(p)
		if err != nil {
			return nil, werrors.NewParseFailed(p, err)
		}
		f, err := parser.ParseFile(fset, p, src, parser.ParseComments)
		if err != nil {
			return nil, werrors.NewParseFailed(p, err)
		}
		if pkg.Name == "" {
			pkg.Name = f.Name.Name
		} else if f.Name.Name != pkg.Name {
			return nil, werrors.NewParseFailed(p, fmt.Errorf("package %s, expected %s", f.Name.Name, pkg.Name))
		}
		pkg.Files = append(pkg.Files, &File{Path: p, Src: src, AST: f})
	}
	sort.Slice(pkg.Files, func(i, j int) bool { return pkg.Files[i].Path < pkg.Files[j].Path })

	pkg.ImportPath = importPath(abs)
	pkg.indexMethods()
	return pkg, nil
}

// importPath joins the module path of the nearest go.mod with the
// directory's relative location. Outside a module it returns "".
func importPath(dir string) string {
	for d := dir; ; {
		data, err := os.ReadFile(filepath.Join(d, "go.mod"))
		if err == nil {
			mod := modfile.ModulePath(data)
			if mod == "" {
				return ""
			}
			rel, err := filepath.Rel(d, dir)
			if err != nil || rel == "." {
				return mod
			}
			return path.Join(mod, filepath.ToSlash(rel))
		}
		parent := filepath.Dir(d)
		if parent == d {
			return ""
		}
		d = parent
	}
}

// indexMethods records the methods of every receiver type as loaded.
// Weaving appends declarations to files concurrently, so lookups must not
// walk the declaration lists afterwards.
func (p *Package) indexMethods() {
	p.methods = make(map[string][]Method)
	for _, f := range p.Files {
		for _, d := range f.AST.Decls {
			fn, ok := d.(*ast.FuncDecl)
			if !ok {
				continue
			}
			if recv := ReceiverType(fn); recv != "" {
				p.methods[recv] = append(p.methods[recv], Method{Decl: fn, File: f})
			}
		}
	}
}

// MethodsOf returns the methods declared on typeName in source order.
func (p *Package) MethodsOf(typeName string) []Method {
	return p.methods[typeName]
}

// Position resolves pos.
func (p *Package) Position(pos token.Pos) token.Position {
	return p.Fset.Position(pos)
}

// Text returns the source of node exactly as written.
func (f *File) Text(fset *token.FileSet, node ast.Node) string {
	tf := fset.File(node.Pos())
	if tf == nil {
		return ""
	}
	return string(f.Src[tf.Offset(node.Pos()):tf.Offset(node.End())])
}

// Imports lists the file's imports.
func (f *File) Imports() []ImportSpec {
	var out []ImportSpec
	for _, spec := range f.AST.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		imp := ImportSpec{Path: p}
		if spec.Name != nil {
			imp.Name = spec.Name.Name
		}
		out = append(out, imp)
	}
	return out
}

// ImportSpec is an import as declared.
type ImportSpec struct {
	Name string
	Path string
}

// ReceiverType returns the base type name of fn's receiver, or "" for a
// plain function.
func ReceiverType(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	t := fn.Recv.List[0].Type
	for {
		switch x := t.(type) {
		case *ast.StarExpr:
			t = x.X
		case *ast.ParenExpr:
			t = x.X
		case *ast.IndexExpr:
			t = x.X
		case *ast.IndexListExpr:
			t = x.X
		case *ast.Ident:
			return x.Name
		default:
			return ""
		}
	}
}
