package aspect

import (
	"go/ast"

	"golang.org/x/tools/go/ast/astutil"

	werrors "github.com/weave-lang/weave/internal/weaver/errors"
	"github.com/weave-lang/weave/pkg/weave"
)

// IsMarker reports whether call is pkg.Proceed() for the runtime package
// bound to pkg.
func IsMarker(call *ast.CallExpr, pkg string) bool {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Proceed" || len(call.Args) != 0 {
		return false
	}
	x, ok := sel.X.(*ast.Ident)
	return ok && x.Name == pkg
}

// Substitute replaces every joint-point marker statement in body with a
// block holding next. It reports how many markers were replaced. A marker
// used anywhere but as a standalone statement is a usage error.
func Substitute(body *ast.BlockStmt, pkg, aspectName string, next []ast.Stmt) (int, error) {
	var (
		count int
		err   error
	)
	astutil.Apply(body, func(c *astutil.Cursor) bool {
		if err != nil {
			return false
		}
		switch n := c.Node().(type) {
		case *ast.ExprStmt:
			call, ok := n.X.(*ast.CallExpr)
			if ok && IsMarker(call, pkg) {
				c.Replace(&ast.BlockStmt{List: next})
				count++
				return false
			}
		case *ast.CallExpr:
			if IsMarker(n, pkg) {
				err = werrors.NewMarkerMisuse(aspectName)
				return false
			}
		}
		return true
	}, nil)
	return count, err
}

// Composition is the result of nesting around advice.
type Composition struct {
	// Stmts runs the outermost advice; the innermost marker runs the body
	Stmts []ast.Stmt
	// Skipping lists the aspects whose around advice has no marker
	Skipping []string
}

// ComposeAround nests the around advice of defs around innermost. The
// first aspect ends up outermost and the last innermost, so composition
// walks the list backwards and each body's markers receive what was built
// so far. Aspects without around advice are skipped.
func ComposeAround(defs []*Definition, innermost []ast.Stmt) (*Composition, error) {
	comp := &Composition{Stmts: innermost}
	for i := len(defs) - 1; i >= 0; i-- {
		def := defs[i]
		if def.Around == nil {
			continue
		}
		body, err := def.Around.Block()
		if err != nil {
			return nil, werrors.NewMalformedRecord(def.Path, err)
		}
		n, err := Substitute(body, def.MarkerName(weave.ImportPath), def.Path, comp.Stmts)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			comp.Skipping = append(comp.Skipping, def.Path)
		}
		comp.Stmts = body.List
	}
	return comp, nil
}

// BeforeBlocks returns the before advice of defs in declaration order,
// each in its own block.
func BeforeBlocks(defs []*Definition) ([]ast.Stmt, error) {
	var out []ast.Stmt
	for _, def := range defs {
		if def.Before == nil {
			continue
		}
		block, err := def.Before.Block()
		if err != nil {
			return nil, werrors.NewMalformedRecord(def.Path, err)
		}
		out = append(out, block)
	}
	return out, nil
}

// AfterBlocks returns the after advice of defs in reverse declaration
// order, each in its own block.
func AfterBlocks(defs []*Definition) ([]ast.Stmt, error) {
	var out []ast.Stmt
	for i := len(defs) - 1; i >= 0; i-- {
		def := defs[i]
		if def.After == nil {
			continue
		}
		block, err := def.After.Block()
		if err != nil {
			return nil, werrors.NewMalformedRecord(def.Path, err)
		}
		out = append(out, block)
	}
	return out, nil
}

// UsedImports returns the imports of defs whose local name is referenced
// as a package qualifier in node.
func UsedImports(node ast.Node, defs []*Definition) []ImportRecord {
	qualifiers := make(map[string]bool)
	ast.Inspect(node, func(n ast.Node) bool {
		if sel, ok := n.(*ast.SelectorExpr); ok {
			if id, ok := sel.X.(*ast.Ident); ok {
				qualifiers[id.Name] = true
			}
		}
		return true
	})

	seen := make(map[string]bool)
	var out []ImportRecord
	for _, def := range defs {
		for _, imp := range def.Imports {
			if seen[imp.Path] || !qualifiers[imp.LocalName()] {
				continue
			}
			seen[imp.Path] = true
			out = append(out, imp)
		}
	}
	return out
}
