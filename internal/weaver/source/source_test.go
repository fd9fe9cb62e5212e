package source

import (
	"go/ast"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "go.mod"), "module example.com/shop\n\ngo 1.23\n")
	dir := filepath.Join(root, "internal", "cart")
	writeFile(t, filepath.Join(dir, "cart.go"), `package cart

import (
	"fmt"
	w "github.com/weave-lang/weave/pkg/weave"
)

type Cart struct{ items []string }

func (c *Cart) Add(item string) { c.items = append(c.items, item); fmt.Println(item); w.Proceed() }
`)
	writeFile(t, filepath.Join(dir, "more.go"), `package cart

func (c Cart) Len() int { return len(c.items) }

func helper() {}
`)
	writeFile(t, filepath.Join(dir, "cart_test.go"), "package cart_test\n")

	fset := token.NewFileSet()
	pkg, err := Load(fset, dir)
	require.NoError(t, err)

	assert.Equal(t, "cart", pkg.Name)
	assert.Equal(t, "example.com/shop/internal/cart", pkg.ImportPath)
	require.Len(t, pkg.Files, 2)

	methods := pkg.MethodsOf("Cart")
	require.Len(t, methods, 2)
	assert.Equal(t, "Add", methods[0].Decl.Name.Name)
	assert.Equal(t, "Len", methods[1].Decl.Name.Name)

	body := methods[1].File.Text(fset, methods[1].Decl.Body)
	assert.Equal(t, "{ return len(c.items) }", body)

	assert.Equal(t, []ImportSpec{
		{Path: "fmt"},
		{Name: "w", Path: "github.com/weave-lang/weave/pkg/weave"},
	}, pkg.Files[0].Imports())
}

func TestLoadMixedPackages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.go"), "package a\n")
	writeFile(t, filepath.Join(dir, "b.go"), "package b\n")

	_, err := Load(token.NewFileSet(), dir)
	assert.Error(t, err)
}

func TestLoadOutsideModule(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.go"), "package a\n")

	pkg, err := Load(token.NewFileSet(), dir)
	require.NoError(t, err)
	// temp dirs normally sit outside any module
	if pkg.ImportPath != "" {
		t.Skip("temp dir is inside a module")
	}
	assert.Equal(t, "a", pkg.Name)
}

func TestReceiverType(t *testing.T) {
	mk := func(recv ast.Expr) *ast.FuncDecl {
		return &ast.FuncDecl{Recv: &ast.FieldList{List: []*ast.Field{{Type: recv}}}}
	}
	assert.Equal(t, "T", ReceiverType(mk(ast.NewIdent("T"))))
	assert.Equal(t, "T", ReceiverType(mk(&ast.StarExpr{X: ast.NewIdent("T")})))
	assert.Equal(t, "T", ReceiverType(mk(&ast.StarExpr{X: &ast.IndexExpr{X: ast.NewIdent("T"), Index: ast.NewIdent("K")}})))
	assert.Equal(t, "", ReceiverType(&ast.FuncDecl{}))
}
