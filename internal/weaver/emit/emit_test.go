package emit

import (
	"bytes"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	werrors "github.com/weave-lang/weave/internal/weaver/errors"
)

func parse(t *testing.T, fset *token.FileSet, src string) *ast.File {
	t.Helper()
	file, err := parser.ParseFile(fset, "app.go", src, parser.ParseComments)
	require.NoError(t, err)
	return file
}

func TestGeneratorLines(t *testing.T) {
	g := NewGenerator(token.NewFileSet())
	g.Line("func F() int {")
	g.In()
	g.Line("return %d", 1)
	g.Out()
	g.Out()
	g.Line("}")
	g.Line("")

	assert.Equal(t, "func F() int {\n\treturn 1\n}\n\n", g.Source())
	assert.Equal(t, len(g.Source()), g.Len())
}

func TestAttachAppendsDeclarations(t *testing.T) {
	fset := token.NewFileSet()
	file := parse(t, fset, "package app\n\ntype Clock interface{ Now() int64 }\n")

	g := NewGenerator(fset)
	g.Line("// MockClock is generated.")
	g.Line("type MockClock struct{}")
	g.Line("")
	g.Line("func (MockClock) Now() int64 { return 0 }")
	require.NoError(t, g.Attach(file, "app.go.weave"))

	require.Len(t, file.Decls, 3)
	assert.Zero(t, g.Len())

	var buf bytes.Buffer
	require.NoError(t, format.Node(&buf, fset, file))
	out := buf.String()
	assert.Contains(t, out, "// MockClock is generated.\ntype MockClock struct{}")
	assert.Contains(t, out, "func (MockClock) Now() int64 { return 0 }")
}

func TestAttachEmptyIsNoop(t *testing.T) {
	fset := token.NewFileSet()
	file := parse(t, fset, "package app\n\nfunc A() {}\n")

	require.NoError(t, NewGenerator(fset).Attach(file, "app.go.weave"))
	assert.Len(t, file.Decls, 1)
}

func TestAttachRejectsBrokenSource(t *testing.T) {
	fset := token.NewFileSet()
	file := parse(t, fset, "package app\n")

	g := NewGenerator(fset)
	g.Line("func Broken( {")
	err := g.Attach(file, "app.go.weave")
	require.Error(t, err)

	ce, ok := err.(*werrors.CompilerError)
	require.True(t, ok, "got %T", err)
	assert.Equal(t, werrors.ErrCodeGenFailed, ce.Code)
	assert.Contains(t, ce.Message, "app.go.weave")
	assert.Empty(t, file.Decls)
}
