package decorate

import (
	"bytes"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weave-lang/weave/internal/weaver/directive"
	werrors "github.com/weave-lang/weave/internal/weaver/errors"
)

const handlersSrc = `package app

//weave:decorate Timed
func Load(id int) (string, error) {
	return lookup(id)
}

//weave:decorate middleware.Retry(3, time.Second)
func (s *Server) Send(to string, parts ...string) error {
	return s.out.Send(to, parts...)
}

//weave:decorate Logged
func Tick(int) {
	ticks++
}

//weave:decorate Timed
func Map[T any](v T) T { return v }

//weave:decorate 42
func Bad() {}
`

func decorateFunc(t *testing.T, name string) (string, error) {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "handlers.go", handlersSrc, parser.ParseComments)
	require.NoError(t, err)

	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Name.Name != name {
			continue
		}
		set, err := directive.Parse(fset, fn.Doc)
		require.NoError(t, err)
		d, ok := set.Lookup(directive.Decorate)
		require.True(t, ok)
		if err := Apply(fset, fn, d); err != nil {
			return "", err
		}
		fn.Doc = nil
		var buf bytes.Buffer
		require.NoError(t, format.Node(&buf, fset, fn))
		return buf.String(), nil
	}
	t.Fatalf("function %s not found", name)
	return "", nil
}

func TestApplyFixed(t *testing.T) {
	out, err := decorateFunc(t, "Load")
	require.NoError(t, err)
	assert.Contains(t, out, "return Timed(func(id int) (string, error) {")
	assert.Contains(t, out, "return lookup(id)")
	assert.Contains(t, out, "})(id)")
}

func TestApplyParametric(t *testing.T) {
	out, err := decorateFunc(t, "Send")
	require.NoError(t, err)
	assert.Contains(t, out, "return middleware.Retry(3, time.Second)(func(to string, parts ...string) error {")
	assert.Contains(t, out, "})(to, parts...)")
}

func TestApplyWithoutResults(t *testing.T) {
	out, err := decorateFunc(t, "Tick")
	require.NoError(t, err)
	assert.Contains(t, out, "func Tick(p0 int)")
	assert.Contains(t, out, "Logged(func(p0 int) {")
	assert.Contains(t, out, "})(p0)")
	assert.NotContains(t, out, "return")
}

func TestApplyErrors(t *testing.T) {
	for name, want := range map[string]werrors.ErrorCode{
		"Map": werrors.ErrUnsupportedDeclaration,
		"Bad": werrors.ErrMalformedDirective,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decorateFunc(t, name)
			require.Error(t, err)
			ce, ok := werrors.As(err)
			require.True(t, ok)
			assert.Equal(t, want, ce.Code)
		})
	}
}
