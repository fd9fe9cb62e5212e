package mock

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
	"github.com/weave-lang/weave/internal/weaver/emit"
	werrors "github.com/weave-lang/weave/internal/weaver/errors"
)

const storeSrc = `package store

import "context"

//weave:mock
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(context.Context, string, []byte) error
	Tag(m string, tags ...string)
}

type Box[T any] interface{ Get() T }

type Plain struct{}
`

func parseStore(t *testing.T) (*token.FileSet, *ast.File) {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "store.go", storeSrc, parser.ParseComments)
	require.NoError(t, err)
	return fset, f
}

func specOf(t *testing.T, f *ast.File, name string) *ast.TypeSpec {
	t.Helper()
	for _, d := range f.Decls {
		if gd, ok := d.(*ast.GenDecl); ok && gd.Tok == token.TYPE {
			if ts := gd.Specs[0].(*ast.TypeSpec); ts.Name.Name == name {
				return ts
			}
		}
	}
	t.Fatalf("type %s not found", name)
	return nil
}

func TestGenerate(t *testing.T) {
	fset, f := parseStore(t)
	g := emit.NewGenerator(fset)
	require.NoError(t, Generate(fset, specOf(t, f, "Store"), directive.Directive{Name: directive.Mock}, g))

	src := g.Source()
	assert.Contains(t, src, "type MockStore struct {")
	assert.Contains(t, src, "GetFunc func(ctx context.Context, key string) ([]byte, error)")
	assert.Contains(t, src, "PutFunc func(p0 context.Context, p1 string, p2 []byte) error")
	assert.Contains(t, src, "func (m *MockStore) Get(ctx context.Context, key string) ([]byte, error) {")
	assert.Contains(t, src, "return m.GetFunc(ctx, key)")
	assert.Contains(t, src, "return m.Store.Get(ctx, key)")
	assert.Contains(t, src, "recv.TagFunc(m, tags...)")
	assert.Contains(t, src, "func (recv *MockStore) Tag(m string, tags ...string) {")
	assert.Contains(t, src, "recv.Store.Tag(m, tags...)")
	assert.Contains(t, src, "func NewMockStoreBuilder(fallback Store) *MockStoreBuilder {")
	assert.Contains(t, src, "func (b *MockStoreBuilder) WithPut(f func(p0 context.Context, p1 string, p2 []byte) error) *MockStoreBuilder {")
	assert.Contains(t, src, "func (b *MockStoreBuilder) Build() *MockStore {")

	require.NoError(t, g.Attach(f, "store_mock.go"))
	var buf bytes.Buffer
	require.NoError(t, format.Node(&buf, fset, f))
	assert.Contains(t, buf.String(), "// Build returns the configured mock.")
}

func TestGenerateRejects(t *testing.T) {
	fset, f := parseStore(t)
	for name, want := range map[string]werrors.ErrorCode{
		"Box":   werrors.ErrUnsupportedDeclaration,
		"Plain": werrors.ErrUnsupportedDeclaration,
	} {
		err := Generate(fset, specOf(t, f, name), directive.Directive{Name: directive.Mock}, emit.NewGenerator(fset))
		require.Error(t, err, name)
		ce, ok := werrors.As(err)
		require.True(t, ok)
		assert.Equal(t, want, ce.Code, name)
	}
}
