package directive

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	werrors "github.com/weave-lang/weave/internal/weaver/errors"
)

func parseDoc(t *testing.T, src string) (*token.FileSet, *ast.CommentGroup) {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "x.go", "package p\n\n"+src+"\nfunc F() {}\n", parser.ParseComments)
	require.NoError(t, err)
	fn := f.Decls[0].(*ast.FuncDecl)
	return fset, fn.Doc
}

func TestParse(t *testing.T) {
	fset, doc := parseDoc(t, `// F halves x.
//
//weave:requires x > 0, "positive"
//weave:ensures result*2 == x
//weave:aspect app.LoggingAspect
//weave:into`)

	set, err := Parse(fset, doc)
	require.NoError(t, err)
	require.Len(t, set, 4)

	assert.Equal(t, Requires, set[0].Name)
	assert.Equal(t, `x > 0, "positive"`, set[0].Args)
	assert.Equal(t, Aspect, set[2].Name)
	assert.Equal(t, "app.LoggingAspect", set[2].Args)
	assert.Equal(t, "", set[3].Args)
	assert.Equal(t, "//weave:into", set[3].Text())

	assert.Len(t, set.Contracts(), 2)
	assert.True(t, set.Has(Into))
	assert.False(t, set.Has(Mock))
	assert.Equal(t, 5, fset.Position(set[0].Pos).Line)
}

func TestParseUnknown(t *testing.T) {
	fset, doc := parseDoc(t, "//weave:requirez x > 0")

	_, err := Parse(fset, doc)
	require.Error(t, err)
	ce, ok := werrors.As(err)
	require.True(t, ok)
	assert.Equal(t, werrors.ErrUnknownDirective, ce.Code)
	assert.Equal(t, 3, ce.Location.Line)
}

func TestParseDuplicate(t *testing.T) {
	fset, doc := parseDoc(t, "//weave:decorate a\n//weave:decorate b")

	_, err := Parse(fset, doc)
	ce, ok := werrors.As(err)
	require.True(t, ok)
	assert.Equal(t, werrors.ErrDuplicateDirective, ce.Code)
}

func TestParseRepeatableContracts(t *testing.T) {
	fset, doc := parseDoc(t, "//weave:requires a\n//weave:requires b\n//weave:aspect A\n//weave:aspect B")

	set, err := Parse(fset, doc)
	require.NoError(t, err)
	assert.Len(t, set.All(Requires), 2)
	assert.Len(t, set.All(Aspect), 2)
}

func TestParseNil(t *testing.T) {
	set, err := Parse(token.NewFileSet(), nil)
	require.NoError(t, err)
	assert.False(t, set.HasAny())
}

func TestDocLinesAndStrip(t *testing.T) {
	_, doc := parseDoc(t, "// F halves x.\n// It panics on odd input.\n//weave:requires x%2 == 0")

	assert.Equal(t, []string{"F halves x.", "It panics on odd input."}, DocLines(doc))

	stripped := Strip(doc)
	require.NotNil(t, stripped)
	assert.Len(t, stripped.List, 2)

	_, only := parseDoc(t, "//weave:mock")
	assert.Nil(t, Strip(only))
}

func TestRewriteDoc(t *testing.T) {
	_, doc := parseDoc(t, "// F halves x.\n//weave:requires x%2 == 0\n//weave:ensures result*2 == x")
	first := doc.List[0].Slash

	RewriteDoc(doc, append(KeptTexts(doc), "//", "// # Contract"))
	require.Len(t, doc.List, 3)
	assert.Equal(t, first, doc.List[0].Slash)
	assert.Equal(t, "// # Contract", doc.List[2].Text)

	last := doc.List[2].Slash
	RewriteDoc(doc, []string{"// a", "// b", "// c", "// d\n// e"})
	require.Len(t, doc.List, 5)
	assert.Equal(t, "// d", doc.List[3].Text)
	assert.Equal(t, "// e", doc.List[4].Text)
	assert.Equal(t, last, doc.List[4].Slash)

	RewriteDoc(doc, []string{"// only"})
	require.Len(t, doc.List, 1)

	RewriteDoc(doc, nil)
	assert.Empty(t, doc.List)
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Len(t, names, 18)
	assert.Contains(t, names, Requires)
	assert.Contains(t, names, Mock)
	assert.IsIncreasing(t, names)
}
