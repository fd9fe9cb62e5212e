// Package emit writes Go declarations as source text and attaches them to
// a parsed file.
package emit

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"sort"

	"github.com/weave-lang/weave/internal/weaver/astx"
	werrors "github.com/weave-lang/weave/internal/weaver/errors"
)

// Generator accumulates declarations for one file
type Generator struct {
	buf    *bytes.Buffer
	indent int
	fset   *token.FileSet
}

// NewGenerator creates a generator printing types with fset
func NewGenerator(fset *token.FileSet) *Generator {
	return &Generator{
		buf:  &bytes.Buffer{},
		fset: fset,
	}
}

// Line writes a line at the current indentation
func (g *Generator) Line(format string, args ...interface{}) {
	if format == "" {
		g.buf.WriteString("\n")
		return
	}

	for i := 0; i < g.indent; i++ {
		g.buf.WriteString("\t")
	}

	if len(args) > 0 {
		g.buf.WriteString(fmt.Sprintf(format, args...))
	} else {
		g.buf.WriteString(format)
	}
	g.buf.WriteString("\n")
}

// In increases the indentation
func (g *Generator) In() {
	g.indent++
}

// Out decreases the indentation
func (g *Generator) Out() {
	if g.indent > 0 {
		g.indent--
	}
}

// Node prints n as source
func (g *Generator) Node(n ast.Node) string {
	return astx.String(g.fset, n)
}

// Len returns the number of bytes written so far
func (g *Generator) Len() int {
	return g.buf.Len()
}

// Source returns the generated text
func (g *Generator) Source() string {
	return g.buf.String()
}

// Attach parses the generated declarations into the generator's file set
// and appends them, with their comments, to file. name labels the
// generated source in positions and errors.
func (g *Generator) Attach(file *ast.File, name string) error {
	if g.buf.Len() == 0 {
		return nil
	}

	src := "package " + file.Name.Name + "\n\n" + g.buf.String()
	gen, err := parser.ParseFile(g.fset, name, src, parser.ParseComments)
	if err != nil {
		return werrors.NewCodeGenFailed(fmt.Sprintf("generated code for %s does not parse", name)).WithCause(err)
	}

	file.Decls = append(file.Decls, gen.Decls...)
	file.Comments = append(file.Comments, gen.Comments...)
	sort.SliceStable(file.Comments, func(i, j int) bool {
		return file.Comments[i].Pos() < file.Comments[j].Pos()
	})
	g.buf.Reset()
	return nil
}
