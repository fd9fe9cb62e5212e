// Package directive extracts //weave: comment directives from the doc
// comment of a declaration.
package directive

import (
	"go/ast"
	"go/token"
	"sort"
	"strings"

	werrors "github.com/weave-lang/weave/internal/weaver/errors"
)

// Prefix starts every directive comment.
const Prefix = "//weave:"

// Directive names.
const (
	Requires       = "requires"
	Ensures        = "ensures"
	Invariant      = "invariant"
	DebugRequires  = "debug_requires"
	DebugEnsures   = "debug_ensures"
	DebugInvariant = "debug_invariant"
	TestRequires   = "test_requires"
	TestEnsures    = "test_ensures"
	TestInvariant  = "test_invariant"
	Aspect         = "aspect"
	Register       = "register"
	Mount          = "mount"
	Delegate       = "delegate"
	Call           = "call"
	Into           = "into"
	Compose        = "compose"
	Decorate       = "decorate"
	Mock           = "mock"
)

var known = map[string]bool{
	Requires: true, Ensures: true, Invariant: true,
	DebugRequires: true, DebugEnsures: true, DebugInvariant: true,
	TestRequires: true, TestEnsures: true, TestInvariant: true,
	Aspect: true, Register: true, Mount: true,
	Delegate: true, Call: true, Into: true,
	Compose: true, Decorate: true, Mock: true,
}

// Names lists every known directive name in sorted order.
func Names() []string {
	names := make([]string, 0, len(known))
	for name := range known {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// single lists the directives that may appear at most once per declaration.
var single = map[string]bool{
	Register: true, Mount: true, Delegate: true, Call: true, Into: true,
	Decorate: true, Mock: true,
}

// Directive is one //weave:name args line.
type Directive struct {
	Name string
	Args string
	Pos  token.Pos
}

// Text returns the directive as written.
func (d Directive) Text() string {
	if d.Args == "" {
		return Prefix + d.Name
	}
	return Prefix + d.Name + " " + d.Args
}

// IsContract reports whether d is one of the nine contract directives.
func (d Directive) IsContract() bool {
	switch d.Name {
	case Requires, Ensures, Invariant,
		DebugRequires, DebugEnsures, DebugInvariant,
		TestRequires, TestEnsures, TestInvariant:
		return true
	}
	return false
}

// Set is the ordered list of directives found on one declaration.
type Set []Directive

// Parse returns the directives in doc in source order. Unknown names and
// repeated single-use directives are usage errors positioned with fset.
func Parse(fset *token.FileSet, doc *ast.CommentGroup) (Set, error) {
	if doc == nil {
		return nil, nil
	}

	var set Set
	seen := make(map[string]bool)
	for _, c := range doc.List {
		d, ok := parseLine(c)
		if !ok {
			continue
		}
		if !known[d.Name] {
			return nil, werrors.NewUnknownDirective(d.Name).At(fset.Position(d.Pos)).WithDirective(c.Text)
		}
		if single[d.Name] && seen[d.Name] {
			return nil, werrors.NewDuplicateDirective(d.Name).At(fset.Position(d.Pos)).WithDirective(c.Text)
		}
		seen[d.Name] = true
		set = append(set, d)
	}
	return set, nil
}

func parseLine(c *ast.Comment) (Directive, bool) {
	if !strings.HasPrefix(c.Text, Prefix) {
		return Directive{}, false
	}
	rest := strings.TrimSpace(c.Text[len(Prefix):])
	name, args, _ := strings.Cut(rest, " ")
	return Directive{Name: name, Args: strings.TrimSpace(args), Pos: c.Slash}, true
}

// Has reports whether a directive named name is present.
func (s Set) Has(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Lookup returns the first directive named name.
func (s Set) Lookup(name string) (Directive, bool) {
	for _, d := range s {
		if d.Name == name {
			return d, true
		}
	}
	return Directive{}, false
}

// All returns every directive named name, in order.
func (s Set) All(name string) []Directive {
	var out []Directive
	for _, d := range s {
		if d.Name == name {
			out = append(out, d)
		}
	}
	return out
}

// Contracts returns the contract directives, in order.
func (s Set) Contracts() []Directive {
	var out []Directive
	for _, d := range s {
		if d.IsContract() {
			out = append(out, d)
		}
	}
	return out
}

// HasAny reports whether the set holds at least one directive.
func (s Set) HasAny() bool {
	return len(s) > 0
}

// DocLines returns the doc comment text without directives or comment
// markers, one entry per line.
func DocLines(doc *ast.CommentGroup) []string {
	if doc == nil {
		return nil
	}
	var lines []string
	for _, c := range doc.List {
		if strings.HasPrefix(c.Text, Prefix) {
			continue
		}
		text := c.Text
		switch {
		case strings.HasPrefix(text, "//"):
			lines = append(lines, strings.TrimPrefix(strings.TrimPrefix(text, "//"), " "))
		case strings.HasPrefix(text, "/*"):
			body := strings.TrimSuffix(strings.TrimPrefix(text, "/*"), "*/")
			for _, l := range strings.Split(body, "\n") {
				lines = append(lines, strings.TrimSpace(l))
			}
		}
	}
	return lines
}

// Strip removes directive lines from doc. It returns nil when nothing but
// directives was left.
func Strip(doc *ast.CommentGroup) *ast.CommentGroup {
	if doc == nil {
		return nil
	}
	var kept []*ast.Comment
	for _, c := range doc.List {
		if !strings.HasPrefix(c.Text, Prefix) {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return &ast.CommentGroup{List: kept}
}

// RewriteDoc replaces the lines of doc in place with one comment per line
// of texts. texts are full comment texts ("// ..."). The new comments reuse
// the positions of the old ones, extra lines sharing the last position, so
// the group stays attached where it was. An empty texts leaves doc with no
// comments.
func RewriteDoc(doc *ast.CommentGroup, texts []string) {
	if doc == nil {
		return
	}
	if len(texts) == 0 || len(doc.List) == 0 {
		doc.List = nil
		return
	}

	var lines []string
	for _, text := range texts {
		if strings.HasPrefix(text, "//") {
			lines = append(lines, strings.Split(text, "\n")...)
			continue
		}
		lines = append(lines, text)
	}

	list := make([]*ast.Comment, len(lines))
	for i, line := range lines {
		slash := doc.List[len(doc.List)-1].Slash
		if i < len(doc.List) {
			slash = doc.List[i].Slash
		}
		list[i] = &ast.Comment{Slash: slash, Text: line}
	}
	doc.List = list
}

// KeptTexts returns the raw text of every comment in doc that is not a
// directive.
func KeptTexts(doc *ast.CommentGroup) []string {
	if doc == nil {
		return nil
	}
	var texts []string
	for _, c := range doc.List {
		if !strings.HasPrefix(c.Text, Prefix) {
			texts = append(texts, c.Text)
		}
	}
	return texts
}
