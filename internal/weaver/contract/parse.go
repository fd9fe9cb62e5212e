package contract

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/scanner"
	"go/token"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/weave-lang/weave/internal/weaver/astx"
	werrors "github.com/weave-lang/weave/internal/weaver/errors"
	"github.com/weave-lang/weave/pkg/weave"
)

// piece is a top-level comma separated expression of a segment.
type piece struct {
	text   string
	offset int
}

// Parse parses a rule body for the directive name (requires, debug_ensures
// and so on). Errors are *errors.CompilerError values without a position.
func Parse(name, body string) (*Contract, error) {
	kind, mode, ok := TypeAndMode(name)
	if !ok {
		return nil, werrors.NewUnknownDirective(name)
	}
	return ParseRule(kind, mode, body, name)
}

// ParseRule parses body into a contract of the given kind and mode.
func ParseRule(kind weave.Kind, mode Mode, body, name string) (*Contract, error) {
	segments, err := split(body)
	if err != nil {
		return nil, werrors.NewMalformedDirective(name, err.Error())
	}
	if len(segments) == 0 {
		return nil, werrors.NewMalformedDirective(name, "empty rule")
	}

	c := New(kind, mode)
	c.name = name
	c.idents = identifiers(body)
	var rule CaseRule

	for si, seg := range segments {
		lastSegment := si == len(segments)-1
		for pi, p := range seg {
			lastExpr := pi == len(seg)-1

			expr, err := parseExpr(p.text)
			if err != nil {
				return nil, werrors.NewMalformedDirective(name, fmt.Sprintf("%q: %v", p.text, err))
			}

			if lit, ok := expr.(*ast.BasicLit); ok {
				if lastSegment && lastExpr && lit.Kind == token.STRING {
					desc, err := strconv.Unquote(lit.Value)
					if err != nil {
						return nil, werrors.NewMalformedDirective(name, err.Error())
					}
					c.Description = desc
					continue
				}
				if !(lastSegment && lastExpr) {
					return nil, werrors.NewDescriptionPosition(lit.Value)
				}
			}

			code, err := c.captureOld(name, expr, p.text)
			if err != nil {
				return nil, err
			}

			unit := RuleExpression{Text: strings.TrimSpace(p.text), code: code}
			if !lastSegment && lastExpr {
				unit.Guard = true
				rule = append(rule, unit)
				continue
			}

			rule = append(rule, unit)
			c.Rules = append(c.Rules, rule)
			rule = nil
		}
	}

	return c, nil
}

// split cuts body into segments at top-level "->" and each segment into
// pieces at top-level commas.
func split(body string) ([][]piece, error) {
	src := []byte(body)
	fset := token.NewFileSet()
	file := fset.AddFile("rule", -1, len(src))

	var errs scanner.ErrorList
	var s scanner.Scanner
	s.Init(file, src, func(pos token.Position, msg string) {
		errs.Add(pos, msg)
	}, 0)

	var (
		segments [][]piece
		current  []piece
		start    int
		depth    int
		prevTok  token.Token
		prevOff  = -1
	)

	cut := func(end int) {
		current = append(current, piece{text: string(src[start:end]), offset: start})
	}
	// a trailing comma leaves an empty last piece
	closeSegment := func() {
		if n := len(current); n > 1 && strings.TrimSpace(current[n-1].text) == "" {
			current = current[:n-1]
		}
		segments = append(segments, current)
		current = nil
	}

	for {
		pos, tok, lit := s.Scan()
		if tok == token.EOF {
			break
		}
		if tok == token.SEMICOLON && lit == "\n" {
			continue
		}
		off := file.Offset(pos)

		switch tok {
		case token.LPAREN, token.LBRACK, token.LBRACE:
			depth++
		case token.RPAREN, token.RBRACK, token.RBRACE:
			depth--
		case token.COMMA:
			if depth == 0 {
				cut(off)
				start = off + 1
			}
		case token.GTR:
			if depth == 0 && prevTok == token.SUB && prevOff+1 == off {
				cut(prevOff)
				closeSegment()
				start = off + 1
			}
		}
		prevTok, prevOff = tok, off
	}
	if errs.Len() > 0 {
		return nil, errs.Err()
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced brackets")
	}

	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	cut(len(src))
	closeSegment()
	return segments, nil
}

func parseExpr(text string) (ast.Expr, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("missing expression")
	}
	return parser.ParseExpr(text)
}

func mustParseExpr(text string) ast.Expr {
	expr, err := parser.ParseExpr(text)
	if err != nil {
		panic(fmt.Sprintf("contract: reparse %q: %v", text, err))
	}
	astx.ClearPos(expr)
	return expr
}

// captureOld replaces every old(x) call in expr with a variable and records
// x in the contract declarations. It returns the rewritten source.
func (c *Contract) captureOld(name string, expr ast.Expr, text string) (string, error) {
	var captureErr error
	found := false

	rewritten := astutil.Apply(expr, func(cur *astutil.Cursor) bool {
		call, ok := cur.Node().(*ast.CallExpr)
		if !ok {
			return true
		}
		ident, ok := call.Fun.(*ast.Ident)
		if !ok || ident.Name != "old" {
			return true
		}
		found = true
		if c.Kind != weave.Ensures {
			captureErr = werrors.NewOldOutsideEnsures(name)
			return false
		}
		if len(call.Args) != 1 {
			captureErr = werrors.NewOldArity(len(call.Args))
			return false
		}

		captured := strings.TrimSpace(exprText(text, call.Args[0]))
		varName := freshOld(OldName(exprText(text, call)), captured, c.Decls, c.idents)
		c.Decls[varName] = captured
		cur.Replace(ast.NewIdent(varName))
		return false
	}, nil)

	if captureErr != nil {
		return "", captureErr
	}
	if !found {
		return strings.TrimSpace(text), nil
	}

	var buf bytes.Buffer
	if err := format.Node(&buf, token.NewFileSet(), rewritten); err != nil {
		return "", werrors.NewMalformedDirective(name, err.Error())
	}
	return buf.String(), nil
}

// exprText slices the source of node out of text. Positions from
// parser.ParseExpr start at 1.
func exprText(text string, node ast.Node) string {
	return text[int(node.Pos())-1 : int(node.End())-1]
}

// identifiers lists the identifiers written in body.
func identifiers(body string) map[string]bool {
	fset := token.NewFileSet()
	var s scanner.Scanner
	s.Init(fset.AddFile("", -1, len(body)), []byte(body), nil, 0)

	ids := make(map[string]bool)
	for {
		_, tok, lit := s.Scan()
		if tok == token.EOF {
			return ids
		}
		if tok == token.IDENT {
			ids[lit] = true
		}
	}
}

// freshOld returns name, or name with a numeric suffix, such that the
// result is not in reserved and is unbound in taken or already bound to
// expr.
func freshOld(name, expr string, taken map[string]string, reserved map[string]bool) string {
	candidate := name
	for i := 2; ; i++ {
		if bound, ok := taken[candidate]; (!ok || bound == expr) && !reserved[candidate] {
			return candidate
		}
		candidate = name + "_" + strconv.Itoa(i)
	}
}

// Rebind renames the old variables of c against the bindings in taken, so
// several contracts on one function share a single set of captures: an
// expression already captured keeps its variable and a clashing name gets a
// fresh one. c's bindings are added to taken.
func (c *Contract) Rebind(taken map[string]string) {
	names := make([]string, 0, len(c.Decls))
	for name := range c.Decls {
		names = append(names, name)
	}
	sort.Strings(names)

	known := make([]string, 0, len(taken))
	for name := range taken {
		known = append(known, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(known)))
	bound := make(map[string]string, len(taken))
	for _, name := range known {
		bound[taken[name]] = name
	}

	rename := make(map[string]string)
	decls := make(map[string]string, len(c.Decls))
	for _, name := range names {
		expr := c.Decls[name]
		fresh, ok := bound[expr]
		if !ok || c.idents[fresh] {
			fresh = freshOld(name, expr, taken, c.idents)
			taken[fresh] = expr
			bound[expr] = fresh
		}
		decls[fresh] = expr
		if fresh != name {
			rename[name] = fresh
		}
	}
	c.Decls = decls
	if len(rename) == 0 {
		return
	}

	for _, rule := range c.Rules {
		for i := range rule {
			rule[i].code = renameIdents(rule[i].code, rename)
		}
	}
}

// renameIdents rewrites every identifier of code found in rename.
func renameIdents(code string, rename map[string]string) string {
	expr := mustParseExpr(code)
	var walk func(n ast.Node) bool
	walk = func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.SelectorExpr:
			ast.Inspect(n.X, walk)
			return false
		case *ast.Ident:
			if to, ok := rename[n.Name]; ok {
				n.Name = to
			}
		}
		return true
	}
	ast.Inspect(expr, walk)
	return astx.String(nil, expr)
}

// OldName derives the variable bound to an old(...) call from its source:
// the alphanumeric runs joined with underscores, e.g. old(s.Len()) gives
// old_s_Len.
func OldName(call string) string {
	parts := strings.FieldsFunc(call, func(r rune) bool {
		return !(r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)))
	})
	return strings.Join(parts, "_")
}
