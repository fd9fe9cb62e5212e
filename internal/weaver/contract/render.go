package contract

import (
	"go/ast"
	"go/token"
	"sort"
	"strconv"

	"github.com/weave-lang/weave/pkg/weave"
)

// RuntimeName is the identifier woven files use for the runtime package.
const RuntimeName = "weave"

func assertFunc(m Mode) string {
	switch m {
	case Always:
		return "Assert"
	case Debug:
		return "DebugAssert"
	case Test:
		return "TestAssert"
	default:
		return ""
	}
}

func kindConst(k weave.Kind) string {
	switch k {
	case weave.Requires:
		return "Requires"
	case weave.Ensures:
		return "Ensures"
	default:
		return "Invariant"
	}
}

// Render returns one statement per rule case. Guards become nested if
// statements around the assertion; a guard that does not hold skips the
// check. Disabled and LogOnly contracts render nothing.
func (c *Contract) Render() []ast.Stmt {
	fn := assertFunc(c.Mode)
	if fn == "" {
		return nil
	}

	var out []ast.Stmt
	for _, rule := range c.Rules {
		var holder ast.Stmt
		for i := len(rule) - 1; i >= 0; i-- {
			unit := rule[i]
			if unit.Guard {
				body := &ast.BlockStmt{}
				if holder != nil {
					body.List = []ast.Stmt{holder}
				}
				holder = &ast.IfStmt{Cond: mustParseExpr(unit.code), Body: body}
				continue
			}
			holder = c.assertion(fn, unit)
		}
		if holder != nil {
			out = append(out, holder)
		}
	}
	return out
}

func (c *Contract) assertion(fn string, unit RuleExpression) ast.Stmt {
	return &ast.ExprStmt{X: &ast.CallExpr{
		Fun: &ast.SelectorExpr{X: ast.NewIdent(RuntimeName), Sel: ast.NewIdent(fn)},
		Args: []ast.Expr{
			mustParseExpr(unit.code),
			&ast.SelectorExpr{X: ast.NewIdent(RuntimeName), Sel: ast.NewIdent(kindConst(c.Kind))},
			&ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(c.Description)},
			&ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(unit.Text)},
		},
	}}
}

// RenderDecls binds the old variables of every contract that renders, in
// name order.
func RenderDecls(contracts []*Contract) []ast.Stmt {
	decls := make(map[string]string)
	for _, c := range contracts {
		if assertFunc(c.Mode) == "" {
			continue
		}
		for name, text := range c.Decls {
			decls[name] = text
		}
	}

	names := make([]string, 0, len(decls))
	for name := range decls {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []ast.Stmt
	for _, name := range names {
		out = append(out, &ast.AssignStmt{
			Lhs: []ast.Expr{ast.NewIdent(name)},
			Tok: token.DEFINE,
			Rhs: []ast.Expr{mustParseExpr(decls[name])},
		})
	}
	return out
}

// Uses reports whether rendering c emits any statement.
func (c *Contract) Uses() bool {
	return assertFunc(c.Mode) != "" && len(c.Rules) > 0
}
