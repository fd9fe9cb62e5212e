// Package astx holds small go/ast helpers shared by the generators.
package astx

import (
	"bytes"
	"go/ast"
	"go/format"
	"go/token"
	"reflect"
	"unicode"
)

var posType = reflect.TypeOf(token.NoPos)

// syntaxPos lists the position fields whose validity is syntax: f(x...),
// var (...) and type A = B. They are moved only when set, and never
// cleared.
var syntaxPos = map[reflect.Type]map[string]bool{
	reflect.TypeOf(ast.CallExpr{}): {"Ellipsis": true},
	reflect.TypeOf(ast.GenDecl{}):  {"Lparen": true, "Rparen": true},
	reflect.TypeOf(ast.TypeSpec{}): {"Assign": true},
}

// ClearPos zeroes every position in the tree rooted at n. Nodes parsed
// outside the file they are spliced into must not carry positions, or the
// printer would lay them out against unrelated lines. Positions that carry
// syntax stay valid.
func ClearPos(n ast.Node) {
	SetPos(n, token.NoPos)
}

// SetPos moves every position in the tree rooted at n to pos, leaving the
// subtrees in skip untouched. Synthesized code anchored at a real position
// keeps the printer from flushing comments of later declarations into it.
func SetPos(n ast.Node, pos token.Pos, skip ...ast.Node) {
	ast.Inspect(n, func(n ast.Node) bool {
		if n == nil {
			return false
		}
		for _, s := range skip {
			if n == s {
				return false
			}
		}
		v := reflect.ValueOf(n)
		if v.Kind() != reflect.Pointer || v.IsNil() {
			return true
		}
		v = v.Elem()
		if v.Kind() != reflect.Struct {
			return true
		}
		syntax := syntaxPos[v.Type()]
		for i := 0; i < v.NumField(); i++ {
			f := v.Field(i)
			if f.Type() != posType || !f.CanSet() {
				continue
			}
			if syntax[v.Type().Field(i).Name] {
				if !token.Pos(f.Int()).IsValid() {
					continue
				}
				if !pos.IsValid() {
					f.SetInt(1)
					continue
				}
			}
			f.SetInt(int64(pos))
		}
		return true
	})
}

// String prints n with fset. A nil fset prints without layout hints.
func String(fset *token.FileSet, n ast.Node) string {
	if fset == nil {
		fset = token.NewFileSet()
	}
	var buf bytes.Buffer
	if err := format.Node(&buf, fset, n); err != nil {
		return ""
	}
	return buf.String()
}

// ReceiverName derives a receiver identifier from a type name: its first
// letter, lower-cased.
func ReceiverName(typeName string) string {
	for _, r := range typeName {
		return string(unicode.ToLower(r))
	}
	return "x"
}

// ParamNames returns the names to forward the parameters of ft with.
// Unnamed and blank parameters are named p0, p1 and so on in place, so
// the returned names match the (possibly updated) signature. The second
// result reports whether the last parameter is variadic.
func ParamNames(ft *ast.FuncType) ([]string, bool) {
	if ft.Params == nil {
		return nil, false
	}
	var names []string
	variadic := false
	for i, f := range ft.Params.List {
		if _, ok := f.Type.(*ast.Ellipsis); ok && i == len(ft.Params.List)-1 {
			variadic = true
		}
		if len(f.Names) == 0 {
			f.Names = []*ast.Ident{ast.NewIdent("")}
		}
		for _, n := range f.Names {
			if n.Name == "" || n.Name == "_" {
				n.Name = "p" + itoa(len(names))
			}
			names = append(names, n.Name)
		}
	}
	return names, variadic
}

// HasBlankParams reports whether ft has unnamed or blank parameters.
func HasBlankParams(ft *ast.FuncType) bool {
	if ft.Params == nil {
		return false
	}
	for _, f := range ft.Params.List {
		if len(f.Names) == 0 {
			return true
		}
		for _, n := range f.Names {
			if n.Name == "_" {
				return true
			}
		}
	}
	return false
}

// ForwardCall builds fun(names...), spreading the last argument when
// variadic. The printer only emits "..." for a valid Ellipsis position, so
// at should be a position close to where the call is printed.
func ForwardCall(fun ast.Expr, names []string, variadic bool, at token.Pos) *ast.CallExpr {
	call := &ast.CallExpr{Fun: fun}
	for _, n := range names {
		call.Args = append(call.Args, ast.NewIdent(n))
	}
	if variadic && len(names) > 0 {
		call.Ellipsis = at
	}
	return call
}

// ResultCount counts the results of ft.
func ResultCount(ft *ast.FuncType) int {
	if ft.Results == nil {
		return 0
	}
	n := 0
	for _, f := range ft.Results.List {
		if len(f.Names) == 0 {
			n++
		} else {
			n += len(f.Names)
		}
	}
	return n
}

func itoa(i int) string {
	if i < 10 {
		return string(rune('0' + i))
	}
	return itoa(i/10) + string(rune('0'+i%10))
}
