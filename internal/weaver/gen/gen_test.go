package gen

import (
	"context"
	"go/ast"
	"go/build"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/weave-lang/weave/internal/companion"
	"github.com/weave-lang/weave/internal/weaver/aspect"
	"github.com/weave-lang/weave/internal/weaver/contract"
	werrors "github.com/weave-lang/weave/internal/weaver/errors"
	"github.com/weave-lang/weave/pkg/weave"
)

const loggingSrc = `package logs

import (
	"fmt"

	"github.com/weave-lang/weave/pkg/weave"
)

// LoggingAspect traces calls.
//weave:register logs.LoggingAspect
type LoggingAspect struct{}

// Before prints the entry.
func (LoggingAspect) Before() { fmt.Println("log before") }

func (LoggingAspect) Around() {
	fmt.Println("log around")
	weave.Proceed()
}

// After prints the exit.
func (LoggingAspect) After() { fmt.Println("log after") }
`

const mathSrc = `package app

// Half halves an even number.
//weave:requires x%2 == 0, "x must be even"
//weave:ensures result*2 == x, "result doubles back"
func Half(x int) int {
	return x / 2
}

//weave:aspect logs.LoggingAspect
func Greet(name string) string {
	return "hello " + name
}
`

const plainSrc = `package app

func Plain() int { return 1 }
`

type project struct {
	root string
	logs string
	app  string
	out  string
}

func newProject(t *testing.T, files map[string]string) project {
	t.Helper()
	root := t.TempDir()
	p := project{
		root: root,
		logs: filepath.Join(root, "logs"),
		app:  filepath.Join(root, "app"),
		out:  filepath.Join(root, ".weave"),
	}
	files["go.mod"] = "module example.com/demo\n\ngo 1.23\n"
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return p
}

func woven(t *testing.T, report *Report, name string) string {
	t.Helper()
	for _, f := range report.Files {
		if filepath.Base(f.Source) == name {
			data, err := os.ReadFile(f.Output)
			require.NoError(t, err)
			return string(data)
		}
	}
	t.Fatalf("%s was not woven", name)
	return ""
}

func inOrder(t *testing.T, out string, needles ...string) {
	t.Helper()
	last := -1
	for _, n := range needles {
		i := strings.Index(out, n)
		require.GreaterOrEqual(t, i, 0, "missing %q in\n%s", n, out)
		require.Greater(t, i, last, "%q out of order in\n%s", n, out)
		last = i
	}
}

func compilerErrors(t *testing.T, err error) werrors.ErrorList {
	t.Helper()
	list, ok := err.(werrors.ErrorList)
	require.True(t, ok, "expected an ErrorList, got %T: %v", err, err)
	return list
}

func TestGenerateEndToEnd(t *testing.T) {
	p := newProject(t, map[string]string{
		"logs/logging.go": loggingSrc,
		"app/math.go":     mathSrc,
		"app/plain.go":    plainSrc,
	})

	report, err := Generate(context.Background(), Options{
		Dirs:     []string{p.logs, p.app},
		OutDir:   p.out,
		Registry: companion.NewMemoryStore(),
		Logger:   zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"logs.LoggingAspect"}, report.Registered)
	assert.Empty(t, report.Warnings)
	require.Len(t, report.Files, 2)

	math := woven(t, report, "math.go")
	assert.NotContains(t, math, "//weave:")
	assert.Contains(t, math, `"github.com/weave-lang/weave/pkg/weave"`)
	assert.Contains(t, math, `"fmt"`)
	inOrder(t, math,
		"// Half halves an even number.",
		"# Contract",
		"x must be even",
		"func Half(x int) int {",
		`weave.Assert(x%2 == 0, weave.Requires, "x must be even", "x%2 == 0")`,
		"return x / 2",
		`weave.Assert(result*2 == x, weave.Ensures, "result doubles back", "result*2 == x")`,
		"return result",
	)
	inOrder(t, math, "# Aspects", "// ### LoggingAspect", "Before: Before prints the entry.", "func Greet(name string) string {")
	half := math[strings.Index(math, "func Half"):strings.Index(math, "func Greet")]
	assert.NotContains(t, half[:strings.Index(half, "\n}\n")], "Aspects")
	inOrder(t, half, "return result\n}\n", "// # Aspects")
	greet := math[strings.Index(math, "func Greet"):]
	inOrder(t, greet,
		`fmt.Println("log before")`,
		`woven := func() string {`,
		`return "hello " + name`,
		`fmt.Println("log around")`,
		"result = woven()",
		`fmt.Println("log after")`,
		"return result",
	)
	assert.NotContains(t, math, "weave.Proceed()")

	logging := woven(t, report, "logging.go")
	assert.NotContains(t, logging, "//weave:")
	assert.Contains(t, logging, "weave.Proceed()")
	assert.Contains(t, logging, "// LoggingAspect traces calls.")

	replace, err := ReadOverlay(report.Overlay)
	require.NoError(t, err)
	assert.Len(t, replace, 2)
	assert.Equal(t, filepath.Join(p.out, "overlay.json"), report.Overlay)
	for src, dst := range replace {
		assert.NotEqual(t, "plain.go", filepath.Base(src))
		assert.FileExists(t, dst)
	}
}

func TestGenerateUnregisteredAspect(t *testing.T) {
	p := newProject(t, map[string]string{"app/math.go": mathSrc})

	_, err := Generate(context.Background(), Options{
		Dirs:     []string{p.app},
		OutDir:   p.out,
		Registry: companion.NewMemoryStore(),
	})
	require.Error(t, err)
	list := compilerErrors(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, werrors.ErrNotRegistered, list[0].Code)
	assert.Equal(t, 10, list[0].Location.Line)
	assert.Contains(t, list[0].File, "math.go")
}

func TestGenerateDisabledContracts(t *testing.T) {
	p := newProject(t, map[string]string{"app/half.go": `package app

//weave:requires x%2 == 0
func Half(x int) int { return x / 2 }
`})

	report, err := Generate(context.Background(), Options{
		Dirs:     []string{p.app},
		OutDir:   p.out,
		Override: contract.OverrideDisable,
	})
	require.NoError(t, err)
	out := woven(t, report, "half.go")
	assert.NotContains(t, out, "weave.Assert")
	assert.NotContains(t, out, "pkg/weave")
}

func TestGenerateMisplacedDirective(t *testing.T) {
	p := newProject(t, map[string]string{"app/bad.go": `package app

//weave:mock
func NotAnInterface() {}

//weave:requires true
type T struct{}

//weave:call Other
func Lonely() {}
`})

	_, err := Generate(context.Background(), Options{Dirs: []string{p.app}, OutDir: p.out})
	list := compilerErrors(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, werrors.ErrUnsupportedDeclaration, list[0].Code)
	assert.Equal(t, werrors.ErrUnsupportedDeclaration, list[1].Code)
	assert.Equal(t, werrors.ErrMalformedDirective, list[2].Code)
	_, statErr := os.Stat(filepath.Join(p.out, OverlayName))
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerateUnknownDirective(t *testing.T) {
	p := newProject(t, map[string]string{"app/bad.go": `package app

//weave:require x > 0
func F(x int) {}
`})

	_, err := Generate(context.Background(), Options{Dirs: []string{p.app}, OutDir: p.out})
	list := compilerErrors(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, werrors.ErrUnknownDirective, list[0].Code)
	assert.Equal(t, 3, list[0].Location.Line)
}

func TestGenerateUnrecognizedAdviceWarning(t *testing.T) {
	reg := companion.NewMemoryStore()
	require.NoError(t, aspect.Store(context.Background(), reg, "logs.TraceAspect", &aspect.Record{
		Kind: aspect.KindAspect,
		Name: "TraceAspect",
		Methods: []aspect.MethodRecord{
			{Name: "Before", Signature: "func()", Body: "{ println(\"trace\") }"},
			{Name: "Trace", Signature: "func()", Body: "{}"},
		},
	}))
	p := newProject(t, map[string]string{"app/traced.go": `package app

//weave:aspect logs.TraceAspect
func Traced() {}
`})

	report, err := Generate(context.Background(), Options{Dirs: []string{p.app}, OutDir: p.out, Registry: reg})
	require.NoError(t, err)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, werrors.ErrUnrecognizedAdvice, report.Warnings[0].Code)
	assert.Equal(t, 3, report.Warnings[0].Location.Line)
	assert.Contains(t, woven(t, report, "traced.go"), `println("trace")`)
}

func TestGenerateDelegateMockCompose(t *testing.T) {
	p := newProject(t, map[string]string{
		"logs/sink.go": `package logs

import "io"

//weave:register logs.Sink
type Sink interface {
	Write(w io.Writer, line string) error
	Flush()
}
`,
		"app/service.go": `package app

import (
	"strings"

	"example.com/demo/logs"
)

//weave:mock
type Clock interface {
	Now() int64
}

//weave:compose sink logs.Sink
type Logger struct {
	sink logs.Sink
}

type Service struct{ logger *Logger }

//weave:delegate s.logger
func (s *Service) Flush() {
	strings.ToUpper("unused after delegation")
}
`,
	})

	report, err := Generate(context.Background(), Options{
		Dirs:     []string{p.logs, p.app},
		OutDir:   p.out,
		Registry: companion.NewMemoryStore(),
	})
	require.NoError(t, err)

	out := woven(t, report, "service.go")
	assert.Contains(t, out, "type MockClock struct {")
	assert.Contains(t, out, "func NewMockClockBuilder(fallback Clock) *MockClockBuilder {")
	assert.Contains(t, out, "func (l *Logger) Write(w io.Writer, line string) error {")
	assert.Contains(t, out, "return l.sink.Write(w, line)")
	assert.Contains(t, out, "s.logger.Flush()")
	assert.Contains(t, out, `"io"`)
	assert.NotContains(t, out, `"strings"`)
	assert.Contains(t, out, `"example.com/demo/logs"`)
}

func TestGenerateDelegateWithContracts(t *testing.T) {
	p := newProject(t, map[string]string{"app/store.go": `package app

type Store struct{ inner *Store }

//weave:requires key != "", "key is required"
//weave:delegate s.inner
func (s *Store) Get(key string) string {
	// served locally
	return key
}

// Size counts entries.
func (s *Store) Size() int { return 0 }
`})

	report, err := Generate(context.Background(), Options{Dirs: []string{p.app}, OutDir: p.out})
	require.NoError(t, err)

	out := woven(t, report, "store.go")
	assert.Contains(t, out, `"github.com/weave-lang/weave/pkg/weave"`)
	inOrder(t, out,
		`weave.Assert(key != "", weave.Requires, "key is required"`,
		"woven := func() string {",
		"return s.inner.Get(key)",
		"result = woven()",
		"return result",
		"// Size counts entries.",
	)
	assert.NotContains(t, out, "served locally")
	assert.NotContains(t, out, "return key")
}

const timingSrc = `package logs

import (
	"fmt"
	"time"

	"github.com/weave-lang/weave/pkg/weave"
)

//weave:register logs.TimingAspect
type TimingAspect struct{}

func (TimingAspect) Around() {
	start := time.Now()
	weave.Proceed()
	fmt.Println(time.Since(start))
}
`

const checkedSrc = `package app

import "strings"

type Counter struct {
	n     int
	inner *Counter
}

// Add adds d.
//weave:requires d >= 0
//weave:ensures c.n == old(c.n) + d
//weave:debug_ensures old(c.n) <= c.n, old(c_n) == c_n
func (c *Counter) Add(d, c_n int) {
	c.n += d
}

//weave:requires key != ""
//weave:delegate c.inner
func (c *Counter) Lookup(key string) string {
	return strings.ToUpper(key)
}

//weave:requires result > 0
//weave:aspect logs.TimingAspect
func Scale(result int, start int) int {
	return result * start
}

// Twice doubles x.
func Twice(x int) int { return x * 2 }

func traced(f func(int) int) func(int) int { return f }

//weave:requires x != 0
//weave:decorate traced
func Inverse(x int) int {
	// integer division
	return 100 / x
}
`

func TestGenerateTypeChecks(t *testing.T) {
	if testing.Short() {
		t.Skip("type-checks the standard library from source")
	}
	p := newProject(t, map[string]string{
		"logs/logging.go": loggingSrc,
		"logs/timing.go":  timingSrc,
		"app/math.go":     mathSrc,
		"app/plain.go":    plainSrc,
		"app/checked.go":  checkedSrc,
	})

	report, err := Generate(context.Background(), Options{
		Dirs:     []string{p.logs, p.app},
		OutDir:   p.out,
		Registry: companion.NewMemoryStore(),
		Logger:   zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	checked := woven(t, report, "checked.go")
	assert.NotContains(t, checked, `"strings"`)
	inOrder(t, checked, "func Scale(", "return result_\n}\n", "// Twice doubles x.\nfunc Twice")
	inOrder(t, checked, "func Inverse(", "// integer division", "return 100 / x")

	replaced := make(map[string]string)
	for _, f := range report.Files {
		replaced[filepath.Base(f.Source)] = f.Output
	}
	typeCheck(t, p.app, replaced)
}

type importerFunc func(path string) (*types.Package, error)

func (f importerFunc) Import(path string) (*types.Package, error) { return f(path) }

// typeCheck type-checks the package in dir, reading woven files from
// replaced, against the standard library and the weave runtime package.
func typeCheck(t *testing.T, dir string, replaced map[string]string) {
	t.Helper()
	fset := token.NewFileSet()
	std := importer.ForCompiler(fset, "source", nil)

	conf := types.Config{Importer: std}
	runtime, err := conf.Check(weave.ImportPath, fset,
		parseDir(t, fset, filepath.Join("..", "..", "..", "pkg", "weave"), nil), nil)
	require.NoError(t, err)

	conf = types.Config{Importer: importerFunc(func(path string) (*types.Package, error) {
		if path == weave.ImportPath {
			return runtime, nil
		}
		return std.Import(path)
	})}
	_, err = conf.Check("example.com/demo/app", fset, parseDir(t, fset, dir, replaced), nil)
	require.NoError(t, err)
}

func parseDir(t *testing.T, fset *token.FileSet, dir string, replaced map[string]string) []*ast.File {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(dir, "*.go"))
	require.NoError(t, err)

	var files []*ast.File
	for _, path := range paths {
		name := filepath.Base(path)
		if strings.HasSuffix(name, "_test.go") {
			continue
		}
		if ok, err := build.Default.MatchFile(dir, name); err != nil || !ok {
			continue
		}
		if out, ok := replaced[name]; ok {
			path = out
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		require.NoError(t, err)
		files = append(files, f)
	}
	require.NotEmpty(t, files)
	return files
}
