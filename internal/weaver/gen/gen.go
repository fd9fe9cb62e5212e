// Package gen drives a weave run: it loads packages, registers the
// declarations other packages refer to, weaves every annotated declaration
// and writes the woven files with an overlay for go build.
package gen

import (
	"context"
	"go/token"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/weave-lang/weave/internal/weaver/aspect"
	"github.com/weave-lang/weave/internal/weaver/contract"
	werrors "github.com/weave-lang/weave/internal/weaver/errors"
	"github.com/weave-lang/weave/internal/weaver/source"
)

// DefaultOutDir is where woven files go unless configured otherwise.
const DefaultOutDir = ".weave"

// OverlayName is the overlay file written to the output directory.
const OverlayName = "overlay.json"

// Options configures a run.
type Options struct {
	// Dirs are the package directories to weave
	Dirs []string
	// OutDir receives the woven files and the overlay
	OutDir string
	// Override forces the mode of every contract
	Override contract.Override
	// Registry shares records between packages and runs
	Registry aspect.Registry
	// Logger defaults to a no-op logger
	Logger *zap.Logger
	// Concurrency bounds the files woven at once; zero means GOMAXPROCS
	Concurrency int
}

// WovenFile maps an original file to its woven copy.
type WovenFile struct {
	Source string `json:"source"`
	Output string `json:"output"`
}

// Report summarizes a run.
type Report struct {
	Files      []WovenFile       `json:"files"`
	Overlay    string            `json:"overlay"`
	Registered []string          `json:"registered,omitempty"`
	Warnings   werrors.ErrorList `json:"-"`
}

// Generate weaves every package in opts.Dirs. Usage, registry and
// generation problems are returned as an errors.ErrorList.
func Generate(ctx context.Context, opts Options) (*Report, error) {
	if opts.OutDir == "" {
		opts.OutDir = DefaultOutDir
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	logger := opts.Logger.Named("gen")

	fset := token.NewFileSet()
	var pkgs []*source.Package
	for _, dir := range opts.Dirs {
		pkg, err := source.Load(fset, dir)
		if err != nil {
			return nil, werrors.ErrorList{asCompilerError(err)}
		}
		logger.Debug("loaded package",
			zap.String("dir", dir),
			zap.String("package", pkg.Name),
			zap.Int("files", len(pkg.Files)))
		pkgs = append(pkgs, pkg)
	}

	report := &Report{}
	registered, errs := registerPass(ctx, opts.Registry, pkgs)
	report.Registered = registered
	if errs.HasErrors() {
		return report, errs
	}

	var (
		mu     sync.Mutex
		woven  []*wovenFile
		issues werrors.ErrorList
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, pkg := range pkgs {
		for _, file := range pkg.Files {
			pkg, file := pkg, file
			g.Go(func() error {
				w := newWeaver(pkg, file, opts, logger)
				out, list := w.run(gctx)

				mu.Lock()
				defer mu.Unlock()
				issues = append(issues, list...)
				if out != nil {
					woven = append(woven, out)
				}
				return gctx.Err()
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortErrors(issues)
	for _, e := range issues {
		if e.Severity != werrors.SeverityError {
			report.Warnings = append(report.Warnings, e)
		}
	}
	if issues.HasErrors() {
		return report, issues.Errors()
	}

	sort.Slice(woven, func(i, j int) bool { return woven[i].source < woven[j].source })
	if err := writeOutput(opts.OutDir, woven, report); err != nil {
		return report, werrors.ErrorList{asCompilerError(err)}
	}
	logger.Info("woven",
		zap.Int("files", len(report.Files)),
		zap.Int("warnings", len(report.Warnings)),
		zap.String("overlay", report.Overlay))
	return report, nil
}

func asCompilerError(err error) *werrors.CompilerError {
	if ce, ok := werrors.As(err); ok {
		return ce
	}
	return werrors.Wrapf(err, "%v", err)
}

func sortErrors(list werrors.ErrorList) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Location.Line < b.Location.Line
	})
}
