package aspect

import (
	"context"

	"go.uber.org/zap"

	werrors "github.com/weave-lang/weave/internal/weaver/errors"
)

// Resolver turns aspect paths into definitions. Definitions are fetched
// fresh for every call; nothing is cached between use sites.
type Resolver struct {
	registry Registry
	logger   *zap.Logger
}

// NewResolver creates a resolver reading from reg
func NewResolver(reg Registry, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{registry: reg, logger: logger}
}

// Resolve fetches the aspect registered under path and sorts its methods
// into advice slots. Methods that are not advice are reported as warnings
// and skipped.
func (r *Resolver) Resolve(ctx context.Context, path string) (*Definition, werrors.ErrorList, error) {
	rec, err := Fetch(ctx, r.registry, path)
	if err != nil {
		return nil, nil, err
	}

	def := &Definition{
		Path:    path,
		Name:    rec.Name,
		Docs:    rec.Docs,
		Imports: rec.Imports,
	}

	var warnings werrors.ErrorList
	for _, m := range rec.Methods {
		advice := &Advice{Kind: Classify(m.Name), Docs: m.Docs, Body: m.Body}
		switch advice.Kind {
		case Before:
			def.Before = advice
		case After:
			def.After = advice
		case Around:
			def.Around = advice
		default:
			r.logger.Warn("incompatible aspect method",
				zap.String("aspect", path),
				zap.String("method", m.Name))
			warnings = append(warnings, werrors.NewUnrecognizedAdvice(path, m.Name))
		}
	}

	return def, warnings, nil
}

// ResolveAll resolves paths in order.
func (r *Resolver) ResolveAll(ctx context.Context, paths []string) ([]*Definition, werrors.ErrorList, error) {
	defs := make([]*Definition, 0, len(paths))
	var warnings werrors.ErrorList
	for _, p := range paths {
		def, w, err := r.Resolve(ctx, p)
		if err != nil {
			return nil, warnings, err
		}
		warnings = append(warnings, w...)
		defs = append(defs, def)
	}
	return defs, warnings, nil
}
