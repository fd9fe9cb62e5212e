package gen

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	werrors "github.com/weave-lang/weave/internal/weaver/errors"
)

// overlay is the file format read by go build -overlay.
type overlay struct {
	Replace map[string]string `json:"Replace"`
}

// writeOutput writes every woven file below outDir and the overlay that
// maps each original path to its woven copy.
func writeOutput(outDir string, woven []*wovenFile, report *Report) error {
	out, err := filepath.Abs(outDir)
	if err != nil {
		return werrors.NewOutputFailed(outDir, err)
	}

	ov := overlay{Replace: make(map[string]string, len(woven))}
	for _, w := range woven {
		target := outputPath(out, w.source)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return werrors.NewOutputFailed(target, err)
		}
		if err := os.WriteFile(target, w.src, 0o644); err != nil {
			return werrors.NewOutputFailed(target, err)
		}
		ov.Replace[w.source] = target
		report.Files = append(report.Files, WovenFile{Source: w.source, Output: target})
	}

	data, err := json.MarshalIndent(ov, "", "  ")
	if err != nil {
		return werrors.NewOutputFailed(OverlayName, err)
	}
	path := filepath.Join(out, OverlayName)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return werrors.NewOutputFailed(out, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return werrors.NewOutputFailed(path, err)
	}
	report.Overlay = path
	return nil
}

// outputPath mirrors src below out: relative to the working directory when
// src lives inside it, by its absolute path otherwise.
func outputPath(out, src string) string {
	if wd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(wd, src); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.Join(out, rel)
		}
	}
	rel := strings.TrimPrefix(src, filepath.VolumeName(src))
	return filepath.Join(out, "abs", strings.TrimLeft(rel, `/\`))
}

// ReadOverlay loads the overlay written by a previous run.
func ReadOverlay(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ov overlay
	if err := json.Unmarshal(data, &ov); err != nil {
		return nil, err
	}
	return ov.Replace, nil
}
