package utils

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ExpandPackageDirs turns command line package arguments into package
// directories. An argument ending in "/..." names every directory below it
// that holds non-test Go files; other arguments are cleaned and kept.
func ExpandPackageDirs(args []string) ([]string, error) {
	var dirs []string
	seen := make(map[string]bool)
	add := func(dir string) {
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for _, arg := range args {
		root, recursive := strings.CutSuffix(arg, "...")
		if !recursive {
			add(filepath.Clean(arg))
			continue
		}
		root = filepath.Clean(strings.TrimSuffix(root, "/"))
		if root == "" {
			root = "."
		}

		found, err := FindPackageDirs(root)
		if err != nil {
			return nil, err
		}
		for _, dir := range found {
			add(dir)
		}
	}
	return dirs, nil
}

// FindPackageDirs recursively finds the directories under root that hold
// non-test .go files. Hidden directories, directories starting with an
// underscore, testdata and vendor are skipped.
func FindPackageDirs(root string) ([]string, error) {
	var dirs []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}

		ok, err := hasGoFiles(path)
		if err != nil {
			return err
		}
		if ok {
			dirs = append(dirs, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	sort.Strings(dirs)
	return dirs, nil
}

// IsGoSource reports whether path is a non-test Go file
func IsGoSource(path string) bool {
	return filepath.Ext(path) == ".go" && !strings.HasSuffix(path, "_test.go")
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
		name == "testdata" || name == "vendor"
}

func hasGoFiles(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if !e.IsDir() && IsGoSource(e.Name()) {
			return true, nil
		}
	}
	return false, nil
}
