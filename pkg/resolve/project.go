package resolve

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/pyfix/pkg/pyanalyze"
)

// pythonLanguage is enry's name for Python sources.
const pythonLanguage = "Python"

// skippedDirs are directory names never scanned for project symbols.
var skippedDirs = map[string]bool{
	"__pycache__":   true,
	"node_modules":  true,
	"venv":          true,
	".venv":         true,
	"site-packages": true,
}

// ProjectIndex resolves names defined by the target project's own packages.
// It is built by statically parsing project sources for top-level
// definitions and `__all__` exports; project code is never executed.
type ProjectIndex struct {
	index map[string]string
}

// NewProjectIndex wraps a prebuilt mapping, e.g. one loaded from cache.
func NewProjectIndex(index map[string]string) *ProjectIndex {
	return &ProjectIndex{index: index}
}

// BuildProjectIndex scans the project root for Python files and collects
// their module-level names. Files are visited in lexical order so the index
// is deterministic; on a name collision the earliest module wins, except
// that a package `__init__` re-export always wins over a submodule
// definition.
func BuildProjectIndex(ctx context.Context, root string, analyzer *pyanalyze.Analyzer) (*ProjectIndex, error) {
	files, err := listPythonFiles(root)
	if err != nil {
		return nil, err
	}

	index := make(map[string]string)
	reexported := make(map[string]bool)

	for _, path := range files {
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			continue
		}

		symbols, scanErr := analyzer.ScanSymbols(ctx, string(content))
		if scanErr != nil {
			// Unparseable project files are skipped, not fatal.
			continue
		}

		module, isInit := modulePath(root, path)
		if module == "" {
			continue
		}

		addModuleSymbols(index, reexported, module, isInit, symbols)
	}

	return &ProjectIndex{index: index}, nil
}

func addModuleSymbols(index map[string]string, reexported map[string]bool, module string, isInit bool, symbols *pyanalyze.Symbols) {
	if isInit {
		// Names a package re-exports via __all__ import from the
		// package itself, overriding submodule definitions.
		for _, name := range symbols.All {
			index[name] = fmt.Sprintf("from %s import %s", module, name)
			reexported[name] = true
		}
	}

	for _, name := range symbols.Names {
		if reexported[name] {
			continue
		}

		if _, exists := index[name]; exists {
			continue
		}

		index[name] = fmt.Sprintf("from %s import %s", module, name)
	}
}

func listPythonFiles(root string) ([]string, error) {
	var files []string

	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		name := entry.Name()

		if entry.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || skippedDirs[name]) {
				return filepath.SkipDir
			}

			return nil
		}

		if enry.GetLanguage(name, nil) != pythonLanguage {
			return nil
		}

		files = append(files, path)

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("scan project %s: %w", root, walkErr)
	}

	sort.Strings(files)

	return files, nil
}

// modulePath converts a file path under root to a dotted Python module
// path. The second result reports whether the file is a package __init__.
func modulePath(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}

	rel = strings.TrimSuffix(rel, ".py")
	parts := strings.Split(filepath.ToSlash(rel), "/")

	isInit := false
	if parts[len(parts)-1] == "__init__" {
		parts = parts[:len(parts)-1]
		isInit = true
	}

	if len(parts) == 0 {
		return "", isInit
	}

	for _, part := range parts {
		if !validModuleSegment(part) {
			return "", false
		}
	}

	return strings.Join(parts, "."), isInit
}

func validModuleSegment(segment string) bool {
	if segment == "" {
		return false
	}

	for i, r := range segment {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}

	return true
}

// Name implements Provider.
func (p *ProjectIndex) Name() string {
	return "project-index"
}

// Lookup implements Provider.
func (p *ProjectIndex) Lookup(name string) (string, bool) {
	stmt, ok := p.index[name]

	return stmt, ok
}

// Mapping exposes the underlying table for cache serialization.
func (p *ProjectIndex) Mapping() map[string]string {
	return p.index
}

// Len returns the number of indexed names.
func (p *ProjectIndex) Len() int {
	return len(p.index)
}
