package resolve

import (
	"os"
	"strings"
)

// ImportableModules resolves names that match an importable top-level
// module, yielding `import X`. The table is built from a static standard
// library list plus configured search paths scanned on disk; no interpreter
// is involved.
type ImportableModules struct {
	modules map[string]bool
}

// NewImportableModules builds the provider. Each search path directory is
// scanned for top-level packages (directories holding __init__.py) and
// single-file modules.
func NewImportableModules(searchPaths []string) *ImportableModules {
	modules := make(map[string]bool, len(stdlibModules))

	for _, name := range stdlibModules {
		modules[name] = true
	}

	for _, dir := range searchPaths {
		scanSearchPath(dir, modules)
	}

	return &ImportableModules{modules: modules}
}

func scanSearchPath(dir string, modules map[string]bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()

		if entry.IsDir() {
			if !validModuleSegment(name) {
				continue
			}

			if _, statErr := os.Stat(dir + string(os.PathSeparator) + name + string(os.PathSeparator) + "__init__.py"); statErr == nil {
				modules[name] = true
			}

			continue
		}

		if base, ok := strings.CutSuffix(name, ".py"); ok && validModuleSegment(base) {
			modules[base] = true
		}
	}
}

// Name implements Provider.
func (m *ImportableModules) Name() string {
	return "importable-modules"
}

// Lookup implements Provider.
func (m *ImportableModules) Lookup(name string) (string, bool) {
	if !m.modules[name] {
		return "", false
	}

	return "import " + name, true
}
