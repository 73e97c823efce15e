// Package merge combines the surviving existing imports of a file with
// newly resolved imports into one deterministically ordered import block.
// Unused bindings are dropped unless suppressed, duplicates collapse, and
// from-imports of the same module fold into a single statement.
package merge

import (
	"sort"
	"strings"

	"github.com/Sumatoshi-tech/pyfix/pkg/pysource"
)

// futureModule is the module whose imports are pinned first and exempt
// from unused-removal.
const futureModule = "__future__"

// Merge produces the final ordered import region from the document's
// existing statements, the analyzer's unused binding set, and the
// statements resolved for undefined names. The result orders plain imports
// before from-imports, each group case-insensitively by module path then
// imported name, with `__future__` imports first. Suppressed statements
// keep their original position within the block; guard blocks follow the
// ordinary block in original order.
func Merge(existing []*pysource.ImportStatement, unused map[string]bool, added []*pysource.ImportStatement) []*pysource.ImportStatement {
	m := newMerger()

	var (
		suppressed []suppressedStatement
		guarded    []*pysource.ImportStatement
	)

	for idx, stmt := range existing {
		switch stmt.Placement {
		case pysource.PlacementSuppressed:
			suppressed = append(suppressed, suppressedStatement{index: idx, stmt: stmt})
		case pysource.PlacementGuarded, pysource.PlacementTypeChecking:
			guarded = append(guarded, stmt)
		case pysource.PlacementFuture:
			m.addFrom(futureModule, stmt, nil)
		case pysource.PlacementTopLevel:
			m.addStatement(stmt, unused)
		}
	}

	for _, stmt := range added {
		if stmt.Placement == pysource.PlacementFuture || stmt.Module == futureModule {
			m.addFrom(futureModule, stmt, nil)

			continue
		}

		m.addStatement(stmt, nil)
	}

	ordered := m.ordered()

	for _, s := range suppressed {
		pos := min(s.index, len(ordered))
		ordered = append(ordered[:pos], append([]*pysource.ImportStatement{s.stmt}, ordered[pos:]...)...)
	}

	return append(ordered, guarded...)
}

type suppressedStatement struct {
	index int
	stmt  *pysource.ImportStatement
}

// merger accumulates plain names and per-module from-import groups.
type merger struct {
	plain       []pysource.ImportedName
	plainSeen   map[string]bool
	plainNotes  map[string]string
	fromModules []string
	fromGroups  map[string]*fromGroup
}

type fromGroup struct {
	names []pysource.ImportedName
	seen  map[string]bool
}

func newMerger() *merger {
	return &merger{
		plainSeen:  make(map[string]bool),
		plainNotes: make(map[string]string),
		fromGroups: make(map[string]*fromGroup),
	}
}

func (m *merger) addStatement(stmt *pysource.ImportStatement, unused map[string]bool) {
	if stmt.Kind == pysource.KindPlain {
		m.addPlain(stmt, unused)

		return
	}

	m.addFrom(stmt.Module, stmt, unused)
}

// addPlain splits a plain import into one entry per module so each renders
// as its own statement and orders independently.
func (m *merger) addPlain(stmt *pysource.ImportStatement, unused map[string]bool) {
	for _, name := range stmt.Names {
		if unused != nil && unused[bindingKey(name)] {
			continue
		}

		key := name.Name + "\x00" + name.Alias
		if m.plainSeen[key] {
			continue
		}

		m.plainSeen[key] = true

		if len(stmt.Names) == 1 && stmt.TrailingComment != "" && name.Comment == "" {
			name.Comment = stmt.TrailingComment
		}

		m.plain = append(m.plain, name)
	}
}

func (m *merger) addFrom(module string, stmt *pysource.ImportStatement, unused map[string]bool) {
	group, ok := m.fromGroups[module]
	if !ok {
		group = &fromGroup{seen: make(map[string]bool)}
		m.fromGroups[module] = group
		m.fromModules = append(m.fromModules, module)
	}

	for _, name := range stmt.Names {
		if unused != nil && unused[bindingKey(name)] {
			continue
		}

		key := name.Name + "\x00" + name.Alias
		if group.seen[key] {
			continue
		}

		group.seen[key] = true

		if len(stmt.Names) == 1 && stmt.TrailingComment != "" && name.Comment == "" {
			name.Comment = stmt.TrailingComment
		}

		group.names = append(group.names, name)
	}
}

// ordered renders the accumulated sets as sorted statements: __future__
// first, then plain imports, then from-imports.
func (m *merger) ordered() []*pysource.ImportStatement {
	var out []*pysource.ImportStatement

	if future := m.fromGroups[futureModule]; future != nil && len(future.names) > 0 {
		out = append(out, fromStatement(futureModule, future, pysource.PlacementFuture))
	}

	sort.SliceStable(m.plain, func(i, j int) bool {
		return nameLess(m.plain[i], m.plain[j])
	})

	for _, name := range m.plain {
		stmt := &pysource.ImportStatement{
			Kind:  pysource.KindPlain,
			Names: []pysource.ImportedName{{Name: name.Name, Alias: name.Alias}},
		}
		if name.Comment != "" {
			stmt.TrailingComment = name.Comment
		}

		out = append(out, stmt)
	}

	modules := make([]string, 0, len(m.fromModules))

	for _, module := range m.fromModules {
		if module == futureModule || len(m.fromGroups[module].names) == 0 {
			continue
		}

		modules = append(modules, module)
	}

	sort.Slice(modules, func(i, j int) bool {
		return caseInsensitiveLess(modules[i], modules[j])
	})

	for _, module := range modules {
		out = append(out, fromStatement(module, m.fromGroups[module], pysource.PlacementTopLevel))
	}

	return out
}

func fromStatement(module string, group *fromGroup, placement pysource.Placement) *pysource.ImportStatement {
	names := make([]pysource.ImportedName, len(group.names))
	copy(names, group.names)

	sort.SliceStable(names, func(i, j int) bool {
		return nameLess(names[i], names[j])
	})

	return &pysource.ImportStatement{
		Kind:      pysource.KindFrom,
		Module:    module,
		Names:     names,
		Placement: placement,
	}
}

func nameLess(a, b pysource.ImportedName) bool {
	if a.Name != b.Name {
		return caseInsensitiveLess(a.Name, b.Name)
	}

	return caseInsensitiveLess(a.Alias, b.Alias)
}

func caseInsensitiveLess(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}

	return a < b
}

func bindingKey(name pysource.ImportedName) string {
	if name.Alias != "" {
		return name.Alias
	}

	return name.Name
}
