// Package resolve maps undefined names to concrete import statements by
// querying ranked providers. Provider order is fixed: common statements,
// typing members, project symbol index, importable modules. The first hit
// wins outright; a name no provider knows is reported unresolved, never
// guessed.
package resolve

import "sort"

// Provider is an ordered, named source of name-to-import-statement mappings.
// Implementations must be safe for concurrent readers and immutable after
// construction.
type Provider interface {
	// Name identifies the provider in diagnostics.
	Name() string
	// Lookup returns the import statement text for a name.
	Lookup(name string) (string, bool)
}

// Resolution binds a name to the single import statement chosen for it.
type Resolution struct {
	Name      string
	Statement string
	// Provider records which source produced the statement.
	Provider string
}

// Resolver queries providers in priority order.
type Resolver struct {
	providers []Provider
}

// NewResolver creates a Resolver with the given provider priority order.
func NewResolver(providers ...Provider) *Resolver {
	return &Resolver{providers: providers}
}

// Tables bundles the read-only provider set for one run. Construct it fully
// before any worker starts; it is never mutated afterwards.
type Tables struct {
	Common     *CommonStatements
	Typing     *TypingMembers
	Project    *ProjectIndex
	Importable *ImportableModules
}

// Resolver returns a resolver over the tables in fixed priority order.
// Nil tables are skipped.
func (t *Tables) Resolver() *Resolver {
	providers := make([]Provider, 0, 4)

	if t.Common != nil {
		providers = append(providers, t.Common)
	}

	if t.Typing != nil {
		providers = append(providers, t.Typing)
	}

	if t.Project != nil {
		providers = append(providers, t.Project)
	}

	if t.Importable != nil {
		providers = append(providers, t.Importable)
	}

	return NewResolver(providers...)
}

// Resolve maps each name to its import statement. Names are processed in
// sorted order so the result is deterministic regardless of input order.
func (r *Resolver) Resolve(names []string) ([]Resolution, []string) {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	var (
		resolved   []Resolution
		unresolved []string
	)

	seen := make(map[string]bool, len(sorted))

	for _, name := range sorted {
		if seen[name] {
			continue
		}

		seen[name] = true

		res, ok := r.resolveOne(name)
		if !ok {
			unresolved = append(unresolved, name)

			continue
		}

		resolved = append(resolved, res)
	}

	return resolved, unresolved
}

func (r *Resolver) resolveOne(name string) (Resolution, bool) {
	for _, provider := range r.providers {
		if stmt, ok := provider.Lookup(name); ok {
			return Resolution{Name: name, Statement: stmt, Provider: provider.Name()}, true
		}
	}

	return Resolution{}, false
}
