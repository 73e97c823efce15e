// Package pysource builds a structural model of a Python source file:
// a header region (shebang, encoding comment, leading comments, module
// docstring), an ordered import block and the remaining body text, each
// with exact line provenance. The body is never mutated.
package pysource

import (
	"strings"
)

// DefaultNoqaMarker is the end-of-line annotation that exempts a statement
// from relocation and unused-removal. Matches the marker understood by the
// wider Python tooling ecosystem.
const DefaultNoqaMarker = "noqa: autoimport"

// Kind distinguishes the two Python import statement forms.
type Kind int

// Import statement kinds.
const (
	// KindPlain is `import X` or `import X as Y`.
	KindPlain Kind = iota
	// KindFrom is `from M import N` or `from M import N as Y`.
	KindFrom
)

// Placement tags where an import statement may live and which fixes apply
// to it. It is decided once during parsing and drives all later stages.
type Placement int

// Placement values.
const (
	// PlacementTopLevel marks an ordinary import, subject to removal,
	// deduplication and reordering.
	PlacementTopLevel Placement = iota
	// PlacementFuture marks `from __future__ import ...`: kept first,
	// never removed, never deduplicated away.
	PlacementFuture
	// PlacementTypeChecking marks imports inside `if TYPE_CHECKING:`.
	PlacementTypeChecking
	// PlacementGuarded marks imports inside try/except or other
	// conditional blocks.
	PlacementGuarded
	// PlacementSuppressed marks a statement carrying the opt-out marker;
	// it is copied through byte-identical regardless of analyzer findings.
	PlacementSuppressed
)

// String returns the placement name for diagnostics.
func (p Placement) String() string {
	switch p {
	case PlacementTopLevel:
		return "top-level"
	case PlacementFuture:
		return "future"
	case PlacementTypeChecking:
		return "type-checking"
	case PlacementGuarded:
		return "guarded"
	case PlacementSuppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// ImportedName is one imported binding within a statement, with an optional
// alias and an optional inline comment attached to the name.
type ImportedName struct {
	Name    string
	Alias   string
	Comment string
}

// Binding returns the name this import binds in module scope.
func (n ImportedName) Binding() string {
	if n.Alias != "" {
		return n.Alias
	}

	return n.Name
}

// ImportStatement is one import statement, possibly spanning multiple lines.
type ImportStatement struct {
	Kind      Kind
	Module    string
	Names     []ImportedName
	StartLine int // 1-based, inclusive
	EndLine   int // 1-based, inclusive
	Multiline bool
	Placement Placement
	// TrailingComment is an inline comment after a single-line statement.
	TrailingComment string
	// Raw is the original text of the statement (or guard block). It is
	// emitted verbatim for every placement except top-level and future.
	Raw string
	// Ambiguous is set on guard blocks that mix imports with other
	// statements; such blocks are left untouched and surfaced as a warning.
	Ambiguous bool
}

// Bindings returns the names this statement binds, spelled the way the
// usage analyzer reports them: the alias when present, the full dotted
// path for plain imports, the bare name for from imports.
func (s *ImportStatement) Bindings() []string {
	bindings := make([]string, 0, len(s.Names))

	for _, name := range s.Names {
		if name.Alias != "" {
			bindings = append(bindings, name.Alias)

			continue
		}

		bindings = append(bindings, name.Name)
	}

	return bindings
}

// Render emits the statement as canonical source text. Statements with a
// non-top-level placement render their original text unchanged. A from
// import whose names carry inline comments renders parenthesized, one name
// per line, so the comments survive.
func (s *ImportStatement) Render() string {
	switch s.Placement {
	case PlacementTopLevel, PlacementFuture:
	default:
		return s.Raw
	}

	if s.Kind == KindPlain {
		return s.renderPlain()
	}

	return s.renderFrom()
}

func (s *ImportStatement) renderPlain() string {
	parts := make([]string, 0, len(s.Names))

	for _, name := range s.Names {
		if name.Alias != "" {
			parts = append(parts, name.Name+" as "+name.Alias)
		} else {
			parts = append(parts, name.Name)
		}
	}

	line := "import " + strings.Join(parts, ", ")
	if s.TrailingComment != "" {
		line += "  " + s.TrailingComment
	}

	return line
}

func (s *ImportStatement) renderFrom() string {
	if s.hasNameComments() && len(s.Names) > 1 {
		return s.renderFromParenthesized()
	}

	parts := make([]string, 0, len(s.Names))

	for _, name := range s.Names {
		part := name.Name
		if name.Alias != "" {
			part += " as " + name.Alias
		}

		parts = append(parts, part)
	}

	line := "from " + s.Module + " import " + strings.Join(parts, ", ")

	if len(s.Names) == 1 && s.Names[0].Comment != "" {
		line += "  " + s.Names[0].Comment
	} else if s.TrailingComment != "" {
		line += "  " + s.TrailingComment
	}

	return line
}

func (s *ImportStatement) renderFromParenthesized() string {
	var sb strings.Builder

	sb.WriteString("from " + s.Module + " import (\n")

	for _, name := range s.Names {
		sb.WriteString("    " + name.Name)

		if name.Alias != "" {
			sb.WriteString(" as " + name.Alias)
		}

		sb.WriteString(",")

		if name.Comment != "" {
			sb.WriteString("  " + name.Comment)
		}

		sb.WriteString("\n")
	}

	sb.WriteString(")")

	return sb.String()
}

func (s *ImportStatement) hasNameComments() bool {
	for _, name := range s.Names {
		if name.Comment != "" {
			return true
		}
	}

	return false
}

// Document is the structural model of one Python source file.
type Document struct {
	// Raw is the unmodified input text.
	Raw string
	// Header holds the shebang, encoding comment, leading comments and
	// module docstring lines, verbatim.
	Header []string
	// Imports is the ordered import region, including guard blocks and
	// relocated stray imports.
	Imports []*ImportStatement
	// Body is the remaining source text. It is byte-identical to the
	// input in that range, except that relocated stray import lines are
	// removed from it.
	Body string
	// TrailingNewline records whether the input ended with a newline.
	TrailingNewline bool
}

// HasImports reports whether the document contains any import statement.
func (d *Document) HasImports() bool {
	return len(d.Imports) > 0
}
