// Package pyanalyze computes the per-file usage report consumed by the
// import normalization engine: names referenced with no binding in scope,
// and import bindings that are never referenced. The analysis is a static,
// flat-scope walk over the tree-sitter syntax tree; it never executes the
// analyzed code.
package pyanalyze

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/alexaandru/go-sitter-forest/python"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// ErrSyntax marks text that cannot be parsed as valid Python.
var ErrSyntax = errors.New("python syntax error")

var errPoolType = errors.New("pyanalyze: pool returned unexpected type")

// NameAt is a name observation with its 1-based source line.
type NameAt struct {
	Name string
	Line int
}

// Report is the usage report for one file: names referenced without any
// binding, and import bindings never referenced. Immutable once returned.
type Report struct {
	Undefined []NameAt
	Unused    []NameAt
}

// Analyzer computes usage reports. Safe for concurrent use.
type Analyzer struct {
	pool sync.Pool
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer() *Analyzer {
	lang := sitter.NewLanguage(python.GetLanguage())

	return &Analyzer{
		pool: sync.Pool{
			New: func() any {
				tsParser := sitter.NewParser()
				tsParser.SetLanguage(lang)

				return tsParser
			},
		},
	}
}

// importBinding is one name bound by an import statement.
type importBinding struct {
	// key is the binding spelled the way the report names it: the alias
	// when present, the full dotted path for plain imports, the bare
	// name for from imports.
	key string
	// use is the identifier a reference to this binding starts with:
	// the first dotted segment for plain imports, the key otherwise.
	use  string
	line int
}

// usageScan accumulates bindings and loads during the tree walk.
type usageScan struct {
	source   []byte
	bound    map[string]bool
	loads    map[string]int
	imports  []importBinding
	wildcard bool
	// annotation is set while walking a type annotation subtree, where
	// string literals are forward references and their names count as
	// loads.
	annotation bool
}

// Analyze parses the text and returns its usage report. Unparseable text
// yields an error wrapping ErrSyntax.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*Report, error) {
	if text == "" {
		return &Report{}, nil
	}

	tsParser, ok := a.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer a.pool.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, []byte(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() || nodeHasError(root) {
		return nil, fmt.Errorf("%w: invalid syntax", ErrSyntax)
	}

	scan := &usageScan{
		source: []byte(text),
		bound:  make(map[string]bool),
		loads:  make(map[string]int),
	}

	scan.walk(root)

	return scan.report(), nil
}

func nodeHasError(n sitter.Node) bool {
	if n.Type() == "ERROR" {
		return true
	}

	for i := range n.ChildCount() {
		if nodeHasError(n.Child(i)) {
			return true
		}
	}

	return false
}

func (s *usageScan) report() *Report {
	report := &Report{}

	if !s.wildcard {
		for name, line := range s.loads {
			if s.bound[name] || pythonBuiltins[name] || s.importUse(name) {
				continue
			}

			report.Undefined = append(report.Undefined, NameAt{Name: name, Line: line})
		}
	}

	for _, imp := range s.imports {
		if imp.key == "*" {
			continue
		}

		if _, used := s.loads[imp.use]; !used {
			report.Unused = append(report.Unused, NameAt{Name: imp.key, Line: imp.line})
		}
	}

	sortNames(report.Undefined)
	sortNames(report.Unused)

	return report
}

func sortNames(names []NameAt) {
	sort.Slice(names, func(i, j int) bool {
		if names[i].Line != names[j].Line {
			return names[i].Line < names[j].Line
		}

		return names[i].Name < names[j].Name
	})
}

// importUse reports whether the name is the reference form of any import.
func (s *usageScan) importUse(name string) bool {
	for _, imp := range s.imports {
		if imp.use == name {
			return true
		}
	}

	return false
}

func (s *usageScan) bind(name string) {
	if name != "" {
		s.bound[name] = true
	}
}

func (s *usageScan) load(n sitter.Node) {
	name := s.text(n)
	if name == "" {
		return
	}

	if _, seen := s.loads[name]; !seen {
		s.loads[name] = int(n.StartPoint().Row) + 1
	}
}

// walk dispatches on node type, classifying identifiers as bindings or
// loads from their syntactic position.
func (s *usageScan) walk(n sitter.Node) {
	switch n.Type() {
	case "import_statement", "future_import_statement":
		s.walkImport(n)
	case "import_from_statement":
		s.walkImportFrom(n)
	case "function_definition", "class_definition":
		s.bind(s.fieldText(n, "name"))
		s.walkAnnotation(n.ChildByFieldName("return_type"))
		s.walkSkippingField(n, "name", "return_type")
	case "parameters", "lambda_parameters":
		s.walkParameters(n)
	case "assignment":
		s.walkAssignment(n)
	case "augmented_assignment":
		s.walkAugmented(n)
	case "named_expression":
		s.bindTargets(n.ChildByFieldName("name"))
		s.walkField(n, "value")
	case "for_statement", "for_in_clause":
		s.bindTargets(n.ChildByFieldName("left"))
		s.walkField(n, "right")
		s.walkSkippingField(n, "left", "right")
	case "case_clause":
		s.walkCaseClause(n)
	case "as_pattern":
		s.walkAsPattern(n)
	case "except_clause", "except_group_clause":
		s.walkExcept(n)
	case "global_statement", "nonlocal_statement":
		s.bindChildIdentifiers(n)
	case "attribute":
		s.walkField(n, "object")
	case "keyword_argument":
		s.walkField(n, "value")
	case "string":
		if s.annotation {
			s.loadForwardRef(n)
		}

		s.walkInterpolations(n)
	case "identifier":
		s.load(n)
	case "comment":
	default:
		s.walkChildren(n)
	}
}

func (s *usageScan) walkChildren(n sitter.Node) {
	for i := range n.NamedChildCount() {
		s.walk(n.NamedChild(i))
	}
}

func (s *usageScan) walkField(n sitter.Node, field string) {
	if child := n.ChildByFieldName(field); !child.IsNull() {
		s.walk(child)
	}
}

// walkSkippingField walks all named children except those occupying the
// given fields (which the caller already handled).
func (s *usageScan) walkSkippingField(n sitter.Node, fields ...string) {
	skip := make(map[int]bool, len(fields))

	for _, field := range fields {
		if child := n.ChildByFieldName(field); !child.IsNull() {
			skip[int(child.StartByte())] = true
		}
	}

	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)
		if !skip[int(child.StartByte())] {
			s.walk(child)
		}
	}
}

func (s *usageScan) walkImport(n sitter.Node) {
	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)

		switch child.Type() {
		case "dotted_name":
			full := s.text(child)
			s.imports = append(s.imports, importBinding{
				key:  full,
				use:  firstSegment(full),
				line: int(child.StartPoint().Row) + 1,
			})
		case "aliased_import":
			alias := s.fieldText(child, "alias")
			s.imports = append(s.imports, importBinding{
				key:  alias,
				use:  alias,
				line: int(child.StartPoint().Row) + 1,
			})
		}
	}
}

func (s *usageScan) walkImportFrom(n sitter.Node) {
	moduleStart := -1
	if module := n.ChildByFieldName("module_name"); !module.IsNull() {
		moduleStart = int(module.StartByte())
	}

	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)
		if int(child.StartByte()) == moduleStart {
			continue
		}

		switch child.Type() {
		case "dotted_name":
			name := s.text(child)
			s.imports = append(s.imports, importBinding{
				key:  name,
				use:  name,
				line: int(child.StartPoint().Row) + 1,
			})
		case "aliased_import":
			alias := s.fieldText(child, "alias")
			s.imports = append(s.imports, importBinding{
				key:  alias,
				use:  alias,
				line: int(child.StartPoint().Row) + 1,
			})
		case "wildcard_import":
			s.wildcard = true
		}
	}
}

func (s *usageScan) walkParameters(n sitter.Node) {
	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)

		switch child.Type() {
		case "identifier":
			s.bind(s.text(child))
		case "default_parameter", "typed_default_parameter":
			s.bindTargets(child.ChildByFieldName("name"))
			s.walkAnnotation(child.ChildByFieldName("type"))
			s.walkField(child, "value")
		case "typed_parameter":
			s.bindTargets(child.NamedChild(0))
			s.walkAnnotation(child.ChildByFieldName("type"))
		case "list_splat_pattern", "dictionary_splat_pattern":
			s.bindTargets(child)
		}
	}
}

func (s *usageScan) walkAssignment(n sitter.Node) {
	left := n.ChildByFieldName("left")
	if !left.IsNull() {
		s.bindTargets(left)

		// Attribute and subscript targets still read their base object.
		if left.Type() != "identifier" {
			s.walk(left)
		}
	}

	// `__all__ = [...]` entries count as uses of the named objects.
	if !left.IsNull() && s.text(left) == "__all__" {
		s.loadAllEntries(n.ChildByFieldName("right"))
	}

	s.walkField(n, "right")
	s.walkAnnotation(n.ChildByFieldName("type"))
}

// walkAnnotation walks a type annotation subtree with forward-reference
// strings counted as loads.
func (s *usageScan) walkAnnotation(n sitter.Node) {
	if n.IsNull() {
		return
	}

	prev := s.annotation
	s.annotation = true
	s.walk(n)
	s.annotation = prev
}

// loadForwardRef records the dotted-path heads named inside a string
// annotation, e.g. `"Sequence"` or `"dict[str, abc.Mapping]"`.
func (s *usageScan) loadForwardRef(n sitter.Node) {
	text := strings.Trim(s.text(n), `"'`)
	line := int(n.StartPoint().Row) + 1

	for _, name := range forwardRefNames(text) {
		if _, seen := s.loads[name]; !seen {
			s.loads[name] = line
		}
	}
}

// forwardRefNames extracts the leading identifier of every dotted path in
// an annotation string.
func forwardRefNames(text string) []string {
	var names []string

	idx := 0
	for idx < len(text) {
		if !isIdentByte(text[idx], true) {
			idx++

			continue
		}

		start := idx
		for idx < len(text) && isIdentByte(text[idx], false) {
			idx++
		}

		// Segments after a dot are attributes of the head.
		if start > 0 && text[start-1] == '.' {
			continue
		}

		names = append(names, text[start:idx])
	}

	return names
}

func isIdentByte(c byte, start bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !start
	default:
		return false
	}
}

// walkAugmented handles `x += 1`: the target is read before it is written,
// so it counts as a load (keeping an import used only this way alive) and
// as a binding.
func (s *usageScan) walkAugmented(n sitter.Node) {
	left := n.ChildByFieldName("left")
	if !left.IsNull() {
		s.walk(left)
		s.bindTargets(left)
	}

	s.walkField(n, "right")
}

// bindTargets binds every identifier in an assignment-target pattern.
func (s *usageScan) bindTargets(n sitter.Node) {
	if n.IsNull() {
		return
	}

	switch n.Type() {
	case "identifier":
		s.bind(s.text(n))
	case "pattern_list", "tuple_pattern", "list_pattern",
		"list_splat_pattern", "dictionary_splat_pattern":
		for i := range n.NamedChildCount() {
			s.bindTargets(n.NamedChild(i))
		}
	}
}

// walkCaseClause binds match case patterns; the guard and the consequence
// block are ordinary code.
func (s *usageScan) walkCaseClause(n sitter.Node) {
	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)
		if child.Type() == "case_pattern" {
			s.bindCasePattern(child)

			continue
		}

		s.walk(child)
	}
}

// bindCasePattern classifies names inside a case pattern: a bare name is a
// capture and binds, a dotted path is a value pattern and loads its head,
// a class pattern loads the class reference and recurses into its arguments.
func (s *usageScan) bindCasePattern(n sitter.Node) {
	switch n.Type() {
	case "identifier":
		s.bind(s.text(n))
	case "dotted_name":
		if n.NamedChildCount() == 1 {
			s.bind(s.text(n.NamedChild(0)))

			return
		}

		if n.NamedChildCount() > 0 {
			s.load(n.NamedChild(0))
		}
	case "class_pattern":
		for i := range n.NamedChildCount() {
			child := n.NamedChild(i)
			if i == 0 && child.Type() == "dotted_name" {
				s.load(child.NamedChild(0))

				continue
			}

			s.bindCasePattern(child)
		}
	case "keyword_pattern":
		// The left identifier is an attribute name, not a reference.
		if n.NamedChildCount() > 1 {
			s.bindCasePattern(n.NamedChild(1))
		}
	case "as_pattern":
		if n.NamedChildCount() > 0 {
			s.bindCasePattern(n.NamedChild(0))
		}

		if alias := n.ChildByFieldName("alias"); !alias.IsNull() {
			s.bindAsTarget(alias)
		}
	case "string", "concatenated_string", "integer", "float",
		"true", "false", "none":
	default:
		for i := range n.NamedChildCount() {
			s.bindCasePattern(n.NamedChild(i))
		}
	}
}

func (s *usageScan) walkAsPattern(n sitter.Node) {
	if n.NamedChildCount() == 0 {
		return
	}

	s.walk(n.NamedChild(0))

	if alias := n.ChildByFieldName("alias"); !alias.IsNull() {
		s.bindAsTarget(alias)
	}
}

func (s *usageScan) bindAsTarget(n sitter.Node) {
	if n.Type() == "identifier" {
		s.bind(s.text(n))

		return
	}

	for i := range n.NamedChildCount() {
		s.bindAsTarget(n.NamedChild(i))
	}
}

// walkExcept handles `except E as e:` where the trailing identifier before
// the block binds and everything else loads.
func (s *usageScan) walkExcept(n sitter.Node) {
	var beforeBlock []sitter.Node

	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)
		if child.Type() == "block" {
			s.walk(child)

			continue
		}

		beforeBlock = append(beforeBlock, child)
	}

	for i, child := range beforeBlock {
		last := i == len(beforeBlock)-1

		if last && i > 0 && child.Type() == "identifier" {
			s.bind(s.text(child))

			continue
		}

		s.walk(child)
	}
}

func (s *usageScan) bindChildIdentifiers(n sitter.Node) {
	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)
		if child.Type() == "identifier" {
			s.bind(s.text(child))
		}
	}
}

// walkInterpolations descends only into f-string interpolations; plain
// string contents are opaque.
func (s *usageScan) walkInterpolations(n sitter.Node) {
	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)
		if child.Type() == "interpolation" {
			s.walkChildren(child)
		}
	}
}

// loadAllEntries records string entries of an `__all__` list as loads so
// re-exported imports are not reported unused.
func (s *usageScan) loadAllEntries(n sitter.Node) {
	if n.IsNull() {
		return
	}

	if n.Type() == "string" {
		name := strings.Trim(s.text(n), `"'`)
		if name != "" {
			if _, seen := s.loads[name]; !seen {
				s.loads[name] = int(n.StartPoint().Row) + 1
			}
		}

		return
	}

	for i := range n.NamedChildCount() {
		s.loadAllEntries(n.NamedChild(i))
	}
}

func (s *usageScan) fieldText(n sitter.Node, field string) string {
	child := n.ChildByFieldName(field)
	if child.IsNull() {
		return ""
	}

	return s.text(child)
}

func (s *usageScan) text(n sitter.Node) string {
	start := int(n.StartByte())
	end := int(n.EndByte())

	if start < 0 || end > len(s.source) || start > end {
		return ""
	}

	return string(s.source[start:end])
}

func firstSegment(dotted string) string {
	if idx := strings.IndexByte(dotted, '.'); idx >= 0 {
		return dotted[:idx]
	}

	return dotted
}
