package pysource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/alexaandru/go-sitter-forest/python"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Sentinel errors for parser operations.
var (
	// ErrSyntax marks text that cannot be parsed as valid Python. Callers
	// skip the file and return the original text unchanged.
	ErrSyntax = errors.New("python syntax error")

	errNoRootNode = errors.New("pysource: no root node")
	errPoolType   = errors.New("pysource: pool returned unexpected type")
)

// Tree-sitter node types relevant to the import model.
const (
	nodeModule       = "module"
	nodeComment      = "comment"
	nodeExprStmt     = "expression_statement"
	nodeString       = "string"
	nodeImport       = "import_statement"
	nodeImportFrom   = "import_from_statement"
	nodeImportFuture = "future_import_statement"
	nodeAliased      = "aliased_import"
	nodeDottedName   = "dotted_name"
	nodeRelative     = "relative_import"
	nodeWildcard     = "wildcard_import"
	nodeIf           = "if_statement"
	nodeTry          = "try_statement"
	nodeErrorType    = "ERROR"
)

// Parser turns Python source text into a Document. It is safe for
// concurrent use; tree-sitter parser instances are pooled.
type Parser struct {
	marker string
	pool   sync.Pool
}

// NewParser creates a Parser recognizing the default opt-out marker.
func NewParser() *Parser {
	return NewParserWithMarker(DefaultNoqaMarker)
}

// NewParserWithMarker creates a Parser recognizing the given opt-out marker.
func NewParserWithMarker(marker string) *Parser {
	lang := sitter.NewLanguage(python.GetLanguage())

	return &Parser{
		marker: marker,
		pool: sync.Pool{
			New: func() any {
				tsParser := sitter.NewParser()
				tsParser.SetLanguage(lang)

				return tsParser
			},
		},
	}
}

// Parse builds the structural model of the given source text. Text that
// tree-sitter cannot parse yields an error wrapping ErrSyntax.
func (p *Parser) Parse(ctx context.Context, text string) (*Document, error) {
	doc := &Document{
		Raw:             text,
		TrailingNewline: strings.HasSuffix(text, "\n"),
	}

	if text == "" {
		return doc, nil
	}

	tsParser, ok := p.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer p.pool.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, []byte(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, errNoRootNode
	}

	if hasErrorNode(root) {
		return nil, fmt.Errorf("%w: invalid syntax", ErrSyntax)
	}

	scan := &fileScan{
		marker: p.marker,
		source: []byte(text),
		lines:  strings.Split(text, "\n"),
	}

	scan.run(root, doc)

	return doc, nil
}

// hasErrorNode reports whether any node in the subtree is a parse error.
func hasErrorNode(n sitter.Node) bool {
	if n.Type() == nodeErrorType {
		return true
	}

	for i := range n.ChildCount() {
		if hasErrorNode(n.Child(i)) {
			return true
		}
	}

	return false
}

// fileScan holds per-parse state while walking the top-level statements.
type fileScan struct {
	marker string
	source []byte
	lines  []string
}

func (f *fileScan) run(root sitter.Node, doc *Document) {
	children := make([]sitter.Node, 0, root.NamedChildCount())
	for i := range root.NamedChildCount() {
		children = append(children, root.NamedChild(i))
	}

	next := f.scanHeader(children, doc)
	next, bodyRow := f.scanImportRegion(children, next, doc)

	f.scanBody(children, next, bodyRow, doc)
}

// scanHeader consumes leading comments and the module docstring. Returns the
// index of the first unconsumed top-level statement.
func (f *fileScan) scanHeader(children []sitter.Node, doc *Document) int {
	idx := 0

	for idx < len(children) && children[idx].Type() == nodeComment {
		idx++
	}

	headerEndRow := 0
	if idx < len(children) {
		headerEndRow = int(children[idx].StartPoint().Row)
	} else {
		headerEndRow = len(f.lines)
	}

	if idx < len(children) && isDocstring(children[idx]) {
		headerEndRow = int(children[idx].EndPoint().Row) + 1
		idx++
	}

	header := f.lines[:min(headerEndRow, len(f.lines))]
	for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}

	doc.Header = header

	return idx
}

// isDocstring reports whether the statement is a bare string expression.
func isDocstring(n sitter.Node) bool {
	if n.Type() != nodeExprStmt || n.NamedChildCount() != 1 {
		return false
	}

	return n.NamedChild(0).Type() == nodeString
}

// scanImportRegion consumes the contiguous run of import statements and
// import guard blocks after the header. It returns the index of the first
// body statement and the 0-based row where the body begins (len(lines) when
// there is no body).
func (f *fileScan) scanImportRegion(children []sitter.Node, start int, doc *Document) (int, int) {
	idx := start
	lastEndRow := -1

	for idx < len(children) {
		child := children[idx]
		typ := child.Type()

		// Inline comments surface as top-level nodes on the same row
		// as the statement they follow; their text is already captured.
		if typ == nodeComment && int(child.StartPoint().Row) <= lastEndRow {
			idx++

			continue
		}

		stmt := f.classifyRegionStatement(child)
		if stmt == nil {
			break
		}

		doc.Imports = append(doc.Imports, stmt)
		lastEndRow = int(child.EndPoint().Row)
		idx++
	}

	if idx >= len(children) {
		return idx, len(f.lines)
	}

	return idx, int(children[idx].StartPoint().Row)
}

// classifyRegionStatement converts one top-level statement into an
// ImportStatement, or returns nil when the statement ends the import region.
func (f *fileScan) classifyRegionStatement(child sitter.Node) *ImportStatement {
	switch child.Type() {
	case nodeImportFuture:
		stmt := f.parseImportNode(child)
		stmt.Placement = PlacementFuture

		if f.rangeHasMarker(stmt.StartLine, stmt.EndLine) {
			stmt.Placement = PlacementSuppressed
		}

		return stmt
	case nodeImport, nodeImportFrom:
		stmt := f.parseImportNode(child)
		if f.rangeHasMarker(stmt.StartLine, stmt.EndLine) {
			stmt.Placement = PlacementSuppressed
		}

		return stmt
	case nodeIf:
		return f.classifyIfBlock(child)
	case nodeTry:
		return f.classifyTryBlock(child)
	default:
		return nil
	}
}

func (f *fileScan) classifyIfBlock(child sitter.Node) *ImportStatement {
	if !containsImport(child) {
		return nil
	}

	placement := PlacementGuarded

	condition := child.ChildByFieldName("condition")
	if !condition.IsNull() && strings.Contains(f.nodeText(condition), "TYPE_CHECKING") {
		placement = PlacementTypeChecking
	}

	return f.guardStatement(child, placement)
}

func (f *fileScan) classifyTryBlock(child sitter.Node) *ImportStatement {
	if !containsImport(child) {
		return nil
	}

	return f.guardStatement(child, PlacementGuarded)
}

// guardStatement wraps a guard block node as a single verbatim statement.
func (f *fileScan) guardStatement(child sitter.Node, placement Placement) *ImportStatement {
	startRow := int(child.StartPoint().Row)
	endRow := int(child.EndPoint().Row)

	stmt := &ImportStatement{
		Placement: placement,
		StartLine: startRow + 1,
		EndLine:   endRow + 1,
		Multiline: endRow > startRow,
		Raw:       strings.Join(f.lines[startRow:endRow+1], "\n"),
		Ambiguous: guardMixesStatements(child),
	}

	for _, imp := range collectImports(child) {
		inner := f.parseImportNode(imp)
		stmt.Names = append(stmt.Names, inner.Names...)
	}

	if f.rangeHasMarker(stmt.StartLine, stmt.EndLine) {
		stmt.Placement = PlacementSuppressed
	}

	return stmt
}

// containsImport reports whether the subtree holds any import statement.
func containsImport(n sitter.Node) bool {
	switch n.Type() {
	case nodeImport, nodeImportFrom, nodeImportFuture:
		return true
	}

	for i := range n.NamedChildCount() {
		if containsImport(n.NamedChild(i)) {
			return true
		}
	}

	return false
}

// collectImports gathers every import statement node in the subtree.
func collectImports(n sitter.Node) []sitter.Node {
	var out []sitter.Node

	switch n.Type() {
	case nodeImport, nodeImportFrom, nodeImportFuture:
		return []sitter.Node{n}
	}

	for i := range n.NamedChildCount() {
		out = append(out, collectImports(n.NamedChild(i))...)
	}

	return out
}

// guardMixesStatements reports whether a guard block contains statements
// other than imports, passes and expression-less clauses in its blocks.
func guardMixesStatements(n sitter.Node) bool {
	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)
		if child.Type() != "block" {
			if guardMixesStatements(child) {
				return true
			}

			continue
		}

		for j := range child.NamedChildCount() {
			stmt := child.NamedChild(j)
			switch stmt.Type() {
			case nodeImport, nodeImportFrom, nodeImportFuture,
				nodeComment, "pass_statement":
			default:
				return true
			}
		}
	}

	return false
}

// scanBody assembles the body text, relocating stray top-level imports into
// the import block unless they are suppressed.
func (f *fileScan) scanBody(children []sitter.Node, start, bodyRow int, doc *Document) {
	if bodyRow >= len(f.lines) {
		return
	}

	removed := make(map[int]bool)

	for idx := start; idx < len(children); idx++ {
		child := children[idx]

		switch child.Type() {
		case nodeImport, nodeImportFrom, nodeImportFuture:
		default:
			continue
		}

		stmt := f.parseImportNode(child)
		if child.Type() == nodeImportFuture {
			stmt.Placement = PlacementFuture
		}

		if f.rangeHasMarker(stmt.StartLine, stmt.EndLine) {
			// Suppressed statements keep their place in the body.
			continue
		}

		doc.Imports = append(doc.Imports, stmt)

		for row := stmt.StartLine - 1; row <= stmt.EndLine-1; row++ {
			removed[row] = true
		}
	}

	kept := make([]string, 0, len(f.lines)-bodyRow)

	for row := bodyRow; row < len(f.lines); row++ {
		if !removed[row] {
			kept = append(kept, f.lines[row])
		}
	}

	doc.Body = strings.Join(kept, "\n")
}

// parseImportNode converts an import/import-from/future-import node into an
// ImportStatement with PlacementTopLevel.
func (f *fileScan) parseImportNode(child sitter.Node) *ImportStatement {
	startRow := int(child.StartPoint().Row)
	endRow := int(child.EndPoint().Row)

	stmt := &ImportStatement{
		StartLine: startRow + 1,
		EndLine:   endRow + 1,
		Multiline: endRow > startRow,
		Raw:       strings.Join(f.lines[startRow:endRow+1], "\n"),
	}

	switch child.Type() {
	case nodeImport:
		stmt.Kind = KindPlain
	case nodeImportFuture:
		stmt.Kind = KindFrom
		stmt.Module = "__future__"
	case nodeImportFrom:
		stmt.Kind = KindFrom

		module := child.ChildByFieldName("module_name")
		if !module.IsNull() {
			stmt.Module = f.nodeText(module)
		}
	}

	moduleStart := -1
	if child.Type() == nodeImportFrom {
		if module := child.ChildByFieldName("module_name"); !module.IsNull() {
			moduleStart = int(module.StartByte())
		}
	}

	for i := range child.NamedChildCount() {
		nameNode := child.NamedChild(i)
		if int(nameNode.StartByte()) == moduleStart {
			continue
		}

		switch nameNode.Type() {
		case nodeDottedName, nodeRelative:
			stmt.Names = append(stmt.Names, ImportedName{
				Name:    f.nodeText(nameNode),
				Comment: f.nameComment(nameNode, stmt),
			})
		case nodeAliased:
			stmt.Names = append(stmt.Names, f.parseAliased(nameNode, stmt))
		case nodeWildcard:
			stmt.Names = append(stmt.Names, ImportedName{Name: "*"})
		}
	}

	if !stmt.Multiline {
		stmt.TrailingComment = f.lineComment(endRow, int(child.EndPoint().Column))
	}

	return stmt
}

func (f *fileScan) parseAliased(nameNode sitter.Node, stmt *ImportStatement) ImportedName {
	imported := ImportedName{Comment: f.nameComment(nameNode, stmt)}

	if name := nameNode.ChildByFieldName("name"); !name.IsNull() {
		imported.Name = f.nodeText(name)
	}

	if alias := nameNode.ChildByFieldName("alias"); !alias.IsNull() {
		imported.Alias = f.nodeText(alias)
	}

	return imported
}

// nameComment extracts the inline comment following a name inside a
// multiline import, e.g. `Sequence,  # used by the public API`.
func (f *fileScan) nameComment(nameNode sitter.Node, stmt *ImportStatement) string {
	if !stmt.Multiline {
		return ""
	}

	return f.lineComment(int(nameNode.EndPoint().Row), int(nameNode.EndPoint().Column))
}

// lineComment returns the `#` comment on the given 0-based row at or after
// the given column, or "".
func (f *fileScan) lineComment(row, col int) string {
	if row >= len(f.lines) {
		return ""
	}

	line := f.lines[row]
	if col > len(line) {
		return ""
	}

	rest := line[col:]

	hash := strings.Index(rest, "#")
	if hash < 0 {
		return ""
	}

	return strings.TrimSpace(rest[hash:])
}

// rangeHasMarker reports whether any line in the 1-based inclusive range
// carries the opt-out marker.
func (f *fileScan) rangeHasMarker(startLine, endLine int) bool {
	for row := startLine - 1; row < endLine && row < len(f.lines); row++ {
		if strings.Contains(f.lines[row], f.marker) {
			return true
		}
	}

	return false
}

func (f *fileScan) nodeText(n sitter.Node) string {
	start := int(n.StartByte())
	end := int(n.EndByte())

	if start < 0 || end > len(f.source) || start > end {
		return ""
	}

	return string(f.source[start:end])
}
