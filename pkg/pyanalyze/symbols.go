package pyanalyze

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Symbols lists the module-level names a Python file defines, collected by
// static parse only.
type Symbols struct {
	// Names are top-level def, class and assignment targets, public
	// (non-underscore) only.
	Names []string
	// All holds the string entries of a top-level `__all__` list.
	All []string
}

// ScanSymbols parses the text and collects its module-level definitions.
func (a *Analyzer) ScanSymbols(ctx context.Context, text string) (*Symbols, error) {
	if text == "" {
		return &Symbols{}, nil
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

	scan := &usageScan{source: []byte(text)}
	symbols := &Symbols{}

	for i := range root.NamedChildCount() {
		scan.collectTopLevel(root.NamedChild(i), symbols)
	}

	return symbols, nil
}

func (s *usageScan) collectTopLevel(n sitter.Node, symbols *Symbols) {
	switch n.Type() {
	case "function_definition", "class_definition":
		addPublicName(symbols, s.fieldText(n, "name"))
	case "decorated_definition":
		for i := range n.NamedChildCount() {
			s.collectTopLevel(n.NamedChild(i), symbols)
		}
	case "expression_statement":
		for i := range n.NamedChildCount() {
			s.collectTopLevel(n.NamedChild(i), symbols)
		}
	case "assignment":
		s.collectAssignment(n, symbols)
	case "if_statement", "try_statement":
		// Conditionally defined module-level names still count.
		for i := range n.NamedChildCount() {
			child := n.NamedChild(i)
			if child.Type() == "block" {
				for j := range child.NamedChildCount() {
					s.collectTopLevel(child.NamedChild(j), symbols)
				}
			}
		}
	}
}

func (s *usageScan) collectAssignment(n sitter.Node, symbols *Symbols) {
	left := n.ChildByFieldName("left")
	if left.IsNull() {
		return
	}

	if s.text(left) == "__all__" {
		s.collectAllList(n.ChildByFieldName("right"), symbols)

		return
	}

	collectTargetNames(s, left, symbols)
}

func collectTargetNames(s *usageScan, n sitter.Node, symbols *Symbols) {
	switch n.Type() {
	case "identifier":
		addPublicName(symbols, s.text(n))
	case "pattern_list", "tuple_pattern", "list_pattern":
		for i := range n.NamedChildCount() {
			collectTargetNames(s, n.NamedChild(i), symbols)
		}
	}
}

func (s *usageScan) collectAllList(n sitter.Node, symbols *Symbols) {
	if n.IsNull() {
		return
	}

	if n.Type() == "string" {
		name := strings.Trim(s.text(n), `"'`)
		if name != "" {
			symbols.All = append(symbols.All, name)
		}

		return
	}

	for i := range n.NamedChildCount() {
		s.collectAllList(n.NamedChild(i), symbols)
	}
}

func addPublicName(symbols *Symbols, name string) {
	if name == "" || strings.HasPrefix(name, "_") {
		return
	}

	symbols.Names = append(symbols.Names, name)
}
