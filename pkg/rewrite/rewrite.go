// Package rewrite re-emits a source document around its merged import
// block: header verbatim, one blank line after a module docstring, two
// blank lines between the import block and the body, body byte-for-byte.
package rewrite

import (
	"strings"

	"github.com/Sumatoshi-tech/pyfix/pkg/pysource"
)

// Render serializes the document with the given merged import block. An
// empty input renders empty, and a document with no imports at all is
// returned unchanged; no imports are invented.
func Render(doc *pysource.Document, merged []*pysource.ImportStatement) string {
	if doc.Raw == "" {
		return ""
	}

	if !doc.HasImports() && len(merged) == 0 {
		return doc.Raw
	}

	block := renderBlock(merged)
	header := strings.Join(doc.Header, "\n")
	body := doc.Body

	var sb strings.Builder

	if header != "" {
		sb.WriteString(header)
	}

	if block != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}

		sb.WriteString(block)
	}

	if strings.TrimSpace(body) != "" {
		if block != "" {
			sb.WriteString("\n\n\n")
		} else if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}

		sb.WriteString(body)

		return sb.String()
	}

	if doc.TrailingNewline && sb.Len() > 0 {
		sb.WriteString("\n")
	}

	return sb.String()
}

// renderBlock renders the ordered statements. Guard blocks keep their
// original text and are preceded by a single blank line.
func renderBlock(merged []*pysource.ImportStatement) string {
	var lines []string

	for _, stmt := range merged {
		switch stmt.Placement {
		case pysource.PlacementGuarded, pysource.PlacementTypeChecking:
			if len(lines) > 0 {
				lines = append(lines, "")
			}

			lines = append(lines, stmt.Raw)
		default:
			lines = append(lines, stmt.Render())
		}
	}

	return strings.Join(lines, "\n")
}
