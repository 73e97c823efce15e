package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/pyfix/internal/batch"
)

// renderDiff prints a unified-ish line diff between the original and the
// fixed source of a single file.
func renderDiff(out io.Writer, outcome batch.Outcome, noColor bool) {
	if noColor {
		color.NoColor = true //nolint:reassign // honor --no-color.
	}

	header := color.New(color.FgCyan, color.Bold)
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)

	header.Fprintf(out, "--- %s\n", outcome.Path)

	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(outcome.Original, outcome.Fixed)
	diffs := dmp.DiffMainRunes(src, dst, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	for _, diff := range diffs {
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			printPrefixed(out, added, "+", diff.Text)
		case diffmatchpatch.DiffDelete:
			printPrefixed(out, removed, "-", diff.Text)
		case diffmatchpatch.DiffEqual:
			// Unchanged regions are elided; the import block is small
			// enough that context adds little.
		}
	}
}

func printPrefixed(out io.Writer, painter *color.Color, prefix, text string) {
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		painter.Fprintf(out, "%s%s\n", prefix, line)
	}
}

// renderDiagnostics prints one table of per-file diagnostics using go-pretty.
func renderDiagnostics(out io.Writer, outcomes []batch.Outcome) {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false

	tbl.AppendHeader(table.Row{"File", "Line", "Kind", "Name", "Detail"})

	rows := 0

	for _, outcome := range outcomes {
		for _, diag := range outcome.Diagnostics {
			tbl.AppendRow(table.Row{outcome.Path, diag.Line, diag.Kind.String(), diag.Name, diag.Detail})

			rows++
		}
	}

	if rows == 0 {
		return
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d diagnostics", rows)})

	fmt.Fprintf(out, "%s\n", tbl.Render())
}
