// Package engine runs the per-file import normalization pipeline: parse
// the source model, analyze name usage, resolve undefined names through
// the provider tables, merge the import set and re-render the file. Each
// pass is synchronous, pure and deterministic; failures are per-file and
// never fatal to a batch run.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/pyfix/pkg/merge"
	"github.com/Sumatoshi-tech/pyfix/pkg/pyanalyze"
	"github.com/Sumatoshi-tech/pyfix/pkg/pysource"
	"github.com/Sumatoshi-tech/pyfix/pkg/resolve"
	"github.com/Sumatoshi-tech/pyfix/pkg/rewrite"
)

// Analyzer is the usage-analysis contract the engine consumes. The bundled
// implementation is pyanalyze.Analyzer; callers may inject another.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*pyanalyze.Report, error)
}

// DiagnosticKind classifies per-file findings surfaced to the caller.
type DiagnosticKind int

// Diagnostic kinds.
const (
	// DiagSyntaxError: the file could not be parsed; it is returned
	// unchanged.
	DiagSyntaxError DiagnosticKind = iota
	// DiagUnresolvedName: a name is undefined and no provider resolved
	// it; the file is still rewritten for what could be fixed.
	DiagUnresolvedName
	// DiagAmbiguousGuard: an import guard block mixes imports with other
	// statements and was left untouched.
	DiagAmbiguousGuard
)

// String returns the kind name for display.
func (k DiagnosticKind) String() string {
	switch k {
	case DiagSyntaxError:
		return "syntax-error"
	case DiagUnresolvedName:
		return "unresolved-name"
	case DiagAmbiguousGuard:
		return "ambiguous-guard"
	default:
		return "unknown"
	}
}

// Diagnostic is one per-file finding.
type Diagnostic struct {
	Kind   DiagnosticKind
	Name   string
	Line   int
	Detail string
}

// Result is the outcome of fixing one file.
type Result struct {
	// Output is the rewritten text, or the original when nothing
	// changed or the file was skipped.
	Output      string
	Changed     bool
	Diagnostics []Diagnostic
}

// Fixer runs the pipeline. It holds only read-only state and is safe for
// concurrent use across files.
type Fixer struct {
	parser   *pysource.Parser
	analyzer Analyzer
	resolver *resolve.Resolver
}

// NewFixer assembles a Fixer. The provider tables must be fully built
// before the first Fix call and are never mutated afterwards.
func NewFixer(parser *pysource.Parser, analyzer Analyzer, tables *resolve.Tables) *Fixer {
	return &Fixer{
		parser:   parser,
		analyzer: analyzer,
		resolver: tables.Resolver(),
	}
}

// Fix runs one normalization pass over the source text. A syntax error is
// not an error return: the original text comes back with a diagnostic.
// Running Fix on its own output is a no-op.
func (f *Fixer) Fix(ctx context.Context, text string) (Result, error) {
	if text == "" {
		return Result{Output: ""}, nil
	}

	doc, err := f.parser.Parse(ctx, text)
	if err != nil {
		if errors.Is(err, pysource.ErrSyntax) {
			return syntaxResult(text, err), nil
		}

		return Result{}, fmt.Errorf("parse: %w", err)
	}

	report, err := f.analyzer.Analyze(ctx, text)
	if err != nil {
		if errors.Is(err, pyanalyze.ErrSyntax) {
			return syntaxResult(text, err), nil
		}

		return Result{}, fmt.Errorf("analyze: %w", err)
	}

	result := Result{}

	added, diags := f.resolveUndefined(ctx, report)
	result.Diagnostics = append(result.Diagnostics, diags...)

	for _, stmt := range doc.Imports {
		if stmt.Ambiguous {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Kind:   DiagAmbiguousGuard,
				Line:   stmt.StartLine,
				Detail: "guard block mixes imports with other statements; left untouched",
			})
		}
	}

	unused := make(map[string]bool, len(report.Unused))
	for _, name := range report.Unused {
		unused[name.Name] = true
	}

	merged := merge.Merge(doc.Imports, unused, added)
	output := rewrite.Render(doc, merged)

	result.Output = output
	result.Changed = output != text

	return result, nil
}

// resolveUndefined maps the report's undefined names to new import
// statements and collects unresolved-name diagnostics.
func (f *Fixer) resolveUndefined(ctx context.Context, report *pyanalyze.Report) ([]*pysource.ImportStatement, []Diagnostic) {
	if len(report.Undefined) == 0 {
		return nil, nil
	}

	lines := make(map[string]int, len(report.Undefined))
	names := make([]string, 0, len(report.Undefined))

	for _, entry := range report.Undefined {
		names = append(names, entry.Name)

		if _, ok := lines[entry.Name]; !ok {
			lines[entry.Name] = entry.Line
		}
	}

	resolved, unresolved := f.resolver.Resolve(names)

	var (
		added []*pysource.ImportStatement
		diags []Diagnostic
	)

	for _, res := range resolved {
		stmt, err := f.parseStatement(ctx, res.Statement)
		if err != nil {
			diags = append(diags, Diagnostic{
				Kind:   DiagUnresolvedName,
				Name:   res.Name,
				Line:   lines[res.Name],
				Detail: fmt.Sprintf("provider %s returned unparseable statement %q", res.Provider, res.Statement),
			})

			continue
		}

		added = append(added, stmt)
	}

	for _, name := range unresolved {
		diags = append(diags, Diagnostic{
			Kind:   DiagUnresolvedName,
			Name:   name,
			Line:   lines[name],
			Detail: "no provider resolved the name",
		})
	}

	return added, diags
}

// parseStatement parses a provider's import statement text into the model.
func (f *Fixer) parseStatement(ctx context.Context, statement string) (*pysource.ImportStatement, error) {
	doc, err := f.parser.Parse(ctx, statement)
	if err != nil {
		return nil, err
	}

	if len(doc.Imports) != 1 {
		return nil, fmt.Errorf("%w: %q is not a single import statement", pysource.ErrSyntax, statement)
	}

	return doc.Imports[0], nil
}

func syntaxResult(text string, err error) Result {
	return Result{
		Output: text,
		Diagnostics: []Diagnostic{{
			Kind:   DiagSyntaxError,
			Detail: err.Error(),
		}},
	}
}
