package pyanalyze_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pyfix/pkg/pyanalyze"
)

func names(reported []pyanalyze.NameAt) []string {
	out := make([]string, 0, len(reported))
	for _, n := range reported {
		out = append(out, n.Name)
	}

	return out
}

func analyze(t *testing.T, source string) *pyanalyze.Report {
	t.Helper()

	report, err := pyanalyze.NewAnalyzer().Analyze(context.Background(), source)
	require.NoError(t, err)

	return report
}

func TestAnalyzeEmpty(t *testing.T) {
	t.Parallel()

	report := analyze(t, "")
	assert.Empty(t, report.Undefined)
	assert.Empty(t, report.Unused)
}

func TestAnalyzeSyntaxError(t *testing.T) {
	t.Parallel()

	_, err := pyanalyze.NewAnalyzer().Analyze(context.Background(), "def broken(:\n")
	require.Error(t, err)
	assert.ErrorIs(t, err, pyanalyze.ErrSyntax)
}

func TestAnalyzeUndefinedName(t *testing.T) {
	t.Parallel()

	report := analyze(t, "x = os.getcwd()\n")

	assert.Equal(t, []string{"os"}, names(report.Undefined))
	assert.Equal(t, 1, report.Undefined[0].Line)
}

func TestAnalyzeUnusedImport(t *testing.T) {
	t.Parallel()

	report := analyze(t, "import os\nimport requests\n\nx = os.getcwd()\n")

	assert.Empty(t, report.Undefined)
	assert.Equal(t, []string{"requests"}, names(report.Unused))
	assert.Equal(t, 2, report.Unused[0].Line)
}

func TestAnalyzeAliasBinding(t *testing.T) {
	t.Parallel()

	report := analyze(t, "import numpy as np\n\nprint(np.zeros(3))\n")
	assert.Empty(t, report.Unused)

	report = analyze(t, "import numpy as np\n\nprint(numpy.zeros(3))\n")
	assert.Equal(t, []string{"np"}, names(report.Unused))
	assert.Equal(t, []string{"numpy"}, names(report.Undefined))
}

func TestAnalyzeDottedImportUse(t *testing.T) {
	t.Parallel()

	// `import os.path` binds `os`; any `os.` attribute access counts as use
	// and the unused report keeps the full dotted spelling.
	report := analyze(t, "import os.path\n\nprint(os.sep)\n")
	assert.Empty(t, report.Unused)

	report = analyze(t, "import os.path\n\nprint(1)\n")
	assert.Equal(t, []string{"os.path"}, names(report.Unused))
}

func TestAnalyzeFromImport(t *testing.T) {
	t.Parallel()

	source := "from collections import OrderedDict, defaultdict\n\nd = OrderedDict()\n"
	report := analyze(t, source)

	assert.Equal(t, []string{"defaultdict"}, names(report.Unused))
	assert.Empty(t, report.Undefined)
}

func TestAnalyzeBuiltinsNotUndefined(t *testing.T) {
	t.Parallel()

	report := analyze(t, "print(len(range(10)))\nraise ValueError(\"x\")\n")
	assert.Empty(t, report.Undefined)
}

func TestAnalyzeFunctionAndClassBindings(t *testing.T) {
	t.Parallel()

	source := "def helper(value, *args, **kwargs):\n" +
		"    return value\n\n\n" +
		"class Widget:\n" +
		"    def method(self):\n" +
		"        return helper(self)\n\n\n" +
		"w = Widget()\n"

	report := analyze(t, source)
	assert.Empty(t, report.Undefined)
}

func TestAnalyzeAttributeAccessOnlyLoadsBase(t *testing.T) {
	t.Parallel()

	report := analyze(t, "import os\n\nos.path.join(\"a\")\n")
	assert.Empty(t, report.Undefined)
	assert.Empty(t, report.Unused)
}

func TestAnalyzeKeywordArgumentNameNotLoad(t *testing.T) {
	t.Parallel()

	report := analyze(t, "print(\"x\", sep=\"-\")\n")
	assert.Empty(t, report.Undefined)
}

func TestAnalyzeForLoopAndComprehension(t *testing.T) {
	t.Parallel()

	source := "items = [1, 2]\n" +
		"for a, b in pairs:\n" +
		"    print(a, b)\n" +
		"squares = [i * i for i in items]\n"

	report := analyze(t, source)
	assert.Equal(t, []string{"pairs"}, names(report.Undefined))
}

func TestAnalyzeExceptAsBinds(t *testing.T) {
	t.Parallel()

	source := "try:\n" +
		"    work()\n" +
		"except ValueError as exc:\n" +
		"    print(exc)\n"

	report := analyze(t, source)
	assert.Equal(t, []string{"work"}, names(report.Undefined))
}

func TestAnalyzeWithAsBinds(t *testing.T) {
	t.Parallel()

	source := "with open(\"f\") as fh:\n    fh.read()\n"

	report := analyze(t, source)
	assert.Empty(t, report.Undefined)
}

func TestAnalyzeFStringInterpolation(t *testing.T) {
	t.Parallel()

	report := analyze(t, "msg = f\"{count} items\"\n")
	assert.Equal(t, []string{"count"}, names(report.Undefined))

	// Plain string contents never count as references.
	report = analyze(t, "msg = \"count items\"\n")
	assert.Empty(t, report.Undefined)
}

func TestAnalyzeDunderAllCountsAsUse(t *testing.T) {
	t.Parallel()

	source := "from .core import Engine\n\n__all__ = [\"Engine\"]\n"

	report := analyze(t, source)
	assert.Empty(t, report.Unused)
	assert.Empty(t, report.Undefined)
}

func TestAnalyzeWildcardSuppressesUndefined(t *testing.T) {
	t.Parallel()

	report := analyze(t, "from os.path import *\n\nprint(join(\"a\", \"b\"))\n")
	assert.Empty(t, report.Undefined)
	assert.Empty(t, report.Unused)
}

func TestAnalyzeGlobalStatement(t *testing.T) {
	t.Parallel()

	source := "def bump():\n" +
		"    global counter\n" +
		"    counter = counter + 1\n"

	report := analyze(t, source)
	assert.Empty(t, report.Undefined)
}

func TestAnalyzeAugmentedAssignment(t *testing.T) {
	t.Parallel()

	report := analyze(t, "total = 0\ntotal += step\n")
	assert.Equal(t, []string{"step"}, names(report.Undefined))
}

func TestAnalyzeMatchCapturePatternsBind(t *testing.T) {
	t.Parallel()

	source := "match cmd:\n" +
		"    case [action, obj]:\n" +
		"        print(action, obj)\n" +
		"    case {\"key\": value}:\n" +
		"        print(value)\n" +
		"    case [first, *rest]:\n" +
		"        print(first, rest)\n" +
		"    case other:\n" +
		"        print(other)\n"

	report := analyze(t, source)
	assert.Equal(t, []string{"cmd"}, names(report.Undefined))
}

func TestAnalyzeMatchValueAndClassPatterns(t *testing.T) {
	t.Parallel()

	source := "match val:\n" +
		"    case Point(x=px):\n" +
		"        print(px)\n" +
		"    case Color.RED:\n" +
		"        print(\"red\")\n"

	report := analyze(t, source)
	assert.Equal(t, []string{"val", "Point", "Color"}, names(report.Undefined))
}

func TestAnalyzeMatchGuardLoads(t *testing.T) {
	t.Parallel()

	source := "match val:\n" +
		"    case candidate if candidate > limit:\n" +
		"        print(candidate)\n"

	report := analyze(t, source)
	assert.Equal(t, []string{"val", "limit"}, names(report.Undefined))
}

func TestAnalyzeStringAnnotationCountsAsUse(t *testing.T) {
	t.Parallel()

	source := "from collections.abc import Sequence\n\n\n" +
		"def f(s: \"Sequence\") -> \"Mapping\":\n" +
		"    return s\n"

	report := analyze(t, source)
	assert.Empty(t, report.Unused)
	assert.Equal(t, []string{"Mapping"}, names(report.Undefined))
}

func TestAnalyzeDottedStringAnnotation(t *testing.T) {
	t.Parallel()

	source := "import collections\n\n\n" +
		"def g(m: \"collections.abc.Mapping\") -> None: ...\n"

	report := analyze(t, source)
	assert.Empty(t, report.Unused)
	assert.Empty(t, report.Undefined)
}

func TestAnalyzeStringVariableAnnotation(t *testing.T) {
	t.Parallel()

	report := analyze(t, "from decimal import Decimal\n\nprice: \"Decimal\" = None\n")
	assert.Empty(t, report.Unused)

	// Ordinary string values still reference nothing.
	report = analyze(t, "from decimal import Decimal\n\nprice = \"Decimal\"\n")
	assert.Equal(t, []string{"Decimal"}, names(report.Unused))
}

func TestAnalyzeAugmentedAssignmentReadsTarget(t *testing.T) {
	t.Parallel()

	report := analyze(t, "import counter\n\ncounter += 1\n")
	assert.Empty(t, report.Unused)
	assert.Empty(t, report.Undefined)
}

func TestAnalyzeReportSorted(t *testing.T) {
	t.Parallel()

	source := "b = zeta()\na = alpha()\n"

	report := analyze(t, source)
	require.Len(t, report.Undefined, 2)
	assert.Equal(t, "zeta", report.Undefined[0].Name)
	assert.Equal(t, "alpha", report.Undefined[1].Name)
}
