// Package commands implements the pyfix CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyfix/internal/batch"
	"github.com/Sumatoshi-tech/pyfix/internal/config"
	"github.com/Sumatoshi-tech/pyfix/internal/indexcache"
	"github.com/Sumatoshi-tech/pyfix/pkg/engine"
	"github.com/Sumatoshi-tech/pyfix/pkg/pyanalyze"
	"github.com/Sumatoshi-tech/pyfix/pkg/pysource"
	"github.com/Sumatoshi-tech/pyfix/pkg/resolve"
)

// stdinArg reads source from stdin and writes the result to stdout.
const stdinArg = "-"

// ErrCheckFailed reports files that would change in --check mode.
var ErrCheckFailed = errors.New("files would be rewritten")

// FixCommand holds the flags for the fix (root) command.
type FixCommand struct {
	configPath        string
	diff              bool
	check             bool
	ignoreInitModules bool
	workers           int
	verbose           bool
	quiet             bool
	noColor           bool
}

// NewFixCommand creates and configures the root command.
func NewFixCommand() *cobra.Command {
	cmd := &FixCommand{}

	cobraCmd := &cobra.Command{
		Use:   "pyfix [files or directories...]",
		Short: "Fix missing, unused and misplaced Python import statements",
		Long: `pyfix rewrites the import section of Python source files so that every
name the file uses is imported and no unused import remains, without
touching any other part of the file.

Pass "-" to read from stdin and write the fixed source to stdout.`,
		Args:          cobra.MinimumNArgs(1),
		RunE:          cmd.Run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cobraCmd.Flags().StringVar(&cmd.configPath, "config", "", "config file (default: .pyfix.yaml in CWD or $HOME)")
	cobraCmd.Flags().BoolVarP(&cmd.diff, "diff", "d", false, "print diffs instead of writing files")
	cobraCmd.Flags().BoolVar(&cmd.check, "check", false, "write nothing, exit non-zero when files would change")
	cobraCmd.Flags().BoolVar(&cmd.ignoreInitModules, "ignore-init-modules", false, "skip __init__.py files")
	cobraCmd.Flags().IntVarP(&cmd.workers, "workers", "w", 0, "concurrent files (default from config)")
	cobraCmd.Flags().BoolVarP(&cmd.verbose, "verbose", "v", false, "verbose output")
	cobraCmd.Flags().BoolVarP(&cmd.quiet, "quiet", "q", false, "suppress output")
	cobraCmd.Flags().BoolVar(&cmd.noColor, "no-color", false, "disable colored output")

	return cobraCmd
}

// Run executes the fix command.
func (c *FixCommand) Run(cobraCmd *cobra.Command, args []string) error {
	logger := c.newLogger()

	cfg, err := config.LoadConfig(c.configPath, ".")
	if err != nil {
		return err
	}

	c.applyFlagOverrides(cfg)

	ctx := cobraCmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	fixer := c.newFixer(ctx, cfg, logger)

	if len(args) == 1 && args[0] == stdinArg {
		return c.runStdin(ctx, fixer, cobraCmd.OutOrStdout())
	}

	files, err := batch.Discover(args, cfg.IgnoreInitModules)
	if err != nil {
		return err
	}

	write := !c.diff && !c.check
	runner := batch.NewRunner(fixer, cfg.Workers, write)
	outcomes := runner.Run(ctx, files)

	return c.report(outcomes, cobraCmd.OutOrStdout(), logger)
}

func (c *FixCommand) newLogger() *slog.Logger {
	level := slog.LevelInfo

	switch {
	case c.quiet:
		level = slog.LevelError
	case c.verbose:
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (c *FixCommand) applyFlagOverrides(cfg *config.Config) {
	if c.workers > 0 {
		cfg.Workers = c.workers
	}

	if c.ignoreInitModules {
		cfg.IgnoreInitModules = true
	}
}

// newFixer builds the read-only provider tables and the per-file fixer.
// Tables are fully constructed here, before any worker starts.
func (c *FixCommand) newFixer(ctx context.Context, cfg *config.Config, logger *slog.Logger) *engine.Fixer {
	analyzer := pyanalyze.NewAnalyzer()

	tables := &resolve.Tables{
		Common:     resolve.NewCommonStatements(cfg.CommonStatements),
		Typing:     resolve.NewTypingMembers(),
		Project:    c.projectIndex(ctx, cfg, analyzer, logger),
		Importable: resolve.NewImportableModules(cfg.SearchPaths),
	}

	parser := pysource.NewParserWithMarker(cfg.NoqaMarker)

	return engine.NewFixer(parser, analyzer, tables)
}

func (c *FixCommand) projectIndex(ctx context.Context, cfg *config.Config, analyzer *pyanalyze.Analyzer, logger *slog.Logger) *resolve.ProjectIndex {
	if cfg.ProjectRoot == "" {
		return nil
	}

	var (
		cache       *indexcache.Cache
		fingerprint uint64
	)

	if cfg.CacheDir != "" {
		cache = indexcache.New(cfg.CacheDir)
		fingerprint = indexcache.Fingerprint(cfg.ProjectRoot)

		if cached, loadErr := cache.Load(fingerprint); loadErr == nil {
			logger.Debug("project index loaded from cache", "names", len(cached))

			return resolve.NewProjectIndex(cached)
		}
	}

	index, err := resolve.BuildProjectIndex(ctx, cfg.ProjectRoot, analyzer)
	if err != nil {
		logger.Warn("project index unavailable", "root", cfg.ProjectRoot, "error", err)

		return nil
	}

	logger.Debug("project index built", "root", cfg.ProjectRoot, "names", index.Len())

	if cache != nil {
		if saveErr := cache.Save(fingerprint, index.Mapping()); saveErr != nil {
			logger.Warn("project index cache not written", "error", saveErr)
		}
	}

	return index
}

func (c *FixCommand) runStdin(ctx context.Context, fixer *engine.Fixer, out io.Writer) error {
	source, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	result, err := fixer.Fix(ctx, string(source))
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(out, result.Output)
	if err != nil {
		return fmt.Errorf("write stdout: %w", err)
	}

	return nil
}

// report prints diffs, diagnostics and the summary, and maps --check mode
// to an error when changes are pending.
func (c *FixCommand) report(outcomes []batch.Outcome, out io.Writer, logger *slog.Logger) error {
	var (
		changed    int
		totalBytes uint64
		failures   int
	)

	for _, outcome := range outcomes {
		totalBytes += uint64(outcome.Size)

		if outcome.Err != nil {
			failures++

			logger.Error("file failed", "path", outcome.Path, "error", outcome.Err)

			continue
		}

		if outcome.Changed {
			changed++

			if c.diff {
				renderDiff(out, outcome, c.noColor)
			} else if !c.quiet {
				fmt.Fprintf(out, "fixed %s\n", outcome.Path)
			}
		}
	}

	if c.verbose {
		renderDiagnostics(out, outcomes)
	}

	if !c.quiet {
		fmt.Fprintf(out, "%d of %d files changed (%s scanned)\n",
			changed, len(outcomes), humanize.Bytes(totalBytes))
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d files failed", failures, len(outcomes))
	}

	if c.check && changed > 0 {
		return fmt.Errorf("%w: %d", ErrCheckFailed, changed)
	}

	return nil
}
