// Package batch drives the per-file pipeline over many files: discovery,
// a bounded worker pool, and per-file outcomes. One file's failure never
// cancels or corrupts the others; the provider tables the workers share
// are read-only by construction.
package batch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/pyfix/pkg/engine"
)

// initModule is the package marker file skipped by --ignore-init-modules.
const initModule = "__init__.py"

// writeFileMode is the permission for rewritten files that did not exist.
// Existing files keep their mode.
const writeFileMode = 0o644

// skippedDirs are directory names never descended into during discovery.
var skippedDirs = map[string]bool{
	"__pycache__":  true,
	"node_modules": true,
	"venv":         true,
	".venv":        true,
}

// Outcome is the result of processing one file.
type Outcome struct {
	Path        string
	Changed     bool
	Written     bool
	Size        int
	Diagnostics []engine.Diagnostic
	// Original and Fixed carry both texts when the file changed, for
	// diff rendering. Empty otherwise.
	Original string
	Fixed    string
	Err      error
}

// Runner fixes a set of files concurrently.
type Runner struct {
	fixer   *engine.Fixer
	workers int
	write   bool
}

// NewRunner creates a Runner. write controls whether changed files are
// written back; check and diff modes pass false.
func NewRunner(fixer *engine.Fixer, workers int, write bool) *Runner {
	if workers < 1 {
		workers = 1
	}

	return &Runner{fixer: fixer, workers: workers, write: write}
}

// Discover expands files and directories into the list of Python files to
// process. Directories are walked recursively; hidden and vendored
// directories are skipped.
func Discover(paths []string, ignoreInitModules bool) ([]string, error) {
	var files []string

	seen := make(map[string]bool)

	add := func(path string) {
		if !seen[path] {
			seen[path] = true

			files = append(files, path)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		if !info.IsDir() {
			add(path)

			continue
		}

		walkErr := filepath.WalkDir(path, func(entry string, dirEntry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			name := dirEntry.Name()

			if dirEntry.IsDir() {
				if entry != path && (skippedDirs[name] || name[0] == '.') {
					return filepath.SkipDir
				}

				return nil
			}

			if enry.GetLanguage(name, nil) != "Python" {
				return nil
			}

			if ignoreInitModules && name == initModule {
				return nil
			}

			add(entry)

			return nil
		})
		if walkErr != nil {
			return nil, fmt.Errorf("walk %s: %w", path, walkErr)
		}
	}

	sort.Strings(files)

	return files, nil
}

// Run processes the files on the worker pool and returns per-file
// outcomes sorted by path.
func (r *Runner) Run(ctx context.Context, paths []string) []Outcome {
	jobs := make(chan string, r.workers)

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		outcomes []Outcome
	)

	wg.Add(r.workers)

	for range r.workers {
		go func() {
			defer wg.Done()

			for path := range jobs {
				outcome := r.processFile(ctx, path)

				mu.Lock()

				outcomes = append(outcomes, outcome)

				mu.Unlock()
			}
		}()
	}

	for _, path := range paths {
		jobs <- path
	}

	close(jobs)
	wg.Wait()

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].Path < outcomes[j].Path
	})

	return outcomes
}

func (r *Runner) processFile(ctx context.Context, path string) Outcome {
	outcome := Outcome{Path: path}

	content, readErr := os.ReadFile(path)
	if readErr != nil {
		outcome.Err = fmt.Errorf("read %s: %w", path, readErr)

		return outcome
	}

	outcome.Size = len(content)

	result, fixErr := r.fixer.Fix(ctx, string(content))
	if fixErr != nil {
		outcome.Err = fmt.Errorf("fix %s: %w", path, fixErr)

		return outcome
	}

	outcome.Diagnostics = result.Diagnostics

	if !result.Changed {
		return outcome
	}

	outcome.Changed = true
	outcome.Original = string(content)
	outcome.Fixed = result.Output

	if !r.write {
		return outcome
	}

	writeErr := os.WriteFile(path, []byte(result.Output), writeFileMode)
	if writeErr != nil {
		outcome.Err = fmt.Errorf("write %s: %w", path, writeErr)

		return outcome
	}

	outcome.Written = true

	return outcome
}
