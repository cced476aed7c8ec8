// Package format verifies that every source file of a corpus is already
// formatted. Files are dispatched by extension to a Formatter; failures
// are collected and reported together.
package format

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentic-research/corpuscheck/internal/corpus"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Source is one file handed to a Formatter.
type Source struct {
	// Rel is the slash-separated path relative to the corpus root.
	Rel string
	// Path is the host path passed to external tools.
	Path string

	fs billy.Filesystem
}

// NewSource returns a Source for rel inside c.
func NewSource(c *corpus.Corpus, rel string) Source {
	return Source{Rel: rel, Path: c.Abs(rel), fs: c.FS}
}

// Read returns the file content.
func (s Source) Read() ([]byte, error) { return util.ReadFile(s.fs, s.Rel) }

// Formatter checks one file without modifying it. It returns a nil
// Violation when the file is formatted and an error only when the check
// itself could not run.
type Formatter interface {
	Check(ctx context.Context, src Source) (*Violation, error)
}

// Violation is a file that failed its format check, with raw tool output.
type Violation struct {
	Path   string
	Stdout string
	Stderr string
}

// FormattingError lists every file that failed the format check.
type FormattingError struct {
	Violations []Violation
}

func (e *FormattingError) Error() string {
	paths := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		paths = append(paths, v.Path)
	}
	return "format check failed for the following files:\n" + strings.Join(paths, "\n")
}

// Checker runs formatters over a corpus tree.
type Checker struct {
	corpus     *corpus.Corpus
	formatters map[string]Formatter
	jobs       int
	logger     logrus.FieldLogger
}

// NewChecker returns a checker. formatters maps file extensions (".rs")
// to the formatter responsible for them. jobs bounds concurrent checks.
func NewChecker(c *corpus.Corpus, formatters map[string]Formatter, jobs int, logger logrus.FieldLogger) *Checker {
	if jobs < 1 {
		jobs = 1
	}
	return &Checker{corpus: c, formatters: formatters, jobs: jobs, logger: logger}
}

// Sources lists the files with a registered extension, in walk order.
func (c *Checker) Sources() ([]Source, error) {
	var out []Source
	err := util.Walk(c.corpus.FS, ".", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", c.corpus.Abs(filepath.ToSlash(p)), err)
		}
		if info.IsDir() {
			if p != "." && c.corpus.Skipped(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := c.formatters[filepath.Ext(p)]; ok {
			out = append(out, NewSource(c.corpus, filepath.ToSlash(filepath.Clean(p))))
		}
		return nil
	})
	return out, err
}

// Check formats-checks every source and returns the number checked. All
// failing files are returned in one *FormattingError, in walk order.
func (c *Checker) Check(ctx context.Context) (int, error) {
	sources, err := c.Sources()
	if err != nil {
		return 0, err
	}

	results := make([]*Violation, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.jobs)
	for i, src := range sources {
		formatter := c.formatters[filepath.Ext(src.Rel)]
		g.Go(func() error {
			v, err := formatter.Check(gctx, src)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var failed []Violation
	for _, v := range results {
		if v == nil {
			continue
		}
		c.logger.WithField("path", v.Path).Warnf("format check failed for: %s\nstdout:\n```\n%s\n```\nstderr:\n```\n%s\n```", v.Path, v.Stdout, v.Stderr)
		failed = append(failed, *v)
	}
	if len(failed) > 0 {
		return len(sources), &FormattingError{Violations: failed}
	}
	return len(sources), nil
}
