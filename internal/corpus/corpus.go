// Package corpus discovers example projects under categorized top-level
// directories of a corpus root.
package corpus

import (
	"fmt"
	"iter"
	"path"
	"path/filepath"
	"slices"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// Project is one buildable example discovered under a category.
type Project struct {
	// Path is the absolute location of the project directory.
	Path string
	// Rel is the slash-separated path relative to the corpus root.
	Rel      string
	Category string
	Name     string
}

func (p Project) String() string { return p.Rel }

// DiscoveryError reports a corpus root or category directory that could
// not be traversed.
type DiscoveryError struct {
	Path string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover %s: %v", e.Path, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// Corpus is a read-only view of a corpus root.
type Corpus struct {
	// Root is the absolute path the filesystem is rooted at.
	Root string
	FS   billy.Filesystem

	categories []string
	skipDirs   []string
	canonical  map[string]string
	marker     string
}

// Option configures a Corpus.
type Option func(*Corpus)

// WithSkipDirs excludes directory names from discovery.
func WithSkipDirs(names ...string) Option {
	return func(c *Corpus) { c.skipDirs = names }
}

// WithCanonical names the representative project per category used for
// canonical-only traversal.
func WithCanonical(byCategory map[string]string) Option {
	return func(c *Corpus) { c.canonical = byCategory }
}

// WithWorkspaceMarker makes a category directory that contains the named
// file its own canonical representative. Such categories are workspaces
// whose members share the configuration held at the category root.
func WithWorkspaceMarker(file string) Option {
	return func(c *Corpus) { c.marker = file }
}

// Open returns a corpus rooted at root on the host filesystem.
func Open(root string, categories []string, opts ...Option) (*Corpus, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &DiscoveryError{Path: root, Err: err}
	}
	return New(abs, osfs.New(abs), categories, opts...)
}

// New returns a corpus over fs, whose root corresponds to the absolute
// path root. The root directory must exist.
func New(root string, fs billy.Filesystem, categories []string, opts ...Option) (*Corpus, error) {
	info, err := fs.Stat("/")
	if err != nil {
		return nil, &DiscoveryError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &DiscoveryError{Path: root, Err: fmt.Errorf("not a directory")}
	}
	c := &Corpus{
		Root:       root,
		FS:         fs,
		categories: categories,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Categories returns the category names in traversal order.
func (c *Corpus) Categories() []string { return c.categories }

// Projects yields every project directory in deterministic order:
// categories in configured order, projects lexicographically within each.
// With canonicalOnly it yields at most one representative per category:
// the category itself when it is a workspace, else the configured
// canonical project, else the first project.
// Iteration stops after the first error.
func (c *Corpus) Projects(canonicalOnly bool) iter.Seq2[Project, error] {
	return func(yield func(Project, error) bool) {
		for _, category := range c.categories {
			names, err := c.projectNames(category)
			if err != nil {
				yield(Project{}, err)
				return
			}
			if canonicalOnly && c.isWorkspace(category) {
				if !yield(c.workspace(category), nil) {
					return
				}
				continue
			}
			if canonicalOnly {
				names = c.representative(category, names)
			}
			for _, name := range names {
				if !yield(c.project(category, name), nil) {
					return
				}
			}
		}
	}
}

// Collect drains Projects into a slice.
func (c *Corpus) Collect(canonicalOnly bool) ([]Project, error) {
	var out []Project
	for p, err := range c.Projects(canonicalOnly) {
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Abs maps a slash-separated corpus-relative path to a host path.
func (c *Corpus) Abs(rel string) string {
	return filepath.Join(c.Root, filepath.FromSlash(rel))
}

// Skipped reports whether a directory name is excluded from traversal.
func (c *Corpus) Skipped(name string) bool {
	return slices.Contains(c.skipDirs, name)
}

func (c *Corpus) projectNames(category string) ([]string, error) {
	entries, err := c.FS.ReadDir(category)
	if err != nil {
		return nil, &DiscoveryError{Path: c.Abs(category), Err: err}
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") || c.Skipped(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names, nil
}

func (c *Corpus) representative(category string, names []string) []string {
	if want, ok := c.canonical[category]; ok && slices.Contains(names, want) {
		return []string{want}
	}
	if len(names) == 0 {
		return nil
	}
	return names[:1]
}

func (c *Corpus) isWorkspace(category string) bool {
	if c.marker == "" {
		return false
	}
	info, err := c.FS.Stat(path.Join(category, c.marker))
	return err == nil && !info.IsDir()
}

func (c *Corpus) workspace(category string) Project {
	return Project{
		Path:     c.Abs(category),
		Rel:      category,
		Category: category,
		Name:     category,
	}
}

func (c *Corpus) project(category, name string) Project {
	rel := path.Join(category, name)
	return Project{
		Path:     c.Abs(rel),
		Rel:      rel,
		Category: category,
		Name:     name,
	}
}
