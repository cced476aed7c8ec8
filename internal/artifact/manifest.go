package artifact

import (
	"fmt"
	"strings"

	"github.com/agentic-research/corpuscheck/internal/corpus"
	"golang.org/x/mod/semver"
)

// Manifest holds the comparable facts of a package manifest.
type Manifest struct {
	Path string
	// HasPackage is false for workspace-only manifests with no [package].
	HasPackage bool
	Version    string
	Edition    string
}

// Manifest reads the package manifest of p.
func (r *Reader) Manifest(p corpus.Project) (*Manifest, error) {
	data, file, err := r.read(p, r.artifacts.Manifest)
	if err != nil {
		return nil, err
	}
	return ParseManifest(data, file)
}

// ParseManifest extracts package.version and package.edition. Absent
// fields are returned empty; a version that is present must be a
// semantic version.
func ParseManifest(data []byte, file string) (*Manifest, error) {
	doc, err := decode(data, file)
	if err != nil {
		return nil, err
	}
	m := &Manifest{Path: file}
	if _, ok := doc["package"].(map[string]any); !ok {
		return m, nil
	}
	m.HasPackage = true

	if m.Version, err = stringField(doc, file, "package.version"); err != nil {
		return nil, err
	}
	if m.Version != "" && !validVersion(m.Version) {
		return nil, &ParseError{Path: file, Field: "package.version", Err: fmt.Errorf("invalid semantic version %q", m.Version)}
	}
	if m.Edition, err = stringField(doc, file, "package.edition"); err != nil {
		return nil, err
	}
	return m, nil
}

// validVersion accepts full MAJOR.MINOR.PATCH versions with optional
// pre-release and build suffixes. semver alone also accepts "4" and "4.1".
func validVersion(v string) bool {
	if !semver.IsValid("v" + v) {
		return false
	}
	core := v
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		core = v[:i]
	}
	return strings.Count(core, ".") == 2
}
