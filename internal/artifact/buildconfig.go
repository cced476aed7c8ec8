package artifact

import (
	"fmt"
	"path/filepath"

	"github.com/agentic-research/corpuscheck/internal/corpus"
	"github.com/pelletier/go-toml/v2"
)

// BuildConfig is a build configuration with its target directory
// rewritten to an absolute path.
type BuildConfig struct {
	Path      string
	TargetDir string
	// Document is the deterministic serialization of the rewritten
	// configuration. Two projects agree when their documents are equal.
	Document string
}

// BuildConfig reads and normalizes the build configuration of p.
func (r *Reader) BuildConfig(p corpus.Project) (*BuildConfig, error) {
	data, file, err := r.read(p, r.artifacts.BuildConfig)
	if err != nil {
		return nil, err
	}
	return NormalizeBuildConfig(data, file, p.Path, r.artifacts.TargetDirField)
}

// NormalizeBuildConfig resolves the string at field against base and
// re-serializes the document with sorted keys.
func NormalizeBuildConfig(data []byte, file, base, field string) (*BuildConfig, error) {
	doc, err := decode(data, file)
	if err != nil {
		return nil, err
	}
	v, ok := lookup(doc, field)
	if !ok {
		return nil, &NormalizationError{Path: file, Field: field, Reason: "missing"}
	}
	s, ok := v.(string)
	if !ok {
		return nil, &NormalizationError{Path: file, Field: field, Reason: fmt.Sprintf("expected string, got %T", v)}
	}

	target := ResolvePath(base, s)
	if err := fieldExpr(field).Set(doc, target); err != nil {
		return nil, &NormalizationError{Path: file, Field: field, Reason: err.Error()}
	}

	out, err := toml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", file, err)
	}
	return &BuildConfig{Path: file, TargetDir: target, Document: string(out)}, nil
}

// ResolvePath joins a relative p to base and cleans the result lexically.
// The path does not need to exist.
func ResolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(base, p))
}
