// Package artifact reads the per-project configuration artifacts of an
// example corpus: the package manifest, the toolchain pin, and the build
// configuration.
//
// Artifacts are TOML and are decoded into generic documents, so fields the
// reader does not know about are ignored. Nested fields are addressed by
// dotted paths such as "package.edition".
package artifact

import (
	"fmt"
	"path"
	"strings"

	"github.com/agentic-research/corpuscheck/api"
	"github.com/agentic-research/corpuscheck/internal/corpus"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/jp"
	"github.com/pelletier/go-toml/v2"
)

// Reader reads artifacts of the projects of one corpus.
type Reader struct {
	corpus    *corpus.Corpus
	artifacts api.Artifacts
}

func NewReader(c *corpus.Corpus, artifacts api.Artifacts) *Reader {
	return &Reader{corpus: c, artifacts: artifacts}
}

// read returns the raw artifact and its host path.
func (r *Reader) read(p corpus.Project, name string) ([]byte, string, error) {
	rel := path.Join(p.Rel, name)
	abs := r.corpus.Abs(rel)
	data, err := util.ReadFile(r.corpus.FS, rel)
	if err != nil {
		return nil, abs, &ParseError{Path: abs, Err: err}
	}
	return data, abs, nil
}

func decode(data []byte, file string) (map[string]any, error) {
	doc := map[string]any{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: file, Err: err}
	}
	return doc, nil
}

// fieldExpr builds the JSONPath for a dotted field path. Keys are added as
// child fragments so that names like "target-dir" need no quoting.
func fieldExpr(field string) jp.Expr {
	x := jp.R()
	for _, key := range strings.Split(field, ".") {
		x = x.C(key)
	}
	return x
}

func lookup(doc map[string]any, field string) (any, bool) {
	got := fieldExpr(field).Get(doc)
	if len(got) == 0 {
		return nil, false
	}
	return got[0], true
}

// stringField returns the string at field, or "" when it is absent or
// inherited from a workspace ({ workspace = true }).
func stringField(doc map[string]any, file, field string) (string, error) {
	v, ok := lookup(doc, field)
	if !ok {
		return "", nil
	}
	switch v := v.(type) {
	case string:
		return v, nil
	case map[string]any:
		if inherited, _ := v["workspace"].(bool); inherited {
			return "", nil
		}
	}
	return "", &ParseError{Path: file, Field: field, Err: fmt.Errorf("expected string, got %T", v)}
}

// stringsField returns the string list at field, or nil when it is absent.
func stringsField(doc map[string]any, file, field string) ([]string, error) {
	v, ok := lookup(doc, field)
	if !ok {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, &ParseError{Path: file, Field: field, Err: fmt.Errorf("expected list, got %T", v)}
	}
	out := make([]string, 0, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, &ParseError{Path: file, Field: fmt.Sprintf("%s[%d]", field, i), Err: fmt.Errorf("expected string, got %T", item)}
		}
		out = append(out, s)
	}
	return out, nil
}
