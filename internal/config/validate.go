package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/agentic-research/corpuscheck/api"
)

// ValidationError reports a policy value that no check could honor.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid policy: %s: %s", e.Field, e.Message)
}

// Validate returns the first problem found in p, or nil.
func Validate(p *api.Policy) error {
	if len(p.Categories) == 0 {
		return &ValidationError{Field: "categories", Message: "at least one category is required"}
	}
	for i, c := range p.Categories {
		if err := dirName("categories", c); err != nil {
			return err
		}
		if slices.Contains(p.Categories[:i], c) {
			return &ValidationError{Field: "categories", Message: fmt.Sprintf("duplicate category %q", c)}
		}
	}
	for category, name := range p.Canonical {
		if !slices.Contains(p.Categories, category) {
			return &ValidationError{Field: "canonical", Message: fmt.Sprintf("unknown category %q", category)}
		}
		if err := dirName("canonical."+category, name); err != nil {
			return err
		}
	}
	if p.Edition == "" {
		return &ValidationError{Field: "edition", Message: "must not be empty"}
	}

	a := p.Artifacts
	for _, f := range []struct{ field, value string }{
		{"artifacts.manifest", a.Manifest},
		{"artifacts.toolchain", a.Toolchain},
		{"artifacts.build_config", a.BuildConfig},
		{"artifacts.target_dir_field", a.TargetDirField},
	} {
		if f.value == "" {
			return &ValidationError{Field: f.field, Message: "must not be empty"}
		}
	}

	for _, ext := range p.Formatter.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return &ValidationError{Field: "formatter.extensions", Message: fmt.Sprintf("%q must start with a dot", ext)}
		}
	}
	if p.Formatter.Command != "" && p.Formatter.Timeout <= 0 {
		return &ValidationError{Field: "formatter.timeout", Message: "must be positive"}
	}
	if p.Build.Enabled && p.Build.Command == "" {
		return &ValidationError{Field: "build.command", Message: "required when the build check is enabled"}
	}
	if p.Build.Command != "" && p.Build.Timeout <= 0 {
		return &ValidationError{Field: "build.timeout", Message: "must be positive"}
	}
	return nil
}

func dirName(field, v string) error {
	if v == "" || strings.HasPrefix(v, ".") || strings.ContainsAny(v, `/\`) {
		return &ValidationError{Field: field, Message: fmt.Sprintf("%q is not a directory name", v)}
	}
	return nil
}
