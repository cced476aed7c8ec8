// Package config loads corpus policy files.
//
// A policy file is HCL. Every attribute and block is optional; whatever a
// file sets replaces the matching value of api.DefaultPolicy, and
// everything else keeps its default:
//
//	categories = ["general", "testing"]
//	edition    = "2024"
//
//	exemptions {
//	  version = ["restriction"]
//	  channel = ["straggler"]
//	}
//
//	formatter {
//	  command = "rustfmt"
//	  args    = ["+nightly", "--check", "--edition=2024"]
//	  timeout = "30s"
//	}
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agentic-research/corpuscheck/api"
	"github.com/hashicorp/hcl/v2/hclsimple"
)

// DefaultFileName is looked up in the corpus root when no policy path is given.
const DefaultFileName = "corpuscheck.hcl"

type policyFile struct {
	Categories          []string          `hcl:"categories,optional"`
	Edition             string            `hcl:"edition,optional"`
	DisallowedComponent string            `hcl:"disallowed_component,optional"`
	SkipDirs            []string          `hcl:"skip_dirs,optional"`
	Canonical           map[string]string `hcl:"canonical,optional"`

	Artifacts  *artifactsBlock  `hcl:"artifacts,block"`
	Exemptions *exemptionsBlock `hcl:"exemptions,block"`
	Forbidden  *forbiddenBlock  `hcl:"forbidden,block"`
	Formatter  *formatterBlock  `hcl:"formatter,block"`
	Gofumpt    *gofumptBlock    `hcl:"gofumpt,block"`
	Build      *buildBlock      `hcl:"build,block"`
}

type artifactsBlock struct {
	Manifest       string `hcl:"manifest,optional"`
	Toolchain      string `hcl:"toolchain,optional"`
	BuildConfig    string `hcl:"build_config,optional"`
	TargetDirField string `hcl:"target_dir_field,optional"`
}

type exemptionsBlock struct {
	Version     []string `hcl:"version,optional"`
	Edition     []string `hcl:"edition,optional"`
	Channel     []string `hcl:"channel,optional"`
	BuildConfig []string `hcl:"build_config,optional"`
	Components  []string `hcl:"components,optional"`
}

type forbiddenBlock struct {
	General       []string `hcl:"general,optional"`
	Specific      []string `hcl:"specific,optional"`
	AllowedDirs   []string `hcl:"allowed_dirs,optional"`
	CategoryRoots []string `hcl:"category_roots,optional"`
}

type formatterBlock struct {
	Command    string   `hcl:"command,optional"`
	Args       []string `hcl:"args,optional"`
	Extensions []string `hcl:"extensions,optional"`
	Timeout    string   `hcl:"timeout,optional"`
}

type gofumptBlock struct {
	Enabled     *bool  `hcl:"enabled,optional"`
	LangVersion string `hcl:"lang_version,optional"`
	ExtraRules  *bool  `hcl:"extra_rules,optional"`
}

type buildBlock struct {
	Enabled *bool    `hcl:"enabled,optional"`
	Command string   `hcl:"command,optional"`
	Args    []string `hcl:"args,optional"`
	Timeout string   `hcl:"timeout,optional"`
}

// Load returns the default policy overlaid with the file at path.
// An empty path returns the defaults unchanged.
func Load(path string) (*api.Policy, error) {
	policy := api.DefaultPolicy()
	if path == "" {
		return policy, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	if err := Decode(policy, filepath.Base(path), src); err != nil {
		return nil, err
	}
	if err := Validate(policy); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return policy, nil
}

// LoadFromDir loads DefaultFileName from dir if it exists, and the
// defaults otherwise.
func LoadFromDir(dir string) (*api.Policy, error) {
	path := filepath.Join(dir, DefaultFileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return api.DefaultPolicy(), nil
		}
		return nil, fmt.Errorf("stat policy: %w", err)
	}
	return Load(path)
}

// Decode overlays the HCL document src onto policy. The filename selects
// the syntax (.hcl or .json) and appears in diagnostics.
func Decode(policy *api.Policy, filename string, src []byte) error {
	var f policyFile
	if err := hclsimple.Decode(filename, src, nil, &f); err != nil {
		return fmt.Errorf("parse policy: %w", err)
	}
	return f.apply(policy)
}

func (f *policyFile) apply(p *api.Policy) error {
	setList(&p.Categories, f.Categories)
	setString(&p.Edition, f.Edition)
	setString(&p.DisallowedComponent, f.DisallowedComponent)
	setList(&p.SkipDirs, f.SkipDirs)
	for category, name := range f.Canonical {
		p.Canonical[category] = name
	}

	if a := f.Artifacts; a != nil {
		setString(&p.Artifacts.Manifest, a.Manifest)
		setString(&p.Artifacts.Toolchain, a.Toolchain)
		setString(&p.Artifacts.BuildConfig, a.BuildConfig)
		setString(&p.Artifacts.TargetDirField, a.TargetDirField)
	}

	if e := f.Exemptions; e != nil {
		setList(&p.Exemptions.Version, e.Version)
		setList(&p.Exemptions.Edition, e.Edition)
		setList(&p.Exemptions.Channel, e.Channel)
		setList(&p.Exemptions.BuildConfig, e.BuildConfig)
		setList(&p.Exemptions.Components, e.Components)
	}

	if fb := f.Forbidden; fb != nil {
		setList(&p.Forbidden.General, fb.General)
		setList(&p.Forbidden.Specific, fb.Specific)
		setList(&p.Forbidden.AllowedDirs, fb.AllowedDirs)
		setList(&p.Forbidden.CategoryRoots, fb.CategoryRoots)
	}

	if fm := f.Formatter; fm != nil {
		setString(&p.Formatter.Command, fm.Command)
		setList(&p.Formatter.Args, fm.Args)
		setList(&p.Formatter.Extensions, fm.Extensions)
		if err := setDuration(&p.Formatter.Timeout, fm.Timeout, "formatter.timeout"); err != nil {
			return err
		}
	}

	if g := f.Gofumpt; g != nil {
		setBool(&p.Gofumpt.Enabled, g.Enabled)
		setString(&p.Gofumpt.LangVersion, g.LangVersion)
		setBool(&p.Gofumpt.ExtraRules, g.ExtraRules)
	}

	if b := f.Build; b != nil {
		setBool(&p.Build.Enabled, b.Enabled)
		setString(&p.Build.Command, b.Command)
		setList(&p.Build.Args, b.Args)
		if err := setDuration(&p.Build.Timeout, b.Timeout, "build.timeout"); err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// setList replaces dst when the file set the attribute, including to an
// empty list.
func setList(dst *[]string, v []string) {
	if v != nil {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v, field string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse policy: %s: %w", field, err)
	}
	*dst = d
	return nil
}
