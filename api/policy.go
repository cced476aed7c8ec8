package api

import "time"

// Policy is the root configuration of a corpus verification run.
// It names the categories to discover, the artifacts to read, and the
// per-invariant exemptions.
type Policy struct {
	// Categories are the top-level groups, in traversal order.
	Categories []string
	// Edition is the one language edition every manifest must declare.
	Edition string
	// DisallowedComponent must never appear in a toolchain pin.
	DisallowedComponent string
	// SkipDirs are directory names that are never projects and never walked.
	SkipDirs []string
	// Canonical optionally names the representative project per category.
	Canonical map[string]string

	Artifacts  Artifacts
	Exemptions Exemptions
	Forbidden  Forbidden
	Formatter  Formatter
	Gofumpt    Gofumpt
	Build      Build
}

// Artifacts locates the per-project configuration files.
type Artifacts struct {
	Manifest    string
	Toolchain   string
	BuildConfig string
	// TargetDirField is the dotted path of the build output directory
	// inside the build configuration.
	TargetDirField string
}

// Exemptions lists, per invariant class, the project names, categories,
// or category/name paths that skip that invariant.
type Exemptions struct {
	Version     []string
	Edition     []string
	Channel     []string
	BuildConfig []string
	Components  []string
}

// Forbidden describes where misplaced configuration files may not live.
type Forbidden struct {
	// General files are never allowed anywhere in the corpus.
	General []string
	// Specific files are allowed only under AllowedDirs or at the root of
	// one of CategoryRoots.
	Specific      []string
	AllowedDirs   []string
	CategoryRoots []string
}

// Formatter is an external formatter invoked once per source file.
type Formatter struct {
	Command    string
	Args       []string
	Extensions []string
	Timeout    time.Duration
}

// Gofumpt configures the in-process Go formatter.
type Gofumpt struct {
	Enabled     bool
	LangVersion string
	ExtraRules  bool
}

// Build is the opaque per-project build/test command.
type Build struct {
	Enabled bool
	Command string
	Args    []string
	Timeout time.Duration
}

// DefaultPolicy returns the policy of the lint example corpus.
func DefaultPolicy() *Policy {
	return &Policy{
		Categories:          []string{"general", "supplementary", "restriction", "experimental", "testing"},
		Edition:             "2024",
		DisallowedComponent: "rust-src",
		SkipDirs:            []string{".git", "target"},
		Canonical:           map[string]string{},
		Artifacts: Artifacts{
			Manifest:       "Cargo.toml",
			Toolchain:      "rust-toolchain",
			BuildConfig:    ".cargo/config.toml",
			TargetDirField: "build.target-dir",
		},
		Exemptions: Exemptions{
			Version:     []string{"restriction"},
			Channel:     []string{"straggler"},
			BuildConfig: []string{"straggler"},
		},
		Forbidden: Forbidden{
			General:       []string{".gitignore"},
			Specific:      []string{".cargo/config.toml", "rust-toolchain"},
			AllowedDirs:   []string{"experimental", "testing"},
			CategoryRoots: []string{"general", "supplementary", "restriction"},
		},
		Formatter: Formatter{
			Command:    "rustfmt",
			Args:       []string{"+nightly", "--check", "--edition=2024"},
			Extensions: []string{".rs"},
			Timeout:    60 * time.Second,
		},
		Gofumpt: Gofumpt{
			Enabled: true,
		},
		Build: Build{
			Command: "cargo",
			Args:    []string{"test", "--lib", "--tests"},
			Timeout: 10 * time.Minute,
		},
	}
}
