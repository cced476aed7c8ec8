package suite

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/agentic-research/corpuscheck/api"
	"github.com/agentic-research/corpuscheck/internal/consistency"
	"github.com/agentic-research/corpuscheck/internal/corpus"
	"github.com/agentic-research/corpuscheck/internal/format"
	"github.com/agentic-research/corpuscheck/internal/pathpolicy"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func testPolicy() *api.Policy {
	p := api.DefaultPolicy()
	p.Categories = []string{"general", "restriction", "testing"}
	p.Formatter.Command = "" // no rustfmt in unit tests
	return p
}

type member struct {
	version, edition string
}

func goodMember() member { return member{version: "4.1.0", edition: "2024"} }

// pin is the toolchain and build configuration a workspace category root
// or a standalone project carries.
type pin struct {
	channel    string
	targetDir  string
	components []string
}

func goodPin() pin { return pin{channel: "nightly-2025-01-09"} }

func (p pin) files(rel string) map[string]string {
	components := p.components
	if components == nil {
		components = []string{"llvm-tools-preview"}
	}
	quoted := make([]string, 0, len(components))
	for _, c := range components {
		quoted = append(quoted, strconv.Quote(c))
	}
	targetDir := p.targetDir
	if targetDir == "" {
		// Every fixture shares one target directory at the corpus root.
		targetDir = strings.Repeat("../", strings.Count(rel, "/")+1) + "target"
	}
	return map[string]string{
		rel + "/rust-toolchain":     fmt.Sprintf("[toolchain]\nchannel = %q\ncomponents = [%s]\n", p.channel, strings.Join(quoted, ", ")),
		rel + "/.cargo/config.toml": fmt.Sprintf("[build]\ntarget-dir = %q\n\n[target.x86_64-unknown-linux-gnu]\nlinker = \"dylint-link\"\n", targetDir),
	}
}

func (m member) files(rel string) map[string]string {
	return map[string]string{
		rel + "/Cargo.toml": fmt.Sprintf("[package]\nname = %q\nversion = %q\nedition = %q\n", path.Base(rel), m.version, m.edition),
		rel + "/src/lib.rs": "fn main() {}\n",
	}
}

// build lays out a corpus whose general and restriction categories are
// workspaces pinned at their roots, plus any extra pins under testing.
func build(t *testing.T, members map[string]member, pins map[string]pin) *corpus.Corpus {
	t.Helper()
	fs := memfs.New()
	write := func(files map[string]string) {
		for name, content := range files {
			require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
		}
	}
	for _, dir := range []string{"general", "restriction", "testing"} {
		require.NoError(t, fs.MkdirAll(dir, 0o755))
	}
	all := map[string]pin{"general": goodPin(), "restriction": goodPin()}
	maps.Copy(all, pins)
	for rel, p := range all {
		write(p.files(rel))
	}
	for rel, m := range members {
		write(m.files(rel))
	}
	c, err := corpus.New("/corpus", fs, []string{"general", "restriction", "testing"},
		corpus.WithSkipDirs("target"), corpus.WithWorkspaceMarker("rust-toolchain"))
	require.NoError(t, err)
	return c
}

func outcome(t *testing.T, r *Report, name string) Outcome {
	t.Helper()
	for _, o := range r.Outcomes {
		if o.Check == name {
			return o
		}
	}
	t.Fatalf("no outcome for %s", name)
	return Outcome{}
}

func TestRun_CleanCorpusPasses(t *testing.T) {
	c := build(t, map[string]member{
		"general/a":     goodMember(),
		"general/b":     goodMember(),
		"restriction/c": goodMember(),
		"testing/d":     goodMember(),
	}, map[string]pin{"testing/d": goodPin()})
	report, err := New(testPolicy(), c, quiet()).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Failed())

	var names []string
	for _, o := range report.Outcomes {
		names = append(names, o.Check)
	}
	assert.Equal(t, []string{CheckVersion, CheckEdition, CheckChannel, CheckComponents, CheckBuildConfig, CheckForbiddenPaths, CheckFormatting}, names)
}

func TestRun_EditionScenario(t *testing.T) {
	b := goodMember()
	b.edition = "2021"
	c := build(t, map[string]member{
		"general/a": goodMember(),
		"general/b": b,
		"general/c": goodMember(),
	}, nil)
	report, err := New(testPolicy(), c, quiet()).Run(context.Background(), CheckEdition)
	require.NoError(t, err)
	require.True(t, report.Failed())

	var ce *consistency.ConsistencyError
	require.True(t, errors.As(outcome(t, report, CheckEdition).Err, &ce))
	assert.Equal(t, filepath.Join("/corpus", "general", "b"), ce.Path)
	assert.Equal(t, "2021", ce.Value)
	assert.Equal(t, "2024", ce.Baseline)
}

func TestRun_ChecksAreIndependent(t *testing.T) {
	b := goodMember()
	b.version = "4.0.0"
	c := build(t, map[string]member{
		"general/a": goodMember(),
		"general/b": b,
	}, nil)
	report, err := New(testPolicy(), c, quiet()).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, outcome(t, report, CheckVersion).Passed())
	assert.True(t, outcome(t, report, CheckEdition).Passed())
	assert.True(t, outcome(t, report, CheckFormatting).Passed())
}

func TestRun_VersionExemptsRestriction(t *testing.T) {
	r := goodMember()
	r.version = "0.1.0"
	c := build(t, map[string]member{
		"general/a":     goodMember(),
		"restriction/r": r,
	}, nil)
	report, err := New(testPolicy(), c, quiet()).Run(context.Background(), CheckVersion)
	require.NoError(t, err)
	assert.False(t, report.Failed())
}

func TestRun_VacuousVersionCheck(t *testing.T) {
	c := build(t, map[string]member{
		"restriction/a": goodMember(),
		"restriction/b": goodMember(),
	}, nil)
	report, err := New(testPolicy(), c, quiet()).Run(context.Background(), CheckVersion)
	require.NoError(t, err)
	o := outcome(t, report, CheckVersion)
	assert.True(t, o.Passed())
	assert.Contains(t, o.Detail, "no projects to compare")
}

func TestRun_StragglerSkipsChannelAndBuildConfig(t *testing.T) {
	s := goodPin()
	s.channel = "nightly-2023-01-01"
	s.targetDir = "target"
	c := build(t, map[string]member{
		"general/a":         goodMember(),
		"testing/straggler": goodMember(),
	}, map[string]pin{"testing/straggler": s})
	// Canonical traversal picks one project per category, so straggler
	// stands for testing.
	report, err := New(testPolicy(), c, quiet()).Run(context.Background(), CheckChannel, CheckBuildConfig)
	require.NoError(t, err)
	assert.False(t, report.Failed())

	p := testPolicy()
	p.Exemptions.Channel = nil
	report, err = New(p, c, quiet()).Run(context.Background(), CheckChannel, CheckBuildConfig)
	require.NoError(t, err)
	var ce *consistency.ConsistencyError
	require.True(t, errors.As(outcome(t, report, CheckChannel).Err, &ce))
	assert.Equal(t, filepath.Join("/corpus", "testing", "straggler"), ce.Path)
	assert.True(t, outcome(t, report, CheckBuildConfig).Passed())
}

func TestRun_BuildConfigDivergence(t *testing.T) {
	b := goodPin()
	b.targetDir = "target"
	c := build(t, map[string]member{
		"general/a": goodMember(),
		"testing/b": goodMember(),
	}, map[string]pin{"testing/b": b})
	report, err := New(testPolicy(), c, quiet()).Run(context.Background(), CheckBuildConfig)
	require.NoError(t, err)
	var ce *consistency.ConsistencyError
	require.True(t, errors.As(outcome(t, report, CheckBuildConfig).Err, &ce))
	assert.Equal(t, filepath.Join("/corpus", "testing", "b"), ce.Path)
	assert.Contains(t, ce.Value, filepath.Join("/corpus", "testing", "b", "target"))
}

func TestRun_DisallowedComponent(t *testing.T) {
	b := goodPin()
	b.components = []string{"llvm-tools-preview", "rust-src"}
	c := build(t, map[string]member{
		"general/a": goodMember(),
		"testing/b": goodMember(),
	}, map[string]pin{"testing/b": b})
	report, err := New(testPolicy(), c, quiet()).Run(context.Background(), CheckComponents)
	require.NoError(t, err)
	var ce *consistency.ComponentError
	require.True(t, errors.As(outcome(t, report, CheckComponents).Err, &ce))
	assert.Equal(t, filepath.Join("/corpus", "testing", "b"), ce.Path)
}

func TestRun_ForbiddenPath(t *testing.T) {
	c := build(t, map[string]member{"general/a": goodMember()}, nil)
	require.NoError(t, util.WriteFile(c.FS, "general/a/.gitignore", []byte("target\n"), 0o644))

	report, err := New(testPolicy(), c, quiet()).Run(context.Background(), CheckForbiddenPaths)
	require.NoError(t, err)
	var v *pathpolicy.PolicyViolation
	require.True(t, errors.As(outcome(t, report, CheckForbiddenPaths).Err, &v))
	assert.Equal(t, "general/a/.gitignore", v.Path)
}

type rejectAll struct{}

func (rejectAll) Check(_ context.Context, src format.Source) (*format.Violation, error) {
	return &format.Violation{Path: src.Path}, nil
}

func TestRun_FormattingUsesRegisteredFormatter(t *testing.T) {
	c := build(t, map[string]member{"general/a": goodMember(), "general/b": goodMember()}, nil)
	report, err := New(testPolicy(), c, quiet(), WithFormatter(".rs", rejectAll{}), WithJobs(2)).Run(context.Background(), CheckFormatting)
	require.NoError(t, err)
	var fe *format.FormattingError
	require.True(t, errors.As(outcome(t, report, CheckFormatting).Err, &fe))
	assert.Len(t, fe.Violations, 2)
}

func TestRun_MissingCategoryAbortsRun(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll("general", 0o755))
	c, err := corpus.New("/corpus", fs, []string{"general", "testing"})
	require.NoError(t, err)

	report, err := New(testPolicy(), c, quiet()).Run(context.Background())
	var de *corpus.DiscoveryError
	require.True(t, errors.As(err, &de))
	require.NotNil(t, report)
	assert.Len(t, report.Outcomes, 1)
	assert.Equal(t, CheckVersion, report.Outcomes[0].Check)
}

func TestRun_UnknownCheck(t *testing.T) {
	c := build(t, map[string]member{"general/a": goodMember()}, nil)
	_, err := New(testPolicy(), c, quiet()).Run(context.Background(), "spelling")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown check "spelling"`)
}

func TestRun_Idempotent(t *testing.T) {
	b := goodPin()
	b.channel = "stable"
	c := build(t, map[string]member{"general/a": goodMember(), "testing/b": goodMember()}, map[string]pin{"testing/b": b})
	s := New(testPolicy(), c, quiet())

	first, err := s.Run(context.Background())
	require.NoError(t, err)
	second, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, second.Outcomes, len(first.Outcomes))
	for i := range first.Outcomes {
		assert.Equal(t, first.Outcomes[i].Passed(), second.Outcomes[i].Passed())
		if !first.Outcomes[i].Passed() {
			assert.Equal(t, first.Outcomes[i].Err.Error(), second.Outcomes[i].Err.Error())
		}
	}
}

func TestRun_BuildCheck(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"general/a", "general/b", "general/c"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(rel)), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "general", "b", "FAIL"), nil, 0o644))

	p := testPolicy()
	p.Categories = []string{"general"}
	p.Build.Command = "sh"
	p.Build.Args = []string{"-c", "test ! -f FAIL"}

	c, err := corpus.Open(root, p.Categories)
	require.NoError(t, err)

	// Not run unless enabled or named.
	report, err := New(p, c, quiet()).Run(context.Background(), CheckVersion)
	require.NoError(t, err)
	assert.Len(t, report.Outcomes, 1)

	report, err = New(p, c, quiet()).Run(context.Background(), CheckBuild)
	require.NoError(t, err)
	var be *BuildError
	require.True(t, errors.As(outcome(t, report, CheckBuild).Err, &be))
	require.Len(t, be.Failures, 1)
	assert.Equal(t, filepath.Join(root, "general", "b"), be.Failures[0].Path)
	assert.Equal(t, 1, be.Failures[0].ExitCode)
}
