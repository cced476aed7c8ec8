package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPolicy = `
categories = ["general", "testing"]

formatter {
  command = "true"
}
`

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func manifest(edition string) string {
	return "[package]\nname = \"x\"\nversion = \"4.1.0\"\nedition = \"" + edition + "\"\n"
}

// pinned adds the toolchain and build configuration for a workspace
// general category and for each standalone testing project.
func pinned(files map[string]string, standalone ...string) map[string]string {
	files["general/rust-toolchain"] = "nightly-2025-01-09\n"
	files["general/.cargo/config.toml"] = "[build]\ntarget-dir = \"../target\"\n"
	for _, name := range standalone {
		files["testing/"+name+"/rust-toolchain"] = "nightly-2025-01-09\n"
		files["testing/"+name+"/.cargo/config.toml"] = "[build]\ntarget-dir = \"../../target\"\n"
	}
	return files
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	policyPath, logLevel = "", "panic"
	withBuild, canonicalOnly = false, false
	jobs = runtime.NumCPU()
	// A slice flag appends once it has been set, so clear what earlier
	// runs left behind.
	only := checkCmd.Flags().Lookup("only").Value.(pflag.SliceValue)
	require.NoError(t, only.Replace(nil))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestList(t *testing.T) {
	root := writeTree(t, map[string]string{
		"corpuscheck.hcl":            testPolicy,
		"general/rust-toolchain":     "nightly-2025-01-09\n",
		"general/b/Cargo.toml":       manifest("2024"),
		"general/a/Cargo.toml":       manifest("2024"),
		"testing/clippy/Cargo.toml":  manifest("2024"),
		"testing/.hidden/Cargo.toml": manifest("2024"),
	})

	out, err := execute(t, "list", root)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"general\t" + filepath.Join(root, "general", "a"),
		"general\t" + filepath.Join(root, "general", "b"),
		"testing\t" + filepath.Join(root, "testing", "clippy"),
	}, "\n")+"\n", out)

	out, err = execute(t, "list", root, "--canonical")
	require.NoError(t, err)
	assert.Equal(t, "general\t"+filepath.Join(root, "general")+"\n"+
		"testing\t"+filepath.Join(root, "testing", "clippy")+"\n", out)
}

func TestCheck_Pass(t *testing.T) {
	root := writeTree(t, pinned(map[string]string{
		"corpuscheck.hcl":      testPolicy,
		"general/a/Cargo.toml": manifest("2024"),
		"general/a/src/lib.rs": "pub fn f() {}\n",
		"testing/b/Cargo.toml": manifest("2024"),
	}, "b"))

	out, err := execute(t, "check", root)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS  edition")
	assert.Contains(t, out, "PASS  formatting")
	assert.NotContains(t, out, "FAIL")
	assert.NotContains(t, out, "build ")
}

func TestCheck_FailureExitsWithError(t *testing.T) {
	root := writeTree(t, pinned(map[string]string{
		"corpuscheck.hcl":      testPolicy,
		"general/a/Cargo.toml": manifest("2024"),
		"general/b/Cargo.toml": manifest("2021"),
		"testing/c/Cargo.toml": manifest("2024"),
	}, "c"))

	out, err := execute(t, "check", root)
	require.ErrorIs(t, err, errChecksFailed)
	assert.Contains(t, out, "FAIL  edition")
	assert.Contains(t, out, filepath.Join(root, "general", "b"))
	assert.Contains(t, out, "PASS  version")
	assert.Contains(t, out, "PASS  toolchain-channel")
}

func TestCheck_MissingCategory(t *testing.T) {
	root := writeTree(t, map[string]string{
		"general/a/Cargo.toml": manifest("2024"),
	})

	// The default policy expects every category directory.
	_, err := execute(t, "check", root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supplementary")
}

func TestCheck_ExplicitPolicyPath(t *testing.T) {
	root := writeTree(t, pinned(map[string]string{
		"general/a/Cargo.toml": manifest("2024"),
		"testing/b/Cargo.toml": manifest("2024"),
	}, "b"))
	policy := filepath.Join(t.TempDir(), "policy.hcl")
	require.NoError(t, os.WriteFile(policy, []byte(testPolicy), 0o644))

	_, err := execute(t, "check", root, "--policy", policy)
	require.NoError(t, err)

	_, err = execute(t, "check", root, "--policy", filepath.Join(root, "missing.hcl"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read policy")
}

// checkLines returns the check names of the summary lines in out.
func checkLines(out string) []string {
	var names []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 1 && (fields[0] == "PASS" || fields[0] == "FAIL") {
			names = append(names, fields[1])
		}
	}
	return names
}

func TestCheck_Only(t *testing.T) {
	root := writeTree(t, pinned(map[string]string{
		"corpuscheck.hcl":      testPolicy,
		"general/a/Cargo.toml": manifest("2024"),
		"general/b/Cargo.toml": manifest("2021"),
		"testing/c/Cargo.toml": manifest("2024"),
	}, "c"))

	out, err := execute(t, "check", root, "--only", "version")
	require.NoError(t, err)
	assert.Equal(t, []string{"version"}, checkLines(out))

	// A second run selects afresh rather than adding to the first.
	out, err = execute(t, "check", root, "--only", "edition,version")
	require.ErrorIs(t, err, errChecksFailed)
	assert.Equal(t, []string{"version", "edition"}, checkLines(out))

	out, err = execute(t, "check", root, "-j", "1")
	require.ErrorIs(t, err, errChecksFailed)
	assert.Len(t, checkLines(out), 7)

	_, err = execute(t, "check", root, "--only", "spelling")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown check "spelling"`)
}

const buildPolicy = testPolicy + `
build {
  command = "sh"
  args    = ["-c", "test ! -f FAIL"]
}
`

func TestCheck_WithBuild(t *testing.T) {
	root := writeTree(t, pinned(map[string]string{
		"corpuscheck.hcl":      buildPolicy,
		"general/a/Cargo.toml": manifest("2024"),
		"general/b/Cargo.toml": manifest("2024"),
		"general/b/FAIL":       "",
		"testing/c/Cargo.toml": manifest("2024"),
	}, "c"))

	out, err := execute(t, "check", root)
	require.NoError(t, err)
	assert.NotContains(t, checkLines(out), "build")

	out, err = execute(t, "check", root, "--with-build")
	require.ErrorIs(t, err, errChecksFailed)
	assert.Equal(t, "build", checkLines(out)[len(checkLines(out))-1])
	assert.Contains(t, out, "FAIL  build")
	assert.Contains(t, out, filepath.Join(root, "general", "b"))
	assert.NotContains(t, out, filepath.Join(root, "general", "a")+" (exit")
}
