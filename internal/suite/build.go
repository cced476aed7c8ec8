package suite

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentic-research/corpuscheck/internal/format"
)

// BuildFailure is a project whose build command exited non-zero.
type BuildFailure struct {
	Path     string
	ExitCode int
	Stdout   string
	Stderr   string
}

// BuildError lists every project that failed to build or test.
type BuildError struct {
	Command  string
	Failures []BuildFailure
}

func (e *BuildError) Error() string {
	lines := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		lines = append(lines, fmt.Sprintf("%s (exit %d)", f.Path, f.ExitCode))
	}
	return fmt.Sprintf("%s failed for the following projects:\n%s", e.Command, strings.Join(lines, "\n"))
}

// build runs the policy's build command in every project directory. The
// command's own output is opaque; only its exit status is judged.
func (s *Suite) build(ctx context.Context) (string, error) {
	b := s.policy.Build
	command := strings.Join(append([]string{b.Command}, b.Args...), " ")

	projects, err := s.corpus.Collect(false)
	if err != nil {
		return "", err
	}

	var failures []BuildFailure
	for _, p := range projects {
		log := s.logger.WithField("project", p.Rel)
		log.Debugf("running %s", command)
		out, err := format.Run(ctx, p.Path, b.Timeout, b.Command, b.Args...)
		if err != nil {
			return "", fmt.Errorf("build %s: %w", p.Path, err)
		}
		if !out.Success() {
			log.Warnf("%s failed for: %s\nstderr:\n```\n%s\n```", command, p.Path, out.Stderr)
			failures = append(failures, BuildFailure{
				Path:     p.Path,
				ExitCode: out.ExitCode,
				Stdout:   string(out.Stdout),
				Stderr:   string(out.Stderr),
			})
		}
	}
	if len(failures) > 0 {
		return "", &BuildError{Command: command, Failures: failures}
	}
	return fmt.Sprintf("%d projects pass %s", len(projects), command), nil
}
