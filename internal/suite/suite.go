// Package suite runs the corpus checks and collects their outcomes.
package suite

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/agentic-research/corpuscheck/api"
	"github.com/agentic-research/corpuscheck/internal/artifact"
	"github.com/agentic-research/corpuscheck/internal/consistency"
	"github.com/agentic-research/corpuscheck/internal/corpus"
	"github.com/agentic-research/corpuscheck/internal/format"
	"github.com/agentic-research/corpuscheck/internal/pathpolicy"
	"github.com/sirupsen/logrus"
	gofumpt "mvdan.cc/gofumpt/format"
)

// Check names, in the order they run.
const (
	CheckVersion        = "version"
	CheckEdition        = "edition"
	CheckChannel        = "toolchain-channel"
	CheckComponents     = "toolchain-components"
	CheckBuildConfig    = "build-config"
	CheckForbiddenPaths = "forbidden-paths"
	CheckFormatting     = "formatting"
	CheckBuild          = "build"
)

// Names returns every check name in run order.
func Names() []string {
	return []string{
		CheckVersion, CheckEdition, CheckChannel, CheckComponents,
		CheckBuildConfig, CheckForbiddenPaths, CheckFormatting, CheckBuild,
	}
}

// Outcome is the result of one check.
type Outcome struct {
	Check    string
	Err      error
	Detail   string
	Duration time.Duration
}

// Passed reports whether the check succeeded.
func (o Outcome) Passed() bool { return o.Err == nil }

// Report holds the outcomes of one run in run order.
type Report struct {
	Outcomes []Outcome
}

// Failed reports whether any check failed.
func (r *Report) Failed() bool {
	return slices.ContainsFunc(r.Outcomes, func(o Outcome) bool { return !o.Passed() })
}

// Suite binds a policy to a corpus.
type Suite struct {
	policy     *api.Policy
	corpus     *corpus.Corpus
	reader     *artifact.Reader
	formatters map[string]format.Formatter
	jobs       int
	logger     logrus.FieldLogger
}

// Option configures a Suite.
type Option func(*Suite)

// WithJobs bounds concurrent formatter invocations.
func WithJobs(n int) Option {
	return func(s *Suite) { s.jobs = n }
}

// WithFormatter registers f for files with extension ext, replacing the
// formatter the policy configured.
func WithFormatter(ext string, f format.Formatter) Option {
	return func(s *Suite) { s.formatters[ext] = f }
}

// New returns a suite for c under policy.
func New(policy *api.Policy, c *corpus.Corpus, logger logrus.FieldLogger, opts ...Option) *Suite {
	s := &Suite{
		policy:     policy,
		corpus:     c,
		reader:     artifact.NewReader(c, policy.Artifacts),
		formatters: formattersFor(policy),
		jobs:       runtime.NumCPU(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func formattersFor(p *api.Policy) map[string]format.Formatter {
	out := map[string]format.Formatter{}
	if p.Formatter.Command != "" {
		ext := &format.ExecFormatter{
			Command: p.Formatter.Command,
			Args:    p.Formatter.Args,
			Timeout: p.Formatter.Timeout,
		}
		for _, e := range p.Formatter.Extensions {
			out[e] = ext
		}
	}
	if p.Gofumpt.Enabled {
		out[".go"] = &format.GofumptFormatter{Options: gofumpt.Options{
			LangVersion: p.Gofumpt.LangVersion,
			ExtraRules:  p.Gofumpt.ExtraRules,
		}}
	}
	return out
}

// Run executes the named checks, or every default check when names is
// empty. The build check is a default only when the policy enables it.
// Checks are independent; a discovery failure stops the run and is
// returned alongside the partial report.
func (s *Suite) Run(ctx context.Context, names ...string) (*Report, error) {
	selected, err := s.selectChecks(names)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, name := range selected {
		log := s.logger.WithField("check", name)
		log.Info("running")

		start := time.Now()
		detail, err := s.run(ctx, name)
		o := Outcome{Check: name, Err: err, Detail: detail, Duration: time.Since(start)}
		report.Outcomes = append(report.Outcomes, o)

		log = log.WithField("duration", o.Duration)
		if err != nil {
			log.Error(err)
		} else {
			log.Info(detail)
		}

		var de *corpus.DiscoveryError
		if errors.As(err, &de) {
			return report, de
		}
	}
	return report, nil
}

func (s *Suite) selectChecks(names []string) ([]string, error) {
	all := Names()
	if len(names) == 0 {
		return slices.DeleteFunc(all, func(n string) bool {
			return n == CheckBuild && !s.policy.Build.Enabled
		}), nil
	}
	for _, n := range names {
		if !slices.Contains(all, n) {
			return nil, fmt.Errorf("unknown check %q (known: %s)", n, strings.Join(all, ", "))
		}
	}
	return slices.DeleteFunc(all, func(n string) bool { return !slices.Contains(names, n) }), nil
}

func (s *Suite) run(ctx context.Context, name string) (string, error) {
	switch name {
	case CheckVersion:
		return s.invariant(s.versionInvariant(), false)
	case CheckEdition:
		return s.invariant(s.editionInvariant(), false)
	case CheckChannel:
		return s.invariant(s.channelInvariant(), true)
	case CheckBuildConfig:
		return s.invariant(s.buildConfigInvariant(), true)
	case CheckComponents:
		return s.components()
	case CheckForbiddenPaths:
		return s.forbiddenPaths()
	case CheckFormatting:
		return s.formatting(ctx)
	case CheckBuild:
		return s.build(ctx)
	}
	return "", fmt.Errorf("unknown check %q", name)
}

func (s *Suite) invariant(inv consistency.Invariant, canonicalOnly bool) (string, error) {
	res, err := inv.Check(s.corpus.Projects(canonicalOnly))
	if err != nil {
		return "", err
	}
	if res.Vacuous() {
		return fmt.Sprintf("no projects to compare (%d exempt, %d without value)", len(res.Exempted), len(res.Absent)), nil
	}
	return fmt.Sprintf("%d projects agree on %q (%d exempt, %d without value)", res.Compared, summarize(res.Baseline), len(res.Exempted), len(res.Absent)), nil
}

func summarize(v string) string {
	if i := strings.IndexByte(v, '\n'); i >= 0 || len(v) > 60 {
		return "normalized document"
	}
	return v
}

func (s *Suite) versionInvariant() consistency.Invariant {
	return consistency.Invariant{
		Name:   CheckVersion,
		Exempt: corpus.Exemptions(s.policy.Exemptions.Version),
		Logger: s.logger,
		Extract: func(p corpus.Project) (string, bool, error) {
			m, err := s.reader.Manifest(p)
			if err != nil {
				return "", false, err
			}
			return m.Version, m.HasPackage && m.Version != "", nil
		},
	}
}

func (s *Suite) editionInvariant() consistency.Invariant {
	return consistency.Invariant{
		Name:     CheckEdition,
		Exempt:   corpus.Exemptions(s.policy.Exemptions.Edition),
		Expected: s.policy.Edition,
		Logger:   s.logger,
		Extract: func(p corpus.Project) (string, bool, error) {
			m, err := s.reader.Manifest(p)
			if err != nil {
				return "", false, err
			}
			// A package without an edition is a mismatch, not an absence.
			return m.Edition, m.HasPackage, nil
		},
	}
}

func (s *Suite) channelInvariant() consistency.Invariant {
	return consistency.Invariant{
		Name:   CheckChannel,
		Exempt: corpus.Exemptions(s.policy.Exemptions.Channel),
		Logger: s.logger,
		Extract: func(p corpus.Project) (string, bool, error) {
			pin, err := s.reader.Toolchain(p)
			if err != nil {
				return "", false, err
			}
			return pin.Channel, pin.Channel != "", nil
		},
	}
}

func (s *Suite) buildConfigInvariant() consistency.Invariant {
	return consistency.Invariant{
		Name:   CheckBuildConfig,
		Exempt: corpus.Exemptions(s.policy.Exemptions.BuildConfig),
		Logger: s.logger,
		Extract: func(p corpus.Project) (string, bool, error) {
			bc, err := s.reader.BuildConfig(p)
			if err != nil {
				return "", false, err
			}
			return bc.Document, true, nil
		},
	}
}

func (s *Suite) components() (string, error) {
	n, err := consistency.Excludes(CheckComponents, s.corpus.Projects(true), corpus.Exemptions(s.policy.Exemptions.Components),
		func(p corpus.Project) ([]string, error) {
			pin, err := s.reader.Toolchain(p)
			if err != nil {
				return nil, err
			}
			return pin.Components, nil
		}, s.policy.DisallowedComponent)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d toolchain pins omit %q", n, s.policy.DisallowedComponent), nil
}

func (s *Suite) forbiddenPaths() (string, error) {
	checker := pathpolicy.NewChecker(s.corpus, pathpolicy.Rules(s.policy.Forbidden), s.logger)
	n, err := checker.Check()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d files respect the path policy", n), nil
}

func (s *Suite) formatting(ctx context.Context) (string, error) {
	checker := format.NewChecker(s.corpus, s.formatters, s.jobs, s.logger)
	n, err := checker.Check(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d files formatted", n), nil
}
