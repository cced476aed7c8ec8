// Package consistency asserts that every non-exempted project of a corpus
// agrees on a value.
//
// Each check is a fold over the project sequence. The baseline is the
// first non-exempted value seen (or a fixed expected value) and lives only
// for the duration of one Check call, so results are reproducible and the
// first divergence is always reported against the same anchor.
package consistency

import (
	"fmt"
	"iter"
	"slices"

	"github.com/agentic-research/corpuscheck/internal/corpus"
	"github.com/sirupsen/logrus"
)

// Extractor returns the value a project contributes to an invariant.
// ok is false when the project legitimately has no value, in which case it
// is skipped.
type Extractor func(p corpus.Project) (value string, ok bool, err error)

// Invariant is one cross-project equality rule.
type Invariant struct {
	Name    string
	Exempt  corpus.Exemptions
	Extract Extractor
	// Expected fixes the baseline. When empty the first non-exempted value
	// becomes the baseline.
	Expected string
	Logger   logrus.FieldLogger
}

// Result summarizes a passing check.
type Result struct {
	Baseline     string
	BaselinePath string
	// Compared counts projects whose value matched the baseline, including
	// the project that set it.
	Compared int
	Exempted []string
	Absent   []string
}

// Vacuous reports whether the check passed without comparing anything.
func (r Result) Vacuous() bool { return r.Compared == 0 }

// ConsistencyError reports the first project whose value departs from the
// baseline.
type ConsistencyError struct {
	Invariant    string
	Baseline     string
	BaselinePath string
	Path         string
	Value        string
}

func (e *ConsistencyError) Error() string {
	from := e.BaselinePath
	if from == "" {
		from = "policy"
	}
	return fmt.Sprintf("%s: %s has %q, expected %q (baseline from %s)", e.Invariant, e.Path, e.Value, e.Baseline, from)
}

// Check folds projects through the invariant and stops at the first
// divergence or error.
func (inv Invariant) Check(projects iter.Seq2[corpus.Project, error]) (Result, error) {
	log := inv.logger()
	res := Result{Baseline: inv.Expected}
	have := inv.Expected != ""

	for p, err := range projects {
		if err != nil {
			return res, err
		}
		if inv.Exempt.Exempt(p) {
			log.WithField("project", p.Rel).Debug("exempt")
			res.Exempted = append(res.Exempted, p.Rel)
			continue
		}
		value, ok, err := inv.Extract(p)
		if err != nil {
			return res, err
		}
		if !ok {
			log.WithField("project", p.Rel).Debug("no value")
			res.Absent = append(res.Absent, p.Rel)
			continue
		}
		if !have {
			res.Baseline, res.BaselinePath, have = value, p.Path, true
		}
		if value != res.Baseline {
			return res, &ConsistencyError{
				Invariant:    inv.Name,
				Baseline:     res.Baseline,
				BaselinePath: res.BaselinePath,
				Path:         p.Path,
				Value:        value,
			}
		}
		res.Compared++
	}
	return res, nil
}

func (inv Invariant) logger() logrus.FieldLogger {
	log := inv.Logger
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return log.WithField("invariant", inv.Name)
}

// ListExtractor returns the list a project contributes to an Excludes check.
type ListExtractor func(p corpus.Project) ([]string, error)

// ComponentError reports a project whose list contains a forbidden member.
type ComponentError struct {
	Invariant string
	Path      string
	Member    string
}

func (e *ComponentError) Error() string {
	return fmt.Sprintf("%s: %s must not contain %q", e.Invariant, e.Path, e.Member)
}

// Excludes asserts that no non-exempted project's list contains forbidden.
func Excludes(name string, projects iter.Seq2[corpus.Project, error], exempt corpus.Exemptions, extract ListExtractor, forbidden string) (int, error) {
	checked := 0
	for p, err := range projects {
		if err != nil {
			return checked, err
		}
		if exempt.Exempt(p) {
			continue
		}
		list, err := extract(p)
		if err != nil {
			return checked, err
		}
		if slices.Contains(list, forbidden) {
			return checked, &ComponentError{Invariant: name, Path: p.Path, Member: forbidden}
		}
		checked++
	}
	return checked, nil
}
