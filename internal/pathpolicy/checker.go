package pathpolicy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentic-research/corpuscheck/internal/corpus"
	"github.com/go-git/go-billy/v5/util"
	"github.com/sirupsen/logrus"
)

var errStop = errors.New("stop walk")

// Checker walks a corpus and applies a rule table to every file.
type Checker struct {
	corpus *corpus.Corpus
	rules  []Rule
	logger logrus.FieldLogger
}

func NewChecker(c *corpus.Corpus, rules []Rule, logger logrus.FieldLogger) *Checker {
	return &Checker{corpus: c, rules: rules, logger: logger}
}

// Check walks the corpus in lexicographic order and returns the first
// violation. It also returns how many files were inspected.
func (c *Checker) Check() (int, error) {
	var (
		files     int
		violation *PolicyViolation
	)
	err := util.Walk(c.corpus.FS, ".", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", c.corpus.Abs(filepath.ToSlash(p)), err)
		}
		if info.IsDir() {
			if p != "." && c.corpus.Skipped(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		files++
		rel := filepath.ToSlash(filepath.Clean(p))
		if v := Evaluate(c.rules, rel); v != nil {
			violation = v
			return errStop
		}
		return nil
	})
	if violation != nil {
		c.logger.WithField("path", violation.Path).Warn(violation.Error())
		return files, violation
	}
	if err != nil {
		return files, err
	}
	return files, nil
}
