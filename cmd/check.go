package cmd

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/agentic-research/corpuscheck/internal/suite"
	"github.com/spf13/cobra"
)

var (
	onlyChecks []string
	withBuild  bool
	jobs       int
)

// errChecksFailed is returned after the summary when any check failed.
var errChecksFailed = errors.New("corpus checks failed")

func init() {
	checkCmd.Flags().StringSliceVar(&onlyChecks, "only", nil, "Run only these checks ("+strings.Join(suite.Names(), ", ")+")")
	checkCmd.Flags().BoolVar(&withBuild, "with-build", false, "Also build and test every project")
	checkCmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "Concurrent formatter invocations")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check [root]",
	Short: "Run the corpus checks",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := rootArg(args)
		logger := setupLogger(logLevel)

		policy, err := loadPolicy(root)
		if err != nil {
			return err
		}
		if withBuild {
			policy.Build.Enabled = true
		}

		c, err := openCorpus(root, policy)
		if err != nil {
			return err
		}
		logger.WithField("root", c.Root).Debug("corpus opened")

		s := suite.New(policy, c, logger, suite.WithJobs(jobs))
		report, err := s.Run(cmd.Context(), onlyChecks...)
		if report != nil {
			printReport(cmd.OutOrStdout(), report)
		}
		if err != nil {
			return err
		}
		if report.Failed() {
			return errChecksFailed
		}
		return nil
	},
}

func printReport(w io.Writer, r *suite.Report) {
	for _, o := range r.Outcomes {
		status := "PASS"
		detail := o.Detail
		if !o.Passed() {
			status = "FAIL"
			detail = o.Err.Error()
		}
		_, _ = fmt.Fprintf(w, "%s  %-22s %8s  %s\n", status, o.Check, o.Duration.Round(time.Millisecond), detail)
	}
}
