package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentic-research/corpuscheck/api"
	"github.com/agentic-research/corpuscheck/internal/config"
	"github.com/agentic-research/corpuscheck/internal/corpus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// defaultRoot is the corpus root used when none is given.
const defaultRoot = "examples"

var (
	policyPath string
	logLevel   string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&policyPath, "policy", "p", "", "Path to policy file (default <root>/"+config.DefaultFileName+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

var rootCmd = &cobra.Command{
	Use:           "corpuscheck",
	Short:         "Verify that a corpus of example projects shares one configuration baseline",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. An interrupt cancels any running
// formatter or build subprocess.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func setupLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	return logger
}

func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return defaultRoot
}

func loadPolicy(root string) (*api.Policy, error) {
	if policyPath != "" {
		return config.Load(policyPath)
	}
	return config.LoadFromDir(root)
}

func openCorpus(root string, p *api.Policy) (*corpus.Corpus, error) {
	return corpus.Open(root, p.Categories,
		corpus.WithSkipDirs(p.SkipDirs...),
		corpus.WithCanonical(p.Canonical),
		corpus.WithWorkspaceMarker(p.Artifacts.Toolchain),
	)
}
