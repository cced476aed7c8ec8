package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var canonicalOnly bool

func init() {
	listCmd.Flags().BoolVar(&canonicalOnly, "canonical", false, "List one representative per category")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list [root]",
	Short: "List the discovered projects",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := rootArg(args)
		policy, err := loadPolicy(root)
		if err != nil {
			return err
		}
		c, err := openCorpus(root, policy)
		if err != nil {
			return err
		}
		for p, err := range c.Projects(canonicalOnly) {
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.Category, p.Path)
		}
		return nil
	},
}
