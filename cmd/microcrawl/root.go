package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for microcrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "microcrawl",
		Short: "Bounded web crawler that extracts pattern matches with context",
		Long: `microcrawl visits the HTML pages reachable from a seed URL, breadth-first and
within a request budget, and matches a regular expression against the text of
every element. Each distinct value is reported once, with the text of the
element it was found in and of the elements around it.

Built-in patterns cover e-mail addresses, onion addresses and cryptocurrency
addresses; any regular expression can be used instead.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewPresetsCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewDeleteCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
