package main

import (
	"fmt"

	"github.com/nao1215/microcrawl/internal/pattern"
	"github.com/spf13/cobra"
)

// NewPresetsCmd creates the presets command.
func NewPresetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List built-in patterns",
		Long: `List the built-in patterns that can be passed to 'microcrawl crawl --pattern'
or set as 'pattern' in the configuration file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			showSource, err := cmd.Flags().GetBool("source")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, p := range pattern.Presets() {
				fmt.Fprintf(out, "  %-10s %s\n", p.Name, p.Description)
				if showSource {
					fmt.Fprintf(out, "  %-10s %s\n", "", p.Source)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolP("source", "s", false, "Also print the regular expression of each preset")

	return cmd
}
