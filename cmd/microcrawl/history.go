package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/microcrawl/internal/config"
	"github.com/nao1215/microcrawl/internal/crawler"
	"github.com/nao1215/microcrawl/internal/database"
	"github.com/nao1215/microcrawl/internal/model"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [seed-url]",
		Short: "List stored crawl runs",
		Long: `History lists the crawl runs stored in the results database, newest first.

Examples:
  # List every stored run
  microcrawl history

  # List the runs of one seed
  microcrawl history https://example.com

  # List every seed that has been crawled
  microcrawl history --seeds

  # Find the runs that found a value
  microcrawl history --value alice@example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("seeds", "s", false, "List crawled seeds instead of runs")
	cmd.Flags().String("value", "", "List the runs that found this value")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the results database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	// Validate arguments before opening the database.
	var seed string
	if len(args) == 1 {
		var err error
		seed, err = crawler.NormalizeSeed(args[0])
		if err != nil {
			return err
		}
	}

	listSeeds, err := cmd.Flags().GetBool("seeds")
	if err != nil {
		return err
	}
	value, err := cmd.Flags().GetString("value")
	if err != nil {
		return err
	}

	db, err := openResultDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	switch {
	case listSeeds:
		return listCrawledSeeds(ctx, db, out)
	case value != "":
		return listSightings(ctx, db, out, value)
	default:
		return listRuns(ctx, db, out, seed)
	}
}

// openResultDB opens the existing results database named by --db-dir.
func openResultDB(cmd *cobra.Command) (*database.ResultDB, error) {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func listCrawledSeeds(ctx context.Context, db *database.ResultDB, out io.Writer) error {
	seeds, err := db.ListSeeds(ctx)
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		fmt.Fprintln(out, "No crawled seeds found in the database.")
		fmt.Fprintln(out, "\nUse 'microcrawl crawl <seed-url>' to crawl a site.")
		return nil
	}

	fmt.Fprintf(out, "Crawled seeds (%d):\n\n", len(seeds))
	for _, s := range seeds {
		fmt.Fprintf(out, "  • %s\n", s)
	}
	fmt.Fprintln(out, "\nUse 'microcrawl history <seed-url>' to see the runs of a seed.")
	return nil
}

func listRuns(ctx context.Context, db *database.ResultDB, out io.Writer, seed string) error {
	runs, err := db.ListRuns(ctx, seed)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		if seed != "" {
			fmt.Fprintf(out, "No crawl history found for %s\n", seed)
		} else {
			fmt.Fprintln(out, "No crawl history found.")
		}
		return nil
	}

	fmt.Fprintf(out, "Crawl history (%d runs):\n\n", len(runs))
	fmt.Fprintf(out, "  %-6s  %-19s  %-10s  %8s  %8s  %7s  %s\n",
		"ID", "Date", "Pattern", "Requests", "Failures", "Values", "Seed")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 90))

	for _, r := range runs {
		status := ""
		if r.Error != "" {
			status = " (interrupted)"
		}
		fmt.Fprintf(out, "  %-6d  %-19s  %-10s  %8d  %8d  %7d  %s%s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.PatternName,
			r.RequestsIssued,
			r.FetchFailures,
			r.UniqueMatches,
			r.Seed,
			status,
		)
	}

	fmt.Fprintln(out, "\nUse 'microcrawl show <id>' to display a stored run.")
	return nil
}

func listSightings(ctx context.Context, db *database.ResultDB, out io.Writer, value string) error {
	sightings, err := db.FindValue(ctx, value)
	if err != nil {
		return err
	}
	if len(sightings) == 0 {
		fmt.Fprintf(out, "%s was not found in any stored run.\n", value)
		return nil
	}

	fmt.Fprintf(out, "%s was found in %d run(s):\n\n", value, len(sightings))
	for _, s := range sightings {
		fmt.Fprintf(out, "  [%d] %s  %s\n", s.RunID, s.StartedAt.Local().Format("2006-01-02 15:04:05"), s.Seed)
		if s.FirstContext != "" {
			fmt.Fprintf(out, "       %s\n", s.FirstContext)
		}
	}
	return nil
}

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Display a stored crawl run",
		Long: `Show renders a crawl run stored in the results database in any report format.

Examples:
  # Show run 3 as text
  microcrawl show 3

  # Export run 3 as JSON
  microcrawl show --json 3 > run3.json

  # Show the latest run of a seed
  microcrawl show --latest https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runShowCmd,
	}

	cmd.Flags().BoolP("json", "j", false, "Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false, "Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().BoolP("latest", "l", false, "Treat the argument as a seed URL and show its latest run")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the results database")

	return cmd
}

// runShowCmd executes the show command.
func runShowCmd(cmd *cobra.Command, args []string) error {
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}
	latest, err := cmd.Flags().GetBool("latest")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var (
		id   int64
		seed string
	)
	if latest {
		if seed, err = crawler.NormalizeSeed(args[0]); err != nil {
			return err
		}
	} else if id, err = strconv.ParseInt(args[0], 10, 64); err != nil || id <= 0 {
		return fmt.Errorf("invalid run id %q (use 'microcrawl history' to list runs)", args[0])
	}

	db, err := openResultDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	var stored *model.CrawlReport
	if latest {
		stored, err = db.LatestReport(cmd.Context(), seed)
	} else {
		stored, err = db.GetReport(cmd.Context(), id)
	}
	if errors.Is(err, database.ErrRunNotFound) {
		return fmt.Errorf("%w (use 'microcrawl history' to list runs)", err)
	}
	if err != nil {
		return err
	}

	cfg := &config.Config{JSONReport: jsonOutput, MarkdownReport: markdownOutput, Verbose: getVerboseFlag(cmd)}
	_, err = newReportWriter(cfg, cmd.OutOrStdout()).Write(stored)
	return err
}

// NewDeleteCmd creates the delete command.
func NewDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <run-id>...",
		Short: "Remove stored crawl runs",
		Long: `Delete removes crawl runs, with their pages and values, from the results database.

Examples:
  # Remove run 3
  microcrawl delete 3

  # Remove several runs
  microcrawl delete 3 4 7`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDeleteCmd,
	}

	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the results database")

	return cmd
}

// runDeleteCmd executes the delete command.
func runDeleteCmd(cmd *cobra.Command, args []string) error {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid run id %q (use 'microcrawl history' to list runs)", arg)
		}
		ids = append(ids, id)
	}

	db, err := openResultDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, id := range ids {
		if err := db.DeleteRun(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %d\n", id)
	}
	return nil
}
