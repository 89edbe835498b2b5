package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/microcrawl/internal/config"
	"github.com/nao1215/microcrawl/internal/crawler"
	"github.com/nao1215/microcrawl/internal/database"
	seclog "github.com/nao1215/microcrawl/internal/log"
	"github.com/nao1215/microcrawl/internal/model"
	"github.com/nao1215/microcrawl/internal/pattern"
	"github.com/nao1215/microcrawl/internal/pipeline"
	"github.com/nao1215/microcrawl/internal/report"
	"github.com/nao1215/microcrawl/internal/transport"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url...]",
		Short: "Crawl from seed URLs and report pattern matches",
		Long: `Crawl visits pages breadth-first from each seed URL, at most --max-requests
fetches per seed, and matches the pattern against the rendered text of every
element. When a value is found both in an element and in one of its
descendants, only the innermost element is reported.

Examples:
  # Find e-mail addresses on a site
  microcrawl crawl -p email https://example.com

  # Use a custom regular expression and a larger budget
  microcrawl crawl --regex 'ticket-[0-9]+' -n 500 https://example.com

  # Crawl an onion service through an embedded Tor daemon
  microcrawl crawl --tor -p bitcoin http://exampleonion.onion

  # Crawl several seeds, two at a time, and write a Markdown report
  microcrawl crawl -p email -b 2 --markdown -o report.md https://a.example https://b.example

Configuration file (.microcrawl) example:
  defaults:
    pattern: email
    maxRequests: 50
  sites:
    example.com:
      cookie: "session_id=abc123"
      ignorePatterns:
        - "/logout*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Pattern flags
	cmd.Flags().StringP("pattern", "p", "",
		"Built-in pattern preset (see 'microcrawl presets')")
	cmd.Flags().StringP("regex", "r", "",
		"Custom regular expression (overrides --pattern)")

	// Crawl behavior flags
	cmd.Flags().IntP("max-requests", "n", config.DefaultMaxRequests,
		"Maximum number of fetches per seed, failed ones included")
	cmd.Flags().Bool("same-host", false,
		"Only follow links on the seed's host")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum number of body bytes read per page")

	// Transport flags
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:9050)")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and crawl through it")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Batch crawling flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of seeds crawled concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .microcrawl in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// Storage flags
	cmd.Flags().Bool("no-save", false,
		"Do not store the results in the database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the results database")

	// Logging flags
	cmd.Flags().Bool("log-json", false,
		"Write log records to stderr as JSON")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogJSON)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the
// configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.Pattern, err = flags.GetString("pattern"); err != nil {
		return nil, err
	}
	if cfg.Regex, err = flags.GetString("regex"); err != nil {
		return nil, err
	}
	if cfg.MaxRequests, err = flags.GetInt("max-requests"); err != nil {
		return nil, err
	}
	if cfg.SameHostOnly, err = flags.GetBool("same-host"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.LogJSON, err = flags.GetBool("log-json"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	// An explicitly named config file must exist; the default locations
	// are optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}

	cfg.Seeds = args
	return cfg, nil
}

// setupLogger creates a structured logger that redacts secrets.
func setupLogger(w io.Writer, verbose, jsonFormat bool) *slog.Logger {
	if jsonFormat {
		return seclog.NewSecureJSONLogger(w, verbose)
	}
	return seclog.NewSecureLogger(w, verbose)
}

// crawlTarget is a normalized seed with its resolved settings.
type crawlTarget struct {
	seed     string
	settings config.SiteConfig
	pattern  *pattern.Pattern
}

// resolveTargets normalizes every seed and compiles its pattern, so that
// configuration mistakes surface before the first request.
func resolveTargets(cfg *config.Config) (map[string]crawlTarget, []string, error) {
	targets := make(map[string]crawlTarget, len(cfg.Seeds))
	seeds := make([]string, 0, len(cfg.Seeds))
	for _, raw := range cfg.Seeds {
		seed, err := crawler.NormalizeSeed(raw)
		if err != nil {
			return nil, nil, err
		}
		if _, dup := targets[seed]; dup {
			continue
		}
		settings := cfg.SettingsFor(seed)
		p, err := pattern.Resolve(settings.Pattern, settings.Regex)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid pattern for %s: %w", seed, err)
		}
		targets[seed] = crawlTarget{seed: seed, settings: settings, pattern: p}
		seeds = append(seeds, seed)
	}
	return targets, seeds, nil
}

// runCrawl crawls every seed and writes one report per seed.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	targets, seeds, err := resolveTargets(cfg)
	if err != nil {
		return err
	}

	logger.Info("starting crawl",
		"seeds", seeds,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.ResultDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Debug("database opened", "path", db.Path())
	}

	newClient, stop, err := clientFactory(ctx, cfg, logger, stderr)
	if err != nil {
		return err
	}
	defer stop()

	output, closeOutput, err := openOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOutput()
	writer := newReportWriter(cfg, output)

	factory := func(seed string) (*pipeline.Pipeline, error) {
		t, ok := targets[seed]
		if !ok {
			return nil, fmt.Errorf("unknown seed %s", seed)
		}
		return createPipelineForTarget(t, cfg, newClient, db, logger)
	}

	var mu sync.Mutex
	emit := func(r *model.CrawlReport) {
		mu.Lock()
		defer mu.Unlock()
		if _, err := writer.Write(r); err != nil {
			logger.Error("report failed", "seed", r.Seed, "error", err)
		}
	}

	startTime := time.Now()
	if len(seeds) > 1 && cfg.BatchSize > 1 {
		fmt.Fprintf(stderr, "Crawling %d seeds (concurrency: %d)...\n", len(seeds), cfg.BatchSize)
		bp := pipeline.NewBatchProcessor(factory,
			pipeline.WithConcurrency(cfg.BatchSize),
			pipeline.WithBatchLogger(logger),
		)
		err = bp.ProcessBatchWithCallback(ctx, seeds, func(r *model.CrawlReport, index int) {
			fmt.Fprintf(stderr, "[%d/%d] Crawl finished: %s\n", index+1, len(seeds), r.Seed)
			emit(r)
		})
	} else {
		err = runSequential(ctx, seeds, factory, emit, stderr)
	}
	fmt.Fprintf(stderr, "Finished in %s\n", time.Since(startTime).Round(time.Millisecond))
	return err
}

// runSequential crawls the seeds one at a time.
func runSequential(ctx context.Context, seeds []string, factory pipeline.Factory, emit func(*model.CrawlReport), stderr io.Writer) error {
	for _, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintf(stderr, "Crawling %s...\n", seed)
		r := model.NewCrawlReport(seed)
		p, err := factory(seed)
		if err != nil {
			return err
		}
		if err := p.Execute(ctx, r); err != nil {
			fmt.Fprintf(stderr, "Crawl error for %s: %v\n", seed, err)
		}
		emit(r)
	}
	return ctx.Err()
}

// createPipelineForTarget creates a pipeline with the target's settings.
func createPipelineForTarget(t crawlTarget, cfg *config.Config, newClient pipeline.ClientFactory, db *database.ResultDB, logger *slog.Logger) (*pipeline.Pipeline, error) {
	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	}

	configOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelinePattern(t.pattern),
		pipeline.WithPipelineMaxRequests(t.settings.MaxRequests),
		pipeline.WithPipelineSameHostOnly(t.settings.SameHostOnly()),
		pipeline.WithPipelineUserAgent(cfg.UserAgent),
		pipeline.WithPipelineMaxBodySize(cfg.MaxBodySize),
	}
	if t.settings.Cookie != "" {
		configOpts = append(configOpts, pipeline.WithPipelineCookie(t.settings.Cookie))
	}
	if len(t.settings.Headers) > 0 {
		configOpts = append(configOpts, pipeline.WithPipelineHeaders(t.settings.Headers))
	}
	if len(t.settings.IgnorePatterns) > 0 {
		configOpts = append(configOpts, pipeline.WithPipelineIgnorePatterns(t.settings.IgnorePatterns))
	}
	if len(t.settings.FollowPatterns) > 0 {
		configOpts = append(configOpts, pipeline.WithPipelineFollowPatterns(t.settings.FollowPatterns))
	}

	return pipeline.DefaultPipeline(newClient, db, pipelineOpts, configOpts...)
}

// clientFactory returns the HTTP client constructor for the configured
// transport and a function that releases it.
func clientFactory(ctx context.Context, cfg *config.Config, logger *slog.Logger, stderr io.Writer) (pipeline.ClientFactory, func(), error) {
	if !cfg.UseTor {
		return func(cookie string, headers map[string]string) (*http.Client, error) {
			return transport.NewHTTPClient(transport.Options{
				Timeout:      cfg.Timeout,
				ProxyAddress: cfg.ProxyAddress,
				Cookie:       cookie,
				Headers:      headers,
			})
		}, func() {}, nil
	}

	fmt.Fprintln(stderr, "Starting embedded Tor daemon...")
	fmt.Fprintf(stderr, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embeddedTor := transport.NewEmbeddedTor(transport.WithStartupTimeout(cfg.TorStartupTimeout))
	if err := embeddedTor.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}
	logger.Info("embedded Tor daemon started", "socksAddr", embeddedTor.SocksAddr())

	stop := func() {
		logger.Info("stopping embedded Tor daemon...")
		if err := embeddedTor.Stop(); err != nil {
			logger.Error("failed to stop embedded Tor", "error", err)
		}
	}
	return func(cookie string, headers map[string]string) (*http.Client, error) {
		return embeddedTor.NewHTTPClient(transport.Options{
			Timeout: cfg.Timeout,
			Cookie:  cookie,
			Headers: headers,
		})
	}, stop, nil
}

// openOutput returns the report destination: the named file, or stdout.
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports quote page text and may contain personal data.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil //nolint:errcheck // written reports are already flushed
}

// newReportWriter selects the report format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}
