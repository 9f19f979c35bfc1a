package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/darkthread/internal/config"
	"github.com/nao1215/darkthread/internal/database"
	"github.com/nao1215/darkthread/internal/fetch"
	"github.com/nao1215/darkthread/internal/forum"
	dtlog "github.com/nao1215/darkthread/internal/log"
	"github.com/nao1215/darkthread/internal/pipeline"
	"github.com/nao1215/darkthread/internal/report"
	"github.com/nao1215/darkthread/internal/store"
	"github.com/nao1215/darkthread/internal/tor"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

// errScrapeFailed is returned when at least one target failed.
var errScrapeFailed = errors.New("scrape failed")

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [thread-url...]",
		Short: "Scrape forum threads through Tor",
		Long: `Scrape fetches each thread page through Tor and extracts:
- Thread title, starter and start date
- Posts with author, user title, date, text and reactions
- Unique users, links and attachments
- PII found in each post (e-mail, phone, SSN, card, IP, passport, crypto)

For every page the raw HTML is archived under <output>/data together with
the parsed document, and JSON and Markdown reports are written to
<output>/reports. Runs are recorded in a history database unless --no-db
is given. A page whose content was already processed in the same
invocation is skipped.

Examples:
  # Scrape a single thread
  darkthread scrape http://forumxxxx.onion/threads/discounts.3499/

  # Scrape the threads listed in a file, three at a time
  darkthread scrape --list threads.txt --batch 3

  # Use the Tor Browser proxy and print the JSON report
  darkthread scrape --proxy 127.0.0.1:9150 --json http://forumxxxx.onion/threads/1/

  # Start an embedded Tor daemon
  darkthread scrape --embedded-tor http://forumxxxx.onion/threads/1/`,
		Args: cobra.ArbitraryArgs,
		RunE: runScrapeCmd,
	}

	// Targets
	cmd.Flags().StringP("list", "l", "",
		"File with one thread URL per line (# starts a comment)")

	// Tor connection flags
	cmd.Flags().StringP("proxy", "p", config.DefaultTorProxyAddress,
		"Tor SOCKS5 proxy address; the Tor Browser port is tried when the default is unreachable")
	cmd.Flags().Bool("embedded-tor", false,
		"Start an embedded Tor daemon instead of using a running proxy")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Request flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().IntP("retries", "r", config.DefaultMaxAttempts,
		"Maximum fetch attempts per thread")
	cmd.Flags().Duration("retry-delay", config.DefaultRetryDelay,
		"Base delay between attempts (grows linearly)")
	cmd.Flags().DurationP("delay", "d", config.DefaultRequestDelay,
		"Minimum delay between requests")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header")
	cmd.Flags().Int64("max-body", config.DefaultMaxBodySize,
		"Maximum page size in bytes")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of threads scraped concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Site configuration file (default: .darkthread in current or home directory)")

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Directory for captures and reports")
	cmd.Flags().BoolP("json", "j", false,
		"Print the JSON report instead of the summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the Markdown report instead of the summary (mutually exclusive with --json)")
	cmd.Flags().Bool("no-db", false,
		"Do not record runs in the history database")
	cmd.Flags().Bool("log-json", false,
		"Write log records to stderr as JSON")

	return cmd
}

// runScrapeCmd executes the scrape command.
func runScrapeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logJSON, _ := cmd.Flags().GetBool("log-json") //nolint:errcheck // flag is always defined
	logger := dtlog.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	if logJSON {
		logger = dtlog.NewSecureJSONLogger(cmd.ErrOrStderr(), cfg.Verbose)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, cleanup, err := connectTor(ctx, cfg, logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer cleanup()

	s := &scraper{
		cfg:    cfg,
		logger: logger,
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
		newHTTPClient: func(site config.SiteConfig) *http.Client {
			return client.HTTPClientWithConfig(site.Cookie, site.Headers)
		},
	}
	return s.run(ctx)
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

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	cfg.TorProxyAddress, err = flags.GetString("proxy")
	if err != nil {
		return nil, err
	}
	if flags.Changed("proxy") {
		// An explicit proxy is used as given.
		cfg.FallbackProxyAddresses = nil
	}

	if cfg.UseEmbeddedTor, err = flags.GetBool("embedded-tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.MaxAttempts, err = flags.GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = flags.GetDuration("retry-delay"); err != nil {
		return nil, err
	}
	if cfg.RequestDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.SiteConfigs, err = loadSiteConfigs(cfg.ConfigFilePath); err != nil {
		return nil, err
	}

	targets := append([]string(nil), args...)
	listPath, err := flags.GetString("list")
	if err != nil {
		return nil, err
	}
	if listPath != "" {
		listed, err := readTargetList(listPath)
		if err != nil {
			return nil, err
		}
		targets = append(targets, listed...)
	}
	cfg.Targets = targets

	return cfg, nil
}

// loadSiteConfigs loads the site file. A missing file is only an error
// when its path was given explicitly.
func loadSiteConfigs(explicitPath string) (*config.File, error) {
	path := config.FindConfigFile(explicitPath)
	if path == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicitPath)
		}
		return &config.File{Sites: make(map[string]config.SiteConfig)}, nil
	}

	sites, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return sites, nil
}

// readTargetList reads one URL per line, skipping blank lines and
// comments.
func readTargetList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided list path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open target list: %w", err)
	}
	defer f.Close()

	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read target list: %w", err)
	}
	return targets, nil
}

// connectTor returns a Tor client and a cleanup function. It starts an
// embedded daemon when configured, otherwise it probes the proxy
// candidates in order.
func connectTor(ctx context.Context, cfg *config.Config, logger *slog.Logger, progress io.Writer) (*tor.Client, func(), error) {
	if !cfg.UseEmbeddedTor {
		client, err := tor.SelectProxy(ctx, cfg.ProxyCandidates(), cfg.Timeout, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("%w (start Tor or use --embedded-tor)", err)
		}
		return client, func() {}, nil
	}

	fmt.Fprintln(progress, "Starting embedded Tor daemon...")
	fmt.Fprintf(progress, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embeddedTor := tor.NewEmbeddedTor(tor.WithStartupTimeout(cfg.TorStartupTimeout))
	if err := embeddedTor.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}
	stop := func() {
		logger.Info("stopping embedded Tor daemon")
		if err := embeddedTor.Stop(); err != nil {
			logger.Error("failed to stop embedded Tor", "error", err)
		}
	}

	logger.Info("embedded Tor daemon started", "socksAddr", embeddedTor.SocksAddr())

	client, err := embeddedTor.NewClient(cfg.Timeout)
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
	}
	if status := client.CheckConnection(ctx); status != tor.ProxyStatusOK {
		stop()
		return nil, nil, fmt.Errorf("embedded Tor proxy check failed: %w", status.Err())
	}
	return client, stop, nil
}

// scraper runs a batch of targets once a transport is available.
type scraper struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
	errOut io.Writer

	// newHTTPClient returns the client for a host's site settings.
	newHTTPClient func(site config.SiteConfig) *http.Client
}

// run scrapes every target and prints one result per target.
func (s *scraper) run(ctx context.Context) error {
	cfg := s.cfg

	for _, target := range cfg.Targets {
		if _, err := tor.ValidateTarget(target); err != nil {
			return fmt.Errorf("invalid thread URL %q: %w", target, err)
		}
	}

	st, err := store.New(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to open output directory: %w", err)
	}

	var history pipeline.History
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		s.logger.Debug("database opened", "path", db.Path())
		history = db
	}

	// One limiter for the whole batch keeps the request spacing global.
	limiter := fetch.NewLimiter(cfg.RequestDelay)
	components := pipeline.Components{
		Store:       st,
		Seen:        pipeline.NewSeen(),
		Extractor:   forum.NewExtractor(forum.WithLogger(s.logger)),
		Synthesizer: report.NewSynthesizer(),
		History:     history,
		Logger:      s.logger,
	}

	bp := pipeline.NewBatchProcessor(
		func(target string) *pipeline.Pipeline {
			c := components
			c.Fetcher = s.newFetcher(target, limiter)
			return pipeline.DefaultPipeline(c)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(s.logger),
	)

	if len(cfg.Targets) > 1 {
		fmt.Fprintf(s.errOut, "Scraping %d threads (concurrency: %d)...\n\n", len(cfg.Targets), cfg.BatchSize)
	}
	startTime := time.Now()

	var (
		mu     sync.Mutex
		failed int
	)
	err = bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(run *pipeline.Run, index int) {
		mu.Lock()
		defer mu.Unlock()

		if run.Failed() {
			failed++
		}
		if len(cfg.Targets) > 1 {
			fmt.Fprintf(s.errOut, "[%d/%d] %s\n", index+1, len(cfg.Targets), run.Target)
		}
		if err := s.printRun(run); err != nil {
			s.logger.Error("failed to print report", "url", run.Target, "error", err)
		}
	})

	fmt.Fprintf(s.errOut, "\nDone in %s\n", time.Since(startTime).Round(time.Millisecond))

	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d threads", errScrapeFailed, failed, len(cfg.Targets))
	}
	return nil
}

// newFetcher builds the fetcher for target with its site settings.
func (s *scraper) newFetcher(target string, limiter *rate.Limiter) *fetch.Fetcher {
	cfg := s.cfg
	site := cfg.SiteConfigs.GetSiteConfig(target)

	userAgent := cfg.UserAgent
	if site.UserAgent != "" {
		userAgent = site.UserAgent
	}

	return fetch.New(s.newHTTPClient(site),
		fetch.WithRetryPolicy(fetch.RetryPolicy{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.RetryDelay,
		}),
		fetch.WithLimiter(limiter),
		fetch.WithUserAgent(userAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithLogger(s.logger),
	)
}

// printRun writes the outcome of one run in the requested format.
func (s *scraper) printRun(run *pipeline.Run) error {
	switch {
	case run.Failed():
		fmt.Fprintf(s.errOut, "Scrape error for %s: %v\n", run.Target, run.Err)
		return nil
	case run.Duplicate:
		fmt.Fprintf(s.out, "Skipped %s: page content already processed\n", run.Target)
		return nil
	case run.Report == nil:
		return nil
	}

	for _, warning := range run.Warnings {
		fmt.Fprintf(s.errOut, "Warning for %s: %v\n", run.Target, warning)
	}

	var w report.Writer
	switch {
	case s.cfg.JSONReport:
		w = report.NewJSONWriter(s.out, report.WithPrettyPrint())
	case s.cfg.MarkdownReport:
		w = report.NewMarkdownWriter(s.out)
	default:
		w = report.NewSimpleWriter(s.out, report.WithVerbose(s.cfg.Verbose))
	}
	_, err := w.Write(run.Report)
	return err
}
