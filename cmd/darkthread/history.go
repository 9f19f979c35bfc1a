package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/darkthread/internal/config"
	"github.com/nao1215/darkthread/internal/database"
	"github.com/nao1215/darkthread/internal/model"
	"github.com/nao1215/darkthread/internal/pii"
	"github.com/nao1215/darkthread/internal/report"
	"github.com/spf13/cobra"
)

// historyTitleWidth bounds the thread title column.
const historyTitleWidth = 40

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [thread-url]",
		Short: "Show previously scraped threads",
		Long: `History reads the run database written by 'darkthread scrape'.

Without arguments it lists every scraped thread URL. With a thread URL it
lists the runs for that thread, newest first, with the PII totals across
those runs. --show prints the stored report of one run.

Examples:
  # List scraped threads
  darkthread history

  # List runs of one thread
  darkthread history http://forumxxxx.onion/threads/discounts.3499/

  # Print the Markdown report of run 7
  darkthread history --show 7 --markdown

  # Machine-readable output
  darkthread history --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-sources", "L", false,
		"List every scraped thread URL (default without arguments)")
	cmd.Flags().Int64P("show", "s", 0,
		"Print the stored report of the run with this ID")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown when showing a report (mutually exclusive with --json)")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// historyOptions are the parsed flags of the history command.
type historyOptions struct {
	sourceURL   string
	listSources bool
	showID      int64
	jsonOutput  bool
	markdown    bool
	dbDir       string
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryFlags(cmd, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	opt := database.DefaultOptions()
	opt.CreateIfNotExists = false
	db, err := database.Open(opts.dbDir, opt)
	if errors.Is(err, database.ErrNotFound) {
		fmt.Fprintf(out, "No history database found in %s\n", opts.dbDir)
		fmt.Fprintln(out, "\nUse 'darkthread scrape <thread-url>' to scrape a thread.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case opts.showID > 0:
		return showRun(ctx, db, out, opts)
	case opts.sourceURL != "" && !opts.listSources:
		return listRuns(ctx, db, out, opts)
	default:
		return listSources(ctx, db, out, opts)
	}
}

// parseHistoryFlags reads and checks the history flags.
func parseHistoryFlags(cmd *cobra.Command, args []string) (historyOptions, error) {
	var (
		opts historyOptions
		err  error
	)
	if len(args) > 0 {
		opts.sourceURL = args[0]
	}
	if opts.listSources, err = cmd.Flags().GetBool("list-sources"); err != nil {
		return opts, err
	}
	if opts.showID, err = cmd.Flags().GetInt64("show"); err != nil {
		return opts, err
	}
	if opts.jsonOutput, err = cmd.Flags().GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return opts, err
	}
	if opts.dbDir, err = cmd.Flags().GetString("db-dir"); err != nil {
		return opts, err
	}

	if opts.jsonOutput && opts.markdown {
		return opts, config.ErrConflictingReportFormats
	}
	if opts.showID < 0 {
		return opts, fmt.Errorf("invalid run ID: %d", opts.showID)
	}
	if opts.dbDir == "" {
		return opts, config.ErrEmptyDBDir
	}
	return opts, nil
}

// listSources prints every scraped thread URL.
func listSources(ctx context.Context, db *database.ThreadDB, out io.Writer, opts historyOptions) error {
	sources, err := db.ListSources(ctx)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		if sources == nil {
			sources = []database.SourceSummary{}
		}
		_, err := report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(sources)
		return err
	}

	if len(sources) == 0 {
		fmt.Fprintln(out, "No scraped threads found in the database.")
		fmt.Fprintln(out, "\nUse 'darkthread scrape <thread-url>' to scrape a thread.")
		return nil
	}

	fmt.Fprintf(out, "Scraped threads (%d):\n\n", len(sources))
	for _, s := range sources {
		fmt.Fprintf(out, "  • %s\n", s.SourceURL)
		fmt.Fprintf(out, "      %d %s, %d stored posts, last fetched %s\n",
			s.Runs, plural(s.Runs, "run", "runs"), s.StoredPosts, humanize.Time(s.LastFetched))
	}
	fmt.Fprintln(out, "\nUse 'darkthread history <thread-url>' to see the runs of a thread.")
	return nil
}

// runHistory is the JSON shape of listRuns.
type runHistory struct {
	SourceURL string                `json:"sourceUrl"`
	Runs      []database.RunSummary `json:"runs"`
	PIITotals map[string]int        `json:"piiTotals"`
}

// listRuns prints the runs of one thread.
func listRuns(ctx context.Context, db *database.ThreadDB, out io.Writer, opts historyOptions) error {
	runs, err := db.ListRuns(ctx, opts.sourceURL)
	if err != nil {
		return err
	}
	totals, err := db.PIITotals(ctx, opts.sourceURL)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		if runs == nil {
			runs = []database.RunSummary{}
		}
		_, err := report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(runHistory{
			SourceURL: opts.sourceURL,
			Runs:      runs,
			PIITotals: totals,
		})
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No runs found for %s\n", opts.sourceURL)
		fmt.Fprintln(out, "\nUse 'darkthread history' to list scraped threads.")
		return nil
	}

	fmt.Fprintf(out, "Runs for %s (%d):\n\n", opts.sourceURL, len(runs))
	fmt.Fprintf(out, "  %-6s  %-20s  %6s  %6s  %8s  %s\n", "ID", "Fetched", "Posts", "Users", "PII", "Title")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 80))
	for _, r := range runs {
		fmt.Fprintf(out, "  %-6d  %-20s  %6d  %6d  %8d  %s\n",
			r.ID,
			r.FetchedAt.Format("2006-01-02 15:04:05"),
			r.TotalPosts,
			r.UniqueUsers,
			r.PostsWithPII,
			truncate(r.ThreadTitle, historyTitleWidth),
		)
	}

	fmt.Fprintf(out, "\nPII across all runs: %s\n", formatPIITotals(totals))
	fmt.Fprintln(out, "\nUse 'darkthread history --show <id>' to print a stored report.")
	return nil
}

// showRun prints the stored report of one run.
func showRun(ctx context.Context, db *database.ThreadDB, out io.Writer, opts historyOptions) error {
	stored, err := db.GetRunReport(ctx, opts.showID)
	if err != nil {
		return err
	}

	var w report.Writer
	switch {
	case opts.jsonOutput:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case opts.markdown:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out, report.WithVerbose(true))
	}
	_, err = w.Write(stored)
	return err
}

// formatPIITotals formats category totals in canonical order.
func formatPIITotals(totals map[string]int) string {
	var parts []string
	for _, category := range model.CategoryOrder {
		if n := totals[category]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", pii.Label(category), n))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
