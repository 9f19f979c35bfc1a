package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/darkthread/internal/model"
	"github.com/nao1215/darkthread/internal/pii"
)

const ruleWidth = 53

// SimpleWriter prints the short summary shown at the end of a scrape.
type SimpleWriter struct {
	baseWriter

	// verbose adds the per-category PII counts.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the per-category PII breakdown.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in plain text.
func (w *SimpleWriter) Write(report *model.Report) (int, error) {
	var sb strings.Builder

	w.writeSummary(&sb, report)
	w.writeFiles(&sb, report.Files)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.Report) {
	s := report.Summary

	sb.WriteString("\nFINAL REPORT SUMMARY:\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  Source:          %s\n", report.Metadata.SourceURL)
	fmt.Fprintf(sb, "  Thread:          %s\n", orNA(s.ThreadTitle))
	fmt.Fprintf(sb, "  Posts collected: %d\n", s.TotalPosts)
	fmt.Fprintf(sb, "  Unique users:    %d\n", s.UniqueUsers)
	fmt.Fprintf(sb, "  Links found:     %d\n", s.TotalLinks)
	fmt.Fprintf(sb, "  Attachments:     %d\n", s.TotalAttachments)
	fmt.Fprintf(sb, "  Posts with PII:  %d\n", report.PIIAnalysis.PostsWithPII)
	fmt.Fprintf(sb, "  Page size:       %s\n", humanize.Bytes(uint64(max(report.Metadata.ContentLength, 0))))

	if w.verbose {
		for _, r := range orderedCategories(report.PIIAnalysis.PIITypes) {
			fmt.Fprintf(sb, "    %-15s %d\n", pii.Label(r.Category)+":", r.Count)
		}
	}

	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeFiles(sb *strings.Builder, files model.ArtifactPaths) {
	if files == (model.ArtifactPaths{}) {
		return
	}

	sb.WriteString("Generated files:\n")
	for _, f := range []struct{ label, path string }{
		{"Raw HTML", files.RawHTML},
		{"JSON Data", files.ParsedJSON},
		{"JSON Report", files.ReportJSON},
		{"Markdown Report", files.ReportMarkdown},
	} {
		if f.path != "" {
			fmt.Fprintf(sb, "  - %s: %s\n", f.label, f.path)
		}
	}
	sb.WriteString("\n")
}
