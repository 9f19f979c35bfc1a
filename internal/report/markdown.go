package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/darkthread/internal/model"
	"github.com/nao1215/darkthread/internal/pii"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

const (
	// MaxNarrativePosts is how many posts the narrative report prints.
	MaxNarrativePosts = 5
	// MaxNarrativeLinks is how many links the narrative report prints.
	MaxNarrativeLinks = 10

	narrativeTitle = "Darknet Scraping Report"
	timeLayout     = time.RFC3339
)

// scraped escapes Markdown metacharacters in text taken from a page so
// that it renders literally.
var scraped = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"|", `\|`,
	"~", `\~`,
	"#", `\#`,
	"\r", " ",
	"\n", " ",
)

// MarkdownWriter outputs the narrative report. Sections always appear in
// this order: Metadata, Summary, PII Analysis, Users, Posts, Links,
// Attachments, Files Generated.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.Report) (int, error) {
	doc := report.Document
	if doc == nil {
		doc = model.NewDocument(report.Metadata.SourceURL, report.Metadata.FetchedAt)
	}

	md := markdown.NewMarkdown(w.output)
	md.H1(narrativeTitle)
	md.PlainText("")

	w.writeMetadata(md, report)
	w.writeSummary(md, report)
	w.writePIIAnalysis(md, report)
	w.writeUsers(md, doc)
	w.writePosts(md, doc)
	w.writeLinks(md, doc)
	w.writeAttachments(md, doc)
	w.writeFiles(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeMetadata(md *markdown.Markdown, report *model.Report) {
	meta := report.Metadata

	md.H2("Metadata")
	md.PlainText("")
	md.BulletList(
		"**Run ID**: "+orNA(meta.RunID),
		"**Generated At**: "+formatTime(meta.GeneratedAt),
		"**Scraped At**: "+formatTime(meta.FetchedAt),
		"**Source URL**: "+scraped.Replace(meta.SourceURL),
		"**Status**: "+strconv.Itoa(meta.StatusCode),
		"**Content Length**: "+strconv.Itoa(meta.ContentLength)+" bytes ("+humanize.Bytes(uint64(max(meta.ContentLength, 0)))+")",
	)
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.Report) {
	s := report.Summary

	md.H2("Summary")
	md.PlainText("")
	md.BulletList(
		"**Thread Title**: "+orNA(scraped.Replace(s.ThreadTitle)),
		"**Thread Starter**: "+orNA(scraped.Replace(s.ThreadStarter)),
		"**Thread Start Date**: "+orNA(scraped.Replace(s.ThreadStartDate)),
		"**Total Posts**: "+strconv.Itoa(s.TotalPosts),
		"**Unique Users**: "+strconv.Itoa(s.UniqueUsers),
		"**Total Links**: "+strconv.Itoa(s.TotalLinks),
		"**Total Attachments**: "+strconv.Itoa(s.TotalAttachments),
	)
	md.PlainText("")
}

func (w *MarkdownWriter) writePIIAnalysis(md *markdown.Markdown, report *model.Report) {
	analysis := report.PIIAnalysis

	md.H2("PII Analysis")
	md.PlainText("")
	md.BulletList("**Posts with PII**: " + strconv.Itoa(analysis.PostsWithPII))
	md.PlainText("")

	rows := orderedCategories(analysis.PIITypes)
	if len(rows) == 0 {
		md.Tip("No PII detected.")
		md.PlainText("")
		return
	}

	tableRows := make([][]string, len(rows))
	for i, r := range rows {
		tableRows[i] = []string{pii.Label(r.Category), strconv.Itoa(r.Count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"PII Type", "Count"},
		Rows:   tableRows,
	})
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("PII Types"),
		piechart.WithShowData(true),
	)
	for _, r := range rows {
		chart.LabelAndIntValue(pii.Label(r.Category), uint64(r.Count))
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	md.Warningf("%d of %d post(s) contain PII.", analysis.PostsWithPII, report.Summary.TotalPosts)
	md.PlainText("")
}

func (w *MarkdownWriter) writeUsers(md *markdown.Markdown, doc *model.Document) {
	md.H2("Users")
	md.PlainText("")
	if len(doc.Users) == 0 {
		md.PlainText("No users found.")
	} else {
		users := make([]string, len(doc.Users))
		for i, u := range doc.Users {
			users[i] = scraped.Replace(u)
		}
		md.OrderedList(users...)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writePosts(md *markdown.Markdown, doc *model.Document) {
	md.H2("Posts")
	md.PlainText("")
	if len(doc.Posts) == 0 {
		md.PlainText("No posts found.")
		md.PlainText("")
		return
	}

	shown := doc.Posts[:min(len(doc.Posts), MaxNarrativePosts)]
	for _, p := range shown {
		detected := "No"
		if p.HasPII() {
			detected = "Yes (" + findingsText(p.PIIFindings) + ")"
		}

		md.H3("Post #" + strconv.Itoa(p.Ordinal))
		md.PlainText("")
		md.BulletList(
			"**Username**: "+orNA(scraped.Replace(p.Username)),
			"**User Title**: "+orNA(scraped.Replace(p.UserTitle)),
			"**Date**: "+orNA(scraped.Replace(p.PostedAt)),
			"**Reactions**: "+strconv.Itoa(p.ReactionCount),
			"**Content**: "+scraped.Replace(p.ContentText),
			"**PII Detected**: "+detected,
		)
		md.PlainText("")
	}

	if note := moreNote(len(doc.Posts), len(shown), "posts"); note != "" {
		md.PlainText(note)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeLinks(md *markdown.Markdown, doc *model.Document) {
	md.H2("Links")
	md.PlainText("")
	if len(doc.Links) == 0 {
		md.PlainText("No links found.")
		md.PlainText("")
		return
	}

	shown := make([]string, min(len(doc.Links), MaxNarrativeLinks))
	for i := range shown {
		shown[i] = scraped.Replace(doc.Links[i])
	}
	md.OrderedList(shown...)
	md.PlainText("")

	if note := moreNote(len(doc.Links), len(shown), "links"); note != "" {
		md.PlainText(note)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeAttachments(md *markdown.Markdown, doc *model.Document) {
	md.H2("Attachments")
	md.PlainText("")
	if len(doc.Attachments) == 0 {
		md.PlainText("No attachments found.")
		md.PlainText("")
		return
	}

	items := make([]string, len(doc.Attachments))
	for i, a := range doc.Attachments {
		items[i] = scraped.Replace(a.Filename) + " - " + scraped.Replace(a.SourceURL)
	}
	md.OrderedList(items...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeFiles(md *markdown.Markdown, report *model.Report) {
	files := report.Files

	md.H2("Files Generated")
	md.PlainText("")

	var items []string
	for _, f := range []struct{ label, path string }{
		{"Raw HTML", files.RawHTML},
		{"JSON Data", files.ParsedJSON},
		{"JSON Report", files.ReportJSON},
		{"Markdown Report", files.ReportMarkdown},
	} {
		if f.path != "" {
			items = append(items, "**"+f.label+"**: `"+f.path+"`")
		}
	}
	if len(items) == 0 {
		md.PlainText("No files were written.")
	} else {
		md.BulletList(items...)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by [darkthread](https://github.com/nao1215/darkthread)*")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(timeLayout)
}
