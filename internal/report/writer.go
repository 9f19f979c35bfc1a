package report

import (
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nao1215/darkthread/internal/model"
	"github.com/nao1215/darkthread/internal/pii"
)

// Writer renders a report to some destination.
type Writer interface {
	// Write renders the report and returns the number of bytes written.
	Write(report *model.Report) (int, error)
}

// MultiWriter writes the same report to several Writers, for example the
// terminal summary and a JSON dump on stdout.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write renders the report with every Writer in order and stops on the
// first error.
func (m *MultiWriter) Write(report *model.Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// categoryCount is one row of the PII aggregate.
type categoryCount struct {
	Category string
	Count    int
}

// orderedCategories returns the non-zero counts of types, canonical
// categories first and unknown ones after them in name order.
func orderedCategories(types map[string]int) []categoryCount {
	rows := make([]categoryCount, 0, len(types))
	known := make(map[string]bool, len(model.CategoryOrder))
	for _, c := range model.CategoryOrder {
		known[c] = true
		if n := types[c]; n > 0 {
			rows = append(rows, categoryCount{Category: c, Count: n})
		}
	}

	var extra []string
	for c, n := range types {
		if !known[c] && n > 0 {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	for _, c := range extra {
		rows = append(rows, categoryCount{Category: c, Count: types[c]})
	}
	return rows
}

// findingsText formats per-post findings as "Email: 1, Phone: 2".
func findingsText(findings model.PIIFindings) string {
	rows := orderedCategories(findings)
	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = pii.Label(r.Category) + ": " + strconv.Itoa(r.Count)
	}
	return strings.Join(parts, ", ")
}

// orNA returns s, or "N/A" when s is empty.
func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// moreNote returns the truncation note for a list of total items of
// which shown were listed, or "" when nothing was left out.
func moreNote(total, shown int, noun string) string {
	if total <= shown {
		return ""
	}
	return "... and " + strconv.Itoa(total-shown) + " more " + noun
}
