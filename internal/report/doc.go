// Package report builds a Report from an extracted thread and renders it.
//
// Synthesizer turns capture metadata and a model.Document into a
// model.Report. Summary counts are read straight from the document's
// collections and the PII aggregate is summed from the posts, so the
// report cannot disagree with the document it describes.
//
// Writers render a Report:
//   - JSONWriter: structured output that mirrors the data model
//   - MarkdownWriter: the narrative report with a fixed section order
//   - SimpleWriter: a short summary for the terminal
//
// Writers never modify the Report they are given.
package report
