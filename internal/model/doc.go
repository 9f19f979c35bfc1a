// Package model defines the data structures shared by the extraction
// pipeline.
//
// This package contains the following main types:
//   - RawCapture: the unmodified result of fetching one page through Tor
//   - Document: thread metadata, posts, users, links and attachments
//     extracted from a capture
//   - Report: summary counts and PII aggregate built from a Document
//
// Models live in their own package so that the extractor, the report
// synthesizer, the artifact store and the history database can share them
// without import cycles. All types serialize to camelCase JSON.
package model
