// Package pii detects personally identifiable information in plain text.
//
// A fixed, ordered set of regular-expression detectors is applied to the
// whole text. Each detector runs independently; overlapping matches from
// different detectors are all counted. Scan returns nil when nothing was
// found, so callers can tell "clean" apart from an empty result.
//
// The detectors are the single definition of each PII pattern in the
// module. The secure log handler reuses them through Redact, and the
// report renderers use Label for display names.
//
// Matches are shape-based only. A 16-digit group is reported as a card
// number without a Luhn check; precision filters belong to callers.
package pii
