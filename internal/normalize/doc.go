// Package normalize turns HTML fragments into clean plain text.
//
// Text strips tags, removes script and style blocks, decodes a fixed set
// of character entities and collapses whitespace. It is used by every
// stage that reads text out of markup: the thread extractor, the PII
// scanner input and the report renderers.
package normalize
