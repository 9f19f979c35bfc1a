package normalize

import (
	"regexp"
	"strings"
)

var (
	// scriptOrStyle matches script and style elements including their content.
	scriptOrStyle = regexp.MustCompile(`(?is)<(?:script|style)\b[^>]*>.*?</(?:script|style)\s*>`)

	// tag matches any tag marker including its attributes.
	tag = regexp.MustCompile(`<[^>]+>`)

	// entities decodes the fixed entity set. Numeric and named apostrophe
	// variants all map to a plain apostrophe.
	entities = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#039;", "'",
		"&#39;", "'",
		"&#x27;", "'",
		"&apos;", "'",
	)
)

// Text returns the plain text of a markup fragment.
//
// The result contains no tag markers, no entity from the decoded set and
// no run of more than one whitespace character, and has no leading or
// trailing whitespace. Text is idempotent: Text(Text(s)) == Text(s).
// Decoding can surface new markup ("&lt;b&gt;" becomes "<b>"), so the
// cleaning pass is repeated until the text stops changing.
//
// Because of that repetition, escaped angle brackets do not survive:
// "a &lt; b &gt; c" decodes to "a < b > c" and the next pass drops
// "< b >" as a tag, giving "a c". Text that a DOM parser has already
// decoded must go through Collapse instead.
func Text(s string) string {
	for {
		next := pass(s)
		if next == s {
			return next
		}
		// Each pass that changes s either shortens it or only rewrites
		// whitespace, and a whitespace-only rewrite is stable, so this ends.
		s = next
	}
}

func pass(s string) string {
	if s == "" {
		return ""
	}
	s = scriptOrStyle.ReplaceAllString(s, " ")
	s = tag.ReplaceAllString(s, "")
	s = entities.Replace(s)
	return Collapse(s)
}

// Collapse replaces every run of whitespace with a single space and
// trims the ends. It neither strips tags nor decodes entities, so it is
// the normalization for text nodes whose entities were decoded by an
// HTML parser. Collapse is idempotent.
func Collapse(s string) string {
	// strings.Fields splits on Unicode whitespace, which also covers a
	// literal U+00A0 left in the source.
	return strings.Join(strings.Fields(s), " ")
}
