package pii

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/nao1215/darkthread/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Detector pairs a category name with the pattern that detects it.
type Detector struct {
	Category string
	Pattern  *regexp.Regexp
}

// detectors is the canonical detector list, in model.CategoryOrder order.
var detectors = []Detector{
	{model.CategoryEmail, regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{model.CategoryPhone, regexp.MustCompile(`\b(\+?\d{1,3}[-.]?)?\(?\d{3}\)?[-.]?\d{3}[-.]?\d{4}\b`)},
	{model.CategorySSN, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{model.CategoryCreditCard, regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`)},
	{model.CategoryIPAddress, regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)},
	{model.CategoryPassport, regexp.MustCompile(`\b[A-Z]{1,2}\d{6,9}\b`)},
	{model.CategoryBitcoinAddress, regexp.MustCompile(`\b[13][a-km-zA-HJ-NP-Z1-9]{25,34}\b`)},
	{model.CategoryEthereumAddress, regexp.MustCompile(`\b0x[a-fA-F0-9]{40}\b`)},
}

// Detectors returns a copy of the detector list in evaluation order.
func Detectors() []Detector {
	out := make([]Detector, len(detectors))
	copy(out, detectors)
	return out
}

// Scan counts PII matches per category in text.
// Only categories with at least one match are present in the result.
// Scan returns nil, not an empty map, when no category matched.
func Scan(text string) model.PIIFindings {
	if text == "" {
		return nil
	}

	var findings model.PIIFindings
	for _, d := range detectors {
		n := len(d.Pattern.FindAllStringIndex(text, -1))
		if n == 0 {
			continue
		}
		if findings == nil {
			findings = make(model.PIIFindings)
		}
		findings[d.Category] = n
	}
	return findings
}

// Redact replaces every match of the given categories in text with mask.
// With no categories, all detectors are applied.
func Redact(text, mask string, categories ...string) string {
	for _, d := range detectors {
		if len(categories) > 0 && !contains(categories, d.Category) {
			continue
		}
		text = d.Pattern.ReplaceAllLiteralString(text, mask)
	}
	return text
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// acronyms are words rendered upper-case in labels.
var acronyms = map[string]bool{"ssn": true, "ip": true}

// Label returns a display name for a category, e.g. "creditCard" becomes
// "Credit Card" and "ipAddress" becomes "IP Address".
func Label(category string) string {
	var words []string
	start := 0
	for i, r := range category {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, category[start:i])
			start = i
		}
	}
	words = append(words, category[start:])

	// A Caser holds state, so each call gets its own.
	caser := cases.Title(language.English)
	for i, w := range words {
		lower := strings.ToLower(w)
		if acronyms[lower] {
			words[i] = strings.ToUpper(lower)
			continue
		}
		words[i] = caser.String(lower)
	}
	return strings.Join(words, " ")
}
