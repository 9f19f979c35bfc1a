package model

import "time"

// PII category names. The order of CategoryOrder is the order in which
// detectors run and in which categories are listed in reports.
const (
	CategoryEmail           = "email"
	CategoryPhone           = "phone"
	CategorySSN             = "ssn"
	CategoryCreditCard      = "creditCard"
	CategoryIPAddress       = "ipAddress"
	CategoryPassport        = "passport"
	CategoryBitcoinAddress  = "bitcoinAddress"
	CategoryEthereumAddress = "ethereumAddress"
)

// CategoryOrder is the canonical PII category list.
var CategoryOrder = []string{
	CategoryEmail,
	CategoryPhone,
	CategorySSN,
	CategoryCreditCard,
	CategoryIPAddress,
	CategoryPassport,
	CategoryBitcoinAddress,
	CategoryEthereumAddress,
}

// PIIFindings maps a PII category to its occurrence count within one
// text block. A nil PIIFindings means nothing was detected; callers must
// not treat an empty, non-nil map the same way.
type PIIFindings map[string]int

// Total returns the sum of all counts.
func (f PIIFindings) Total() int {
	total := 0
	for _, n := range f {
		total += n
	}
	return total
}

// ThreadInfo holds thread-level metadata. Every field is optional: an
// empty value means the source markup did not carry it.
type ThreadInfo struct {
	Title           string `json:"title,omitempty"`
	StarterUsername string `json:"starterUsername,omitempty"`
	// StartDate is the machine-readable datetime attribute, verbatim.
	StartDate string `json:"startDate,omitempty"`
}

// Post is one user-authored message in a thread.
type Post struct {
	// Ordinal is the 1-based position of the post in source order.
	Ordinal       int         `json:"ordinal"`
	Username      string      `json:"username"`
	UserTitle     string      `json:"userTitle,omitempty"`
	PostedAt      string      `json:"postedAt,omitempty"`
	ContentText   string      `json:"contentText"`
	ReactionCount int         `json:"reactionCount"`
	PIIFindings   PIIFindings `json:"piiFindings,omitempty"`
}

// HasPII reports whether any PII was detected in the post.
func (p Post) HasPII() bool {
	return p.PIIFindings != nil
}

// Attachment is a file attached to a thread.
type Attachment struct {
	SourceURL string `json:"sourceUrl"`
	// Filename defaults to UnknownFilename when no filename-shaped text
	// was found in the attachment block.
	Filename string `json:"filename"`
}

// UnknownFilename is used for attachments without a resolvable name.
const UnknownFilename = "unknown"

// Document is the structured result of extracting one thread page.
// It is built once per extraction and not modified afterwards.
type Document struct {
	SourceURL   string       `json:"sourceUrl"`
	ExtractedAt time.Time    `json:"extractedAt"`
	ThreadInfo  ThreadInfo   `json:"threadInfo"`
	Posts       []Post       `json:"posts"`
	Users       []string     `json:"users"`
	Links       []string     `json:"links"`
	Attachments []Attachment `json:"attachments"`
}

// NewDocument returns an empty document for sourceURL.
// Collections are non-nil so they serialize as empty arrays.
func NewDocument(sourceURL string, extractedAt time.Time) *Document {
	return &Document{
		SourceURL:   sourceURL,
		ExtractedAt: extractedAt,
		Posts:       []Post{},
		Users:       []string{},
		Links:       []string{},
		Attachments: []Attachment{},
	}
}
