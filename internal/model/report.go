package model

import "time"

// Report aggregates capture metadata, summary counts, the PII aggregate
// and the full extracted document. A Report is rendered twice (structured
// and narrative) and is not mutated after it is built.
type Report struct {
	Metadata    Metadata      `json:"metadata"`
	Summary     Summary       `json:"summary"`
	PIIAnalysis PIIAnalysis   `json:"piiAnalysis"`
	Document    *Document     `json:"document"`
	Files       ArtifactPaths `json:"files"`
}

// Metadata describes the run and the capture a report was built from.
type Metadata struct {
	RunID         string    `json:"runId"`
	GeneratedAt   time.Time `json:"generatedAt"`
	FetchedAt     time.Time `json:"fetchedAt"`
	SourceURL     string    `json:"sourceUrl"`
	StatusCode    int       `json:"statusCode"`
	ContentLength int       `json:"contentLength"`
}

// Summary holds counts taken directly from the document's collections.
type Summary struct {
	TotalPosts       int    `json:"totalPosts"`
	UniqueUsers      int    `json:"uniqueUsers"`
	TotalLinks       int    `json:"totalLinks"`
	TotalAttachments int    `json:"totalAttachments"`
	ThreadTitle      string `json:"threadTitle,omitempty"`
	ThreadStarter    string `json:"threadStarter,omitempty"`
	ThreadStartDate  string `json:"threadStartDate,omitempty"`
}

// PIIAnalysis is the PII aggregate over all posts.
type PIIAnalysis struct {
	// PostsWithPII is the number of posts whose PIIFindings is non-nil.
	PostsWithPII int `json:"postsWithPII"`
	// PIITypes is the per-category sum across all posts.
	PIITypes map[string]int `json:"piiTypes"`
}

// ArtifactPaths lists the files written for a run.
type ArtifactPaths struct {
	RawHTML        string `json:"rawHtml,omitempty"`
	ParsedJSON     string `json:"jsonData,omitempty"`
	ReportJSON     string `json:"reportJson,omitempty"`
	ReportMarkdown string `json:"reportMarkdown,omitempty"`
}
