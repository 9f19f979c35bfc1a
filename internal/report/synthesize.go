package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/darkthread/internal/model"
)

// Synthesizer builds reports. Apart from the clock and the run ID source,
// Synthesize depends only on its arguments.
type Synthesizer struct {
	now   func() time.Time
	newID func() string
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithClock sets the function used for Metadata.GeneratedAt.
func WithClock(now func() time.Time) SynthesizerOption {
	return func(s *Synthesizer) {
		s.now = now
	}
}

// WithRunID sets the function that produces Metadata.RunID.
func WithRunID(newID func() string) SynthesizerOption {
	return func(s *Synthesizer) {
		s.newID = newID
	}
}

// NewSynthesizer returns a Synthesizer that stamps reports with the
// current time and a random UUID.
func NewSynthesizer(opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize builds the report for doc. A nil doc is treated as an empty
// document for meta.URL.
func (s *Synthesizer) Synthesize(meta model.CaptureMeta, doc *model.Document, files model.ArtifactPaths) *model.Report {
	if doc == nil {
		doc = model.NewDocument(meta.URL, meta.FetchedAt)
	}

	return &model.Report{
		Metadata: model.Metadata{
			RunID:         s.newID(),
			GeneratedAt:   s.now(),
			FetchedAt:     meta.FetchedAt,
			SourceURL:     meta.URL,
			StatusCode:    meta.StatusCode,
			ContentLength: meta.ByteLength,
		},
		Summary:     Summarize(doc),
		PIIAnalysis: AggregatePII(doc.Posts),
		Document:    doc,
		Files:       files,
	}
}

// Summarize returns the summary counts of doc.
func Summarize(doc *model.Document) model.Summary {
	return model.Summary{
		TotalPosts:       len(doc.Posts),
		UniqueUsers:      len(doc.Users),
		TotalLinks:       len(doc.Links),
		TotalAttachments: len(doc.Attachments),
		ThreadTitle:      doc.ThreadInfo.Title,
		ThreadStarter:    doc.ThreadInfo.StarterUsername,
		ThreadStartDate:  doc.ThreadInfo.StartDate,
	}
}

// AggregatePII counts the posts with findings and sums each category
// over all posts. PIITypes is never nil.
func AggregatePII(posts []model.Post) model.PIIAnalysis {
	analysis := model.PIIAnalysis{PIITypes: make(map[string]int)}
	for _, p := range posts {
		if !p.HasPII() {
			continue
		}
		analysis.PostsWithPII++
		for category, n := range p.PIIFindings {
			analysis.PIITypes[category] += n
		}
	}
	return analysis
}
