package forum

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/darkthread/internal/model"
	"github.com/nao1215/darkthread/internal/normalize"
	"github.com/nao1215/darkthread/internal/pii"
	"github.com/nao1215/darkthread/internal/tor"
	"golang.org/x/net/html"
)

// Extractor turns thread markup into a model.Document.
// An Extractor holds no per-call state and may be shared.
type Extractor struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// WithClock sets the function used for Document.ExtractedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// NewExtractor returns an Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses markup fetched from sourceURL. It always returns a
// document; missing markers leave the corresponding fields empty.
func (e *Extractor) Extract(markup, sourceURL string) *model.Document {
	doc := model.NewDocument(sourceURL, e.now())

	dom, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		e.logger.Debug("markup could not be parsed", "url", sourceURL, "error", err)
		return doc
	}

	e.step("title", func() { doc.ThreadInfo.Title = extractTitle(dom) })
	e.step("metadata", func() {
		starter, startDate := extractMeta(dom)
		doc.ThreadInfo.StarterUsername = starter
		doc.ThreadInfo.StartDate = startDate
	})
	e.step("posts", func() { doc.Posts, doc.Users = extractPosts(dom) })
	e.step("links", func() { doc.Links = extractLinks(dom) })
	e.step("attachments", func() { doc.Attachments = extractAttachments(dom) })

	if doc.ThreadInfo.Title == "" {
		e.logger.Debug("thread title not found", "url", sourceURL)
	}
	e.logger.Info("thread parsed",
		"url", sourceURL,
		"posts", len(doc.Posts),
		"users", len(doc.Users),
		"links", len(doc.Links),
		"attachments", len(doc.Attachments),
	)
	return doc
}

// step runs fn and turns a panic into a log entry so that one failing
// step does not cost the others.
func (e *Extractor) step(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("extraction step failed", "step", name, "error", fmt.Sprint(r))
		}
	}()
	fn()
}

func extractTitle(dom *goquery.Document) string {
	title := dom.FindMatcher(titleSelector).First()
	if title.Length() == 0 {
		return ""
	}
	return textOf(title)
}

// extractMeta reads the thread starter and start date from the first
// metadata entries carrying those labels.
func extractMeta(dom *goquery.Document) (starter, startDate string) {
	dom.FindMatcher(metaListSelector).Find("dt").EachWithBreak(func(_ int, dt *goquery.Selection) bool {
		dd := dt.NextFiltered("dd")
		if dd.Length() == 0 {
			return true
		}

		switch strings.ToLower(textOf(dt)) {
		case starterLabel:
			if starter == "" {
				if user := dd.FindMatcher(usernameSelector).First(); user.Length() > 0 {
					starter = textOf(user)
				}
			}
		case startDateLabel:
			if startDate == "" {
				// The attribute is canonical; the displayed date is localized.
				if v, ok := dd.FindMatcher(datetimeSelector).First().Attr("datetime"); ok {
					startDate = strings.TrimSpace(v)
				}
			}
		}
		return starter == "" || startDate == ""
	})
	return starter, startDate
}

// extractPosts returns posts in source order with ordinals 1..N, and the
// authors in first-seen order.
func extractPosts(dom *goquery.Document) ([]model.Post, []string) {
	posts := []model.Post{}
	users := []string{}
	seen := make(map[string]struct{})

	dom.FindMatcher(postSelector).Each(func(_ int, s *goquery.Selection) {
		// A post-shaped element inside another post is part of that
		// post's body, not a post of its own.
		if s.ParentsMatcher(postSelector).Length() > 0 {
			return
		}

		post := model.Post{Ordinal: len(posts) + 1}

		if user := s.FindMatcher(usernameSelector).First(); user.Length() > 0 {
			post.Username = textOf(user)
		}
		if post.Username != "" {
			if _, ok := seen[post.Username]; !ok {
				seen[post.Username] = struct{}{}
				users = append(users, post.Username)
			}
		}

		if title := s.FindMatcher(userTitleSelector).First(); title.Length() > 0 {
			post.UserTitle = textOf(title)
		}
		if v, ok := s.FindMatcher(datetimeSelector).First().Attr("datetime"); ok {
			post.PostedAt = strings.TrimSpace(v)
		}
		if body := s.FindMatcher(bodySelector).First(); body.Length() > 0 {
			post.ContentText = textOf(body)
			post.PIIFindings = pii.Scan(post.ContentText)
		}
		post.ReactionCount = reactionCount(s)

		posts = append(posts, post)
	})

	return posts, users
}

func reactionCount(post *goquery.Selection) int {
	counter := post.FindMatcher(reactionCountSelector).First()
	if counter.Length() == 0 {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(counter.Text()))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// extractLinks returns link targets that are absolute http(s) URLs or
// mention .onion, without duplicates, in document order.
func extractLinks(dom *goquery.Document) []string {
	links := []string{}
	seen := make(map[string]struct{})

	dom.FindMatcher(linkSelector).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !keepLink(href) {
			return
		}
		if _, ok := seen[href]; ok {
			return
		}
		seen[href] = struct{}{}
		links = append(links, href)
	})
	return links
}

func keepLink(href string) bool {
	if strings.TrimSpace(href) == "" {
		return false
	}
	if tor.ReferencesOnion(href) {
		return true
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// extractAttachments returns one attachment per innermost attachment
// container that has a link target. A container is skipped when one of
// its descendant containers already yielded an attachment; descendants
// without a link, such as a filename label, do not hide their parent.
func extractAttachments(dom *goquery.Document) []model.Attachment {
	containers := dom.FindMatcher(attachmentSelector)
	found := make([]*model.Attachment, containers.Length())
	covered := make(map[*html.Node]bool)

	// Matches are in document order, so walking backwards visits every
	// container before its ancestors.
	for i := containers.Length() - 1; i >= 0; i-- {
		s := containers.Eq(i)
		node := s.Get(0)
		if covered[node] {
			continue
		}

		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			href, ok = s.FindMatcher(linkSelector).First().Attr("href")
		}
		if !ok || strings.TrimSpace(href) == "" {
			continue
		}

		found[i] = &model.Attachment{
			SourceURL: href,
			Filename:  filename(s),
		}
		for p := node.Parent; p != nil; p = p.Parent {
			covered[p] = true
		}
	}

	attachments := []model.Attachment{}
	for _, a := range found {
		if a != nil {
			attachments = append(attachments, *a)
		}
	}
	return attachments
}

// filename returns the first text node in s shaped like a file name.
func filename(s *goquery.Selection) string {
	for _, n := range s.Nodes {
		if name := findFilename(n); name != "" {
			return name
		}
	}
	return model.UnknownFilename
}

func findFilename(n *html.Node) string {
	if n.Type == html.TextNode {
		if text := normalize.Collapse(n.Data); filenamePattern.MatchString(text) {
			return text
		}
		return ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if name := findFilename(c); name != "" {
			return name
		}
	}
	return ""
}

// textOf returns the normalized text content of s, without script and
// style contents. Text nodes are already entity-decoded by the parser,
// so only whitespace is normalized; a literal "<" in a post stays text.
func textOf(s *goquery.Selection) string {
	var sb strings.Builder
	for _, n := range s.Nodes {
		collectText(n, &sb)
	}
	return normalize.Collapse(sb.String())
}

func collectText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
