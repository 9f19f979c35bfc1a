package forum

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/darkthread/internal/model"
)

const testSourceURL = "http://aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaam2dqd.onion/threads/discounts.3499/"

func newTestExtractor() *Extractor {
	fixed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return NewExtractor(
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return fixed }),
	)
}

func loadFixture(t *testing.T, name string) string {
	t.Helper()

	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	return string(data)
}

func post(username, body string) string {
	return fmt.Sprintf(`<article class="message message--post" data-content="post">
<a class="username">%s</a>
<div class="bbWrapper">%s</div>
</article>`, username, body)
}

// TestExtractScenario tests a minimal two-post thread.
func TestExtractScenario(t *testing.T) {
	t.Parallel()

	markup := `<html><body>
<h1 class="p-title-value">Discount offer</h1>
` + post("alice", "call 555-123-4567") + post("bob", "sounds good") + `
</body></html>`

	doc := newTestExtractor().Extract(markup, testSourceURL)

	if doc.ThreadInfo.Title != "Discount offer" {
		t.Errorf("expected title %q, got %q", "Discount offer", doc.ThreadInfo.Title)
	}
	if !reflect.DeepEqual(doc.Users, []string{"alice", "bob"}) {
		t.Errorf("unexpected users %v", doc.Users)
	}
	if len(doc.Posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(doc.Posts))
	}
	if !reflect.DeepEqual(doc.Posts[0].PIIFindings, model.PIIFindings{model.CategoryPhone: 1}) {
		t.Errorf("unexpected findings for first post: %v", doc.Posts[0].PIIFindings)
	}
	if doc.Posts[1].PIIFindings != nil {
		t.Errorf("expected no findings for second post, got %v", doc.Posts[1].PIIFindings)
	}
	if doc.SourceURL != testSourceURL {
		t.Errorf("unexpected source URL %q", doc.SourceURL)
	}
}

// TestExtractFixture tests extraction from a full thread page.
func TestExtractFixture(t *testing.T) {
	t.Parallel()

	doc := newTestExtractor().Extract(loadFixture(t, "thread.html"), testSourceURL)

	t.Run("thread info", func(t *testing.T) {
		t.Parallel()

		want := model.ThreadInfo{
			Title:           "Discounts on avia & hotels",
			StarterUsername: "serggik00",
			StartDate:       "2023-05-14T18:22:31+0300",
		}
		if doc.ThreadInfo != want {
			t.Errorf("expected %+v, got %+v", want, doc.ThreadInfo)
		}
	})

	t.Run("posts", func(t *testing.T) {
		t.Parallel()

		if len(doc.Posts) != 3 {
			t.Fatalf("expected 3 posts, got %d", len(doc.Posts))
		}

		first := doc.Posts[0]
		if first.Username != "serggik00" || first.UserTitle != "Seller" {
			t.Errorf("unexpected author fields: %+v", first)
		}
		if first.PostedAt != "2023-05-14T18:22:31+0300" {
			t.Errorf("unexpected postedAt %q", first.PostedAt)
		}
		if first.ReactionCount != 7 {
			t.Errorf("expected 7 reactions, got %d", first.ReactionCount)
		}
		wantBody := "Flights and hotels at 50%. Contact: seller@example.com or +7 495-123-4567. Mirror: shop"
		if first.ContentText != wantBody {
			t.Errorf("unexpected body %q", first.ContentText)
		}
		wantPII := model.PIIFindings{model.CategoryEmail: 1, model.CategoryPhone: 1}
		if !reflect.DeepEqual(first.PIIFindings, wantPII) {
			t.Errorf("expected %v, got %v", wantPII, first.PIIFindings)
		}

		second := doc.Posts[1]
		if second.Username != "traveler" || second.UserTitle != "Member" {
			t.Errorf("unexpected author fields: %+v", second)
		}
		if !strings.Contains(second.ContentText, "Flights and hotels at 50%.") {
			t.Errorf("expected quoted text in body, got %q", second.ContentText)
		}
		if !strings.Contains(second.ContentText, "Does it work for Europe?") {
			t.Errorf("expected reply text in body, got %q", second.ContentText)
		}
		if second.PIIFindings != nil || second.ReactionCount != 0 {
			t.Errorf("unexpected findings or reactions: %+v", second)
		}

		third := doc.Posts[2]
		if third.PostedAt != "" || third.UserTitle != "" {
			t.Errorf("expected missing optional fields, got %+v", third)
		}
		if third.ReactionCount != 0 {
			t.Errorf("expected unparsable counter to give 0, got %d", third.ReactionCount)
		}

		for i, p := range doc.Posts {
			if p.Ordinal != i+1 {
				t.Errorf("post %d has ordinal %d", i, p.Ordinal)
			}
		}
	})

	t.Run("users", func(t *testing.T) {
		t.Parallel()

		if !reflect.DeepEqual(doc.Users, []string{"serggik00", "traveler"}) {
			t.Errorf("unexpected users %v", doc.Users)
		}
	})

	t.Run("links", func(t *testing.T) {
		t.Parallel()

		want := []string{
			"http://aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaam2dqd.onion/threads/discounts.3499/",
			"http://aaaqeayeaudaocajbifqydiob4ibceqtcqkrmfyydenbwha5dyp3kead.onion/shop",
			"https://example.com/faq",
		}
		if !reflect.DeepEqual(doc.Links, want) {
			t.Errorf("expected %v, got %v", want, doc.Links)
		}
	})

	t.Run("attachments", func(t *testing.T) {
		t.Parallel()

		want := []model.Attachment{
			{SourceURL: "/attachments/price-list-png.777/", Filename: "price-list.png"},
			{SourceURL: "/attachments/scan.778/", Filename: "unknown"},
		}
		if !reflect.DeepEqual(doc.Attachments, want) {
			t.Errorf("expected %v, got %v", want, doc.Attachments)
		}
	})
}

// TestExtractOrdinals tests that N posts get ordinals 1..N.
func TestExtractOrdinals(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 5, 12} {
		t.Run(fmt.Sprintf("%d posts", n), func(t *testing.T) {
			t.Parallel()

			var sb strings.Builder
			for i := 0; i < n; i++ {
				sb.WriteString(post(fmt.Sprintf("user%d", i%3), fmt.Sprintf("message %d", i)))
			}
			doc := newTestExtractor().Extract(sb.String(), testSourceURL)

			if len(doc.Posts) != n {
				t.Fatalf("expected %d posts, got %d", n, len(doc.Posts))
			}
			for i, p := range doc.Posts {
				if p.Ordinal != i+1 {
					t.Errorf("post %d has ordinal %d", i, p.Ordinal)
				}
			}
			if len(doc.Users) > len(doc.Posts) {
				t.Errorf("more users (%d) than posts (%d)", len(doc.Users), len(doc.Posts))
			}
			seen := map[string]bool{}
			for _, u := range doc.Users {
				if seen[u] {
					t.Errorf("duplicate user %q", u)
				}
				seen[u] = true
			}
		})
	}
}

// TestExtractNestedPosts tests that a post-shaped element inside a post
// stays part of the outer post.
func TestExtractNestedPosts(t *testing.T) {
	t.Parallel()

	markup := `<article class="message" data-content="post-1">
<a class="username">outer</a>
<div class="bbWrapper">before <article class="message" data-content="post-2"><a class="username">inner</a> quoted</article> after</div>
</article>`

	doc := newTestExtractor().Extract(markup, testSourceURL)
	if len(doc.Posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(doc.Posts))
	}
	if doc.Posts[0].Username != "outer" {
		t.Errorf("expected outer author, got %q", doc.Posts[0].Username)
	}
	if !strings.Contains(doc.Posts[0].ContentText, "quoted") {
		t.Errorf("expected nested text in body, got %q", doc.Posts[0].ContentText)
	}
	if !reflect.DeepEqual(doc.Users, []string{"outer"}) {
		t.Errorf("unexpected users %v", doc.Users)
	}
}

// TestExtractPostMarkers tests which elements count as posts.
func TestExtractPostMarkers(t *testing.T) {
	t.Parallel()

	markup := `<article class="message">no content marker</article>
<div class="message" data-content="x">not an article</div>
<article class="message-body js-post" data-content="post-9"><div class="bbWrapper">real</div></article>`

	doc := newTestExtractor().Extract(markup, testSourceURL)
	if len(doc.Posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(doc.Posts))
	}
	if doc.Posts[0].Username != "" || doc.Posts[0].ContentText != "real" {
		t.Errorf("unexpected post %+v", doc.Posts[0])
	}
	if len(doc.Users) != 0 {
		t.Errorf("expected no users for anonymous post, got %v", doc.Users)
	}
}

// TestExtractAttachments tests attachment edge cases.
func TestExtractAttachments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		markup string
		want   []model.Attachment
	}{
		{
			name:   "link without filename",
			markup: `<div class="attachment"><a href="/attachments/1/">view</a></div>`,
			want:   []model.Attachment{{SourceURL: "/attachments/1/", Filename: "unknown"}},
		},
		{
			name:   "link with filename",
			markup: `<div class="attachment"><a href="/attachments/2/"><span>report.pdf</span></a></div>`,
			want:   []model.Attachment{{SourceURL: "/attachments/2/", Filename: "report.pdf"}},
		},
		{
			name:   "block is the link",
			markup: `<a class="attachment-link" href="/attachments/3/">dump.zip</a>`,
			want:   []model.Attachment{{SourceURL: "/attachments/3/", Filename: "dump.zip"}},
		},
		{
			name:   "version number is not a filename",
			markup: `<div class="attachment"><a href="/attachments/4/">v 1.5</a></div>`,
			want:   []model.Attachment{{SourceURL: "/attachments/4/", Filename: "unknown"}},
		},
		{
			name: "labelled item inside a list",
			markup: `<ul class="attachmentList"><li class="attachment"><a href="/attachments/9/">` +
				`<span class="attachment-icon"></span><span class="attachment-name">leak.zip</span></a></li></ul>`,
			want: []model.Attachment{{SourceURL: "/attachments/9/", Filename: "leak.zip"}},
		},
		{
			name: "one entry per list item",
			markup: `<ul class="attachmentList">` +
				`<li class="attachment"><a href="/attachments/10/"><span class="attachment-name">a.txt</span></a></li>` +
				`<li class="attachment"><a href="/attachments/11/"><span class="attachment-name">b.txt</span></a></li></ul>`,
			want: []model.Attachment{
				{SourceURL: "/attachments/10/", Filename: "a.txt"},
				{SourceURL: "/attachments/11/", Filename: "b.txt"},
			},
		},
		{
			name:   "no link is skipped",
			markup: `<div class="attachment"><span>orphan.txt</span></div>`,
			want:   []model.Attachment{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc := newTestExtractor().Extract(tt.markup, testSourceURL)
			if !reflect.DeepEqual(doc.Attachments, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, doc.Attachments)
			}
		})
	}
}

// TestExtractEscapedBody tests that escaped angle brackets in a post
// body are kept as text and scanned for PII.
func TestExtractEscapedBody(t *testing.T) {
	t.Parallel()

	markup := post("alice", "Mail me &lt;bob@example.com&gt; today. Also 5 &lt; 6 and 7 &gt; 3 holds.")

	doc := newTestExtractor().Extract(markup, testSourceURL)
	if len(doc.Posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(doc.Posts))
	}

	got := doc.Posts[0]
	want := "Mail me <bob@example.com> today. Also 5 < 6 and 7 > 3 holds."
	if got.ContentText != want {
		t.Errorf("expected body %q, got %q", want, got.ContentText)
	}
	if got.PIIFindings[model.CategoryEmail] != 1 {
		t.Errorf("expected one email finding, got %v", got.PIIFindings)
	}
}

// TestExtractLinks tests link filtering and de-duplication.
func TestExtractLinks(t *testing.T) {
	t.Parallel()

	markup := `<a href="https://a.example/x">1</a>
<a href="/relative">2</a>
<a href="https://a.example/x">dup</a>
<a href="https://A.example/x">case differs</a>
<a href="/goto?to=abc.onion">onion ref</a>
<a href="javascript:void(0)">js</a>
<a href="">empty</a>
<area href="http://b.example/map">`

	doc := newTestExtractor().Extract(markup, testSourceURL)
	want := []string{
		"https://a.example/x",
		"https://A.example/x",
		"/goto?to=abc.onion",
		"http://b.example/map",
	}
	if !reflect.DeepEqual(doc.Links, want) {
		t.Errorf("expected %v, got %v", want, doc.Links)
	}
}

// TestExtractMissingMarkers tests that absent structure yields an empty document.
func TestExtractMissingMarkers(t *testing.T) {
	t.Parallel()

	inputs := map[string]string{
		"empty":       "",
		"plain text":  "just some text",
		"unclosed":    "<div><article class=\"message\" data-content=\"x\"><a class=\"username\">u",
		"garbage":     "<<<>>>&&&;;;</></>",
		"binary":      string([]byte{0x00, 0xff, 0xfe, '<', 0x01}),
		"only script": "<script>document.write('<h1 class=\"p-title-value\">x</h1>')</script>",
	}

	for name, markup := range inputs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			doc := newTestExtractor().Extract(markup, testSourceURL)
			if doc == nil {
				t.Fatal("expected a document")
			}
			if doc.Posts == nil || doc.Users == nil || doc.Links == nil || doc.Attachments == nil {
				t.Error("collections must not be nil")
			}
			if name != "unclosed" && (len(doc.Posts) != 0 || doc.ThreadInfo.Title != "") {
				t.Errorf("expected nothing extracted, got %+v", doc)
			}
		})
	}
}

// TestExtractMetaWithoutAttribute tests that displayed dates are not used.
func TestExtractMetaWithoutAttribute(t *testing.T) {
	t.Parallel()

	markup := `<dl class="pairs"><dt>Start date</dt><dd>May 14, 2023</dd></dl>
<dl class="pairs"><dt>Thread starter</dt><dd>no username marker</dd></dl>`

	doc := newTestExtractor().Extract(markup, testSourceURL)
	if doc.ThreadInfo.StartDate != "" {
		t.Errorf("expected no start date, got %q", doc.ThreadInfo.StartDate)
	}
	if doc.ThreadInfo.StarterUsername != "" {
		t.Errorf("expected no starter, got %q", doc.ThreadInfo.StarterUsername)
	}
}

// TestExtractClock tests ExtractedAt.
func TestExtractClock(t *testing.T) {
	t.Parallel()

	doc := newTestExtractor().Extract("", testSourceURL)
	if !doc.ExtractedAt.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected extractedAt %v", doc.ExtractedAt)
	}
}
