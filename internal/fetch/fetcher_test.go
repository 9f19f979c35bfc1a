package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond}
}

// TestRetryPolicy tests the linear delay schedule.
func TestRetryPolicy(t *testing.T) {
	t.Parallel()

	t.Run("default schedule", func(t *testing.T) {
		t.Parallel()

		p := DefaultRetryPolicy()
		got := p.Schedule()
		want := []time.Duration{5 * time.Second, 10 * time.Second}
		if len(got) != len(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("delay %d: expected %v, got %v", i, want[i], got[i])
			}
		}
	})

	t.Run("delay before first attempt is zero", func(t *testing.T) {
		t.Parallel()

		if d := DefaultRetryPolicy().Delay(0); d != 0 {
			t.Errorf("expected 0, got %v", d)
		}
	})

	t.Run("single attempt has no schedule", func(t *testing.T) {
		t.Parallel()

		if s := (RetryPolicy{MaxAttempts: 1, BaseDelay: time.Second}).Schedule(); s != nil {
			t.Errorf("expected nil schedule, got %v", s)
		}
	})

	t.Run("validate", func(t *testing.T) {
		t.Parallel()

		if err := DefaultRetryPolicy().Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if err := (RetryPolicy{MaxAttempts: 0}).Validate(); !errors.Is(err, ErrInvalidRetryPolicy) {
			t.Errorf("expected ErrInvalidRetryPolicy, got %v", err)
		}
		if err := (RetryPolicy{MaxAttempts: 1, BaseDelay: -time.Second}).Validate(); !errors.Is(err, ErrInvalidRetryPolicy) {
			t.Errorf("expected ErrInvalidRetryPolicy, got %v", err)
		}
	})
}

// TestFetchSuccess tests a first-attempt success.
func TestFetchSuccess(t *testing.T) {
	t.Parallel()

	headers := make(chan http.Header, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case headers <- r.Header.Clone():
		default:
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<h1>Привет</h1>")
	}))
	defer server.Close()

	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	f := New(server.Client(), WithLogger(quietLogger()), WithClock(func() time.Time { return fixed }))

	res := f.Fetch(context.Background(), server.URL+"/threads/1")
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if res.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", res.Attempts)
	}
	c := res.Capture
	if c.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", c.StatusCode)
	}
	if c.Body != "<h1>Привет</h1>" || string(c.Raw) != c.Body {
		t.Errorf("unexpected body %q", c.Body)
	}
	if c.ByteLength != len(c.Raw) {
		t.Errorf("byte length %d does not match raw length %d", c.ByteLength, len(c.Raw))
	}
	if !c.FetchedAt.Equal(fixed) {
		t.Errorf("expected fetchedAt %v, got %v", fixed, c.FetchedAt)
	}
	h := <-headers
	gotUA, gotAccept := h.Get("User-Agent"), h.Get("Accept")
	if gotUA != DefaultUserAgent {
		t.Errorf("unexpected User-Agent %q", gotUA)
	}
	if !strings.HasPrefix(gotAccept, "text/html") {
		t.Errorf("unexpected Accept %q", gotAccept)
	}
}

// TestFetchRetries tests retry behaviour.
func TestFetchRetries(t *testing.T) {
	t.Parallel()

	t.Run("recovers after transient failures", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = io.WriteString(w, "ok")
		}))
		defer server.Close()

		res := New(server.Client(), WithRetryPolicy(fastPolicy(3)), WithLogger(quietLogger())).
			Fetch(context.Background(), server.URL)
		if !res.OK() {
			t.Fatalf("expected success, got %v", res.Err)
		}
		if res.Attempts != 3 {
			t.Errorf("expected 3 attempts, got %d", res.Attempts)
		}
	})

	t.Run("exhausted", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		res := New(server.Client(), WithRetryPolicy(fastPolicy(3)), WithLogger(quietLogger())).
			Fetch(context.Background(), server.URL)
		if res.OK() || res.Capture != nil {
			t.Fatal("expected failure without capture")
		}
		if !errors.Is(res.Err, ErrRetriesExhausted) {
			t.Errorf("expected ErrRetriesExhausted, got %v", res.Err)
		}
		if !errors.Is(res.Err, ErrUnexpectedStatus) {
			t.Errorf("expected wrapped ErrUnexpectedStatus, got %v", res.Err)
		}
		var serr *StatusError
		if !errors.As(res.Err, &serr) || serr.StatusCode != http.StatusBadGateway {
			t.Errorf("expected StatusError 502, got %v", res.Err)
		}
		if calls.Load() != 3 || res.Attempts != 3 {
			t.Errorf("expected 3 attempts, got calls=%d attempts=%d", calls.Load(), res.Attempts)
		}
	})

	t.Run("not found is not retried", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		res := New(server.Client(), WithRetryPolicy(fastPolicy(3)), WithLogger(quietLogger())).
			Fetch(context.Background(), server.URL)
		if res.OK() {
			t.Fatal("expected failure")
		}
		if errors.Is(res.Err, ErrRetriesExhausted) {
			t.Error("permanent failure must not be reported as exhausted")
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 call, got %d", calls.Load())
		}
	})

	t.Run("too many requests is retried", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_, _ = io.WriteString(w, "ok")
		}))
		defer server.Close()

		res := New(server.Client(), WithRetryPolicy(fastPolicy(2)), WithLogger(quietLogger())).
			Fetch(context.Background(), server.URL)
		if !res.OK() || res.Attempts != 2 {
			t.Errorf("expected success on attempt 2, got attempts=%d err=%v", res.Attempts, res.Err)
		}
	})
}

// TestFetchBodyTooLarge tests that oversized pages are rejected whole.
func TestFetchBodyTooLarge(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("a", 100))
	}))
	defer server.Close()

	res := New(server.Client(), WithMaxBodySize(10), WithLogger(quietLogger())).
		Fetch(context.Background(), server.URL)
	if !errors.Is(res.Err, ErrBodyTooLarge) {
		t.Errorf("expected ErrBodyTooLarge, got %v", res.Err)
	}
	if res.Capture != nil {
		t.Error("expected no partial capture")
	}
}

// TestFetchDecodesCharset tests conversion of legacy encodings.
func TestFetchDecodesCharset(t *testing.T) {
	t.Parallel()

	// "Привет" in windows-1251.
	raw := []byte{0xcf, 0xf0, 0xe8, 0xe2, 0xe5, 0xf2}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=windows-1251")
		_, _ = w.Write(raw)
	}))
	defer server.Close()

	res := New(server.Client(), WithLogger(quietLogger())).Fetch(context.Background(), server.URL)
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if res.Capture.Body != "Привет" {
		t.Errorf("expected decoded body, got %q", res.Capture.Body)
	}
	if string(res.Capture.Raw) != string(raw) {
		t.Error("raw bytes must be kept verbatim")
	}
}

// TestFetchContextCancelled tests cancellation during backoff.
func TestFetchContextCancelled(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := New(server.Client(),
		WithRetryPolicy(RetryPolicy{MaxAttempts: 3, BaseDelay: time.Minute}),
		WithLogger(quietLogger()),
	).Fetch(ctx, server.URL)

	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", res.Err)
	}
	if time.Since(start) > 10*time.Second {
		t.Error("backoff ignored cancellation")
	}
}

// TestFetchInvalidURL tests request construction failures.
func TestFetchInvalidURL(t *testing.T) {
	t.Parallel()

	res := New(http.DefaultClient, WithRetryPolicy(fastPolicy(3)), WithLogger(quietLogger())).
		Fetch(context.Background(), "http://bad host/\x7f")
	if res.OK() {
		t.Fatal("expected failure")
	}
	if res.Attempts != 1 {
		t.Errorf("expected no retries for a malformed URL, got %d attempts", res.Attempts)
	}
}

// TestWithRequestDelay tests limiter configuration.
func TestWithRequestDelay(t *testing.T) {
	t.Parallel()

	f := New(http.DefaultClient, WithRequestDelay(0))
	if err := f.limiter.Wait(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	paced := New(http.DefaultClient, WithRequestDelay(time.Hour))
	if !paced.limiter.Allow() {
		t.Error("expected the first request to pass immediately")
	}
	if paced.limiter.Allow() {
		t.Error("expected the second request to be paced")
	}
}

// TestWithLimiter tests that fetchers can share pacing.
func TestWithLimiter(t *testing.T) {
	t.Parallel()

	shared := NewLimiter(time.Hour)
	a := New(http.DefaultClient, WithLimiter(shared))
	b := New(http.DefaultClient, WithLimiter(shared))

	if !a.limiter.Allow() {
		t.Error("expected the first request to pass immediately")
	}
	if b.limiter.Allow() {
		t.Error("expected the second fetcher to wait on the shared limiter")
	}

	if New(http.DefaultClient, WithLimiter(nil)).limiter == nil {
		t.Error("expected a nil limiter to be ignored")
	}
}
