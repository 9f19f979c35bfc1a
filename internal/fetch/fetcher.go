package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/darkthread/internal/model"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

const (
	// DefaultUserAgent is the browser identity sent with requests.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; rv:91.0) Gecko/20100101 Firefox/91.0"

	// DefaultMaxBodySize bounds a thread page.
	DefaultMaxBodySize = 10 * 1024 * 1024

	acceptHeader         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	acceptLanguageHeader = "en-US,en;q=0.5"
)

// Result is the tagged outcome of Fetch.
// Exactly one of Capture and Err is set.
type Result struct {
	Capture  *model.RawCapture
	Attempts int
	Err      error
}

// OK reports whether the fetch produced a capture.
func (r Result) OK() bool {
	return r.Err == nil && r.Capture != nil
}

// Fetcher retrieves single pages with retries and pacing.
type Fetcher struct {
	client      *http.Client
	policy      RetryPolicy
	limiter     *rate.Limiter
	userAgent   string
	maxBodySize int64
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(f *Fetcher) {
		f.policy = p
	}
}

// WithRequestDelay sets the minimum spacing between requests.
// Zero disables pacing.
func WithRequestDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.limiter = NewLimiter(d)
	}
}

// WithLimiter makes the Fetcher wait on a limiter shared with other
// fetchers, so that pacing holds across a whole batch.
func WithLimiter(l *rate.Limiter) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.limiter = l
		}
	}
}

// NewLimiter returns a limiter allowing one request per d.
// Zero or negative d allows every request.
func NewLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the largest body accepted, in bytes.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithClock sets the function used to timestamp captures.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		f.now = now
	}
}

// New returns a Fetcher using client. The client decides the transport;
// in production it comes from tor.Client.HTTPClientWithConfig.
func New(client *http.Client, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      client,
		policy:      DefaultRetryPolicy(),
		limiter:     rate.NewLimiter(rate.Inf, 1),
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.policy.MaxAttempts < 1 {
		f.policy.MaxAttempts = 1
	}
	return f
}

// Fetch retrieves url, retrying transient failures per the policy.
// Cancelling ctx stops both in-flight requests and backoff waits.
func (f *Fetcher) Fetch(ctx context.Context, url string) Result {
	var lastErr error

	for attempt := 1; attempt <= f.policy.MaxAttempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return Result{Attempts: attempt - 1, Err: fmt.Errorf("failed to wait for rate limiter: %w", err)}
		}

		capture, err := f.fetchOnce(ctx, url)
		if err == nil {
			if attempt > 1 {
				f.logger.Info("fetch succeeded after retry", "url", url, "attempt", attempt)
			}
			return Result{Capture: capture, Attempts: attempt}
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{Attempts: attempt, Err: fmt.Errorf("failed to fetch %s: %w", url, ctxErr)}
		}
		if IsPermanent(err) {
			return Result{Attempts: attempt, Err: fmt.Errorf("failed to fetch %s: %w", url, err)}
		}

		f.logger.Warn("fetch attempt failed",
			"url", url,
			"attempt", fmt.Sprintf("%d/%d", attempt, f.policy.MaxAttempts),
			"error", err,
		)

		if attempt == f.policy.MaxAttempts {
			break
		}
		if err := sleep(ctx, f.policy.Delay(attempt)); err != nil {
			return Result{Attempts: attempt, Err: fmt.Errorf("failed to fetch %s: %w", url, err)}
		}
	}

	return Result{
		Attempts: f.policy.MaxAttempts,
		Err:      fmt.Errorf("failed to fetch %s after %d attempts: %w: %w", url, f.policy.MaxAttempts, ErrRetriesExhausted, lastErr),
	}
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (*model.RawCapture, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", acceptLanguageHeader)
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024)) //nolint:errcheck // drain for connection reuse
		serr := &StatusError{StatusCode: resp.StatusCode}
		if isPermanentStatus(resp.StatusCode) {
			return nil, permanent(serr)
		}
		return nil, serr
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(raw)) > f.maxBodySize {
		return nil, permanent(fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, f.maxBodySize))
	}

	return model.NewRawCapture(url, resp.StatusCode, resp.Header, raw, decode(raw, resp.Header.Get("Content-Type")), f.now()), nil
}

// isPermanentStatus reports 4xx responses other than timeout and rate limiting.
func isPermanentStatus(code int) bool {
	return code >= 400 && code < 500 &&
		code != http.StatusRequestTimeout &&
		code != http.StatusTooManyRequests
}

// decode converts a non-UTF-8 body to UTF-8. It returns "" when raw can be
// used as-is.
func decode(raw []byte, contentType string) string {
	enc, name, _ := charset.DetermineEncoding(raw, contentType)
	if name == "utf-8" || enc == nil {
		return ""
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return ""
	}
	return string(out)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
