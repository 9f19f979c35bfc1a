package fetch

import "time"

// Defaults for RetryPolicy.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 5 * time.Second
)

// RetryPolicy bounds how a fetch is retried.
// After failed attempt n (1-based) the fetcher waits BaseDelay*n before
// the next one, so the default policy waits 5s and then 10s.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy returns 3 attempts with a 5 second base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// Delay returns the wait after failed attempt n.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return p.BaseDelay * time.Duration(attempt)
}

// Schedule returns every delay the policy can produce, in order.
func (p RetryPolicy) Schedule() []time.Duration {
	if p.MaxAttempts <= 1 {
		return nil
	}
	delays := make([]time.Duration, 0, p.MaxAttempts-1)
	for n := 1; n < p.MaxAttempts; n++ {
		delays = append(delays, p.Delay(n))
	}
	return delays
}

// Validate checks the policy's bounds.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 || p.BaseDelay < 0 {
		return ErrInvalidRetryPolicy
	}
	return nil
}
