// Package fetch is the network boundary of the extraction pipeline.
//
// A Fetcher issues GET requests through an http.Client (normally one
// routed through Tor by package tor) and applies a RetryPolicy: a bounded
// number of attempts with a linearly growing delay between them. Fetch
// never panics and never returns a partial page. It returns a Result that
// either carries a complete model.RawCapture or the last error, tagged
// with ErrRetriesExhausted when every attempt failed.
//
// A token-bucket limiter from golang.org/x/time/rate paces requests so
// that several fetchers sharing one Fetcher stay polite to the service.
package fetch
