// Package log provides the slog handler used by darkthread.
//
// SecureHandler wraps any slog.Handler and cleans attribute values before
// they reach the output:
//   - values under sensitive keys (cookie, authorization, token, ...) are
//     replaced with MaskValue
//   - secret-shaped values (bearer tokens, JWTs, private key blocks) are
//     replaced with MaskValue
//   - PII inside string values (e-mail, phone, card numbers, wallet
//     addresses) is redacted in place using the detectors of package pii
//
// IP addresses are left visible because proxy addresses are logged
// routinely.
//
// Usage:
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
package log
