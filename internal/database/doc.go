// Package database keeps the history of scrape runs in SQLite.
//
// ThreadDB stores one row per run with its summary counts and the full
// report as JSON, the posts seen on each thread, and per-run PII totals.
// Posts are keyed by source URL and content fingerprint, so scraping the
// same thread again only adds posts that were not stored before.
//
// The driver is modernc.org/sqlite, which needs no cgo. The database is a
// single file in the XDG data directory and runs in WAL mode.
package database
