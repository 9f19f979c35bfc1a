// Package main provides the entry point for the darkthread CLI.
//
// darkthread fetches forum threads through Tor, extracts their posts,
// users, links and attachments, flags PII in each post and writes JSON
// and Markdown reports.
//
// Usage:
//
//	darkthread scrape <thread-url>
//	darkthread scrape --list <file>
//	darkthread history
//
// See --help for all available options.
package main

// main is the entry point for darkthread.
func main() {
	Execute()
}
