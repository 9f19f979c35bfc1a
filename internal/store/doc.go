// Package store writes run artifacts to the filesystem.
//
// A store root holds two directories: data/ for the raw capture and the
// parsed document, and reports/ for the rendered reports. Every file name
// embeds the capture time in Unix milliseconds, so repeated runs against
// the same thread never overwrite each other:
//
//	output/data/raw_1748779200000.html
//	output/data/parsed_1748779200000.json
//	output/reports/report_1748779200000.json
//	output/reports/report_1748779200000.md
package store
