// Package pipeline runs the scrape of one thread as an ordered list of
// steps and runs many threads concurrently.
//
// Each target gets its own Run, which is passed by pointer through the
// steps and carries everything the run produces: the capture, the
// extracted document, the report and the artifact paths. The default
// order is
//
//	fetch -> archive raw -> dedup check -> extract -> save parsed ->
//	synthesize -> write reports -> persist history
//
// A capture whose body was already seen in this process stops the run
// after the dedup check and marks it as a duplicate. Fetch and storage
// failures end the run with an error; a failed history write is logged
// and the run still succeeds.
package pipeline
