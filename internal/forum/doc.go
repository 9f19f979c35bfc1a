// Package forum extracts structured thread data from a XenForo-style
// forum page.
//
// Extractor.Extract parses the markup once into a DOM (goquery over
// golang.org/x/net/html) and then runs five independent steps: thread
// title, thread metadata, posts, links and attachments. Each step looks
// for its own structural markers, declared once as compiled cascadia
// selectors in selectors.go. A step that finds nothing leaves its field
// empty; a step that fails is logged and skipped, and the other steps
// still run. Extract never returns an error.
//
// Post bodies are flattened to text including any quoted posts nested in
// them. Quotes are not split out of the quoting post.
package forum
