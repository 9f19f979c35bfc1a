// Package dedup reports whether a structured value has been seen before.
//
// A Deduplicator fingerprints a value by serializing it to JSON and
// hashing the bytes with xxHash64. It keeps the fingerprints it has seen
// for its own lifetime; creating a new Deduplicator resets it.
//
// Serialization follows encoding/json: struct fields keep declaration
// order and map keys are sorted, so equal maps always share a
// fingerprint. Slices stay order-sensitive, and two values with equal
// elements in a different order are treated as distinct.
//
// A Deduplicator is not safe for concurrent use. Callers sharing one
// across goroutines must serialize calls to IsNew.
package dedup
