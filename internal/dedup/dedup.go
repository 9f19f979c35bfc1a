package dedup

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Deduplicator tracks fingerprints of values seen during one run.
type Deduplicator struct {
	seen map[uint64]struct{}
}

// New returns an empty Deduplicator.
func New() *Deduplicator {
	return &Deduplicator{seen: make(map[uint64]struct{})}
}

// Fingerprint returns the 64-bit fingerprint of item.
// Values that cannot be encoded as JSON (channels, functions) fall back
// to their Go-syntax representation.
func Fingerprint(item any) uint64 {
	data, err := json.Marshal(item)
	if err != nil {
		return xxhash.Sum64String(fmt.Sprintf("%#v", item))
	}
	return xxhash.Sum64(data)
}

// ShortHash formats the first 8 hex digits of a fingerprint for logs.
func ShortHash(fp uint64) string {
	return fmt.Sprintf("%016x", fp)[:8]
}

// IsNew records item's fingerprint and reports whether it was unseen.
// The first call for a given content returns true; every later call with
// byte-identical serialized content returns false.
func (d *Deduplicator) IsNew(item any) bool {
	return d.IsNewFingerprint(Fingerprint(item))
}

// IsNewFingerprint is IsNew for a fingerprint computed by the caller.
func (d *Deduplicator) IsNewFingerprint(fp uint64) bool {
	if _, ok := d.seen[fp]; ok {
		return false
	}
	d.seen[fp] = struct{}{}
	return true
}

// Len returns the number of distinct fingerprints seen.
func (d *Deduplicator) Len() int {
	return len(d.seen)
}
