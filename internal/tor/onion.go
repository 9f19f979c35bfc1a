package tor

import (
	"encoding/base32"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	// OnionSuffix is the top-level suffix of hidden service names.
	OnionSuffix = ".onion"

	onionV3Version = 0x03
)

var (
	onionV3Pattern = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)
	onionV2Pattern = regexp.MustCompile(`^[a-z2-7]{16}\.onion$`)
	checksumPrefix = []byte(".onion checksum")
)

// ReferencesOnion reports whether s mentions the .onion suffix anywhere.
// The thread extractor keeps relative links that point into hidden services.
func ReferencesOnion(s string) bool {
	return strings.Contains(strings.ToLower(s), OnionSuffix)
}

// IsOnionHost reports whether host (optionally with a port) is a .onion name.
func IsOnionHost(host string) bool {
	if h, _, found := strings.Cut(host, ":"); found {
		host = h
	}
	return strings.HasSuffix(strings.ToLower(host), OnionSuffix)
}

// IsValidV3Address validates a v3 address: 56 base32 characters encoding
// pubkey(32) || checksum(2) || version(1), where checksum is the first two
// bytes of SHA3-256(".onion checksum" || pubkey || version).
func IsValidV3Address(address string) bool {
	address = strings.ToLower(address)
	if !onionV3Pattern.MatchString(address) {
		return false
	}

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(strings.TrimSuffix(address, OnionSuffix)))
	if err != nil || len(decoded) != 35 {
		return false
	}

	pubkey, checksum, version := decoded[:32], decoded[32:34], decoded[34]
	if version != onionV3Version {
		return false
	}
	want := v3Checksum(pubkey, version)
	return checksum[0] == want[0] && checksum[1] == want[1]
}

func v3Checksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(checksumPrefix)+len(pubkey)+1)
	data = append(data, checksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)
	sum := sha3.Sum256(data)
	return sum[:2]
}

// ValidateTarget parses a thread URL. The URL must be absolute http(s)
// with a host; a .onion host must also be a valid v3 address.
func ValidateTarget(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidTargetURL
	}

	host := strings.ToLower(u.Hostname())
	if !strings.HasSuffix(host, OnionSuffix) {
		return u, nil
	}

	// Subdomains of a service share its address.
	labels := strings.Split(strings.TrimSuffix(host, OnionSuffix), ".")
	service := labels[len(labels)-1] + OnionSuffix
	switch {
	case IsValidV3Address(service):
		return u, nil
	case onionV2Pattern.MatchString(service):
		return nil, ErrV2AddressDeprecated
	default:
		return nil, ErrInvalidOnionAddress
	}
}
