package tor

import "errors"

var (
	// ErrProxyNotTor is returned when the proxy does not behave like Tor's SOCKS port.
	ErrProxyNotTor = errors.New("proxy is not a Tor SOCKS5 proxy")

	// ErrProxyCannotConnect is returned when the proxy port refuses connections.
	ErrProxyCannotConnect = errors.New("cannot connect to Tor proxy")

	// ErrProxyTimeout is returned when the proxy does not answer in time.
	ErrProxyTimeout = errors.New("timeout connecting to Tor proxy")

	// ErrInvalidProxyAddress is returned for a malformed host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrProxyUnavailable is returned when no candidate proxy is usable.
	ErrProxyUnavailable = errors.New("no Tor proxy available: start tor or Tor Browser, or use --embedded-tor")

	// ErrEmbeddedNotRunning is returned when a client is requested from a stopped daemon.
	ErrEmbeddedNotRunning = errors.New("embedded Tor daemon is not running")

	// ErrInvalidOnionAddress is returned for a .onion host that fails v3 validation.
	ErrInvalidOnionAddress = errors.New("invalid onion address")

	// ErrV2AddressDeprecated is returned for 16-character v2 addresses.
	ErrV2AddressDeprecated = errors.New("v2 onion addresses are deprecated and no longer functional")

	// ErrInvalidTargetURL is returned when a target is not an absolute http(s) URL.
	ErrInvalidTargetURL = errors.New("invalid target URL: expected http:// or https:// with a host")
)

// ProxyStatus is the outcome of probing a proxy.
type ProxyStatus int

const (
	// ProxyStatusOK means the proxy accepted a SOCKS5 CONNECT to a .onion name.
	ProxyStatusOK ProxyStatus = iota
	// ProxyStatusWrongType means something answered, but not as Tor.
	ProxyStatusWrongType
	// ProxyStatusCannotConnect means the TCP connection failed.
	ProxyStatusCannotConnect
	// ProxyStatusTimeout means the probe ran out of time.
	ProxyStatusTimeout
)

// String returns a readable status.
func (s ProxyStatus) String() string {
	switch s {
	case ProxyStatusOK:
		return "OK"
	case ProxyStatusWrongType:
		return "wrong type (not Tor)"
	case ProxyStatusCannotConnect:
		return "cannot connect"
	case ProxyStatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Err returns the sentinel error for s, or nil for ProxyStatusOK.
func (s ProxyStatus) Err() error {
	switch s {
	case ProxyStatusOK:
		return nil
	case ProxyStatusWrongType:
		return ErrProxyNotTor
	case ProxyStatusTimeout:
		return ErrProxyTimeout
	default:
		return ErrProxyCannotConnect
	}
}
