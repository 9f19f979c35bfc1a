// Package tor provides the anonymizing transport used to fetch thread
// pages.
//
// All traffic goes through a Tor SOCKS5 proxy. The proxy is either an
// external daemon (standalone Tor on 9050 or Tor Browser on 9150, probed
// in that order by SelectProxy) or a daemon started on demand by
// EmbeddedTor via tornago.
//
// CheckConnection performs a SOCKS5 handshake and a CONNECT to a .onion
// name so that a plain SOCKS5 proxy or an unrelated service on the port is
// not mistaken for Tor.
//
// The package also holds the .onion address helpers (suffix checks and v3
// checksum validation) used for target validation and link filtering.
package tor
