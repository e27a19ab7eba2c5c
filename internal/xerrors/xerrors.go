// Package xerrors defines the daemon's error taxonomy. An error that wraps
// one of these sentinels can be classified with errors.Is without string
// matching. Route installation, interface address lookup, LSA address
// parsing and outbound message encoding wrap them; errors from config
// loading, the UDP transport, wire decoding and internal/xcrypt do not, and
// ErrCrypto is not wrapped anywhere.
package xerrors

import "errors"

var (
	// ErrNetwork covers socket I/O failures.
	ErrNetwork = errors.New("network error")
	// ErrSerialization covers malformed JSON on the wire.
	ErrSerialization = errors.New("serialization error")
	// ErrCrypto covers bad keys or truncated IVs.
	ErrCrypto = errors.New("crypto error")
	// ErrConfig covers a missing configuration file or invalid TOML.
	ErrConfig = errors.New("config error")
	// ErrRoute covers bad CIDRs, invalid gateways, or kernel refusals.
	ErrRoute = errors.New("route error")
	// ErrAddrParse covers malformed IP addresses or prefixes.
	ErrAddrParse = errors.New("address parse error")
)
