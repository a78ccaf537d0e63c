package http

import (
	"net/http"
	"net/netip"
	"strings"
)

// IPConfig lists the reverse proxies whose forwarding headers are honoured.
// Requests from any other peer are attributed to the socket address.
type IPConfig struct {
	TrustedProxies []string // CIDR ranges
}

// trusts reports whether addr falls inside a trusted proxy range.
// Malformed ranges never match.
func (c *IPConfig) trusts(addr netip.Addr) bool {
	if c == nil || !addr.IsValid() {
		return false
	}

	addr = addr.Unmap()
	for _, cidr := range c.TrustedProxies {
		prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
		if err != nil {
			continue
		}
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ExtractClientIP returns the address QR audit events and rate limits are keyed on.
//
// The socket peer is used unless it is a trusted proxy. Behind a trusted proxy
// the X-Forwarded-For chain is walked from the nearest hop outwards and the
// first untrusted hop is the client, so entries a client prepends itself are
// never reached. X-Real-IP is consulted only when the chain yields nothing.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	peer, ok := peerAddr(r.RemoteAddr)
	if !ok {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}

	if !config.trusts(peer) {
		return peer.String()
	}

	if client, ok := clientFromForwardedFor(r.Header.Values("X-Forwarded-For"), config); ok {
		return client.String()
	}

	if xri, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return xri.Unmap().String()
	}

	return peer.String()
}

// clientFromForwardedFor walks the hops right to left. It stops at the first
// malformed entry; if every hop is trusted the outermost one is returned.
func clientFromForwardedFor(values []string, config *IPConfig) (netip.Addr, bool) {
	if len(values) == 0 {
		return netip.Addr{}, false
	}

	hops := strings.Split(strings.Join(values, ","), ",")

	var outermost netip.Addr
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		addr = addr.Unmap()
		if !config.trusts(addr) {
			return addr, true
		}
		outermost = addr
	}

	return outermost, outermost.IsValid()
}

// peerAddr parses RemoteAddr with or without a port
func peerAddr(remoteAddr string) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(remoteAddr); err == nil {
		return ap.Addr().Unmap(), true
	}
	if addr, err := netip.ParseAddr(remoteAddr); err == nil {
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}
