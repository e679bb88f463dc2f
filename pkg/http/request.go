package http

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

type clientIPKey struct{}

// IPConfig lists the CIDR ranges of reverse proxies allowed to report the
// client address through X-Forwarded-For or X-Real-IP.
type IPConfig struct {
	TrustedProxies []string
}

// proxySet is IPConfig with its ranges parsed. Malformed entries are dropped.
type proxySet []netip.Prefix

func newProxySet(config *IPConfig) proxySet {
	if config == nil {
		return nil
	}
	set := make(proxySet, 0, len(config.TrustedProxies))
	for _, cidr := range config.TrustedProxies {
		if prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr)); err == nil {
			set = append(set, prefix.Masked())
		}
	}
	return set
}

func (s proxySet) trusts(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range s {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIPMiddleware resolves the client address once per request and
// stores it in the context for ClientIP.
func ClientIPMiddleware(config *IPConfig) func(next http.Handler) http.Handler {
	proxies := newProxySet(config)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := proxies.clientIP(r)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientIPKey{}, ip)))
		})
	}
}

// ClientIP returns the address stored by ClientIPMiddleware, or "" outside it.
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// ExtractClientIP resolves the client address of r.
//
// Forwarding headers are only read when the peer itself is a trusted proxy.
// X-Forwarded-For is walked from the right and the first hop that is not a
// trusted proxy wins, since everything left of it was supplied by the client.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	return newProxySet(config).clientIP(r)
}

func (s proxySet) clientIP(r *http.Request) string {
	peer := remoteAddr(r)
	addr, err := netip.ParseAddr(peer)
	if err != nil || !s.trusts(addr) {
		return peer
	}

	if hop, ok := s.firstUntrustedHop(r.Header.Values("X-Forwarded-For")); ok {
		return hop
	}
	if real, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return real.Unmap().String()
	}
	return peer
}

func (s proxySet) firstUntrustedHop(headers []string) (string, bool) {
	var hops []string
	for _, h := range headers {
		hops = append(hops, strings.Split(h, ",")...)
	}

	var leftmost netip.Addr
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			// Anything left of a garbled hop cannot be attributed.
			break
		}
		leftmost = addr
		if !s.trusts(addr) {
			return addr.Unmap().String(), true
		}
	}
	if leftmost.IsValid() {
		return leftmost.Unmap().String(), true
	}
	return "", false
}

func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
