package utils

import (
	"net"
	"strings"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
)

// TrustProxyHeaders gates whether forwarded-for style headers are believed.
// Off by default: a storefront exposed directly to the internet must not let
// clients spoof the address the rate limiters key on.
var TrustProxyHeaders atomic.Bool

var privateNets = func() []*net.IPNet {
	nets := make([]*net.IPNet, 0, 7)
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	} {
		_, block, err := net.ParseCIDR(cidr)
		if err == nil {
			nets = append(nets, block)
		}
	}
	return nets
}()

// ClientIP resolves the caller's address. With proxy trust enabled it walks
// the usual CDN and reverse-proxy headers, preferring the first public hop;
// otherwise it reports the socket peer.
func ClientIP(c *fiber.Ctx) string {
	if !TrustProxyHeaders.Load() {
		return c.IP()
	}

	if ip := validIPHeader(c, "CF-Connecting-IP"); ip != "" {
		return ip
	}
	if ip := firstForwardedHop(c.Get("X-Forwarded-For")); ip != "" {
		return ip
	}
	for _, header := range []string{"X-Real-IP", "X-Client-IP"} {
		if ip := validIPHeader(c, header); ip != "" {
			return ip
		}
	}
	return c.IP()
}

func validIPHeader(c *fiber.Ctx, header string) string {
	raw := strings.TrimSpace(c.Get(header))
	if raw == "" || net.ParseIP(raw) == nil {
		return ""
	}
	return raw
}

// firstForwardedHop picks the first public address from a comma-separated
// X-Forwarded-For chain, falling back to the first parseable one so requests
// that only ever traversed private networks still get a stable key.
func firstForwardedHop(chain string) string {
	if chain == "" {
		return ""
	}
	fallback := ""
	for _, hop := range strings.Split(chain, ",") {
		candidate := strings.TrimSpace(hop)
		if candidate == "" || strings.EqualFold(candidate, "unknown") {
			continue
		}
		parsed := net.ParseIP(candidate)
		if parsed == nil {
			continue
		}
		if IsPublicIP(parsed) {
			return candidate
		}
		if fallback == "" {
			fallback = candidate
		}
	}
	return fallback
}

// IsPublicIP reports whether ip is a routable public address.
func IsPublicIP(ip net.IP) bool {
	if ip == nil || ip.IsLoopback() || ip.IsUnspecified() {
		return false
	}
	for _, block := range privateNets {
		if block.Contains(ip) {
			return false
		}
	}
	return true
}
