package fetcher

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"syscall"

	"rss-reader/internal/usecase/fetch"
)

// Resolver looks up every A and AAAA record of a host. *net.Resolver
// satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Guard decides whether a URL may be fetched server-side.
//
// Rules, any failure rejects:
//  1. the URL parses and the scheme is http or https
//  2. no userinfo
//  3. the host is not empty, localhost, *.localhost, *.local or 0.0.0.0
//  4. an IP literal host is a public unicast address
//  5. a domain resolves, and every resolved address is public unicast
//
// When disabled only rules 1 and 2 apply.
type Guard struct {
	resolver Resolver
	enabled  bool
}

// NewGuard returns a guard using resolver, or net.DefaultResolver when nil.
func NewGuard(resolver Resolver, enabled bool) *Guard {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &Guard{resolver: resolver, enabled: enabled}
}

// IsSafeExternalURL reports whether Check accepts rawURL.
func (g *Guard) IsSafeExternalURL(ctx context.Context, rawURL string) bool {
	return g.Check(ctx, rawURL) == nil
}

// Check validates rawURL. Errors wrap fetch.ErrInvalidURL or fetch.ErrUnsafeURL.
func (g *Guard) Check(ctx context.Context, rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("%w: %v", fetch.ErrInvalidURL, err)
	}
	return g.CheckURL(ctx, u)
}

// CheckURL is Check for an already parsed URL.
func (g *Guard) CheckURL(ctx context.Context, u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q not allowed", fetch.ErrInvalidURL, u.Scheme)
	}
	if u.User != nil {
		return fmt.Errorf("%w: embedded credentials", fetch.ErrUnsafeURL)
	}
	if !g.enabled {
		if u.Hostname() == "" {
			return fmt.Errorf("%w: empty hostname", fetch.ErrInvalidURL)
		}
		return nil
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	switch {
	case host == "":
		return fmt.Errorf("%w: empty hostname", fetch.ErrInvalidURL)
	case host == "localhost", host == "0.0.0.0",
		strings.HasSuffix(host, ".localhost"), strings.HasSuffix(host, ".local"):
		return fmt.Errorf("%w: host %q is local", fetch.ErrUnsafeURL, host)
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if !isPublicUnicast(addr) {
			return fmt.Errorf("%w: address %s is not public", fetch.ErrUnsafeURL, addr)
		}
		return nil
	}

	addrs, err := g.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("%w: resolve %s: %v", fetch.ErrUnsafeURL, host, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("%w: %s has no addresses", fetch.ErrUnsafeURL, host)
	}
	for _, a := range addrs {
		addr, ok := netip.AddrFromSlice(a.IP)
		if !ok || a.Zone != "" || !isPublicUnicast(addr) {
			return fmt.Errorf("%w: %s resolves to non-public address %s", fetch.ErrUnsafeURL, host, a.String())
		}
	}
	return nil
}

// nonPublic lists every special-purpose range that is not globally
// routable unicast.
var nonPublic = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"), // carrier-grade NAT
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("192.88.99.0/24"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("240.0.0.0/4"), // reserved and broadcast
	netip.MustParsePrefix("::/128"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("64:ff9b::/96"),
	netip.MustParsePrefix("100::/64"),
	netip.MustParsePrefix("2001::/32"), // Teredo
	netip.MustParsePrefix("2001:db8::/32"),
	netip.MustParsePrefix("2002::/16"), // 6to4
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("ff00::/8"),
}

func isPublicUnicast(addr netip.Addr) bool {
	if !addr.IsValid() || addr.Zone() != "" {
		return false
	}
	addr = addr.Unmap()
	for _, p := range nonPublic {
		if p.Contains(addr) {
			return false
		}
	}
	return true
}

// dialControl refuses connections to non-public addresses. It runs after
// DNS resolution inside the dialer, so a host that re-resolves to an
// internal address between Check and connect is still rejected.
func dialControl(_, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", fetch.ErrUnsafeURL, address, err)
	}
	if !isPublicUnicast(ap.Addr()) {
		return fmt.Errorf("%w: dial %s", fetch.ErrUnsafeURL, address)
	}
	return nil
}
