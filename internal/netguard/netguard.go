// Package netguard rejects scan targets that resolve to private or
// internal networks. The scanner fetches arbitrary user-supplied URLs,
// so every target is resolved and checked before any connection.
package netguard

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// BlockedCIDRs are private/internal networks a scan target must never resolve to.
var BlockedCIDRs = func() []*net.IPNet {
	cidrs := []string{
		"127.0.0.0/8",    // loopback
		"10.0.0.0/8",     // RFC1918
		"172.16.0.0/12",  // RFC1918 / Docker bridge networks
		"192.168.0.0/16", // RFC1918
		"169.254.0.0/16", // link-local / cloud metadata
		"0.0.0.0/8",      // unspecified
		"::1/128",        // IPv6 loopback
		"fe80::/10",      // IPv6 link-local
		"fc00::/7",       // IPv6 unique local
	}
	var nets []*net.IPNet
	for _, c := range cidrs {
		_, ipNet, _ := net.ParseCIDR(c)
		nets = append(nets, ipNet)
	}
	return nets
}()

// IsBlocked returns true if the IP falls within a private/internal range.
func IsBlocked(ip net.IP) bool {
	for _, cidr := range BlockedCIDRs {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// CheckTarget validates a user-supplied scan URL: it must be absolute
// http(s) and its host must not resolve to a blocked range. Returns the
// parsed URL on success.
func CheckTarget(ctx context.Context, raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q: only http and https targets can be scanned", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("url has no host")
	}
	if err := checkHost(ctx, u.Hostname()); err != nil {
		return nil, err
	}
	return u, nil
}

// checkHost resolves host and rejects it if any address is internal.
// Every answer is checked: a DNS response mixing public and private
// records is the classic rebinding setup.
func checkHost(ctx context.Context, host string) error {
	if ip := net.ParseIP(host); ip != nil {
		if IsBlocked(ip) {
			return fmt.Errorf("target %s is a private/internal address", host)
		}
		return nil
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("dns lookup for %s failed: %w", host, err)
	}
	for _, addr := range addrs {
		if IsBlocked(addr.IP) {
			return fmt.Errorf("target %s resolves to private/internal address %s", host, addr.IP)
		}
	}
	return nil
}

// SafeDialContext wraps a dialer so the destination is re-checked at
// connection time, closing the window between validation and fetch.
func SafeDialContext(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address: %w", err)
		}
		if ip := net.ParseIP(host); ip != nil {
			if IsBlocked(ip) {
				return nil, fmt.Errorf("refusing to connect to private address %s", ip)
			}
			return dialer.DialContext(ctx, network, addr)
		}
		ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("dns lookup failed: %w", err)
		}
		for _, ipAddr := range ips {
			if IsBlocked(ipAddr.IP) {
				return nil, fmt.Errorf("%s resolves to blocked private address %s", host, ipAddr.IP)
			}
		}
		// All answers are public — connect to the first one.
		return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].IP.String(), port))
	}
}
