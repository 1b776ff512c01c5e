package urlutil

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

var privateRanges []*net.IPNet

func init() {
	cidrs := []string{
		"127.0.0.0/8",
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"100.64.0.0/10",
		"0.0.0.0/8",
		"224.0.0.0/4",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
		"ff00::/8",
	}
	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in private ranges: %s", cidr))
		}
		privateRanges = append(privateRanges, ipNet)
	}
}

// IsPrivateIP reports whether ip is loopback, private, link-local or multicast.
func IsPrivateIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, ipNet := range privateRanges {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// CheckPageURL validates a URL handed to the capturer. Only http and https
// are accepted. When denyPrivate is set, IP literals in private ranges and
// "localhost" are rejected; domain names are not resolved.
func CheckPageURL(raw string, denyPrivate bool) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	if !denyPrivate {
		return nil
	}

	host := strings.ToLower(u.Hostname())
	if host == "localhost" {
		return fmt.Errorf("host %q is not allowed", host)
	}
	if IsPrivateIP(net.ParseIP(host)) {
		return fmt.Errorf("host resolves to private/reserved IP address: %s", host)
	}
	return nil
}
