package netutil

import "net"

// MustParseCIDRs parses the entries that are valid CIDR notation and
// silently skips the rest.
func MustParseCIDRs(cidrs []string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, s := range cidrs {
		if _, n, err := net.ParseCIDR(s); err == nil {
			out = append(out, n)
		}
	}
	return out
}
