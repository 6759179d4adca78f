package inventory

import (
	"net/netip"
	"strings"

	"github.com/HerbHall/fleetmap/pkg/models"
)

// ExtractRoutableIPs collects candidate IPv4 addresses from an agent's
// telemetry: the primary ip and address fields first, then every interface
// list. Loopback, link-local and non-IPv4 values are dropped. Order is
// first-seen and duplicates are kept. A nil report yields an empty slice.
func ExtractRoutableIPs(t *models.Telemetry) []string {
	ips := []string{}
	if t == nil {
		return ips
	}

	add := func(raw string) {
		ip := strings.TrimSpace(raw)
		if ip == "" || strings.Contains(ip, ":") {
			return
		}
		if strings.HasPrefix(ip, "127.") || strings.HasPrefix(ip, "169.254.") {
			return
		}
		ips = append(ips, ip)
	}

	add(t.IP)
	add(t.Address)
	for _, iface := range t.Interfaces {
		add(iface.Address)
	}
	for _, iface := range t.InterfaceIPs {
		add(iface.Address)
	}
	return ips
}

// NormalizeMAC lower-cases a MAC address and strips everything outside
// [a-z0-9]. An empty result means no MAC is known.
func NormalizeMAC(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isUnroutable reports loopback and link-local IPv4 strings.
func isUnroutable(ip string) bool {
	return strings.HasPrefix(ip, "127.") || strings.HasPrefix(ip, "169.254.")
}

// knownIP reports whether ip carries an address rather than a placeholder.
func knownIP(ip string) bool {
	return ip != "" && ip != models.UnknownIP
}

// knownText reports whether a hostname or vendor value is meaningful.
func knownText(s string) bool {
	return s != "" && s != models.UnknownValue
}

// parseIPv4 parses a well-formed dotted-quad address.
func parseIPv4(ip string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Is4() {
		return netip.Addr{}, false
	}
	return addr, true
}

// ipValue is the numeric sort key of a dotted quad. Anything that does not
// parse sorts first.
func ipValue(ip string) uint32 {
	addr, ok := parseIPv4(ip)
	if !ok {
		return 0
	}
	b := addr.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// prefix24 returns the first three octets of ip followed by a dot.
func prefix24(ip string) (string, bool) {
	if _, ok := parseIPv4(ip); !ok {
		return "", false
	}
	return ip[:strings.LastIndexByte(ip, '.')+1], true
}
