package inventory

import "strings"

// Address lists and keywords empirically associated with consumer routers
// and mobile hotspots.
var (
	knownGatewayIPs = map[string]bool{
		"192.168.0.1":   true,
		"192.168.1.1":   true,
		"192.168.1.254": true,
		"10.0.0.1":      true,
		"10.1.1.1":      true,
		"172.16.0.1":    true,
	}

	// A bare ".1" is deliberately absent: it would subsume every entry
	// below and mark any x.y.z.1 host a router.
	gatewaySuffixes = []string{
		".0.1", ".1.1", ".254", ".1.254", ".0.254",
		".43.1", ".137.1", ".2.1", ".10.1", ".248.1", ".225.1", ".42.129",
	}

	gatewayHostKeywords = []string{
		"router", "gateway", "modem", "fiber", "broadband",
		"dlink", "tplink", "netgear", "asus", "wifi",
	}

	gatewayVendorKeywords = []string{
		"router", "gateway", "modem", "fiber", "broadband", "access point",
	}
)

var hostnameSeparators = strings.NewReplacer("-", "", "_", "", " ", "")

// IsGateway guesses whether a device is network infrastructure. Checks run
// in order: well-known gateway address, address suffix, hostname keyword,
// vendor keyword. An unresolved address never matches. Best-effort; false
// positives and negatives are expected.
func IsGateway(ip, hostname, vendor string) bool {
	if !knownIP(ip) {
		return false
	}
	if knownGatewayIPs[ip] {
		return true
	}
	for _, suffix := range gatewaySuffixes {
		if strings.HasSuffix(ip, suffix) {
			return true
		}
	}

	host := strings.ToLower(hostname)
	compact := hostnameSeparators.Replace(host)
	for _, kw := range gatewayHostKeywords {
		if strings.Contains(host, kw) || strings.Contains(compact, kw) {
			return true
		}
	}

	v := strings.ToLower(vendor)
	for _, kw := range gatewayVendorKeywords {
		if strings.Contains(v, kw) {
			return true
		}
	}
	return false
}
