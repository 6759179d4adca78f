package inventory

import "github.com/HerbHall/fleetmap/pkg/models"

// DetectSubnetPrefix infers the tenant's LAN as a three-octet prefix with a
// trailing dot, e.g. "192.168.1.". The first router with a well-formed
// IPv4 address decides; failing that, the first online agent with a
// resolved address. ok is false when neither exists and nothing should be
// filtered.
func DetectSubnetPrefix(devices *DeviceMap, agents []models.DeviceCandidate) (prefix string, ok bool) {
	if devices != nil {
		for _, key := range devices.order {
			d := devices.byKey[key]
			if !d.IsRouter {
				continue
			}
			if p, ok := prefix24(d.IP); ok {
				return p, true
			}
		}
	}

	for i := range agents {
		a := &agents[i]
		if a.Status != models.AgentOnline || !knownIP(a.IP) {
			continue
		}
		if p, ok := prefix24(a.IP); ok {
			return p, true
		}
	}
	return "", false
}
