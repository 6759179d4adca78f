package inventory

import (
	"slices"
	"strings"

	"github.com/HerbHall/fleetmap/pkg/models"
)

// Classification is the filtered, IP-ordered device list of a cycle split
// into disjoint buckets. AllDevices is the union of the four buckets.
type Classification struct {
	Prefix         string // Empty when no subnet was detected
	AllDevices     []models.CanonicalDevice
	ActiveAgents   []models.CanonicalDevice
	InactiveAgents []models.CanonicalDevice
	Routers        []models.CanonicalDevice
	UnknownDevices []models.CanonicalDevice
}

// Summary returns the bucket counts.
func (c Classification) Summary() models.DashboardSummary {
	return models.DashboardSummary{
		All:      len(c.AllDevices),
		Active:   len(c.ActiveAgents),
		Inactive: len(c.InactiveAgents),
		Unknown:  len(c.UnknownDevices),
		Routers:  len(c.Routers),
	}
}

// Classify keeps the devices inside the detected subnet (all devices when
// ok is false), sorts them by numeric IP and buckets them: online agents,
// other agents, routers, then everything else.
func Classify(devices *DeviceMap, prefix string, ok bool) Classification {
	var all []models.CanonicalDevice
	if devices != nil {
		all = devices.Devices()
	}
	if ok {
		all = slices.DeleteFunc(all, func(d models.CanonicalDevice) bool {
			return !strings.HasPrefix(d.IP, prefix)
		})
	} else {
		prefix = ""
	}

	slices.SortStableFunc(all, func(a, b models.CanonicalDevice) int {
		va, vb := ipValue(a.IP), ipValue(b.IP)
		switch {
		case va < vb:
			return -1
		case va > vb:
			return 1
		}
		return 0
	})

	c := Classification{
		Prefix:         prefix,
		AllDevices:     nonNil(all),
		ActiveAgents:   []models.CanonicalDevice{},
		InactiveAgents: []models.CanonicalDevice{},
		Routers:        []models.CanonicalDevice{},
		UnknownDevices: []models.CanonicalDevice{},
	}
	for _, d := range c.AllDevices {
		switch {
		case d.Source == models.SourceAgent && d.Status == models.AgentOnline:
			c.ActiveAgents = append(c.ActiveAgents, d)
		case d.Source == models.SourceAgent:
			c.InactiveAgents = append(c.InactiveAgents, d)
		case d.IsRouter:
			c.Routers = append(c.Routers, d)
		default:
			c.UnknownDevices = append(c.UnknownDevices, d)
		}
	}
	return c
}

func nonNil(devices []models.CanonicalDevice) []models.CanonicalDevice {
	if devices == nil {
		return []models.CanonicalDevice{}
	}
	return devices
}
