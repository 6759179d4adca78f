package inventory

import (
	"errors"
	"fmt"

	"github.com/HerbHall/fleetmap/pkg/models"
)

var (
	// ErrDuplicateIdentity reports an insert under a key the map already
	// holds. Agent rows sharing a key are resolved before insert, so this
	// only fires on a broken merge.
	ErrDuplicateIdentity = errors.New("duplicate device identity")

	// ErrUnknownSource reports a candidate with an unrecognized source tag.
	ErrUnknownSource = errors.New("unknown device source")
)

// DeviceMap is the canonical device set of one tenant for one cycle, keyed
// by identity and iterated in insertion order.
type DeviceMap struct {
	order      []string
	byKey      map[string]*models.CanonicalDevice
	superseded []Supersession
}

// Supersession records an agent row dropped because another agent row
// claimed the same identity with fresher evidence.
type Supersession struct {
	Key     string
	Kept    string
	Dropped string
}

func newDeviceMap(capacity int) *DeviceMap {
	return &DeviceMap{
		order: make([]string, 0, capacity),
		byKey: make(map[string]*models.CanonicalDevice, capacity),
	}
}

// Len returns the number of canonical devices.
func (m *DeviceMap) Len() int { return len(m.order) }

// Get returns the device stored under key.
func (m *DeviceMap) Get(key string) (models.CanonicalDevice, bool) {
	d, ok := m.byKey[key]
	if !ok {
		return models.CanonicalDevice{}, false
	}
	return *d, true
}

// Superseded lists the agent rows that lost an identity collision.
func (m *DeviceMap) Superseded() []Supersession {
	return m.superseded
}

// Devices returns a copy of every device in insertion order.
func (m *DeviceMap) Devices() []models.CanonicalDevice {
	out := make([]models.CanonicalDevice, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, *m.byKey[key])
	}
	return out
}

func (m *DeviceMap) insert(d *models.CanonicalDevice) error {
	if _, exists := m.byKey[d.Key]; exists {
		return fmt.Errorf("%w: key %q", ErrDuplicateIdentity, d.Key)
	}
	m.byKey[d.Key] = d
	m.order = append(m.order, d.Key)
	return nil
}

// find returns the first device, in insertion order, sharing the
// candidate's MAC or resolved IP.
func (m *DeviceMap) find(c models.DeviceCandidate) *models.CanonicalDevice {
	for _, key := range m.order {
		d := m.byKey[key]
		if d.MAC != "" && c.MAC != "" && d.MAC == c.MAC {
			return d
		}
		if knownIP(c.IP) && d.IP == c.IP {
			return d
		}
	}
	return nil
}

// identityKey is the MAC when known, else the resolved IP, else the agent ID.
func identityKey(c models.DeviceCandidate) string {
	switch {
	case c.MAC != "":
		return c.MAC
	case knownIP(c.IP):
		return c.IP
	default:
		return c.AgentID
	}
}

// Reconcile merges agent and scanner candidates into one canonical device
// map. Agents are inserted first. Each scan is merged into the first
// existing device sharing its MAC or IP; agent devices only take the scan's
// MAC, vendor and router flag, scanner devices take every known scan field
// but keep their MAC. Unmatched scans become new devices. An agent that
// arrives after a matching scanner device takes it over; two agents sharing
// an identity collapse into the fresher one (see Superseded). Loopback and
// link-local sightings are dropped, as are sightings with neither MAC nor
// address.
func Reconcile(agents, scans []models.DeviceCandidate) (*DeviceMap, error) {
	m := newDeviceMap(len(agents) + len(scans))
	for _, c := range agents {
		if err := m.add(c); err != nil {
			return nil, err
		}
	}
	for _, c := range scans {
		if err := m.add(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *DeviceMap) add(c models.DeviceCandidate) error {
	switch c.Source {
	case models.SourceAgent:
		if existing := m.find(c); existing != nil && existing.Source == models.SourceScanner {
			promoteAgent(existing, c)
			return nil
		}
		if held, ok := m.byKey[identityKey(c)]; ok && held.Source == models.SourceAgent {
			m.supersede(held, c)
			return nil
		}
		return m.insert(newCanonical(c))

	case models.SourceScanner:
		if isUnroutable(c.IP) {
			return nil
		}
		if existing := m.find(c); existing != nil {
			mergeScan(existing, c)
			return nil
		}
		if identityKey(c) == "" {
			return nil
		}
		return m.insert(newCanonical(c))

	default:
		return fmt.Errorf("%w: %q", ErrUnknownSource, c.Source)
	}
}

func newCanonical(c models.DeviceCandidate) *models.CanonicalDevice {
	d := &models.CanonicalDevice{
		Key:      identityKey(c),
		TenantID: c.TenantID,
		AgentID:  c.AgentID,
		IP:       c.IP,
		MAC:      c.MAC,
		Vendor:   c.Vendor,
		Hostname: c.Hostname,
		Source:   c.Source,
		IsRouter: c.IsRouter,
		LastSeen: c.Timestamp,
	}
	if d.IP == "" {
		d.IP = models.UnknownIP
	}
	if d.Vendor == "" {
		d.Vendor = models.UnknownValue
	}
	if d.Hostname == "" {
		d.Hostname = models.UnknownValue
	}

	switch c.Source {
	case models.SourceAgent:
		d.Status = c.Status
		d.NoAgent = false
	case models.SourceScanner:
		d.NoAgent = true
	}
	return d
}

// promoteAgent hands a scanner-sourced device over to an agent that
// arrived after it. Agent values win; scanner values fill the gaps.
func promoteAgent(d *models.CanonicalDevice, agent models.DeviceCandidate) {
	d.Source = models.SourceAgent
	d.NoAgent = false
	d.AgentID = agent.AgentID
	d.Status = agent.Status
	if knownIP(agent.IP) {
		d.IP = agent.IP
	}
	if agent.MAC != "" {
		d.MAC = agent.MAC
	}
	if knownText(agent.Hostname) {
		d.Hostname = agent.Hostname
	}
	if knownText(agent.Vendor) {
		d.Vendor = agent.Vendor
	}
	if agent.Timestamp.After(d.LastSeen) {
		d.LastSeen = agent.Timestamp
	}
	d.IsRouter = d.IsRouter || agent.IsRouter
}

// supersede settles two agent rows sharing one identity, typically a
// reinstalled or cloned agent. Online beats offline, then the latest
// heartbeat wins; an exact tie keeps the row already held.
func (m *DeviceMap) supersede(held *models.CanonicalDevice, c models.DeviceCandidate) {
	router := held.IsRouter || c.IsRouter
	if !fresherAgent(c, held) {
		held.IsRouter = router
		m.superseded = append(m.superseded, Supersession{Key: held.Key, Kept: held.AgentID, Dropped: c.AgentID})
		return
	}
	dropped := held.AgentID
	*held = *newCanonical(c)
	held.IsRouter = router
	m.superseded = append(m.superseded, Supersession{Key: held.Key, Kept: c.AgentID, Dropped: dropped})
}

func fresherAgent(c models.DeviceCandidate, d *models.CanonicalDevice) bool {
	cOnline := c.Status == models.AgentOnline
	dOnline := d.Status == models.AgentOnline
	if cOnline != dOnline {
		return cOnline
	}
	return c.Timestamp.After(d.LastSeen)
}

// mergeScan folds a scan into an existing device without clobbering known
// values. The router flag is sticky in both cases.
func mergeScan(d *models.CanonicalDevice, scan models.DeviceCandidate) {
	switch d.Source {
	case models.SourceAgent:
		if d.MAC == "" {
			d.MAC = scan.MAC
		}
		if !knownText(d.Vendor) && knownText(scan.Vendor) {
			d.Vendor = scan.Vendor
		}

	case models.SourceScanner:
		if knownIP(scan.IP) {
			d.IP = scan.IP
		}
		if d.MAC == "" {
			d.MAC = scan.MAC
		}
		if knownText(scan.Vendor) {
			d.Vendor = scan.Vendor
		}
		if knownText(scan.Hostname) {
			d.Hostname = scan.Hostname
		}
		if scan.Timestamp.After(d.LastSeen) {
			d.LastSeen = scan.Timestamp
		}
	}
	d.IsRouter = d.IsRouter || scan.IsRouter
}
