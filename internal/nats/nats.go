// Package nats mirrors inventory publications onto NATS subjects scoped by
// tenant: <prefix>.<tenant>.<event>. Consumers subscribe to
// "<prefix>.<tenant>.>" to follow one tenant.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/HerbHall/fleetmap/internal/inventory"
	"github.com/HerbHall/fleetmap/pkg/plugin"
	natsgo "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin          = (*Module)(nil)
	_ plugin.EventSubscriber = (*Module)(nil)
	_ plugin.HealthChecker   = (*Module)(nil)
)

var errInvalidTenant = errors.New("tenant id cannot form a subject token")

var messagesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fleetmap_nats_messages_total",
		Help: "Inventory events handed to NATS by result (published, failed).",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(messagesTotal)
}

// conn is the slice of *nats.Conn the module uses. The client buffers
// outgoing messages and reconnects on its own, so Publish does not block
// on a slow server.
type conn interface {
	Publish(subject string, data []byte) error
	IsConnected() bool
}

// Module implements the NATS publisher plugin.
type Module struct {
	logger *zap.Logger
	cfg    Config

	mu sync.RWMutex
	nc *natsgo.Conn
	pc conn
}

// New creates a new NATS publisher plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "nats",
		Version:      "0.1.0",
		Description:  "Publishes tenant dashboard events to NATS subjects",
		Dependencies: []string{"inventory"},
		Roles:        []string{"notification"},
		APIVersion:   plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.cfg = DefaultConfig()

	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return err
		}
		m.cfg.SubjectPrefix = strings.Trim(m.cfg.SubjectPrefix, ".")
		if m.cfg.SubjectPrefix == "" {
			m.cfg.SubjectPrefix = DefaultConfig().SubjectPrefix
		}
		if m.cfg.Timeout <= 0 {
			m.cfg.Timeout = DefaultConfig().Timeout
		}
	}

	m.logger.Info("nats module initialized",
		zap.String("url", m.cfg.URL),
		zap.String("subject_prefix", m.cfg.SubjectPrefix),
	)
	return nil
}

func (m *Module) Start(_ context.Context) error {
	if m.cfg.URL == "" {
		m.logger.Info("nats module started (no-op: no server configured)")
		return nil
	}

	opts := []natsgo.Option{
		natsgo.Name(m.cfg.Name),
		natsgo.Timeout(m.cfg.Timeout),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				m.logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			m.logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	if m.cfg.Username != "" {
		opts = append(opts, natsgo.UserInfo(m.cfg.Username, m.cfg.Password))
	}

	// With RetryOnFailedConnect an unreachable server is not an error;
	// the client keeps dialing in the background.
	nc, err := natsgo.Connect(m.cfg.URL, opts...)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.nc = nc
	m.pc = nc
	m.mu.Unlock()

	m.logger.Info("nats client started", zap.String("url", m.cfg.URL))
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nc == nil {
		return nil
	}
	if err := m.nc.Drain(); err != nil {
		m.logger.Warn("nats drain failed", zap.Error(err))
		m.nc.Close()
	}
	m.nc = nil
	m.pc = nil
	return nil
}

// Subscriptions implements plugin.EventSubscriber.
func (m *Module) Subscriptions() []plugin.Subscription {
	return []plugin.Subscription{
		{Topic: inventory.TopicDashboardUpdate, Handler: m.handleEvent},
		{Topic: inventory.TopicVisualizerRefresh, Handler: m.handleEvent},
	}
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	if m.cfg.URL == "" {
		return plugin.HealthStatus{Status: "healthy", Message: "no server configured (no-op mode)"}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pc == nil || !m.pc.IsConnected() {
		return plugin.HealthStatus{Status: "degraded", Message: "not connected to NATS"}
	}
	return plugin.HealthStatus{Status: "healthy", Message: "connected to " + m.cfg.URL}
}

// Subject returns the NATS subject for a tenant event.
func (m *Module) Subject(tenantID, eventName string) (string, error) {
	token := subjectToken(tenantID)
	if token == "" {
		return "", errInvalidTenant
	}
	return m.cfg.SubjectPrefix + "." + token + "." + eventName, nil
}

// subjectToken maps a tenant ID onto a single subject token. Separators,
// wildcards and whitespace become underscores.
func subjectToken(s string) string {
	if strings.Trim(s, " \t\r\n") == "" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

func (m *Module) handleEvent(_ context.Context, event plugin.Event) {
	m.mu.RLock()
	pc := m.pc
	m.mu.RUnlock()
	if pc == nil {
		return
	}

	te, ok := event.Payload.(inventory.TenantEvent)
	if !ok {
		return
	}
	subject, err := m.Subject(te.TenantID, te.Event)
	if err != nil {
		m.logger.Warn("dropping nats event", zap.String("tenant_id", te.TenantID), zap.Error(err))
		return
	}

	data, err := json.Marshal(te.Payload)
	if err != nil {
		m.logger.Warn("failed to marshal NATS payload", zap.String("subject", subject), zap.Error(err))
		return
	}

	if err := pc.Publish(subject, data); err != nil {
		messagesTotal.WithLabelValues("failed").Inc()
		m.logger.Warn("nats publish failed", zap.String("subject", subject), zap.Error(err))
		return
	}
	messagesTotal.WithLabelValues("published").Inc()
	m.logger.Debug("nats event published", zap.String("subject", subject), zap.Int("bytes", len(data)))
}
