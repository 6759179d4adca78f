// Package mqtt mirrors inventory publications to an MQTT broker under
// per-tenant topics, so integrations can follow a tenant's dashboard
// without polling.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/HerbHall/fleetmap/internal/inventory"
	"github.com/HerbHall/fleetmap/pkg/plugin"
	"github.com/codeGROOVE-dev/retry"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin          = (*Module)(nil)
	_ plugin.EventSubscriber = (*Module)(nil)
	_ plugin.HealthChecker   = (*Module)(nil)
)

var errNotConnected = errors.New("not connected to MQTT broker")

var messagesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fleetmap_mqtt_messages_total",
		Help: "Inventory events handed to the MQTT broker by result (published, failed, dropped).",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(messagesTotal)
}

// publisher is the slice of the paho client the module uses.
type publisher interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload any) pahomqtt.Token
}

// outbound is one message waiting for the publish worker.
type outbound struct {
	topic   string
	payload []byte
}

// Module implements the MQTT publisher plugin. Bus handlers only enqueue;
// a single worker publishes with retries so a slow broker never stalls a
// reconciliation cycle.
type Module struct {
	logger *zap.Logger
	cfg    Config

	mu     sync.RWMutex
	client publisher
	conn   pahomqtt.Client

	queue  chan outbound
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a new MQTT publisher plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "mqtt",
		Version:      "0.1.0",
		Description:  "Publishes tenant dashboard events to an MQTT broker",
		Dependencies: []string{"inventory"},
		Roles:        []string{"notification"},
		APIVersion:   plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.cfg = DefaultConfig()

	if deps.Config != nil {
		if u := deps.Config.GetString("broker_url"); u != "" {
			m.cfg.BrokerURL = u
		}
		if u := deps.Config.GetString("username"); u != "" {
			m.cfg.Username = u
		}
		if p := deps.Config.GetString("password"); p != "" {
			m.cfg.Password = p
		}
		if c := deps.Config.GetString("client_id"); c != "" {
			m.cfg.ClientID = c
		}
		if t := deps.Config.GetString("topic_prefix"); t != "" {
			m.cfg.TopicPrefix = strings.TrimSuffix(t, "/")
		}
		if deps.Config.IsSet("qos") {
			m.cfg.QoS = byte(deps.Config.GetInt("qos"))
		}
		if deps.Config.IsSet("retain") {
			m.cfg.Retain = deps.Config.GetBool("retain")
		}
		if d := deps.Config.GetDuration("timeout"); d > 0 {
			m.cfg.Timeout = d
		}
		if n := deps.Config.GetInt("publish_attempts"); n > 0 {
			m.cfg.PublishAttempts = n
		}
		if d := deps.Config.GetDuration("retry_delay"); d > 0 {
			m.cfg.RetryDelay = d
		}
		if n := deps.Config.GetInt("queue_size"); n > 0 {
			m.cfg.QueueSize = n
		}
	}
	if m.cfg.QoS > 2 {
		return fmt.Errorf("mqtt qos must be 0, 1 or 2, got %d", m.cfg.QoS)
	}

	m.queue = make(chan outbound, m.cfg.QueueSize)

	if m.cfg.BrokerURL == "" {
		m.logger.Warn("MQTT broker URL not configured; events will be dropped",
			zap.String("component", "mqtt"),
		)
	}

	m.logger.Info("mqtt module initialized",
		zap.String("broker_url", m.cfg.BrokerURL),
		zap.String("client_id", m.cfg.ClientID),
		zap.String("topic_prefix", m.cfg.TopicPrefix),
		zap.Uint8("qos", m.cfg.QoS),
		zap.Bool("retain", m.cfg.Retain),
	)
	return nil
}

func (m *Module) Start(ctx context.Context) error {
	if m.cfg.BrokerURL == "" {
		m.logger.Info("mqtt module started (no-op: no broker configured)")
		return nil
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(m.cfg.BrokerURL).
		SetClientID(m.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(m.cfg.Timeout)

	if m.cfg.Username != "" {
		opts.SetUsername(m.cfg.Username)
		opts.SetPassword(m.cfg.Password) //nolint:gosec // G101: config field
	}

	conn := pahomqtt.NewClient(opts)
	token := conn.Connect()

	switch {
	case !token.WaitTimeout(m.cfg.Timeout):
		m.logger.Warn("mqtt connection timed out; will reconnect in background")
	case token.Error() != nil:
		m.logger.Warn("mqtt connection failed; will reconnect in background",
			zap.Error(token.Error()),
		)
	default:
		m.logger.Info("mqtt connected to broker",
			zap.String("broker_url", m.cfg.BrokerURL),
		)
	}

	m.mu.Lock()
	m.conn = conn
	m.client = conn
	m.mu.Unlock()

	m.startWorker(ctx)
	return nil
}

// startWorker launches the publish loop.
func (m *Module) startWorker(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	go m.run(ctx)
}

func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil && m.conn.IsConnected() {
		m.conn.Disconnect(250)
		m.logger.Info("mqtt disconnected")
	}
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
	if m.cfg.BrokerURL == "" {
		return plugin.HealthStatus{
			Status:  "healthy",
			Message: "no broker configured (no-op mode)",
		}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil || !m.client.IsConnected() {
		return plugin.HealthStatus{
			Status:  "degraded",
			Message: "not connected to MQTT broker",
		}
	}
	return plugin.HealthStatus{
		Status:  "healthy",
		Message: "connected to " + m.cfg.BrokerURL,
		Details: map[string]string{"queued": fmt.Sprint(len(m.queue))},
	}
}

// TenantTopic returns the MQTT topic for a tenant event:
// <prefix>/tenant/<tenant id>/<event name>. ok is false for tenant IDs that
// cannot form a single topic level.
func (m *Module) TenantTopic(tenantID, eventName string) (topic string, ok bool) {
	if tenantID == "" || strings.ContainsAny(tenantID, "/+#") {
		return "", false
	}
	return m.cfg.TopicPrefix + "/tenant/" + tenantID + "/" + eventName, true
}

// handleEvent queues an inventory publication for the worker. It never
// blocks; when the queue is full the message is dropped and the next
// retained publication supersedes it.
func (m *Module) handleEvent(_ context.Context, event plugin.Event) {
	m.mu.RLock()
	noop := m.cfg.BrokerURL == "" && m.client == nil
	m.mu.RUnlock()
	if noop {
		return
	}
	te, ok := event.Payload.(inventory.TenantEvent)
	if !ok {
		return
	}
	topic, ok := m.TenantTopic(te.TenantID, te.Event)
	if !ok {
		m.logger.Warn("tenant id not usable as an MQTT topic level",
			zap.String("tenant_id", te.TenantID),
		)
		return
	}

	payload, err := json.Marshal(te.Payload)
	if err != nil {
		m.logger.Warn("failed to marshal MQTT payload",
			zap.String("topic", event.Topic),
			zap.Error(err),
		)
		return
	}

	select {
	case m.queue <- outbound{topic: topic, payload: payload}:
	default:
		messagesTotal.WithLabelValues("dropped").Inc()
		m.logger.Warn("mqtt queue full, dropping message",
			zap.String("mqtt_topic", topic),
		)
	}
}

func (m *Module) run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-m.queue:
			m.publish(ctx, msg)
		}
	}
}

// publish sends one message, retrying while the broker is unreachable.
func (m *Module) publish(ctx context.Context, msg outbound) {
	err := retry.Do(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.mu.RLock()
		client := m.client
		m.mu.RUnlock()

		if client == nil || !client.IsConnected() {
			return errNotConnected
		}
		token := client.Publish(msg.topic, m.cfg.QoS, m.cfg.Retain, msg.payload)
		if !token.WaitTimeout(m.cfg.Timeout) {
			return fmt.Errorf("publish to %s timed out", msg.topic)
		}
		return token.Error()
	},
		retry.Attempts(uint(m.cfg.PublishAttempts)),
		retry.Delay(m.cfg.RetryDelay),
		retry.MaxDelay(10*time.Second),
	)
	if err != nil {
		messagesTotal.WithLabelValues("failed").Inc()
		m.logger.Warn("mqtt publish failed",
			zap.String("mqtt_topic", msg.topic),
			zap.Int("attempts", m.cfg.PublishAttempts),
			zap.Error(err),
		)
		return
	}

	messagesTotal.WithLabelValues("published").Inc()
	m.logger.Debug("mqtt event published",
		zap.String("mqtt_topic", msg.topic),
		zap.Int("bytes", len(msg.payload)),
	)
}
