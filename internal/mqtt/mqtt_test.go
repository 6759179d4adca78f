package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/HerbHall/fleetmap/internal/config"
	"github.com/HerbHall/fleetmap/internal/inventory"
	"github.com/HerbHall/fleetmap/pkg/models"
	"github.com/HerbHall/fleetmap/pkg/plugin"
	"github.com/HerbHall/fleetmap/pkg/plugin/plugintest"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu        sync.Mutex
	connected bool
	failures  int
	calls     int
	sent      []published
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload any) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.failures > 0 {
		c.failures--
		return &fakeToken{err: errors.New("broker unavailable")}
	}
	b, _ := payload.([]byte)
	c.sent = append(c.sent, published{topic: topic, qos: qos, retained: retained, payload: b})
	return &fakeToken{}
}

func (c *fakeClient) messages() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.sent...)
}

func (c *fakeClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// newTestModule returns an initialized module publishing to client through
// a running worker.
func newTestModule(t *testing.T, client *fakeClient) *Module {
	t.Helper()
	m := New()
	require.NoError(t, m.Init(context.Background(), plugin.Dependencies{Logger: zap.NewNop()}))
	m.cfg.RetryDelay = time.Millisecond
	m.client = client
	m.startWorker(context.Background())
	t.Cleanup(func() { _ = m.Stop(context.Background()) })
	return m
}

func tenantEvent(tenantID, name string, payload any) plugin.Event {
	return plugin.Event{
		Topic:   inventory.TopicPrefix + name,
		Source:  "inventory",
		Payload: inventory.TenantEvent{TenantID: tenantID, Event: name, Payload: payload},
	}
}

func TestContract(t *testing.T) {
	plugintest.TestPluginContract(t, func() plugin.Plugin { return New() })
}

func TestInfo_ReturnsCorrectMetadata(t *testing.T) {
	info := New().Info()

	assert.Equal(t, "mqtt", info.Name)
	assert.Equal(t, "0.1.0", info.Version)
	assert.Equal(t, []string{"inventory"}, info.Dependencies)
	assert.Equal(t, []string{"notification"}, info.Roles)
	assert.Equal(t, plugin.APIVersionCurrent, info.APIVersion)
}

func TestSubscriptions_ReturnsInventoryTopics(t *testing.T) {
	m := New()
	require.NoError(t, m.Init(context.Background(), plugin.Dependencies{Logger: zap.NewNop()}))

	var topics []string
	for _, s := range m.Subscriptions() {
		topics = append(topics, s.Topic)
	}
	assert.ElementsMatch(t, []string{inventory.TopicDashboardUpdate, inventory.TopicVisualizerRefresh}, topics)
}

func TestInit_ReadsConfig(t *testing.T) {
	v := viper.New()
	v.Set("broker_url", "tcp://broker:1883")
	v.Set("topic_prefix", "acme/fleet/")
	v.Set("qos", 0)
	v.Set("retain", false)
	v.Set("publish_attempts", 5)

	m := New()
	require.NoError(t, m.Init(context.Background(), plugin.Dependencies{
		Logger: zap.NewNop(),
		Config: config.New(v),
	}))

	assert.Equal(t, "tcp://broker:1883", m.cfg.BrokerURL)
	assert.Equal(t, "acme/fleet", m.cfg.TopicPrefix)
	assert.Equal(t, byte(0), m.cfg.QoS)
	assert.False(t, m.cfg.Retain)
	assert.Equal(t, 5, m.cfg.PublishAttempts)
}

func TestInit_RejectsInvalidQoS(t *testing.T) {
	v := viper.New()
	v.Set("qos", 3)

	err := New().Init(context.Background(), plugin.Dependencies{
		Logger: zap.NewNop(),
		Config: config.New(v),
	})
	assert.Error(t, err)
}

func TestTenantTopic(t *testing.T) {
	m := &Module{cfg: Config{TopicPrefix: "fleetmap"}}

	tests := []struct {
		name     string
		tenantID string
		event    string
		want     string
		wantOK   bool
	}{
		{"dashboard", "acme", inventory.EventDashboardUpdate, "fleetmap/tenant/acme/dashboard_update", true},
		{"visualizer", "globex", inventory.EventVisualizerRefresh, "fleetmap/tenant/globex/visualizer_refresh", true},
		{"empty tenant", "", inventory.EventDashboardUpdate, "", false},
		{"slash in tenant", "a/b", inventory.EventDashboardUpdate, "", false},
		{"wildcard tenant", "a+", inventory.EventDashboardUpdate, "", false},
		{"multi-level wildcard", "#", inventory.EventDashboardUpdate, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.TenantTopic(tt.tenantID, tt.event)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleEvent_PublishesRetainedTenantTopic(t *testing.T) {
	client := &fakeClient{connected: true}
	m := newTestModule(t, client)

	m.handleEvent(context.Background(), tenantEvent("acme", inventory.EventDashboardUpdate,
		&models.DashboardSnapshot{TenantID: "acme", Generation: 3}))

	require.Eventually(t, func() bool { return len(client.messages()) == 1 }, 2*time.Second, 5*time.Millisecond)

	msg := client.messages()[0]
	assert.Equal(t, "fleetmap/tenant/acme/dashboard_update", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.True(t, msg.retained)

	var snap models.DashboardSnapshot
	require.NoError(t, json.Unmarshal(msg.payload, &snap))
	assert.Equal(t, "acme", snap.TenantID)
	assert.EqualValues(t, 3, snap.Generation)
}

func TestHandleEvent_RetriesTransientFailures(t *testing.T) {
	client := &fakeClient{connected: true, failures: 2}
	m := newTestModule(t, client)

	m.handleEvent(context.Background(), tenantEvent("acme", inventory.EventVisualizerRefresh, []models.VisualizerRecord{}))

	require.Eventually(t, func() bool { return len(client.messages()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, client.callCount())
}

func TestHandleEvent_GivesUpAfterAttempts(t *testing.T) {
	client := &fakeClient{connected: true, failures: 10}
	m := newTestModule(t, client)

	m.handleEvent(context.Background(), tenantEvent("acme", inventory.EventDashboardUpdate, nil))

	require.Eventually(t, func() bool { return client.callCount() == 3 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, client.callCount())
	assert.Empty(t, client.messages())
}

func TestHandleEvent_IgnoresForeignPayloadsAndBadTenants(t *testing.T) {
	client := &fakeClient{connected: true}
	m := New()
	require.NoError(t, m.Init(context.Background(), plugin.Dependencies{Logger: zap.NewNop()}))
	m.client = client

	m.handleEvent(context.Background(), plugin.Event{Topic: inventory.TopicDashboardUpdate, Payload: "nope"})
	m.handleEvent(context.Background(), tenantEvent("a/b", inventory.EventDashboardUpdate, nil))

	assert.Empty(t, m.queue)
}

func TestHandleEvent_DropsWhenQueueFull(t *testing.T) {
	m := New()
	require.NoError(t, m.Init(context.Background(), plugin.Dependencies{Logger: zap.NewNop()}))
	m.client = &fakeClient{connected: true}
	m.queue = make(chan outbound, 1)

	m.handleEvent(context.Background(), tenantEvent("acme", inventory.EventDashboardUpdate, nil))
	m.handleEvent(context.Background(), tenantEvent("acme", inventory.EventVisualizerRefresh, nil))

	require.Len(t, m.queue, 1)
	assert.Equal(t, "fleetmap/tenant/acme/dashboard_update", (<-m.queue).topic)
}

func TestHandleEvent_NoBrokerIsNoop(t *testing.T) {
	m := New()
	require.NoError(t, m.Init(context.Background(), plugin.Dependencies{Logger: zap.NewNop()}))

	m.handleEvent(context.Background(), tenantEvent("acme", inventory.EventDashboardUpdate, nil))
	assert.Empty(t, m.queue)
}

func TestStart_NoBrokerConfigured(t *testing.T) {
	m := New()
	require.NoError(t, m.Init(context.Background(), plugin.Dependencies{Logger: zap.NewNop()}))
	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Stop(context.Background()))
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		brokerURL  string
		client     *fakeClient
		wantStatus string
	}{
		{"no broker", "", nil, "healthy"},
		{"broker without client", "tcp://localhost:1883", nil, "degraded"},
		{"disconnected", "tcp://localhost:1883", &fakeClient{}, "degraded"},
		{"connected", "tcp://localhost:1883", &fakeClient{connected: true}, "healthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Module{cfg: Config{BrokerURL: tt.brokerURL}, queue: make(chan outbound, 1)}
			if tt.client != nil {
				m.client = tt.client
			}
			assert.Equal(t, tt.wantStatus, m.Health(context.Background()).Status)
		})
	}
}
