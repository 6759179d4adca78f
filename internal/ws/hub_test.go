package ws

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func newTestClient(tenantID string) *Client {
	return &Client{
		conn:     nil, // Not needed for hub tests
		tenantID: tenantID,
		send:     make(chan Message, sendBuffer),
		logger:   testLogger(),
	}
}

func testMessage(t MessageType, tenantID string) Message {
	return Message{Type: t, TenantID: tenantID, Timestamp: time.Now()}
}

// TestNewHub verifies that NewHub creates a hub with no clients.
func TestNewHub(t *testing.T) {
	hub := NewHub(testLogger())

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.rooms == nil {
		t.Error("hub.rooms map is nil")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

// TestRegister verifies that Register puts the client in its tenant room.
func TestRegister(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("acme")

	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}
	if hub.RoomSize("acme") != 1 {
		t.Errorf("RoomSize(acme) = %d, want 1", hub.RoomSize("acme"))
	}
	if hub.RoomSize("globex") != 0 {
		t.Errorf("RoomSize(globex) = %d, want 0", hub.RoomSize("globex"))
	}
}

// TestRegisterMultipleClients verifies counts across rooms.
func TestRegisterMultipleClients(t *testing.T) {
	hub := NewHub(testLogger())

	tests := []struct {
		name     string
		tenantID string
	}{
		{name: "first acme client", tenantID: "acme"},
		{name: "second acme client", tenantID: "acme"},
		{name: "globex client", tenantID: "globex"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub.Register(newTestClient(tt.tenantID))
			if got := hub.ClientCount(); got != i+1 {
				t.Errorf("ClientCount() = %d, want %d", got, i+1)
			}
		})
	}

	if hub.RoomSize("acme") != 2 {
		t.Errorf("RoomSize(acme) = %d, want 2", hub.RoomSize("acme"))
	}
}

// TestUnregister verifies that Unregister removes a client, closes its send
// channel and drops the empty room.
func TestUnregister(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("acme")

	hub.Register(client)
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}

	hub.mu.RLock()
	_, exists := hub.rooms["acme"]
	hub.mu.RUnlock()
	if exists {
		t.Error("empty room still present after unregister")
	}

	if _, ok := <-client.send; ok {
		t.Error("client.send channel is not closed")
	}
}

// TestUnregisterNotRegistered verifies that Unregister on a stranger is a no-op.
func TestUnregisterNotRegistered(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Register(newTestClient("acme"))
	client := newTestClient("acme")

	hub.Unregister(client)

	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}
	select {
	case _, ok := <-client.send:
		if !ok {
			t.Error("channel closed for unregistered client")
		}
	default:
	}
}

// TestUnregisterTwice verifies that unregistering the same client twice is safe.
func TestUnregisterTwice(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("acme")

	hub.Register(client)
	hub.Unregister(client)

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("second Unregister() panicked: %v", r)
		}
	}()
	hub.Unregister(client)
}

// TestBroadcastIsTenantScoped verifies that a tenant's events never reach
// another tenant's clients.
func TestBroadcastIsTenantScoped(t *testing.T) {
	hub := NewHub(testLogger())

	acme1 := newTestClient("acme")
	acme2 := newTestClient("acme")
	globex := newTestClient("globex")
	hub.Register(acme1)
	hub.Register(acme2)
	hub.Register(globex)

	n := hub.Broadcast("acme", testMessage(MessageDashboardUpdate, "acme"))
	if n != 2 {
		t.Errorf("Broadcast delivered to %d clients, want 2", n)
	}

	for i, c := range []*Client{acme1, acme2} {
		select {
		case got := <-c.send:
			if got.Type != MessageDashboardUpdate || got.TenantID != "acme" {
				t.Errorf("client %d received %+v", i+1, got)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("client %d did not receive message", i+1)
		}
	}

	select {
	case got := <-globex.send:
		t.Errorf("globex client received foreign message %+v", got)
	default:
	}
}

// TestBroadcastEmptyRoom verifies that broadcasting to a room nobody joined
// does nothing.
func TestBroadcastEmptyRoom(t *testing.T) {
	hub := NewHub(testLogger())
	if n := hub.Broadcast("nobody", testMessage(MessageVisualizerRefresh, "nobody")); n != 0 {
		t.Errorf("Broadcast delivered to %d clients, want 0", n)
	}
}

// TestBroadcastDropsMessagesWhenBufferFull verifies that a slow client
// misses messages instead of blocking the hub.
func TestBroadcastDropsMessagesWhenBufferFull(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("acme")
	hub.Register(client)

	for i := 0; i < sendBuffer; i++ {
		client.send <- testMessage(MessageVisualizerRefresh, "acme")
	}

	if n := hub.Broadcast("acme", testMessage(MessageDashboardUpdate, "acme")); n != 0 {
		t.Errorf("Broadcast delivered to %d clients, want 0", n)
	}
	if len(client.send) != sendBuffer {
		t.Errorf("client.send buffer length = %d, want %d", len(client.send), sendBuffer)
	}
	for i := 0; i < sendBuffer; i++ {
		if got := <-client.send; got.Type == MessageDashboardUpdate {
			t.Fatal("dropped message was unexpectedly received")
		}
	}
}

// TestConcurrentRegisterUnregisterBroadcast verifies that concurrent
// operations are safe.
func TestConcurrentRegisterUnregisterBroadcast(t *testing.T) {
	hub := NewHub(testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			client := newTestClient(fmt.Sprintf("tenant-%d", id%5))
			hub.Register(client)

			go func() {
				for range client.send {
				}
			}()

			time.Sleep(10 * time.Millisecond)
			hub.Unregister(client)
		}(i)
	}

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			tenant := fmt.Sprintf("tenant-%d", id%5)
			hub.Broadcast(tenant, testMessage(MessageDashboardUpdate, tenant))
		}(i)
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d, want 0", got)
	}
}

// TestConcurrentClientCount verifies that ClientCount is safe to call concurrently.
func TestConcurrentClientCount(t *testing.T) {
	hub := NewHub(testLogger())
	for i := 0; i < 10; i++ {
		hub.Register(newTestClient(fmt.Sprintf("tenant-%d", i%3)))
	}

	var wg sync.WaitGroup
	var countSum int64
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			atomic.AddInt64(&countSum, int64(hub.ClientCount()))
		}()
	}
	wg.Wait()

	if countSum != 10*100 {
		t.Errorf("sum of all ClientCount() calls = %d, want %d", countSum, 10*100)
	}
}
