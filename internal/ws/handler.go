package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/HerbHall/fleetmap/internal/auth"
	"github.com/HerbHall/fleetmap/internal/inventory"
	"github.com/HerbHall/fleetmap/pkg/models"
	"github.com/HerbHall/fleetmap/pkg/plugin"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// DashboardReader returns a tenant's live dashboard. It lets a client that
// connects between publications start from the current state.
type DashboardReader interface {
	GetDashboard(ctx context.Context, tenantID string) (*models.DashboardSnapshot, error)
}

// Handler serves the tenant event stream.
type Handler struct {
	hub       *Hub
	tokens    *auth.TokenService
	snapshots DashboardReader
	logger    *zap.Logger
	unsubs    []func()
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a WebSocket handler and subscribes it to inventory
// publications on bus. snapshots may be nil.
func NewHandler(tokens *auth.TokenService, bus plugin.Subscriber, snapshots DashboardReader, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:       NewHub(logger),
		tokens:    tokens,
		snapshots: snapshots,
		logger:    logger,
	}
	h.subscribeToEvents(bus)
	return h
}

// Hub returns the handler's client hub.
func (h *Handler) Hub() *Hub { return h.hub }

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws/inventory", h.handleInventoryStream)
}

// Close detaches the handler from the event bus.
func (h *Handler) Close() {
	for _, unsub := range h.unsubs {
		unsub()
	}
	h.unsubs = nil
}

// handleInventoryStream upgrades the connection and streams the events of
// the tenant named in the token.
func (h *Handler) handleInventoryStream(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on WebSocket requests, so the query
	// parameter is accepted alongside a bearer header.
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		http.Error(w, "missing token parameter", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokens.Validate(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin is not checked; the tenant token is the credential.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:     conn,
		tenantID: claims.TenantID,
		send:     make(chan Message, sendBuffer),
		logger:   h.logger,
	}

	h.hub.Register(client)
	h.sendCurrent(r.Context(), client)

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	client.readPump(ctx)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// sendCurrent queues the tenant's live dashboard for a new client.
func (h *Handler) sendCurrent(ctx context.Context, c *Client) {
	if h.snapshots == nil {
		return
	}
	snap, err := h.snapshots.GetDashboard(ctx, c.tenantID)
	if errors.Is(err, inventory.ErrNotFound) {
		return
	}
	if err != nil {
		h.logger.Warn("failed to load dashboard for new client",
			zap.String("tenant_id", c.tenantID), zap.Error(err))
		return
	}
	select {
	case c.send <- Message{
		Type:      MessageDashboardUpdate,
		TenantID:  c.tenantID,
		Timestamp: snap.Timestamp,
		Data:      snap,
	}:
	default:
	}
}

// subscribeToEvents forwards inventory publications to the matching
// tenant room.
func (h *Handler) subscribeToEvents(bus plugin.Subscriber) {
	if bus == nil {
		return
	}

	forward := func(_ context.Context, event plugin.Event) {
		te, ok := event.Payload.(inventory.TenantEvent)
		if !ok || te.TenantID == "" {
			return
		}
		ts := event.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		h.hub.Broadcast(te.TenantID, Message{
			Type:      MessageType(te.Event),
			TenantID:  te.TenantID,
			Timestamp: ts,
			Data:      te.Payload,
		})
	}

	h.unsubs = append(h.unsubs,
		bus.Subscribe(inventory.TopicDashboardUpdate, forward),
		bus.Subscribe(inventory.TopicVisualizerRefresh, forward),
	)
	h.logger.Info("subscribed to inventory events for WebSocket broadcasting")
}
