package inventory

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/HerbHall/fleetmap/pkg/models"
	"github.com/HerbHall/fleetmap/pkg/plugin"
	"go.uber.org/zap"
)

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/tenants/{tenant}/dashboard", Handler: m.handleGetDashboard},
		{Method: "GET", Path: "/tenants/{tenant}/dashboard/summary", Handler: m.handleGetSummary},
		{Method: "GET", Path: "/tenants/{tenant}/visualizer", Handler: m.handleListVisualizer},
		{Method: "POST", Path: "/tenants/{tenant}/refresh", Handler: m.handleRefresh},
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an RFC 7807 problem detail response.
func writeError(w http.ResponseWriter, r *http.Request, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.APIProblem{
		Type:     "https://fleetmap.dev/problems/" + strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "-")),
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	})
}

// SummaryResponse is the response for GET /tenants/{tenant}/dashboard/summary.
type SummaryResponse struct {
	TenantID   string                  `json:"tenantId" example:"acme"`
	Generation int64                   `json:"generation" example:"1760659200000000000"`
	Timestamp  time.Time               `json:"timestamp"`
	Summary    models.DashboardSummary `json:"summary"`
}

// RefreshResponse is the response for POST /tenants/{tenant}/refresh.
type RefreshResponse struct {
	TenantID   string `json:"tenantId" example:"acme"`
	Changed    bool   `json:"changed" example:"true"`
	Hash       string `json:"hash"`
	Generation int64  `json:"generation,omitempty"`
}

// handleGetDashboard returns the tenant's live dashboard document.
//
//	@Summary		Get dashboard
//	@Description	Returns the last published dashboard snapshot of a tenant.
//	@Tags			inventory
//	@Produce		json
//	@Param			tenant	path		string	true	"Tenant ID"
//	@Success		200		{object}	models.DashboardSnapshot
//	@Failure		404		{object}	models.APIProblem
//	@Router			/inventory/tenants/{tenant}/dashboard [get]
func (m *Module) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	snap, ok := m.loadDashboard(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleGetSummary returns only the bucket counts of the live dashboard.
//
//	@Summary		Get dashboard summary
//	@Tags			inventory
//	@Produce		json
//	@Param			tenant	path		string	true	"Tenant ID"
//	@Success		200		{object}	SummaryResponse
//	@Failure		404		{object}	models.APIProblem
//	@Router			/inventory/tenants/{tenant}/dashboard/summary [get]
func (m *Module) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	snap, ok := m.loadDashboard(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{
		TenantID:   snap.TenantID,
		Generation: snap.Generation,
		Timestamp:  snap.Timestamp,
		Summary:    snap.Summary,
	})
}

func (m *Module) loadDashboard(w http.ResponseWriter, r *http.Request) (*models.DashboardSnapshot, bool) {
	tenantID := r.PathValue("tenant")
	snap, err := m.snapshots.GetDashboard(r.Context(), tenantID)
	if errors.Is(err, ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "Dashboard not ready")
		return nil, false
	}
	if err != nil {
		m.logger.Error("failed to load dashboard", zap.String("tenant_id", tenantID), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to load dashboard")
		return nil, false
	}
	return snap, true
}

// handleListVisualizer returns the tenant's visualizer records.
//
//	@Summary		List visualizer records
//	@Tags			inventory
//	@Produce		json
//	@Param			tenant	path	string	true	"Tenant ID"
//	@Success		200		{array}	models.VisualizerRecord
//	@Router			/inventory/tenants/{tenant}/visualizer [get]
func (m *Module) handleListVisualizer(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")
	records, err := m.snapshots.ListVisualizerRecords(r.Context(), tenantID)
	if err != nil {
		m.logger.Error("failed to list visualizer records", zap.String("tenant_id", tenantID), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to list visualizer records")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleRefresh runs one reconciliation cycle for the tenant right away.
//
//	@Summary		Refresh tenant inventory
//	@Tags			inventory
//	@Produce		json
//	@Param			tenant	path		string	true	"Tenant ID"
//	@Success		200		{object}	RefreshResponse
//	@Failure		404		{object}	models.APIProblem
//	@Failure		500		{object}	models.APIProblem
//	@Router			/inventory/tenants/{tenant}/refresh [post]
func (m *Module) handleRefresh(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")
	res, err := m.scheduler.RefreshTenant(r.Context(), tenantID)
	if errors.Is(err, ErrTenantInactive) {
		writeError(w, r, http.StatusNotFound, "tenant not active")
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "refresh failed")
		return
	}

	resp := RefreshResponse{TenantID: tenantID, Changed: res.Changed, Hash: res.Hash}
	if res.Snapshot != nil {
		resp.Generation = res.Snapshot.Generation
	}
	writeJSON(w, http.StatusOK, resp)
}
