package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	instanceID string
	connected  func() bool
}

// NewHealthHandler creates a health handler. connected reports whether the
// appliance channel is up.
func NewHealthHandler(instanceID string, connected func() bool) *HealthHandler {
	return &HealthHandler{
		instanceID: instanceID,
		connected:  connected,
	}
}

// LivenessResponse represents the liveness check response.
type LivenessResponse struct {
	Status     string `json:"status"`
	InstanceID string `json:"instance_id"`
}

// ReadinessResponse represents the readiness check response.
type ReadinessResponse struct {
	Status     string `json:"status"`
	InstanceID string `json:"instance_id"`
	Appliance  string `json:"appliance"`
}

// Liveness handles GET /health/live. It answers 200 while the process runs.
func (h *HealthHandler) Liveness(c *gin.Context) {
	respondSuccess(c, http.StatusOK, LivenessResponse{
		Status:     "ok",
		InstanceID: h.instanceID,
	})
}

// Readiness handles GET /health/ready. It answers 503 while the appliance
// channel is disconnected.
func (h *HealthHandler) Readiness(c *gin.Context) {
	if h.connected != nil && !h.connected() {
		respondError(c, http.StatusServiceUnavailable, "unhealthy", "Appliance unreachable")
		return
	}

	respondSuccess(c, http.StatusOK, ReadinessResponse{
		Status:     "ready",
		InstanceID: h.instanceID,
		Appliance:  "connected",
	})
}
