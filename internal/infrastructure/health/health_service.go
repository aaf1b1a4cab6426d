package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"netstate-agent/internal/domain/interfaces"
)

// HealthService reports whether the agent keeps the host converged
type HealthService struct {
	mu            sync.RWMutex
	clock         interfaces.Clock
	logger        *logrus.Logger
	startTime     time.Time
	storeHealthy  bool
	storeError    error
	passes        int64
	failedPasses  int64
	lastPassError error
	lastSuccess   time.Time
	osType        string
}

// HealthStatus represents health check status
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResponse is the health check response body
type HealthResponse struct {
	Status     HealthStatus           `json:"status"`
	Timestamp  string                 `json:"timestamp"`
	Components map[string]interface{} `json:"components"`
	Statistics map[string]interface{} `json:"statistics"`
}

// NewHealthService creates a new HealthService
func NewHealthService(clock interfaces.Clock, logger *logrus.Logger) *HealthService {
	return &HealthService{
		clock:     clock,
		logger:    logger,
		startTime: clock.Now(),
	}
}

// UpdateStoreHealth updates the profile store status
func (h *HealthService) UpdateStoreHealth(healthy bool, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.storeHealthy = healthy
	h.storeError = err
}

// RecordPass records the outcome of one apply pass
func (h *HealthService) RecordPass(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.passes++
	h.lastPassError = err
	if err != nil {
		h.failedPasses++
		return
	}
	h.lastSuccess = h.clock.Now()
}

// SetOSType sets the detected host distribution
func (h *HealthService) SetOSType(osType string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.osType = osType
}

// ServeHTTP handles the HTTP health check endpoint
func (h *HealthService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := h.buildHealthResponse()

	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.WithError(err).Error("failed to encode health check response")
	}
}

func (h *HealthService) buildHealthResponse() HealthResponse {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.clock.Now()

	lastSuccess := ""
	if !h.lastSuccess.IsZero() {
		lastSuccess = h.lastSuccess.Format(time.RFC3339)
	}

	components := map[string]interface{}{
		"profile_store": map[string]interface{}{
			"healthy": h.storeHealthy,
			"error":   formatError(h.storeError),
		},
		"network_manager": map[string]interface{}{
			"backend": "keyfile",
			"os_type": h.osType,
		},
		"reconciler": map[string]interface{}{
			"last_error":   formatError(h.lastPassError),
			"last_success": lastSuccess,
		},
	}

	statistics := map[string]interface{}{
		"passes":        h.passes,
		"failed_passes": h.failedPasses,
		"uptime":        formatUptime(now.Sub(h.startTime)),
	}

	return HealthResponse{
		Status:     h.determineOverallStatus(),
		Timestamp:  now.Format(time.RFC3339),
		Components: components,
		Statistics: statistics,
	}
}

func (h *HealthService) determineOverallStatus() HealthStatus {
	if !h.storeHealthy {
		return StatusUnhealthy
	}
	// the host keeps its last good profiles while passes fail
	if h.lastPassError != nil {
		return StatusDegraded
	}
	return StatusHealthy
}

func formatError(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func formatUptime(duration time.Duration) string {
	days := int(duration.Hours()) / 24
	hours := int(duration.Hours()) % 24
	minutes := int(duration.Minutes()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd%dh%dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh%dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
