package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"roastbot-api/internal/services/messaging"
	"roastbot-api/internal/services/stream"
)

// SystemHandler handles system-related endpoints
type SystemHandler struct {
	manager   *stream.Manager
	messaging *messaging.Service
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(manager *stream.Manager, messagingService *messaging.Service) *SystemHandler {
	return &SystemHandler{
		manager:   manager,
		messaging: messagingService,
	}
}

// @Summary Get system stats
// @Description Get runtime statistics and stream buffer counters
// @Tags system
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	streamStats := h.manager.Stats()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats": gin.H{
			"streams":         streamStats.Streams,
			"active_streams":  streamStats.ActiveStreams,
			"buffered_frames": streamStats.BufferedFrames,
			"frames_received": streamStats.TotalReceived,
			"frames_dropped":  streamStats.TotalDropped,
			"viewers":         streamStats.Viewers,
			"nats_connected":  h.messaging != nil && h.messaging.IsConnected(),
			"memory_mb":       m.Alloc / 1024 / 1024,
			"cpu_cores":       runtime.NumCPU(),
			"goroutines":      runtime.NumGoroutine(),
			"go_version":      runtime.Version(),
		},
		"timestamp": time.Now().Unix(),
	})
}

// @Summary Get debug info
// @Description Get debug information for troubleshooting
// @Tags system
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/debug [get]
func (h *SystemHandler) GetDebugInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"debug": gin.H{
			"endpoints":  []string{"/health", "/users", "/api/streams", "/api/raspi", "/system", "/metrics"},
			"components": []string{"auth", "store", "stream_manager", "roast", "tts"},
		},
		"timestamp": time.Now().Unix(),
	})
}
