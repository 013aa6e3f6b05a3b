package handler

import (
	"net/http"
	"runtime"
	"time"

	"stockex-offline-sync/internal/notify"
	"stockex-offline-sync/internal/service"
	"stockex-offline-sync/internal/strategy"
	"stockex-offline-sync/pkg/response"
)

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	coord     *service.Coordinator
	layer     *strategy.Layer
	hub       *notify.Hub
	storeType string
	startTime time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(coord *service.Coordinator, layer *strategy.Layer, hub *notify.Hub, storeType string) *AdminHandler {
	return &AdminHandler{
		coord:     coord,
		layer:     layer,
		hub:       hub,
		storeType: storeType,
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.coord.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["store_type"] = h.storeType

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	stats["cache"] = map[string]interface{}{
		"static_generation":  h.layer.StaticGeneration(),
		"dynamic_generation": h.layer.DynamicGeneration(),
	}
	stats["notifications"] = map[string]interface{}{
		"clients": h.hub.ClientCount(),
		"recent":  h.hub.Recent(),
	}

	response.OK(w, stats)
}
