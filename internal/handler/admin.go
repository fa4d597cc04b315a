package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"go.uber.org/zap"

	"outfit-db-api/pkg/response"
)

// StatsProvider reports store statistics.
type StatsProvider interface {
	Stats(ctx context.Context) (map[string]interface{}, error)
}

// AdminInfo describes the running deployment for the stats endpoint.
type AdminInfo struct {
	Version        string
	Environment    string
	RateLimitStore string
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	stats     StatsProvider
	info      AdminInfo
	startTime time.Time
	logger    *zap.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(stats StatsProvider, info AdminInfo, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		stats:     stats,
		info:      info,
		startTime: time.Now(),
		logger:    logger.Named("admin"),
	}
}

// GetStats handles GET /api/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{})

	// System info
	uptime := time.Since(h.startTime)
	stats["uptime_seconds"] = int64(uptime.Seconds())
	stats["uptime_human"] = uptime.Round(time.Second).String()
	stats["server_time"] = time.Now().UTC().Format(time.RFC3339)
	stats["version"] = h.info.Version
	stats["environment"] = h.info.Environment
	stats["rate_limit_store"] = h.info.RateLimitStore

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

	// Store stats; failures are reported in the body, details stay in the log.
	if h.stats != nil {
		storeStats, err := h.stats.Stats(r.Context())
		if err == nil {
			storeStats["status"] = "connected"
			stats["database"] = storeStats
		} else {
			h.logger.Error("failed to read store stats", zap.Error(err))
			stats["database"] = map[string]interface{}{"status": "error"}
		}
	} else {
		stats["database"] = map[string]interface{}{"status": "not_configured"}
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}
