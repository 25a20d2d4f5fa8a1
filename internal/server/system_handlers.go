package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/alevras/tally/internal/database"
)

// SystemHandlers handles system-wide monitoring endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	ledgerDB    *database.DB
	cacheDB     *database.DB
	feed        FeedStatus
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, dataDir string, ledgerDB, cacheDB *database.DB, feed FeedStatus) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		ledgerDB:    ledgerDB,
		cacheDB:     cacheDB,
		feed:        feed,
	}
}

// HandleSystemStatus returns process and storage health
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPct, ramPct := h.getSystemStats()

	databases := map[string]interface{}{}
	for _, db := range []*database.DB{h.ledgerDB, h.cacheDB} {
		if db == nil {
			continue
		}
		databases[db.Name()] = map[string]interface{}{
			"path":    db.Path(),
			"profile": string(db.Profile()),
			"healthy": db.Conn().Ping() == nil,
		}
	}

	response := map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startupTime).Seconds()),
		"cpu_percent":    cpuPct,
		"ram_percent":    ramPct,
		"data_dir":       h.dataDir,
		"data_size_mb":   h.getDirSize(h.dataDir),
		"databases":      databases,
		"feed_connected": h.feed != nil && h.feed.IsConnected(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode system status")
	}
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats calculates CPU and RAM usage percentages.
// Samples CPU over 100ms to keep the endpoint responsive for pollers.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
