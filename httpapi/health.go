package httpapi

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/mem"
)

// Health reports liveness plus a few process and host stats for operators.
type Health struct {
	startedAt time.Time
}

func NewHealth() *Health {
	return &Health{startedAt: time.Now().UTC()}
}

func (h *Health) Handle(c *gin.Context) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	body := gin.H{
		"ok":            true,
		"uptime":        time.Since(h.startedAt).Round(time.Second).String(),
		"goroutines":    runtime.NumGoroutine(),
		"heap_alloc_mb": ms.HeapAlloc / 1024 / 1024,
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		body["host_mem_used_percent"] = vm.UsedPercent
	}
	c.JSON(http.StatusOK, body)
}
