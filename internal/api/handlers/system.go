package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/memora/internal/queue"
	"github.com/your-org/memora/internal/storage"
)

type SystemHandler struct {
	db       *storage.PostgresStore
	minio    *storage.MinIOStore
	producer *queue.Producer
}

func NewSystemHandler(db *storage.PostgresStore, minio *storage.MinIOStore, producer *queue.Producer) *SystemHandler {
	return &SystemHandler{db: db, minio: minio, producer: producer}
}

func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "memora-portal"})
}

// depCheck is one dependency's readiness result. Latency is reported
// so a slow dependency is visible before it becomes a failing one.
type depCheck struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Readyz reports whether the portal can reach Postgres, MinIO and NATS.
// The recognition and question functions are deliberately absent: both
// degrade per-request (error copy, fallback questions) and must not
// take the portal out of rotation.
func (h *SystemHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	run := func(fn func() error) depCheck {
		start := time.Now()
		err := fn()
		check := depCheck{Status: "ok", LatencyMS: time.Since(start).Milliseconds()}
		if err != nil {
			check.Status = "failed"
			check.Error = err.Error()
		}
		return check
	}

	checks := map[string]depCheck{
		"postgres": run(func() error { return h.db.Ping(ctx) }),
		"minio":    run(func() error { return h.minio.Ping(ctx) }),
		"nats":     run(func() error { return h.producer.Ping() }),
	}

	status := http.StatusOK
	ready := "ready"
	for _, check := range checks {
		if check.Status != "ok" {
			status = http.StatusServiceUnavailable
			ready = "not ready"
		}
	}

	c.JSON(status, gin.H{"status": ready, "checks": checks})
}
