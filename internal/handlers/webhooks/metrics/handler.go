package metrics

import (
	"log"
	"time"

	appmetrics "github.com/coderunner/coderunner/api/internal/metrics"
	"github.com/coderunner/coderunner/api/internal/models"
	"github.com/coderunner/coderunner/api/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// DeploymentMetric is one collected reading pushed by the collector
type DeploymentMetric struct {
	DeploymentID   string  `json:"deploymentId"`
	CpuUsage       float64 `json:"cpuUsage"`
	MemoryUsage    float64 `json:"memoryUsage"`
	ErrorRate      float64 `json:"errorRate"`
	ResponseTimeMs float64 `json:"responseTimeMs"`
	RequestsPerMin float64 `json:"requestsPerMin"`
}

// MetricsRequest is the metrics webhook request body
type MetricsRequest struct {
	Metrics   []DeploymentMetric `json:"metrics"`
	Timestamp string             `json:"timestamp,omitempty"`
}

// Handler receives metric pushes from the external collector
type Handler struct {
	store *appmetrics.Store
}

func NewHandler(store *appmetrics.Store) *Handler {
	return &Handler{store: store}
}

// POST /api/webhooks/deployment-metrics
func (h *Handler) HandleDeploymentMetrics(c *fiber.Ctx) error {
	var req MetricsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if len(req.Metrics) == 0 {
		return response.BadRequest(c, "Invalid request: Missing or empty metrics array")
	}

	timestamp := time.Now()
	if req.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, req.Timestamp); err == nil {
			timestamp = parsed
		}
	}

	stored := 0
	for _, metric := range req.Metrics {
		if metric.DeploymentID == "" {
			continue
		}
		row := &models.DeploymentMetrics{
			DeploymentID:   metric.DeploymentID,
			CpuUsage:       metric.CpuUsage,
			MemoryUsage:    metric.MemoryUsage,
			ErrorRate:      metric.ErrorRate,
			ResponseTimeMs: metric.ResponseTimeMs,
			RequestsPerMin: metric.RequestsPerMin,
			Timestamp:      timestamp,
		}
		if err := h.store.Record(c.Context(), row); err != nil {
			log.Printf("[Metrics] failed to store reading for %s: %v", metric.DeploymentID, err)
			continue
		}
		stored++
	}

	return response.Success(c, fiber.Map{
		"received": len(req.Metrics),
		"stored":   stored,
	})
}
