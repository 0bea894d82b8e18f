package deployments

import (
	"errors"

	"github.com/coderunner/coderunner/api/internal/orchestrator"
	"github.com/coderunner/coderunner/api/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// MonitorDeployment returns the live status, health, metrics and
// recent logs for a deployment
func (h *Handler) MonitorDeployment(c *fiber.Ctx) error {
	deployment, ok := h.ownedDeployment(c)
	if !ok {
		return nil
	}

	result, err := h.service.Monitor(c.Context(), deployment.ID)
	if err != nil {
		if errors.Is(err, orchestrator.ErrDeploymentNotFound) {
			return response.NotFound(c, "Deployment not found")
		}
		return response.InternalServerError(c, "Failed to monitor deployment")
	}
	return response.Success(c, result)
}

// GetDeploymentLogs returns the most recent buffered log lines
func (h *Handler) GetDeploymentLogs(c *fiber.Ctx) error {
	deployment, ok := h.ownedDeployment(c)
	if !ok {
		return nil
	}

	limit := c.QueryInt("limit", 100)
	lines, err := h.logs.Tail(c.Context(), deployment.ID, limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to read deployment logs")
	}
	return response.Success(c, fiber.Map{
		"deploymentId": deployment.ID,
		"logs":         lines,
	})
}
