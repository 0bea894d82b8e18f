package deployments

import (
	"errors"

	"github.com/coderunner/coderunner/api/internal/orchestrator"
	"github.com/coderunner/coderunner/api/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// CancelDeployment tears a deployment's sandbox down. Cancelling an
// already-destroyed or unknown deployment reports cancelled=false.
func (h *Handler) CancelDeployment(c *fiber.Ctx) error {
	deployment, ok := h.ownedDeployment(c)
	if !ok {
		return nil
	}

	cancelled := h.service.CancelExecution(c.Context(), deployment.ID)
	return response.Success(c, fiber.Map{
		"deploymentId": deployment.ID,
		"cancelled":    cancelled,
	})
}

// StopDeployment stops a running deployment without destroying its
// record
func (h *Handler) StopDeployment(c *fiber.Ctx) error {
	deployment, ok := h.ownedDeployment(c)
	if !ok {
		return nil
	}

	if err := h.service.StopDeployment(c.Context(), deployment.ID); err != nil {
		if errors.Is(err, orchestrator.ErrDeploymentNotFound) {
			return response.NotFound(c, "Deployment not found")
		}
		return response.BadRequest(c, err.Error())
	}
	return response.SuccessWithMessage(c, "Deployment stopped", fiber.Map{
		"deploymentId": deployment.ID,
	})
}
