package deployments

import (
	"errors"

	"github.com/coderunner/coderunner/api/internal/models"
	"github.com/coderunner/coderunner/api/internal/orchestrator"
	"github.com/coderunner/coderunner/api/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// GetDeployment returns a single deployment
func (h *Handler) GetDeployment(c *fiber.Ctx) error {
	deployment, ok := h.ownedDeployment(c)
	if !ok {
		return nil
	}
	return response.Success(c, deployment)
}

// ListDeployments returns the caller's deployments
func (h *Handler) ListDeployments(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(string)
	if !ok || userID == "" {
		return response.Unauthorized(c, "Invalid authentication")
	}

	deployments, err := h.store.ListByUser(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list deployments")
	}
	return response.Success(c, deployments)
}

// ownedDeployment loads the deployment from the path parameter and
// enforces ownership. On failure the response has already been written
// and ok is false.
func (h *Handler) ownedDeployment(c *fiber.Ctx) (*models.Deployment, bool) {
	userID, okUser := c.Locals("userId").(string)
	if !okUser || userID == "" {
		response.Unauthorized(c, "Invalid authentication")
		return nil, false
	}

	deploymentID := c.Params("deploymentId")
	if deploymentID == "" {
		response.BadRequest(c, "Deployment ID is required")
		return nil, false
	}

	deployment, err := h.store.Get(c.Context(), deploymentID)
	if err != nil {
		if errors.Is(err, orchestrator.ErrDeploymentNotFound) {
			response.NotFound(c, "Deployment not found")
		} else {
			response.InternalServerError(c, "Failed to load deployment")
		}
		return nil, false
	}
	if deployment.UserID != userID {
		response.Forbidden(c, "Deployment not found or access denied")
		return nil, false
	}
	return deployment, true
}
