package scaling

import (
	"github.com/coderunner/coderunner/api/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// ManualScaleRequest is the manual override request body
type ManualScaleRequest struct {
	Instances int    `json:"instances"`
	Reason    string `json:"reason"`
}

// ManualScale forces a deployment to an exact instance count
func (h *Handler) ManualScale(c *fiber.Ctx) error {
	deploymentID := c.Params("deploymentId")
	if deploymentID == "" {
		return response.BadRequest(c, "Deployment ID is required")
	}

	var req ManualScaleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Reason == "" {
		req.Reason = "operator request"
	}

	if !h.service.ManualScale(c.Context(), deploymentID, req.Instances, req.Reason) {
		return response.BadRequest(c, "Manual scaling failed")
	}
	return response.Success(c, fiber.Map{
		"deploymentId": deploymentID,
		"instances":    req.Instances,
	})
}

// Evaluate runs one on-demand evaluation for a deployment and returns
// the decision
func (h *Handler) Evaluate(c *fiber.Ctx) error {
	deploymentID := c.Params("deploymentId")
	if deploymentID == "" {
		return response.BadRequest(c, "Deployment ID is required")
	}

	return response.Success(c, h.service.Evaluate(c.Context(), deploymentID))
}

// GetHistory returns the scaling audit trail for a deployment
func (h *Handler) GetHistory(c *fiber.Ctx) error {
	deploymentID := c.Params("deploymentId")
	if deploymentID == "" {
		return response.BadRequest(c, "Deployment ID is required")
	}

	events, err := h.service.GetScalingHistory(c.Context(), deploymentID, c.QueryInt("limit", 50))
	if err != nil {
		return response.InternalServerError(c, "Failed to load scaling history")
	}
	return response.Success(c, events)
}
