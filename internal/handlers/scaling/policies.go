package scaling

import (
	"errors"

	"github.com/coderunner/coderunner/api/internal/autoscaler"
	"github.com/coderunner/coderunner/api/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// CreatePolicy creates and activates a scaling policy
func (h *Handler) CreatePolicy(c *fiber.Ctx) error {
	var input autoscaler.PolicyInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	policy, err := h.service.CreatePolicy(c.Context(), input)
	if err != nil {
		if errors.Is(err, autoscaler.ErrInvalidPolicy) {
			return response.BadRequest(c, err.Error())
		}
		return response.InternalServerError(c, "Failed to create policy")
	}
	return response.Success(c, policy)
}

// UpdatePolicy updates an existing policy
func (h *Handler) UpdatePolicy(c *fiber.Ctx) error {
	policyID := c.Params("policyId")
	if policyID == "" {
		return response.BadRequest(c, "Policy ID is required")
	}

	var input autoscaler.PolicyInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	policy, err := h.service.UpdatePolicy(c.Context(), policyID, input)
	if err != nil {
		switch {
		case errors.Is(err, autoscaler.ErrInvalidPolicy):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, autoscaler.ErrPolicyNotFound):
			return response.NotFound(c, "Scaling policy not found")
		}
		return response.InternalServerError(c, "Failed to update policy")
	}
	return response.Success(c, policy)
}

// DisablePolicy soft-deletes a policy
func (h *Handler) DisablePolicy(c *fiber.Ctx) error {
	policyID := c.Params("policyId")
	if policyID == "" {
		return response.BadRequest(c, "Policy ID is required")
	}

	if err := h.service.DisablePolicy(c.Context(), policyID); err != nil {
		if errors.Is(err, autoscaler.ErrPolicyNotFound) {
			return response.NotFound(c, "Scaling policy not found")
		}
		return response.InternalServerError(c, "Failed to disable policy")
	}
	return response.SuccessWithMessage(c, "Policy disabled", nil)
}

// ListTemplates returns the built-in policy presets
func (h *Handler) ListTemplates(c *fiber.Ctx) error {
	return response.Success(c, fiber.Map{
		"names":     autoscaler.TemplateNames(),
		"templates": autoscaler.PolicyTemplates(),
	})
}
