package deployments

import (
	"errors"

	"github.com/coderunner/coderunner/api/internal/orchestrator"
	"github.com/coderunner/coderunner/api/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// DeployRequest is the create-deployment request body. Either files or
// gitUrl supplies the project source.
type DeployRequest struct {
	ProjectID string            `json:"projectId"`
	Files     map[string]string `json:"files"`
	GitURL    string            `json:"gitUrl"`
	Env       map[string]string `json:"env"`
}

// Deploy creates a sandbox and provisions the project in it
func (h *Handler) Deploy(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(string)
	if !ok || userID == "" {
		return response.Unauthorized(c, "Invalid authentication")
	}

	var req DeployRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.ProjectID == "" {
		return response.BadRequest(c, "Project ID is required")
	}
	if len(req.Files) == 0 && req.GitURL == "" {
		return response.BadRequest(c, "Either files or gitUrl is required")
	}

	deployment, err := h.service.Deploy(c.Context(), orchestrator.DeployRequest{
		UserID:    userID,
		ProjectID: req.ProjectID,
		Files:     req.Files,
		GitURL:    req.GitURL,
		Env:       req.Env,
	}, h.fetch)
	if err != nil {
		if errors.Is(err, orchestrator.ErrSandboxLimit) {
			return response.Conflict(c, "Unable to free sandbox capacity, try again later")
		}
		if deployment != nil {
			// The deployment record carries the failure detail
			return c.Status(fiber.StatusInternalServerError).JSON(response.Response{
				Status:  "error",
				Message: err.Error(),
				Data:    deployment,
			})
		}
		return response.BadRequest(c, err.Error())
	}

	return response.Success(c, deployment)
}
