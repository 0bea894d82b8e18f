package sandboxes

import (
	"time"

	"github.com/coderunner/coderunner/api/internal/orchestrator"
	"github.com/coderunner/coderunner/api/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// Handler exposes sandbox discovery and cleanup over HTTP
type Handler struct {
	service  *orchestrator.Service
	defaults orchestrator.CleanupOptions
}

func NewHandler(service *orchestrator.Service, defaults orchestrator.CleanupOptions) *Handler {
	return &Handler{service: service, defaults: defaults}
}

// ListSandboxes returns every sandbox the provider reports as active.
// A provider outage yields an empty list, not an error.
func (h *Handler) ListSandboxes(c *fiber.Ctx) error {
	return response.Success(c, h.service.ListActiveSandboxes(c.Context()))
}

// FindSandbox locates the caller's sandbox, optionally narrowed to a
// project
func (h *Handler) FindSandbox(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(string)
	if !ok || userID == "" {
		return response.Unauthorized(c, "Invalid authentication")
	}

	found := h.service.FindUserSandbox(c.Context(), userID, c.Query("projectId"))
	if found == nil {
		return response.NotFound(c, "No active sandbox found")
	}
	return response.Success(c, fiber.Map{
		"sandboxId": found.SandboxID,
	})
}

// CleanupRequest tunes one on-demand cleanup sweep. Zero durations
// fall back to the configured defaults; force removes everything.
type CleanupRequest struct {
	Force     bool  `json:"force"`
	MaxAgeMs  int64 `json:"maxAgeMs"`
	MaxIdleMs int64 `json:"maxIdleMs"`
}

// Cleanup runs one cleanup sweep immediately
func (h *Handler) Cleanup(c *fiber.Ctx) error {
	var req CleanupRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	opts := h.defaults
	opts.Force = req.Force
	if req.MaxAgeMs > 0 {
		opts.MaxAge = time.Duration(req.MaxAgeMs) * time.Millisecond
	}
	if req.MaxIdleMs > 0 {
		opts.MaxIdle = time.Duration(req.MaxIdleMs) * time.Millisecond
	}

	result := h.service.CleanupSandboxes(c.Context(), opts)
	return response.Success(c, result)
}
