package routes

import (
	"github.com/coderunner/coderunner/api/internal/config"
	"github.com/coderunner/coderunner/api/internal/handlers/deployments"
	"github.com/coderunner/coderunner/api/internal/handlers/sandboxes"
	"github.com/coderunner/coderunner/api/internal/handlers/scaling"
	webhookmetrics "github.com/coderunner/coderunner/api/internal/handlers/webhooks/metrics"
	"github.com/coderunner/coderunner/api/internal/middleware"
	wshandler "github.com/coderunner/coderunner/api/internal/websocket"
	"github.com/gofiber/fiber/v2"
)

// Handlers groups the wired handler sets the router mounts
type Handlers struct {
	Deployments *deployments.Handler
	Sandboxes   *sandboxes.Handler
	Scaling     *scaling.Handler
	Metrics     *webhookmetrics.Handler
}

func Setup(app *fiber.App, cfg *config.Config, h Handlers) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// WebSocket
	api.Use("/socket", wshandler.UpgradeMiddleware)
	api.Get("/socket", middleware.AuthMiddleware(cfg), wshandler.Handler())

	// Webhooks - protected (X-Api-Key)
	webhooks := api.Group("/webhooks", middleware.WebhookApiKeyMiddleware(cfg))
	{
		webhooks.Post("/deployment-metrics", h.Metrics.HandleDeploymentMetrics)
	}

	// Deployments (JWT)
	deploymentRoutes := api.Group("/deployments", middleware.AuthMiddleware(cfg))
	{
		deploymentRoutes.Get("/", h.Deployments.ListDeployments)
		deploymentRoutes.Post("/", h.Deployments.Deploy)
		deploymentRoutes.Get("/:deploymentId", h.Deployments.GetDeployment)
		deploymentRoutes.Get("/:deploymentId/monitor", h.Deployments.MonitorDeployment)
		deploymentRoutes.Get("/:deploymentId/logs", h.Deployments.GetDeploymentLogs)
		deploymentRoutes.Post("/:deploymentId/cancel", h.Deployments.CancelDeployment)
		deploymentRoutes.Post("/:deploymentId/stop", h.Deployments.StopDeployment)
	}

	// Sandboxes (JWT)
	sandboxRoutes := api.Group("/sandboxes", middleware.AuthMiddleware(cfg))
	{
		sandboxRoutes.Get("/", h.Sandboxes.ListSandboxes)
		sandboxRoutes.Get("/find", h.Sandboxes.FindSandbox)
		sandboxRoutes.Post("/cleanup", h.Sandboxes.Cleanup)
	}

	// Scaling (JWT)
	scalingRoutes := api.Group("/scaling", middleware.AuthMiddleware(cfg))
	{
		scalingRoutes.Get("/templates", h.Scaling.ListTemplates)
		scalingRoutes.Post("/policies", h.Scaling.CreatePolicy)
		scalingRoutes.Put("/policies/:policyId", h.Scaling.UpdatePolicy)
		scalingRoutes.Delete("/policies/:policyId", h.Scaling.DisablePolicy)
		scalingRoutes.Post("/deployments/:deploymentId/scale", h.Scaling.ManualScale)
		scalingRoutes.Post("/deployments/:deploymentId/evaluate", h.Scaling.Evaluate)
		scalingRoutes.Get("/deployments/:deploymentId/history", h.Scaling.GetHistory)
	}
}
