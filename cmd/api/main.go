package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/coderunner/coderunner/api/internal/autoscaler"
	"github.com/coderunner/coderunner/api/internal/config"
	"github.com/coderunner/coderunner/api/internal/database"
	deploymenthandlers "github.com/coderunner/coderunner/api/internal/handlers/deployments"
	sandboxhandlers "github.com/coderunner/coderunner/api/internal/handlers/sandboxes"
	scalinghandlers "github.com/coderunner/coderunner/api/internal/handlers/scaling"
	webhookmetrics "github.com/coderunner/coderunner/api/internal/handlers/webhooks/metrics"
	"github.com/coderunner/coderunner/api/internal/metrics"
	"github.com/coderunner/coderunner/api/internal/notify"
	"github.com/coderunner/coderunner/api/internal/orchestrator"
	"github.com/coderunner/coderunner/api/internal/redis"
	"github.com/coderunner/coderunner/api/internal/registry"
	"github.com/coderunner/coderunner/api/internal/routes"
	"github.com/coderunner/coderunner/api/internal/sandbox"
	"github.com/coderunner/coderunner/api/internal/websocket"
	"github.com/coderunner/coderunner/api/pkg/gitsource"
	"github.com/coderunner/coderunner/api/pkg/scaler"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := database.Connect(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Redis
	if err := redis.Initialize(cfg); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	db := database.GetDatabase()
	notifier := notify.New()
	metricsStore := metrics.NewStore(db)

	// Sandbox orchestration
	provider := sandbox.NewClient(cfg.SandboxAPIURL, cfg.SandboxAPIKey)
	reg := registry.New()
	orchestratorSvc := orchestrator.NewService(
		provider,
		reg,
		orchestrator.NewGormDeploymentStore(db),
		orchestrator.RedisLogBuffer{},
		metricsStore,
		notifier,
		orchestrator.Options{
			MaxSandboxesPerUser: cfg.MaxSandboxesPerUser,
			SandboxMaxAge:       cfg.SandboxMaxAge,
			SandboxMaxIdle:      cfg.SandboxMaxIdle,
			CleanupInterval:     cfg.CleanupInterval,
		},
	)

	// Autoscaling: the executor adjusts replicas in the cluster. The
	// engine still runs without one, recording decisions only.
	var executor autoscaler.Executor
	if kubeExecutor, err := scaler.NewExecutor(cfg.KubeConfigPath, cfg.ScalerNamespace); err != nil {
		log.Printf("[Main] scaling executor unavailable: %v", err)
	} else {
		executor = kubeExecutor
	}
	autoscalerSvc := autoscaler.NewService(
		autoscaler.NewGormPolicyStore(db),
		autoscaler.NewGormEventStore(db),
		metricsStore,
		executor,
		notifier,
		autoscaler.Options{
			EvaluationInterval: cfg.EvaluationInterval,
			MaxInstancesCap:    cfg.MaxInstancesCap,
		},
	)
	if err := autoscalerSvc.LoadActivePolicies(context.Background()); err != nil {
		log.Printf("[Main] failed to load scaling policies: %v", err)
	}

	// Background loops
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	orchestratorSvc.StartCleanup(ctx)
	autoscalerSvc.StartEvaluation(ctx)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CorsOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: true,
	}))

	// Setup routes
	fetch := func(ctx context.Context, gitURL string) (map[string]string, error) {
		return gitsource.Fetch(ctx, gitURL, gitsource.Options{})
	}
	routes.Setup(app, cfg, routes.Handlers{
		Deployments: deploymenthandlers.NewHandler(orchestratorSvc, orchestrator.NewGormDeploymentStore(db), orchestrator.RedisLogBuffer{}, fetch),
		Sandboxes: sandboxhandlers.NewHandler(orchestratorSvc, orchestrator.CleanupOptions{
			MaxAge:  cfg.SandboxMaxAge,
			MaxIdle: cfg.SandboxMaxIdle,
		}),
		Scaling: scalinghandlers.NewHandler(autoscalerSvc),
		Metrics: webhookmetrics.NewHandler(metricsStore),
	})

	// Initialize WebSocket hub
	websocket.GetHub()

	// Start Redis subscriber for WebSocket messages
	go websocket.StartRedisSubscriber(cfg)

	// Shut background loops down before the listener exits
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down...")
		orchestratorSvc.StopCleanup()
		autoscalerSvc.StopEvaluation()
		notifier.Stop()
		cancel()
		_ = app.Shutdown()
	}()

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"status":  "error",
		"message": err.Error(),
	})
}
