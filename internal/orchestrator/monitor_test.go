package orchestrator

import (
	"context"
	"errors"
	"testing"
)

func TestMonitorUnknownDeployment(t *testing.T) {
	env := setupService(t, Options{})

	_, err := env.svc.Monitor(context.Background(), "missing")
	if !errors.Is(err, ErrDeploymentNotFound) {
		t.Fatalf("err = %v, want ErrDeploymentNotFound", err)
	}
}

func TestMonitorHealthy(t *testing.T) {
	env := setupService(t, Options{})
	ctx := context.Background()

	deployment, err := env.svc.Deploy(ctx, DeployRequest{UserID: "u", ProjectID: "p", Files: nodeProject()}, nil)
	if err != nil {
		t.Fatalf("deploy failed: %v", err)
	}
	env.logs.Append(ctx, deployment.ID, []string{"listening on :3000"})

	result, err := env.svc.Monitor(ctx, deployment.ID)
	if err != nil {
		t.Fatalf("monitor failed: %v", err)
	}
	if result.Health != HealthHealthy {
		t.Errorf("health = %s, want healthy", result.Health)
	}
	if len(result.RecentLogs) == 0 {
		t.Error("expected a log tail")
	}
}

func TestMonitorProbeFailureDegrades(t *testing.T) {
	env := setupService(t, Options{})
	ctx := context.Background()

	deployment, err := env.svc.Deploy(ctx, DeployRequest{UserID: "u", ProjectID: "p", Files: nodeProject()}, nil)
	if err != nil {
		t.Fatalf("deploy failed: %v", err)
	}

	env.svc.probe = func(ctx context.Context, url string) error {
		return errors.New("connection refused")
	}

	result, err := env.svc.Monitor(ctx, deployment.ID)
	if err != nil {
		t.Fatalf("probe failure must not surface as an error, got %v", err)
	}
	if result.Health != HealthUnhealthy {
		t.Errorf("health = %s, want unhealthy", result.Health)
	}
}

func TestMonitorReconnectsUntrackedSandbox(t *testing.T) {
	env := setupService(t, Options{})
	ctx := context.Background()

	deployment, err := env.svc.Deploy(ctx, DeployRequest{UserID: "u", ProjectID: "p", Files: nodeProject()}, nil)
	if err != nil {
		t.Fatalf("deploy failed: %v", err)
	}

	// Simulate a restart losing the in-memory registry entry
	env.registry.Remove(*deployment.SandboxID)

	if _, err := env.svc.Monitor(ctx, deployment.ID); err != nil {
		t.Fatalf("monitor failed: %v", err)
	}
	if _, ok := env.registry.Get(*deployment.SandboxID); !ok {
		t.Error("expected monitor to re-register the sandbox")
	}
}
