package orchestrator

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/coderunner/coderunner/api/internal/metrics"
	"github.com/coderunner/coderunner/api/internal/models"
)

// Health of a monitored deployment
type Health string

const (
	HealthHealthy   Health = "healthy"
	HealthUnhealthy Health = "unhealthy"
	HealthUnknown   Health = "unknown"
)

// MonitorResult is the observe-path view of one deployment. Everything
// in it except the deployment record itself is best-effort.
type MonitorResult struct {
	Status     models.DeploymentStatus `json:"status"`
	Health     Health                  `json:"health"`
	Metrics    *metrics.Snapshot       `json:"metrics,omitempty"`
	RecentLogs []string                `json:"recentLogs"`
}

const logTailLimit = 100

// Monitor returns the deployment's status, a reachability probe
// outcome, best-effort metrics and a bounded log tail. It only fails
// when the deployment record itself is absent; probe and connection
// failures degrade into the result instead.
func (s *Service) Monitor(ctx context.Context, deploymentID string) (*MonitorResult, error) {
	deployment, err := s.store.Get(ctx, deploymentID)
	if err != nil {
		return nil, err
	}

	result := &MonitorResult{
		Status:     deployment.Status,
		Health:     HealthUnknown,
		RecentLogs: []string{},
	}

	// Reattach if the sandbox is not currently tracked
	if deployment.SandboxID != nil {
		if _, ok := s.registry.Get(*deployment.SandboxID); !ok {
			s.ConnectToSandbox(ctx, *deployment.SandboxID)
		} else {
			s.registry.Touch(*deployment.SandboxID)
		}
	}

	if deployment.PublicURL != nil {
		if err := s.probe(ctx, *deployment.PublicURL); err != nil {
			log.Printf("[Orchestrator] probe of %s failed: %v", deploymentID, err)
			result.Health = HealthUnhealthy
		} else {
			result.Health = HealthHealthy
		}
	}

	if s.metrics != nil {
		if snapshot, err := s.metrics.GetCurrentMetrics(ctx, deploymentID); err == nil {
			result.Metrics = snapshot
		}
	}

	if s.logs != nil {
		if lines, err := s.logs.Tail(ctx, deploymentID, logTailLimit); err == nil {
			result.RecentLogs = lines
		}
	}

	return result, nil
}

const probeTimeout = 5 * time.Second

func probeEndpoint(ctx context.Context, url string) error {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
	return nil
}
