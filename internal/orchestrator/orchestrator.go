package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/coderunner/coderunner/api/internal/metrics"
	"github.com/coderunner/coderunner/api/internal/models"
	"github.com/coderunner/coderunner/api/internal/notify"
	"github.com/coderunner/coderunner/api/internal/registry"
	"github.com/coderunner/coderunner/api/internal/sandbox"
	"github.com/coderunner/coderunner/api/internal/utils"
)

// LogBuffer is the external log-buffering subsystem the orchestrator
// appends run output to and monitor tails from
type LogBuffer interface {
	Append(ctx context.Context, deploymentID string, lines []string) error
	Tail(ctx context.Context, deploymentID string, limit int) ([]string, error)
}

// Options bounds the orchestrator's resource usage
type Options struct {
	MaxSandboxesPerUser int
	SandboxMaxAge       time.Duration
	SandboxMaxIdle      time.Duration
	CleanupInterval     time.Duration
}

// Service owns the sandbox lifecycle: provisioning, discovery, capacity
// enforcement, eviction and error recovery
type Service struct {
	provider sandbox.Provider
	registry *registry.Registry
	store    DeploymentStore
	logs     LogBuffer
	metrics  metrics.Source
	notifier *notify.Notifier
	opts     Options

	// probe checks reachability of a public endpoint; swappable in tests
	probe func(ctx context.Context, url string) error

	cleanupStop    chan struct{}
	cleanupRunning chan struct{}
}

func NewService(provider sandbox.Provider, reg *registry.Registry, store DeploymentStore, logs LogBuffer, source metrics.Source, notifier *notify.Notifier, opts Options) *Service {
	if opts.MaxSandboxesPerUser <= 0 {
		opts.MaxSandboxesPerUser = 3
	}
	return &Service{
		provider:       provider,
		registry:       reg,
		store:          store,
		logs:           logs,
		metrics:        source,
		notifier:       notifier,
		opts:           opts,
		probe:          probeEndpoint,
		cleanupStop:    make(chan struct{}),
		cleanupRunning: make(chan struct{}, 1),
	}
}

// DeployRequest is the input to Deploy. Files maps relative paths to
// contents; GitURL is an alternative source cloned server-side.
type DeployRequest struct {
	UserID    string            `json:"userId"`
	ProjectID string            `json:"projectId"`
	Files     map[string]string `json:"files,omitempty"`
	GitURL    string            `json:"gitUrl,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
}

// SourceFetcher resolves a git URL into project files
type SourceFetcher func(ctx context.Context, gitURL string) (map[string]string, error)

// Deploy provisions a sandbox for the request and runs the project in
// it. Any failure marks the deployment FAILED and is returned; partial
// provider-side resources are torn down best-effort.
func (s *Service) Deploy(ctx context.Context, req DeployRequest, fetchSource SourceFetcher) (*models.Deployment, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("userId is required")
	}
	if req.ProjectID == "" {
		return nil, fmt.Errorf("projectId is required")
	}
	if len(req.Files) == 0 && req.GitURL == "" {
		return nil, fmt.Errorf("either files or gitUrl is required")
	}

	deployment := &models.Deployment{
		ID:        utils.GenerateID(),
		ProjectID: req.ProjectID,
		UserID:    req.UserID,
		Status:    models.DeploymentStatusPending,
	}
	if err := s.store.Create(ctx, deployment); err != nil {
		return nil, err
	}

	files := req.Files
	if len(files) == 0 {
		if fetchSource == nil {
			return s.failDeployment(ctx, deployment, fmt.Errorf("no source fetcher configured for git deploys"))
		}
		fetched, err := fetchSource(ctx, req.GitURL)
		if err != nil {
			return s.failDeployment(ctx, deployment, fmt.Errorf("failed to fetch source: %w", err))
		}
		files = fetched
	}

	template, err := AnalyzeProject(files)
	if err != nil {
		return s.failDeployment(ctx, deployment, err)
	}
	deployment.Runtime = utils.Ptr(template.Name)

	if err := s.enforceSandboxLimit(ctx, req.UserID); err != nil {
		return s.failDeployment(ctx, deployment, err)
	}

	handle, err := s.provider.Create(ctx, template.Base, map[string]string{
		sandbox.MetaUserID:    req.UserID,
		sandbox.MetaProjectID: req.ProjectID,
	})
	if err != nil {
		return s.failDeployment(ctx, deployment, fmt.Errorf("failed to create sandbox: %w", err))
	}

	deployment.Status = models.DeploymentStatusBuilding
	deployment.SandboxID = utils.Ptr(handle.ID())
	if err := s.store.Update(ctx, deployment); err != nil {
		s.killBestEffort(ctx, handle)
		return s.failDeployment(ctx, deployment, err)
	}

	if err := s.provision(ctx, deployment, handle, template, files, req.Env); err != nil {
		s.killBestEffort(ctx, handle)
		return s.failDeployment(ctx, deployment, err)
	}

	host, err := handle.GetHost(ctx, template.Port)
	if err != nil {
		s.killBestEffort(ctx, handle)
		return s.failDeployment(ctx, deployment, fmt.Errorf("failed to resolve public endpoint: %w", err))
	}

	deployment.Status = models.DeploymentStatusRunning
	deployment.PublicURL = utils.Ptr("https://" + host)
	if err := s.store.Update(ctx, deployment); err != nil {
		s.killBestEffort(ctx, handle)
		return s.failDeployment(ctx, deployment, err)
	}

	s.registry.Register(handle.ID(), req.UserID, req.ProjectID, handle)

	log.Printf("[Orchestrator] deployment %s running in sandbox %s (%s)", deployment.ID, handle.ID(), template.Name)
	s.notifier.Emit(deployment.ID, "deployment_running", deployment)
	return deployment, nil
}

// provision writes the project into the sandbox and runs the template's
// install and start commands
func (s *Service) provision(ctx context.Context, deployment *models.Deployment, handle sandbox.Handle, template *RuntimeTemplate, files map[string]string, env map[string]string) error {
	for path, content := range files {
		if err := handle.Write(ctx, path, []byte(content)); err != nil {
			return fmt.Errorf("failed to write project files: %w", err)
		}
	}

	if len(env) > 0 {
		var b strings.Builder
		for k, v := range env {
			fmt.Fprintf(&b, "%s=%s\n", k, v)
		}
		if err := handle.Write(ctx, ".env", []byte(b.String())); err != nil {
			return fmt.Errorf("failed to write env file: %w", err)
		}
	}

	if template.Install != "" {
		result, err := handle.Run(ctx, template.Install)
		if err != nil {
			return fmt.Errorf("install failed: %w", err)
		}
		s.appendLogs(ctx, deployment.ID, result.Stdout)
		if result.ExitCode != 0 {
			return fmt.Errorf("install exited with code %d", result.ExitCode)
		}
	}

	// Start is backgrounded inside the sandbox; a non-zero exit here
	// means the process could not even launch
	result, err := handle.Run(ctx, template.Start+" > /tmp/app.log 2>&1 &")
	if err != nil {
		return fmt.Errorf("start failed: %w", err)
	}
	s.appendLogs(ctx, deployment.ID, result.Stdout)
	if result.ExitCode != 0 {
		return fmt.Errorf("start exited with code %d", result.ExitCode)
	}
	return nil
}

// enforceSandboxLimit evicts the user's least-recently-active sandbox
// when the per-user cap is reached, then lets provisioning continue
func (s *Service) enforceSandboxLimit(ctx context.Context, userID string) error {
	for s.registry.CountByUser(userID) >= s.opts.MaxSandboxesPerUser {
		oldest, ok := s.registry.OldestByUser(userID)
		if !ok {
			return nil
		}
		log.Printf("[Orchestrator] user %s at sandbox limit, evicting %s (idle since %s)",
			userID, oldest.SandboxID, oldest.LastActivity.Format(time.RFC3339))
		if oldest.Handle != nil {
			if err := oldest.Handle.Kill(ctx); err != nil {
				s.registry.Remove(oldest.SandboxID)
				return fmt.Errorf("%w: could not evict %s: %v", ErrSandboxLimit, oldest.SandboxID, err)
			}
		}
		s.registry.Remove(oldest.SandboxID)
	}
	return nil
}

// CancelExecution marks a deployment DESTROYED and tears down its
// sandbox. Returns false when the deployment does not exist, which
// makes a second cancel of the same id return false.
func (s *Service) CancelExecution(ctx context.Context, deploymentID string) bool {
	deployment, err := s.store.Get(ctx, deploymentID)
	if err != nil {
		return false
	}
	if deployment.Status == models.DeploymentStatusDestroyed {
		return false
	}

	if deployment.SandboxID != nil {
		if entry, ok := s.registry.Get(*deployment.SandboxID); ok {
			if entry.Handle != nil {
				if err := entry.Handle.Kill(ctx); err != nil {
					log.Printf("[Orchestrator] failed to kill sandbox %s: %v", entry.SandboxID, err)
				}
			}
			s.registry.Remove(entry.SandboxID)
		}
	}

	deployment.Status = models.DeploymentStatusDestroyed
	if err := s.store.Update(ctx, deployment); err != nil {
		log.Printf("[Orchestrator] failed to mark %s destroyed: %v", deploymentID, err)
		return false
	}
	s.notifier.Emit(deploymentID, "deployment_destroyed", deployment)
	return true
}

// StopDeployment transitions RUNNING -> STOPPED, killing the sandbox
// but keeping the deployment restartable
func (s *Service) StopDeployment(ctx context.Context, deploymentID string) error {
	deployment, err := s.store.Get(ctx, deploymentID)
	if err != nil {
		return err
	}
	if !deployment.CanTransitionTo(models.DeploymentStatusStopped) {
		return fmt.Errorf("cannot stop deployment in status %s", deployment.Status)
	}

	if deployment.SandboxID != nil {
		if entry, ok := s.registry.Get(*deployment.SandboxID); ok {
			if entry.Handle != nil {
				s.killBestEffort(ctx, entry.Handle)
			}
			s.registry.Remove(entry.SandboxID)
		}
		deployment.SandboxID = nil
	}

	deployment.Status = models.DeploymentStatusStopped
	deployment.PublicURL = nil
	return s.store.Update(ctx, deployment)
}

func (s *Service) failDeployment(ctx context.Context, deployment *models.Deployment, cause error) (*models.Deployment, error) {
	deployment.Status = models.DeploymentStatusFailed
	deployment.Error = utils.Ptr(cause.Error())
	if err := s.store.Update(ctx, deployment); err != nil {
		log.Printf("[Orchestrator] failed to mark %s failed: %v", deployment.ID, err)
	}
	s.notifier.Emit(deployment.ID, "deployment_failed", deployment)
	return deployment, cause
}

func (s *Service) killBestEffort(ctx context.Context, handle sandbox.Handle) {
	if err := handle.Kill(ctx); err != nil {
		log.Printf("[Orchestrator] best-effort kill of %s failed: %v", handle.ID(), err)
	}
}

func (s *Service) appendLogs(ctx context.Context, deploymentID, output string) {
	if s.logs == nil || output == "" {
		return
	}
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if err := s.logs.Append(ctx, deploymentID, lines); err != nil {
		log.Printf("[Orchestrator] failed to buffer logs for %s: %v", deploymentID, err)
	}
}
