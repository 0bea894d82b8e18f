package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coderunner/coderunner/api/internal/models"
	"github.com/coderunner/coderunner/api/internal/notify"
	"github.com/coderunner/coderunner/api/internal/registry"
	"github.com/coderunner/coderunner/api/internal/sandbox"
)

// fakeStore is an in-memory DeploymentStore
type fakeStore struct {
	mu          sync.Mutex
	deployments map[string]models.Deployment
	updateErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{deployments: make(map[string]models.Deployment)}
}

func (f *fakeStore) Create(ctx context.Context, d *models.Deployment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deployments[d.ID] = *d
	return nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*models.Deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deployments[id]
	if !ok {
		return nil, ErrDeploymentNotFound
	}
	copy := d
	return &copy, nil
}

func (f *fakeStore) Update(ctx context.Context, d *models.Deployment) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deployments[d.ID] = *d
	return nil
}

func (f *fakeStore) ListByUser(ctx context.Context, userID string) ([]models.Deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Deployment
	for _, d := range f.deployments {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

// fakeLogs is an in-memory LogBuffer
type fakeLogs struct {
	mu    sync.Mutex
	lines map[string][]string
}

func newFakeLogs() *fakeLogs {
	return &fakeLogs{lines: make(map[string][]string)}
}

func (f *fakeLogs) Append(ctx context.Context, id string, lines []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines[id] = append(f.lines[id], lines...)
	return nil
}

func (f *fakeLogs) Tail(ctx context.Context, id string, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := f.lines[id]
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines, nil
}

func discardNotifier() *notify.Notifier {
	return notify.NewWithPublisher(func(ctx context.Context, room string, data interface{}) error {
		return nil
	})
}

type testEnv struct {
	svc      *Service
	provider *sandbox.MockProvider
	store    *fakeStore
	registry *registry.Registry
	logs     *fakeLogs
}

func setupService(t *testing.T, opts Options) *testEnv {
	t.Helper()
	provider := sandbox.NewMockProvider()
	store := newFakeStore()
	reg := registry.New()
	logs := newFakeLogs()
	notifier := discardNotifier()
	t.Cleanup(notifier.Stop)

	svc := NewService(provider, reg, store, logs, nil, notifier, opts)
	svc.probe = func(ctx context.Context, url string) error { return nil }
	return &testEnv{svc: svc, provider: provider, store: store, registry: reg, logs: logs}
}

func nodeProject() map[string]string {
	return map[string]string{
		"package.json": `{"name":"app","scripts":{"start":"node index.js"}}`,
		"index.js":     "require('http').createServer().listen(3000)",
	}
}

func TestDeployHappyPath(t *testing.T) {
	env := setupService(t, Options{})
	ctx := context.Background()

	deployment, err := env.svc.Deploy(ctx, DeployRequest{
		UserID:    "user-1",
		ProjectID: "proj-1",
		Files:     nodeProject(),
	}, nil)
	if err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}

	if deployment.Status != models.DeploymentStatusRunning {
		t.Errorf("status = %s, want RUNNING", deployment.Status)
	}
	if deployment.SandboxID == nil {
		t.Fatal("expected a sandbox id")
	}
	if deployment.PublicURL == nil {
		t.Fatal("expected a public URL")
	}
	if got := *deployment.Runtime; got != "node" {
		t.Errorf("runtime = %s, want node", got)
	}
	if _, ok := env.registry.Get(*deployment.SandboxID); !ok {
		t.Error("sandbox is not registered")
	}

	// Project files were written into the sandbox
	handle := env.provider.Sandboxes[*deployment.SandboxID]
	if _, ok := handle.Files["package.json"]; !ok {
		t.Error("package.json was not written to the sandbox")
	}
	if len(handle.Commands) != 2 {
		t.Errorf("ran %d commands, want install+start", len(handle.Commands))
	}
}

func TestDeployValidation(t *testing.T) {
	env := setupService(t, Options{})
	ctx := context.Background()

	cases := []DeployRequest{
		{ProjectID: "p", Files: nodeProject()},
		{UserID: "u", Files: nodeProject()},
		{UserID: "u", ProjectID: "p"},
	}
	for i, req := range cases {
		if _, err := env.svc.Deploy(ctx, req, nil); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestDeployProviderFailureMarksFailed(t *testing.T) {
	env := setupService(t, Options{})
	env.provider.CreateErr = errors.New("provider down")
	ctx := context.Background()

	deployment, err := env.svc.Deploy(ctx, DeployRequest{
		UserID:    "user-1",
		ProjectID: "proj-1",
		Files:     nodeProject(),
	}, nil)
	if err == nil {
		t.Fatal("expected the provider error to surface")
	}
	if deployment.Status != models.DeploymentStatusFailed {
		t.Errorf("status = %s, want FAILED", deployment.Status)
	}
	if deployment.Error == nil {
		t.Error("expected the originating error to be recorded")
	}
}

func TestDeployInstallFailureTearsDownSandbox(t *testing.T) {
	env := setupService(t, Options{})
	ctx := context.Background()

	env.provider.HandleRunFn = func(ctx context.Context, command string) (*sandbox.ExecResult, error) {
		return &sandbox.ExecResult{ExitCode: 1, Stdout: "npm ERR!"}, nil
	}

	failed, err := env.svc.Deploy(ctx, DeployRequest{
		UserID:    "user-2",
		ProjectID: "proj-2",
		Files:     nodeProject(),
	}, nil)
	if err == nil {
		t.Fatal("expected install failure to surface")
	}
	if failed.Status != models.DeploymentStatusFailed {
		t.Errorf("status = %s, want FAILED", failed.Status)
	}
	// The partially provisioned sandbox was killed best-effort
	if failed.SandboxID != nil {
		if h, ok := env.provider.Sandboxes[*failed.SandboxID]; ok && !h.Killed {
			t.Error("expected the partial sandbox to be killed")
		}
	}
}

func TestEnforceSandboxLimitEvictsLRU(t *testing.T) {
	env := setupService(t, Options{MaxSandboxesPerUser: 2})
	ctx := context.Background()

	first, err := env.svc.Deploy(ctx, DeployRequest{UserID: "user-1", ProjectID: "p1", Files: nodeProject()}, nil)
	if err != nil {
		t.Fatalf("deploy 1 failed: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := env.svc.Deploy(ctx, DeployRequest{UserID: "user-1", ProjectID: "p2", Files: nodeProject()}, nil)
	if err != nil {
		t.Fatalf("deploy 2 failed: %v", err)
	}

	// Touch the first so the second becomes least recently active
	env.registry.Touch(*first.SandboxID)
	time.Sleep(2 * time.Millisecond)

	third, err := env.svc.Deploy(ctx, DeployRequest{UserID: "user-1", ProjectID: "p3", Files: nodeProject()}, nil)
	if err != nil {
		t.Fatalf("deploy 3 failed: %v", err)
	}

	if env.registry.CountByUser("user-1") != 2 {
		t.Errorf("tracked sandboxes = %d, want 2", env.registry.CountByUser("user-1"))
	}
	if _, ok := env.registry.Get(*second.SandboxID); ok {
		t.Error("expected the least-recently-active sandbox to be evicted")
	}
	if !env.provider.Sandboxes[*second.SandboxID].Killed {
		t.Error("expected the evicted sandbox to be killed at the provider")
	}
	if _, ok := env.registry.Get(*first.SandboxID); !ok {
		t.Error("recently active sandbox should survive eviction")
	}
	if _, ok := env.registry.Get(*third.SandboxID); !ok {
		t.Error("new sandbox should be registered")
	}
}

func TestEvictionIsScopedPerUser(t *testing.T) {
	env := setupService(t, Options{MaxSandboxesPerUser: 1})
	ctx := context.Background()

	other, err := env.svc.Deploy(ctx, DeployRequest{UserID: "user-2", ProjectID: "p1", Files: nodeProject()}, nil)
	if err != nil {
		t.Fatalf("deploy failed: %v", err)
	}
	if _, err := env.svc.Deploy(ctx, DeployRequest{UserID: "user-1", ProjectID: "p2", Files: nodeProject()}, nil); err != nil {
		t.Fatalf("deploy failed: %v", err)
	}

	// user-2's sandbox must not be touched by user-1 reaching the cap
	if _, err := env.svc.Deploy(ctx, DeployRequest{UserID: "user-1", ProjectID: "p3", Files: nodeProject()}, nil); err != nil {
		t.Fatalf("deploy failed: %v", err)
	}
	if _, ok := env.registry.Get(*other.SandboxID); !ok {
		t.Error("eviction crossed user boundaries")
	}
}

func TestCancelExecution(t *testing.T) {
	env := setupService(t, Options{})
	ctx := context.Background()

	deployment, err := env.svc.Deploy(ctx, DeployRequest{UserID: "user-1", ProjectID: "p1", Files: nodeProject()}, nil)
	if err != nil {
		t.Fatalf("deploy failed: %v", err)
	}

	if !env.svc.CancelExecution(ctx, deployment.ID) {
		t.Fatal("first cancel should return true")
	}

	stored, _ := env.store.Get(ctx, deployment.ID)
	if stored.Status != models.DeploymentStatusDestroyed {
		t.Errorf("status = %s, want DESTROYED", stored.Status)
	}
	if _, ok := env.registry.Get(*deployment.SandboxID); ok {
		t.Error("sandbox should be removed from the registry")
	}
	if !env.provider.Sandboxes[*deployment.SandboxID].Killed {
		t.Error("sandbox should be killed")
	}

	// Second cancel: resource already gone
	if env.svc.CancelExecution(ctx, deployment.ID) {
		t.Error("second cancel should return false")
	}
	// Unknown deployment
	if env.svc.CancelExecution(ctx, "missing") {
		t.Error("cancel of unknown deployment should return false")
	}
}

func TestStopDeployment(t *testing.T) {
	env := setupService(t, Options{})
	ctx := context.Background()

	deployment, err := env.svc.Deploy(ctx, DeployRequest{UserID: "user-1", ProjectID: "p1", Files: nodeProject()}, nil)
	if err != nil {
		t.Fatalf("deploy failed: %v", err)
	}

	if err := env.svc.StopDeployment(ctx, deployment.ID); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	stored, _ := env.store.Get(ctx, deployment.ID)
	if stored.Status != models.DeploymentStatusStopped {
		t.Fatalf("status = %s, want STOPPED", stored.Status)
	}

	// Stopping again is rejected by the state machine
	if err := env.svc.StopDeployment(ctx, deployment.ID); err == nil {
		t.Error("expected stop of a stopped deployment to fail")
	}
}
