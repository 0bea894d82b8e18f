package autoscaler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coderunner/coderunner/api/internal/metrics"
	"github.com/coderunner/coderunner/api/internal/models"
)

type fakePolicyStore struct {
	mu       sync.Mutex
	policies map[string]models.ScalingPolicy

	createErr error
}

func newFakePolicyStore() *fakePolicyStore {
	return &fakePolicyStore{policies: make(map[string]models.ScalingPolicy)}
}

func (f *fakePolicyStore) Create(ctx context.Context, policy *models.ScalingPolicy) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policies[policy.ID] = *policy
	return nil
}

func (f *fakePolicyStore) Update(ctx context.Context, policy *models.ScalingPolicy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.policies[policy.ID]; !ok {
		return ErrPolicyNotFound
	}
	f.policies[policy.ID] = *policy
	return nil
}

func (f *fakePolicyStore) Get(ctx context.Context, id string) (*models.ScalingPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	policy, ok := f.policies[id]
	if !ok {
		return nil, ErrPolicyNotFound
	}
	return &policy, nil
}

func (f *fakePolicyStore) ListEnabled(ctx context.Context) ([]models.ScalingPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ScalingPolicy
	for _, p := range f.policies {
		if p.IsEnabled {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeEventStore struct {
	mu     sync.Mutex
	events []models.ScalingEvent
}

func (f *fakeEventStore) Append(ctx context.Context, event *models.ScalingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeEventStore) ListByDeployment(ctx context.Context, deploymentID string, limit int) ([]models.ScalingEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ScalingEvent
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].DeploymentID == deploymentID {
			out = append(out, f.events[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeEventStore) all() []models.ScalingEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ScalingEvent, len(f.events))
	copy(out, f.events)
	return out
}

type fakeSource struct {
	mu        sync.Mutex
	snapshots map[string]*metrics.Snapshot
	err       error
}

func (f *fakeSource) GetCurrentMetrics(ctx context.Context, deploymentID string) (*metrics.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	snap, ok := f.snapshots[deploymentID]
	if !ok {
		return nil, metrics.ErrUnavailable
	}
	return snap, nil
}

func (f *fakeSource) set(deploymentID string, cpu, memory, errorRate, responseTime, requests float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := &metrics.Snapshot{
		ErrorRate:      errorRate,
		ResponseTimeMs: responseTime,
		RequestsPerMin: requests,
		Timestamp:      time.Now(),
	}
	snap.System.CPU.Usage = cpu
	snap.System.Memory.UsagePercent = memory
	f.snapshots[deploymentID] = snap
}

type fakeExecutor struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (f *fakeExecutor) Scale(ctx context.Context, deploymentID string, instances int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, instances)
	return nil
}

type scalerEnv struct {
	service  *Service
	policies *fakePolicyStore
	events   *fakeEventStore
	source   *fakeSource
	executor *fakeExecutor
}

func setupScaler(t *testing.T) *scalerEnv {
	t.Helper()
	env := &scalerEnv{
		policies: newFakePolicyStore(),
		events:   &fakeEventStore{},
		source:   &fakeSource{snapshots: make(map[string]*metrics.Snapshot)},
		executor: &fakeExecutor{},
	}
	env.service = NewService(env.policies, env.events, env.source, env.executor, nil, Options{
		EvaluationInterval: time.Minute,
		MaxInstancesCap:    10,
	})
	return env
}

func cpuMemoryPolicy() models.PolicyConfigData {
	return models.PolicyConfigData{
		Metrics: []models.MetricRule{
			{Metric: models.MetricCPU, Threshold: 0.7, Comparison: models.ComparisonGT, Weight: 0.6},
			{Metric: models.MetricMemory, Threshold: 0.8, Comparison: models.ComparisonGT, Weight: 0.4},
		},
		ScaleUpThreshold:   0.7,
		ScaleDownThreshold: 0.3,
		CooldownPeriodMs:   5 * 60 * 1000,
		MinInstances:       1,
		MaxInstances:       5,
	}
}

func (env *scalerEnv) mustCreatePolicy(t *testing.T, deploymentID string, config models.PolicyConfigData) *models.ScalingPolicy {
	t.Helper()
	policy, err := env.service.CreatePolicy(context.Background(), PolicyInput{
		DeploymentID: deploymentID,
		Name:         "test policy",
		Config:       config,
	})
	if err != nil {
		t.Fatalf("CreatePolicy failed: %v", err)
	}
	return policy
}

func TestCreatePolicyValidation(t *testing.T) {
	env := setupScaler(t)
	base := cpuMemoryPolicy()

	cases := []struct {
		name   string
		mutate func(*PolicyInput)
	}{
		{"missing deployment", func(in *PolicyInput) { in.DeploymentID = "" }},
		{"missing name", func(in *PolicyInput) { in.Name = "" }},
		{"zero min instances", func(in *PolicyInput) { in.Config.MinInstances = 0 }},
		{"max below min", func(in *PolicyInput) { in.Config.MinInstances = 4; in.Config.MaxInstances = 2 }},
		{"max above cap", func(in *PolicyInput) { in.Config.MaxInstances = 50 }},
		{"inverted thresholds", func(in *PolicyInput) { in.Config.ScaleDownThreshold = 0.9 }},
		{"no metric rules", func(in *PolicyInput) { in.Config.Metrics = nil }},
		{"unknown metric", func(in *PolicyInput) { in.Config.Metrics[0].Metric = "disk" }},
		{"unknown comparison", func(in *PolicyInput) { in.Config.Metrics[0].Comparison = "ne" }},
		{"threshold above one", func(in *PolicyInput) { in.Config.Metrics[0].Threshold = 1.5 }},
		{"negative weight", func(in *PolicyInput) { in.Config.Metrics[0].Weight = -0.1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := PolicyInput{DeploymentID: "dep-1", Name: "p", Config: base}
			input.Config.Metrics = append([]models.MetricRule(nil), base.Metrics...)
			tc.mutate(&input)
			if _, err := env.service.CreatePolicy(context.Background(), input); !errors.Is(err, ErrInvalidPolicy) {
				t.Fatalf("expected ErrInvalidPolicy, got %v", err)
			}
		})
	}
}

func TestCreatePolicyActivates(t *testing.T) {
	env := setupScaler(t)
	policy := env.mustCreatePolicy(t, "dep-1", cpuMemoryPolicy())

	if !policy.IsEnabled {
		t.Fatal("new policy should be enabled")
	}
	cached := env.service.cachedPolicyFor("dep-1")
	if cached == nil || cached.policy.ID != policy.ID {
		t.Fatal("policy should be in the active cache")
	}
}

func TestDisablePolicyDropsFromCache(t *testing.T) {
	env := setupScaler(t)
	policy := env.mustCreatePolicy(t, "dep-1", cpuMemoryPolicy())

	if err := env.service.DisablePolicy(context.Background(), policy.ID); err != nil {
		t.Fatalf("DisablePolicy failed: %v", err)
	}
	if env.service.cachedPolicyFor("dep-1") != nil {
		t.Fatal("disabled policy should leave the cache")
	}
	decision := env.service.Evaluate(context.Background(), "dep-1")
	if decision.Action != models.ActionNoChange || decision.Reason != "No enabled policy" {
		t.Fatalf("got %s / %q", decision.Action, decision.Reason)
	}
}

func TestLoadActivePolicies(t *testing.T) {
	env := setupScaler(t)
	env.mustCreatePolicy(t, "dep-1", cpuMemoryPolicy())
	env.mustCreatePolicy(t, "dep-2", cpuMemoryPolicy())

	// fresh service over the same store simulates a restart
	restarted := NewService(env.policies, env.events, env.source, env.executor, nil, Options{MaxInstancesCap: 10})
	if err := restarted.LoadActivePolicies(context.Background()); err != nil {
		t.Fatalf("LoadActivePolicies failed: %v", err)
	}
	if restarted.cachedPolicyFor("dep-1") == nil || restarted.cachedPolicyFor("dep-2") == nil {
		t.Fatal("both policies should be cached after reload")
	}
}

func TestPolicyTemplatesAreValid(t *testing.T) {
	env := setupScaler(t)
	templates := PolicyTemplates()

	if len(templates) != 5 {
		t.Fatalf("expected 5 templates, got %d", len(templates))
	}
	for _, name := range TemplateNames() {
		config, ok := templates[name]
		if !ok {
			t.Fatalf("template %q missing", name)
		}
		if _, err := env.service.CreatePolicy(context.Background(), PolicyInput{
			DeploymentID: "dep-" + name,
			Name:         name,
			Config:       config,
		}); err != nil {
			t.Fatalf("template %q does not pass validation: %v", name, err)
		}
	}
}

func TestCleanupClearsState(t *testing.T) {
	env := setupScaler(t)
	env.mustCreatePolicy(t, "dep-1", cpuMemoryPolicy())
	env.service.mu.Lock()
	env.service.instances["dep-1"] = 4
	env.service.cooldowns["dep-1"] = time.Now()
	env.service.mu.Unlock()

	env.service.Cleanup()

	if env.service.cachedPolicyFor("dep-1") != nil {
		t.Fatal("cleanup should clear the policy cache")
	}
	if got := env.service.CurrentInstances("dep-1"); got != 1 {
		t.Fatalf("instance tracking should reset to the seed value, got %d", got)
	}
	// Cleanup and StopEvaluation stay idempotent
	env.service.Cleanup()
	env.service.StopEvaluation()
}
