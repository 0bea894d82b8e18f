package autoscaler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/coderunner/coderunner/api/internal/metrics"
	"github.com/coderunner/coderunner/api/internal/models"
	"github.com/coderunner/coderunner/api/internal/notify"
)

// Executor applies a scale action to the running capacity of a
// deployment. Failures surface to the caller; the autoscaler never
// mutates its own state on executor failure.
type Executor interface {
	Scale(ctx context.Context, deploymentID string, instances int) error
}

// Options bounds the autoscaler
type Options struct {
	EvaluationInterval time.Duration
	MaxInstancesCap    int
}

// Service is the autoscaling decision engine: policy cache, cooldown
// tracker, instance-count tracker and the evaluation loop. All scaling
// state lives in this process; running two control-plane instances
// against the same deployments is not supported.
type Service struct {
	policies PolicyStore
	events   EventStore
	source   metrics.Source
	executor Executor
	notifier *notify.Notifier
	opts     Options

	mu             sync.Mutex
	activePolicies map[string]*cachedPolicy
	cooldowns      map[string]time.Time
	instances      map[string]int
	deployLocks    map[string]*sync.Mutex

	// now is swappable in tests
	now func() time.Time

	evalRunning chan struct{}
	stopCh      chan struct{}
	stopOnce    sync.Once
}

type cachedPolicy struct {
	policy models.ScalingPolicy
	config models.PolicyConfigData
}

func NewService(policies PolicyStore, events EventStore, source metrics.Source, executor Executor, notifier *notify.Notifier, opts Options) *Service {
	if opts.MaxInstancesCap <= 0 {
		opts.MaxInstancesCap = 10
	}
	if opts.EvaluationInterval <= 0 {
		opts.EvaluationInterval = 30 * time.Second
	}
	return &Service{
		policies:       policies,
		events:         events,
		source:         source,
		executor:       executor,
		notifier:       notifier,
		opts:           opts,
		activePolicies: make(map[string]*cachedPolicy),
		cooldowns:      make(map[string]time.Time),
		instances:      make(map[string]int),
		deployLocks:    make(map[string]*sync.Mutex),
		now:            time.Now,
		evalRunning:    make(chan struct{}, 1),
		stopCh:         make(chan struct{}),
	}
}

// lockFor returns the per-deployment mutex, creating it on first use.
// A single deployment never has two scale decisions computed
// concurrently; different deployments evaluate in parallel.
func (s *Service) lockFor(deploymentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.deployLocks[deploymentID]
	if !ok {
		l = &sync.Mutex{}
		s.deployLocks[deploymentID] = l
	}
	return l
}

func (s *Service) cachedPolicyFor(deploymentID string) *cachedPolicy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activePolicies[deploymentID]
}

// CurrentInstances returns the control plane's belief about the live
// replica count, seeding to 1 for deployments it has not seen
func (s *Service) CurrentInstances(deploymentID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.instances[deploymentID]; ok {
		return n
	}
	s.instances[deploymentID] = 1
	return 1
}

// StartEvaluation arms the periodic evaluation loop. Ticks are
// non-reentrant: a tick still running when the next fires is skipped.
func (s *Service) StartEvaluation(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.opts.EvaluationInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				select {
				case s.evalRunning <- struct{}{}:
					s.evaluateAll(ctx)
					<-s.evalRunning
				default:
					log.Printf("[AutoScaler] previous evaluation pass still running, skipping tick")
				}
			}
		}
	}()
	log.Printf("[AutoScaler] evaluation loop started (interval %s)", s.opts.EvaluationInterval)
}

// StopEvaluation disarms the loop. Safe to call multiple times.
func (s *Service) StopEvaluation() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// Cleanup stops the loop and clears all in-memory scaling state
func (s *Service) Cleanup() {
	s.StopEvaluation()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.activePolicies = make(map[string]*cachedPolicy)
	s.cooldowns = make(map[string]time.Time)
	s.instances = make(map[string]int)
	s.deployLocks = make(map[string]*sync.Mutex)
}

// evaluateAll runs one pass over every deployment with an active
// policy. Per-deployment failures are logged and never abort the pass.
func (s *Service) evaluateAll(ctx context.Context) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.activePolicies))
	for id := range s.activePolicies {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(deploymentID string) {
			defer wg.Done()
			decision := s.Evaluate(ctx, deploymentID)
			if decision.Action != models.ActionNoChange {
				log.Printf("[AutoScaler] %s: %s -> %d instances (%s)",
					deploymentID, decision.Action, decision.TargetInstances, decision.Reason)
			}
		}(id)
	}
	wg.Wait()
}
