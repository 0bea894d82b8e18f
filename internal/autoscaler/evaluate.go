package autoscaler

import (
	"context"
	"log"

	"github.com/coderunner/coderunner/api/internal/metrics"
	"github.com/coderunner/coderunner/api/internal/models"
	"github.com/coderunner/coderunner/api/internal/utils"
	"github.com/google/uuid"
)

// Decision is the outcome of one evaluation
type Decision struct {
	DeploymentID     string               `json:"deploymentId"`
	Action           models.ScalingAction `json:"action"`
	Confidence       float64              `json:"confidence"`
	TargetInstances  int                  `json:"targetInstances"`
	TriggeredMetrics []string             `json:"triggeredMetrics"`
	Reason           string               `json:"reason"`
}

// Normalization divisors mapping raw readings onto a 0-1 scale
const (
	divisorPercent      = 100.0
	divisorErrorRate    = 10.0
	divisorResponseTime = 5000.0
	divisorRequests     = 1000.0
)

func normalize(name models.MetricName, raw float64) float64 {
	var v float64
	switch name {
	case models.MetricCPU, models.MetricMemory:
		v = raw / divisorPercent
	case models.MetricErrorRate:
		v = raw / divisorErrorRate
	case models.MetricResponseTime:
		v = raw / divisorResponseTime
	case models.MetricRequests:
		v = raw / divisorRequests
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func compare(value, threshold float64, cmp models.Comparison) bool {
	switch cmp {
	case models.ComparisonGT:
		return value > threshold
	case models.ComparisonGTE:
		return value >= threshold
	case models.ComparisonLT:
		return value < threshold
	case models.ComparisonLTE:
		return value <= threshold
	}
	return false
}

// Evaluate computes and applies one scaling decision for a deployment.
// A metrics failure, an absent policy or an active cooldown all degrade
// to no_change; evaluation never propagates an error upward.
func (s *Service) Evaluate(ctx context.Context, deploymentID string) Decision {
	lock := s.lockFor(deploymentID)
	lock.Lock()
	defer lock.Unlock()

	noChange := func(reason string) Decision {
		return Decision{
			DeploymentID:     deploymentID,
			Action:           models.ActionNoChange,
			TargetInstances:  s.CurrentInstances(deploymentID),
			TriggeredMetrics: []string{},
			Reason:           reason,
		}
	}

	cached := s.cachedPolicyFor(deploymentID)
	if cached == nil {
		return noChange("No enabled policy")
	}
	config := cached.config

	s.mu.Lock()
	lastAction, hasCooldown := s.cooldowns[deploymentID]
	s.mu.Unlock()
	if hasCooldown && s.now().Sub(lastAction) < config.CooldownPeriod() {
		return noChange("Cooldown period active")
	}

	snapshot, err := s.source.GetCurrentMetrics(ctx, deploymentID)
	if err != nil {
		return noChange("Unable to collect metrics")
	}

	var (
		score       float64
		totalWeight float64
		triggered   []string
	)
	for _, rule := range config.Metrics {
		normalized := normalize(rule.Metric, snapshot.Raw(rule.Metric))
		if compare(normalized, rule.Threshold, rule.Comparison) {
			triggered = append(triggered, string(rule.Metric))
			score += rule.Weight * normalized
			totalWeight += rule.Weight
		}
	}

	confidence := totalWeight
	if confidence > 1 {
		confidence = 1
	}
	avgScore := 0.0
	if totalWeight > 0 {
		avgScore = score / totalWeight
	}

	current := s.CurrentInstances(deploymentID)
	decision := Decision{
		DeploymentID:     deploymentID,
		Action:           models.ActionNoChange,
		Confidence:       confidence,
		TargetInstances:  current,
		TriggeredMetrics: triggered,
	}
	if decision.TriggeredMetrics == nil {
		decision.TriggeredMetrics = []string{}
	}

	minInstances := config.MinInstances
	if minInstances < 1 {
		minInstances = 1
	}
	maxInstances := config.MaxInstances
	if maxInstances > s.opts.MaxInstancesCap {
		maxInstances = s.opts.MaxInstancesCap
	}

	switch {
	case avgScore >= config.ScaleUpThreshold && totalWeight > 0:
		if current >= maxInstances {
			decision.Reason = "At maximum capacity"
			return decision
		}
		decision.Action = models.ActionScaleUp
		decision.TargetInstances = current + 1
		decision.Reason = "Weighted score above scale-up threshold"
	case avgScore <= config.ScaleDownThreshold:
		if current <= minInstances {
			decision.Reason = "At minimum capacity"
			return decision
		}
		decision.Action = models.ActionScaleDown
		decision.TargetInstances = current - 1
		decision.Reason = "Weighted score below scale-down threshold"
	default:
		decision.Reason = "Score within thresholds"
		return decision
	}

	s.applyDecision(ctx, &decision, cached, snapshot, current)
	return decision
}

// applyDecision executes a scale action and records its side effects:
// instance count, cooldown stamp and the audit event
func (s *Service) applyDecision(ctx context.Context, decision *Decision, cached *cachedPolicy, snapshot *metrics.Snapshot, fromInstances int) {
	if s.executor != nil {
		if err := s.executor.Scale(ctx, decision.DeploymentID, decision.TargetInstances); err != nil {
			log.Printf("[AutoScaler] failed to apply %s for %s: %v", decision.Action, decision.DeploymentID, err)
			decision.Action = models.ActionNoChange
			decision.TargetInstances = fromInstances
			decision.Reason = "Scaling action failed to apply"
			return
		}
	}

	s.mu.Lock()
	s.instances[decision.DeploymentID] = decision.TargetInstances
	s.cooldowns[decision.DeploymentID] = s.now()
	s.mu.Unlock()

	snapshotJSON, _ := models.MarshalJSONColumn(snapshot)
	event := &models.ScalingEvent{
		ID:              uuid.NewString(),
		DeploymentID:    decision.DeploymentID,
		PolicyID:        utils.Ptr(cached.policy.ID),
		EventType:       models.ScalingEventType(decision.Action),
		FromInstances:   fromInstances,
		ToInstances:     decision.TargetInstances,
		Reason:          decision.Reason,
		MetricsSnapshot: snapshotJSON,
	}
	if err := s.events.Append(ctx, event); err != nil {
		log.Printf("[AutoScaler] failed to persist scaling event for %s: %v", decision.DeploymentID, err)
	}

	if s.notifier != nil {
		s.notifier.Emit(decision.DeploymentID, "scaling_decision", decision)
	}
}
