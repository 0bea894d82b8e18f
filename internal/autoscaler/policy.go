package autoscaler

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/coderunner/coderunner/api/internal/models"
	"github.com/coderunner/coderunner/api/internal/utils"
)

// ErrInvalidPolicy rejects a policy write that fails validation
var ErrInvalidPolicy = errors.New("invalid scaling policy")

// PolicyInput is the CRUD payload for a scaling policy
type PolicyInput struct {
	DeploymentID string                  `json:"deploymentId"`
	Name         string                  `json:"name"`
	Config       models.PolicyConfigData `json:"config"`
}

func (s *Service) validate(input PolicyInput) error {
	if input.DeploymentID == "" {
		return fmt.Errorf("%w: deploymentId is required", ErrInvalidPolicy)
	}
	if input.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPolicy)
	}
	c := input.Config
	if c.MinInstances < 1 {
		return fmt.Errorf("%w: minInstances must be at least 1", ErrInvalidPolicy)
	}
	if c.MaxInstances < c.MinInstances {
		return fmt.Errorf("%w: maxInstances must be >= minInstances", ErrInvalidPolicy)
	}
	if c.MaxInstances > s.opts.MaxInstancesCap {
		return fmt.Errorf("%w: maxInstances exceeds the cap of %d", ErrInvalidPolicy, s.opts.MaxInstancesCap)
	}
	if c.ScaleDownThreshold >= c.ScaleUpThreshold {
		return fmt.Errorf("%w: scaleDownThreshold must be below scaleUpThreshold", ErrInvalidPolicy)
	}
	if c.CooldownPeriodMs < 0 {
		return fmt.Errorf("%w: cooldownPeriod must not be negative", ErrInvalidPolicy)
	}
	if len(c.Metrics) == 0 {
		return fmt.Errorf("%w: at least one metric rule is required", ErrInvalidPolicy)
	}
	for _, rule := range c.Metrics {
		switch rule.Metric {
		case models.MetricCPU, models.MetricMemory, models.MetricErrorRate,
			models.MetricResponseTime, models.MetricRequests:
		default:
			return fmt.Errorf("%w: unknown metric %q", ErrInvalidPolicy, rule.Metric)
		}
		switch rule.Comparison {
		case models.ComparisonGT, models.ComparisonGTE, models.ComparisonLT, models.ComparisonLTE:
		default:
			return fmt.Errorf("%w: unknown comparison %q", ErrInvalidPolicy, rule.Comparison)
		}
		if rule.Threshold < 0 || rule.Threshold > 1 {
			return fmt.Errorf("%w: threshold must be within [0,1]", ErrInvalidPolicy)
		}
		if rule.Weight < 0 || rule.Weight > 1 {
			return fmt.Errorf("%w: weight must be within [0,1]", ErrInvalidPolicy)
		}
	}
	return nil
}

// CreatePolicy validates, persists and activates a policy. At most one
// enabled policy is considered per deployment: creating a new one
// replaces the cache entry for that deployment.
func (s *Service) CreatePolicy(ctx context.Context, input PolicyInput) (*models.ScalingPolicy, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	configJSON, err := models.MarshalJSONColumn(input.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to encode policy config: %w", err)
	}
	policy := &models.ScalingPolicy{
		ID:           utils.GenerateID(),
		DeploymentID: input.DeploymentID,
		Name:         input.Name,
		IsEnabled:    true,
		PolicyConfig: configJSON,
	}
	if err := s.policies.Create(ctx, policy); err != nil {
		return nil, err
	}

	s.cache(policy, input.Config)
	return policy, nil
}

// UpdatePolicy validates and persists changes to an existing policy,
// refreshing the active cache
func (s *Service) UpdatePolicy(ctx context.Context, policyID string, input PolicyInput) (*models.ScalingPolicy, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	policy, err := s.policies.Get(ctx, policyID)
	if err != nil {
		return nil, err
	}

	configJSON, err := models.MarshalJSONColumn(input.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to encode policy config: %w", err)
	}
	policy.Name = input.Name
	policy.DeploymentID = input.DeploymentID
	policy.PolicyConfig = configJSON
	if err := s.policies.Update(ctx, policy); err != nil {
		return nil, err
	}

	if policy.IsEnabled {
		s.cache(policy, input.Config)
	}
	return policy, nil
}

// DisablePolicy soft-deletes a policy and drops it from the cache
func (s *Service) DisablePolicy(ctx context.Context, policyID string) error {
	policy, err := s.policies.Get(ctx, policyID)
	if err != nil {
		return err
	}

	policy.IsEnabled = false
	if err := s.policies.Update(ctx, policy); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.activePolicies[policy.DeploymentID]; ok && cached.policy.ID == policyID {
		delete(s.activePolicies, policy.DeploymentID)
	}
	return nil
}

// LoadActivePolicies rehydrates the in-memory policy cache from
// storage, typically at startup
func (s *Service) LoadActivePolicies(ctx context.Context) error {
	policies, err := s.policies.ListEnabled(ctx)
	if err != nil {
		return err
	}

	loaded := 0
	for i := range policies {
		var config models.PolicyConfigData
		if err := policies[i].PolicyConfig.UnmarshalTo(&config); err != nil {
			log.Printf("[AutoScaler] skipping policy %s: bad config: %v", policies[i].ID, err)
			continue
		}
		s.cache(&policies[i], config)
		loaded++
	}
	log.Printf("[AutoScaler] loaded %d active policies", loaded)
	return nil
}

func (s *Service) cache(policy *models.ScalingPolicy, config models.PolicyConfigData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activePolicies[policy.DeploymentID] = &cachedPolicy{policy: *policy, config: config}
}

// GetScalingHistory returns the persisted audit trail for a deployment,
// newest first
func (s *Service) GetScalingHistory(ctx context.Context, deploymentID string, limit int) ([]models.ScalingEvent, error) {
	return s.events.ListByDeployment(ctx, deploymentID, limit)
}
