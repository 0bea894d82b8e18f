package autoscaler

import (
	"context"
	"errors"
	"fmt"

	"github.com/coderunner/coderunner/api/internal/models"
	"gorm.io/gorm"
)

// ErrPolicyNotFound is surfaced by policy CRUD when the referenced
// policy record does not exist
var ErrPolicyNotFound = errors.New("scaling policy not found")

// PolicyStore persists scaling policies
type PolicyStore interface {
	Create(ctx context.Context, policy *models.ScalingPolicy) error
	Update(ctx context.Context, policy *models.ScalingPolicy) error
	Get(ctx context.Context, id string) (*models.ScalingPolicy, error)
	ListEnabled(ctx context.Context) ([]models.ScalingPolicy, error)
}

// EventStore persists the append-only scaling audit trail
type EventStore interface {
	Append(ctx context.Context, event *models.ScalingEvent) error
	ListByDeployment(ctx context.Context, deploymentID string, limit int) ([]models.ScalingEvent, error)
}

type GormPolicyStore struct {
	db *gorm.DB
}

func NewGormPolicyStore(db *gorm.DB) *GormPolicyStore {
	return &GormPolicyStore{db: db}
}

func (s *GormPolicyStore) Create(ctx context.Context, policy *models.ScalingPolicy) error {
	if err := s.db.WithContext(ctx).Create(policy).Error; err != nil {
		return fmt.Errorf("failed to create scaling policy: %w", err)
	}
	return nil
}

func (s *GormPolicyStore) Update(ctx context.Context, policy *models.ScalingPolicy) error {
	if err := s.db.WithContext(ctx).Save(policy).Error; err != nil {
		return fmt.Errorf("failed to update scaling policy: %w", err)
	}
	return nil
}

func (s *GormPolicyStore) Get(ctx context.Context, id string) (*models.ScalingPolicy, error) {
	var policy models.ScalingPolicy
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&policy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPolicyNotFound
		}
		return nil, fmt.Errorf("failed to load scaling policy: %w", err)
	}
	return &policy, nil
}

func (s *GormPolicyStore) ListEnabled(ctx context.Context) ([]models.ScalingPolicy, error) {
	var policies []models.ScalingPolicy
	err := s.db.WithContext(ctx).Where("is_enabled = ?", true).Find(&policies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled policies: %w", err)
	}
	return policies, nil
}

type GormEventStore struct {
	db *gorm.DB
}

func NewGormEventStore(db *gorm.DB) *GormEventStore {
	return &GormEventStore{db: db}
}

func (s *GormEventStore) Append(ctx context.Context, event *models.ScalingEvent) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to append scaling event: %w", err)
	}
	return nil
}

func (s *GormEventStore) ListByDeployment(ctx context.Context, deploymentID string, limit int) ([]models.ScalingEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []models.ScalingEvent
	err := s.db.WithContext(ctx).
		Where("deployment_id = ?", deploymentID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scaling events: %w", err)
	}
	return events, nil
}
