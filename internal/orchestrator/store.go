package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/coderunner/coderunner/api/internal/models"
	"gorm.io/gorm"
)

// DeploymentStore persists deployment records
type DeploymentStore interface {
	Create(ctx context.Context, deployment *models.Deployment) error
	Get(ctx context.Context, id string) (*models.Deployment, error)
	Update(ctx context.Context, deployment *models.Deployment) error
	ListByUser(ctx context.Context, userID string) ([]models.Deployment, error)
}

// GormDeploymentStore is the MySQL-backed store
type GormDeploymentStore struct {
	db *gorm.DB
}

func NewGormDeploymentStore(db *gorm.DB) *GormDeploymentStore {
	return &GormDeploymentStore{db: db}
}

func (s *GormDeploymentStore) Create(ctx context.Context, deployment *models.Deployment) error {
	if err := s.db.WithContext(ctx).Create(deployment).Error; err != nil {
		return fmt.Errorf("failed to create deployment: %w", err)
	}
	return nil
}

func (s *GormDeploymentStore) Get(ctx context.Context, id string) (*models.Deployment, error) {
	var deployment models.Deployment
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&deployment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeploymentNotFound
		}
		return nil, fmt.Errorf("failed to load deployment: %w", err)
	}
	return &deployment, nil
}

func (s *GormDeploymentStore) Update(ctx context.Context, deployment *models.Deployment) error {
	if err := s.db.WithContext(ctx).Save(deployment).Error; err != nil {
		return fmt.Errorf("failed to update deployment: %w", err)
	}
	return nil
}

func (s *GormDeploymentStore) ListByUser(ctx context.Context, userID string) ([]models.Deployment, error) {
	var deployments []models.Deployment
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&deployments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	return deployments, nil
}
