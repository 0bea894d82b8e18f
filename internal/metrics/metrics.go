package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coderunner/coderunner/api/internal/models"
	"gorm.io/gorm"
)

// ErrUnavailable is returned when no metrics can be collected for a
// deployment. The autoscaler degrades to a no-change decision on it.
var ErrUnavailable = errors.New("metrics unavailable")

// Snapshot is a point-in-time reading for one deployment
type Snapshot struct {
	System struct {
		CPU struct {
			Usage float64 `json:"usage"`
		} `json:"cpu"`
		Memory struct {
			UsagePercent float64 `json:"usagePercent"`
		} `json:"memory"`
	} `json:"system"`
	ErrorRate      float64   `json:"errorRate"`
	ResponseTimeMs float64   `json:"responseTimeMs"`
	RequestsPerMin float64   `json:"requestsPerMin"`
	Timestamp      time.Time `json:"timestamp"`
}

// Raw returns the unnormalized reading for a named metric
func (s *Snapshot) Raw(name models.MetricName) float64 {
	switch name {
	case models.MetricCPU:
		return s.System.CPU.Usage
	case models.MetricMemory:
		return s.System.Memory.UsagePercent
	case models.MetricErrorRate:
		return s.ErrorRate
	case models.MetricResponseTime:
		return s.ResponseTimeMs
	case models.MetricRequests:
		return s.RequestsPerMin
	}
	return 0
}

// Source supplies current metrics for deployments
type Source interface {
	GetCurrentMetrics(ctx context.Context, deploymentID string) (*Snapshot, error)
}

// Store reads the most recent collected metrics row for a deployment.
// The external collector pushes rows through the metrics webhook.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Staleness bound: readings older than this are treated as unavailable
const maxSampleAge = 5 * time.Minute

func (s *Store) GetCurrentMetrics(ctx context.Context, deploymentID string) (*Snapshot, error) {
	var row models.DeploymentMetrics
	err := s.db.WithContext(ctx).
		Where("deployment_id = ?", deploymentID).
		Order("timestamp DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no readings for %s", ErrUnavailable, deploymentID)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if time.Since(row.Timestamp) > maxSampleAge {
		return nil, fmt.Errorf("%w: reading for %s is stale", ErrUnavailable, deploymentID)
	}

	snapshot := &Snapshot{
		ErrorRate:      row.ErrorRate,
		ResponseTimeMs: row.ResponseTimeMs,
		RequestsPerMin: row.RequestsPerMin,
		Timestamp:      row.Timestamp,
	}
	snapshot.System.CPU.Usage = row.CpuUsage
	snapshot.System.Memory.UsagePercent = row.MemoryUsage
	return snapshot, nil
}

// Record persists one collected reading
func (s *Store) Record(ctx context.Context, row *models.DeploymentMetrics) error {
	if row.Timestamp.IsZero() {
		row.Timestamp = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to record metrics: %w", err)
	}
	return nil
}
