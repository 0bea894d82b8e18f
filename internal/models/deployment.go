package models

import "time"

type Deployment struct {
	ID        string           `gorm:"primaryKey;size:191;column:id" json:"id"`
	ProjectID string           `gorm:"index;size:191;column:project_id" json:"projectId"`
	UserID    string           `gorm:"index;size:191;column:user_id" json:"userId"`
	Status    DeploymentStatus `gorm:"size:191;default:PENDING;column:status" json:"status"`
	SandboxID *string          `gorm:"size:191;column:sandbox_id" json:"sandboxId,omitempty"`
	PublicURL *string          `gorm:"size:191;column:public_url" json:"publicUrl,omitempty"`
	Runtime   *string          `gorm:"size:191;column:runtime" json:"runtime,omitempty"`
	Error     *string          `gorm:"type:text;column:error" json:"error,omitempty"`
	CreatedAt time.Time        `gorm:"autoCreateTime;column:created_at" json:"createdAt"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime;column:updated_at" json:"updatedAt"`
}

func (Deployment) TableName() string {
	return "deployments"
}

// CanTransitionTo reports whether the status transition is allowed.
// Transitions are monotone except RUNNING<->STOPPED; FAILED and
// DESTROYED are terminal.
func (d *Deployment) CanTransitionTo(next DeploymentStatus) bool {
	if d.Status.IsTerminal() {
		return false
	}
	switch d.Status {
	case DeploymentStatusPending:
		return next == DeploymentStatusBuilding || next == DeploymentStatusFailed || next == DeploymentStatusDestroyed
	case DeploymentStatusBuilding:
		return next == DeploymentStatusRunning || next == DeploymentStatusFailed || next == DeploymentStatusDestroyed
	case DeploymentStatusRunning:
		return next == DeploymentStatusStopped || next == DeploymentStatusFailed || next == DeploymentStatusDestroyed
	case DeploymentStatusStopped:
		return next == DeploymentStatusRunning || next == DeploymentStatusFailed || next == DeploymentStatusDestroyed
	}
	return false
}
