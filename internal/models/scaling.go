package models

import "time"

type ScalingPolicy struct {
	ID           string    `gorm:"primaryKey;size:191;column:id" json:"id"`
	DeploymentID string    `gorm:"index;size:191;column:deployment_id" json:"deploymentId"`
	Name         string    `gorm:"size:191;column:name" json:"name"`
	IsEnabled    bool      `gorm:"default:true;column:is_enabled" json:"isEnabled"`
	PolicyConfig JSON      `gorm:"type:json;column:policy_config" json:"policyConfig,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime;column:created_at" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime;column:updated_at" json:"updatedAt"`
}

func (ScalingPolicy) TableName() string {
	return "scaling_policies"
}

// PolicyConfigData is the JSON payload stored in policy_config
type PolicyConfigData struct {
	Metrics            []MetricRule `json:"metrics"`
	ScaleUpThreshold   float64      `json:"scaleUpThreshold"`
	ScaleDownThreshold float64      `json:"scaleDownThreshold"`
	CooldownPeriodMs   int64        `json:"cooldownPeriod"`
	MinInstances       int          `json:"minInstances"`
	MaxInstances       int          `json:"maxInstances"`
}

type MetricRule struct {
	Metric     MetricName `json:"metric"`
	Threshold  float64    `json:"threshold"`
	Comparison Comparison `json:"comparison"`
	Weight     float64    `json:"weight"`
}

// CooldownPeriod returns the cooldown as a duration
func (c PolicyConfigData) CooldownPeriod() time.Duration {
	return time.Duration(c.CooldownPeriodMs) * time.Millisecond
}

type ScalingEvent struct {
	ID              string           `gorm:"primaryKey;size:191;column:id" json:"id"`
	DeploymentID    string           `gorm:"index;size:191;column:deployment_id" json:"deploymentId"`
	PolicyID        *string          `gorm:"size:191;column:policy_id" json:"policyId,omitempty"`
	EventType       ScalingEventType `gorm:"size:191;column:event_type" json:"eventType"`
	FromInstances   int              `gorm:"column:from_instances" json:"fromInstances"`
	ToInstances     int              `gorm:"column:to_instances" json:"toInstances"`
	Reason          string           `gorm:"type:text;column:reason" json:"reason"`
	MetricsSnapshot JSON             `gorm:"type:json;column:metrics_snapshot" json:"metricsSnapshot,omitempty"`
	CreatedAt       time.Time        `gorm:"autoCreateTime;column:created_at" json:"createdAt"`
}

func (ScalingEvent) TableName() string {
	return "scaling_events"
}
