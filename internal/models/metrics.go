package models

import "time"

type DeploymentMetrics struct {
	ID              int       `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	DeploymentID    string    `gorm:"index;size:191;column:deployment_id" json:"deploymentId"`
	CpuUsage        float64   `gorm:"column:cpu_usage" json:"cpuUsage"`
	MemoryUsage     float64   `gorm:"column:memory_usage" json:"memoryUsage"`
	ErrorRate       float64   `gorm:"column:error_rate" json:"errorRate"`
	ResponseTimeMs  float64   `gorm:"column:response_time_ms" json:"responseTimeMs"`
	RequestsPerMin  float64   `gorm:"column:requests_per_min" json:"requestsPerMin"`
	Timestamp       time.Time `gorm:"index;column:timestamp" json:"timestamp"`
	CreatedAt       time.Time `gorm:"autoCreateTime;column:created_at" json:"createdAt"`
}

func (DeploymentMetrics) TableName() string {
	return "deployment_metrics"
}
