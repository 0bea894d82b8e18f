package models

// DeploymentStatus enum
type DeploymentStatus string

const (
	DeploymentStatusPending   DeploymentStatus = "PENDING"
	DeploymentStatusBuilding  DeploymentStatus = "BUILDING"
	DeploymentStatusRunning   DeploymentStatus = "RUNNING"
	DeploymentStatusStopped   DeploymentStatus = "STOPPED"
	DeploymentStatusFailed    DeploymentStatus = "FAILED"
	DeploymentStatusDestroyed DeploymentStatus = "DESTROYED"
)

// IsTerminal reports whether no further status transitions are allowed
func (s DeploymentStatus) IsTerminal() bool {
	return s == DeploymentStatusFailed || s == DeploymentStatusDestroyed
}

// ScalingEventType enum
type ScalingEventType string

const (
	ScalingEventScaleUp        ScalingEventType = "scale_up"
	ScalingEventScaleDown      ScalingEventType = "scale_down"
	ScalingEventManualOverride ScalingEventType = "manual_override"
)

// MetricName enum
type MetricName string

const (
	MetricCPU          MetricName = "cpu"
	MetricMemory       MetricName = "memory"
	MetricErrorRate    MetricName = "error_rate"
	MetricResponseTime MetricName = "response_time"
	MetricRequests     MetricName = "requests"
)

// Comparison enum
type Comparison string

const (
	ComparisonGT  Comparison = "gt"
	ComparisonGTE Comparison = "gte"
	ComparisonLT  Comparison = "lt"
	ComparisonLTE Comparison = "lte"
)

// ScalingAction enum
type ScalingAction string

const (
	ActionScaleUp   ScalingAction = "scale_up"
	ActionScaleDown ScalingAction = "scale_down"
	ActionNoChange  ScalingAction = "no_change"
)

// RecoveryAction enum
type RecoveryAction string

const (
	RecoveryRetry    RecoveryAction = "retry"
	RecoveryFallback RecoveryAction = "fallback"
	RecoveryAbort    RecoveryAction = "abort"
)
