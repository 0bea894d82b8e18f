package autoscaler

import "github.com/coderunner/coderunner/api/internal/models"

// PolicyTemplates returns the named preset configurations used to seed
// new policies. Callers get fresh copies; mutating a returned config
// never affects the catalog.
func PolicyTemplates() map[string]models.PolicyConfigData {
	return map[string]models.PolicyConfigData{
		// Scales up late, scales down early. Long cooldown keeps
		// capacity changes rare.
		"conservative": {
			Metrics: []models.MetricRule{
				{Metric: models.MetricCPU, Threshold: 0.85, Comparison: models.ComparisonGT, Weight: 0.6},
				{Metric: models.MetricMemory, Threshold: 0.85, Comparison: models.ComparisonGT, Weight: 0.4},
			},
			ScaleUpThreshold:   0.8,
			ScaleDownThreshold: 0.2,
			CooldownPeriodMs:   10 * 60 * 1000,
			MinInstances:       1,
			MaxInstances:       3,
		},
		// Reacts fast to load spikes and tolerates churn
		"aggressive": {
			Metrics: []models.MetricRule{
				{Metric: models.MetricCPU, Threshold: 0.6, Comparison: models.ComparisonGT, Weight: 0.5},
				{Metric: models.MetricMemory, Threshold: 0.6, Comparison: models.ComparisonGT, Weight: 0.3},
				{Metric: models.MetricRequests, Threshold: 0.5, Comparison: models.ComparisonGT, Weight: 0.2},
			},
			ScaleUpThreshold:   0.6,
			ScaleDownThreshold: 0.3,
			CooldownPeriodMs:   2 * 60 * 1000,
			MinInstances:       1,
			MaxInstances:       10,
		},
		// Prefers running fewer instances and only adds capacity when
		// resources are clearly saturated
		"cost_optimized": {
			Metrics: []models.MetricRule{
				{Metric: models.MetricCPU, Threshold: 0.9, Comparison: models.ComparisonGTE, Weight: 0.7},
				{Metric: models.MetricMemory, Threshold: 0.9, Comparison: models.ComparisonGTE, Weight: 0.3},
			},
			ScaleUpThreshold:   0.85,
			ScaleDownThreshold: 0.4,
			CooldownPeriodMs:   15 * 60 * 1000,
			MinInstances:       1,
			MaxInstances:       2,
		},
		// Guards latency and error rate ahead of raw utilization
		"performance": {
			Metrics: []models.MetricRule{
				{Metric: models.MetricResponseTime, Threshold: 0.4, Comparison: models.ComparisonGT, Weight: 0.4},
				{Metric: models.MetricErrorRate, Threshold: 0.2, Comparison: models.ComparisonGT, Weight: 0.3},
				{Metric: models.MetricCPU, Threshold: 0.7, Comparison: models.ComparisonGT, Weight: 0.3},
			},
			ScaleUpThreshold:   0.5,
			ScaleDownThreshold: 0.2,
			CooldownPeriodMs:   3 * 60 * 1000,
			MinInstances:       2,
			MaxInstances:       10,
		},
		// Middle-of-the-road defaults suitable for most workloads
		"balanced": {
			Metrics: []models.MetricRule{
				{Metric: models.MetricCPU, Threshold: 0.7, Comparison: models.ComparisonGT, Weight: 0.5},
				{Metric: models.MetricMemory, Threshold: 0.75, Comparison: models.ComparisonGT, Weight: 0.3},
				{Metric: models.MetricResponseTime, Threshold: 0.5, Comparison: models.ComparisonGT, Weight: 0.2},
			},
			ScaleUpThreshold:   0.7,
			ScaleDownThreshold: 0.3,
			CooldownPeriodMs:   5 * 60 * 1000,
			MinInstances:       1,
			MaxInstances:       5,
		},
	}
}

// TemplateNames lists the available presets in a stable order
func TemplateNames() []string {
	return []string{"conservative", "aggressive", "cost_optimized", "performance", "balanced"}
}
