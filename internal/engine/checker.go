package engine

import (
	"autosense/internal/projector"
)

const (
	StatusHealthy  = "OK"
	StatusWarning  = "WARN"
	StatusCritical = "CRIT"

	CPUWarningThreshold      = 70.0
	CPUCriticalThreshold     = 90.0
	RAMWarningThreshold      = 70.0
	RAMCriticalThreshold     = 90.0
	DiskWarningThreshold     = 80.0
	DiskCriticalThreshold    = 90.0
	DiskMinFreeGB            = 5.0
	ProcessWarningThreshold  = 400.0
	ProcessCriticalThreshold = 500.0
	RiskWarningThreshold     = 30.0
	RiskCriticalThreshold    = 60.0
)

type CheckResult struct {
	Name   string
	Value  float64
	Status string
}

func getStatus(value, warning, critical float64) string {
	if value > critical {
		return StatusCritical
	}
	if value > warning {
		return StatusWarning
	}
	return StatusHealthy
}

// Evaluate grades one snapshot.
func Evaluate(m projector.Metrics) []CheckResult {
	var result []CheckResult

	result = append(result, CheckResult{
		Name:   "CPU Usage",
		Value:  m.CPUPercent,
		Status: getStatus(m.CPUPercent, CPUWarningThreshold, CPUCriticalThreshold),
	})

	result = append(result, CheckResult{
		Name:   "RAM Usage",
		Value:  m.MemoryPercent,
		Status: getStatus(m.MemoryPercent, RAMWarningThreshold, RAMCriticalThreshold),
	})

	// Absolute capacity check: warn when little space remains even if % is okay
	diskStatus := getStatus(m.DiskPercent, DiskWarningThreshold, DiskCriticalThreshold)
	if m.DiskTotalGB > 0 && m.DiskFreeGB() < DiskMinFreeGB && diskStatus == StatusHealthy {
		diskStatus = StatusWarning
	}
	result = append(result, CheckResult{
		Name:   "Disk Usage",
		Value:  m.DiskPercent,
		Status: diskStatus,
	})

	result = append(result, CheckResult{
		Name:   "Processes",
		Value:  float64(m.ProcessCount),
		Status: getStatus(float64(m.ProcessCount), ProcessWarningThreshold, ProcessCriticalThreshold),
	})

	return result
}

// EvaluatePrediction grades the AI risk percentage.
func EvaluatePrediction(p projector.Prediction) CheckResult {
	return CheckResult{
		Name:   "Failure Risk",
		Value:  float64(p.RiskPercent),
		Status: getStatus(float64(p.RiskPercent), RiskWarningThreshold, RiskCriticalThreshold),
	}
}

// Overall returns the worst status in results.
func Overall(results []CheckResult) string {
	worst := StatusHealthy
	for _, r := range results {
		switch r.Status {
		case StatusCritical:
			return StatusCritical
		case StatusWarning:
			worst = StatusWarning
		}
	}
	return worst
}
