package engine

import (
	"testing"

	"autosense/internal/projector"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		metrics  projector.Metrics
		expected map[string]string // Metric Name -> Expected Status
	}{
		{
			name: "All Healthy",
			metrics: projector.Metrics{
				CPUPercent:    10.0,
				MemoryPercent: 20.0,
				DiskPercent:   30.0,
				DiskTotalGB:   100,
				DiskUsedGB:    30,
				ProcessCount:  120,
			},
			expected: map[string]string{
				"CPU Usage":  StatusHealthy,
				"RAM Usage":  StatusHealthy,
				"Disk Usage": StatusHealthy,
				"Processes":  StatusHealthy,
			},
		},
		{
			name:     "CPU Critical",
			metrics:  projector.Metrics{CPUPercent: 95.0, DiskTotalGB: 100},
			expected: map[string]string{"CPU Usage": StatusCritical},
		},
		{
			name:     "RAM Warning",
			metrics:  projector.Metrics{MemoryPercent: 75.0, DiskTotalGB: 100},
			expected: map[string]string{"RAM Usage": StatusWarning},
		},
		{
			name: "Disk Absolute Capacity Warning (<5GB free)",
			metrics: projector.Metrics{
				DiskPercent: 10.0,
				DiskTotalGB: 4,
				DiskUsedGB:  0.4,
			},
			expected: map[string]string{"Disk Usage": StatusWarning},
		},
		{
			name:     "Unknown disk size is not flagged",
			metrics:  projector.Metrics{},
			expected: map[string]string{"Disk Usage": StatusHealthy},
		},
		{
			name:     "Process Warning",
			metrics:  projector.Metrics{ProcessCount: 450, DiskTotalGB: 100},
			expected: map[string]string{"Processes": StatusWarning},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := Evaluate(tt.metrics)
			found := make(map[string]string)
			for _, r := range results {
				found[r.Name] = r.Status
			}
			for name, want := range tt.expected {
				got, ok := found[name]
				if !ok {
					t.Errorf("Metric %s not found in results", name)
					continue
				}
				if got != want {
					t.Errorf("Metric %s: expected status %s, got %s", name, want, got)
				}
			}
		})
	}
}

func TestEvaluatePrediction(t *testing.T) {
	tests := []struct {
		pct  int
		want string
	}{
		{10, StatusHealthy},
		{45, StatusWarning},
		{80, StatusCritical},
	}
	for _, tt := range tests {
		got := EvaluatePrediction(projector.Prediction{RiskPercent: tt.pct})
		if got.Status != tt.want {
			t.Errorf("risk %d%%: expected %s, got %s", tt.pct, tt.want, got.Status)
		}
	}
}

func TestOverall(t *testing.T) {
	tests := []struct {
		name    string
		results []CheckResult
		want    string
	}{
		{"empty", nil, StatusHealthy},
		{"warning wins over ok", []CheckResult{{Status: StatusHealthy}, {Status: StatusWarning}}, StatusWarning},
		{"critical wins", []CheckResult{{Status: StatusWarning}, {Status: StatusCritical}, {Status: StatusHealthy}}, StatusCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overall(tt.results); got != tt.want {
				t.Errorf("Overall() = %s, want %s", got, tt.want)
			}
		})
	}
}
