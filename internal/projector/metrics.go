package projector

import (
	"fmt"
	"iter"
	"math"
	"time"
)

// Metric names a charted metric.
type Metric int

const (
	CPU Metric = iota
	Memory
	Disk
)

// Charted lists the metrics that keep a history window.
var Charted = []Metric{CPU, Memory, Disk}

func (m Metric) String() string {
	switch m {
	case CPU:
		return "CPU"
	case Memory:
		return "Memory"
	case Disk:
		return "Disk"
	}
	return fmt.Sprintf("Metric(%d)", int(m))
}

// Metrics is one system snapshot. Field names follow /api/system/info.
type Metrics struct {
	CPUPercent    float64 `json:"cpu_percent"`
	CPUCount      int     `json:"cpu_count"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedGB  float64 `json:"memory_used_gb"`
	MemoryTotalGB float64 `json:"memory_total_gb"`
	DiskPercent   float64 `json:"disk_percent"`
	DiskUsedGB    float64 `json:"disk_used_gb"`
	DiskTotalGB   float64 `json:"disk_total_gb"`
	ProcessCount  int     `json:"process_count"`
}

// ParseMetrics reads a system object. Missing fields are 0.
func ParseMetrics(system map[string]any) Metrics {
	return Metrics{
		CPUPercent:    Number(system["cpu_percent"]),
		CPUCount:      Int(system["cpu_count"]),
		MemoryPercent: Number(system["memory_percent"]),
		MemoryUsedGB:  Number(system["memory_used_gb"]),
		MemoryTotalGB: Number(system["memory_total_gb"]),
		DiskPercent:   Number(system["disk_percent"]),
		DiskUsedGB:    Number(system["disk_used_gb"]),
		DiskTotalGB:   Number(system["disk_total_gb"]),
		ProcessCount:  Int(system["process_count"]),
	}
}

// MetricsFromEnvelope extracts the snapshot from a system-info response. It
// reports false when the call did not succeed or carried no system object.
func MetricsFromEnvelope(env map[string]any) (Metrics, bool) {
	if !success(env) {
		return Metrics{}, false
	}
	system := Object(env["system"])
	if system == nil {
		return Metrics{}, false
	}
	return ParseMetrics(system), true
}

// Value returns the percentage for a charted metric.
func (m Metrics) Value(metric Metric) float64 {
	switch metric {
	case CPU:
		return m.CPUPercent
	case Memory:
		return m.MemoryPercent
	case Disk:
		return m.DiskPercent
	}
	return 0
}

// DiskFreeGB is total minus used, never negative.
func (m Metrics) DiskFreeGB() float64 {
	return math.Max(0, m.DiskTotalGB-m.DiskUsedGB)
}

// ProcessProgress scales the process count against 500 for the progress bar.
func (m Metrics) ProcessProgress() float64 {
	return math.Min(100, float64(m.ProcessCount)/500*100)
}

// Card is one rendered metric tile.
type Card struct {
	Percent float64
	Label   string
	Detail  string
	Trend   Trend
}

// MetricsView is the rendered metrics section of the dashboard.
type MetricsView struct {
	CPU             Card
	Memory          Card
	Disk            Card
	Processes       int
	ProcessProgress float64
	Updated         time.Time
}

// Dashboard accumulates snapshots into history windows and trends. It is not
// safe for concurrent use; callers serialize Apply.
type Dashboard struct {
	history map[Metric]*Window[float64]
	trends  map[Metric]Trend
	current Metrics
	updated time.Time
	samples int
}

// NewDashboard creates a dashboard whose history windows hold capacity samples.
func NewDashboard(capacity int) *Dashboard {
	d := &Dashboard{
		history: make(map[Metric]*Window[float64], len(Charted)),
		trends:  make(map[Metric]Trend, len(Charted)),
	}
	for _, m := range Charted {
		d.history[m] = NewWindow[float64](capacity)
	}
	return d
}

// Apply records a snapshot. The first sample of each metric trends flat.
func (d *Dashboard) Apply(m Metrics, at time.Time) MetricsView {
	for _, metric := range Charted {
		w := d.history[metric]
		cur := m.Value(metric)
		prev, ok := w.Last()
		if !ok {
			prev = cur
		}
		d.trends[metric] = NewTrend(prev, cur)
		w.Push(cur)
	}
	d.current = m
	d.updated = at
	d.samples++
	return d.View()
}

// Current returns the last applied snapshot.
func (d *Dashboard) Current() Metrics { return d.current }

// Samples returns how many snapshots were applied.
func (d *Dashboard) Samples() int { return d.samples }

// Trend returns the latest trend for metric.
func (d *Dashboard) Trend(metric Metric) Trend { return d.trends[metric] }

// History yields the metric's window, oldest first.
func (d *Dashboard) History(metric Metric) iter.Seq[float64] {
	w, ok := d.history[metric]
	if !ok {
		return func(func(float64) bool) {}
	}
	return w.All()
}

// View renders the current state.
func (d *Dashboard) View() MetricsView {
	m := d.current
	return MetricsView{
		CPU: Card{
			Percent: m.CPUPercent,
			Label:   fmt.Sprintf("%.1f%%", m.CPUPercent),
			Detail:  fmt.Sprintf("%d Cores", m.CPUCount),
			Trend:   d.trends[CPU],
		},
		Memory: Card{
			Percent: m.MemoryPercent,
			Label:   fmt.Sprintf("%.1f%%", m.MemoryPercent),
			Detail:  fmt.Sprintf("%.1f GB / %.1f GB", m.MemoryUsedGB, m.MemoryTotalGB),
			Trend:   d.trends[Memory],
		},
		Disk: Card{
			Percent: m.DiskPercent,
			Label:   fmt.Sprintf("%.1f%%", m.DiskPercent),
			Detail:  fmt.Sprintf("%.1f GB Free", m.DiskFreeGB()),
			Trend:   d.trends[Disk],
		},
		Processes:       m.ProcessCount,
		ProcessProgress: m.ProcessProgress(),
		Updated:         d.updated,
	}
}
