package output

import (
	"fmt"
	"strings"

	"autosense/internal/engine"
	"autosense/internal/projector"
)

// Section constants to avoid hardcoded strings
const (
	SectionCPU       = "cpu"
	SectionRAM       = "ram"
	SectionDisk      = "disk"
	SectionProcesses = "processes"
)

// UI/view-model types (no printing here)
type Item struct {
	Key    string
	Label  string
	Value  float64
	Unit   string
	Status string
	Note   string
}

type Section struct {
	ID    string // cpu/ram/disk/processes
	Title string
	Items []Item
}

type DashboardView struct {
	Sections    []Section
	TotalRAMGB  int
	TotalDiskGB int
	Offline     bool
}

// BuildDashboard converts checker results and the snapshot into UI-ready
// sections.
func BuildDashboard(results []engine.CheckResult, m projector.Metrics) DashboardView {
	sec := map[string]*Section{
		SectionCPU:       {ID: SectionCPU, Title: "CPU"},
		SectionRAM:       {ID: SectionRAM, Title: "RAM"},
		SectionDisk:      {ID: SectionDisk, Title: "Disk"},
		SectionProcesses: {ID: SectionProcesses, Title: "Processes"},
	}

	for _, r := range results {
		name := strings.ToLower(r.Name)

		unit := "%"
		if strings.Contains(name, "process") {
			unit = ""
		}

		it := Item{
			Key:    strings.ReplaceAll(name, " ", "_"),
			Label:  r.Name,
			Value:  r.Value,
			Unit:   unit,
			Status: r.Status,
		}

		switch {
		case strings.Contains(name, "cpu"):
			sec[SectionCPU].Items = append(sec[SectionCPU].Items, it)
		case strings.Contains(name, "ram"), strings.Contains(name, "memory"):
			sec[SectionRAM].Items = append(sec[SectionRAM].Items, it)
		case strings.Contains(name, "disk"):
			sec[SectionDisk].Items = append(sec[SectionDisk].Items, it)
		case strings.Contains(name, "process"):
			sec[SectionProcesses].Items = append(sec[SectionProcesses].Items, it)
		}
	}

	// Informational metrics the checks do not grade
	sec[SectionCPU].Items = append(sec[SectionCPU].Items,
		Item{Label: "Cores", Value: float64(m.CPUCount)},
	)
	sec[SectionRAM].Items = append(sec[SectionRAM].Items,
		Item{Label: "Used", Value: m.MemoryUsedGB, Unit: "GB"},
		Item{Label: "Total", Value: m.MemoryTotalGB, Unit: "GB"},
	)
	sec[SectionDisk].Items = append(sec[SectionDisk].Items,
		Item{Label: "Used", Value: m.DiskUsedGB, Unit: "GB"},
		Item{Label: "Free", Value: m.DiskFreeGB(), Unit: "GB"},
	)
	sec[SectionProcesses].Items = append(sec[SectionProcesses].Items,
		Item{Label: "Load", Value: m.ProcessProgress(), Unit: "%"},
	)

	return DashboardView{
		Sections: []Section{
			*sec[SectionCPU],
			*sec[SectionRAM],
			*sec[SectionDisk],
			*sec[SectionProcesses],
		},
		TotalRAMGB:  int(m.MemoryTotalGB),
		TotalDiskGB: int(m.DiskTotalGB),
	}
}

func (v DashboardView) SectionByID(id string) *Section {
	for i := range v.Sections {
		if v.Sections[i].ID == id {
			return &v.Sections[i]
		}
	}
	return nil
}

func (s Section) ItemByKey(key string) *Item {
	for i := range s.Items {
		if s.Items[i].Key == key {
			return &s.Items[i]
		}
	}
	return nil
}

// Explain summarizes failing checks in one line, critical ones first, e.g.
// "CPU Usage critical: 95.0 (+1 more)". It is empty when everything is OK.
func Explain(results []engine.CheckResult) string {
	var crit, warn []string
	for _, r := range results {
		switch r.Status {
		case engine.StatusCritical:
			crit = append(crit, fmt.Sprintf("%s critical: %.1f", r.Name, r.Value))
		case engine.StatusWarning:
			warn = append(warn, fmt.Sprintf("%s warning: %.1f", r.Name, r.Value))
		}
	}
	explanations := append(crit, warn...)
	if len(explanations) == 0 {
		return ""
	}
	out := explanations[0]
	if len(explanations) > 1 {
		out += fmt.Sprintf(" (+%d more)", len(explanations)-1)
	}
	return out
}
