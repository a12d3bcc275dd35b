package projector

import (
	"math"
	"slices"
	"strings"
)

// BoostResult is the /api/boost-ram response.
type BoostResult struct {
	MemoryBefore float64
	MemoryAfter  float64
	FreedPercent float64
	Message      string
}

func ParseBoost(env map[string]any) BoostResult {
	return BoostResult{
		MemoryBefore: Number(env["memory_before"]),
		MemoryAfter:  Number(env["memory_after"]),
		FreedPercent: Number(env["freed_percent"]),
		Message:      String(env["message"]),
	}
}

type JunkFile struct {
	Path string
	Size int64
	Type string
}

// JunkScan is the /api/junk-files/scan response.
type JunkScan struct {
	Files            []JunkFile
	TotalCount       int
	TotalSizeMB      float64
	EstimatedSeconds float64
}

func ParseJunkScan(env map[string]any) JunkScan {
	s := JunkScan{
		TotalCount:       Int(env["total_count"]),
		TotalSizeMB:      Number(env["total_size_mb"]),
		EstimatedSeconds: Number(env["estimated_time_seconds"]),
	}
	for _, raw := range List(env["junk_files"]) {
		obj := Object(raw)
		s.Files = append(s.Files, JunkFile{
			Path: String(obj["path"]),
			Size: Int64(obj["size"]),
			Type: String(obj["type"]),
		})
	}
	return s
}

// JunkClean is the /api/junk-files/clean response.
type JunkClean struct {
	CleanedFiles int
	FreedSizeMB  float64
	Errors       []string
}

func ParseJunkClean(env map[string]any) JunkClean {
	return JunkClean{
		CleanedFiles: Int(env["cleaned_files"]),
		FreedSizeMB:  Number(env["freed_size_mb"]),
		Errors:       Strings(env["errors"]),
	}
}

// Prediction is the AI health prediction.
type Prediction struct {
	RiskScore       float64
	RiskPercent     int
	Level           string // upper-cased for display
	Explanation     string
	Recommendations []string
}

// ParsePrediction reads env["prediction"]. It reports false when absent.
func ParsePrediction(env map[string]any) (Prediction, bool) {
	obj := Object(env["prediction"])
	if obj == nil {
		return Prediction{}, false
	}
	score := Number(obj["risk_score"])
	return Prediction{
		RiskScore:       score,
		RiskPercent:     int(math.Round(score * 100)),
		Level:           strings.ToUpper(String(obj["risk_level"])),
		Explanation:     String(obj["explanation"]),
		Recommendations: Strings(obj["recommendations"]),
	}, true
}

// Severity maps a risk level to a usage band for coloring.
func Severity(level string) Band {
	switch strings.ToLower(level) {
	case "high":
		return BandCritical
	case "medium":
		return BandWarning
	default:
		return BandNormal
	}
}

// ParseDrives reads the drive list.
func ParseDrives(env map[string]any) []string {
	return Strings(env["drives"])
}

// Node is one directory in the disk treemap.
type Node struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Size     int64   `json:"size"`
	Children []*Node `json:"children,omitempty"`
}

// DiskMap is the /api/disk-map response.
type DiskMap struct {
	Drive       string
	Total       int64
	Used        int64
	Free        int64
	UsedPercent float64
	Band        Band
	Tree        *Node
}

func ParseDiskMap(env map[string]any) DiskMap {
	d := DiskMap{
		Drive: String(env["drive"]),
		Total: Int64(env["total_size"]),
		Used:  Int64(env["used_size"]),
		Free:  Int64(env["free_size"]),
	}
	if d.Total > 0 {
		d.UsedPercent = float64(d.Used) / float64(d.Total) * 100
	}
	d.Band = UsageBand(d.UsedPercent)
	if obj := Object(env["treemap"]); obj != nil {
		d.Tree = parseNode(obj)
	}
	return d
}

// parseNode drops zero-size children at every level.
func parseNode(obj map[string]any) *Node {
	n := &Node{
		Name: String(obj["name"]),
		Path: String(obj["path"]),
		Size: Int64(obj["size"]),
	}
	for _, raw := range List(obj["children"]) {
		child := Object(raw)
		if child == nil || Int64(child["size"]) <= 0 {
			continue
		}
		n.Children = append(n.Children, parseNode(child))
	}
	slices.SortStableFunc(n.Children, func(a, b *Node) int {
		switch {
		case a.Size > b.Size:
			return -1
		case a.Size < b.Size:
			return 1
		}
		return 0
	})
	return n
}

// HasFolders reports whether the map has anything to draw.
func (d DiskMap) HasFolders() bool {
	return d.Tree != nil && len(d.Tree.Children) > 0
}

// App is one installed application.
type App struct {
	Name      string `json:"name"`
	Publisher string `json:"publisher"`
	Version   string `json:"version"`
}

// ParseApps returns the app list and the backend's count.
func ParseApps(env map[string]any) ([]App, int) {
	var apps []App
	for _, raw := range List(env["apps"]) {
		obj := Object(raw)
		apps = append(apps, App{
			Name:      String(obj["name"]),
			Publisher: String(obj["publisher"]),
			Version:   String(obj["version"]),
		})
	}
	count := len(apps)
	if _, ok := env["count"]; ok {
		count = Int(env["count"])
	}
	return apps, count
}

// FilterApps keeps apps whose name, publisher or version contains query,
// case-insensitively. An empty query keeps everything.
func FilterApps(apps []App, query string) []App {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return apps
	}
	var out []App
	for _, a := range apps {
		text := strings.ToLower(a.Name + " " + a.Publisher + " " + a.Version)
		if strings.Contains(text, q) {
			out = append(out, a)
		}
	}
	return out
}

// Firewall is the firewall status.
type Firewall struct {
	Enabled  bool
	Profiles map[string]bool
}

func ParseFirewall(env map[string]any) Firewall {
	obj := Object(env["firewall"])
	fw := Firewall{Enabled: Bool(obj["enabled"]), Profiles: map[string]bool{}}
	for name, on := range Object(obj["profiles"]) {
		fw.Profiles[name] = Bool(on)
	}
	return fw
}

// MaxPorts caps the rendered port list.
const MaxPorts = 20

type Port struct {
	Port     int
	Address  string
	Protocol string
	Process  string // "" when unknown
	PID      int
}

// ParsePorts returns at most MaxPorts entries and the backend's total count.
func ParsePorts(env map[string]any) ([]Port, int) {
	all := List(env["open_ports"])
	count := len(all)
	if _, ok := env["count"]; ok {
		count = Int(env["count"])
	}
	var out []Port
	for _, raw := range all[:min(len(all), MaxPorts)] {
		obj := Object(raw)
		proc := Object(obj["process"])
		out = append(out, Port{
			Port:     Int(obj["port"]),
			Address:  String(obj["address"]),
			Protocol: String(obj["protocol"]),
			Process:  String(proc["name"]),
			PID:      Int(proc["pid"]),
		})
	}
	return out, count
}

// ProcessLabel renders the owning process for display.
func (p Port) ProcessLabel() string {
	if p.Process == "" {
		return "Unknown process"
	}
	return p.Process
}

// SecurityScan is the heuristic malware scan summary.
type SecurityScan struct {
	RiskScore      float64
	RiskPercent    int
	Level          string
	Threats        int
	Recommendation string
}

func ParseSecurityScan(env map[string]any) SecurityScan {
	score := Number(env["risk_score"])
	return SecurityScan{
		RiskScore:      score,
		RiskPercent:    int(math.Round(score * 100)),
		Level:          strings.ToUpper(String(env["risk_level"])),
		Threats:        Int(env["total_threats"]),
		Recommendation: String(env["recommendation"]),
	}
}
