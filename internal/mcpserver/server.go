package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"autosense/internal/controller"
	"autosense/internal/engine"
	"autosense/internal/journal"
	"autosense/internal/projector"
)

// ErrNotLoggedIn is returned by tools that need a backend session.
var ErrNotLoggedIn = errors.New("not logged in: run `autosense login` first")

// Dashboard is the part of the controller the tools drive.
type Dashboard interface {
	Refresh(ctx context.Context) error
	Snapshot() controller.State
	Dispatch(ctx context.Context, ev controller.Event, args controller.Args) controller.Outcome
}

// History is the snapshot journal.
type History interface {
	Recent(ctx context.Context, n int) ([]journal.Entry, error)
	Summary(ctx context.Context) (journal.Summary, error)
}

// Server exposes the dashboard as MCP tools.
type Server struct {
	mcpServer *mcp.Server
	dash      Dashboard
	history   History // nil when the journal is disabled
	logger    *slog.Logger

	refreshMu     sync.Mutex
	refreshCancel context.CancelFunc
	refreshWg     sync.WaitGroup
}

// Config holds configuration for the MCP server.
type Config struct {
	ServerName    string
	ServerVersion string

	// RefreshInterval keeps the dashboard (and journal) current while
	// serving. Zero disables background refresh.
	RefreshInterval time.Duration
}

// NewServer creates a new MCP server instance. history may be nil.
func NewServer(cfg Config, dash Dashboard, history History, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	impl := &mcp.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}
	s := &Server{
		mcpServer: mcp.NewServer(impl, nil),
		dash:      dash,
		history:   history,
		logger:    logger,
	}
	s.registerTools()

	if cfg.RefreshInterval > 0 {
		s.startBackgroundRefresh(cfg.RefreshInterval)
	}
	return s
}

// SystemInfoArgs is empty; the tool always refreshes first.
type SystemInfoArgs struct{}

// SystemInfoResult is the current dashboard.
type SystemInfoResult struct {
	ServerOnline bool                 `json:"server_online" jsonschema:"whether the AutoSense backend answered"`
	Offline      bool                 `json:"offline" jsonschema:"true when metrics were sampled locally"`
	Metrics      projector.Metrics    `json:"metrics" jsonschema:"latest system snapshot"`
	Checks       []engine.CheckResult `json:"checks" jsonschema:"per-metric health grades"`
	Overall      string               `json:"overall" jsonschema:"worst grade: OK, WARN or CRIT"`
	HealthScore  int                  `json:"health_score,omitempty" jsonschema:"0-100 device health score"`
	LifeSaved    string               `json:"life_saved,omitempty" jsonschema:"life added by optimizations"`
	Projected    string               `json:"projected_life,omitempty" jsonschema:"projected device lifespan"`
}

// AlertsArgs is empty.
type AlertsArgs struct{}

// AlertInfo is one alert. Times are RFC 3339 and empty when unknown.
type AlertInfo struct {
	Type      string `json:"type" jsonschema:"info, warning or critical"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
	Stored    bool   `json:"stored" jsonschema:"true for alerts persisted by the server"`
}

type AlertsResult struct {
	Alerts []AlertInfo `json:"alerts" jsonschema:"stored then current alerts"`
	Count  int         `json:"count"`
}

// PredictArgs is empty.
type PredictArgs struct{}

type PredictResult struct {
	RiskPercent     int      `json:"risk_percent" jsonschema:"failure risk, 0-100"`
	Level           string   `json:"level" jsonschema:"LOW, MEDIUM or HIGH"`
	Status          string   `json:"status" jsonschema:"OK, WARN or CRIT"`
	Explanation     string   `json:"explanation"`
	Recommendations []string `json:"recommendations"`
}

// DrivesArgs is empty.
type DrivesArgs struct{}

type DrivesResult struct {
	Drives []string `json:"drives"`
}

// SecurityArgs is empty.
type SecurityArgs struct{}

type PortInfo struct {
	Port     int    `json:"port"`
	Address  string `json:"address"`
	Protocol string `json:"protocol"`
	Process  string `json:"process"`
}

// SecurityResult combines the firewall check, port scan and malware scan.
// A failing section is reported in Errors and left empty.
type SecurityResult struct {
	FirewallEnabled bool            `json:"firewall_enabled"`
	Profiles        map[string]bool `json:"profiles,omitempty"`
	OpenPorts       []PortInfo      `json:"open_ports"`
	PortCount       int             `json:"port_count"`
	RiskPercent     int             `json:"risk_percent"`
	RiskLevel       string          `json:"risk_level"`
	Threats         int             `json:"threats"`
	Recommendation  string          `json:"recommendation"`
	Errors          []string        `json:"errors,omitempty"`
}

// HistoryArgs defines the input for get_history.
type HistoryArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"number of snapshots to return (default 10, max 100)"`
}

// SnapshotInfo is one journal entry.
type SnapshotInfo struct {
	RunID       string            `json:"run_id"`
	Source      string            `json:"source" jsonschema:"server or offline"`
	CollectedAt string            `json:"collected_at"`
	Metrics     projector.Metrics `json:"metrics"`
}

type HistorySummary struct {
	Runs          int64   `json:"runs"`
	Snapshots     int64   `json:"snapshots"`
	Alerts        int64   `json:"alerts"`
	AvgCPU        float64 `json:"avg_cpu_percent"`
	MaxCPU        float64 `json:"max_cpu_percent"`
	AvgMemory     float64 `json:"avg_memory_percent"`
	MaxMemory     float64 `json:"max_memory_percent"`
	FirstRecorded string  `json:"first_recorded,omitempty"`
	LastRecorded  string  `json:"last_recorded,omitempty"`
}

type HistoryResult struct {
	Snapshots []SnapshotInfo `json:"snapshots"`
	Summary   HistorySummary `json:"summary"`
}

// AskArgs defines the input for ask_autosense.
type AskArgs struct {
	Question string `json:"question" jsonschema:"the question to ask about device health"`
}

type AskResult struct {
	Answer string `json:"answer"`
	Intent string `json:"intent" jsonschema:"the dashboard action the question maps to, if any"`
	Source string `json:"source" jsonschema:"gemini or rules"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_system_info",
		Description: "Get the latest CPU, memory, disk and process metrics with health grades. Falls back to a local sample when the AutoSense server is unreachable.",
	}, s.handleGetSystemInfo)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_alerts",
		Description: "List stored and current alerts raised by the AutoSense server. Requires a logged-in session.",
	}, s.handleGetAlerts)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "predict_health",
		Description: "Run the AI failure-risk prediction and return the risk level, explanation and recommendations.",
	}, s.handlePredictHealth)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_drives",
		Description: "List the drives the server can scan for the disk map.",
	}, s.handleListDrives)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "scan_security",
		Description: "Check the firewall, list listening ports and run the heuristic malware scan. Requires a logged-in session.",
	}, s.handleScanSecurity)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_history",
		Description: "Query recorded snapshots from the local journal, newest first, with aggregate statistics. Use for trend questions.",
	}, s.handleGetHistory)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "ask_autosense",
		Description: "Ask a free-form question about the device's health. Answers are grounded in the current dashboard state.",
	}, s.handleAsk)
}

func (s *Server) handleGetSystemInfo(ctx context.Context, _ *mcp.CallToolRequest, _ SystemInfoArgs) (*mcp.CallToolResult, SystemInfoResult, error) {
	if err := s.dash.Refresh(ctx); err != nil && !s.dash.Snapshot().HasMetrics {
		return nil, SystemInfoResult{}, fmt.Errorf("failed to get system info: %w", err)
	}
	st := s.dash.Snapshot()
	res := SystemInfoResult{
		ServerOnline: st.Online,
		Offline:      st.Offline,
		Metrics:      st.Raw,
		Checks:       st.Checks,
		Overall:      engine.Overall(st.Checks),
	}
	if st.Life != nil {
		res.HealthScore = st.Life.Estimate.HealthScore
		res.LifeSaved = st.Life.Saved
		res.Projected = st.Life.Projected
	}
	return nil, res, nil
}

func (s *Server) handleGetAlerts(ctx context.Context, _ *mcp.CallToolRequest, _ AlertsArgs) (*mcp.CallToolResult, AlertsResult, error) {
	if !s.dash.Snapshot().Authenticated {
		return nil, AlertsResult{}, ErrNotLoggedIn
	}
	if err := s.dash.Refresh(ctx); err != nil {
		s.logger.Debug("refresh before alerts failed", slog.String("error", err.Error()))
	}
	st := s.dash.Snapshot()
	res := AlertsResult{Alerts: make([]AlertInfo, 0, len(st.Alerts)), Count: len(st.Alerts)}
	for _, a := range st.Alerts {
		res.Alerts = append(res.Alerts, AlertInfo{
			Type:      a.Type,
			Title:     a.Title,
			Message:   a.Message,
			Timestamp: rfc3339(a.Timestamp),
			Stored:    a.Stored,
		})
	}
	return nil, res, nil
}

func (s *Server) handlePredictHealth(ctx context.Context, _ *mcp.CallToolRequest, _ PredictArgs) (*mcp.CallToolResult, PredictResult, error) {
	out := s.dash.Dispatch(ctx, controller.EventPredict, controller.Args{})
	if out.Err != nil {
		return nil, PredictResult{}, fmt.Errorf("prediction failed: %s", controller.Describe(out.Err))
	}
	st := s.dash.Snapshot()
	if st.Prediction == nil {
		return nil, PredictResult{}, errors.New("prediction failed: no result")
	}
	p := st.Prediction
	res := PredictResult{
		RiskPercent:     p.RiskPercent,
		Level:           p.Level,
		Explanation:     p.Explanation,
		Recommendations: p.Recommendations,
	}
	if st.Risk != nil {
		res.Status = st.Risk.Status
	}
	return nil, res, nil
}

func (s *Server) handleListDrives(ctx context.Context, _ *mcp.CallToolRequest, _ DrivesArgs) (*mcp.CallToolResult, DrivesResult, error) {
	s.dash.Dispatch(ctx, controller.EventDrives, controller.Args{})
	return nil, DrivesResult{Drives: s.dash.Snapshot().Drives}, nil
}

func (s *Server) handleScanSecurity(ctx context.Context, _ *mcp.CallToolRequest, _ SecurityArgs) (*mcp.CallToolResult, SecurityResult, error) {
	if !s.dash.Snapshot().Authenticated {
		return nil, SecurityResult{}, ErrNotLoggedIn
	}

	var res SecurityResult
	for _, ev := range []controller.Event{controller.EventFirewall, controller.EventPorts, controller.EventSecurityScan} {
		if out := s.dash.Dispatch(ctx, ev, controller.Args{}); out.Err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", ev, controller.Describe(out.Err)))
		}
	}

	st := s.dash.Snapshot()
	if st.Firewall != nil {
		res.FirewallEnabled = st.Firewall.Enabled
		res.Profiles = st.Firewall.Profiles
	}
	for _, p := range st.Ports {
		res.OpenPorts = append(res.OpenPorts, PortInfo{
			Port:     p.Port,
			Address:  p.Address,
			Protocol: p.Protocol,
			Process:  p.ProcessLabel(),
		})
	}
	res.PortCount = st.PortCount
	if st.Security != nil {
		res.RiskPercent = st.Security.RiskPercent
		res.RiskLevel = st.Security.Level
		res.Threats = st.Security.Threats
		res.Recommendation = st.Security.Recommendation
	}
	if len(res.Errors) == 3 {
		return nil, SecurityResult{}, fmt.Errorf("security scan failed: %v", res.Errors)
	}
	return nil, res, nil
}

func (s *Server) handleGetHistory(ctx context.Context, _ *mcp.CallToolRequest, args HistoryArgs) (*mcp.CallToolResult, HistoryResult, error) {
	if s.history == nil {
		return nil, HistoryResult{}, errors.New("history is disabled: set journal_path in the config")
	}
	limit := args.Limit
	if limit == 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	entries, err := s.history.Recent(ctx, limit)
	if err != nil {
		return nil, HistoryResult{}, fmt.Errorf("failed to query snapshots: %w", err)
	}
	sum, err := s.history.Summary(ctx)
	if err != nil {
		return nil, HistoryResult{}, fmt.Errorf("failed to summarize snapshots: %w", err)
	}
	res := HistoryResult{
		Snapshots: make([]SnapshotInfo, 0, len(entries)),
		Summary: HistorySummary{
			Runs:          sum.Runs,
			Snapshots:     sum.Snapshots,
			Alerts:        sum.Alerts,
			AvgCPU:        sum.AvgCPU,
			MaxCPU:        sum.MaxCPU,
			AvgMemory:     sum.AvgMemory,
			MaxMemory:     sum.MaxMemory,
			FirstRecorded: rfc3339(sum.FirstRecorded),
			LastRecorded:  rfc3339(sum.LastRecorded),
		},
	}
	for _, e := range entries {
		res.Snapshots = append(res.Snapshots, SnapshotInfo{
			RunID:       e.RunID,
			Source:      string(e.Source),
			CollectedAt: rfc3339(e.CollectedAt),
			Metrics:     e.Metrics,
		})
	}
	return nil, res, nil
}

func rfc3339(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, args AskArgs) (*mcp.CallToolResult, AskResult, error) {
	if err := s.dash.Refresh(ctx); err != nil {
		s.logger.Debug("refresh before ask failed", slog.String("error", err.Error()))
	}
	out := s.dash.Dispatch(ctx, controller.EventAsk, controller.Args{Query: args.Question})
	if out.Err != nil {
		return nil, AskResult{}, fmt.Errorf("ask failed: %w", out.Err)
	}
	ans := s.dash.Snapshot().LastAnswer
	if ans == nil {
		return nil, AskResult{}, errors.New("ask failed: no answer")
	}
	return nil, AskResult{Answer: ans.Text, Intent: string(ans.Intent), Source: ans.Source}, nil
}

// Start serves over stdio until ctx ends or the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting AutoSense MCP server on stdio")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves a single session over t.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

// Close stops background refresh.
func (s *Server) Close() error {
	s.stopBackgroundRefresh()
	return nil
}

// startBackgroundRefresh refreshes the dashboard every interval so the
// journal keeps filling while an agent is attached.
func (s *Server) startBackgroundRefresh(interval time.Duration) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if s.refreshCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.refreshCancel = cancel
	s.refreshWg.Add(1)

	go func() {
		defer s.refreshWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.dash.Refresh(ctx); err != nil {
					s.logger.Debug("background refresh failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	s.logger.Info("background refresh started", slog.Duration("interval", interval))
}

func (s *Server) stopBackgroundRefresh() {
	s.refreshMu.Lock()
	cancel := s.refreshCancel
	s.refreshCancel = nil
	s.refreshMu.Unlock()

	if cancel != nil {
		cancel()
		s.refreshWg.Wait()
	}
}
