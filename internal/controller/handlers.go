package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"autosense/internal/api"
	"autosense/internal/engine"
	"autosense/internal/projector"
	"autosense/internal/store"
)

// DefaultReportPath is where the PDF report lands when no path is given.
const DefaultReportPath = "autosense_report.pdf"

// Life-saver credit, in months, for each successful maintenance action.
const (
	boostRAMMonths     = 0.1
	cleanJunkMonths    = 0.2
	autoOptimizeMonths = 0.4
)

func (c *Controller) buildHandlers() map[Event]Handler {
	return map[Event]Handler{
		EventRefresh:      {Run: c.handleRefresh},
		EventBoostRAM:     {Progress: "Boosting RAM...", Run: c.handleBoostRAM},
		EventCleanJunk:    {Progress: "Scanning for junk files...", ConfirmedProgress: "Cleaning junk files...", Run: c.handleCleanJunk},
		EventAutoOptimize: {Progress: "Starting auto-optimization...", Run: c.handleAutoOptimize},
		EventPredict:      {Progress: "Analyzing system health...", Run: c.handlePredict},
		EventAIOptimize:   {Progress: "Starting AI optimization...", Run: c.handleAIOptimize},
		EventReport:       {Progress: "Generating PDF report...", Run: c.handleReport},
		EventDrives:       {Run: c.handleDrives},
		EventDiskMap: {
			Progress:     "Scanning disk...",
			AuthRequired: "Please login to access Disk Map",
			Run:          c.handleDiskMap,
		},
		EventApps: {
			Progress:     "Loading applications...",
			AuthRequired: "Please login to manage applications",
			Run:          c.handleApps,
		},
		EventUninstall: {
			ConfirmedProgress: "Starting uninstall...",
			AuthRequired:      "Please login to manage applications",
			Run:               c.handleUninstall,
		},
		EventFirewall: {
			Progress:     "Checking firewall...",
			AuthRequired: "Please login to access the Security Center",
			Run:          c.handleFirewall,
		},
		EventPorts: {
			Progress:     "Scanning ports...",
			AuthRequired: "Please login to access the Security Center",
			Run:          c.handlePorts,
		},
		EventSecurityScan: {
			Progress:     "Running malware scan...",
			AuthRequired: "Please login to access the Security Center",
			Run:          c.handleSecurityScan,
		},
		EventToggleAutoRefresh:   {Run: c.handleToggleAutoRefresh},
		EventToggleNotifications: {Run: c.handleToggleNotifications},
		EventLogout:              {Run: c.handleLogout},
		EventClearNotifications:  {Run: c.handleClearNotifications},
		EventAsk:                 {Run: c.handleAsk},
	}
}

// handleRefresh is the manual refresh button. It is rate limited; a refused
// press does nothing.
func (c *Controller) handleRefresh(ctx context.Context, _ Args) Outcome {
	if !c.sched.AllowManual() {
		return Outcome{}
	}
	if err := c.Refresh(ctx); err != nil {
		c.logger.Debug("manual refresh incomplete", slog.String("error", err.Error()))
	}
	return Outcome{Toast: Toast{Text: "Dashboard refreshed", Level: LevelSuccess}}
}

func (c *Controller) handleBoostRAM(ctx context.Context, _ Args) Outcome {
	env, err := c.client.BoostRAM(ctx)
	if err != nil {
		return failure("Error boosting RAM: ", err)
	}
	res := projector.ParseBoost(env)
	out := Outcome{Toast: Toast{
		Text:  fmt.Sprintf("RAM Boosted! Freed %s%% memory", projector.FormatNumber(res.FreedPercent)),
		Level: LevelSuccess,
	}}
	out.Follow = append(out.Follow, c.addLifeBoost(boostRAMMonths))
	_ = c.Refresh(ctx)
	return out
}

// handleCleanJunk scans first and asks before deleting anything.
func (c *Controller) handleCleanJunk(ctx context.Context, args Args) Outcome {
	if !args.Confirmed {
		env, err := c.client.ScanJunk(ctx)
		if err != nil {
			return failure("Error cleaning junk files: ", err)
		}
		scan := projector.ParseJunkScan(env)
		c.mu.Lock()
		c.state.JunkScan = &scan
		c.mu.Unlock()
		return Outcome{Confirm: fmt.Sprintf("Found %s MB of junk files. Clean them?", projector.FormatNumber(scan.TotalSizeMB))}
	}

	env, err := c.client.CleanJunk(ctx)
	if err != nil {
		return failure("Error cleaning junk files: ", err)
	}
	res := projector.ParseJunkClean(env)
	c.mu.Lock()
	c.state.JunkScan = nil
	c.mu.Unlock()

	out := Outcome{Toast: Toast{
		Text:  fmt.Sprintf("Cleaned %d files, freed %s MB", res.CleanedFiles, projector.FormatNumber(res.FreedSizeMB)),
		Level: LevelSuccess,
	}}
	out.Follow = append(out.Follow, c.addLifeBoost(cleanJunkMonths))
	_ = c.Refresh(ctx)
	return out
}

func (c *Controller) handleAutoOptimize(ctx context.Context, _ Args) Outcome {
	if _, err := c.client.AutoOptimize(ctx); err != nil {
		return failure("Error optimizing: ", err)
	}
	out := Outcome{Toast: Toast{Text: "Auto-optimization completed!", Level: LevelSuccess}}
	out.Follow = append(out.Follow, c.addLifeBoost(autoOptimizeMonths))
	_ = c.Refresh(ctx)
	return out
}

func (c *Controller) handlePredict(ctx context.Context, _ Args) Outcome {
	env, err := c.client.Predict(ctx)
	if err != nil {
		return failure("Error getting prediction: ", err)
	}
	p, ok := projector.ParsePrediction(env)
	if !ok {
		return failure("Error getting prediction: ", api.ErrInvalidResponse)
	}
	risk := engine.EvaluatePrediction(p)
	c.mu.Lock()
	c.state.Prediction = &p
	c.state.Risk = &risk
	c.mu.Unlock()
	return Outcome{Toast: Toast{Text: "System health analysis complete", Level: LevelSuccess}}
}

// handleAIOptimize runs the optimizer and then re-predicts.
func (c *Controller) handleAIOptimize(ctx context.Context, args Args) Outcome {
	if _, err := c.client.AutoOptimize(ctx); err != nil {
		return failure("Error optimizing: ", err)
	}
	out := Outcome{Toast: Toast{Text: "AI optimization completed!", Level: LevelSuccess}}
	next := c.handlePredict(ctx, args)
	out.Follow = append(out.Follow, next.Toast)
	return out
}

func (c *Controller) handleReport(ctx context.Context, args Args) Outcome {
	data, err := c.client.Report(ctx)
	if err != nil {
		return failure("Error generating report: ", err)
	}
	path := args.ReportPath
	if path == "" {
		path = DefaultReportPath
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return failure("Error generating report: ", fmt.Errorf("write %s: %w", path, err))
	}
	c.mu.Lock()
	c.state.ReportPath = path
	c.mu.Unlock()
	return Outcome{Toast: Toast{Text: "PDF report generated!", Level: LevelSuccess}}
}

func (c *Controller) handleDrives(ctx context.Context, _ Args) Outcome {
	c.loadDrives(ctx)
	return Outcome{}
}

func (c *Controller) handleDiskMap(ctx context.Context, args Args) Outcome {
	drive := args.Drive
	if drive == "" {
		drive = c.defaultDrive()
	}
	depth := args.Depth
	if depth <= 0 {
		depth = c.cfg.DefaultScanDepth
	}

	env, err := c.client.DiskMap(ctx, drive, depth)
	if err != nil {
		var appErr *api.AppError
		switch {
		case errors.Is(err, api.ErrTimeout):
			return Outcome{Err: err, Toast: Toast{Text: "Scan timed out. Try a lower depth.", Level: LevelWarning}}
		case errors.As(err, &appErr) && !errors.Is(err, api.ErrUnauthorized):
			return failure("Error: ", err)
		}
		return failure("Disk map error: ", err)
	}

	dm := projector.ParseDiskMap(env)
	if dm.Drive == "" {
		dm.Drive = drive
	}
	c.mu.Lock()
	c.state.DiskMap = &dm
	c.mu.Unlock()

	if !dm.HasFolders() {
		return Outcome{Toast: Toast{Text: "No accessible folders found in " + dm.Drive, Level: LevelWarning}}
	}
	return Outcome{Toast: Toast{Text: "Disk map loaded", Level: LevelSuccess}}
}

func (c *Controller) defaultDrive() string {
	s := c.Snapshot()
	if len(s.Drives) > 0 {
		return s.Drives[0]
	}
	return "C:\\"
}

func (c *Controller) handleApps(ctx context.Context, _ Args) Outcome {
	env, err := c.client.Apps(ctx)
	if err != nil {
		return failure("Error loading apps: ", err)
	}
	apps, count := projector.ParseApps(env)
	c.mu.Lock()
	c.state.Apps = apps
	c.state.AppCount = count
	c.mu.Unlock()
	return Outcome{Toast: Toast{Text: fmt.Sprintf("Loaded %d applications", count), Level: LevelSuccess}}
}

func (c *Controller) handleUninstall(ctx context.Context, args Args) Outcome {
	name := strings.TrimSpace(args.App)
	if name == "" {
		return Outcome{Err: errors.New("controller: no application selected")}
	}
	if !args.Confirmed {
		return Outcome{Confirm: fmt.Sprintf("Are you sure you want to uninstall %s?", name)}
	}
	if _, err := c.client.RemoveApp(ctx, name); err != nil {
		return failure("Error uninstalling app: ", err)
	}
	return Outcome{Toast: Toast{Text: "Uninstall process started", Level: LevelSuccess}}
}

func (c *Controller) handleFirewall(ctx context.Context, _ Args) Outcome {
	env, err := c.client.Firewall(ctx)
	if err != nil {
		return failure("Error checking firewall: ", err)
	}
	fw := projector.ParseFirewall(env)
	c.mu.Lock()
	c.state.Firewall = &fw
	c.mu.Unlock()
	return Outcome{Toast: Toast{Text: "Firewall check complete", Level: LevelSuccess}}
}

func (c *Controller) handlePorts(ctx context.Context, _ Args) Outcome {
	env, err := c.client.Ports(ctx)
	if err != nil {
		return failure("Error scanning ports: ", err)
	}
	ports, count := projector.ParsePorts(env)
	c.mu.Lock()
	c.state.Ports = ports
	c.state.PortCount = count
	c.mu.Unlock()
	return Outcome{Toast: Toast{Text: fmt.Sprintf("Found %d open ports", count), Level: LevelSuccess}}
}

func (c *Controller) handleSecurityScan(ctx context.Context, _ Args) Outcome {
	env, err := c.client.SecurityScan(ctx)
	if err != nil {
		return failure("Error running scan: ", err)
	}
	scan := projector.ParseSecurityScan(env)
	c.mu.Lock()
	c.state.Security = &scan
	c.mu.Unlock()
	return Outcome{Toast: Toast{Text: "Malware scan complete", Level: LevelSuccess}}
}

func (c *Controller) handleToggleAutoRefresh(ctx context.Context, _ Args) Outcome {
	c.mu.Lock()
	c.state.AutoRefresh = !c.state.AutoRefresh
	on := c.state.AutoRefresh
	c.mu.Unlock()

	if err := c.store.SetBool(store.KeyAutoRefresh, on); err != nil {
		c.logger.Warn("persist auto-refresh failed", slog.String("error", err.Error()))
	}
	c.sched.SetEnabled(on)
	if on {
		c.sched.Start(c.runContext())
	} else {
		c.sched.Stop()
	}
	return Outcome{}
}

func (c *Controller) handleToggleNotifications(ctx context.Context, _ Args) Outcome {
	c.mu.Lock()
	c.state.Notifications = !c.state.Notifications
	on := c.state.Notifications
	c.mu.Unlock()

	if err := c.store.SetBool(store.KeyNotifications, on); err != nil {
		c.logger.Warn("persist notifications failed", slog.String("error", err.Error()))
	}
	return Outcome{}
}

func (c *Controller) handleLogout(ctx context.Context, _ Args) Outcome {
	if err := c.session.Logout(); err != nil {
		return Outcome{Err: err, Toast: Toast{Text: "Logged out, but the saved session could not be cleared", Level: LevelWarning}}
	}
	return Outcome{Toast: Toast{Text: "Logged out successfully", Level: LevelSuccess}}
}

func (c *Controller) handleClearNotifications(ctx context.Context, _ Args) Outcome {
	c.setAlerts(nil)
	return Outcome{}
}

func (c *Controller) handleAsk(ctx context.Context, args Args) Outcome {
	ans, err := c.assistant.Ask(ctx, args.Query, c.AssistantContext())
	if err != nil {
		return Outcome{Err: err}
	}
	c.mu.Lock()
	c.state.LastAnswer = &ans
	c.mu.Unlock()
	return Outcome{}
}
