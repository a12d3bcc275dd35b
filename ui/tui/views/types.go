package views

import (
	"autosense/internal/controller"
	"autosense/ui/tui/state"
)

// ViewProps contains UI-specific properties provided by the Controller.
type ViewProps struct {
	Width, Height  int
	MouseX, MouseY int

	// Component States
	MenuCursor  int
	AnimCursor  float64
	SpinnerView string
	ChartViews  []string
	TreemapView string
	ScrollY     int
	InputView   string   // search or question box
	InputActive bool
	LoginInputs []string // username, password
}

// View defines the contract for any renderable page in the TUI.
type View interface {
	Render(s state.AppState, props ViewProps) string
}

// Action binds a key on a page to a controller event. The same table drives
// the footer hints and the click zones.
type Action struct {
	Key   string
	Event controller.Event
	Label string
}

var pageActions = map[state.Page][]Action{
	state.PageDashboard: {
		{Key: "r", Event: controller.EventRefresh, Label: "Refresh"},
		{Key: "m", Event: controller.EventBoostRAM, Label: "Boost RAM"},
		{Key: "c", Event: controller.EventCleanJunk, Label: "Clean Junk"},
		{Key: "o", Event: controller.EventAutoOptimize, Label: "Auto Optimize"},
		{Key: "g", Event: controller.EventReport, Label: "PDF Report"},
	},
	state.PageAlerts: {
		{Key: "r", Event: controller.EventRefresh, Label: "Refresh"},
		{Key: "x", Event: controller.EventClearNotifications, Label: "Clear"},
	},
	state.PageAI: {
		{Key: "p", Event: controller.EventPredict, Label: "Predict"},
		{Key: "a", Event: controller.EventAIOptimize, Label: "AI Optimize"},
		{Key: "g", Event: controller.EventReport, Label: "PDF Report"},
	},
	state.PageDiskMap: {
		{Key: "s", Event: controller.EventDiskMap, Label: "Scan"},
		{Key: "l", Event: controller.EventDrives, Label: "Reload Drives"},
	},
	state.PageApps: {
		{Key: "l", Event: controller.EventApps, Label: "Load Apps"},
		{Key: "u", Event: controller.EventUninstall, Label: "Uninstall"},
	},
	state.PageSecurity: {
		{Key: "f", Event: controller.EventFirewall, Label: "Firewall"},
		{Key: "p", Event: controller.EventPorts, Label: "Open Ports"},
		{Key: "s", Event: controller.EventSecurityScan, Label: "Malware Scan"},
	},
	state.PageSettings: {
		{Key: "t", Event: controller.EventToggleAutoRefresh, Label: "Auto Refresh"},
		{Key: "n", Event: controller.EventToggleNotifications, Label: "Notifications"},
		{Key: "x", Event: controller.EventClearNotifications, Label: "Clear Alerts"},
		{Key: "l", Event: controller.EventLogout, Label: "Logout"},
	},
}

// PageActions lists the actions available on page.
func PageActions(page state.Page) []Action {
	return pageActions[page]
}

// ActionZone is the bubblezone ID of an action button.
func ActionZone(ev controller.Event) string {
	return "action_" + string(ev)
}

// MenuItem is one entry of the main menu.
type MenuItem struct {
	Title string
	Page  state.Page
}

var MenuItems = []MenuItem{
	{Title: "System Dashboard", Page: state.PageDashboard},
	{Title: "Alerts & Notifications", Page: state.PageAlerts},
	{Title: "AI Health Insights", Page: state.PageAI},
	{Title: "Disk Space Map", Page: state.PageDiskMap},
	{Title: "Installed Applications", Page: state.PageApps},
	{Title: "Security Center", Page: state.PageSecurity},
	{Title: "Settings", Page: state.PageSettings},
	{Title: "Activity Console", Page: state.PageConsole},
	{Title: "Account & Login", Page: state.PageLogin},
}

// MenuZone is the bubblezone ID of a menu entry.
func MenuZone(i int) string {
	return "menu_" + itoa(i)
}
