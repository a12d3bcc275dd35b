package state

import (
	"autosense/internal/controller"
)

type Page int

const (
	PageMenu Page = iota
	PageDashboard
	PageAlerts
	PageAI      // prediction and assistant
	PageDiskMap // treemap of the selected drive
	PageApps
	PageSecurity
	PageSettings
	PageConsole // activity log
	PageLogin
)

// Toast is a notification on screen. ID ties it to its expiry message.
type Toast struct {
	ID int
	controller.Toast
}

// Confirm is a pending yes/no prompt. Accepting re-dispatches Event with
// Args.Confirmed set.
type Confirm struct {
	Text  string
	Event controller.Event
	Args  controller.Args
}

// AppState holds the latest controller snapshot plus what only the terminal
// needs.
type AppState struct {
	Dash        controller.State
	Toasts      []Toast
	Confirm     *Confirm
	ConsoleLogs []string
	CurrentPage Page
	Busy        int // commands in flight
	Err         error

	AppQuery    string
	SelectedApp int
	DiskDrive   string
	DiskDepth   int
}
