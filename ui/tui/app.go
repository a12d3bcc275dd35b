package tui

import (
	"context"
	"fmt"
	"time"

	"autosense/internal/controller"
	"autosense/internal/poller"
	"autosense/internal/projector"
	"autosense/ui/tui/components"
	"autosense/ui/tui/state"
	"autosense/ui/tui/views"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

const (
	maxToasts      = 4
	maxConsoleLogs = 100
)

// Controller is what the TUI needs from the dashboard controller.
type Controller interface {
	Init(ctx context.Context, landing string) error
	Refresh(ctx context.Context) error
	Snapshot() controller.State
	History(metric projector.Metric) []float64
	ProgressToast(ev controller.Event, args controller.Args) controller.Toast
	Dispatch(ctx context.Context, ev controller.Event, args controller.Args) controller.Outcome
	Login(ctx context.Context, username, password string) controller.Outcome
	GoogleLoginURL() (string, error)
	SetVisible(v bool)
}

// Options tune the model.
type Options struct {
	Landing         string // OAuth landing URL captured at startup
	HistoryCapacity int
	ScanDepth       int
	ToastTTL        time.Duration // default 4s
}

type inputFocus int

const (
	inputNone inputFocus = iota
	inputSearch
	inputAsk
	inputUsername
	inputPassword
)

// MainModel is the Bubble Tea Model acting as the Controller
type MainModel struct {
	ctx   context.Context
	ctrl  Controller
	ticks <-chan struct{}
	opts  Options

	state      state.AppState
	spinner    spinner.Model
	charts     []*components.MetricChart
	treemap    *components.Treemap
	menuCursor int
	animCursor float64
	velocity   float64 // Physics velocity
	spring     harmonica.Spring

	input    inputFocus
	search   textinput.Model
	ask      textinput.Model
	username textinput.Model
	password textinput.Model

	refreshing     bool
	toastSeq       int
	consoleScrollY int
	mouseX         int
	mouseY         int
	quitting       bool
	width          int
	height         int
}

// Messages
type AnimateMsg time.Time

// RefreshTickMsg is posted when the polling scheduler fires.
type RefreshTickMsg struct{}

type InitDoneMsg struct{ Err error }

type RefreshedMsg struct{ Err error }

type OutcomeMsg struct {
	Event   controller.Event
	Args    controller.Args
	Outcome controller.Outcome
}

type LoginMsg struct{ Outcome controller.Outcome }

type toastExpiredMsg struct{ id int }

// TickFunc returns a scheduler refresh that only signals ch, so refreshes run
// on the program's command loop. A pending signal absorbs later ticks.
func TickFunc(ch chan<- struct{}) poller.RefreshFunc {
	return func(context.Context) {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func InitialModel(ctx context.Context, ctrl Controller, ticks <-chan struct{}, opts Options) MainModel {
	if opts.HistoryCapacity <= 0 {
		opts.HistoryCapacity = 25
	}
	if opts.ScanDepth <= 0 {
		opts.ScanDepth = 2
	}
	if opts.ToastTTL <= 0 {
		opts.ToastTTL = 4 * time.Second
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	charts := make([]*components.MetricChart, 0, len(projector.Charted))
	for _, metric := range projector.Charted {
		charts = append(charts, components.NewMetricChart(metric, opts.HistoryCapacity, 30, 8))
	}

	// Increased frequency (12.0) for faster response and damping (0.9) to prevent overshoot
	spring := harmonica.NewSpring(harmonica.FPS(60), 12.0, 0.9)

	search := textinput.New()
	search.Placeholder = "Search applications..."
	search.Prompt = "🔍 "

	ask := textinput.New()
	ask.Placeholder = "Hey AutoSense, boost my RAM"
	ask.Prompt = "> "

	username := textinput.New()
	username.Placeholder = "Username"
	username.Prompt = "User: "

	password := textinput.New()
	password.Placeholder = "Password"
	password.Prompt = "Pass: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	return MainModel{
		ctx:      ctx,
		ctrl:     ctrl,
		ticks:    ticks,
		opts:     opts,
		spinner:  s,
		charts:   charts,
		treemap:  components.NewTreemap(60, 12),
		spring:   spring,
		search:   search,
		ask:      ask,
		username: username,
		password: password,
		state: state.AppState{
			CurrentPage: state.PageMenu,
			DiskDepth:   opts.ScanDepth,
			Busy:        1,
		},
	}
}

func (m *MainModel) Init() tea.Cmd {
	zone.NewGlobal()
	return tea.Batch(
		m.spinner.Tick,
		animateCmd(),
		initCmd(m.ctx, m.ctrl, m.opts.Landing),
		waitForTick(m.ticks),
	)
}

// Commands
func animateCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*16, func(t time.Time) tea.Msg {
		return AnimateMsg(t)
	})
}

func initCmd(ctx context.Context, ctrl Controller, landing string) tea.Cmd {
	return func() tea.Msg {
		return InitDoneMsg{Err: ctrl.Init(ctx, landing)}
	}
}

func waitForTick(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return RefreshTickMsg{}
	}
}

func refreshCmd(ctx context.Context, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		return RefreshedMsg{Err: ctrl.Refresh(ctx)}
	}
}

func dispatchCmd(ctx context.Context, ctrl Controller, ev controller.Event, args controller.Args) tea.Cmd {
	return func() tea.Msg {
		return OutcomeMsg{Event: ev, Args: args, Outcome: ctrl.Dispatch(ctx, ev, args)}
	}
}

func loginCmd(ctx context.Context, ctrl Controller, username, password string) tea.Cmd {
	return func() tea.Msg {
		return LoginMsg{Outcome: ctrl.Login(ctx, username, password)}
	}
}

func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case AnimateMsg:
		return m.handleAnimateMsg(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowSizeMsg(msg)

	case tea.FocusMsg:
		m.ctrl.SetVisible(true)
		return m, nil

	case tea.BlurMsg:
		m.ctrl.SetVisible(false)
		return m, nil

	case InitDoneMsg:
		m.state.Busy--
		m.state.Err = msg.Err
		m.sync()
		if msg.Err != nil {
			m.logf("startup failed: %v", msg.Err)
		} else {
			m.logf("connected, %s", m.serverLabel())
		}
		return m, nil

	case RefreshTickMsg:
		return m.handleRefreshTick()

	case RefreshedMsg:
		m.refreshing = false
		m.state.Err = msg.Err
		m.sync()
		if msg.Err != nil {
			m.logf("refresh failed: %v", msg.Err)
		} else {
			m.logMetrics()
		}
		return m, nil

	case OutcomeMsg:
		return m.handleOutcome(msg)

	case LoginMsg:
		return m.handleLogin(msg)

	case toastExpiredMsg:
		for i, t := range m.state.Toasts {
			if t.ID == msg.id {
				m.state.Toasts = append(m.state.Toasts[:i], m.state.Toasts[i+1:]...)
				break
			}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	}

	return m, nil
}

func (m *MainModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if c := m.state.Confirm; c != nil {
		switch key {
		case "y", "enter":
			m.state.Confirm = nil
			args := c.Args
			args.Confirmed = true
			return m, m.dispatch(c.Event, args)
		case "n", "esc":
			m.state.Confirm = nil
		}
		return m, nil
	}

	if m.input != inputNone {
		return m.handleInputKey(msg)
	}

	if key == "q" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.state.CurrentPage == state.PageMenu {
		switch key {
		case "up", "k":
			if m.menuCursor > 0 {
				m.menuCursor--
			}
		case "down", "j":
			if m.menuCursor < len(views.MenuItems)-1 {
				m.menuCursor++
			}
		case "enter":
			return m, m.navigateTo(m.menuCursor)
		}
		return m, nil
	}

	if key == "b" || key == "esc" || key == "backspace" {
		m.state.CurrentPage = state.PageMenu
		m.consoleScrollY = 0
		return m, nil
	}

	switch m.state.CurrentPage {
	case state.PageConsole:
		switch key {
		case "up", "k":
			if m.consoleScrollY > 0 {
				m.consoleScrollY--
			}
		case "down", "j":
			m.consoleScrollY++
		}
		return m, nil

	case state.PageApps:
		switch key {
		case "up", "k":
			if m.state.SelectedApp > 0 {
				m.state.SelectedApp--
			}
			return m, nil
		case "down", "j":
			if m.state.SelectedApp < len(m.filteredApps())-1 {
				m.state.SelectedApp++
			}
			return m, nil
		case "/":
			return m, m.focus(inputSearch)
		}

	case state.PageAI:
		if key == "i" {
			return m, m.focus(inputAsk)
		}

	case state.PageDiskMap:
		switch key {
		case "d":
			m.nextDrive()
			return m, nil
		case "+", "=":
			m.state.DiskDepth = min(m.state.DiskDepth+1, 5)
			return m, nil
		case "-":
			m.state.DiskDepth = max(m.state.DiskDepth-1, 1)
			return m, nil
		}

	case state.PageLogin:
		if key == "enter" && !m.state.Dash.Authenticated {
			return m, m.focus(inputUsername)
		}
	}

	for _, a := range views.PageActions(m.state.CurrentPage) {
		if a.Key == key {
			return m, m.dispatch(a.Event, m.argsFor(a.Event))
		}
	}
	return m, nil
}

func (m *MainModel) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.blur()
		if m.state.CurrentPage == state.PageLogin {
			m.state.CurrentPage = state.PageMenu
		}
		return m, nil

	case "tab", "shift+tab":
		switch m.input {
		case inputUsername:
			return m, m.focus(inputPassword)
		case inputPassword:
			return m, m.focus(inputUsername)
		}
		return m, nil

	case "ctrl+g":
		if m.input == inputUsername || m.input == inputPassword {
			return m, m.googleLogin()
		}

	case "enter":
		switch m.input {
		case inputSearch:
			m.blur()
			return m, nil
		case inputAsk:
			q := m.ask.Value()
			m.ask.SetValue("")
			m.blur()
			if q == "" {
				return m, nil
			}
			return m, m.dispatch(controller.EventAsk, controller.Args{Query: q})
		case inputUsername:
			return m, m.focus(inputPassword)
		case inputPassword:
			user, pass := m.username.Value(), m.password.Value()
			if user == "" || pass == "" {
				return m, m.toast(controller.Toast{Text: "Please enter username and password", Level: controller.LevelWarning})
			}
			m.state.Busy++
			return m, loginCmd(m.ctx, m.ctrl, user, pass)
		}
	}

	var cmd tea.Cmd
	switch m.input {
	case inputSearch:
		m.search, cmd = m.search.Update(msg)
		m.state.AppQuery = m.search.Value()
		m.state.SelectedApp = 0
	case inputAsk:
		m.ask, cmd = m.ask.Update(msg)
	case inputUsername:
		m.username, cmd = m.username.Update(msg)
	case inputPassword:
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m *MainModel) focus(f inputFocus) tea.Cmd {
	m.blur()
	m.input = f
	switch f {
	case inputSearch:
		return m.search.Focus()
	case inputAsk:
		return m.ask.Focus()
	case inputUsername:
		return m.username.Focus()
	case inputPassword:
		return m.password.Focus()
	}
	return nil
}

func (m *MainModel) blur() {
	m.search.Blur()
	m.ask.Blur()
	m.username.Blur()
	m.password.Blur()
	m.input = inputNone
}

func (m *MainModel) navigateTo(cursor int) tea.Cmd {
	if cursor < 0 || cursor >= len(views.MenuItems) {
		return nil
	}
	page := views.MenuItems[cursor].Page
	m.state.CurrentPage = page
	if page == state.PageLogin && !m.state.Dash.Authenticated {
		return m.focus(inputUsername)
	}
	return nil
}

func (m *MainModel) nextDrive() {
	drives := m.state.Dash.Drives
	if len(drives) == 0 {
		return
	}
	next := 0
	for i, d := range drives {
		if d == m.state.DiskDrive {
			next = (i + 1) % len(drives)
			break
		}
	}
	m.state.DiskDrive = drives[next]
}

func (m *MainModel) filteredApps() []projector.App {
	return projector.FilterApps(m.state.Dash.Apps, m.state.AppQuery)
}

func (m *MainModel) argsFor(ev controller.Event) controller.Args {
	switch ev {
	case controller.EventDiskMap:
		return controller.Args{Drive: m.state.DiskDrive, Depth: m.state.DiskDepth}
	case controller.EventUninstall:
		apps := m.filteredApps()
		if m.state.SelectedApp < len(apps) {
			return controller.Args{App: apps[m.state.SelectedApp].Name}
		}
	}
	return controller.Args{}
}

// dispatch shows the progress toast and runs the event off the update loop.
func (m *MainModel) dispatch(ev controller.Event, args controller.Args) tea.Cmd {
	m.state.Busy++
	cmds := []tea.Cmd{dispatchCmd(m.ctx, m.ctrl, ev, args)}
	if t := m.ctrl.ProgressToast(ev, args); !t.Empty() {
		cmds = append(cmds, m.toast(t))
	}
	return tea.Batch(cmds...)
}

func (m *MainModel) handleOutcome(msg OutcomeMsg) (tea.Model, tea.Cmd) {
	m.state.Busy--
	m.sync()

	out := msg.Outcome
	var cmds []tea.Cmd
	for _, t := range out.Toasts() {
		cmds = append(cmds, m.toast(t))
	}
	if out.Confirm != "" {
		m.state.Confirm = &state.Confirm{Text: out.Confirm, Event: msg.Event, Args: msg.Args}
	}
	if out.Err != nil {
		m.logf("%s failed: %s", msg.Event, controller.Describe(out.Err))
	} else {
		m.logf("%s ok", msg.Event)
	}
	return m, tea.Batch(cmds...)
}

func (m *MainModel) handleLogin(msg LoginMsg) (tea.Model, tea.Cmd) {
	m.state.Busy--
	m.sync()

	var cmds []tea.Cmd
	for _, t := range msg.Outcome.Toasts() {
		cmds = append(cmds, m.toast(t))
	}
	if msg.Outcome.Err != nil {
		m.logf("login failed: %s", controller.Describe(msg.Outcome.Err))
		return m, tea.Batch(cmds...)
	}
	m.password.SetValue("")
	m.blur()
	m.state.CurrentPage = state.PageDashboard
	m.logf("logged in as %s", m.state.Dash.User)
	return m, tea.Batch(cmds...)
}

func (m *MainModel) googleLogin() tea.Cmd {
	url, err := m.ctrl.GoogleLoginURL()
	if err != nil {
		return m.toast(controller.Toast{Text: "Google login error: " + err.Error(), Level: controller.LevelError})
	}
	m.logf("google sign-in: %s", url)
	return m.toast(controller.Toast{
		Text:  "Open in a browser, then run `autosense login --landing <url>`:\n" + url,
		Level: controller.LevelInfo,
	})
}

// handleRefreshTick keeps at most one refresh in flight. Ticks that land
// while one runs are dropped.
func (m *MainModel) handleRefreshTick() (tea.Model, tea.Cmd) {
	next := waitForTick(m.ticks)
	if m.refreshing {
		return m, next
	}
	m.refreshing = true
	return m, tea.Batch(refreshCmd(m.ctx, m.ctrl), next)
}

func (m *MainModel) toast(t controller.Toast) tea.Cmd {
	m.toastSeq++
	id := m.toastSeq
	m.state.Toasts = append(m.state.Toasts, state.Toast{ID: id, Toast: t})
	if len(m.state.Toasts) > maxToasts {
		m.state.Toasts = m.state.Toasts[len(m.state.Toasts)-maxToasts:]
	}
	return tea.Tick(m.opts.ToastTTL, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

// sync copies the controller snapshot into the view state.
func (m *MainModel) sync() {
	m.state.Dash = m.ctrl.Snapshot()
	for _, c := range m.charts {
		c.SetHistory(m.ctrl.History(c.Metric))
	}
	m.treemap.Root = nil
	if dm := m.state.Dash.DiskMap; dm != nil {
		m.treemap.Root = dm.Tree
	}
	if m.state.DiskDrive == "" && len(m.state.Dash.Drives) > 0 {
		m.state.DiskDrive = m.state.Dash.Drives[0]
	}
	if n := len(m.filteredApps()); m.state.SelectedApp >= n {
		m.state.SelectedApp = max(n-1, 0)
	}
}

func (m *MainModel) logf(format string, args ...any) {
	line := fmt.Sprintf("[%s] ", time.Now().Format("15:04:05")) + fmt.Sprintf(format, args...)
	m.state.ConsoleLogs = append(m.state.ConsoleLogs, line)
	if len(m.state.ConsoleLogs) > maxConsoleLogs {
		m.state.ConsoleLogs = m.state.ConsoleLogs[1:]
	}
}

func (m *MainModel) logMetrics() {
	if !m.state.Dash.HasMetrics {
		m.logf("refresh: %s, no metrics", m.serverLabel())
		return
	}
	raw := m.state.Dash.Raw
	m.logf("CPU: %.1f%% | RAM: %.1f%% | Disk: %.1f%% | Procs: %d (%s)",
		raw.CPUPercent, raw.MemoryPercent, raw.DiskPercent, raw.ProcessCount, m.serverLabel())
}

func (m *MainModel) serverLabel() string {
	switch {
	case m.state.Dash.Offline:
		return "offline sample"
	case m.state.Dash.Online:
		return "server online"
	}
	return "server offline"
}

func (m *MainModel) handleAnimateMsg(msg AnimateMsg) (tea.Model, tea.Cmd) {
	m.animCursor, m.velocity = m.spring.Update(m.animCursor, m.velocity, float64(m.menuCursor))
	return m, animateCmd()
}

func (m *MainModel) handleWindowSizeMsg(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	newW := (msg.Width - 12) / len(m.charts)
	if newW > 10 {
		for _, c := range m.charts {
			c.Resize(newW, 8)
		}
	}
	m.treemap.Resize(max(msg.Width-6, 10), max(msg.Height-16, 6))
	return m, nil
}

func (m *MainModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	m.mouseX = msg.X
	m.mouseY = msg.Y

	if msg.Action != tea.MouseActionRelease || m.state.Confirm != nil {
		return m, nil
	}
	if m.state.CurrentPage == state.PageMenu {
		for i := range views.MenuItems {
			if zone.Get(views.MenuZone(i)).InBounds(msg) {
				m.menuCursor = i
				return m, m.navigateTo(i)
			}
		}
		return m, nil
	}
	for _, a := range views.PageActions(m.state.CurrentPage) {
		if zone.Get(views.ActionZone(a.Event)).InBounds(msg) {
			return m, m.dispatch(a.Event, m.argsFor(a.Event))
		}
	}
	return m, nil
}

func (m *MainModel) View() string {
	if m.quitting {
		return "Bye!\n"
	}

	props := views.ViewProps{
		Width:       m.width,
		Height:      m.height,
		MouseX:      m.mouseX,
		MouseY:      m.mouseY,
		MenuCursor:  m.menuCursor,
		AnimCursor:  m.animCursor,
		SpinnerView: m.spinner.View(),
		ScrollY:     m.consoleScrollY,
		InputActive: m.input != inputNone,
	}

	var page views.View
	switch m.state.CurrentPage {
	case state.PageMenu:
		page = views.MenuView{}
	case state.PageDashboard:
		for _, c := range m.charts {
			props.ChartViews = append(props.ChartViews, c.View())
		}
		page = views.DashboardView{}
	case state.PageAlerts:
		page = views.AlertsView{}
	case state.PageAI:
		props.InputView = m.ask.View()
		page = views.AIView{}
	case state.PageDiskMap:
		props.TreemapView = m.treemap.View()
		page = views.DiskMapView{}
	case state.PageApps:
		props.InputView = m.search.View()
		page = views.AppsView{}
	case state.PageSecurity:
		page = views.SecurityView{}
	case state.PageSettings:
		page = views.SettingsView{}
	case state.PageConsole:
		page = views.ConsoleView{}
	case state.PageLogin:
		props.LoginInputs = []string{m.username.View(), m.password.View()}
		page = views.LoginView{}
	default:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Bold(true).Render("Unknown page\n\nPress 'b' to go back"),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		page.Render(m.state, props),
		views.ConfirmPrompt(m.state.Confirm),
		views.Toasts(m.state.Toasts),
	)
}

// Start runs the dashboard until the user quits. ticks carries the polling
// scheduler's signals (see TickFunc).
func Start(ctx context.Context, ctrl Controller, ticks <-chan struct{}, opts Options) error {
	m := InitialModel(ctx, ctrl, ticks, opts)
	p := tea.NewProgram(
		&m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}
