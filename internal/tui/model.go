package tui

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/noahxzhu/tiffin-client/internal/app"
	"github.com/noahxzhu/tiffin-client/internal/model"
	"github.com/noahxzhu/tiffin-client/internal/tiffin"
	"github.com/noahxzhu/tiffin-client/internal/worker"
)

type screen int

const (
	screenAuth screen = iota
	screenMain
)

type tab int

const (
	tabSchedule tab = iota
	tabDashboard
	tabDeliveries
	tabCount
)

func (t tab) title() string {
	switch t {
	case tabSchedule:
		return "Schedule"
	case tabDashboard:
		return "Dashboard"
	case tabDeliveries:
		return "Deliveries"
	}
	return ""
}

// Dispatch keys. One key per screen region so a newer request for the same
// region supersedes an older one.
const (
	keyAuth       = "auth"
	keySchedule   = "schedule"
	keySave       = "schedule.save"
	keyStats      = "stats"
	keyDeliveries = "deliveries"
	keyMarkPrefix = "deliveries.mark:"
)

// Model is the root bubbletea model. Backend calls leave Update only through
// dispatch and come back as worker.Completion messages.
type Model struct {
	ctx    context.Context
	app    *app.App
	logger *slog.Logger

	screen screen
	tab    tab
	width  int

	spinner spinner.Model
	busy    map[string]bool
	notice  string
	failure string

	auth       authForm
	schedule   scheduleTab
	dashboard  dashboardTab
	deliveries deliveriesTab
}

func New(ctx context.Context, a *app.App) Model {
	m := Model{
		ctx:      ctx,
		app:      a,
		logger:   a.Logger.With("component", "tui"),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		busy:     make(map[string]bool),
		auth:     newAuthForm(),
		schedule: newScheduleTab(),
	}
	if a.Session.IsLoggedIn() {
		m.screen = screenMain
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.screen == screenMain {
		return m.load(m.tab)
	}
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if !m.anyBusy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case worker.Completion:
		return m.complete(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.screen == screenAuth {
			return m.updateAuth(msg)
		}
		return m.updateMain(msg)
	}

	// Cursor blink and other input housekeeping.
	var cmd tea.Cmd
	switch {
	case m.screen == screenAuth:
		cmd = m.auth.updateFocused(msg)
	case m.schedule.editing():
		m.schedule.input, cmd = m.schedule.input.Update(msg)
	}
	return m, cmd
}

// dispatch marks key busy and runs op on the dispatcher. A key that is
// already busy is left alone, which is how controls stay disabled while
// their request is in flight.
func (m *Model) dispatch(key string, op worker.Op) tea.Cmd {
	if m.busy[key] {
		return nil
	}
	idle := !m.anyBusy()
	m.busy[key] = true
	m.failure = ""
	m.notice = ""
	m.app.Go(m.ctx, key, op)
	if idle {
		return m.spinner.Tick
	}
	return nil
}

func (m *Model) load(t tab) tea.Cmd {
	a := m.app
	switch t {
	case tabSchedule:
		return m.dispatch(keySchedule, a.MySchedule)
	case tabDashboard:
		return m.dispatch(keyStats, a.Stats)
	case tabDeliveries:
		return m.dispatch(keyDeliveries, func(ctx context.Context) tiffin.Result {
			return a.MyDeliveries(ctx, tiffin.DefaultDeliveryDays)
		})
	}
	return nil
}

func (m Model) anyBusy() bool {
	return len(m.busy) > 0
}

func (m Model) complete(c worker.Completion) (tea.Model, tea.Cmd) {
	if !m.busy[c.Key] || !m.app.Dispatcher.IsCurrent(c) {
		m.logger.Debug("Dropping stale completion", "key", c.Key, "gen", c.Gen)
		return m, nil
	}
	delete(m.busy, c.Key)

	if !c.Result.OK() {
		m.failure = c.Result.Message()
		m.logger.Info("Request failed", "key", c.Key, "kind", c.Result.Kind.String(), "status", c.Result.Status)
		return m, nil
	}

	switch {
	case c.Key == keyAuth:
		return m.authDone(c.Result)

	case c.Key == keySchedule:
		var sched model.Schedule
		if !m.decode(c.Result, &sched) {
			return m, nil
		}
		m.schedule.set(sched)

	case c.Key == keySave:
		var resp model.ScheduleUpdateResponse
		if !m.decode(c.Result, &resp) {
			return m, nil
		}
		if resp.Schedule.UserID != "" {
			m.schedule.set(resp.Schedule)
		}
		m.schedule.dirty = false
		m.notice = orDefault(resp.Message, "Schedule saved")

	case c.Key == keyStats:
		var stats model.DashboardStats
		if !m.decode(c.Result, &stats) {
			return m, nil
		}
		m.dashboard = dashboardTab{loaded: true, stats: stats}

	case c.Key == keyDeliveries:
		var list []model.DeliveryRecord
		if !m.decode(c.Result, &list) {
			return m, nil
		}
		m.deliveries.set(list)

	case strings.HasPrefix(c.Key, keyMarkPrefix):
		var resp model.MarkDeliveredResponse
		if !m.decode(c.Result, &resp) {
			return m, nil
		}
		m.deliveries.markDelivered(strings.TrimPrefix(c.Key, keyMarkPrefix), resp.Delivery)
		m.notice = orDefault(resp.Message, "Marked as delivered")
	}
	return m, nil
}

func (m *Model) decode(res tiffin.Result, v any) bool {
	if err := res.Decode(v); err != nil {
		m.failure = err.Error()
		m.logger.Error("Failed to decode response", "error", err)
		return false
	}
	return true
}

func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.tab == tabSchedule && m.schedule.editing() {
		return m.updateScheduleEdit(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab", "right":
		return m.switchTab((m.tab + 1) % tabCount)
	case "shift+tab", "left":
		return m.switchTab((m.tab + tabCount - 1) % tabCount)
	case "r":
		cmd := m.load(m.tab)
		return m, cmd
	case "L":
		return m.logout()
	}

	switch m.tab {
	case tabSchedule:
		return m.updateSchedule(msg)
	case tabDeliveries:
		return m.updateDeliveries(msg)
	}
	return m, nil
}

func (m Model) switchTab(t tab) (tea.Model, tea.Cmd) {
	m.tab = t
	m.failure = ""
	m.notice = ""
	loaded := map[tab]bool{
		tabSchedule:   m.schedule.loaded,
		tabDashboard:  m.dashboard.loaded,
		tabDeliveries: m.deliveries.loaded,
	}
	if loaded[t] {
		return m, nil
	}
	cmd := m.load(t)
	return m, cmd
}

// logout clears the session and forgets every in-flight request, so late
// completions for the previous user are dropped.
func (m Model) logout() (tea.Model, tea.Cmd) {
	if err := m.app.Logout(); err != nil {
		m.failure = "Logout failed: " + err.Error()
		return m, nil
	}
	m.busy = make(map[string]bool)
	m.schedule = newScheduleTab()
	m.dashboard = dashboardTab{}
	m.deliveries = deliveriesTab{}
	m.tab = tabSchedule
	m.screen = screenAuth
	m.failure = ""
	m.notice = "Logged out"
	cmd := m.auth.reset()
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Tiffin"))
	b.WriteString("\n")

	if m.screen == screenAuth {
		b.WriteString(m.auth.view())
	} else {
		b.WriteString("Hello, " + m.app.Session.UserName() + "\n\n")
		b.WriteString(m.tabsView())
		b.WriteString("\n")
		var body string
		switch m.tab {
		case tabSchedule:
			body = m.schedule.view(m.busy[keySchedule])
		case tabDashboard:
			body = m.dashboard.view()
		case tabDeliveries:
			body = m.deliveries.view(m.busy)
		}
		b.WriteString(contentStyle.Render(body))
	}

	b.WriteString("\n")
	b.WriteString(m.statusView())
	b.WriteString(helpStyle.Render(m.help()))
	return b.String()
}

func (m Model) tabsView() string {
	tabs := make([]string, 0, tabCount)
	for t := tab(0); t < tabCount; t++ {
		if t == m.tab {
			tabs = append(tabs, tabActiveStyle.Render(t.title()))
		} else {
			tabs = append(tabs, tabInactiveStyle.Render(t.title()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) statusView() string {
	switch {
	case m.anyBusy():
		return m.spinner.View() + " Working...\n"
	case m.failure != "":
		return errorStyle.Render(m.failure) + "\n"
	case m.notice != "":
		return noticeStyle.Render(m.notice) + "\n"
	}
	return "\n"
}

func (m Model) help() string {
	if m.screen == screenAuth {
		return "tab: next field  enter: submit  ctrl+n: " + m.auth.otherMode() + "  ctrl+c: quit"
	}
	common := "tab: switch  r: refresh  L: logout  q: quit"
	switch m.tab {
	case tabSchedule:
		if m.schedule.editing() {
			return "enter: confirm  esc: cancel"
		}
		return "1-7/space: toggle day  t: set time  h: holiday  s: save  " + common
	case tabDeliveries:
		return "up/down: select  d: mark delivered  " + common
	}
	return common
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
