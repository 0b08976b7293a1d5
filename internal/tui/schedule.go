package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/noahxzhu/tiffin-client/internal/model"
	"github.com/noahxzhu/tiffin-client/internal/tiffin"
)

type editTarget int

const (
	editNone editTarget = iota
	editTime
	editHolidayStart
	editHolidayEnd
)

// scheduleTab holds a working copy of the user's schedule. Edits stay local
// until saved.
type scheduleTab struct {
	loaded bool
	sched  model.Schedule
	dirty  bool
	cursor int

	edit         editTarget
	input        textinput.Model
	pendingStart string
}

func newScheduleTab() scheduleTab {
	in := textinput.New()
	in.CharLimit = 10
	return scheduleTab{input: in}
}

func (s scheduleTab) editing() bool {
	return s.edit != editNone
}

func (s *scheduleTab) set(sched model.Schedule) {
	s.sched = sched
	s.loaded = true
	s.dirty = false
}

func (s *scheduleTab) startEdit(target editTarget, value, placeholder string) tea.Cmd {
	s.edit = target
	s.input.SetValue(value)
	s.input.Placeholder = placeholder
	s.input.CursorEnd()
	return s.input.Focus()
}

func (s *scheduleTab) stopEdit() {
	s.edit = editNone
	s.input.Blur()
	s.input.Reset()
}

func (s scheduleTab) day() model.Weekday {
	return model.Weekdays[s.cursor]
}

func (m Model) updateSchedule(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.schedule.loaded {
		return m, nil
	}
	s := &m.schedule
	key := msg.String()

	switch key {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(model.Weekdays)-1 {
			s.cursor++
		}
	case "1", "2", "3", "4", "5", "6", "7":
		day, _ := model.ParseWeekday(key)
		s.sched.WeeklySchedule.Toggle(day)
		s.dirty = true
	case " ":
		s.sched.WeeklySchedule.Toggle(s.day())
		s.dirty = true
	case "t", "enter":
		current := s.sched.WeeklySchedule.Day(s.day()).Time
		cmd := s.startEdit(editTime, orDefault(current, model.DefaultDeliveryTime), "HH:MM")
		return m, cmd
	case "h":
		if s.sched.HolidayMode.Enabled {
			s.sched.HolidayMode = model.HolidayMode{}
			s.dirty = true
			return m, nil
		}
		cmd := s.startEdit(editHolidayStart, time.Now().Format(model.DateLayout), "YYYY-MM-DD")
		return m, cmd
	case "s":
		cmd := m.saveSchedule()
		return m, cmd
	}
	return m, nil
}

func (m *Model) saveSchedule() tea.Cmd {
	a := m.app
	weekly := m.schedule.sched.WeeklySchedule
	holiday := m.schedule.sched.HolidayMode
	return m.dispatch(keySave, func(ctx context.Context) tiffin.Result {
		return a.SaveSchedule(ctx, weekly, &holiday)
	})
}

func (m Model) updateScheduleEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := &m.schedule

	switch msg.String() {
	case "esc":
		s.stopEdit()
		m.failure = ""
		return m, nil
	case "enter":
		m.failure = commitEdit(s, strings.TrimSpace(s.input.Value()))
		return m, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return m, cmd
}

// commitEdit applies value to the field being edited and returns a message
// when it is rejected. Confirming a start date moves on to the end date.
func commitEdit(s *scheduleTab, value string) string {
	switch s.edit {
	case editTime:
		if _, err := time.Parse(model.TimeLayout, value); err != nil {
			return "Time must be HH:MM"
		}
		_ = s.sched.WeeklySchedule.Set(s.day(), model.DaySchedule{Enabled: true, Time: value})
		s.dirty = true
		s.stopEdit()

	case editHolidayStart:
		if _, err := time.Parse(model.DateLayout, value); err != nil {
			return "Start date must be YYYY-MM-DD"
		}
		s.pendingStart = value
		s.edit = editHolidayEnd
		s.input.SetValue(value)
		s.input.CursorEnd()

	case editHolidayEnd:
		h := model.HolidayMode{
			Enabled:   true,
			StartDate: s.pendingStart,
			EndDate:   value,
			Reason:    s.sched.HolidayMode.Reason,
		}
		if problems := h.Validate(); len(problems) > 0 {
			return problems[0]
		}
		s.sched.HolidayMode = h
		s.dirty = true
		s.stopEdit()
	}
	return ""
}

func (s scheduleTab) view(loading bool) string {
	if !s.loaded {
		if loading {
			return mutedStyle.Render("Loading schedule...")
		}
		return mutedStyle.Render("Press r to load your schedule.")
	}

	var b strings.Builder
	b.WriteString("Weekly schedule")
	if s.dirty {
		b.WriteString(mutedStyle.Render("  (unsaved)"))
	}
	b.WriteString("\n\n")

	for i, day := range model.Weekdays {
		ds := s.sched.WeeklySchedule.Day(day)
		pointer := "  "
		label := fmt.Sprintf("%d %-9s", i+1, day.Title())
		if i == s.cursor {
			pointer = cursorStyle.Render("> ")
			label = cursorStyle.Render(label)
		}
		state := mutedStyle.Render("off")
		if ds.Enabled {
			state = enabledStyle.Render("on  " + ds.Time)
		}
		if s.edit == editTime && i == s.cursor {
			state = s.input.View()
		}
		b.WriteString(pointer + label + " " + state + "\n")
	}

	b.WriteString("\nHoliday: ")
	switch {
	case s.edit == editHolidayStart:
		b.WriteString("from " + s.input.View())
	case s.edit == editHolidayEnd:
		b.WriteString("from " + s.pendingStart + " to " + s.input.View())
	case s.sched.HolidayMode.Enabled:
		h := s.sched.HolidayMode
		b.WriteString(enabledStyle.Render(h.StartDate + " to " + h.EndDate))
		if h.Reason != "" {
			b.WriteString(mutedStyle.Render(" (" + h.Reason + ")"))
		}
	default:
		b.WriteString(mutedStyle.Render("off"))
	}
	return b.String()
}
