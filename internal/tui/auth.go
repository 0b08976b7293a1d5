package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/noahxzhu/tiffin-client/internal/tiffin"
)

type authMode int

const (
	modeLogin authMode = iota
	modeSignup
)

const (
	fieldName = iota
	fieldEmail
	fieldPassword
)

type authForm struct {
	mode   authMode
	inputs []textinput.Model
	focus  int
}

func newAuthForm() authForm {
	name := textinput.New()
	name.Prompt = "Name:     "
	name.Placeholder = "Your name"
	name.CharLimit = 64

	email := textinput.New()
	email.Prompt = "Email:    "
	email.Placeholder = "you@example.com"
	email.CharLimit = 128

	password := textinput.New()
	password.Prompt = "Password: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128

	f := authForm{inputs: []textinput.Model{name, email, password}, focus: fieldEmail}
	f.inputs[fieldEmail].Focus()
	return f
}

// fields lists the inputs shown in the current mode, top to bottom.
func (f authForm) fields() []int {
	if f.mode == modeSignup {
		return []int{fieldName, fieldEmail, fieldPassword}
	}
	return []int{fieldEmail, fieldPassword}
}

func (f *authForm) focusField(field int) tea.Cmd {
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
	f.focus = field
	return f.inputs[field].Focus()
}

func (f *authForm) move(delta int) tea.Cmd {
	fields := f.fields()
	pos := 0
	for i, field := range fields {
		if field == f.focus {
			pos = i
		}
	}
	pos = (pos + delta + len(fields)) % len(fields)
	return f.focusField(fields[pos])
}

func (f *authForm) toggleMode() tea.Cmd {
	if f.mode == modeLogin {
		f.mode = modeSignup
		return f.focusField(fieldName)
	}
	f.mode = modeLogin
	return f.focusField(fieldEmail)
}

func (f authForm) otherMode() string {
	if f.mode == modeLogin {
		return "sign up"
	}
	return "log in"
}

func (f authForm) onLastField() bool {
	fields := f.fields()
	return f.focus == fields[len(fields)-1]
}

func (f *authForm) clear() {
	for i := range f.inputs {
		f.inputs[i].Reset()
		f.inputs[i].Blur()
	}
	f.mode = modeLogin
}

// reset clears every input and returns to the login form.
func (f *authForm) reset() tea.Cmd {
	f.clear()
	return f.focusField(fieldEmail)
}

func (f *authForm) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f authForm) view() string {
	var b strings.Builder
	if f.mode == modeSignup {
		b.WriteString("Create an account\n\n")
	} else {
		b.WriteString("Log in\n\n")
	}
	for _, field := range f.fields() {
		b.WriteString(f.inputs[field].View())
		b.WriteString("\n")
	}
	return contentStyle.Render(b.String())
}

func (m Model) updateAuth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	submitting := m.busy[keyAuth]

	switch msg.String() {
	case "tab", "down":
		cmd := m.auth.move(1)
		return m, cmd
	case "shift+tab", "up":
		cmd := m.auth.move(-1)
		return m, cmd
	case "ctrl+n":
		if submitting {
			return m, nil
		}
		m.failure = ""
		cmd := m.auth.toggleMode()
		return m, cmd
	case "enter":
		if !m.auth.onLastField() {
			cmd := m.auth.move(1)
			return m, cmd
		}
		cmd := m.submitAuth()
		return m, cmd
	}

	if submitting {
		return m, nil
	}
	cmd := m.auth.updateFocused(msg)
	return m, cmd
}

func (m *Model) submitAuth() tea.Cmd {
	a := m.app
	name := m.auth.inputs[fieldName].Value()
	email := m.auth.inputs[fieldEmail].Value()
	password := m.auth.inputs[fieldPassword].Value()

	if m.auth.mode == modeSignup {
		return m.dispatch(keyAuth, func(ctx context.Context) tiffin.Result {
			return a.Register(ctx, name, email, password)
		})
	}
	return m.dispatch(keyAuth, func(ctx context.Context) tiffin.Result {
		return a.Authenticate(ctx, email, password)
	})
}

// authDone runs on the update loop once the login or signup call returns;
// the session is written here, never from the request goroutine.
func (m Model) authDone(res tiffin.Result) (tea.Model, tea.Cmd) {
	if done := m.app.FinishAuth(res); !done.OK() {
		m.failure = done.Message()
		return m, nil
	}
	m.auth.clear()
	m.screen = screenMain
	m.tab = tabSchedule
	cmd := m.load(tabSchedule)
	m.notice = "Welcome, " + m.app.Session.UserName()
	return m, cmd
}
