// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package authform is the email/password form used to sign in or sign up.
//
// A Model owns its field values, the error from the last failed submission
// and a submitting flag. Submissions run as tea.Cmds; their results come back
// as SubmitResultMsg tagged with the form's ID, so a result that arrives
// after the form was replaced is dropped.
package authform

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/anubhavitis/peeksy/internal/auth"
	"github.com/anubhavitis/peeksy/internal/ui/styles"
)

// =============================================================================
// TYPES
// =============================================================================

// Mode selects which store operation a submission calls.
type Mode int

const (
	ModeLogin Mode = iota
	ModeSignup
)

func (m Mode) String() string {
	if m == ModeSignup {
		return "signup"
	}
	return "login"
}

// MinPasswordLength is the shortest password a submission accepts.
const MinPasswordLength = 6

// Validation hints shown under the form. They are not submission errors.
const (
	HintRequired      = "Email and password are required"
	HintShortPassword = "Password must be at least 6 characters"
)

// Authenticator is the part of auth.Store the form drives.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (auth.Identity, error)
	SignUp(ctx context.Context, email, password string) (auth.Identity, error)
}

// SubmitResultMsg is the outcome of a submission.
type SubmitResultMsg struct {
	FormID   uint64
	Identity auth.Identity
	Err      error
}

type focusTarget int

const (
	focusEmail focusTarget = iota
	focusPassword
	focusSubmit
	focusToggle
	focusCount
)

var nextFormID atomic.Uint64

const fieldWidth = 36

// =============================================================================
// MODEL
// =============================================================================

// Model is one mounted form.
type Model struct {
	id     uint64
	auth   Authenticator
	theme  *styles.Theme
	ctx    context.Context
	onDone func(auth.Identity)

	mode       Mode
	email      textinput.Model
	password   textinput.Model
	focus      focusTarget
	err        string
	hint       string
	submitting bool
}

// Option configures a Model.
type Option func(*Model)

// WithOnDone sets a callback run once per successful submission.
func WithOnDone(fn func(auth.Identity)) Option { return func(m *Model) { m.onDone = fn } }

// WithContext sets the context passed to the store.
func WithContext(ctx context.Context) Option { return func(m *Model) { m.ctx = ctx } }

// WithMode sets the starting mode.
func WithMode(mode Mode) Option { return func(m *Model) { m.mode = mode } }

// New mounts a form in login mode with the email field focused.
func New(a Authenticator, theme *styles.Theme, opts ...Option) Model {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = ""
	email.CharLimit = 254
	email.Width = 32

	password := textinput.New()
	password.Placeholder = "at least 6 characters"
	password.Prompt = ""
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'
	password.CharLimit = 128
	password.Width = 32

	m := Model{
		id:       nextFormID.Add(1),
		auth:     a,
		theme:    theme,
		ctx:      context.Background(),
		email:    email,
		password: password,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.email.Focus()
	return m
}

// ID identifies this mount.
func (m Model) ID() uint64 { return m.id }

// Mode returns the current mode.
func (m Model) Mode() Mode { return m.mode }

// Email returns the email field.
func (m Model) Email() string { return m.email.Value() }

// Password returns the password field.
func (m Model) Password() string { return m.password.Value() }

// Error returns the last submission error, "" when none.
func (m Model) Error() string { return m.err }

// Hint returns the validation hint, "" when none.
func (m Model) Hint() string { return m.hint }

// Submitting reports whether a submission is in flight.
func (m Model) Submitting() bool { return m.submitting }

// SetEmail replaces the email field.
func (m *Model) SetEmail(s string) { m.email.SetValue(s) }

// SetPassword replaces the password field.
func (m *Model) SetPassword(s string) { m.password.SetValue(s) }

// Toggle flips between login and signup and clears the error. Field values
// are kept.
func (m *Model) Toggle() {
	if m.mode == ModeLogin {
		m.mode = ModeSignup
	} else {
		m.mode = ModeLogin
	}
	m.err = ""
	m.hint = ""
}

// Validate returns the hint that blocks submission, "" when the fields are
// acceptable.
func Validate(email, password string) string {
	if strings.TrimSpace(email) == "" || password == "" {
		return HintRequired
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return HintShortPassword
	}
	return ""
}

// Submit starts a submission. It is a no-op while one is in flight, and
// invalid fields only set the hint.
func (m *Model) Submit() tea.Cmd {
	if m.submitting {
		return nil
	}
	email, password := strings.TrimSpace(m.email.Value()), m.password.Value()
	if hint := Validate(email, password); hint != "" {
		m.hint = hint
		return nil
	}

	m.submitting = true
	m.err = ""
	m.hint = ""

	id, mode, a, ctx := m.id, m.mode, m.auth, m.ctx
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = SubmitResultMsg{FormID: id, Err: &auth.Error{
					Kind:    auth.KindUnexpected,
					Message: fmt.Sprint(r),
				}}
			}
		}()
		var (
			ident auth.Identity
			err   error
		)
		if mode == ModeSignup {
			ident, err = a.SignUp(ctx, email, password)
		} else {
			ident, err = a.SignIn(ctx, email, password)
		}
		return SubmitResultMsg{FormID: id, Identity: ident, Err: err}
	}
}

// =============================================================================
// BUBBLETEA
// =============================================================================

// Init focuses the email field.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles keys and submission results.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SubmitResultMsg:
		if msg.FormID != m.id {
			return m, nil
		}
		m.submitting = false
		if msg.Err != nil {
			m.err = auth.Message(msg.Err)
			if m.err == "" {
				m.err = "Something went wrong"
			}
			return m, nil
		}
		m.email.Reset()
		m.password.Reset()
		m.setFocus(focusEmail)
		if m.onDone != nil {
			m.onDone(msg.Identity)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down":
			m.setFocus((m.focus + 1) % focusCount)
			return m, nil
		case "shift+tab", "up":
			m.setFocus((m.focus + focusCount - 1) % focusCount)
			return m, nil
		case "ctrl+t":
			m.Toggle()
			return m, nil
		case "enter":
			if m.focus == focusToggle {
				m.Toggle()
				return m, nil
			}
			return m, m.Submit()
		}
		if m.submitting {
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusEmail:
		m.email, cmd = m.email.Update(msg)
	case focusPassword:
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m *Model) setFocus(f focusTarget) {
	m.focus = f
	m.email.Blur()
	m.password.Blur()
	switch f {
	case focusEmail:
		m.email.Focus()
	case focusPassword:
		m.password.Focus()
	}
}

// View renders the form.
func (m Model) View() string {
	t := m.theme
	var b strings.Builder

	title := "Sign in to Peeksy"
	submit := "Sign in"
	toggle := "Need an account? Sign up"
	if m.mode == ModeSignup {
		title = "Create your Peeksy account"
		submit = "Sign up"
		toggle = "Have an account? Sign in"
	}

	b.WriteString(t.Title.Render(title) + "\n\n")
	b.WriteString(t.Label.Render("Email") + "\n")
	b.WriteString(m.field(m.email, m.focus == focusEmail) + "\n")
	b.WriteString(t.Label.Render("Password") + "\n")
	b.WriteString(m.field(m.password, m.focus == focusPassword) + "\n\n")

	switch {
	case m.submitting:
		b.WriteString(t.ButtonDisabled.Render(submit + "..."))
	case m.focus == focusSubmit:
		b.WriteString(t.ButtonFocused.Render(submit))
	default:
		b.WriteString(t.Button.Render(submit))
	}
	b.WriteString("\n\n")

	if m.focus == focusToggle {
		b.WriteString(t.Link.Bold(true).Render("> " + toggle))
	} else {
		b.WriteString(t.Link.Render(toggle))
	}

	if m.err != "" {
		b.WriteString("\n\n" + t.Error.Render(m.err))
	}
	if m.hint != "" {
		b.WriteString("\n\n" + t.Hint.Render(m.hint))
	}
	return t.Card.Render(b.String())
}

func (m Model) field(in textinput.Model, focused bool) string {
	style := m.theme.Input
	if focused {
		style = m.theme.InputFocused
	}
	return style.Width(fieldWidth).Render(in.View())
}
