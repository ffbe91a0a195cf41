// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package authpage is the account screen: a spinner while the session is
// loading, the sign-in form when signed out, and the profile when signed in.
package authpage

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/anubhavitis/peeksy/internal/auth"
	"github.com/anubhavitis/peeksy/internal/logging"
	"github.com/anubhavitis/peeksy/internal/ui/authform"
	"github.com/anubhavitis/peeksy/internal/ui/components"
	"github.com/anubhavitis/peeksy/internal/ui/styles"
)

// =============================================================================
// ROUTE GATE
// =============================================================================

// View is what the page shows for a session state.
type View int

const (
	ViewLoading View = iota
	ViewAnonymousForm
	ViewProfile
)

func (v View) String() string {
	switch v {
	case ViewLoading:
		return "loading"
	case ViewAnonymousForm:
		return "form"
	default:
		return "profile"
	}
}

// Resolve maps a session state to a view.
func Resolve(s auth.State) View {
	switch {
	case s.Loading:
		return ViewLoading
	case s.Identity == nil:
		return ViewAnonymousForm
	default:
		return ViewProfile
	}
}

// =============================================================================
// MESSAGES
// =============================================================================

// StateMsg delivers a session state change.
type StateMsg struct {
	State auth.State
}

// SignOutResultMsg is the outcome of the profile's sign out control.
type SignOutResultMsg struct {
	Err error
}

// Session is the part of auth.Store the page uses.
type Session interface {
	authform.Authenticator
	SignOut(ctx context.Context) error
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the account page.
type Model struct {
	session Session
	theme   *styles.Theme
	logger  *slog.Logger
	ctx     context.Context

	state   auth.State
	spinner components.Spinner
	// form is kept across Loading so a failed submission's error survives the
	// store's loading excursion; it is dropped once a profile is shown.
	form *authform.Model
	// signingOut is set while a sign out command is outstanding.
	signingOut bool
}

// New creates the page for an initial state.
func New(session Session, theme *styles.Theme, initial auth.State, logger *slog.Logger) Model {
	if logger == nil {
		logger = logging.Discard()
	}
	sp := components.NewSpinner("Checking session")
	sp.SetShowTimer(true)
	m := Model{
		session: session,
		theme:   theme,
		logger:  logger,
		ctx:     context.Background(),
		spinner: sp,
	}
	m.apply(initial)
	return m
}

// Current returns the view being shown.
func (m Model) Current() View { return Resolve(m.state) }

// Form returns the mounted form, nil when none.
func (m Model) Form() *authform.Model { return m.form }

// Init starts the spinner if needed.
func (m Model) Init() tea.Cmd {
	if m.Current() == ViewLoading {
		return m.spinner.Start()
	}
	return nil
}

func (m *Model) apply(s auth.State) tea.Cmd {
	m.state = s
	var cmd tea.Cmd
	switch Resolve(s) {
	case ViewLoading:
		cmd = m.spinner.Start()
	case ViewAnonymousForm:
		m.spinner.Stop()
		if m.form == nil {
			f := authform.New(m.session, m.theme, authform.WithContext(m.ctx))
			m.form = &f
			cmd = f.Init()
		}
	case ViewProfile:
		m.spinner.Stop()
		m.form = nil
	}
	return cmd
}

// Update routes messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StateMsg:
		return m, m.apply(msg.State)

	case SignOutResultMsg:
		m.signingOut = false
		switch {
		case errors.Is(msg.Err, auth.ErrOperationInFlight):
			m.logger.Debug("sign out skipped, another operation is running")
		case msg.Err != nil:
			m.logger.Error("sign out failed", "err", msg.Err)
		}
		return m, nil

	case authform.SubmitResultMsg:
		if m.form != nil {
			f, cmd := m.form.Update(msg)
			m.form = &f
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch m.Current() {
		case ViewProfile:
			if k := msg.String(); (k == "s" || k == "enter") && !m.signingOut {
				m.signingOut = true
				return m, m.signOut()
			}
			return m, nil
		case ViewAnonymousForm:
			f, cmd := m.form.Update(msg)
			m.form = &f
			return m, cmd
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)
	if m.form != nil && m.Current() == ViewAnonymousForm {
		f, cmd := m.form.Update(msg)
		m.form = &f
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) signOut() tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return SignOutResultMsg{Err: session.SignOut(ctx)}
	}
}

// View renders the page.
func (m Model) View() string {
	switch m.Current() {
	case ViewLoading:
		return m.theme.Card.Render(m.spinner.View())
	case ViewAnonymousForm:
		return m.form.View()
	default:
		return m.profileView()
	}
}

func (m Model) profileView() string {
	t := m.theme
	email := m.state.Identity.Email

	var b strings.Builder
	b.WriteString(t.Avatar.Render(Initial(email)) + "  " + t.Title.Render(email) + "\n\n")
	b.WriteString(t.Muted.Render("Signed in") + "\n\n")
	b.WriteString(t.ButtonFocused.Render("Sign out") + "\n\n")
	b.WriteString(t.Footer.Render("enter/s sign out"))
	return t.Card.Render(b.String())
}

// Initial returns the uppercase first letter of email, "?" when empty.
func Initial(email string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(email))
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}
