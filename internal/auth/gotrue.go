// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/anubhavitis/peeksy/internal/logging"
	"github.com/anubhavitis/peeksy/internal/session"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultTimeout bounds a single auth request.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize caps the bytes read from an auth response.
	MaxResponseSize = 1 << 20

	clientInfo = "peeksy-go/1"

	// ConfirmEmailMessage is returned when sign-up needs email confirmation.
	ConfirmEmailMessage = "Check your email to confirm your account, then sign in."
)

// credentialCodes are provider error codes that reject the submitted
// email/password rather than signal a service problem.
var credentialCodes = map[string]bool{
	"invalid_credentials":   true,
	"invalid_grant":         true,
	"weak_password":         true,
	"user_already_exists":   true,
	"email_exists":          true,
	"validation_failed":     true,
	"email_address_invalid": true,
}

// =============================================================================
// GOTRUE PROVIDER
// =============================================================================

// GoTrueConfig configures NewGoTrue.
type GoTrueConfig struct {
	// URL is the project URL, e.g. https://abc.supabase.co.
	URL     string
	AnonKey string

	// Sessions persists the session between runs. Nil keeps it in memory.
	Sessions *session.FileStore

	HTTPClient    *http.Client
	Logger        *slog.Logger
	WatchDebounce time.Duration
	Now           func() time.Time
}

// GoTrue talks to a Supabase GoTrue server.
type GoTrue struct {
	baseURL  string
	anonKey  string
	client   *http.Client
	sessions *session.FileStore
	logger   *slog.Logger
	now      func() time.Time
	debounce time.Duration

	mu        sync.Mutex
	current   *session.Session
	timer     *time.Timer
	listeners map[int]func(Event)
	nextID    int
	watcher   *session.Watcher
	stopWatch chan struct{}
}

// NewGoTrue validates cfg and returns a provider.
func NewGoTrue(cfg GoTrueConfig) (*GoTrue, error) {
	if strings.TrimSpace(cfg.URL) == "" || strings.TrimSpace(cfg.AnonKey) == "" {
		return nil, ErrNotConfigured
	}
	g := &GoTrue{
		baseURL:   strings.TrimRight(cfg.URL, "/") + "/auth/v1",
		anonKey:   cfg.AnonKey,
		client:    cfg.HTTPClient,
		sessions:  cfg.Sessions,
		logger:    cfg.Logger,
		now:       cfg.Now,
		debounce:  cfg.WatchDebounce,
		listeners: make(map[int]func(Event)),
	}
	if g.client == nil {
		g.client = &http.Client{Timeout: DefaultTimeout}
	}
	if g.logger == nil {
		g.logger = logging.Discard()
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g, nil
}

// CurrentSession restores the persisted session. Unreadable or expired
// sessions are discarded.
func (g *GoTrue) CurrentSession(ctx context.Context) (*Identity, error) {
	if g.sessions == nil {
		g.mu.Lock()
		defer g.mu.Unlock()
		return identityOf(g.current), nil
	}

	sess, err := g.sessions.Load()
	switch {
	case errors.Is(err, session.ErrNoSession):
		return nil, nil
	case errors.Is(err, session.ErrCorrupt):
		g.logger.Warn("discarding unreadable session", "path", g.sessions.Path())
		_ = g.sessions.Clear()
		return nil, nil
	case err != nil:
		return nil, unexpectedError(err)
	}

	if sess.Expired(g.now()) {
		g.logger.Info("saved session expired", "email", sess.User.Email)
		_ = g.sessions.Clear()
		return nil, nil
	}

	g.mu.Lock()
	g.setCurrentLocked(sess)
	g.mu.Unlock()
	return identityOf(sess), nil
}

// SignUp registers an account. Projects that require email confirmation
// return no session; that is reported as a RemoteError.
func (g *GoTrue) SignUp(ctx context.Context, email, password string) (Identity, error) {
	var resp tokenResponse
	if err := g.do(ctx, http.MethodPost, "/signup", credentials{email, password}, "", &resp); err != nil {
		return Identity{}, err
	}
	if resp.AccessToken == "" {
		return Identity{}, &Error{Kind: KindRemote, Message: ConfirmEmailMessage, Code: "email_not_confirmed"}
	}
	return g.establish(&resp)
}

// SignIn exchanges email and password for a session.
func (g *GoTrue) SignIn(ctx context.Context, email, password string) (Identity, error) {
	var resp tokenResponse
	if err := g.do(ctx, http.MethodPost, "/token?grant_type=password", credentials{email, password}, "", &resp); err != nil {
		return Identity{}, err
	}
	if resp.AccessToken == "" {
		return Identity{}, unexpectedError(errors.New("auth response did not include an access token"))
	}
	return g.establish(&resp)
}

// SignOut revokes the session server-side, then forgets it locally.
// A token the server no longer recognises counts as signed out.
func (g *GoTrue) SignOut(ctx context.Context) error {
	g.mu.Lock()
	cur := g.current
	g.mu.Unlock()

	if cur != nil {
		err := g.do(ctx, http.MethodPost, "/logout", nil, cur.AccessToken, nil)
		var ae *Error
		if err != nil && !(errors.As(err, &ae) && (ae.Status == http.StatusUnauthorized || ae.Status == http.StatusForbidden || ae.Status == http.StatusNotFound)) {
			return err
		}
	}

	if g.sessions != nil {
		if err := g.sessions.Clear(); err != nil {
			return unexpectedError(err)
		}
	}

	g.mu.Lock()
	g.setCurrentLocked(nil)
	g.mu.Unlock()
	g.emit(Event{Kind: EventSignedOut})
	return nil
}

// Subscribe registers fn for pushed events. The first subscriber starts the
// session file watch; the last one to leave stops it.
func (g *GoTrue) Subscribe(fn func(Event)) (unsubscribe func()) {
	g.mu.Lock()
	g.nextID++
	id := g.nextID
	g.listeners[id] = fn
	if g.watcher == nil && g.sessions != nil {
		g.startWatchLocked()
	}
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.listeners, id)
			if len(g.listeners) == 0 {
				g.stopWatchLocked()
			}
			g.mu.Unlock()
		})
	}
}

// Close stops the expiry timer and the file watch.
func (g *GoTrue) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.stopWatchLocked()
	g.listeners = make(map[int]func(Event))
}

// =============================================================================
// SESSION BOOKKEEPING
// =============================================================================

func (g *GoTrue) establish(resp *tokenResponse) (Identity, error) {
	sess := resp.session(g.now())
	if sess.User.ID == "" && sess.User.Email == "" {
		return Identity{}, unexpectedError(errors.New("auth response did not include a user"))
	}
	if g.sessions != nil {
		if err := g.sessions.Save(sess); err != nil {
			return Identity{}, unexpectedError(err)
		}
	}

	g.mu.Lock()
	g.setCurrentLocked(sess)
	g.mu.Unlock()

	id := identityOf(sess)
	g.emit(Event{Kind: EventSignedIn, Identity: id})
	return *id, nil
}

// setCurrentLocked swaps the in-memory session and re-arms the expiry timer.
func (g *GoTrue) setCurrentLocked(sess *session.Session) {
	g.current = sess
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	if sess == nil || sess.ExpiresAt.IsZero() {
		return
	}
	token := sess.AccessToken
	g.timer = time.AfterFunc(sess.ExpiresAt.Sub(g.now()), func() { g.expire(token) })
}

func (g *GoTrue) expire(token string) {
	g.mu.Lock()
	if g.current == nil || g.current.AccessToken != token {
		g.mu.Unlock()
		return
	}
	g.current = nil
	g.timer = nil
	g.mu.Unlock()

	if g.sessions != nil {
		_ = g.sessions.Clear()
	}
	g.logger.Info("session expired")
	g.emit(Event{Kind: EventSessionExpired})
}

func (g *GoTrue) emit(ev Event) {
	g.mu.Lock()
	fns := make([]func(Event), 0, len(g.listeners))
	ids := make([]int, 0, len(g.listeners))
	for id := range g.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, g.listeners[id])
	}
	g.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (g *GoTrue) startWatchLocked() {
	w, err := g.sessions.Watch(g.debounce)
	if err != nil {
		g.logger.Warn("session watch unavailable", "err", err)
		return
	}
	g.watcher = w
	g.stopWatch = make(chan struct{})
	go g.watchLoop(w, g.stopWatch)
}

func (g *GoTrue) stopWatchLocked() {
	if g.watcher == nil {
		return
	}
	close(g.stopWatch)
	_ = g.watcher.Close()
	g.watcher = nil
	g.stopWatch = nil
}

func (g *GoTrue) watchLoop(w *session.Watcher, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-w.Changes():
			g.reload()
		}
	}
}

// reload reconciles memory with a session file another process changed.
func (g *GoTrue) reload() {
	sess, err := g.sessions.Load()
	if err != nil || sess.Expired(g.now()) {
		sess = nil
	}

	g.mu.Lock()
	prev := g.current
	switch {
	case sess == nil && prev == nil:
		g.mu.Unlock()
		return
	case sess != nil && prev != nil && sess.AccessToken == prev.AccessToken:
		g.mu.Unlock()
		return
	}
	g.setCurrentLocked(sess)
	g.mu.Unlock()

	switch {
	case sess == nil:
		g.emit(Event{Kind: EventSignedOut})
	case prev != nil && prev.User.ID == sess.User.ID:
		g.emit(Event{Kind: EventUserUpdated, Identity: identityOf(sess)})
	default:
		g.emit(Event{Kind: EventSignedIn, Identity: identityOf(sess)})
	}
}

func identityOf(s *session.Session) *Identity {
	if s == nil {
		return nil
	}
	return &Identity{ID: s.User.ID, Email: s.User.Email}
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userJSON struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// tokenResponse covers both the session reply and the bare-user reply that
// sign-up returns when confirmation is pending.
type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    int64     `json:"expires_at"`
	User         *userJSON `json:"user"`
	ID           string    `json:"id"`
	Email        string    `json:"email"`
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// session builds the persisted form. Expiry and identity come from the JWT
// claims when the body leaves them out.
func (r *tokenResponse) session(now time.Time) *session.Session {
	s := &session.Session{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
	if r.User != nil {
		s.User = session.User{ID: r.User.ID, Email: r.User.Email}
	}

	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(r.AccessToken, &claims); err == nil {
		if claims.ExpiresAt != nil {
			s.ExpiresAt = claims.ExpiresAt.Time
		}
		if s.User.ID == "" {
			s.User.ID = claims.Subject
		}
		if s.User.Email == "" {
			s.User.Email = claims.Email
		}
	}

	if s.ExpiresAt.IsZero() {
		switch {
		case r.ExpiresAt > 0:
			s.ExpiresAt = time.Unix(r.ExpiresAt, 0)
		case r.ExpiresIn > 0:
			s.ExpiresAt = now.Add(time.Duration(r.ExpiresIn) * time.Second)
		}
	}
	return s
}

// apiError accepts both GoTrue error layouts:
// {"error":"invalid_grant","error_description":"..."} and
// {"code":400,"error_code":"invalid_credentials","msg":"..."}.
type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

// =============================================================================
// HTTP
// =============================================================================

func (g *GoTrue) do(ctx context.Context, method, path string, body any, token string, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return unexpectedError(err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return unexpectedError(err)
	}
	if token == "" {
		token = g.anonKey
	}
	req.Header.Set("apikey", g.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Client-Info", clientInfo)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return remoteError("Could not reach the authentication service", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return remoteError("Could not read the authentication response", err)
	}

	if resp.StatusCode >= 400 {
		return parseAPIError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return unexpectedError(fmt.Errorf("decode auth response: %w", err))
	}
	return nil
}

func parseAPIError(status int, data []byte) *Error {
	var ae apiError
	_ = json.Unmarshal(data, &ae)

	msg := firstNonEmpty(ae.Msg, ae.ErrorDescription, ae.Message, ae.Error, http.StatusText(status))
	code := firstNonEmpty(ae.ErrorCode, ae.Error)

	kind := KindRemote
	if (status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusUnprocessableEntity) && credentialCodes[code] {
		kind = KindInvalidCredentials
	}
	return &Error{Kind: kind, Message: msg, Status: status, Code: code}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
