package linkedin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SessionState tracks where the run stands with LinkedIn authentication.
type SessionState int

const (
	Unauthenticated SessionState = iota
	Authenticating
	Authenticated
	Expired
)

func (s SessionState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

var (
	// ErrAuthTimeout is returned when the manual login window elapses
	// without a completion signal.
	ErrAuthTimeout = errors.New("linkedin: timed out waiting for manual login")
	// ErrAuthRefused is returned when a completed login still fails the
	// session probe.
	ErrAuthRefused = errors.New("linkedin: authentication refused")
	// ErrAuthRequired signals that a request hit the authwall and the
	// session must be re-established before retrying.
	ErrAuthRequired = errors.New("linkedin: authentication required")
)

// Browser is the capability the session manager needs from the automation
// layer. Keeping it this narrow lets the session logic run against a fake in
// tests, with the chromedp implementation wired in only at the edge.
type Browser interface {
	ProbeSession(ctx context.Context) (bool, error)
	BeginManualLogin(ctx context.Context) error
	ExportCookies(ctx context.Context) ([]*Cookie, error)
	ImportCookies(ctx context.Context, cookies []*Cookie) error
}

const defaultLoginTimeout = 5 * time.Minute

// SessionManager owns the authentication state for a run. It is the only
// component allowed to mutate the state; the HTTP client and the pipeline
// read it through State and Cookies.
type SessionManager struct {
	browser      Browser
	cookiesPath  string
	loginTimeout time.Duration
	logger       *zap.Logger

	mu      sync.RWMutex
	state   SessionState
	cookies []*Cookie

	loginCh chan struct{}
}

func NewSessionManager(browser Browser, cookiesPath string, loginTimeout time.Duration, logger *zap.Logger) *SessionManager {
	if loginTimeout <= 0 {
		loginTimeout = defaultLoginTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SessionManager{
		browser:      browser,
		cookiesPath:  cookiesPath,
		loginTimeout: loginTimeout,
		logger:       logger,
		state:        Unauthenticated,
		loginCh:      make(chan struct{}, 1),
	}
}

func (m *SessionManager) State() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Cookies returns the current snapshot. The slice is shared read-only; callers
// must not mutate it.
func (m *SessionManager) Cookies() []*Cookie {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cookies
}

func (m *SessionManager) setState(s SessionState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// EnsureAuthenticated brings the session to Authenticated or fails. A stored
// cookie snapshot is tried first; when that is missing or rejected by the
// probe, a manual login is begun and the call blocks until CompleteLogin is
// invoked or the login timeout elapses.
func (m *SessionManager) EnsureAuthenticated(ctx context.Context) error {
	if m.State() == Authenticated {
		return nil
	}

	if m.cookiesPath != "" {
		cookies, err := LoadCookieSnapshot(m.cookiesPath)
		switch {
		case err != nil:
			m.logger.Debug("cookie snapshot unusable", zap.String("path", m.cookiesPath), zap.Error(err))
		case len(cookies) > 0:
			restored, err := m.restoreSession(ctx, cookies)
			if err != nil {
				return err
			}
			if restored {
				m.logger.Info("session restored from cookie snapshot", zap.String("path", m.cookiesPath))
				return nil
			}
			m.logger.Info("cookie snapshot expired, manual login required")
		}
	}

	return m.manualLogin(ctx)
}

func (m *SessionManager) restoreSession(ctx context.Context, cookies []*Cookie) (bool, error) {
	if err := m.browser.ImportCookies(ctx, cookies); err != nil {
		return false, fmt.Errorf("importing cookie snapshot: %w", err)
	}

	ok, err := m.browser.ProbeSession(ctx)
	if err != nil {
		return false, fmt.Errorf("probing restored session: %w", err)
	}
	if !ok {
		return false, nil
	}

	m.mu.Lock()
	m.state = Authenticated
	m.cookies = cookies
	m.mu.Unlock()
	return true, nil
}

func (m *SessionManager) manualLogin(ctx context.Context) error {
	m.setState(Authenticating)

	if err := m.browser.BeginManualLogin(ctx); err != nil {
		m.setState(Unauthenticated)
		return fmt.Errorf("opening login page: %w", err)
	}

	m.logger.Info("waiting for manual login", zap.Duration("timeout", m.loginTimeout))

	select {
	case <-ctx.Done():
		m.setState(Unauthenticated)
		return ctx.Err()
	case <-time.After(m.loginTimeout):
		m.setState(Unauthenticated)
		return ErrAuthTimeout
	case <-m.loginCh:
	}

	ok, err := m.browser.ProbeSession(ctx)
	if err != nil {
		m.setState(Unauthenticated)
		return fmt.Errorf("verifying login: %w", err)
	}
	if !ok {
		m.setState(Unauthenticated)
		return ErrAuthRefused
	}

	cookies, err := m.browser.ExportCookies(ctx)
	if err != nil {
		m.logger.Warn("could not export session cookies", zap.Error(err))
	} else if m.cookiesPath != "" {
		if err := SaveCookieSnapshot(m.cookiesPath, cookies); err != nil {
			m.logger.Warn("could not persist cookie snapshot", zap.String("path", m.cookiesPath), zap.Error(err))
		} else {
			m.logger.Info("cookie snapshot saved", zap.String("path", m.cookiesPath), zap.Int("cookies", len(cookies)))
		}
	}

	m.mu.Lock()
	m.state = Authenticated
	m.cookies = cookies
	m.mu.Unlock()
	return nil
}

// CompleteLogin signals that the user finished the interactive login. It is
// safe to call at any time; a signal with no waiter is remembered for the
// next wait.
func (m *SessionManager) CompleteLogin() {
	select {
	case m.loginCh <- struct{}{}:
	default:
	}
}

// Invalidate marks the session as expired. The next EnsureAuthenticated call
// will rebuild it.
func (m *SessionManager) Invalidate() {
	m.setState(Expired)
}

// Reauthenticate drops the current session and builds a fresh one. The caller
// is responsible for invoking this at most once per run on an auth failure
// signal.
func (m *SessionManager) Reauthenticate(ctx context.Context) error {
	m.Invalidate()
	return m.EnsureAuthenticated(ctx)
}
