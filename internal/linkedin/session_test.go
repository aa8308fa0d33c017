package linkedin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeBrowser struct {
	probeResults []bool
	probeErr     error
	loginErr     error

	exported []*Cookie
	imported []*Cookie

	probes int
	logins int
}

func (b *fakeBrowser) ProbeSession(context.Context) (bool, error) {
	if b.probeErr != nil {
		return false, b.probeErr
	}
	ok := false
	if b.probes < len(b.probeResults) {
		ok = b.probeResults[b.probes]
	}
	b.probes++
	return ok, nil
}

func (b *fakeBrowser) BeginManualLogin(context.Context) error {
	b.logins++
	return b.loginErr
}

func (b *fakeBrowser) ExportCookies(context.Context) ([]*Cookie, error) {
	return b.exported, nil
}

func (b *fakeBrowser) ImportCookies(_ context.Context, cookies []*Cookie) error {
	b.imported = cookies
	return nil
}

func TestEnsureAuthenticatedRestoresFromSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	stored := []*Cookie{{Name: "li_at", Value: "v", Domain: ".linkedin.com", Path: "/"}}
	if err := SaveCookieSnapshot(path, stored); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	browser := &fakeBrowser{probeResults: []bool{true}}
	m := NewSessionManager(browser, path, time.Second, zap.NewNop())

	if err := m.EnsureAuthenticated(context.Background()); err != nil {
		t.Fatalf("EnsureAuthenticated: %v", err)
	}
	if m.State() != Authenticated {
		t.Fatalf("expected Authenticated, got %s", m.State())
	}
	if browser.logins != 0 {
		t.Fatalf("manual login should not run when the snapshot holds")
	}
	if len(browser.imported) != 1 || browser.imported[0].Name != "li_at" {
		t.Fatalf("snapshot not imported into browser: %+v", browser.imported)
	}
}

func TestEnsureAuthenticatedManualLoginAndPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")

	browser := &fakeBrowser{
		probeResults: []bool{true},
		exported:     []*Cookie{{Name: "li_at", Value: "fresh", Domain: ".linkedin.com", Path: "/"}},
	}
	m := NewSessionManager(browser, path, 2*time.Second, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- m.EnsureAuthenticated(context.Background()) }()

	deadline := time.After(time.Second)
	for m.State() != Authenticating {
		select {
		case <-deadline:
			t.Fatal("never entered Authenticating")
		case err := <-done:
			t.Fatalf("returned early: %v", err)
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	m.CompleteLogin()
	if err := <-done; err != nil {
		t.Fatalf("EnsureAuthenticated: %v", err)
	}
	if m.State() != Authenticated {
		t.Fatalf("expected Authenticated, got %s", m.State())
	}

	saved, err := LoadCookieSnapshot(path)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(saved) != 1 || saved[0].Value != "fresh" {
		t.Fatalf("snapshot not persisted: %+v", saved)
	}
}

func TestEnsureAuthenticatedTimesOut(t *testing.T) {
	browser := &fakeBrowser{}
	m := NewSessionManager(browser, "", 50*time.Millisecond, zap.NewNop())

	err := m.EnsureAuthenticated(context.Background())
	if !errors.Is(err, ErrAuthTimeout) {
		t.Fatalf("expected ErrAuthTimeout, got %v", err)
	}
	if m.State() != Unauthenticated {
		t.Fatalf("expected Unauthenticated after timeout, got %s", m.State())
	}
}

func TestEnsureAuthenticatedRefusedOnFailedProbe(t *testing.T) {
	browser := &fakeBrowser{probeResults: []bool{false}}
	m := NewSessionManager(browser, "", time.Second, zap.NewNop())

	m.CompleteLogin()
	err := m.EnsureAuthenticated(context.Background())
	if !errors.Is(err, ErrAuthRefused) {
		t.Fatalf("expected ErrAuthRefused, got %v", err)
	}
}

func TestExpiredSnapshotFallsBackToManualLogin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	stored := []*Cookie{{Name: "li_at", Value: "stale", Domain: ".linkedin.com", Path: "/"}}
	if err := SaveCookieSnapshot(path, stored); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	// First probe rejects the restored cookies, second accepts the manual login.
	browser := &fakeBrowser{probeResults: []bool{false, true}}
	m := NewSessionManager(browser, path, time.Second, zap.NewNop())

	m.CompleteLogin()
	if err := m.EnsureAuthenticated(context.Background()); err != nil {
		t.Fatalf("EnsureAuthenticated: %v", err)
	}
	if browser.logins != 1 {
		t.Fatalf("expected one manual login, got %d", browser.logins)
	}
}

func TestReauthenticateRebuildsSession(t *testing.T) {
	browser := &fakeBrowser{probeResults: []bool{true, true}}
	m := NewSessionManager(browser, "", time.Second, zap.NewNop())

	m.CompleteLogin()
	if err := m.EnsureAuthenticated(context.Background()); err != nil {
		t.Fatalf("first auth: %v", err)
	}

	m.CompleteLogin()
	if err := m.Reauthenticate(context.Background()); err != nil {
		t.Fatalf("Reauthenticate: %v", err)
	}
	if m.State() != Authenticated {
		t.Fatalf("expected Authenticated, got %s", m.State())
	}
	if browser.logins != 2 {
		t.Fatalf("expected two manual logins, got %d", browser.logins)
	}
}

func TestLoadCookieSnapshotMissingFile(t *testing.T) {
	cookies, err := LoadCookieSnapshot(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cookies != nil {
		t.Fatalf("expected nil snapshot, got %+v", cookies)
	}
}

func TestLoadCookieSnapshotDropsExpired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	cookies := []*Cookie{
		{Name: "live", Value: "a", Expires: float64(time.Now().Add(time.Hour).Unix())},
		{Name: "dead", Value: "b", Expires: float64(time.Now().Add(-time.Hour).Unix())},
		{Name: "session", Value: "c"},
	}
	if err := SaveCookieSnapshot(path, cookies); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	loaded, err := LoadCookieSnapshot(path)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 live cookies, got %d", len(loaded))
	}
	for _, c := range loaded {
		if c.Name == "dead" {
			t.Fatal("expired cookie survived the load")
		}
	}
}

func TestLoadCookieSnapshotRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadCookieSnapshot(path); err == nil {
		t.Fatal("expected a parse error")
	}
}
