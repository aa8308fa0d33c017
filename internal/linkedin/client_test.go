package linkedin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

const searchPageHTML = `
<ul>
  <li>
    <div class="base-card" data-entity-urn="urn:li:jobPosting:4011223344">
      <a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/senior-go-engineer-4011223344?refId=abc">link</a>
      <h3 class="base-search-card__title"> Senior Go Engineer </h3>
      <h4 class="base-search-card__subtitle"> Initech </h4>
      <span class="job-search-card__location"> Berlin, Germany </span>
    </div>
  </li>
  <li>
    <div class="base-card" data-entity-urn="urn:li:jobPosting:4055667788">
      <h3 class="base-search-card__title">Platform Engineer</h3>
      <h4 class="base-search-card__subtitle">Globex</h4>
      <span class="job-search-card__location">Remote</span>
    </div>
  </li>
  <li>
    <div class="base-card">
      <h3 class="base-search-card__title">No URN card</h3>
    </div>
  </li>
</ul>`

const jobPageHTML = `
<html><body>
  <div class="description__text">
    <section class="show-more-less-html">
      <div class="show-more-less-html__markup">
        We are looking for a Go engineer.
        Kubernetes experience is a plus.
      </div>
    </section>
  </div>
</body></html>`

func newTestClient(serverURL string) *Client {
	c := NewClient(zap.NewNop(), nil)
	c.BaseURL = serverURL
	return c
}

func TestSearchPageParsesCards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("keywords"); got != "golang" {
			t.Errorf("unexpected keywords param: %q", got)
		}
		w.Write([]byte(searchPageHTML))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	jobs, err := c.SearchPage(context.Background(), &SearchParams{Keywords: "golang"}, 0)
	if err != nil {
		t.Fatalf("SearchPage: %v", err)
	}

	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}

	first := jobs[0]
	if first.ID != "4011223344" {
		t.Fatalf("unexpected id: %q", first.ID)
	}
	if first.Title != "Senior Go Engineer" {
		t.Fatalf("unexpected title: %q", first.Title)
	}
	if first.Company != "Initech" {
		t.Fatalf("unexpected company: %q", first.Company)
	}
	if first.Location != "Berlin, Germany" {
		t.Fatalf("unexpected location: %q", first.Location)
	}
	if first.URL != "https://www.linkedin.com/jobs/view/senior-go-engineer-4011223344" {
		t.Fatalf("tracking params not stripped: %q", first.URL)
	}

	second := jobs[1]
	if second.URL != ViewURL("4055667788") {
		t.Fatalf("expected canonical view url, got %q", second.URL)
	}
}

func TestSearchPageEmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<ul></ul>"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	jobs, err := c.SearchPage(context.Background(), &SearchParams{Keywords: "golang"}, 7)
	if err != nil {
		t.Fatalf("SearchPage: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no jobs, got %d", len(jobs))
	}
}

func TestJobDescriptionExtractsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(jobPageHTML))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	job := &Job{ID: "4011223344", URL: srv.URL + "/jobs/view/4011223344"}

	desc, err := c.JobDescription(context.Background(), job)
	if err != nil {
		t.Fatalf("JobDescription: %v", err)
	}
	want := "We are looking for a Go engineer. Kubernetes experience is a plus."
	if desc != want {
		t.Fatalf("unexpected description: %q", desc)
	}
}

func TestJobDescriptionMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html><body><p>nothing here</p></body></html>"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.JobDescription(context.Background(), &Job{ID: "1", URL: srv.URL + "/jobs/view/1"})
	if err == nil {
		t.Fatal("expected an error for a page without a description")
	}
}

func TestGetDetectsAuthwallRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/authwall?trk=guest", http.StatusFound)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.SearchPage(context.Background(), &SearchParams{Keywords: "golang"}, 0)
	if !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
}

func TestGetDetectsForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.SearchPage(context.Background(), &SearchParams{Keywords: "golang"}, 0)
	if !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
}

func TestSessionCookiesAttached(t *testing.T) {
	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("li_at"); err == nil {
			gotCookie = c.Value
		}
		w.Write([]byte("<ul></ul>"))
	}))
	defer srv.Close()

	session := NewSessionManager(nil, "", 0, zap.NewNop())
	session.cookies = []*Cookie{{Name: "li_at", Value: "token-123", Domain: ".linkedin.com", Path: "/"}}

	c := NewClient(zap.NewNop(), session)
	c.BaseURL = srv.URL
	if _, err := c.SearchPage(context.Background(), &SearchParams{Keywords: "golang"}, 0); err != nil {
		t.Fatalf("SearchPage: %v", err)
	}
	if gotCookie != "token-123" {
		t.Fatalf("session cookie not sent, got %q", gotCookie)
	}
}
