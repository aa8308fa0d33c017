package linkedin

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	baseURL         = "https://www.linkedin.com"
	userAgent       = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"
	contentEncoding = "gzip, deflate, br"
)

// descriptionSelectors are tried in order until one yields text. The markup
// differs between the logged-in view and the guest view of a posting.
var descriptionSelectors = []string{
	"div.description__text",
	"div.show-more-less-html__markup",
	"section.show-more-less-html",
	"div.jobs-description__content",
	"div.jobs-box__html-content",
}

type Client struct {
	logger     *zap.Logger
	session    *SessionManager
	HTTPClient *http.Client
	UserAgent  string
	BaseURL    string
}

func NewClient(logger *zap.Logger, session *SessionManager) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		logger:  logger,
		session: session,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if isAuthURL(req.URL.Path) {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		UserAgent: userAgent,
		BaseURL:   baseURL,
	}
}

func isAuthURL(path string) bool {
	return strings.Contains(path, "authwall") || strings.Contains(path, "/login") ||
		strings.Contains(path, "/checkpoint/")
}

// SearchPage fetches one page of guest search results and returns the job
// cards found on it. An empty page is not an error; the caller uses it as
// the end-of-results signal.
func (c *Client) SearchPage(ctx context.Context, params *SearchParams, page int) ([]*Job, error) {
	body, err := c.get(ctx, params.PageURL(c.BaseURL, page))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parsing search page: %w", err)
	}

	jobs := parseSearchCards(doc)
	c.logger.Debug("parsed search page", zap.Int("page", page), zap.Int("jobs", len(jobs)))
	return jobs, nil
}

func parseSearchCards(doc *goquery.Document) []*Job {
	var jobs []*Job

	doc.Find("div.base-card, li div.base-search-card").Each(func(_ int, card *goquery.Selection) {
		urn, ok := card.Attr("data-entity-urn")
		if !ok {
			return
		}
		id := urn[strings.LastIndex(urn, ":")+1:]
		if id == "" {
			return
		}

		job := &Job{
			ID:          id,
			Title:       cleanText(card.Find("h3.base-search-card__title").Text()),
			Company:     cleanText(card.Find("h4.base-search-card__subtitle").Text()),
			Location:    cleanText(card.Find("span.job-search-card__location").Text()),
			URL:         ViewURL(id),
			CollectedAt: time.Now().UTC(),
		}
		if href, ok := card.Find("a.base-card__full-link").Attr("href"); ok {
			job.URL = strings.SplitN(href, "?", 2)[0]
		}
		job.Snippet = cleanText(card.Find("p.job-search-card__snippet").Text())

		jobs = append(jobs, job)
	})

	return jobs
}

// JobDescription fetches a posting page and extracts the description text.
func (c *Client) JobDescription(ctx context.Context, job *Job) (string, error) {
	body, err := c.get(ctx, job.URL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("parsing job page: %w", err)
	}

	for _, sel := range descriptionSelectors {
		text := cleanText(doc.Find(sel).First().Text())
		if text != "" {
			return text, nil
		}
	}

	return "", fmt.Errorf("no description found for job %s", job.ID)
}

func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	c.setHeaders(req)

	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, ErrAuthRequired
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		loc := resp.Header.Get("Location")
		resp.Body.Close()
		if isAuthURL(loc) {
			return nil, ErrAuthRequired
		}
		return nil, fmt.Errorf("unexpected redirect to %s", loc)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		return &gzipBody{gz: gz, raw: resp.Body}, nil
	}

	return resp.Body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	if c.session != nil {
		for _, cookie := range HTTPCookies(c.session.Cookies()) {
			req.AddCookie(cookie)
		}
	}
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type gzipBody struct {
	gz  *gzip.Reader
	raw io.ReadCloser
}

func (b *gzipBody) Read(p []byte) (int, error) { return b.gz.Read(p) }

func (b *gzipBody) Close() error {
	if err := b.gz.Close(); err != nil {
		b.raw.Close()
		return err
	}
	return b.raw.Close()
}
