package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ysun/jobmatch/internal/linkedin"
	"github.com/ysun/jobmatch/internal/utils"
)

// authGuard allows one re-authentication per run, shared by the collection
// and fetch stages. The second auth failure of a run is terminal for the
// caller that hits it.
type authGuard struct {
	mu   sync.Mutex
	used bool
}

// reauthenticate performs the run's single re-authentication. It returns
// false when the attempt was already spent.
func (g *authGuard) reauthenticate(ctx context.Context, auth Authenticator) (bool, error) {
	g.mu.Lock()
	if g.used {
		g.mu.Unlock()
		return false, nil
	}
	g.used = true
	g.mu.Unlock()

	if err := auth.Reauthenticate(ctx); err != nil {
		return false, fmt.Errorf("re-authentication failed: %w", err)
	}
	return true, nil
}

// collect pages through the search results until max_jobs unique ids are
// gathered, a page yields nothing new, or the consecutive failure budget is
// spent. The last case is a recoverable stop: whatever was collected is the
// run's ceiling.
func (p *Pipeline) collect(ctx context.Context, spec *linkedin.SearchParams, guard *authGuard) ([]*linkedin.Job, error) {
	maxJobs := spec.MaxJobs
	if maxJobs <= 0 || maxJobs > maxJobsCap {
		maxJobs = maxJobsCap
	}

	seen := make(map[string]struct{})
	var jobs []*linkedin.Job
	failures := 0

	for page := 0; len(jobs) < maxJobs; page++ {
		if page > 0 {
			if err := utils.WaitFor(ctx, p.cfg.PageDelay); err != nil {
				return jobs, err
			}
		}

		batch, err := p.fetchPage(ctx, spec, page, guard)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return jobs, err
			}
			failures++
			p.recordItemError("", "collect", fmt.Errorf("page %d: %w", page, err))
			p.logger.Warn("search page failed",
				zap.Int("page", page),
				zap.Int("consecutive_failures", failures),
				zap.Error(err),
			)
			if failures >= p.cfg.FailureBudget {
				p.logger.Warn("collection stopped, failure budget exhausted",
					zap.Int("collected", len(jobs)))
				return jobs, nil
			}
			continue
		}
		failures = 0

		newOnPage := 0
		for _, job := range batch {
			if _, dup := seen[job.ID]; dup {
				continue
			}
			seen[job.ID] = struct{}{}
			jobs = append(jobs, job)
			newOnPage++
			p.progress(len(jobs), maxJobs)
			if len(jobs) >= maxJobs {
				break
			}
		}

		p.logger.Debug("search page collected",
			zap.Int("page", page),
			zap.Int("new", newOnPage),
			zap.Int("total", len(jobs)),
		)

		if newOnPage == 0 {
			break
		}
	}

	return jobs, nil
}

// fetchPage retries one page with backoff. A session expiry spends the run's
// single re-authentication through the shared guard.
func (p *Pipeline) fetchPage(ctx context.Context, spec *linkedin.SearchParams, page int, guard *authGuard) ([]*linkedin.Job, error) {
	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := utils.WaitFor(ctx, utils.Backoff(p.cfg.RetryBackoff, p.cfg.RetryBackoffMax, attempt-1)); err != nil {
				return nil, err
			}
		}

		batch, err := p.source.SearchPage(ctx, spec, page)
		if err == nil {
			return batch, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		if errors.Is(err, linkedin.ErrAuthRequired) {
			ok, aerr := guard.reauthenticate(ctx, p.auth)
			if aerr != nil {
				return nil, aerr
			}
			if !ok {
				return nil, err
			}
			p.logger.Info("session expired mid-collection, re-authenticated")
		}
	}

	return nil, lastErr
}
