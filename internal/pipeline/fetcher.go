package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ysun/jobmatch/internal/linkedin"
	"github.com/ysun/jobmatch/internal/utils"
)

// enrich resolves descriptions item by item. One item's failure never aborts
// the rest; a failed item is marked and later reported as unscored. Partial
// output is checkpointed every CheckpointEvery items.
func (p *Pipeline) enrich(ctx context.Context, jobs []*linkedin.Job, guard *authGuard) error {
	total := len(jobs)
	for i, job := range jobs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i > 0 {
			if err := utils.WaitFor(ctx, utils.Jitter(p.cfg.ItemDelay, p.cfg.ItemJitter)); err != nil {
				return err
			}
		}

		desc, err := p.fetchDescription(ctx, job, guard)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			job.FetchError = err.Error()
			p.recordItemError(job.ID, "fetch", err)
			p.logger.Warn("description fetch failed", zap.String("job_id", job.ID), zap.Error(err))
		} else {
			job.Description = desc
		}

		p.progress(i+1, total)

		if (i+1)%p.cfg.CheckpointEvery == 0 && i+1 < total {
			if serr := p.store.SaveEnriched(&linkedin.Jobs{Items: jobs}); serr != nil {
				p.logger.Warn("checkpoint save failed", zap.Error(serr))
			}
		}
	}

	return nil
}

// fetchDescription retries one item with backoff. A session expiry spends the
// run's single re-authentication through the shared guard; once spent, auth
// failures count against the item like any other error.
func (p *Pipeline) fetchDescription(ctx context.Context, job *linkedin.Job, guard *authGuard) (string, error) {
	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := utils.WaitFor(ctx, utils.Backoff(p.cfg.RetryBackoff, p.cfg.RetryBackoffMax, attempt-1)); err != nil {
				return "", err
			}
		}

		desc, err := p.source.JobDescription(ctx, job)
		if err == nil {
			return desc, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) {
			return "", err
		}
		if errors.Is(err, linkedin.ErrAuthRequired) {
			ok, aerr := guard.reauthenticate(ctx, p.auth)
			if aerr != nil {
				return "", aerr
			}
			if !ok {
				return "", err
			}
			p.logger.Info("session expired mid-enrichment, re-authenticated",
				zap.String("job_id", job.ID))
		}
	}

	return "", fmt.Errorf("after %d attempts: %w", p.cfg.MaxRetries, lastErr)
}

func unscoredFromFetch(jobs []*linkedin.Job) []*UnscoredJob {
	var out []*UnscoredJob
	for _, job := range jobs {
		if job.Description != "" {
			continue
		}
		reason := "no description"
		if job.FetchError != "" {
			reason = fmt.Sprintf("description fetch failed: %s", job.FetchError)
		}
		out = append(out, &UnscoredJob{Job: job, Reason: reason})
	}
	return out
}
