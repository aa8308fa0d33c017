package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ysun/jobmatch/internal/ai"
	"github.com/ysun/jobmatch/internal/linkedin"
	"github.com/ysun/jobmatch/internal/resume"
	"github.com/ysun/jobmatch/internal/utils"
)

// analyze scores each enriched job against the résumé, one call at a time
// with ScoreInterval spacing. A scoring failure sends the job to the
// unscored list and the run carries on. The scored list comes back in
// completion order, which is the ranking tie-break order.
func (p *Pipeline) analyze(ctx context.Context, rec *resume.Record, jobs []*linkedin.Job) ([]*ScoredJob, []*UnscoredJob, error) {
	var scored []*ScoredJob
	var unscored []*UnscoredJob

	total := len(jobs)
	for i, job := range jobs {
		if ctx.Err() != nil {
			return scored, unscored, ctx.Err()
		}
		if i > 0 {
			if err := utils.WaitFor(ctx, p.cfg.ScoreInterval); err != nil {
				return scored, unscored, err
			}
		}

		if strings.TrimSpace(job.Description) == "" {
			unscored = append(unscored, &UnscoredJob{Job: job, Reason: "insufficient input: empty description"})
			p.recordItemError(job.ID, "score", ErrInsufficientInput)
			p.progress(i+1, total)
			continue
		}

		score, err := p.scoreJob(ctx, rec, job)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return scored, unscored, err
			}
			unscored = append(unscored, &UnscoredJob{Job: job, Reason: fmt.Sprintf("scoring failed: %v", err)})
			p.recordItemError(job.ID, "score", err)
			p.logger.Warn("scoring failed", zap.String("job_id", job.ID), zap.Error(err))
		} else {
			scored = append(scored, &ScoredJob{Job: job, Score: score})
			p.logger.Debug("job scored",
				zap.String("job_id", job.ID),
				zap.Int("overall", score.Overall),
			)
		}

		p.progress(i+1, total)
	}

	return scored, unscored, nil
}

func (p *Pipeline) scoreJob(ctx context.Context, rec *resume.Record, job *linkedin.Job) (*ai.MatchScore, error) {
	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := utils.WaitFor(ctx, utils.Backoff(p.cfg.RetryBackoff, p.cfg.RetryBackoffMax, attempt-1)); err != nil {
				return nil, err
			}
		}

		score, err := p.scorer.Score(ctx, rec, job)
		if err == nil {
			// Overall is externally supplied; clamp, never recompute.
			score.Clamp()
			return score, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", p.cfg.MaxRetries, lastErr)
}
