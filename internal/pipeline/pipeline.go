package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ysun/jobmatch/internal/ai"
	"github.com/ysun/jobmatch/internal/linkedin"
	"github.com/ysun/jobmatch/internal/resume"
)

// maxJobsCap bounds any run regardless of the requested max_jobs.
const maxJobsCap = 50

// Source is the collection primitive the run pulls pages and descriptions
// from. linkedin.Client implements it; tests use a scripted fake.
type Source interface {
	SearchPage(ctx context.Context, params *linkedin.SearchParams, page int) ([]*linkedin.Job, error)
	JobDescription(ctx context.Context, job *linkedin.Job) (string, error)
}

// Authenticator is the slice of the session manager the run needs.
type Authenticator interface {
	EnsureAuthenticated(ctx context.Context) error
	Reauthenticate(ctx context.Context) error
}

type Config struct {
	// MaxRetries bounds page fetch, item fetch and score attempts.
	MaxRetries int `mapstructure:"max-retries"`
	// FailureBudget is the count of consecutive page failures that stops
	// collection with partial results.
	FailureBudget int `mapstructure:"failure-budget"`
	// PageDelay is the mandatory wait between search page fetches.
	PageDelay time.Duration `mapstructure:"page-delay"`
	// ItemDelay and ItemJitter shape the wait between description fetches:
	// ItemDelay plus a random part in [0, ItemJitter).
	ItemDelay  time.Duration `mapstructure:"item-delay"`
	ItemJitter time.Duration `mapstructure:"item-jitter"`
	// ScoreInterval is the minimum spacing between scoring calls.
	ScoreInterval time.Duration `mapstructure:"score-interval"`
	// CheckpointEvery is how many enriched items trigger a partial artifact
	// save.
	CheckpointEvery int `mapstructure:"checkpoint-every"`

	RetryBackoff    time.Duration `mapstructure:"retry-backoff"`
	RetryBackoffMax time.Duration `mapstructure:"retry-backoff-max"`
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		FailureBudget:   3,
		PageDelay:       2 * time.Second,
		ItemDelay:       2 * time.Second,
		ItemJitter:      3 * time.Second,
		ScoreInterval:   2 * time.Second,
		CheckpointEvery: 5,
		RetryBackoff:    time.Second,
		RetryBackoffMax: 30 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.FailureBudget <= 0 {
		c.FailureBudget = d.FailureBudget
	}
	if c.CheckpointEvery <= 0 {
		c.CheckpointEvery = d.CheckpointEvery
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = d.RetryBackoff
	}
	if c.RetryBackoffMax <= 0 {
		c.RetryBackoffMax = d.RetryBackoffMax
	}
}

// Deps are the external collaborators of a run.
type Deps struct {
	Source Source
	Auth   Authenticator
	Scorer ai.Scorer
	Store  *Store
	Logger *zap.Logger
}

// Pipeline drives one run at a time through collect, enrich, score and rank.
// All state is owned here; callers observe it through Status and Results.
type Pipeline struct {
	cfg    Config
	source Source
	auth   Authenticator
	scorer ai.Scorer
	store  *Store
	logger *zap.Logger

	mu     sync.RWMutex
	snap   Snapshot
	report *Report
	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg Config, deps Deps) *Pipeline {
	cfg.applyDefaults()
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		cfg:    cfg,
		source: deps.Source,
		auth:   deps.Auth,
		scorer: deps.Scorer,
		store:  deps.Store,
		logger: logger,
		snap:   Snapshot{Stage: Idle, StageName: Idle.String()},
	}
}

// Start validates the inputs and launches the background run. It returns
// ErrAlreadyRunning unless the pipeline is Idle.
func (p *Pipeline) Start(spec *linkedin.SearchParams) error {
	if spec == nil || spec.Keywords == "" {
		return fmt.Errorf("search spec with keywords is required")
	}

	rec, err := p.store.LoadResume()
	if err != nil {
		return fmt.Errorf("loading resume: %w", err)
	}
	if !rec.HasContent() {
		return fmt.Errorf("%w: resume has no skills or experience", ErrInsufficientInput)
	}

	p.mu.Lock()
	if p.snap.Stage != Idle {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.report = nil
	p.snap = Snapshot{
		RunID:     uuid.NewString(),
		Stage:     CollectingJobs,
		StageName: CollectingJobs.String(),
		Seq:       p.snap.Seq + 1,
		StartedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	runID := p.snap.RunID
	done := p.done
	p.mu.Unlock()

	p.logger.Info("pipeline run started",
		zap.String("run_id", runID),
		zap.String("keywords", spec.Keywords),
	)

	go func() {
		defer close(done)
		defer cancel()
		p.run(ctx, spec, rec)
	}()

	return nil
}

// Status returns a copy of the current state. It never blocks on the run.
func (p *Pipeline) Status() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap.clone()
}

// Results returns the final report, or ErrNotReady while none exists. A
// cancelled or failed run may still carry a partial report.
func (p *Pipeline) Results() (*Report, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.report == nil {
		return nil, ErrNotReady
	}
	return p.report, nil
}

// Reset returns the pipeline to Idle and removes the run's artifacts. It is
// rejected, with no state change, while a run is active.
func (p *Pipeline) Reset() error {
	p.mu.Lock()
	if p.snap.Stage.Active() {
		p.mu.Unlock()
		return fmt.Errorf("%w: reset while %s", ErrInvalidState, p.snap.Stage)
	}
	p.report = nil
	p.snap = Snapshot{
		Stage:     Idle,
		StageName: Idle.String(),
		Seq:       p.snap.Seq + 1,
		UpdatedAt: time.Now().UTC(),
	}
	p.mu.Unlock()

	if err := p.store.Clear(); err != nil {
		return fmt.Errorf("clearing artifacts: %w", err)
	}
	return nil
}

// Cancel requests the active run to stop. The run honors it at stage and
// retry boundaries and ends in Failed with the cancellation reason. Cancel on
// an idle pipeline is a no-op.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the active run finishes. Intended for the CLI and tests;
// pollers use Status instead.
func (p *Pipeline) Wait() {
	p.mu.RLock()
	done := p.done
	p.mu.RUnlock()
	if done != nil {
		<-done
	}
}

func (p *Pipeline) run(ctx context.Context, spec *linkedin.SearchParams, rec *resume.Record) {
	runID := p.Status().RunID
	searchURL := spec.SearchURL("https://www.linkedin.com")

	if err := p.auth.EnsureAuthenticated(ctx); err != nil {
		p.fail(fmt.Sprintf("authentication failed: %v", err))
		return
	}

	guard := &authGuard{}

	jobs, err := p.collect(ctx, spec, guard)
	if len(jobs) > 0 {
		if serr := p.store.SaveCollected(&linkedin.Jobs{Items: jobs}); serr != nil {
			p.logger.Warn("could not save collected jobs", zap.Error(serr))
		}
	}
	if err != nil {
		p.fail(failReason(err))
		return
	}
	if len(jobs) == 0 {
		p.fail(failReason(ErrCollectionExhausted))
		return
	}

	p.setStage(FetchingDescriptions, len(jobs))
	err = p.enrich(ctx, jobs, guard)
	if serr := p.store.SaveEnriched(&linkedin.Jobs{Items: jobs}); serr != nil {
		p.logger.Warn("could not save enriched jobs", zap.Error(serr))
	}
	if err != nil {
		p.fail(failReason(err))
		return
	}

	enriched := (&linkedin.Jobs{Items: jobs}).WithDescriptions()
	unscored := unscoredFromFetch(jobs)
	if len(enriched) == 0 {
		p.finishReport(BuildReport(runID, searchURL, nil, unscored))
		p.fail("no job descriptions could be fetched")
		return
	}

	p.setStage(Analyzing, len(enriched))
	scored, unscoredByScore, err := p.analyze(ctx, rec, enriched)
	unscored = append(unscored, unscoredByScore...)

	report := BuildReport(runID, searchURL, scored, unscored)
	p.finishReport(report)

	if err != nil {
		p.fail(failReason(err))
		return
	}

	p.setStage(Complete, 0)
	p.logger.Info("pipeline run complete",
		zap.String("run_id", runID),
		zap.Int("ranked", len(report.Ranked)),
		zap.Int("unscored", len(report.Unscored)),
	)
}

// finishReport publishes the report and persists both renderings. Partial
// reports from failed runs go through here too.
func (p *Pipeline) finishReport(report *Report) {
	p.mu.Lock()
	p.report = report
	p.mu.Unlock()

	if err := p.store.SaveReport(report); err != nil {
		p.logger.Warn("could not save report", zap.Error(err))
	}
}

func failReason(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCancelled) {
		return "cancelled"
	}
	return err.Error()
}

func (p *Pipeline) setStage(stage Stage, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Stage = stage
	p.snap.StageName = stage.String()
	p.snap.Current = 0
	p.snap.Total = total
	p.snap.Seq++
	p.snap.UpdatedAt = time.Now().UTC()
	p.logger.Info("stage transition", zap.String("stage", stage.String()), zap.Uint64("seq", p.snap.Seq))
}

func (p *Pipeline) progress(current, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Current = current
	p.snap.Total = total
	p.snap.Seq++
	p.snap.UpdatedAt = time.Now().UTC()
}

func (p *Pipeline) recordItemError(jobID, op string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.ItemErrors = append(p.snap.ItemErrors, ItemError{
		JobID:  jobID,
		Op:     op,
		Reason: err.Error(),
	})
	p.snap.Seq++
	p.snap.UpdatedAt = time.Now().UTC()
}

func (p *Pipeline) fail(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Stage = Failed
	p.snap.StageName = Failed.String()
	p.snap.Reason = reason
	p.snap.Seq++
	p.snap.UpdatedAt = time.Now().UTC()
	p.logger.Warn("pipeline run failed", zap.String("reason", reason))
}
