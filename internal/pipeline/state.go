package pipeline

import "time"

// Stage is the orchestrator's position in the run.
type Stage int

const (
	Idle Stage = iota
	CollectingJobs
	FetchingDescriptions
	Analyzing
	Complete
	Failed
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case CollectingJobs:
		return "collecting_jobs"
	case FetchingDescriptions:
		return "fetching_descriptions"
	case Analyzing:
		return "analyzing"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the stage ends a run.
func (s Stage) Terminal() bool {
	return s == Complete || s == Failed
}

// Active reports whether a background task is in flight.
func (s Stage) Active() bool {
	return s == CollectingJobs || s == FetchingDescriptions || s == Analyzing
}

// ItemError is a non-fatal per-item failure recorded against the run.
type ItemError struct {
	JobID  string `json:"job_id,omitempty"`
	Op     string `json:"op"`
	Reason string `json:"reason"`
}

// Snapshot is the poller's view of the run. Seq increases on every mutation,
// so a poller can tell a missed transition from no change.
type Snapshot struct {
	RunID      string      `json:"run_id,omitempty"`
	Stage      Stage       `json:"-"`
	StageName  string      `json:"stage"`
	Seq        uint64      `json:"seq"`
	Current    int         `json:"current"`
	Total      int         `json:"total"`
	ItemErrors []ItemError `json:"item_errors,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	StartedAt  time.Time   `json:"started_at,omitempty"`
	UpdatedAt  time.Time   `json:"updated_at,omitempty"`
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.ItemErrors = make([]ItemError, len(s.ItemErrors))
	copy(out.ItemErrors, s.ItemErrors)
	return out
}
