package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ysun/jobmatch/internal/ai"
	"github.com/ysun/jobmatch/internal/linkedin"
)

// Priority buckets an overall score. Thresholds are fixed so reports stay
// comparable across runs.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

func PriorityFor(overall int) Priority {
	switch {
	case overall >= 80:
		return PriorityHigh
	case overall >= 60:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// ScoredJob pairs a job with its verdict, in scoring completion order.
type ScoredJob struct {
	Job   *linkedin.Job  `json:"job"`
	Score *ai.MatchScore `json:"score"`
}

// UnscoredJob is a job excluded from ranking with its terminal reason.
type UnscoredJob struct {
	Job    *linkedin.Job `json:"job"`
	Reason string        `json:"reason"`
}

// RankedJob is one entry of the final ranking.
type RankedJob struct {
	Rank     int            `json:"rank"`
	Priority Priority       `json:"priority"`
	Job      *linkedin.Job  `json:"job"`
	Score    *ai.MatchScore `json:"score"`
}

// Report is the immutable outcome of a run. Ranked holds the scored jobs
// sorted by overall score descending; Unscored keeps the rest so no collected
// job silently disappears.
type Report struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	SearchURL   string         `json:"search_url,omitempty"`
	Ranked      []*RankedJob   `json:"ranked"`
	Unscored    []*UnscoredJob `json:"unscored,omitempty"`
}

// BuildReport ranks the scored jobs. The sort is stable, so equal scores keep
// their scoring completion order.
func BuildReport(runID, searchURL string, scored []*ScoredJob, unscored []*UnscoredJob) *Report {
	ranked := make([]*RankedJob, 0, len(scored))
	for _, s := range scored {
		ranked = append(ranked, &RankedJob{
			Priority: PriorityFor(s.Score.Overall),
			Job:      s.Job,
			Score:    s.Score,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score.Overall > ranked[j].Score.Overall
	})
	for i, r := range ranked {
		r.Rank = i + 1
	}

	return &Report{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		SearchURL:   searchURL,
		Ranked:      ranked,
		Unscored:    unscored,
	}
}

func (r *Report) CountByPriority(p Priority) int {
	n := 0
	for _, job := range r.Ranked {
		if job.Priority == p {
			n++
		}
	}
	return n
}

func (r *Report) averageScore() float64 {
	if len(r.Ranked) == 0 {
		return 0
	}
	sum := 0
	for _, job := range r.Ranked {
		sum += job.Score.Overall
	}
	return float64(sum) / float64(len(r.Ranked))
}

// Summary renders the human-readable report.
func (r *Report) Summary() string {
	var b strings.Builder

	b.WriteString("JOB MATCH ANALYSIS REPORT\n")
	b.WriteString("=========================\n")
	b.WriteString(fmt.Sprintf("Generated: %s\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.SearchURL != "" {
		b.WriteString(fmt.Sprintf("Search: %s\n", r.SearchURL))
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Total jobs analyzed: %d\n", len(r.Ranked)))
	b.WriteString(fmt.Sprintf("Unscored jobs: %d\n", len(r.Unscored)))
	if len(r.Ranked) > 0 {
		b.WriteString(fmt.Sprintf("Average score: %.1f\n", r.averageScore()))
	}
	b.WriteString(fmt.Sprintf("High priority (>=80): %d\n", r.CountByPriority(PriorityHigh)))
	b.WriteString(fmt.Sprintf("Medium priority (60-79): %d\n", r.CountByPriority(PriorityMedium)))
	b.WriteString(fmt.Sprintf("Low priority (<60): %d\n", r.CountByPriority(PriorityLow)))
	b.WriteString("\n")

	if len(r.Ranked) > 0 {
		b.WriteString("TOP MATCHES\n")
		b.WriteString("-----------\n")
		top := r.Ranked
		if len(top) > 5 {
			top = top[:5]
		}
		for _, job := range top {
			b.WriteString(fmt.Sprintf("%d. [%d/100] [%s] %s at %s\n",
				job.Rank, job.Score.Overall, job.Priority, job.Job.Title, job.Job.Company))
			if job.Job.Location != "" {
				b.WriteString(fmt.Sprintf("   Location: %s\n", job.Job.Location))
			}
			b.WriteString(fmt.Sprintf("   URL: %s\n", job.Job.URL))
			for _, s := range job.Score.Strengths {
				b.WriteString(fmt.Sprintf("   + %s\n", s))
			}
			b.WriteString("\n")
		}
	}

	for _, p := range []Priority{PriorityHigh, PriorityMedium, PriorityLow} {
		jobs := r.rankedWith(p)
		if len(jobs) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("%s PRIORITY\n", p))
		b.WriteString(strings.Repeat("-", len(p)+9) + "\n")
		for _, job := range jobs {
			b.WriteString(fmt.Sprintf("%d. [%d/100] %s at %s\n",
				job.Rank, job.Score.Overall, job.Job.Title, job.Job.Company))
		}
		b.WriteString("\n")
	}

	if len(r.Unscored) > 0 {
		b.WriteString("UNSCORED\n")
		b.WriteString("--------\n")
		for _, u := range r.Unscored {
			title := u.Job.Title
			if title == "" {
				title = u.Job.ID
			}
			b.WriteString(fmt.Sprintf("- %s at %s: %s\n", title, u.Job.Company, u.Reason))
		}
	}

	return b.String()
}

func (r *Report) rankedWith(p Priority) []*RankedJob {
	var out []*RankedJob
	for _, job := range r.Ranked {
		if job.Priority == p {
			out = append(out, job)
		}
	}
	return out
}
