package ai

import (
	"context"

	"github.com/ysun/jobmatch/internal/linkedin"
	"github.com/ysun/jobmatch/internal/resume"
)

// MatchScore is the structured verdict for one resume/job pair. All score
// fields live on a 0..100 scale.
type MatchScore struct {
	Overall          int      `json:"overall_score" mapstructure:"overall_score"`
	TechnicalSkills  int      `json:"technical_skills_score" mapstructure:"technical_skills_score"`
	Experience       int      `json:"experience_score" mapstructure:"experience_score"`
	Domain           int      `json:"domain_score" mapstructure:"domain_score"`
	Responsibilities int      `json:"responsibilities_score" mapstructure:"responsibilities_score"`
	Strengths        []string `json:"strengths,omitempty" mapstructure:"strengths"`
	Gaps             []string `json:"gaps,omitempty" mapstructure:"gaps"`
	MissingKeywords  []string `json:"missing_keywords,omitempty" mapstructure:"missing_keywords"`
	Recommendation   string   `json:"recommendations,omitempty" mapstructure:"recommendations"`
	Raw              string   `json:"-" mapstructure:"-"`
}

// Clamp forces every score into the 0..100 range. Model output occasionally
// wanders outside it.
func (s *MatchScore) Clamp() {
	for _, field := range []*int{&s.Overall, &s.TechnicalSkills, &s.Experience, &s.Domain, &s.Responsibilities} {
		if *field < 0 {
			*field = 0
		}
		if *field > 100 {
			*field = 100
		}
	}
}

type Scorer interface {
	Score(ctx context.Context, rec *resume.Record, job *linkedin.Job) (*MatchScore, error)
}
