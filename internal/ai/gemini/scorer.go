package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/ysun/jobmatch/internal/ai"
	"github.com/ysun/jobmatch/internal/linkedin"
	"github.com/ysun/jobmatch/internal/resume"
	"github.com/ysun/jobmatch/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

//go:embed prompt.md
var promptTemplate string

const systemInstruction = "You are an expert technical recruiter. " +
	"You compare a candidate resume against a job description and return a strict JSON assessment. " +
	"Respond with JSON only, no prose around it."

const defaultMaxLogLength = 200

// Scorer turns one resume/job pair into a MatchScore via a Gemini chat.
type Scorer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewScorer(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scorer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (s *Scorer) Score(ctx context.Context, rec *resume.Record, job *linkedin.Job) (*ai.MatchScore, error) {
	if rec == nil {
		return nil, fmt.Errorf("resume is required")
	}
	if job == nil {
		return nil, fmt.Errorf("job is required")
	}
	if strings.TrimSpace(job.Description) == "" {
		return nil, fmt.Errorf("job %s has no description", job.ID)
	}

	resumeJSON, err := json.MarshalIndent(map[string]any{
		"resume": rec.RenderText(),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal resume payload: %w", err)
	}

	jobJSON, err := json.MarshalIndent(map[string]any{
		"job_id":      job.ID,
		"title":       job.Title,
		"company":     job.Company,
		"location":    job.Location,
		"description": job.Description,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}

	prompt := buildPrompt(string(resumeJSON), string(jobJSON))

	s.logger.Debug("gemini score request",
		zap.String("job_id", job.ID),
		zap.String("model", s.generator.Model()),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("gemini score response",
		zap.String("job_id", job.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	score, err := parseScore(raw)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", job.ID, err)
	}

	score.Raw = raw
	return score, nil
}

func buildPrompt(resumeJSON, jobJSON string) string {
	prompt := strings.ReplaceAll(promptTemplate, "{{RESUME_JSON}}", resumeJSON)
	prompt = strings.ReplaceAll(prompt, "{{JOB_JSON}}", jobJSON)
	return prompt
}

// parseScore decodes the model output. The decode is deliberately loose: a
// model that returns "85" instead of 85 still yields a usable score.
func parseScore(raw string) (*ai.MatchScore, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	if _, ok := data["overall_score"]; !ok {
		return nil, fmt.Errorf("gemini response missing overall_score")
	}

	var score ai.MatchScore
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &score,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}

	score.Clamp()
	return &score, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
