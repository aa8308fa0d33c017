package ai

import "testing"

func TestClampForcesScoresIntoRange(t *testing.T) {
	score := &MatchScore{
		Overall:          130,
		TechnicalSkills:  -5,
		Experience:       100,
		Domain:           0,
		Responsibilities: 72,
	}

	score.Clamp()

	if score.Overall != 100 {
		t.Fatalf("overall: want 100, got %d", score.Overall)
	}
	if score.TechnicalSkills != 0 {
		t.Fatalf("technical: want 0, got %d", score.TechnicalSkills)
	}
	if score.Experience != 100 || score.Domain != 0 || score.Responsibilities != 72 {
		t.Fatalf("in-range scores changed: %+v", score)
	}
}
