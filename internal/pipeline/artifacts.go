package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ysun/jobmatch/internal/linkedin"
	"github.com/ysun/jobmatch/internal/resume"
)

const (
	resumeFile     = "resume_data.json"
	collectedFile  = "collected_jobs.json"
	enrichedFile   = "jobs_with_descriptions.json"
	analysisFile   = "analysis_results.json"
	reportTextFile = "job_match_report.txt"
)

// Store reads and writes the run's artifacts under one work directory. Every
// write goes through temp-then-rename.
type Store struct {
	dir    string
	logger *zap.Logger
}

func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Store) LoadResume() (*resume.Record, error) {
	return resume.Load(s.path(resumeFile))
}

func (s *Store) SaveCollected(jobs *linkedin.Jobs) error {
	return s.saveJobs(collectedFile, jobs)
}

func (s *Store) SaveEnriched(jobs *linkedin.Jobs) error {
	return s.saveJobs(enrichedFile, jobs)
}

func (s *Store) saveJobs(name string, jobs *linkedin.Jobs) error {
	if err := jobs.ToFile(s.path(name)); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	s.logger.Debug("artifact written", zap.String("file", name), zap.Int("jobs", jobs.Len()))
	return nil
}

// SaveReport writes both renderings: the structured record and the
// human-readable summary derived from it.
func (s *Store) SaveReport(report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", analysisFile, err)
	}
	if err := linkedin.WriteFileAtomic(s.path(analysisFile), data); err != nil {
		return fmt.Errorf("writing %s: %w", analysisFile, err)
	}

	if err := linkedin.WriteFileAtomic(s.path(reportTextFile), []byte(report.Summary())); err != nil {
		return fmt.Errorf("writing %s: %w", reportTextFile, err)
	}

	s.logger.Debug("report written",
		zap.Int("ranked", len(report.Ranked)),
		zap.Int("unscored", len(report.Unscored)),
	)
	return nil
}

func (s *Store) LoadReport() (*Report, error) {
	data, err := os.ReadFile(s.path(analysisFile))
	if err != nil {
		return nil, err
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", analysisFile, err)
	}
	return &report, nil
}

// Clear removes the run's generated artifacts. The résumé and the cookie
// snapshot are inputs, not run output, and stay.
func (s *Store) Clear() error {
	for _, name := range []string{collectedFile, enrichedFile, analysisFile, reportTextFile} {
		if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", name, err)
		}
	}
	return nil
}
