package linkedin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Job is a single collected posting. It is created by the collector with the
// identity fields and enriched in place with the description later. A job is
// never dropped once collected: a posting whose description could not be
// fetched stays in the list with FetchError set.
type Job struct {
	ID          string    `json:"job_id"`
	Title       string    `json:"title,omitempty"`
	Company     string    `json:"company,omitempty"`
	Location    string    `json:"location,omitempty"`
	URL         string    `json:"url"`
	Snippet     string    `json:"snippet,omitempty"`
	Description string    `json:"description,omitempty"`
	FetchError  string    `json:"fetch_error,omitempty"`
	CollectedAt time.Time `json:"collected_at"`
}

type Jobs struct {
	Items []*Job `json:"items"`
}

// ViewURL returns the canonical posting URL for a job id.
func ViewURL(id string) string {
	return fmt.Sprintf("https://www.linkedin.com/jobs/view/%s", id)
}

func (j *Jobs) Len() int {
	return len(j.Items)
}

func (j *Jobs) FindByID(id string) *Job {
	for _, job := range j.Items {
		if job.ID == id {
			return job
		}
	}
	return nil
}

// IDs returns the job ids in collection order.
func (j *Jobs) IDs() []string {
	ids := make([]string, 0, len(j.Items))
	for _, job := range j.Items {
		ids = append(ids, job.ID)
	}
	return ids
}

// WithDescriptions returns the jobs that carry a non-empty description, in
// collection order.
func (j *Jobs) WithDescriptions() []*Job {
	enriched := make([]*Job, 0, len(j.Items))
	for _, job := range j.Items {
		if job.Description != "" {
			enriched = append(enriched, job)
		}
	}
	return enriched
}

// ToFile writes the list as indented JSON using a write-temp-then-rename so a
// crashed run never leaves a truncated artifact behind.
func (j *Jobs) ToFile(path string) error {
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// JobsFromFile reads a list previously written by ToFile. A missing file is an
// error; an empty file yields an empty list.
func JobsFromFile(path string) (*Jobs, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &Jobs{}, nil
	}

	var jobs Jobs
	if err := json.NewDecoder(file).Decode(&jobs); err != nil {
		return nil, err
	}
	return &jobs, nil
}

// WriteFileAtomic writes data to path via a temporary file in the same
// directory followed by a rename.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), path)
}
