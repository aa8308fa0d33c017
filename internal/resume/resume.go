package resume

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Record is the structured resume produced by the external PDF parsing step.
// It is consumed as-is: this module never re-parses the source document.
type Record struct {
	Text       string     `json:"text,omitempty"`
	Structured Structured `json:"structured"`
	UploadedAt string     `json:"uploaded_at,omitempty"`
}

type Structured struct {
	PersonalInfo   PersonalInfo `json:"personal_info"`
	Summary        string       `json:"summary,omitempty"`
	Experience     []Experience `json:"experience,omitempty"`
	Education      []Education  `json:"education,omitempty"`
	Skills         Skills       `json:"skills"`
	Projects       []string     `json:"projects,omitempty"`
	Certifications []string     `json:"certifications,omitempty"`
}

type PersonalInfo struct {
	Name     string   `json:"name,omitempty"`
	Email    string   `json:"email,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	Location Location `json:"location"`
	LinkedIn string   `json:"linkedin,omitempty"`
	GitHub   string   `json:"github,omitempty"`
}

type Location struct {
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

type Experience struct {
	Company          string   `json:"company,omitempty"`
	Position         string   `json:"position,omitempty"`
	Location         string   `json:"location,omitempty"`
	StartDate        string   `json:"start_date,omitempty"`
	EndDate          string   `json:"end_date,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
	Technologies     []string `json:"technologies,omitempty"`
}

type Education struct {
	Institution string `json:"institution,omitempty"`
	Degree      string `json:"degree,omitempty"`
	Location    string `json:"location,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	GPA         string `json:"gpa,omitempty"`
}

type Skills struct {
	ProgrammingLanguages []string `json:"programming_languages,omitempty"`
	Frameworks           []string `json:"frameworks,omitempty"`
	Tools                []string `json:"tools,omitempty"`
	Technical            []string `json:"technical,omitempty"`
}

// Load reads a resume record from the given JSON file.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading resume file: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parsing resume file %q: %w", path, err)
	}

	return &record, nil
}

// HasContent reports whether the record carries at least one structured
// section usable for scoring (skills or experience).
func (r *Record) HasContent() bool {
	if r == nil {
		return false
	}
	if len(r.Structured.Experience) > 0 {
		return true
	}
	s := r.Structured.Skills
	return len(s.ProgrammingLanguages)+len(s.Frameworks)+len(s.Tools)+len(s.Technical) > 0
}

// RenderText returns a plain-text view of the resume for prompting. The raw
// extracted text is preferred when present; otherwise the structured record is
// rendered section by section.
func (r *Record) RenderText() string {
	if text := strings.TrimSpace(r.Text); text != "" {
		return text
	}

	var b strings.Builder
	s := r.Structured

	if s.PersonalInfo.Name != "" {
		fmt.Fprintf(&b, "Name: %s\n", s.PersonalInfo.Name)
	}
	if s.PersonalInfo.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", s.PersonalInfo.Email)
	}
	if loc := renderLocation(s.PersonalInfo.Location); loc != "" {
		fmt.Fprintf(&b, "Location: %s\n", loc)
	}
	if s.Summary != "" {
		fmt.Fprintf(&b, "\nSUMMARY:\n%s\n", s.Summary)
	}

	if len(s.Experience) > 0 {
		b.WriteString("\nPROFESSIONAL EXPERIENCE:\n")
		for _, exp := range s.Experience {
			fmt.Fprintf(&b, "- %s at %s (%s - %s)\n", exp.Position, exp.Company, exp.StartDate, exp.EndDate)
			for _, resp := range exp.Responsibilities {
				fmt.Fprintf(&b, "  - %s\n", resp)
			}
			if len(exp.Technologies) > 0 {
				fmt.Fprintf(&b, "  Technologies: %s\n", strings.Join(exp.Technologies, ", "))
			}
		}
	}

	if len(s.Education) > 0 {
		b.WriteString("\nEDUCATION:\n")
		for _, edu := range s.Education {
			fmt.Fprintf(&b, "- %s - %s\n", edu.Degree, edu.Institution)
		}
	}

	skills := make([]string, 0)
	skills = append(skills, s.Skills.ProgrammingLanguages...)
	skills = append(skills, s.Skills.Frameworks...)
	skills = append(skills, s.Skills.Tools...)
	skills = append(skills, s.Skills.Technical...)
	if len(skills) > 0 {
		fmt.Fprintf(&b, "\nTECHNICAL SKILLS:\n%s\n", strings.Join(skills, ", "))
	}

	if len(s.Projects) > 0 {
		fmt.Fprintf(&b, "\nPROJECTS:\n- %s\n", strings.Join(s.Projects, "\n- "))
	}
	if len(s.Certifications) > 0 {
		fmt.Fprintf(&b, "\nCERTIFICATIONS:\n- %s\n", strings.Join(s.Certifications, "\n- "))
	}

	return strings.TrimSpace(b.String())
}

func renderLocation(loc Location) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{loc.City, loc.State, loc.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
