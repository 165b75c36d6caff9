package domain

import "strings"

// CategoryAll marks a record open to every social category.
const CategoryAll = "All"

// ScholarshipRecord is a single scheme in the catalog.
type ScholarshipRecord struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	Categories      []string `json:"category" yaml:"category"`
	Courses         []string `json:"courses,omitempty" yaml:"courses,omitempty"`
	IncomeLimit     int64    `json:"incomeLimit" yaml:"incomeLimit"`
	Benefit         string   `json:"benefit" yaml:"benefit"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tags            []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Documents       []string `json:"documents,omitempty" yaml:"documents,omitempty"`
	Deadline        string   `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	ApplicationLink string   `json:"applicationLink" yaml:"applicationLink"`
}

// HasCategory reports whether the record lists category, ignoring case.
func (r ScholarshipRecord) HasCategory(category string) bool {
	return containsFold(r.Categories, category)
}

// AcceptsCourse reports whether the record is open to course. Records
// without a course list are unconstrained.
func (r ScholarshipRecord) AcceptsCourse(course string) bool {
	if len(r.Courses) == 0 {
		return true
	}
	return containsFold(r.Courses, course)
}

// HasTag reports whether any tag equals tag, ignoring case.
func (r ScholarshipRecord) HasTag(tag string) bool {
	return containsFold(r.Tags, tag)
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), want) {
			return true
		}
	}
	return false
}
