// Package catalog holds the read-only, versioned set of scholarship records
// and the sources it can be loaded from.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"scholarship-agent/internal/domain"
	"scholarship-agent/internal/matcher"
)

var (
	ErrEmptyVersion     = errors.New("catalog: version must not be empty")
	ErrDuplicateID      = errors.New("catalog: duplicate record id")
	ErrMissingID        = errors.New("catalog: record id is required")
	ErrMissingCategory  = errors.New("catalog: record category is required")
	ErrNegativeIncome   = errors.New("catalog: record income limit must not be negative")
	ErrNoRecords        = errors.New("catalog: no records")
	ErrUnknownSource    = errors.New("catalog: unknown source")
	ErrMissingSourceArg = errors.New("catalog: source argument is required")
)

// Catalog is an immutable, versioned list of scholarship records. It is safe
// for concurrent use without locking because nothing mutates it after New.
type Catalog struct {
	version string
	records []domain.ScholarshipRecord
}

// New validates records and returns a Catalog that owns a private copy of
// them.
func New(version string, records []domain.ScholarshipRecord) (*Catalog, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return nil, ErrEmptyVersion
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	seen := make(map[string]bool, len(records))
	for i, r := range records {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return nil, fmt.Errorf("%w (record %d)", ErrMissingID, i)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, id)
		}
		seen[id] = true
		if len(r.Categories) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrMissingCategory, id)
		}
		if r.IncomeLimit < 0 {
			return nil, fmt.Errorf("%w: %q", ErrNegativeIncome, id)
		}
	}
	return &Catalog{version: version, records: cloneRecords(records)}, nil
}

// Version identifies the catalog data asset currently loaded.
func (c *Catalog) Version() string {
	return c.version
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	return len(c.records)
}

// ListAll returns every record in declaration order.
func (c *Catalog) ListAll() []domain.ScholarshipRecord {
	return cloneRecords(c.records)
}

// SearchProfile returns the records compatible with the profile.
func (c *Catalog) SearchProfile(p domain.UserProfile) []domain.ScholarshipRecord {
	return cloneRecords(matcher.ByProfile(c.records, p))
}

// SearchKeyword returns the records matching a single keyword.
func (c *Catalog) SearchKeyword(keyword string) []domain.ScholarshipRecord {
	return cloneRecords(matcher.ByKeyword(c.records, keyword))
}

// SearchUtterance runs the keyword matcher over the terms of a raw utterance.
func (c *Catalog) SearchUtterance(utterance string) []domain.ScholarshipRecord {
	return cloneRecords(matcher.ByTerms(c.records, utterance))
}

// Search serves the typed search_scholarships tool request.
func (c *Catalog) Search(req domain.SearchRequest) []domain.ScholarshipRecord {
	return cloneRecords(matcher.BySearch(c.records, req))
}

func cloneRecords(in []domain.ScholarshipRecord) []domain.ScholarshipRecord {
	out := make([]domain.ScholarshipRecord, len(in))
	for i, r := range in {
		r.Categories = slices.Clone(r.Categories)
		r.Courses = slices.Clone(r.Courses)
		r.Tags = slices.Clone(r.Tags)
		r.Documents = slices.Clone(r.Documents)
		out[i] = r
	}
	return out
}
