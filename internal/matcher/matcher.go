// Package matcher filters scholarship records against a structured profile
// or a free-text keyword. Results keep catalog declaration order.
package matcher

import (
	"strings"
	"unicode"

	"scholarship-agent/internal/domain"
)

var abroadTags = []string{"abroad", "overseas"}

// ByProfile returns the records compatible with every field set on p.
// Unset fields impose no constraint. A record listed only under "All" does
// not satisfy a specific category.
func ByProfile(records []domain.ScholarshipRecord, p domain.UserProfile) []domain.ScholarshipRecord {
	out := make([]domain.ScholarshipRecord, 0, len(records))
	for _, r := range records {
		if p.Category != "" && !r.HasCategory(p.Category) {
			continue
		}
		if p.Course != "" && !r.AcceptsCourse(p.Course) {
			continue
		}
		if p.StudyAbroad && !hasAnyTag(r, abroadTags) {
			continue
		}
		if p.Income > 0 && r.IncomeLimit > 0 && r.IncomeLimit < p.Income {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ByKeyword returns the records whose name, categories or tags contain
// keyword, ignoring case. The keywords "general" and "all" also select every
// record open to all categories.
func ByKeyword(records []domain.ScholarshipRecord, keyword string) []domain.ScholarshipRecord {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return []domain.ScholarshipRecord{}
	}
	openToAll := kw == "general" || kw == "all"

	out := make([]domain.ScholarshipRecord, 0, len(records))
	for _, r := range records {
		if (openToAll && r.HasCategory(domain.CategoryAll)) || keywordHit(r, kw) {
			out = append(out, r)
		}
	}
	return out
}

// ByTerms is the keyword search used on raw utterances: the whole utterance
// first, then the union of ByKeyword over its significant terms.
func ByTerms(records []domain.ScholarshipRecord, utterance string) []domain.ScholarshipRecord {
	if whole := ByKeyword(records, utterance); len(whole) > 0 {
		return whole
	}
	terms := Terms(utterance)
	if len(terms) == 0 {
		return []domain.ScholarshipRecord{}
	}

	hit := make(map[string]bool, len(records))
	for _, term := range terms {
		for _, r := range ByKeyword(records, term) {
			hit[r.ID] = true
		}
	}
	out := make([]domain.ScholarshipRecord, 0, len(hit))
	for _, r := range records {
		if hit[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// BySearch applies the structured part of req, then its keyword when set.
func BySearch(records []domain.ScholarshipRecord, req domain.SearchRequest) []domain.ScholarshipRecord {
	out := ByProfile(records, req.Profile())
	if strings.TrimSpace(req.Keyword) == "" {
		return out
	}
	return ByTerms(out, req.Keyword)
}

// Terms splits an utterance into lower-case search terms, dropping stop
// words and anything shorter than three characters.
func Terms(utterance string) []string {
	fields := strings.FieldsFunc(strings.ToLower(utterance), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '-'
	})
	seen := make(map[string]bool, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".-")
		if len(f) < 3 || stopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

func keywordHit(r domain.ScholarshipRecord, kw string) bool {
	if strings.Contains(strings.ToLower(r.Name), kw) {
		return true
	}
	for _, c := range r.Categories {
		if strings.Contains(strings.ToLower(c), kw) {
			return true
		}
	}
	for _, t := range r.Tags {
		if strings.Contains(strings.ToLower(t), kw) {
			return true
		}
	}
	return false
}

func hasAnyTag(r domain.ScholarshipRecord, tags []string) bool {
	for _, t := range tags {
		if r.HasTag(t) {
			return true
		}
	}
	return false
}

var stopWords = map[string]bool{
	"about": true, "and": true, "any": true, "are": true, "can": true,
	"could": true, "does": true, "for": true, "from": true, "get": true,
	"give": true, "have": true, "help": true, "how": true,
	"need": true, "please": true, "scheme": true, "schemes": true,
	"scholarship": true, "scholarships": true, "show": true, "some": true,
	"student": true, "students": true, "studying": true, "tell": true,
	"that": true, "the": true, "there": true, "this": true, "want": true,
	"what": true, "which": true, "with": true, "would": true, "you": true,
	"your": true, "mine": true, "who": true, "apply": true, "eligible": true,
	"list": true, "find": true, "looking": true,
}
