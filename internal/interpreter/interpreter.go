// Package interpreter extracts a coarse UserProfile from one free-text
// utterance using fixed keyword vocabularies.
package interpreter

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"scholarship-agent/internal/domain"
)

type vocab struct {
	value    string
	keywords []string
}

// Order is priority: the first entry with a hit wins.
var categoryVocab = []vocab{
	{"SC", []string{"sc", "sc-st", "scheduled caste", "dalit"}},
	{"ST", []string{"st", "scheduled tribe", "tribal", "adivasi"}},
	{"BC", []string{"bc", "obc", "obc-ncl", "backward class"}},
	{"OC", []string{"oc", "ebc", "open category", "forward caste"}},
	{"Minority", []string{"minority", "muslim", "christian", "sikh", "parsi"}},
	{"Brahmin", []string{"brahmin"}},
	{"Disabled", []string{"disabled", "disability", "pwd", "handicapped", "differently abled"}},
}

var courseVocab = []vocab{
	{"BTech", []string{"btech", "b.tech", "b-tech", "b tech", "b.e", "engineering"}},
	{"MTech", []string{"mtech", "m.tech", "m-tech", "m tech"}},
	{"MBBS", []string{"mbbs", "medicine", "medical"}},
	{"BPharm", []string{"bpharm", "b.pharm", "b pharmacy", "pharmacy"}},
	{"MBA", []string{"mba"}},
	{"MCA", []string{"mca"}},
	{"MS", []string{"ms", "m.s", "masters"}},
	{"Degree", []string{"degree", "graduation", "bsc", "b.sc", "bcom", "b.com", "ba", "b.a"}},
	{"Intermediate", []string{"intermediate", "inter", "12th", "plus two"}},
	{"Diploma", []string{"diploma", "polytechnic"}},
	{"PhD", []string{"phd", "ph.d", "doctorate"}},
}

var abroadKeywords = []string{"abroad", "overseas", "foreign", "international"}

// incomeCues introduce an amount; periodCues follow one.
var (
	incomeCues = []string{"income", "earn", "earns", "earning", "salary", "annual", "annually"}
	periodCues = []string{"per year", "a year", "per annum", "p.a", "yearly"}
)

var (
	categoryRules = compile(categoryVocab)
	courseRules   = compile(courseVocab)
	abroadRule    = newRule("", abroadKeywords)
	incomeCueRule = wordPattern(incomeCues)
	periodRule    = newRule("", periodCues)

	// A token is a run of letters and digits. A dot, hyphen or apostrophe
	// joins only when both sides are alphanumeric, so "b.sc" and "inter-caste" stay
	// single words while a sentence-ending period does not.
	tokenRule = regexp.MustCompile(`[a-z0-9]+(?:[.\-'][a-z0-9]+)*`)
	// "St. Joseph's", "St Ann" name a saint, not the ST category. Matched
	// before lowercasing so an upper-case "ST" is left alone.
	saintRule = regexp.MustCompile(`\bSt\.?\s+[A-Z]`)

	digitGroup   = regexp.MustCompile(`(\d),(\d)`)
	amountRule   = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*(lakhs?|lacs?|l|k)?\b`)
	lakhRule     = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*(lakhs?|lacs?)\b`)
	bareLargeNum = regexp.MustCompile(`\b\d{6,}\b`)
)

type rule struct {
	value    string
	keywords [][]string
}

func newRule(value string, keywords []string) rule {
	r := rule{value: value}
	for _, k := range keywords {
		r.keywords = append(r.keywords, tokenize(k))
	}
	return r
}

func compile(vs []vocab) []rule {
	out := make([]rule, 0, len(vs))
	for _, v := range vs {
		out = append(out, newRule(v.value, v.keywords))
	}
	return out
}

// matches reports whether any keyword occurs as a run of whole tokens.
func (r rule) matches(tokens []string) bool {
	for _, kw := range r.keywords {
		if hasRun(tokens, kw) {
			return true
		}
	}
	return false
}

func hasRun(tokens, run []string) bool {
	if len(run) == 0 {
		return false
	}
	for i := 0; i+len(run) <= len(tokens); i++ {
		if slices.Equal(tokens[i:i+len(run)], run) {
			return true
		}
	}
	return false
}

func tokenize(text string) []string {
	return tokenRule.FindAllString(text, -1)
}

// wordPattern matches any keyword delimited by non-alphanumerics or the
// ends of the text.
func wordPattern(keywords []string) *regexp.Regexp {
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		quoted = append(quoted, regexp.QuoteMeta(k))
	}
	return regexp.MustCompile(`(?:^|[^a-z0-9])(?:` + strings.Join(quoted, "|") + `)(?:[^a-z0-9]|$)`)
}

// Interpret maps an utterance to a profile. Fields without a keyword hit
// stay unset; nothing carries over between calls.
func Interpret(utterance string) domain.UserProfile {
	utterance = saintRule.ReplaceAllStringFunc(strings.TrimSpace(utterance), func(m string) string {
		return "saint" + m[2:]
	})
	text := strings.ToLower(utterance)
	if text == "" {
		return domain.UserProfile{}
	}
	tokens := tokenize(text)
	return domain.UserProfile{
		Category:    firstHit(categoryRules, tokens),
		Course:      firstHit(courseRules, tokens),
		StudyAbroad: abroadRule.matches(tokens),
		Income:      parseIncome(text, tokens),
	}
}

// Categories lists the category values Interpret can produce, in priority
// order.
func Categories() []string {
	return values(categoryVocab)
}

// Courses lists the course values Interpret can produce, in priority order.
func Courses() []string {
	return values(courseVocab)
}

func values(vs []vocab) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.value)
	}
	return out
}

func firstHit(rules []rule, tokens []string) string {
	for _, r := range rules {
		if r.matches(tokens) {
			return r.value
		}
	}
	return ""
}

// parseIncome reads an annual family income. After an income cue the first
// amount wins, with or without a unit. A lakh amount elsewhere counts only
// when the text carries an income or period cue ("I need 2 lakh for fees"
// is a cost, not an income). Bare figures of six or more digits always
// count.
func parseIncome(text string, tokens []string) int64 {
	text = digitGroup.ReplaceAllString(text, "$1$2")
	text = digitGroup.ReplaceAllString(text, "$1$2")

	cue := incomeCueRule.FindStringIndex(text)
	if cue != nil {
		for _, m := range amountRule.FindAllStringSubmatch(text[cue[0]:], -1) {
			if v := amount(m[1], m[2]); v >= 1000 {
				return v
			}
		}
	}
	if cue != nil || periodRule.matches(tokens) {
		if m := lakhRule.FindStringSubmatch(text); m != nil {
			return amount(m[1], m[2])
		}
	}
	if m := bareLargeNum.FindString(text); m != "" {
		v, err := strconv.ParseInt(m, 10, 64)
		if err == nil {
			return v
		}
	}
	return 0
}

func amount(number, unit string) int64 {
	f, err := strconv.ParseFloat(number, 64)
	if err != nil || f < 0 {
		return 0
	}
	switch {
	case strings.HasPrefix(unit, "la"), unit == "l":
		f *= 100000
	case unit == "k":
		f *= 1000
	}
	if f > math.MaxInt64/2 {
		return 0
	}
	return int64(math.Round(f))
}
