package matcher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"scholarship-agent/internal/domain"
)

func fixture() []domain.ScholarshipRecord {
	return []domain.ScholarshipRecord{
		{ID: "sc-fee", Name: "SC Fee Reimbursement", Categories: []string{"SC"}, Courses: []string{"BTech", "Degree"}, IncomeLimit: 250000, Tags: []string{"fee"}},
		{ID: "sc-ov", Name: "SC Overseas Fund", Categories: []string{"SC", "ST"}, Courses: []string{"MS"}, IncomeLimit: 500000, Tags: []string{"overseas", "abroad"}},
		{ID: "bc-fee", Name: "BC Fee Reimbursement", Categories: []string{"BC"}, IncomeLimit: 150000, Tags: []string{"fee"}},
		{ID: "merit", Name: "Central Merit Award", Categories: []string{"All"}, IncomeLimit: 0, Tags: []string{"merit"}},
		{ID: "girls", Name: "Girls Laptop Grant", Categories: []string{"All"}, Courses: []string{"BTech"}, IncomeLimit: 800000, Tags: []string{"laptop"}},
	}
}

func ids(records []domain.ScholarshipRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestByProfile(t *testing.T) {
	records := fixture()
	tests := []struct {
		name    string
		profile domain.UserProfile
		want    []string
	}{
		{name: "empty profile keeps everything", profile: domain.UserProfile{}, want: []string{"sc-fee", "sc-ov", "bc-fee", "merit", "girls"}},
		{name: "category excludes All records", profile: domain.UserProfile{Category: "SC"}, want: []string{"sc-fee", "sc-ov"}},
		{name: "category is case insensitive", profile: domain.UserProfile{Category: "st"}, want: []string{"sc-ov"}},
		{name: "category and course", profile: domain.UserProfile{Category: "SC", Course: "BTech"}, want: []string{"sc-fee"}},
		{name: "course only keeps unconstrained records", profile: domain.UserProfile{Course: "MBA"}, want: []string{"bc-fee", "merit"}},
		{name: "abroad requires an abroad tag", profile: domain.UserProfile{StudyAbroad: true}, want: []string{"sc-ov"}},
		{name: "income above limit excluded", profile: domain.UserProfile{Income: 300000}, want: []string{"sc-ov", "merit", "girls"}},
		{name: "income equal to limit kept", profile: domain.UserProfile{Category: "BC", Income: 150000}, want: []string{"bc-fee"}},
		{name: "no match", profile: domain.UserProfile{Category: "Minority"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ids(ByProfile(records, tt.profile)))
		})
	}
}

func TestByKeyword(t *testing.T) {
	records := fixture()
	require.Equal(t, []string{"sc-fee", "bc-fee"}, ids(ByKeyword(records, "FEE")))
	require.Equal(t, []string{"girls"}, ids(ByKeyword(records, "laptop")))
	require.Equal(t, []string{"sc-fee", "sc-ov"}, ids(ByKeyword(records, "sc")))
	require.Equal(t, []string{"merit", "girls"}, ids(ByKeyword(records, "general")))
	require.Equal(t, []string{"merit", "girls"}, ids(ByKeyword(records, " All ")))
	require.Empty(t, ByKeyword(records, "   "))
	require.NotNil(t, ByKeyword(records, ""))
	require.Empty(t, ByKeyword(records, "hello"))
}

func TestByKeyword_Idempotent(t *testing.T) {
	records := fixture()
	require.Equal(t, ByKeyword(records, "fee"), ByKeyword(records, "fee"))
}

func TestByTerms(t *testing.T) {
	records := fixture()
	// whole utterance hits first
	require.Equal(t, []string{"girls"}, ids(ByTerms(records, "laptop")))
	// falls back to the union over terms, in catalog order
	require.Equal(t, []string{"sc-fee", "bc-fee", "girls"}, ids(ByTerms(records, "I need a laptop or fee scholarship")))
	require.Empty(t, ByTerms(records, "hello"))
	require.Empty(t, ByTerms(records, "help me please"))
}

func TestBySearch(t *testing.T) {
	records := fixture()
	got := BySearch(records, domain.SearchRequest{Category: "SC", Keyword: "overseas"})
	require.Equal(t, []string{"sc-ov"}, ids(got))

	got = BySearch(records, domain.SearchRequest{Course: "BTech", IncomeLimit: 200000})
	require.Equal(t, []string{"sc-fee", "merit", "girls"}, ids(got))
}

func TestTerms(t *testing.T) {
	require.Equal(t, []string{"laptop", "b.tech", "hyderabad"}, Terms("Need a LAPTOP, b.tech student in Hyderabad laptop"))
	require.Empty(t, Terms("is it ok?"))
}
