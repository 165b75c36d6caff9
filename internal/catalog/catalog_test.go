package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"scholarship-agent/internal/domain"
)

func record(id string, categories ...string) domain.ScholarshipRecord {
	return domain.ScholarshipRecord{ID: id, Name: "Scheme " + id, Categories: categories}
}

func mustDefault(t *testing.T) *Catalog {
	t.Helper()
	c, err := Default()
	require.NoError(t, err)
	return c
}

func names(records []domain.ScholarshipRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}

func TestNew_Validates(t *testing.T) {
	_, err := New(" ", []domain.ScholarshipRecord{record("a", "SC")})
	require.ErrorIs(t, err, ErrEmptyVersion)

	_, err = New("v1", nil)
	require.ErrorIs(t, err, ErrNoRecords)

	_, err = New("v1", []domain.ScholarshipRecord{record("a", "SC"), record("a", "ST")})
	require.ErrorIs(t, err, ErrDuplicateID)

	_, err = New("v1", []domain.ScholarshipRecord{record("a")})
	require.ErrorIs(t, err, ErrMissingCategory)

	_, err = New("v1", []domain.ScholarshipRecord{record("")})
	require.ErrorIs(t, err, ErrMissingID)

	neg := record("a", "SC")
	neg.IncomeLimit = -1
	_, err = New("v1", []domain.ScholarshipRecord{neg})
	require.ErrorIs(t, err, ErrNegativeIncome)
}

func TestNew_CopiesInput(t *testing.T) {
	in := []domain.ScholarshipRecord{record("a", "SC")}
	c, err := New("v1", in)
	require.NoError(t, err)

	in[0].Categories[0] = "ST"
	require.Equal(t, []string{"SC"}, c.ListAll()[0].Categories)

	out := c.ListAll()
	out[0].Name = "changed"
	require.Equal(t, "Scheme a", c.ListAll()[0].Name)
}

func TestDefault_Loads(t *testing.T) {
	c := mustDefault(t)
	require.Equal(t, "ts-2024.1", c.Version())
	require.Greater(t, c.Len(), 10)
}

func TestSearchProfile_SCBTechReturnsFeeReimbursement(t *testing.T) {
	c := mustDefault(t)
	got := c.SearchProfile(domain.UserProfile{Category: "SC", Course: "BTech"})
	require.Equal(t, []string{"Post-Matric Fee Reimbursement for SC Students"}, names(got))
}

func TestSearchProfile_CategoryNeverMatchesAllOnly(t *testing.T) {
	c := mustDefault(t)
	got := c.SearchProfile(domain.UserProfile{Category: "SC"})
	require.NotEmpty(t, got)
	for _, r := range got {
		require.True(t, r.HasCategory("SC"), r.Name)
	}
}

func TestSearchKeyword_GeneralIncludesAllRecords(t *testing.T) {
	c := mustDefault(t)
	got := c.SearchKeyword("general")
	require.Equal(t, []string{
		"Central Sector Scheme of Scholarship for College and University Students",
		"National Means-cum-Merit Scholarship",
		"AICTE Pragati Scholarship for Girls",
	}, names(got))
}

func TestSearch_IsIdempotent(t *testing.T) {
	c := mustDefault(t)
	first := c.SearchKeyword("fee")
	second := c.SearchKeyword("fee")
	require.Equal(t, first, second)
	require.NotEmpty(t, first)
}

func TestSearch_TypedRequest(t *testing.T) {
	c := mustDefault(t)
	got := c.Search(domain.SearchRequest{Category: "BC", StudyAbroad: true})
	require.Equal(t, []string{"Mahatma Jyothiba Phule BC Overseas Vidya Nidhi"}, names(got))

	got = c.Search(domain.SearchRequest{Keyword: "laptop"})
	require.Equal(t, []string{
		"Assistive Devices and Laptop Scheme for Students with Disabilities",
		"AICTE Pragati Scholarship for Girls",
	}, names(got))
}

func TestParse_RejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"missing version":  `{"scholarships":[{"id":"a","name":"A","category":["SC"],"incomeLimit":0,"benefit":"x"}]}`,
		"empty category":   `{"version":"v","scholarships":[{"id":"a","name":"A","category":[],"incomeLimit":0,"benefit":"x"}]}`,
		"negative income":  `{"version":"v","scholarships":[{"id":"a","name":"A","category":["SC"],"incomeLimit":-5,"benefit":"x"}]}`,
		"no scholarships":  `{"version":"v","scholarships":[]}`,
		"not a document":   `[1,2,3]`,
		"income as string": `{"version":"v","scholarships":[{"id":"a","name":"A","category":["SC"],"incomeLimit":"lots","benefit":"x"}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestParse_RejectsDuplicateIDs(t *testing.T) {
	doc := `
version: v2
scholarships:
  - {id: a, name: A, category: [SC], incomeLimit: 0, benefit: x}
  - {id: a, name: B, category: [ST], incomeLimit: 0, benefit: y}
`
	_, err := Parse([]byte(doc))
	require.ErrorIs(t, err, ErrDuplicateID)
}

func TestLoad_FileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	doc := `{"version":"json-1","scholarships":[{"id":"a","name":"A","category":["All"],"incomeLimit":0,"benefit":"x","applicationLink":"https://a"}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	c, err := Load(context.Background(), Options{Source: SourceFile, Path: path})
	require.NoError(t, err)
	require.Equal(t, "json-1", c.Version())
	require.Equal(t, 1, c.Len())
}

func TestLoad_SourceErrors(t *testing.T) {
	_, err := Load(context.Background(), Options{Source: SourceFile})
	require.ErrorIs(t, err, ErrMissingSourceArg)

	_, err = Load(context.Background(), Options{Source: SourceDynamoDB})
	require.ErrorIs(t, err, ErrMissingSourceArg)

	_, err = Load(context.Background(), Options{Source: "s3"})
	require.ErrorIs(t, err, ErrUnknownSource)

	_, err = Load(context.Background(), Options{Source: SourceFile, Path: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
}

func TestLoad_DefaultsToEmbedded(t *testing.T) {
	c, err := Load(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, "ts-2024.1", c.Version())
}
