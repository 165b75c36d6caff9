package usecase

import (
	"fmt"
	"strconv"
	"strings"

	"scholarship-agent/internal/domain"
)

var languageNames = map[string]string{
	"en": "English",
	"te": "Telugu",
	"hi": "Hindi",
}

type PromptInput struct {
	Records  []domain.ScholarshipRecord
	History  []domain.ConversationTurn
	Language string
	// Search is set when Records are the results of a model-requested search.
	Search *domain.SearchRequest
}

// BuildPrompt serializes the grounding records and recent history into the
// text sent to the remote generator.
func BuildPrompt(in PromptInput) string {
	sections := []string{
		buildPreamble(),
		buildConstraint(),
		buildRecordSection(in.Records, in.Search),
		buildHistorySection(in.History),
		buildInstruction(in.Language),
	}
	return strings.Join(sections, "\n\n")
}

func buildPreamble() string {
	return "You are SamartAI, a scholarship assistant for Indian students. " +
		"You help students find government and private scholarships they are eligible for."
}

func buildConstraint() string {
	return strings.Join([]string{
		"Rules:",
		"1) Use only the scholarship data below. Do not invent schemes, amounts, deadlines or links.",
		"2) If no scheme below fits, say so plainly.",
	}, "\n")
}

func buildRecordSection(records []domain.ScholarshipRecord, search *domain.SearchRequest) string {
	header := "Scholarship data:"
	if search != nil {
		header = fmt.Sprintf("Scholarship data (results of search_scholarships %s):", describeSearch(*search))
	}
	if len(records) == 0 {
		return header + "\n(no matching schemes)"
	}
	blocks := make([]string, 0, len(records))
	for _, r := range records {
		blocks = append(blocks, serializeRecord(r))
	}
	return header + "\n" + strings.Join(blocks, "\n")
}

func serializeRecord(r domain.ScholarshipRecord) string {
	lines := []string{
		"- Name: " + r.Name,
		"  Categories: " + strings.Join(r.Categories, ", "),
	}
	if len(r.Courses) > 0 {
		lines = append(lines, "  Courses: "+strings.Join(r.Courses, ", "))
	}
	lines = append(lines, "  Benefit: "+normalizePromptInput(r.Benefit))
	if r.IncomeLimit > 0 {
		lines = append(lines, "  Income ceiling: Rs "+strconv.FormatInt(r.IncomeLimit, 10)+" per year")
	}
	if len(r.Documents) > 0 {
		lines = append(lines, "  Documents: "+strings.Join(r.Documents, ", "))
	}
	if r.Deadline != "" {
		lines = append(lines, "  Deadline: "+r.Deadline)
	}
	if r.ApplicationLink != "" {
		lines = append(lines, "  Link: "+r.ApplicationLink)
	}
	return strings.Join(lines, "\n")
}

func buildHistorySection(history []domain.ConversationTurn) string {
	if len(history) == 0 {
		return "Conversation so far:\n(none)"
	}
	lines := make([]string, 0, len(history)+1)
	lines = append(lines, "Conversation so far:")
	for _, turn := range history {
		speaker := "User"
		if turn.Role == domain.RoleAssistant {
			speaker = "Assistant"
		}
		lines = append(lines, speaker+": "+normalizePromptInput(turn.Content))
	}
	return strings.Join(lines, "\n")
}

func buildInstruction(language string) string {
	name, ok := languageNames[language]
	if !ok {
		name = languageNames["en"]
	}
	return strings.Join([]string{
		"Answer the latest user message concisely.",
		"If the student's income, category or course is missing, ask one short follow-up question about it.",
		"Reply in " + name + ".",
	}, " ")
}

func describeSearch(req domain.SearchRequest) string {
	parts := make([]string, 0, 5)
	if req.Keyword != "" {
		parts = append(parts, "query="+strconv.Quote(req.Keyword))
	}
	if req.Category != "" {
		parts = append(parts, "category="+req.Category)
	}
	if req.Course != "" {
		parts = append(parts, "course="+req.Course)
	}
	if req.IncomeLimit > 0 {
		parts = append(parts, "income="+strconv.FormatInt(req.IncomeLimit, 10))
	}
	if req.StudyAbroad {
		parts = append(parts, "studyAbroad=true")
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func normalizePromptInput(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}
