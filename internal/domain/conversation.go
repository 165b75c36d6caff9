package domain

// UserProfile is the coarse profile extracted from a single utterance.
// Empty strings and zero values mean the field was not detected.
type UserProfile struct {
	Category    string `json:"category,omitempty"`
	Course      string `json:"course,omitempty"`
	StudyAbroad bool   `json:"studyAbroad,omitempty"`
	Income      int64  `json:"income,omitempty"`
}

// IsEmpty reports whether no field of the profile was detected.
func (p UserProfile) IsEmpty() bool {
	return p.Category == "" && p.Course == "" && !p.StudyAbroad && p.Income == 0
}

// SearchRequest is the typed catalog search a model may ask for through the
// search_scholarships tool. It doubles as the structured query shape.
type SearchRequest struct {
	Keyword     string `json:"query,omitempty"`
	Category    string `json:"category,omitempty"`
	Course      string `json:"course,omitempty"`
	IncomeLimit int64  `json:"incomeLimit,omitempty"`
	StudyAbroad bool   `json:"studyAbroad,omitempty"`
}

// Profile returns the structured part of the request.
func (r SearchRequest) Profile() UserProfile {
	return UserProfile{
		Category:    r.Category,
		Course:      r.Course,
		StudyAbroad: r.StudyAbroad,
		Income:      r.IncomeLimit,
	}
}

// Generation is the result of a remote generation call: either text, or a
// request to search the catalog before answering.
type Generation struct {
	Text   string
	Search *SearchRequest
}
