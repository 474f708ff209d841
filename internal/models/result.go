package models

import "time"

type TypingMetrics struct {
	WPM      int `json:"wpm"`
	Accuracy int `json:"accuracy"`
}

type QuestionDetail struct {
	QuestionID      string  `json:"question_id"`
	Question        string  `json:"question"`
	UserAnswer      string  `json:"user_answer"`
	CorrectAnswer   *string `json:"correct_answer,omitempty"`
	IsCorrect       *bool   `json:"is_correct,omitempty"`
	Score           *int    `json:"score,omitempty"`
	HeuristicScore  *int    `json:"heuristic_score,omitempty"`
	MatchPercentage *int    `json:"match_percentage,omitempty"`
}

// ScoredSection is the outcome of grading one section. HeuristicScore keeps
// the deterministic score so enrichment overrides can be re-applied
// without compounding.
type ScoredSection struct {
	SectionName    SectionKind        `json:"section_name"`
	RawScore       int                `json:"raw_score"`
	MaxScore       int                `json:"max_score"`
	HeuristicScore int                `json:"heuristic_score"`
	Details        []QuestionDetail   `json:"details"`
	Feedback       string             `json:"feedback,omitempty"`
	Typing         *TypingMetrics     `json:"typing,omitempty"`
	Readability    *float64           `json:"readability,omitempty"`
	AI             *SectionEnrichment `json:"ai,omitempty"`
}

type EmailFeedback struct {
	Score         *int     `json:"score"`
	CEFRLevel     string   `json:"cefr_level"`
	Feedback      string   `json:"feedback"`
	Corrections   []string `json:"corrections"`
	ToneAnalysis  string   `json:"tone_analysis"`
	IdealResponse string   `json:"ideal_response"`
}

type PassageFeedback struct {
	Score               *int     `json:"score"`
	AlignmentPercentage *int     `json:"alignment_percentage"`
	MissingPoints       []string `json:"missing_points"`
	GrammarFeedback     string   `json:"grammar_feedback"`
	IdealResponse       string   `json:"ideal_response"`
}

// EnrichmentError is the inline marker stored when remote grading fails.
type EnrichmentError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

type SectionEnrichment struct {
	Email    *EmailFeedback    `json:"email,omitempty"`
	Passages []PassageFeedback `json:"passages,omitempty"`
	Error    *EnrichmentError  `json:"error,omitempty"`
}

type EnrichmentStatus string

const (
	EnrichmentPending  EnrichmentStatus = "pending"
	EnrichmentComplete EnrichmentStatus = "complete"
	EnrichmentFailed   EnrichmentStatus = "failed"
	EnrichmentSkipped  EnrichmentStatus = "skipped"
)

type ResultRecord struct {
	ID               int64            `json:"id"`
	UserID           int64            `json:"user_id"`
	TestID           string           `json:"test_id"`
	Mode             SessionMode      `json:"mode"`
	TotalScore       int              `json:"total_score"`
	Sections         []ScoredSection  `json:"sections"`
	EnrichmentStatus EnrichmentStatus `json:"enrichment_status"`
	Fingerprint      string           `json:"-"`
	Timestamp        time.Time        `json:"timestamp"`
	Duplicate        bool             `json:"duplicate,omitempty"`
}

// Section returns the scored section with the given name, or nil.
func (r *ResultRecord) Section(kind SectionKind) *ScoredSection {
	for i := range r.Sections {
		if r.Sections[i].SectionName == kind {
			return &r.Sections[i]
		}
	}
	return nil
}

type ResultSummary struct {
	ID               int64            `json:"id"`
	TestID           string           `json:"test_id"`
	Mode             SessionMode      `json:"mode"`
	TotalScore       int              `json:"total_score"`
	EnrichmentStatus EnrichmentStatus `json:"enrichment_status"`
	Timestamp        time.Time        `json:"timestamp"`
}

type ResultListResponse struct {
	Results  []ResultSummary `json:"results"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// IntPtr and friends build optional detail fields.
func IntPtr(v int) *int          { return &v }
func BoolPtr(v bool) *bool       { return &v }
func StringPtr(v string) *string { return &v }
