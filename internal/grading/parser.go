package grading

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/versant-prep/backend/internal/models"
)

// Enrichment error kinds stored in EnrichmentError.Error.
const (
	ErrKindParse         = "Parsing Error"
	ErrKindEvaluation    = "Evaluation Failed"
	ErrKindConfiguration = "Configuration Error"
)

type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse grading response: %s", e.Reason)
}

// stripCodeFences removes every markdown fence marker from s.
func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// extractJSON returns the span from the first open to the last close
// delimiter, dropping any prose around it. s is returned unchanged when
// either delimiter is missing.
func extractJSON(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

// rawEmail and rawPassage accept fractional numbers; the service
// occasionally returns 7.5 where an integer is asked for.
type rawEmail struct {
	Score         *float64 `json:"score"`
	CEFRLevel     string   `json:"cefr_level"`
	Feedback      string   `json:"feedback"`
	Corrections   []string `json:"corrections"`
	ToneAnalysis  string   `json:"tone_analysis"`
	IdealResponse string   `json:"ideal_response"`
}

type rawPassage struct {
	Score               *float64 `json:"score"`
	AlignmentPercentage *float64 `json:"alignment_percentage"`
	MissingPoints       []string `json:"missing_points"`
	GrammarFeedback     string   `json:"grammar_feedback"`
	IdealResponse       string   `json:"ideal_response"`
}

func clampScore(v *float64, hi int) *int {
	if v == nil {
		return nil
	}
	n := int(math.Round(*v))
	n = max(0, min(hi, n))
	return &n
}

// ParseEmailFeedback decodes an email grading response.
func ParseEmailFeedback(content string) (*models.EmailFeedback, error) {
	cleaned := extractJSON(stripCodeFences(content), '{', '}')

	var raw rawEmail
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, &ParseError{Reason: err.Error()}
	}
	if raw.Score == nil && raw.Feedback == "" {
		return nil, &ParseError{Reason: "response has neither score nor feedback"}
	}

	return &models.EmailFeedback{
		Score:         clampScore(raw.Score, 10),
		CEFRLevel:     raw.CEFRLevel,
		Feedback:      raw.Feedback,
		Corrections:   nonNil(raw.Corrections),
		ToneAnalysis:  raw.ToneAnalysis,
		IdealResponse: raw.IdealResponse,
	}, nil
}

// ParsePassageFeedback decodes a passage batch response. The result always
// has exactly want items; a short or long array is reported as a
// ParseError alongside the padded or truncated items.
func ParsePassageFeedback(content string, want int) ([]models.PassageFeedback, error) {
	cleaned := extractJSON(stripCodeFences(content), '[', ']')

	var raw []rawPassage
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return DegradedPassageFeedback(want), &ParseError{Reason: err.Error()}
	}

	items := make([]models.PassageFeedback, want)
	for i := range items {
		if i >= len(raw) {
			items[i] = degradedPassage()
			continue
		}
		r := raw[i]
		items[i] = models.PassageFeedback{
			Score:               clampScore(r.Score, 10),
			AlignmentPercentage: clampScore(r.AlignmentPercentage, 100),
			MissingPoints:       nonNil(r.MissingPoints),
			GrammarFeedback:     r.GrammarFeedback,
			IdealResponse:       r.IdealResponse,
		}
	}

	if len(raw) != want {
		return items, &ParseError{Reason: fmt.Sprintf("expected %d items, got %d", want, len(raw))}
	}
	return items, nil
}

// DegradedEmailFeedback is stored when a response cannot be decoded. It
// carries no score, so the heuristic score stands.
func DegradedEmailFeedback(content string) *models.EmailFeedback {
	excerpt := content
	if r := []rune(excerpt); len(r) > 100 {
		excerpt = string(r[:100])
	}
	return &models.EmailFeedback{
		CEFRLevel:     "B1",
		Feedback:      "AI feedback could not be parsed structurally. " + excerpt + "...",
		Corrections:   []string{},
		ToneAnalysis:  "N/A",
		IdealResponse: "Could not parse AI response",
	}
}

func DegradedPassageFeedback(n int) []models.PassageFeedback {
	items := make([]models.PassageFeedback, n)
	for i := range items {
		items[i] = degradedPassage()
	}
	return items
}

func degradedPassage() models.PassageFeedback {
	return models.PassageFeedback{
		MissingPoints:   []string{},
		GrammarFeedback: "Could not parse specific feedback.",
		IdealResponse:   "AI parsing failed.",
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
