package questionbank

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/versant-prep/backend/internal/models"
)

//go:embed data/bank.json
var defaultBank []byte

// Pools holds the ordered question pools, one per section kind. Order is
// significant: tests are carved out of each pool by position.
type Pools struct {
	Typing                []models.TypingPrompt       `json:"typing"`
	SentenceCompletion    []models.SentenceCompletion `json:"sentence_completion"`
	FillBlanks            []models.FillBlank          `json:"fill_blanks"`
	JumbledWords          []models.JumbledSentence    `json:"jumbled_words"`
	PassageReconstruction []models.PassagePrompt      `json:"passage_reconstruction"`
	EmailWriting          []models.EmailPrompt        `json:"email_writing"`
}

type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("question bank validation failed: %s", strings.Join(e.Errors, "; "))
}

// LoadPools reads a question bank file. An empty path loads the bank that
// ships with the binary.
func LoadPools(path string) (*Pools, error) {
	data := defaultBank
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read question bank: %w", err)
		}
		data = b
	}
	return ParsePools(data)
}

func ParsePools(data []byte) (*Pools, error) {
	var p Pools
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse question bank: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks every item carries the fields its grading rule needs.
// Empty pools are allowed.
func (p *Pools) Validate() error {
	var errs []string
	bad := func(kind models.SectionKind, i int, msg string) {
		errs = append(errs, fmt.Sprintf("%s[%d]: %s", kind, i, msg))
	}

	for i, q := range p.Typing {
		if strings.TrimSpace(q.Paragraph) == "" {
			bad(models.SectionTyping, i, "empty paragraph")
		}
	}
	for i, q := range p.SentenceCompletion {
		if strings.TrimSpace(q.Text) == "" {
			bad(models.SectionSentenceCompletion, i, "empty question")
		}
		if len(q.AcceptableAnswers) == 0 {
			bad(models.SectionSentenceCompletion, i, "no acceptable answers")
		}
	}
	for i, q := range p.FillBlanks {
		if len(q.Options) < 2 {
			bad(models.SectionFillBlanks, i, fmt.Sprintf("expected at least 2 options, got %d", len(q.Options)))
		}
		if !q.HasOption(q.Answer) {
			bad(models.SectionFillBlanks, i, fmt.Sprintf("answer %q is not one of the options", q.Answer))
		}
	}
	for i, q := range p.JumbledWords {
		if len(q.Tokens()) == 0 || strings.TrimSpace(q.Sentence) == "" {
			bad(models.SectionJumbledWords, i, "missing tokens or answer")
		}
	}
	for i, q := range p.PassageReconstruction {
		if strings.TrimSpace(q.Text) == "" {
			bad(models.SectionPassageReconstruction, i, "empty source text")
		}
	}
	for i, q := range p.EmailWriting {
		if strings.TrimSpace(q.Text) == "" {
			bad(models.SectionEmailWriting, i, "empty prompt")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// Pool returns the pool for a section kind as questions, in bank order.
func (p *Pools) Pool(kind models.SectionKind) []models.Question {
	var out []models.Question
	switch kind {
	case models.SectionTyping:
		for _, q := range p.Typing {
			out = append(out, q)
		}
	case models.SectionSentenceCompletion:
		for _, q := range p.SentenceCompletion {
			out = append(out, q)
		}
	case models.SectionFillBlanks:
		for _, q := range p.FillBlanks {
			out = append(out, q)
		}
	case models.SectionJumbledWords:
		for _, q := range p.JumbledWords {
			out = append(out, q)
		}
	case models.SectionPassageReconstruction:
		for _, q := range p.PassageReconstruction {
			out = append(out, q)
		}
	case models.SectionEmailWriting:
		for _, q := range p.EmailWriting {
			out = append(out, q)
		}
	}
	return out
}

// Stats reports pool sizes per section.
func (p *Pools) Stats() map[models.SectionKind]int {
	return map[models.SectionKind]int{
		models.SectionTyping:                len(p.Typing),
		models.SectionSentenceCompletion:    len(p.SentenceCompletion),
		models.SectionFillBlanks:            len(p.FillBlanks),
		models.SectionJumbledWords:          len(p.JumbledWords),
		models.SectionPassageReconstruction: len(p.PassageReconstruction),
		models.SectionEmailWriting:          len(p.EmailWriting),
	}
}
