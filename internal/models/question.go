package models

import "strings"

type SectionKind string

const (
	SectionTyping                SectionKind = "typing"
	SectionSentenceCompletion    SectionKind = "sentence_completion"
	SectionFillBlanks            SectionKind = "fill_blanks"
	SectionJumbledWords          SectionKind = "jumbled_words"
	SectionPassageReconstruction SectionKind = "passage_reconstruction"
	SectionEmailWriting          SectionKind = "email_writing"
)

// SectionOrder is the fixed order sections appear in a full test.
var SectionOrder = []SectionKind{
	SectionTyping,
	SectionSentenceCompletion,
	SectionFillBlanks,
	SectionJumbledWords,
	SectionPassageReconstruction,
	SectionEmailWriting,
}

var ValidSections = map[SectionKind]bool{
	SectionTyping:                true,
	SectionSentenceCompletion:    true,
	SectionFillBlanks:            true,
	SectionJumbledWords:          true,
	SectionPassageReconstruction: true,
	SectionEmailWriting:          true,
}

type Modality string

const (
	ModalityFreeText     Modality = "free_text"
	ModalityTextarea     Modality = "textarea"
	ModalitySingleChoice Modality = "single_choice"
)

// ModalityFor returns the input style a section collects answers with.
func ModalityFor(kind SectionKind) Modality {
	switch kind {
	case SectionFillBlanks:
		return ModalitySingleChoice
	case SectionPassageReconstruction, SectionEmailWriting:
		return ModalityTextarea
	default:
		return ModalityFreeText
	}
}

// Question is implemented by exactly one variant per section kind. Each
// variant carries only the fields its grading rule needs.
type Question interface {
	QuestionID() string
	Kind() SectionKind
	// Prompt is the text presented to the test taker.
	Prompt() string
	question()
}

type TypingPrompt struct {
	ID        string `json:"id"`
	Paragraph string `json:"paragraph"`
}

func (q TypingPrompt) QuestionID() string { return q.ID }
func (q TypingPrompt) Kind() SectionKind  { return SectionTyping }
func (q TypingPrompt) Prompt() string     { return q.Paragraph }
func (TypingPrompt) question()            {}

type SentenceCompletion struct {
	ID                string   `json:"id"`
	Text              string   `json:"question"`
	AcceptableAnswers []string `json:"acceptable_answers"`
}

func (q SentenceCompletion) QuestionID() string { return q.ID }
func (q SentenceCompletion) Kind() SectionKind  { return SectionSentenceCompletion }
func (q SentenceCompletion) Prompt() string     { return q.Text }
func (SentenceCompletion) question()            {}

type FillBlank struct {
	ID      string   `json:"id"`
	Text    string   `json:"question"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
}

func (q FillBlank) QuestionID() string { return q.ID }
func (q FillBlank) Kind() SectionKind  { return SectionFillBlanks }
func (q FillBlank) Prompt() string     { return q.Text }
func (FillBlank) question()            {}

// HasOption reports whether value is one of the listed options, ignoring
// surrounding whitespace.
func (q FillBlank) HasOption(value string) bool {
	value = strings.TrimSpace(value)
	for _, opt := range q.Options {
		if strings.TrimSpace(opt) == value {
			return true
		}
	}
	return false
}

type JumbledSentence struct {
	ID       string `json:"id"`
	Jumbled  string `json:"jumbled"`
	Sentence string `json:"answer"`
}

func (q JumbledSentence) QuestionID() string { return q.ID }
func (q JumbledSentence) Kind() SectionKind  { return SectionJumbledWords }
func (q JumbledSentence) Prompt() string     { return q.Jumbled }
func (JumbledSentence) question()            {}

// Tokens splits the slash-delimited scrambled phrase into trimmed tokens.
func (q JumbledSentence) Tokens() []string {
	var tokens []string
	for _, t := range strings.Split(q.Jumbled, "/") {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

type PassagePrompt struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (q PassagePrompt) QuestionID() string { return q.ID }
func (q PassagePrompt) Kind() SectionKind  { return SectionPassageReconstruction }
func (q PassagePrompt) Prompt() string     { return q.Text }
func (PassagePrompt) question()            {}

type EmailPrompt struct {
	ID   string `json:"id"`
	Text string `json:"prompt"`
}

func (q EmailPrompt) QuestionID() string { return q.ID }
func (q EmailPrompt) Kind() SectionKind  { return SectionEmailWriting }
func (q EmailPrompt) Prompt() string     { return q.Text }
func (EmailPrompt) question()            {}

// PresentedQuestion is the client-facing view of a question with all
// answer material stripped.
type PresentedQuestion struct {
	ID       string      `json:"id"`
	Kind     SectionKind `json:"kind"`
	Modality Modality    `json:"modality"`
	Text     string      `json:"text,omitempty"`
	Options  []string    `json:"options,omitempty"`
	Tokens   []string    `json:"tokens,omitempty"`
}

// Present converts a question for display. Passage source text is only
// included while showSource is true (the reading window).
func Present(q Question, showSource bool) PresentedQuestion {
	pq := PresentedQuestion{
		ID:       q.QuestionID(),
		Kind:     q.Kind(),
		Modality: ModalityFor(q.Kind()),
		Text:     q.Prompt(),
	}
	switch v := q.(type) {
	case FillBlank:
		pq.Options = append([]string(nil), v.Options...)
	case JumbledSentence:
		pq.Tokens = v.Tokens()
	case PassagePrompt:
		if !showSource {
			pq.Text = ""
		}
	}
	return pq
}
