package models

import "time"

// PhaseState is the single source of truth for where a session is within
// the current section.
type PhaseState string

const (
	PhaseInstructions PhaseState = "instructions"
	PhaseReading      PhaseState = "reading"
	PhaseWriting      PhaseState = "writing"
	PhaseActive       PhaseState = "active"
	PhaseCompleted    PhaseState = "completed"
)

// AcceptsInput reports whether answer changes are allowed in this state.
func (p PhaseState) AcceptsInput() bool {
	return p == PhaseActive || p == PhaseWriting
}

type SessionMode string

const (
	ModeFullTest SessionMode = "full"
	ModePractice SessionMode = "practice"
)

type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusFinalized  SessionStatus = "finalized"
	StatusAbandoned  SessionStatus = "abandoned"
)

// SessionSnapshot is a read-only view of a live session.
type SessionSnapshot struct {
	ID           string             `json:"id"`
	TestID       string             `json:"test_id"`
	Mode         SessionMode        `json:"mode"`
	Status       SessionStatus      `json:"status"`
	Section      SectionKind        `json:"section,omitempty"`
	SectionIndex int                `json:"section_index"`
	SectionCount int                `json:"section_count"`
	State        PhaseState         `json:"state"`
	ItemIndex    int                `json:"item_index"`
	ItemCount    int                `json:"item_count"`
	GlobalIndex  int                `json:"global_index"`
	Remaining    int                `json:"remaining_seconds"`
	Question     *PresentedQuestion `json:"question,omitempty"`
	Answer       string             `json:"answer"`
	StartedAt    time.Time          `json:"started_at"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
}

// FinalizedSession is the immutable hand-off from a completed session to
// scoring. Answers and Elapsed are keyed by global question index.
type FinalizedSession struct {
	TestID      string
	Mode        SessionMode
	Questions   []Question
	Answers     map[int]string
	Elapsed     map[int]int
	ItemSeconds map[SectionKind]int
	StartedAt   time.Time
	CompletedAt time.Time
}

// Answer returns the stored answer for a global index, or "" when none was
// given.
func (f *FinalizedSession) Answer(index int) string {
	return f.Answers[index]
}

type StartSessionRequest struct {
	TestID int `json:"test_id"`
}

type StartPracticeRequest struct {
	Section SectionKind `json:"section"`
	Count   int         `json:"count"`
	Page    int         `json:"page"`
}

type AnswerRequest struct {
	Value string `json:"value"`
}
