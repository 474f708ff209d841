package session

import (
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/versant-prep/backend/internal/models"
	"github.com/versant-prep/backend/internal/timer"
)

type phase struct {
	kind    models.SectionKind
	indexes []int // global question indexes, in order
	timing  Timing
}

// Session is the state machine for one test attempt. It changes state only
// in response to Tick and user input events, and every method is safe for
// concurrent use.
type Session struct {
	mu sync.Mutex

	id        string
	testID    string
	mode      models.SessionMode
	questions []models.Question
	phases    []phase

	phaseIdx int
	itemIdx  int
	state    models.PhaseState
	status   models.SessionStatus

	answers map[int]string
	elapsed map[int]int
	timer   timer.Timer

	now         func() time.Time
	startedAt   time.Time
	completedAt time.Time
	final       *models.FinalizedSession
}

// New builds a session over an ordered question list. Questions are grouped
// into sections in test order; sections with no questions are skipped.
func New(id, testID string, mode models.SessionMode, questions []models.Question, timings map[models.SectionKind]Timing, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	s := &Session{
		id:        id,
		testID:    testID,
		mode:      mode,
		questions: questions,
		state:     models.PhaseInstructions,
		status:    models.StatusInProgress,
		answers:   make(map[int]string),
		elapsed:   make(map[int]int),
		now:       now,
		startedAt: now(),
	}

	byKind := make(map[models.SectionKind][]int)
	for i, q := range questions {
		byKind[q.Kind()] = append(byKind[q.Kind()], i)
	}
	for _, kind := range models.SectionOrder {
		if idx := byKind[kind]; len(idx) > 0 {
			s.phases = append(s.phases, phase{kind: kind, indexes: idx, timing: timings[kind]})
		}
	}

	if len(s.phases) == 0 {
		s.finalize()
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Mode() models.SessionMode { return s.mode }

func (s *Session) Status() models.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// StartSection acknowledges the current section's instructions and starts
// its first item.
func (s *Session) StartSection() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.StatusInProgress {
		return ErrSessionClosed
	}
	if s.state != models.PhaseInstructions {
		return fmt.Errorf("%w: cannot start section while %s", ErrInvalidTransition, s.state)
	}
	s.beginItem()
	return nil
}

// SetAnswer replaces the answer for the current question.
func (s *Session) SetAnswer(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.StatusInProgress {
		return ErrSessionClosed
	}
	if !s.state.AcceptsInput() {
		return fmt.Errorf("%w: %s", ErrInputDisabled, s.state)
	}
	if fb, ok := s.currentQuestion().(models.FillBlank); ok && value != "" && !fb.HasOption(value) {
		return fmt.Errorf("%w: %q", ErrMalformedAnswer, value)
	}
	s.answers[s.globalIndex()] = value
	return nil
}

// Submit is the manual advance. During a reading window it ends the window
// early; otherwise it requires a non-empty answer and moves to the next
// item.
func (s *Session) Submit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.StatusInProgress {
		return ErrSessionClosed
	}
	switch s.state {
	case models.PhaseReading:
		s.beginWriting()
		return nil
	case models.PhaseActive, models.PhaseWriting:
		if strings.TrimSpace(s.answers[s.globalIndex()]) == "" {
			return ErrEmptyAnswer
		}
		s.advance()
		return nil
	default:
		return fmt.Errorf("%w: cannot submit while %s", ErrInvalidTransition, s.state)
	}
}

// Tick advances the section timer by one second.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.StatusInProgress {
		return
	}
	s.timer.Tick()
}

// Abandon ends the session without producing a result.
func (s *Session) Abandon() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.StatusInProgress {
		return ErrSessionClosed
	}
	s.timer.Cancel()
	s.status = models.StatusAbandoned
	return nil
}

// Final returns the finalized hand-off for scoring.
func (s *Session) Final() (*models.FinalizedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.final == nil {
		return nil, ErrNotFinalized
	}
	return s.final, nil
}

func (s *Session) Snapshot() models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.SessionSnapshot{
		ID:           s.id,
		TestID:       s.testID,
		Mode:         s.mode,
		Status:       s.status,
		SectionCount: len(s.phases),
		State:        s.state,
		StartedAt:    s.startedAt,
	}
	if !s.completedAt.IsZero() {
		completed := s.completedAt
		snap.CompletedAt = &completed
	}
	if s.status != models.StatusInProgress {
		snap.SectionIndex = len(s.phases)
		return snap
	}

	p := s.phases[s.phaseIdx]
	snap.Section = p.kind
	snap.SectionIndex = s.phaseIdx
	snap.ItemIndex = s.itemIdx
	snap.ItemCount = len(p.indexes)
	snap.GlobalIndex = s.globalIndex()
	if s.state != models.PhaseInstructions {
		snap.Remaining = s.timer.Remaining()
		pq := models.Present(s.currentQuestion(), s.state == models.PhaseReading)
		snap.Question = &pq
		snap.Answer = s.answers[s.globalIndex()]
	}
	return snap
}

func (s *Session) currentQuestion() models.Question {
	return s.questions[s.globalIndex()]
}

func (s *Session) globalIndex() int {
	return s.phases[s.phaseIdx].indexes[s.itemIdx]
}

func (s *Session) arm(seconds int) {
	s.timer.Start(seconds, nil, s.expire)
}

// beginItem enters the current item, opening with a reading window when
// the section has one.
func (s *Session) beginItem() {
	t := s.phases[s.phaseIdx].timing
	if t.ReadSeconds > 0 {
		s.state = models.PhaseReading
		s.arm(t.ReadSeconds)
		return
	}
	s.state = models.PhaseActive
	s.arm(t.ItemSeconds)
}

func (s *Session) beginWriting() {
	s.state = models.PhaseWriting
	s.arm(s.phases[s.phaseIdx].timing.ItemSeconds)
}

// expire runs from inside timer.Tick with s.mu held.
func (s *Session) expire() {
	switch s.state {
	case models.PhaseReading:
		s.beginWriting()
	case models.PhaseActive, models.PhaseWriting:
		s.advance()
	}
}

func (s *Session) advance() {
	p := s.phases[s.phaseIdx]
	s.elapsed[s.globalIndex()] = p.timing.ItemSeconds - s.timer.Remaining()
	s.timer.Cancel()

	s.itemIdx++
	if s.itemIdx < len(p.indexes) {
		s.beginItem()
		return
	}

	s.itemIdx = 0
	s.phaseIdx++
	if s.phaseIdx < len(s.phases) {
		s.state = models.PhaseInstructions
		return
	}
	s.phaseIdx = len(s.phases) - 1
	s.finalize()
}

func (s *Session) finalize() {
	s.timer.Cancel()
	s.state = models.PhaseCompleted
	s.status = models.StatusFinalized
	s.completedAt = s.now()

	itemSeconds := make(map[models.SectionKind]int, len(s.phases))
	for _, p := range s.phases {
		itemSeconds[p.kind] = p.timing.ItemSeconds
	}
	s.final = &models.FinalizedSession{
		TestID:      s.testID,
		Mode:        s.mode,
		Questions:   append([]models.Question(nil), s.questions...),
		Answers:     maps.Clone(s.answers),
		Elapsed:     maps.Clone(s.elapsed),
		ItemSeconds: itemSeconds,
		StartedAt:   s.startedAt,
		CompletedAt: s.completedAt,
	}
}
