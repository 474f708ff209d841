package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/versant-prep/backend/internal/models"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func clock() func() time.Time {
	return func() time.Time { return fixedNow }
}

func shortTimings() map[models.SectionKind]Timing {
	return map[models.SectionKind]Timing{
		models.SectionTyping:                {ItemSeconds: 5},
		models.SectionSentenceCompletion:    {ItemSeconds: 3},
		models.SectionFillBlanks:            {ItemSeconds: 3},
		models.SectionJumbledWords:          {ItemSeconds: 3},
		models.SectionPassageReconstruction: {ItemSeconds: 4, ReadSeconds: 2},
		models.SectionEmailWriting:          {ItemSeconds: 5},
	}
}

func mixedQuestions() []models.Question {
	return []models.Question{
		models.TypingPrompt{ID: "t1", Paragraph: "the quick brown fox"},
		models.SentenceCompletion{ID: "s1", Text: "a ___", AcceptableAnswers: []string{"b"}},
		models.SentenceCompletion{ID: "s2", Text: "c ___", AcceptableAnswers: []string{"d"}},
		models.PassagePrompt{ID: "p1", Text: "The company announced a policy"},
		models.EmailPrompt{ID: "e1", Text: "Write an email"},
	}
}

func ticks(s *Session, n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

func TestSession_Walkthrough(t *testing.T) {
	s := New("sess-1", "1", models.ModeFullTest, mixedQuestions(), shortTimings(), clock())

	snap := s.Snapshot()
	assert.Equal(t, models.PhaseInstructions, snap.State)
	assert.Equal(t, models.SectionTyping, snap.Section)
	assert.Equal(t, 4, snap.SectionCount)
	assert.Nil(t, snap.Question)

	assert.ErrorIs(t, s.SetAnswer("x"), ErrInputDisabled)
	assert.ErrorIs(t, s.Submit(), ErrInvalidTransition)

	// typing
	require.NoError(t, s.StartSection())
	assert.ErrorIs(t, s.StartSection(), ErrInvalidTransition)
	assert.Equal(t, 5, s.Snapshot().Remaining)
	ticks(s, 2)
	require.NoError(t, s.SetAnswer("the quick"))
	require.NoError(t, s.Submit())

	snap = s.Snapshot()
	assert.Equal(t, models.SectionSentenceCompletion, snap.Section)
	assert.Equal(t, models.PhaseInstructions, snap.State)

	// sentence completion: first item expires, second submitted
	require.NoError(t, s.StartSection())
	assert.ErrorIs(t, s.Submit(), ErrEmptyAnswer)
	ticks(s, 3)
	snap = s.Snapshot()
	assert.Equal(t, models.PhaseActive, snap.State)
	assert.Equal(t, 1, snap.ItemIndex)
	assert.Equal(t, 2, snap.GlobalIndex)
	require.NoError(t, s.SetAnswer("d"))
	require.NoError(t, s.Submit())

	// passage: reading window then writing window
	require.NoError(t, s.StartSection())
	snap = s.Snapshot()
	assert.Equal(t, models.PhaseReading, snap.State)
	require.NotNil(t, snap.Question)
	assert.Equal(t, "The company announced a policy", snap.Question.Text)
	assert.ErrorIs(t, s.SetAnswer("early"), ErrInputDisabled)

	ticks(s, 2)
	snap = s.Snapshot()
	assert.Equal(t, models.PhaseWriting, snap.State)
	assert.Equal(t, 4, snap.Remaining)
	assert.Empty(t, snap.Question.Text)
	require.NoError(t, s.SetAnswer("company announced policy"))
	require.NoError(t, s.Submit())

	// email expires into finalization
	require.NoError(t, s.StartSection())
	require.NoError(t, s.SetAnswer("Dear team"))
	_, err := s.Final()
	assert.ErrorIs(t, err, ErrNotFinalized)
	ticks(s, 5)

	assert.Equal(t, models.StatusFinalized, s.Status())
	final, err := s.Final()
	require.NoError(t, err)
	assert.Equal(t, "1", final.TestID)
	assert.Equal(t, fixedNow, final.CompletedAt)
	assert.Equal(t, map[int]string{
		0: "the quick",
		2: "d",
		3: "company announced policy",
		4: "Dear team",
	}, final.Answers)
	assert.Equal(t, 2, final.Elapsed[0])
	assert.Equal(t, 3, final.Elapsed[1])
	assert.Equal(t, 5, final.Elapsed[4])
	assert.Equal(t, 5, final.ItemSeconds[models.SectionTyping])

	snap = s.Snapshot()
	assert.Equal(t, models.PhaseCompleted, snap.State)
	require.NotNil(t, snap.CompletedAt)

	assert.ErrorIs(t, s.Submit(), ErrSessionClosed)
	assert.ErrorIs(t, s.Abandon(), ErrSessionClosed)
}

func TestSession_ReadingCanBeEndedEarly(t *testing.T) {
	s := New("sess", "1", models.ModeFullTest, []models.Question{
		models.PassagePrompt{ID: "p1", Text: "text"},
	}, shortTimings(), clock())

	require.NoError(t, s.StartSection())
	require.NoError(t, s.Submit())

	snap := s.Snapshot()
	assert.Equal(t, models.PhaseWriting, snap.State)
	assert.Equal(t, 4, snap.Remaining)
}

func TestSession_ExpiryAlwaysAdvances(t *testing.T) {
	s := New("sess", "1", models.ModeFullTest, mixedQuestions(), shortTimings(), clock())

	// typing 5 + sentence 3*2 + passage (2+4) + email 5
	budgets := [][]int{{5}, {3, 3}, {6}, {5}}
	for _, section := range budgets {
		require.NoError(t, s.StartSection())
		for _, n := range section {
			ticks(s, n)
		}
	}

	assert.Equal(t, models.StatusFinalized, s.Status())
	final, err := s.Final()
	require.NoError(t, err)
	assert.Empty(t, final.Answers)
	assert.Equal(t, 5, final.Elapsed[0])
}

func TestSession_NoTicksDuringInstructions(t *testing.T) {
	s := New("sess", "1", models.ModeFullTest, mixedQuestions(), shortTimings(), clock())
	ticks(s, 100)

	snap := s.Snapshot()
	assert.Equal(t, models.PhaseInstructions, snap.State)
	assert.Equal(t, models.SectionTyping, snap.Section)
}

func TestSession_FillBlankRequiresListedOption(t *testing.T) {
	s := New("sess", "1", models.ModePractice, []models.Question{
		models.FillBlank{ID: "f1", Text: "He ___ here.", Options: []string{"work", "works"}, Answer: "works"},
	}, shortTimings(), clock())
	require.NoError(t, s.StartSection())

	assert.ErrorIs(t, s.SetAnswer("working"), ErrMalformedAnswer)
	require.NoError(t, s.SetAnswer("works"))
	require.NoError(t, s.SetAnswer("work"))

	snap := s.Snapshot()
	assert.Equal(t, "work", snap.Answer)
	assert.Equal(t, models.ModalitySingleChoice, snap.Question.Modality)
	assert.Equal(t, []string{"work", "works"}, snap.Question.Options)
}

func TestSession_Abandon(t *testing.T) {
	s := New("sess", "1", models.ModeFullTest, mixedQuestions(), shortTimings(), clock())
	require.NoError(t, s.StartSection())
	require.NoError(t, s.Abandon())

	ticks(s, 10)
	assert.Equal(t, models.StatusAbandoned, s.Status())
	_, err := s.Final()
	assert.ErrorIs(t, err, ErrNotFinalized)
	assert.ErrorIs(t, s.SetAnswer("x"), ErrSessionClosed)
}

func TestSession_EmptySectionsSkipped(t *testing.T) {
	s := New("sess", "1", models.ModeFullTest, []models.Question{
		models.EmailPrompt{ID: "e1", Text: "Write"},
	}, shortTimings(), clock())

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.SectionCount)
	assert.Equal(t, models.SectionEmailWriting, snap.Section)
}

func TestSession_NoQuestionsFinalizesImmediately(t *testing.T) {
	s := New("sess", "1", models.ModeFullTest, nil, shortTimings(), clock())

	assert.Equal(t, models.StatusFinalized, s.Status())
	final, err := s.Final()
	require.NoError(t, err)
	assert.Empty(t, final.Questions)
}

func TestSession_FinalCopiesAnswers(t *testing.T) {
	s := New("sess", "1", models.ModePractice, []models.Question{
		models.EmailPrompt{ID: "e1", Text: "Write"},
	}, shortTimings(), clock())
	require.NoError(t, s.StartSection())
	require.NoError(t, s.SetAnswer("Dear team"))
	require.NoError(t, s.Submit())

	final, err := s.Final()
	require.NoError(t, err)
	final.Answers[0] = "changed"

	assert.Equal(t, "Dear team", s.answers[0])
}
