package scoring

import (
	"strings"

	"github.com/versant-prep/backend/internal/models"
)

// ScoreSession grades a finalized session, producing one section per
// section kind present, in test order. Missing answers score zero.
func ScoreSession(final *models.FinalizedSession, opts MatchOptions) []models.ScoredSection {
	indexes := make(map[models.SectionKind][]int)
	for i, q := range final.Questions {
		indexes[q.Kind()] = append(indexes[q.Kind()], i)
	}

	var sections []models.ScoredSection
	for _, kind := range models.SectionOrder {
		idx := indexes[kind]
		if len(idx) == 0 {
			continue
		}
		var s models.ScoredSection
		switch kind {
		case models.SectionTyping:
			s = scoreTyping(final, idx)
		case models.SectionPassageReconstruction:
			s = scorePassages(final, idx)
		case models.SectionEmailWriting:
			s = scoreEmails(final, idx)
		default:
			s = scoreDiscrete(final, kind, idx, opts)
		}
		s.SectionName = kind
		s.HeuristicScore = s.RawScore
		sections = append(sections, s)
	}
	return sections
}

func elapsedFor(final *models.FinalizedSession, i int) int {
	if e, ok := final.Elapsed[i]; ok {
		return e
	}
	return final.ItemSeconds[final.Questions[i].Kind()]
}

func scoreTyping(final *models.FinalizedSession, idx []int) models.ScoredSection {
	var s models.ScoredSection
	wpmTotal, accTotal := 0, 0
	for _, i := range idx {
		q := final.Questions[i].(models.TypingPrompt)
		answer := final.Answer(i)
		res := Typing(q.Paragraph, answer, elapsedFor(final, i))
		wpmTotal += res.WPM
		accTotal += res.Accuracy
		s.Details = append(s.Details, models.QuestionDetail{
			QuestionID: q.ID,
			Question:   q.Paragraph,
			UserAnswer: answer,
			Score:      models.IntPtr(res.WPM),
		})
	}
	metrics := models.TypingMetrics{
		WPM:      roundDiv(wpmTotal, len(idx)),
		Accuracy: roundDiv(accTotal, len(idx)),
	}
	s.Typing = &metrics
	// Typing contributes words per minute to the total, not a bounded score.
	s.RawScore = metrics.WPM
	return s
}

func scoreDiscrete(final *models.FinalizedSession, kind models.SectionKind, idx []int, opts MatchOptions) models.ScoredSection {
	s := models.ScoredSection{MaxScore: len(idx)}
	for _, i := range idx {
		var accepted []string
		switch q := final.Questions[i].(type) {
		case models.SentenceCompletion:
			accepted = q.AcceptableAnswers
		case models.FillBlank:
			accepted = []string{q.Answer}
		case models.JumbledSentence:
			accepted = []string{q.Sentence}
		}

		answer := final.Answer(i)
		correct := MatchDiscrete(answer, accepted, opts)
		if correct {
			s.RawScore++
		}
		s.Details = append(s.Details, models.QuestionDetail{
			QuestionID:    final.Questions[i].QuestionID(),
			Question:      final.Questions[i].Prompt(),
			UserAnswer:    answer,
			CorrectAnswer: models.StringPtr(strings.Join(accepted, " / ")),
			IsCorrect:     models.BoolPtr(correct),
		})
	}
	return s
}

func scorePassages(final *models.FinalizedSession, idx []int) models.ScoredSection {
	s := models.ScoredSection{MaxScore: MaxPassageScore * len(idx)}
	for _, i := range idx {
		q := final.Questions[i].(models.PassagePrompt)
		answer := final.Answer(i)
		res := Passage(q.Text, answer)
		s.RawScore += res.Score
		s.Details = append(s.Details, models.QuestionDetail{
			QuestionID:      q.ID,
			Question:        q.Text,
			UserAnswer:      answer,
			Score:           models.IntPtr(res.Score),
			HeuristicScore:  models.IntPtr(res.Score),
			MatchPercentage: models.IntPtr(res.MatchPercentage),
		})
	}
	return s
}

func scoreEmails(final *models.FinalizedSession, idx []int) models.ScoredSection {
	s := models.ScoredSection{MaxScore: MaxEmailScore * len(idx)}
	var feedback []string
	var text []string
	for _, i := range idx {
		q := final.Questions[i].(models.EmailPrompt)
		answer := final.Answer(i)
		res := Email(answer)
		s.RawScore += res.Score
		feedback = append(feedback, res.Feedback)
		text = append(text, answer)
		s.Details = append(s.Details, models.QuestionDetail{
			QuestionID:     q.ID,
			Question:       q.Text,
			UserAnswer:     answer,
			Score:          models.IntPtr(res.Score),
			HeuristicScore: models.IntPtr(res.Score),
		})
	}
	s.Feedback = strings.Join(feedback, " ")
	readability := Readability(strings.Join(text, "\n"))
	s.Readability = &readability
	return s
}

func roundDiv(total, n int) int {
	if n == 0 {
		return 0
	}
	return (total + n/2) / n
}
