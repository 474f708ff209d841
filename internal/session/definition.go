package session

import "github.com/versant-prep/backend/internal/models"

// Timing is the per-item time budget of a section. ReadSeconds is non-zero
// only for passage reconstruction, whose items open with a reading window
// before the writing window.
type Timing struct {
	ItemSeconds int
	ReadSeconds int
}

// FullTestTimings are the section time budgets of a full test.
func FullTestTimings() map[models.SectionKind]Timing {
	return map[models.SectionKind]Timing{
		models.SectionTyping:                {ItemSeconds: 60},
		models.SectionSentenceCompletion:    {ItemSeconds: 15},
		models.SectionFillBlanks:            {ItemSeconds: 30},
		models.SectionJumbledWords:          {ItemSeconds: 30},
		models.SectionPassageReconstruction: {ItemSeconds: 90, ReadSeconds: 30},
		models.SectionEmailWriting:          {ItemSeconds: 300},
	}
}

// PracticeTimings are the budgets used by single-section practice.
func PracticeTimings() map[models.SectionKind]Timing {
	return map[models.SectionKind]Timing{
		models.SectionTyping:                {ItemSeconds: 60},
		models.SectionSentenceCompletion:    {ItemSeconds: 15},
		models.SectionFillBlanks:            {ItemSeconds: 15},
		models.SectionJumbledWords:          {ItemSeconds: 30},
		models.SectionPassageReconstruction: {ItemSeconds: 90, ReadSeconds: 30},
		models.SectionEmailWriting:          {ItemSeconds: 300},
	}
}
