package results

import (
	"fmt"
	"sort"
	"strings"

	"github.com/versant-prep/backend/internal/grading"
	"github.com/versant-prep/backend/internal/models"
)

// Aggregate builds the result record for a finalized session. The total is
// the plain sum of section raw scores; typing contributes its words per
// minute, so totals are not on a fixed scale.
func Aggregate(userID int64, final *models.FinalizedSession, sections []models.ScoredSection) *models.ResultRecord {
	rec := &models.ResultRecord{
		UserID:           userID,
		TestID:           final.TestID,
		Mode:             final.Mode,
		Sections:         sections,
		EnrichmentStatus: models.EnrichmentPending,
		Fingerprint:      Fingerprint(final),
		Timestamp:        final.CompletedAt,
	}
	recomputeTotal(rec)
	return rec
}

func recomputeTotal(rec *models.ResultRecord) {
	total := 0
	for _, s := range rec.Sections {
		total += s.RawScore
	}
	rec.TotalScore = total
}

// Enrichment is the decoded output of the remote grading calls for one
// record. A nil outcome leaves its section untouched.
type Enrichment struct {
	Email    *grading.EmailOutcome
	Passages *grading.PassageOutcome
}

// ApplyEnrichment merges enrichment into the matching sections and
// recomputes the total. A section's score changes only where an outcome
// carries a numeric score; otherwise the heuristic score is restored.
// Applying the same enrichment twice leaves the record unchanged.
func ApplyEnrichment(rec *models.ResultRecord, e Enrichment) {
	if e.Email != nil {
		if s := rec.Section(models.SectionEmailWriting); s != nil {
			var score *int
			if e.Email.Err == nil && e.Email.Feedback != nil {
				score = e.Email.Feedback.Score
			}
			applyItemScores(s, []*int{score})
			s.AI = &models.SectionEnrichment{Email: e.Email.Feedback, Error: e.Email.Err}
		}
	}

	if e.Passages != nil {
		if s := rec.Section(models.SectionPassageReconstruction); s != nil {
			scores := make([]*int, len(e.Passages.Items))
			for i, item := range e.Passages.Items {
				scores[i] = item.Score
			}
			applyItemScores(s, scores)
			s.AI = &models.SectionEnrichment{Passages: e.Passages.Items, Error: e.Passages.Err}
		}
	}

	recomputeTotal(rec)
}

// applyItemScores sets each detail's score to the matching override, or
// back to its heuristic score, then re-sums the section.
func applyItemScores(s *models.ScoredSection, overrides []*int) {
	raw := 0
	for i := range s.Details {
		d := &s.Details[i]
		score := 0
		if d.HeuristicScore != nil {
			score = *d.HeuristicScore
		}
		if i < len(overrides) && overrides[i] != nil {
			score = *overrides[i]
		}
		d.Score = models.IntPtr(score)
		raw += score
	}
	s.RawScore = raw
}

// EnrichmentStatusOf summarises the outcome markers of an enrichment.
func EnrichmentStatusOf(e Enrichment) models.EnrichmentStatus {
	if e.Email == nil && e.Passages == nil {
		return models.EnrichmentSkipped
	}
	if (e.Email != nil && e.Email.Err != nil) || (e.Passages != nil && e.Passages.Err != nil) {
		return models.EnrichmentFailed
	}
	return models.EnrichmentComplete
}

// Fingerprint hashes a session's ordered answers with DJB2. Two attempts at
// the same test with the same answers share a fingerprint.
func Fingerprint(final *models.FinalizedSession) string {
	keys := make([]int, 0, len(final.Answers))
	for k := range final.Answers {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%d=%s\x1f", k, strings.TrimSpace(final.Answers[k]))
	}

	var hash uint32 = 5381
	for _, c := range []byte(b.String()) {
		hash = (hash * 33) ^ uint32(c)
	}
	return fmt.Sprintf("%08x", hash)
}
