package questionbank

import (
	"errors"
	"fmt"

	"github.com/versant-prep/backend/internal/logger"
	"github.com/versant-prep/backend/internal/models"
	"go.uber.org/zap"
)

// MaxTests is the number of distinct full tests carved from the bank.
const MaxTests = 20

var (
	ErrInvalidTestID  = errors.New("invalid test id")
	ErrUnknownSection = errors.New("unknown section")
	ErrEmptyPool      = errors.New("question pool is empty")
)

type SectionSize struct {
	Kind models.SectionKind
	Size int
}

// FullTestLayout is the section order and question count of a full test.
var FullTestLayout = []SectionSize{
	{Kind: models.SectionTyping, Size: 1},
	{Kind: models.SectionSentenceCompletion, Size: 10},
	{Kind: models.SectionFillBlanks, Size: 10},
	{Kind: models.SectionJumbledWords, Size: 15},
	{Kind: models.SectionPassageReconstruction, Size: 3},
	{Kind: models.SectionEmailWriting, Size: 1},
}

// FullTestSize is the question count of a full test when no pool is empty.
func FullTestSize() int {
	n := 0
	for _, s := range FullTestLayout {
		n += s.Size
	}
	return n
}

// TestIndexFromID converts a public 1-based test id to a test index.
func TestIndexFromID(testID int) (int, error) {
	idx := testID - 1
	if idx < 0 || idx >= MaxTests {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTestID, testID)
	}
	return idx, nil
}

// LoadQuestions assembles the ordered question list for a full test. Each
// section takes a contiguous chunk of its pool starting at
// (testIndex*size) mod len(pool), wrapping around the end of the pool. An
// empty pool contributes no questions.
func LoadQuestions(testIndex int, pools *Pools) ([]models.Question, error) {
	if testIndex < 0 || testIndex >= MaxTests {
		return nil, fmt.Errorf("%w: index %d", ErrInvalidTestID, testIndex)
	}

	questions := make([]models.Question, 0, FullTestSize())
	for _, s := range FullTestLayout {
		pool := pools.Pool(s.Kind)
		if len(pool) == 0 {
			logger.Log.Warn("questionbank: empty pool, section will have no questions",
				zap.String("section", string(s.Kind)),
				zap.Int("test_index", testIndex))
			continue
		}
		start := (testIndex * s.Size) % max(1, len(pool))
		questions = append(questions, Chunk(pool, start, s.Size)...)
	}
	return questions, nil
}

// Chunk takes count items from pool starting at start, wrapping around.
// An empty pool yields an empty slice.
func Chunk(pool []models.Question, start, count int) []models.Question {
	if len(pool) == 0 || count <= 0 {
		return []models.Question{}
	}
	out := make([]models.Question, count)
	for i := 0; i < count; i++ {
		out[i] = pool[(start+i)%len(pool)]
	}
	return out
}

// DefaultPracticeCount is the number of items a practice page holds.
func DefaultPracticeCount(kind models.SectionKind) int {
	switch kind {
	case models.SectionTyping, models.SectionPassageReconstruction, models.SectionEmailWriting:
		return 1
	default:
		return 20
	}
}

// LoadPracticeSet returns one page of a single section's pool. count is
// capped at the pool size so a page never repeats an item.
func LoadPracticeSet(kind models.SectionKind, pools *Pools, count, page int) ([]models.Question, error) {
	if !models.ValidSections[kind] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, kind)
	}
	pool := pools.Pool(kind)
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPool, kind)
	}
	if count <= 0 {
		count = DefaultPracticeCount(kind)
	}
	count = min(count, len(pool))
	if page < 0 {
		page = 0
	}
	return Chunk(pool, (page*count)%len(pool), count), nil
}
