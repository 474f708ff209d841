package results

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/versant-prep/backend/internal/models"
)

// memoryRepository keeps results in process for tests. Records are
// deep-copied on the way in and out so callers never share section slices
// with the store.
type memoryRepository struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]*models.ResultRecord
	saves   int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{records: make(map[int64]*models.ResultRecord)}
}

func cloneRecord(rec *models.ResultRecord) *models.ResultRecord {
	out := *rec
	data, _ := json.Marshal(rec.Sections)
	out.Sections = nil
	_ = json.Unmarshal(data, &out.Sections)
	return &out
}

func (m *memoryRepository) Save(ctx context.Context, rec *models.ResultRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.saves++
	stored := cloneRecord(rec)
	stored.ID = m.nextID
	m.records[stored.ID] = stored
	return stored.ID, nil
}

func (m *memoryRepository) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *memoryRepository) Get(ctx context.Context, userID, id int64) (*models.ResultRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok || rec.UserID != userID {
		return nil, ErrResultNotFound
	}
	return cloneRecord(rec), nil
}

func (m *memoryRepository) FindRecent(ctx context.Context, userID int64, testID, fingerprint string, since time.Time) (*models.ResultRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *models.ResultRecord
	for _, rec := range m.records {
		if rec.UserID != userID || rec.TestID != testID || rec.Fingerprint != fingerprint || !rec.Timestamp.After(since) {
			continue
		}
		if best == nil || rec.Timestamp.After(best.Timestamp) {
			best = rec
		}
	}
	if best == nil {
		return nil, ErrResultNotFound
	}
	return cloneRecord(best), nil
}

func (m *memoryRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]models.ResultSummary, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []models.ResultSummary
	for _, rec := range m.records {
		if rec.UserID != userID {
			continue
		}
		all = append(all, models.ResultSummary{
			ID:               rec.ID,
			TestID:           rec.TestID,
			Mode:             rec.Mode,
			TotalScore:       rec.TotalScore,
			EnrichmentStatus: rec.EnrichmentStatus,
			Timestamp:        rec.Timestamp,
		})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Timestamp.Equal(all[j].Timestamp) {
			return all[i].ID > all[j].ID
		}
		return all[i].Timestamp.After(all[j].Timestamp)
	})

	total := len(all)
	if offset >= total {
		return []models.ResultSummary{}, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func (m *memoryRepository) UpdateSections(ctx context.Context, id int64, sections []models.ScoredSection, total int, status models.EnrichmentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return ErrResultNotFound
	}
	patched := cloneRecord(&models.ResultRecord{Sections: sections})
	rec.Sections = patched.Sections
	rec.TotalScore = total
	rec.EnrichmentStatus = status
	return nil
}
