package results

import (
	"context"
	"errors"
	"time"

	"github.com/versant-prep/backend/internal/models"
)

var ErrResultNotFound = errors.New("result not found")

// Repository persists result records.
type Repository interface {
	Save(ctx context.Context, rec *models.ResultRecord) (int64, error)
	Get(ctx context.Context, userID, id int64) (*models.ResultRecord, error)
	FindRecent(ctx context.Context, userID int64, testID, fingerprint string, since time.Time) (*models.ResultRecord, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]models.ResultSummary, int, error)
	UpdateSections(ctx context.Context, id int64, sections []models.ScoredSection, total int, status models.EnrichmentStatus) error
}
