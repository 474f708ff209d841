package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/versant-prep/backend/internal/models"
)

// PostgresRepository stores results in the test_results table. Sections
// are kept as JSONB so enrichment patches replace them wholesale.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Save(ctx context.Context, rec *models.ResultRecord) (int64, error) {
	sections, err := json.Marshal(rec.Sections)
	if err != nil {
		return 0, fmt.Errorf("marshal sections: %w", err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO test_results (user_id, test_id, mode, total_score, fingerprint, sections, enrichment_status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		 RETURNING id`,
		rec.UserID, rec.TestID, string(rec.Mode), rec.TotalScore, rec.Fingerprint,
		string(sections), string(rec.EnrichmentStatus), rec.Timestamp,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert result: %w", err)
	}
	return id, nil
}

const selectResult = `SELECT id, user_id, test_id, mode, total_score, fingerprint, sections, enrichment_status, created_at FROM test_results`

func scanResult(row *sql.Row) (*models.ResultRecord, error) {
	var rec models.ResultRecord
	var mode, status string
	var sections []byte
	err := row.Scan(&rec.ID, &rec.UserID, &rec.TestID, &mode, &rec.TotalScore,
		&rec.Fingerprint, &sections, &status, &rec.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan result: %w", err)
	}
	if err := json.Unmarshal(sections, &rec.Sections); err != nil {
		return nil, fmt.Errorf("unmarshal sections for result %d: %w", rec.ID, err)
	}
	rec.Mode = models.SessionMode(mode)
	rec.EnrichmentStatus = models.EnrichmentStatus(status)
	return &rec, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, id int64) (*models.ResultRecord, error) {
	return scanResult(r.db.QueryRowContext(ctx, selectResult+` WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *PostgresRepository) FindRecent(ctx context.Context, userID int64, testID, fingerprint string, since time.Time) (*models.ResultRecord, error) {
	return scanResult(r.db.QueryRowContext(ctx,
		selectResult+` WHERE user_id = $1 AND test_id = $2 AND fingerprint = $3 AND created_at > $4
		 ORDER BY created_at DESC LIMIT 1`,
		userID, testID, fingerprint, since))
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]models.ResultSummary, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM test_results WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count results: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, test_id, mode, total_score, enrichment_status, created_at
		 FROM test_results WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	summaries := []models.ResultSummary{}
	for rows.Next() {
		var s models.ResultSummary
		var mode, status string
		if err := rows.Scan(&s.ID, &s.TestID, &mode, &s.TotalScore, &status, &s.Timestamp); err != nil {
			return nil, 0, fmt.Errorf("scan result summary: %w", err)
		}
		s.Mode = models.SessionMode(mode)
		s.EnrichmentStatus = models.EnrichmentStatus(status)
		summaries = append(summaries, s)
	}
	return summaries, total, rows.Err()
}

func (r *PostgresRepository) UpdateSections(ctx context.Context, id int64, sections []models.ScoredSection, total int, status models.EnrichmentStatus) error {
	data, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE test_results SET sections = $2, total_score = $3, enrichment_status = $4, updated_at = NOW() WHERE id = $1`,
		id, string(data), total, string(status))
	if err != nil {
		return fmt.Errorf("update result %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrResultNotFound
	}
	return nil
}
