package results

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/versant-prep/backend/internal/logger"
	"github.com/versant-prep/backend/internal/models"
	"github.com/versant-prep/backend/internal/scoring"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Service struct {
	repo      Repository
	guard     Guard
	publisher message.Publisher
	topic     string
	match     scoring.MatchOptions
	window    time.Duration
	now       func() time.Time
}

type ServiceConfig struct {
	Topic        string
	Match        scoring.MatchOptions
	DedupeWindow time.Duration
	Now          func() time.Time
}

func NewService(repo Repository, guard Guard, publisher message.Publisher, cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      repo,
		guard:     guard,
		publisher: publisher,
		topic:     cfg.Topic,
		match:     cfg.Match,
		window:    cfg.DedupeWindow,
		now:       now,
	}
}

// Complete scores a finalized session, stores the result and queues it for
// enrichment. A repeat of the same answers inside the dedupe window returns
// the earlier record flagged as a duplicate and stores nothing. A storage
// failure still returns the heuristic record, unsaved (ID 0) and marked
// failed, so the caller always has a result to show.
func (s *Service) Complete(ctx context.Context, userID int64, final *models.FinalizedSession) (*models.ResultRecord, error) {
	rec := Aggregate(userID, final, scoring.ScoreSession(final, s.match))

	key, dup := s.checkDuplicate(ctx, rec)
	if dup != nil {
		return dup, nil
	}

	id, err := s.repo.Save(ctx, rec)
	if err != nil {
		logger.Log.Error("[service] Complete: result not stored",
			zap.Int64("user_id", userID), zap.String("test_id", rec.TestID), zap.Error(err))
		s.release(ctx, key)
		rec.EnrichmentStatus = models.EnrichmentFailed
		return rec, nil
	}
	rec.ID = id

	if !needsEnrichment(rec) {
		rec.EnrichmentStatus = models.EnrichmentSkipped
		s.updateStatus(ctx, rec)
		return rec, nil
	}

	if err := s.publish(EnrichmentRequest{ResultID: id, UserID: userID}); err != nil {
		logger.Log.Error("[service] Complete: enrichment request not published",
			zap.Int64("result_id", id), zap.Error(err))
		rec.EnrichmentStatus = models.EnrichmentFailed
		s.updateStatus(ctx, rec)
	}
	return rec, nil
}

// checkDuplicate claims the record's dedupe key. It returns the claimed key
// (empty when nothing was claimed) and, when the key was already taken and
// the earlier record is found, that record flagged as a duplicate.
func (s *Service) checkDuplicate(ctx context.Context, rec *models.ResultRecord) (string, *models.ResultRecord) {
	if s.guard == nil || s.window <= 0 {
		return "", nil
	}

	key := dedupeKey(rec.UserID, rec.TestID, rec.Fingerprint)
	claimed, err := s.guard.Claim(ctx, key, s.window)
	if err != nil {
		logger.Log.Warn("[service] dedupe check failed, storing result", zap.Error(err))
		return "", nil
	}
	if claimed {
		return key, nil
	}

	existing, err := s.repo.FindRecent(ctx, rec.UserID, rec.TestID, rec.Fingerprint, s.now().Add(-s.window))
	if err != nil {
		// Nothing earlier to point at, so this attempt is stored.
		if !errors.Is(err, ErrResultNotFound) {
			logger.Log.Warn("[service] duplicate lookup failed", zap.Error(err))
		}
		return "", nil
	}
	existing.Duplicate = true
	logger.Log.Info("[service] duplicate submission",
		zap.Int64("user_id", rec.UserID), zap.Int64("result_id", existing.ID))
	return "", existing
}

func (s *Service) release(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.guard.Release(ctx, key); err != nil {
		logger.Log.Warn("[service] dedupe key not released", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) publish(req EnrichmentRequest) error {
	if s.publisher == nil {
		return errors.New("no publisher configured")
	}
	msg, err := newEnrichmentMessage(req)
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(s.topic, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", s.topic, err)
	}
	return nil
}

func (s *Service) updateStatus(ctx context.Context, rec *models.ResultRecord) {
	if err := s.repo.UpdateSections(ctx, rec.ID, rec.Sections, rec.TotalScore, rec.EnrichmentStatus); err != nil {
		logger.Log.Error("[service] status update failed", zap.Int64("result_id", rec.ID), zap.Error(err))
	}
}

// needsEnrichment reports whether any answered free-text section can be
// sent for remote grading.
func needsEnrichment(rec *models.ResultRecord) bool {
	for _, kind := range []models.SectionKind{models.SectionEmailWriting, models.SectionPassageReconstruction} {
		sec := rec.Section(kind)
		if sec == nil {
			continue
		}
		for _, d := range sec.Details {
			if strings.TrimSpace(d.UserAnswer) != "" {
				return true
			}
		}
	}
	return false
}

func (s *Service) Get(ctx context.Context, userID, id int64) (*models.ResultRecord, error) {
	return s.repo.Get(ctx, userID, id)
}

// List returns one page of a user's results, newest first.
func (s *Service) List(ctx context.Context, userID int64, page, pageSize int) (*models.ResultListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	pageSize = min(pageSize, maxPageSize)

	summaries, total, err := s.repo.ListByUser(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return &models.ResultListResponse{
		Results:  summaries,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}
