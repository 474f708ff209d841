package results

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/versant-prep/backend/internal/grading"
	"github.com/versant-prep/backend/internal/logger"
	"github.com/versant-prep/backend/internal/metrics"
	"github.com/versant-prep/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Grader is the remote grading surface the enricher depends on.
type Grader interface {
	GradeEmail(ctx context.Context, promptText, response string) grading.EmailOutcome
	GradePassages(ctx context.Context, items []grading.PassageItem) grading.PassageOutcome
}

// Enricher consumes enrichment requests one at a time, grades the
// free-text sections of the referenced result and patches it in place.
type Enricher struct {
	subscriber message.Subscriber
	topic      string
	repo       Repository
	grader     Grader
	limiter    *rate.Limiter
}

// NewEnricher paces grading calls at most one per delay.
func NewEnricher(subscriber message.Subscriber, topic string, repo Repository, grader Grader, delay time.Duration) *Enricher {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Enricher{
		subscriber: subscriber,
		topic:      topic,
		repo:       repo,
		grader:     grader,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// Start subscribes to the request topic and processes messages in the
// background until ctx is cancelled or the subscriber is closed. The
// returned channel closes when processing stops.
func (e *Enricher) Start(ctx context.Context) (<-chan struct{}, error) {
	messages, err := e.subscriber.Subscribe(ctx, e.topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", e.topic, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range messages {
			e.process(msg)
		}
	}()
	return done, nil
}

func (e *Enricher) process(msg *message.Message) {
	req, err := decodeEnrichmentMessage(msg)
	if err != nil {
		logger.Log.Error("[enricher] dropping malformed message", zap.Error(err))
		msg.Ack()
		return
	}

	if err := e.Handle(msg.Context(), req); err != nil {
		logger.Log.Error("[enricher] enrichment failed",
			zap.Int64("result_id", req.ResultID), zap.Error(err))
	}
	msg.Ack()
}

// Handle enriches one stored result. The email is graded first, then all
// passage reconstructions in a single batch.
func (e *Enricher) Handle(ctx context.Context, req EnrichmentRequest) error {
	rec, err := e.repo.Get(ctx, req.UserID, req.ResultID)
	if err != nil {
		if errors.Is(err, ErrResultNotFound) {
			logger.Log.Warn("[enricher] result no longer exists", zap.Int64("result_id", req.ResultID))
			return nil
		}
		return fmt.Errorf("load result %d: %w", req.ResultID, err)
	}

	var enrichment Enrichment

	if sec := rec.Section(models.SectionEmailWriting); sec != nil && len(sec.Details) > 0 {
		d := sec.Details[0]
		if strings.TrimSpace(d.UserAnswer) != "" {
			if err := e.limiter.Wait(ctx); err != nil {
				return err
			}
			out := e.grader.GradeEmail(ctx, d.Question, d.UserAnswer)
			recordCall(models.SectionEmailWriting, out.Err)
			enrichment.Email = &out
		}
	}

	if sec := rec.Section(models.SectionPassageReconstruction); sec != nil {
		items := make([]grading.PassageItem, len(sec.Details))
		answered := false
		for i, d := range sec.Details {
			items[i] = grading.PassageItem{Original: d.Question, Response: d.UserAnswer}
			if strings.TrimSpace(d.UserAnswer) != "" {
				answered = true
			}
		}
		if answered {
			if err := e.limiter.Wait(ctx); err != nil {
				return err
			}
			out := e.grader.GradePassages(ctx, items)
			recordCall(models.SectionPassageReconstruction, out.Err)
			enrichment.Passages = &out
		}
	}

	ApplyEnrichment(rec, enrichment)
	rec.EnrichmentStatus = EnrichmentStatusOf(enrichment)

	if err := e.repo.UpdateSections(ctx, rec.ID, rec.Sections, rec.TotalScore, rec.EnrichmentStatus); err != nil {
		return fmt.Errorf("store enrichment for result %d: %w", rec.ID, err)
	}

	logger.Log.Info("[enricher] result enriched",
		zap.Int64("result_id", rec.ID),
		zap.String("status", string(rec.EnrichmentStatus)),
		zap.Int("total_score", rec.TotalScore))
	return nil
}

func recordCall(section models.SectionKind, err *models.EnrichmentError) {
	status := "ok"
	if err != nil {
		status = err.Error
	}
	metrics.EnrichmentCalls.WithLabelValues(string(section), status).Inc()
}
