package grading

import (
	"context"
	"errors"
	"time"

	"github.com/versant-prep/backend/internal/config"
	"github.com/versant-prep/backend/internal/logger"
	"github.com/versant-prep/backend/internal/models"
	"go.uber.org/zap"
)

// EmailOutcome is either feedback, an error marker, or both when a
// response was received but could only be decoded into a degraded default.
type EmailOutcome struct {
	Feedback *models.EmailFeedback
	Err      *models.EnrichmentError
}

type PassageOutcome struct {
	Items []models.PassageFeedback
	Err   *models.EnrichmentError
}

// Grader calls the remote grading service and decodes its responses at the
// boundary. It never returns an error: every failure becomes an
// EnrichmentError marker on the outcome.
type Grader struct {
	llm     LLMClient
	model   string
	timeout time.Duration
}

// NewGrader picks a backend from configuration. Backend "disabled", or
// "anthropic" without an API key, yields a grader that reports a
// configuration error for every call.
func NewGrader(cfg config.GraderConfig) *Grader {
	g := &Grader{timeout: cfg.Timeout}

	switch cfg.Backend {
	case "cli":
		g.llm = NewCLIClient(cfg.CLIPath, "")
		g.model = "claude-cli"
	case "mock":
		g.llm = NewMockClient()
		g.model = "mock"
	case "anthropic":
		if cfg.APIKey == "" {
			logger.Log.Warn("grading: ANTHROPIC_API_KEY is not set, enrichment disabled")
			return g
		}
		g.llm = NewAPIClient(cfg.APIKey, cfg.Model)
		g.model = cfg.Model
	default:
		logger.Log.Info("grading: enrichment disabled", zap.String("backend", cfg.Backend))
		return g
	}

	logger.Log.Info("grading: using backend", zap.String("backend", cfg.Backend), zap.String("model", g.model))
	return g
}

// NewGraderWithClient wraps an existing client.
func NewGraderWithClient(llm LLMClient, timeout time.Duration) *Grader {
	return &Grader{llm: llm, model: "custom", timeout: timeout}
}

func (g *Grader) Enabled() bool {
	return g.llm != nil
}

func (g *Grader) ModelName() string {
	return g.model
}

func configurationError() *models.EnrichmentError {
	return &models.EnrichmentError{
		Error:   ErrKindConfiguration,
		Details: "Grading service API key is missing or invalid.",
	}
}

func (g *Grader) generate(ctx context.Context, systemPrompt, userPrompt string) (*LLMResponse, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return g.llm.Generate(ctx, systemPrompt, userPrompt)
}

// GradeEmail requests structured feedback for one email response.
func (g *Grader) GradeEmail(ctx context.Context, promptText, response string) EmailOutcome {
	if !g.Enabled() {
		return EmailOutcome{Err: configurationError()}
	}

	resp, err := g.generate(ctx, EmailSystemPrompt(), BuildEmailPrompt(promptText, response))
	if err != nil {
		logger.Log.Warn("grading: email evaluation failed", zap.Error(err))
		return EmailOutcome{Err: &models.EnrichmentError{Error: ErrKindEvaluation, Details: err.Error()}}
	}

	feedback, err := ParseEmailFeedback(resp.Content)
	if err != nil {
		logger.Log.Warn("grading: email response not parseable", zap.Error(err))
		return EmailOutcome{
			Feedback: DegradedEmailFeedback(resp.Content),
			Err:      &models.EnrichmentError{Error: ErrKindParse, Details: err.Error()},
		}
	}
	return EmailOutcome{Feedback: feedback}
}

// GradePassages requests feedback for all reconstructions in one call. The
// outcome has exactly one item per input, in order.
func (g *Grader) GradePassages(ctx context.Context, items []PassageItem) PassageOutcome {
	if len(items) == 0 {
		return PassageOutcome{}
	}
	if !g.Enabled() {
		return PassageOutcome{Err: configurationError()}
	}

	resp, err := g.generate(ctx, PassageSystemPrompt(), BuildPassageBatchPrompt(items))
	if err != nil {
		logger.Log.Warn("grading: passage evaluation failed", zap.Int("items", len(items)), zap.Error(err))
		return PassageOutcome{Err: &models.EnrichmentError{Error: ErrKindEvaluation, Details: err.Error()}}
	}

	parsed, err := ParsePassageFeedback(resp.Content, len(items))
	if err != nil {
		var perr *ParseError
		details := err.Error()
		if errors.As(err, &perr) {
			details = perr.Reason
		}
		logger.Log.Warn("grading: passage response not fully parseable", zap.String("reason", details))
		return PassageOutcome{
			Items: parsed,
			Err:   &models.EnrichmentError{Error: ErrKindParse, Details: details},
		}
	}
	return PassageOutcome{Items: parsed}
}
