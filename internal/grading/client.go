package grading

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/versant-prep/backend/internal/logger"
	"go.uber.org/zap"
)

// LLMClient is the interface every grading backend satisfies.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// ── APIClient: Anthropic SDK (production) ──────────────────

type APIClient struct {
	client *anthropic.Client
	model  string
}

func NewAPIClient(apiKey, model string) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &APIClient{client: &client, model: model}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   4096,
		Temperature: param.NewOpt(0.2),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			logger.Log.Warn("grading: retrying Anthropic call",
				zap.Duration("backoff", backoff),
				zap.Int("attempt", attempt+1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		logger.Log.Warn("grading: Anthropic call failed", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── MockClient: local development ──────────────────────────

// MockClient returns canned grading JSON shaped like the real service's
// output. Passage prompts get one item per "[Item n]" marker.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	var content string
	if systemPrompt == PassageSystemPrompt() {
		content = buildMockPassageJSON(countItems(userPrompt))
	} else {
		content = mockEmailJSON
	}
	return &LLMResponse{Content: content, PromptTokens: 400, OutputTokens: 250}, nil
}

const mockEmailJSON = `{"score":7,"cefr_level":"B2","feedback":"[Mock] Clear structure with a polite tone.","corrections":["[Mock] Use 'I am writing to' instead of 'I write to'."],"tone_analysis":"[Mock] Formal and appropriate.","ideal_response":"[Mock] Dear Ms. Smith, ..."}`

func buildMockPassageJSON(n int) string {
	out := "["
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"score":%d,"alignment_percentage":%d,"missing_points":["[Mock] detail %d"],"grammar_feedback":"[Mock] Mostly accurate.","ideal_response":"[Mock] Reconstruction %d."}`,
			6+i%4, 60+5*(i%4), i+1, i+1)
	}
	return out + "]"
}
