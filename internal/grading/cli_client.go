package grading

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/versant-prep/backend/internal/logger"
	"go.uber.org/zap"
)

// CLIClient shells out to the claude CLI for local development grading.
// The user prompt is written to stdin and the plain-text reply read back.
type CLIClient struct {
	cliPath string
	model   string
}

func NewCLIClient(cliPath, model string) *CLIClient {
	return &CLIClient{cliPath: cliPath, model: model}
}

func (c *CLIClient) args(systemPrompt string) []string {
	args := []string{
		"--print",
		"--output-format", "text",
		"--system-prompt", systemPrompt,
		"--max-turns", "1",
	}
	if c.model != "" {
		args = append(args, "--model", c.model)
	}
	return args
}

func (c *CLIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, c.cliPath, c.args(systemPrompt)...)
	cmd.Stdin = strings.NewReader(userPrompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("grading CLI failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	logger.Log.Debug("grading: CLI call finished", zap.Duration("elapsed", time.Since(start)))

	content := strings.TrimSpace(stdout.String())
	if content == "" {
		return nil, fmt.Errorf("grading CLI returned empty response")
	}
	return &LLMResponse{Content: content}, nil
}
