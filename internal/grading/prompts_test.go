package grading

import (
	"strings"
	"testing"
)

func TestBuildPassageBatchPrompt(t *testing.T) {
	prompt := BuildPassageBatchPrompt([]PassageItem{
		{Original: "The meeting moved.", Response: "Meeting moved"},
		{Original: "Lunch is served.", Response: "Lunch"},
	})

	if countItems(prompt) != 2 {
		t.Errorf("expected 2 item markers, got %d", countItems(prompt))
	}
	if !strings.Contains(prompt, `Original: "The meeting moved."`) {
		t.Error("expected quoted original text")
	}
	if !strings.Contains(prompt, "exactly 2 objects") {
		t.Error("expected item count instruction")
	}
}

func TestBuildEmailPrompt_QuotesInput(t *testing.T) {
	prompt := BuildEmailPrompt("Ask for leave", `He said "hi"`)
	if !strings.Contains(prompt, `Student Response: "He said \"hi\""`) {
		t.Errorf("expected escaped response, got %q", prompt)
	}
}

func TestSystemPromptsDemandJSON(t *testing.T) {
	if !strings.Contains(EmailSystemPrompt(), "JSON object") {
		t.Error("email prompt must ask for a JSON object")
	}
	if !strings.Contains(PassageSystemPrompt(), "JSON ARRAY") {
		t.Error("passage prompt must ask for a JSON array")
	}
}
