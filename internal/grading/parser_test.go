package grading

import (
	"errors"
	"strings"
	"testing"
)

func TestParseEmailFeedback_Valid(t *testing.T) {
	input := `{"score": 8, "cefr_level": "B2", "feedback": "Good.", "corrections": ["a"], "tone_analysis": "Formal", "ideal_response": "Dear..."}`

	fb, err := ParseEmailFeedback(input)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if fb.Score == nil || *fb.Score != 8 {
		t.Errorf("expected score 8, got %v", fb.Score)
	}
	if fb.CEFRLevel != "B2" {
		t.Errorf("expected cefr B2, got %q", fb.CEFRLevel)
	}
	if len(fb.Corrections) != 1 {
		t.Errorf("expected 1 correction, got %d", len(fb.Corrections))
	}
}

func TestParseEmailFeedback_CodeFencesAndProse(t *testing.T) {
	input := "Here is my evaluation:\n```json\n{\"score\": 6, \"feedback\": \"Fine.\"}\n```\nHope this helps!"

	fb, err := ParseEmailFeedback(input)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if *fb.Score != 6 {
		t.Errorf("expected score 6, got %d", *fb.Score)
	}
	if fb.Corrections == nil {
		t.Error("expected empty, non-nil corrections")
	}
}

func TestParseEmailFeedback_FractionalAndOutOfRange(t *testing.T) {
	fb, err := ParseEmailFeedback(`{"score": 7.5, "feedback": "ok"}`)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if *fb.Score != 8 {
		t.Errorf("expected 7.5 to round to 8, got %d", *fb.Score)
	}

	fb, err = ParseEmailFeedback(`{"score": 14, "feedback": "ok"}`)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if *fb.Score != 10 {
		t.Errorf("expected clamp to 10, got %d", *fb.Score)
	}
}

func TestParseEmailFeedback_Invalid(t *testing.T) {
	for _, input := range []string{"not json at all", "{}", `{"score": "high"}`} {
		_, err := ParseEmailFeedback(input)
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Errorf("ParseEmailFeedback(%q): expected ParseError, got %v", input, err)
		}
	}
}

func TestParsePassageFeedback_Valid(t *testing.T) {
	input := "```json\n[" +
		`{"score": 9, "alignment_percentage": 85, "missing_points": [], "grammar_feedback": "g", "ideal_response": "r"},` +
		`{"score": 4, "alignment_percentage": 40, "missing_points": ["x"], "grammar_feedback": "g", "ideal_response": "r"}` +
		"]\n```"

	items, err := ParsePassageFeedback(input, 2)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if *items[0].Score != 9 || *items[1].AlignmentPercentage != 40 {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestParsePassageFeedback_LengthMismatch(t *testing.T) {
	items, err := ParsePassageFeedback(`[{"score": 5}]`, 3)

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected padded length 3, got %d", len(items))
	}
	if items[0].Score == nil || *items[0].Score != 5 {
		t.Errorf("expected first item kept, got %+v", items[0])
	}
	if items[2].Score != nil || items[2].IdealResponse != "AI parsing failed." {
		t.Errorf("expected degraded padding, got %+v", items[2])
	}
}

func TestParsePassageFeedback_Garbage(t *testing.T) {
	items, err := ParsePassageFeedback("I cannot grade this.", 3)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 degraded items, got %d", len(items))
	}
	for i, it := range items {
		if it.Score != nil {
			t.Errorf("item %d: degraded item must not carry a score", i)
		}
	}
}

func TestDegradedEmailFeedback_TruncatesExcerpt(t *testing.T) {
	fb := DegradedEmailFeedback(strings.Repeat("x", 500))
	if fb.Score != nil {
		t.Error("degraded feedback must not carry a score")
	}
	want := "AI feedback could not be parsed structurally. " + strings.Repeat("x", 100) + "..."
	if fb.Feedback != want {
		t.Errorf("unexpected feedback length %d", len(fb.Feedback))
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in, want    string
		open, close byte
	}{
		{"prefix {\"a\":1} suffix", `{"a":1}`, '{', '}'},
		{"[1,2] and more", "[1,2]", '[', ']'},
		{"no delimiters", "no delimiters", '{', '}'},
		{"} backwards {", "} backwards {", '{', '}'},
	}
	for _, tt := range tests {
		if got := extractJSON(tt.in, tt.open, tt.close); got != tt.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
