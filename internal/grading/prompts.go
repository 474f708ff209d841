package grading

import (
	"fmt"
	"strings"
)

// PassageItem pairs a source passage with the test taker's reconstruction.
type PassageItem struct {
	Original string `json:"original"`
	Response string `json:"response"`
}

func EmailSystemPrompt() string {
	return `You are an expert English language examiner using CEFR methodology. You grade workplace emails written by test takers in response to a prompt.

Analyze each response for:
1. Grammar and spelling errors.
2. Tone: formal or informal appropriateness for the situation.
3. Structural completeness: greeting, body and sign-off.
4. CEFR level estimation (A1-C2).

Return ONLY a valid JSON object with this structure, no markdown:
{
  "score": number (0-10),
  "cefr_level": string (e.g. "B2"),
  "feedback": string (concise summary, 1-2 sentences),
  "corrections": ["major specific corrections"],
  "tone_analysis": string,
  "ideal_response": string (a model answer to the same prompt)
}`
}

func BuildEmailPrompt(promptText, userResponse string) string {
	return fmt.Sprintf("Prompt: %q\nStudent Response: %q\n", promptText, userResponse)
}

func PassageSystemPrompt() string {
	return `You are an expert evaluator of passage reconstruction. For each item you receive the original passage and a test taker's reconstruction written from memory.

Evaluate each item on:
1. Key information retention.
2. Sentence structure and grammar.

Return ONLY a valid JSON ARRAY, no markdown, with exactly one object per item in the same order as the items. Schema for each object:
{
  "score": number (0-10),
  "alignment_percentage": number (0-100),
  "missing_points": ["concepts left out"],
  "grammar_feedback": string,
  "ideal_response": string (a high-quality reconstruction capturing all key points)
}`
}

func BuildPassageBatchPrompt(items []PassageItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Compare the student's reconstructions to the original texts for %d items.\n", len(items))
	for i, item := range items {
		fmt.Fprintf(&b, "\n[Item %d]\nOriginal: %q\nStudent: %q\n", i+1, item.Original, item.Response)
	}
	fmt.Fprintf(&b, "\nThe array must contain exactly %d objects.\n", len(items))
	return b.String()
}

// countItems returns the number of "[Item n]" markers in a batch prompt.
func countItems(prompt string) int {
	return strings.Count(prompt, "\n[Item ")
}
