package scoring

import (
	"strings"
	"unicode/utf8"
)

const MaxEmailScore = 10

type EmailResult struct {
	Score    int
	Feedback string
}

var (
	greetings        = []string{"dear", "hi ", "hello", "to ", "morning", "afternoon"}
	signOffs         = []string{"sincerely", "regards", "best", "thank you", "thanks", "yours"}
	politePhrases    = []string{"please", "could you", "would you", "appreciate", "kindly", "inquire", "apologize"}
	businessKeywords = []string{"meeting", "attached", "resume", "proposal", "project", "team", "manager", "confirm", "available", "schedule"}
)

// Email scores an email on structure and tone. Each failed check adds a
// sentence of feedback.
func Email(text string) EmailResult {
	// The gate counts raw characters, padding included.
	if utf8.RuneCountInString(text) < 10 {
		return EmailResult{Score: 0, Feedback: "Email is too short or empty."}
	}

	lower := strings.ToLower(text)
	score := 0
	var feedback []string

	if containsAny(lower, greetings) {
		score += 2
	} else {
		feedback = append(feedback, "Missing professional greeting.")
	}

	if containsAny(lower, signOffs) {
		score += 2
	} else {
		feedback = append(feedback, "Missing professional sign-off.")
	}

	switch polite := countContained(lower, politePhrases); {
	case polite >= 2:
		score += 3
	case polite == 1:
		score++
	default:
		feedback = append(feedback, "Tone could be more polite (use 'Please', 'Could you').")
	}

	if len(strings.Fields(text)) > 30 {
		score += 2
	} else {
		feedback = append(feedback, "Email is a bit too brief.")
	}

	if containsAny(lower, businessKeywords) {
		score++
	}

	result := EmailResult{Score: min(score, MaxEmailScore)}
	if len(feedback) == 0 {
		result.Feedback = "Excellent email structure and tone."
	} else {
		result.Feedback = strings.Join(feedback, " ")
	}
	return result
}

func containsAny(s string, phrases []string) bool {
	return countContained(s, phrases) > 0
}

func countContained(s string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		if strings.Contains(s, p) {
			n++
		}
	}
	return n
}
