package scoring

import (
	"math"
	"regexp"
	"strings"
)

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	syllableGroup = regexp.MustCompile(`(?i)[aeiouy]{1,2}`)
)

// Readability approximates the Flesch reading-ease score of text, clamped
// to [0, 100] and rounded to one decimal. Syllables are estimated from
// vowel groups.
func Readability(text string) float64 {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}

	sentences := 0
	for _, s := range sentenceSplit.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	sentences = max(sentences, 1)

	syllables := len(syllableGroup.FindAllString(text, -1))
	if syllables == 0 {
		syllables = words
	}

	score := 206.835 - 1.015*(float64(words)/float64(sentences)) - 84.6*(float64(syllables)/float64(words))
	score = math.Max(0, math.Min(100, score))
	return math.Round(score*10) / 10
}
