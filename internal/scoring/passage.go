package scoring

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

const MaxPassageScore = 10

var keywordPattern = regexp.MustCompile(`\b[a-z]{4,}\b`)

type PassageResult struct {
	Score           int
	MatchPercentage int
}

// Passage scores a reconstruction by how many distinct keywords (four or
// more letters) of the original it retains. Containment is by substring,
// so a keyword embedded in a longer word still counts.
func Passage(original, reconstruction string) PassageResult {
	if utf8.RuneCountInString(reconstruction) < 5 {
		return PassageResult{}
	}
	recon := strings.ToLower(reconstruction)

	keywords := uniqueKeywords(original)
	ratio := 0.0
	if len(keywords) > 0 {
		matched := 0
		for _, w := range keywords {
			if strings.Contains(recon, w) {
				matched++
			}
		}
		ratio = float64(matched) / float64(len(keywords))
	}

	return PassageResult{
		Score:           passageBand(ratio),
		MatchPercentage: int(math.Round(ratio * 100)),
	}
}

func passageBand(ratio float64) int {
	switch {
	case ratio > 0.6:
		return 10
	case ratio > 0.4:
		return 8
	case ratio > 0.25:
		return 5
	case ratio > 0.1:
		return 3
	default:
		return 1
	}
}

func uniqueKeywords(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range keywordPattern.FindAllString(strings.ToLower(text), -1) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}
