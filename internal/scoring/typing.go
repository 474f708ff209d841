package scoring

import (
	"math"
	"strings"
)

type TypingResult struct {
	WPM      int
	Accuracy int
}

// Typing scores a typing attempt. Words are matched by position, so an
// early skipped word shifts every later word out of alignment. Accuracy
// compares input characters against the same-length prefix of the
// reference. elapsedSeconds is floored at one second.
func Typing(reference, input string, elapsedSeconds int) TypingResult {
	if strings.TrimSpace(input) == "" {
		return TypingResult{}
	}

	refWords := strings.Fields(reference)
	inWords := strings.Fields(input)
	correctWords := 0
	for i := 0; i < len(refWords) && i < len(inWords); i++ {
		if refWords[i] == inWords[i] {
			correctWords++
		}
	}

	elapsed := float64(max(elapsedSeconds, 1))
	wpm := int(math.Round(float64(correctWords) / (elapsed / 60)))

	ref := []rune(reference)
	in := []rune(input)
	correctChars := 0
	for i, r := range in {
		if i < len(ref) && ref[i] == r {
			correctChars++
		}
	}
	accuracy := int(math.Round(float64(correctChars) / float64(len(in)) * 100))

	return TypingResult{WPM: wpm, Accuracy: accuracy}
}
