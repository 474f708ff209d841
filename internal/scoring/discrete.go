package scoring

import "strings"

// MatchOptions tunes discrete answer matching. The zero value is exact,
// case-insensitive matching of trimmed strings.
type MatchOptions struct {
	// MaxEditDistance accepts answers within this many single-rune edits
	// of an accepted answer.
	MaxEditDistance int
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MatchDiscrete reports whether answer equals any accepted answer after
// trimming and case folding. An empty answer never matches.
func MatchDiscrete(answer string, accepted []string, opts MatchOptions) bool {
	a := normalizeAnswer(answer)
	if a == "" {
		return false
	}
	for _, candidate := range accepted {
		c := normalizeAnswer(candidate)
		if a == c {
			return true
		}
		if opts.MaxEditDistance > 0 && levenshtein(a, c) <= opts.MaxEditDistance {
			return true
		}
	}
	return false
}

// levenshtein computes edit distance (insertion, deletion, substitution cost 1).
func levenshtein(a, b string) int {
	ar := []rune(a)
	br := []rune(b)
	n, m := len(ar), len(br)
	if n == 0 {
		return m
	}
	if m == 0 {
		return n
	}
	dp := make([]int, m+1)
	for j := 0; j <= m; j++ {
		dp[j] = j
	}
	for i := 1; i <= n; i++ {
		prev := dp[0]
		dp[0] = i
		for j := 1; j <= m; j++ {
			tmp := dp[j]
			cost := 0
			if ar[i-1] != br[j-1] {
				cost = 1
			}
			dp[j] = min(dp[j]+1, dp[j-1]+1, prev+cost)
			prev = tmp
		}
	}
	return dp[m]
}
