package errors

import "fmt"

// maxSuggestDistance is the largest edit distance still worth suggesting.
const maxSuggestDistance = 2

// Suggest returns a "Did you mean" hint naming the candidate closest to
// unknown, or "" when no candidate is within two edits.
func Suggest(unknown string, candidates []string) string {
	if unknown == "" {
		return ""
	}
	best, bestDist := "", maxSuggestDistance+1
	for _, c := range candidates {
		if d := editDistance(unknown, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	// A one-letter key is within two edits of everything short.
	if best == "" || bestDist >= len([]rune(unknown)) {
		return ""
	}
	return fmt.Sprintf("Did you mean '%s'?", best)
}

// editDistance is the Levenshtein distance between a and b over runes.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			sub := prev[j-1]
			if ra[i-1] != rb[j-1] {
				sub++
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, sub)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
