package dedup

import "strings"

// editorialPrefixes are stripped from titles before comparison.
var editorialPrefixes = []string{"breaking:", "update:", "exclusive:", "report:"}

// NormalizeTitle lowercases a title and drops one leading editorial prefix.
func NormalizeTitle(title string) string {
	title = strings.ToLower(strings.TrimSpace(title))
	for _, prefix := range editorialPrefixes {
		if strings.HasPrefix(title, prefix) {
			title = strings.TrimSpace(title[len(prefix):])
		}
	}
	return title
}

// TitleSimilarity compares two titles after normalization.
func TitleSimilarity(a, b string) float64 {
	return Ratio(NormalizeTitle(a), NormalizeTitle(b))
}

// Ratio is 2*LCS(a,b)/(len(a)+len(b)) over runes. It is symmetric, lies in
// [0,1] and is 1 for identical inputs, including two empty strings.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(lcsLength(ra, rb)) / float64(total)
}

func lcsLength(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
