package suggest

import (
	"context"
	"strings"

	"transmission-api/internal/query"
)

// LevenshteinCorrector matches by edit distance against each known name and
// against its model part alone.
type LevenshteinCorrector struct {
	maxDistance int
}

func NewLevenshteinCorrector(maxDistance int) *LevenshteinCorrector {
	if maxDistance <= 0 {
		maxDistance = 3
	}
	return &LevenshteinCorrector{maxDistance: maxDistance}
}

func (l *LevenshteinCorrector) Correct(_ context.Context, text string, known []string) (string, bool, error) {
	q := query.Fold(text)
	if q == "" {
		return "", false, nil
	}

	best, bestDist := "", l.maxDistance+1
	for _, name := range known {
		full := query.Fold(name)
		if d := l.distance(q, full); d < bestDist {
			best, bestDist = name, d
		}
		if _, model, ok := strings.Cut(full, " "); ok {
			if d := l.distance(q, model); d < bestDist {
				best, bestDist = name, d
			}
		}
		if bestDist == 0 {
			break
		}
	}
	if best == "" {
		return "", false, nil
	}
	return best, true, nil
}

// distance is the edit distance, or maxDistance+1 when it exceeds half the
// target length. Short targets would otherwise match almost anything.
func (l *LevenshteinCorrector) distance(q, target string) int {
	d := Levenshtein(q, target)
	if d > len([]rune(target))/2 {
		return l.maxDistance + 1
	}
	return d
}

// Levenshtein computes the rune-wise edit distance between a and b.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}

	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for i := range prev {
		prev[i] = i
	}
	for j := 1; j <= len(rb); j++ {
		curr[0] = j
		for i := 1; i <= len(ra); i++ {
			if ra[i-1] == rb[j-1] {
				curr[i] = prev[i-1]
			} else {
				curr[i] = 1 + min(prev[i-1], prev[i], curr[i-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(ra)]
}
