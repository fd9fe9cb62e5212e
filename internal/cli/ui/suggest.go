package ui

import (
	"sort"
	"strings"

	"github.com/weave-lang/weave/internal/weaver/directive"
)

const (
	// maxDistance is the largest edit distance still offered as a suggestion
	maxDistance = 3
	// maxSuggestions caps the number of suggestions shown
	maxSuggestions = 3
)

// FindSimilar returns up to three candidates within edit distance 3 of
// target, closest first. Matching ignores case.
//
// Example:
//
//	FindSimilar("require", []string{"requires", "ensures"}) // ["requires"]
func FindSimilar(target string, candidates []string) []string {
	type match struct {
		value    string
		distance int
	}

	var matches []match
	for _, c := range candidates {
		if d := LevenshteinDistance(strings.ToLower(target), strings.ToLower(c)); d <= maxDistance {
			matches = append(matches, match{c, d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].distance < matches[j].distance })

	out := make([]string, 0, maxSuggestions)
	for i := 0; i < len(matches) && i < maxSuggestions; i++ {
		out = append(out, matches[i].value)
	}
	return out
}

// SuggestDirective proposes known directive names close to name.
func SuggestDirective(name string) []string {
	if name == "" {
		return nil
	}
	return FindSimilar(name, directive.Names())
}

// LevenshteinDistance counts the single-character insertions, deletions and
// substitutions turning a into b.
func LevenshteinDistance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
