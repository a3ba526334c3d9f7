package verify

import "strings"

// trigrams returns the set of character 3-grams in s, lower-cased so
// case differences between near-duplicate files don't depress the
// similarity score.
func trigrams(s string) map[string]struct{} {
	runes := []rune(strings.ToLower(s))
	set := make(map[string]struct{})
	if len(runes) < 3 {
		if len(runes) > 0 {
			set[string(runes)] = struct{}{}
		}
		return set
	}
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}

// jaccardSimilarity returns |A∩B| / |A∪B| over a and b's character
// trigram sets.
func jaccardSimilarity(a, b string) float64 {
	setA, setB := trigrams(a), trigrams(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	intersection := 0
	for g := range setA {
		if _, ok := setB[g]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
