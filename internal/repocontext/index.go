package repocontext

import (
	"math"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[A-Za-z][A-Za-z0-9]*`)

// tokenize splits an identifier or free-text query into lowercase
// terms, breaking camelCase and snake_case boundaries so "RetryQueue"
// and "retry queue" index to the same terms.
func tokenize(s string) []string {
	s = strings.ReplaceAll(s, "_", " ")
	var out []string
	for _, word := range tokenPattern.FindAllString(s, -1) {
		out = append(out, splitCamel(word)...)
	}
	return out
}

func splitCamel(word string) []string {
	var parts []string
	var current strings.Builder
	runes := []rune(word)
	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' && !(runes[i-1] >= 'A' && runes[i-1] <= 'Z') {
			parts = append(parts, strings.ToLower(current.String()))
			current.Reset()
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		parts = append(parts, strings.ToLower(current.String()))
	}
	return parts
}

// invertedIndex maps a term to the document (symbol) indices it
// appears in, plus precomputed term frequencies, for TF-IDF scoring.
type invertedIndex struct {
	docTermFreq []map[string]int
	docFreq     map[string]int
	numDocs     int
}

func buildIndex(symbols []Symbol) invertedIndex {
	idx := invertedIndex{
		docTermFreq: make([]map[string]int, len(symbols)),
		docFreq:     make(map[string]int),
		numDocs:     len(symbols),
	}
	for i, sym := range symbols {
		terms := tokenize(sym.Name + " " + sym.Signature)
		freq := make(map[string]int, len(terms))
		seen := make(map[string]bool, len(terms))
		for _, t := range terms {
			freq[t]++
			if !seen[t] {
				idx.docFreq[t]++
				seen[t] = true
			}
		}
		idx.docTermFreq[i] = freq
	}
	return idx
}

// score returns the TF-IDF relevance of document i to the given query terms.
func (idx invertedIndex) score(i int, terms []string) float64 {
	if i >= len(idx.docTermFreq) {
		return 0
	}
	freq := idx.docTermFreq[i]
	var total float64
	for _, term := range terms {
		tf := float64(freq[term])
		if tf == 0 {
			continue
		}
		df := idx.docFreq[term]
		idf := math.Log(float64(idx.numDocs+1) / float64(df+1))
		total += tf * idf
	}
	return total
}
