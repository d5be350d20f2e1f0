package util

import (
	"sort"
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// NormalizeTokens lowercases the text, strips punctuation and returns the set
// of distinct tokens. Used as the diversity signature for clip transcripts.
func NormalizeTokens(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, raw := range strings.Fields(strings.ToLower(text)) {
		tok := strings.TrimFunc(raw, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if tok != "" {
			out[tok] = struct{}{}
		}
	}
	return out
}

// TokenSignature renders a normalized token set as a stable string, suitable
// for persisting alongside the candidate for audit.
func TokenSignature(text string) string {
	set := NormalizeTokens(text)
	tokens := make([]string, 0, len(set))
	for tok := range set {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// JaccardSimilarity returns |a∩b| / |a∪b| for two token sets.
func JaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// NearExactSubstring reports whether needle appears in haystack verbatim or
// with at most maxRatio edit distance relative to the needle length. Both
// sides are compared on normalized whitespace and case.
func NearExactSubstring(haystack, needle string, maxRatio float64) bool {
	h := normalizeSpace(haystack)
	n := normalizeSpace(needle)
	if n == "" {
		return false
	}
	if strings.Contains(h, n) {
		return true
	}

	budget := int(maxRatio * float64(len([]rune(n))))
	if budget <= 0 {
		return false
	}

	// Slide a window of the needle's word length over the haystack and take
	// the best edit distance.
	hWords := strings.Fields(h)
	nWords := strings.Fields(n)
	if len(hWords) < len(nWords) {
		return levenshtein.DistanceForStrings([]rune(h), []rune(n), levenshtein.DefaultOptions) <= budget
	}
	for i := 0; i+len(nWords) <= len(hWords); i++ {
		window := strings.Join(hWords[i:i+len(nWords)], " ")
		if levenshtein.DistanceForStrings([]rune(window), []rune(n), levenshtein.DefaultOptions) <= budget {
			return true
		}
	}
	return false
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
