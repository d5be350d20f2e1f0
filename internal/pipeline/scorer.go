package pipeline

import (
	"math"
	"regexp"
	"strings"
)

// Heuristic subscores fused with the LLM score. The markers are tuned for
// podcast, education, finance and motivation speech.

var hookMarkers = []string{
	"here's the truth", "most people", "the problem is", "this is why",
	"you're doing it wrong", "the secret", "what nobody tells you",
	"let me be clear", "the real reason", "here's what", "actually",
	"the truth is", "you need to know", "stop doing this", "nobody talks about",
}

var financeMarkers = []string{
	"roi", "return", "inflation", "interest", "compound", "risk",
	"diversify", "volatility", "margin", "leverage", "cashflow",
	"net worth", "yield", "cagr", "valuation", "liquidity", "drawdown",
	"stocks", "investing", "crypto", "bitcoin", "portfolio", "dividend",
}

var actionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(3|three|5|five|7|seven|10|ten)\s+(things|ways|steps|tips|rules)\b`),
	regexp.MustCompile(`\b(how to|steps?|tips?)\b`),
	regexp.MustCompile(`\b(stop|start|avoid|remember|write down|never|always)\b`),
	regexp.MustCompile(`\b(first|second|third)\b`),
}

var payoffMarkers = []string{
	"so the point is", "that's why", "in summary", "the takeaway is",
	"bottom line", "in conclusion", "the key is", "which means",
}

var vagueReferences = []string{"that", "it", "they", "those"}

var numberRe = regexp.MustCompile(`\b\d+(\.\d+)?%?`)

var riskPenalty = map[string]float64{
	"needs_context":   10,
	"too_slow":        10,
	"sensitive":       15,
	"unclear_audio":   10,
	"copyright_music": 8,
}

func hookScore(text string) float64 {
	early := firstWords(strings.ToLower(text), 25)
	score := 0.0
	for _, m := range hookMarkers {
		if strings.Contains(early, m) {
			score += 12
		}
	}
	score += math.Min(10, 2.0*float64(strings.Count(early, "!")))
	score += math.Min(8, 1.5*float64(strings.Count(early, "?")))
	return math.Min(100, score)
}

func financeScore(text string) float64 {
	t := strings.ToLower(text)
	score := math.Min(20, 5.0*float64(len(numberRe.FindAllString(t, -1))))
	for _, m := range financeMarkers {
		if strings.Contains(t, m) {
			score += 8
		}
	}
	return math.Min(100, score)
}

func actionScore(text string) float64 {
	t := strings.ToLower(text)
	score := 0.0
	for _, pat := range actionPatterns {
		if pat.MatchString(t) {
			score += 20
		}
	}
	return math.Min(100, score)
}

func payoffScore(text string) float64 {
	tail := lastWords(strings.ToLower(text), 35)
	score := 0.0
	for _, m := range payoffMarkers {
		if strings.Contains(tail, m) {
			score += 25
		}
	}
	return math.Min(100, score)
}

// clarityScore penalizes vague references and rewards concrete vocabulary.
func clarityScore(text string) float64 {
	t := strings.ToLower(text)
	vague := 0
	for _, v := range vagueReferences {
		vague += countWord(t, v)
	}
	longWords := 0
	for _, w := range strings.Fields(t) {
		if len(w) >= 7 {
			longWords++
		}
	}
	raw := 60 + 2*float64(longWords) - 6*float64(vague)
	return math.Max(0, math.Min(100, raw))
}

// pacingScore is a bell curve around 160 words per minute, the short-form
// sweet spot.
func pacingScore(wordCount int, durationSec float64) float64 {
	if durationSec <= 0 {
		return 0
	}
	wpm := float64(wordCount) / durationSec * 60
	if wpm < 80 || wpm > 240 {
		return 10
	}
	dist := math.Abs(wpm - 160)
	return math.Max(20, math.Min(100, 100-dist/80*80))
}

// fuseScore blends the LLM judgment with the heuristic subscores and
// subtracts the risk penalty. The LLM carries half the weight.
func fuseScore(llmScore float64, text string, riskFlags []string, durationSec float64) float64 {
	wc := len(strings.Fields(text))

	penalty := 0.0
	for _, f := range riskFlags {
		penalty += riskPenalty[f]
	}

	final := 0.50*llmScore +
		0.18*hookScore(text) +
		0.10*financeScore(text) +
		0.08*actionScore(text) +
		0.08*payoffScore(text) +
		0.04*clarityScore(text) +
		0.02*pacingScore(wc, durationSec) -
		penalty
	return math.Max(0, math.Min(100, final))
}

func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}

func lastWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[len(fields)-n:]
	}
	return strings.Join(fields, " ")
}

func countWord(text, word string) int {
	count := 0
	for _, f := range strings.Fields(text) {
		if strings.Trim(f, ".,!?;:\"'") == word {
			count++
		}
	}
	return count
}
