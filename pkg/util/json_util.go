package util

import (
	"regexp"
	"strings"
)

var jsonFenceRe = regexp.MustCompile("(?s)```(?:json)?(.*?)```")

// ExtractJsonFromText tries to find the largest JSON object/array in the text.
// Language models occasionally wrap JSON in markdown fences or prepend prose
// despite being asked for strict JSON; this salvages the payload.
func ExtractJsonFromText(text string) string {
	if matches := jsonFenceRe.FindStringSubmatch(text); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	start := earliestIndex(strings.Index(text, "{"), strings.Index(text, "["))
	if start == -1 {
		return text
	}

	end := latestIndex(strings.LastIndex(text, "}"), strings.LastIndex(text, "]"))
	if end > start {
		return text[start : end+1]
	}
	return text
}

func earliestIndex(a, b int) int {
	if a == -1 {
		return b
	}
	if b == -1 {
		return a
	}
	if a < b {
		return a
	}
	return b
}

func latestIndex(a, b int) int {
	if a > b {
		return a
	}
	return b
}
