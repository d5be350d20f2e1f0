package pipeline

import (
	"strconv"
	"strings"

	"autoclipper/internal/types"
	"autoclipper/pkg/util"
)

// BuildSRT renders word timings as one-word-per-line uppercase SRT, the
// karaoke style burned into the portrait render. Words outside [0, duration]
// are clipped to the visible range; zero-length cues are dropped.
func BuildSRT(words []types.WordTiming, durationSec float64) string {
	var b strings.Builder
	index := 1
	for _, w := range words {
		start := w.Start
		end := w.End
		if end <= 0 || start >= durationSec {
			continue
		}
		if start < 0 {
			start = 0
		}
		if end > durationSec {
			end = durationSec
		}
		if end-start <= 0.01 {
			continue
		}

		text := strings.ToUpper(strings.TrimSpace(w.Word))
		if text == "" {
			continue
		}

		b.WriteString(strconv.Itoa(index))
		b.WriteString("\n")
		b.WriteString(util.FormatSrtTime(start))
		b.WriteString(" --> ")
		b.WriteString(util.FormatSrtTime(end))
		b.WriteString("\n")
		b.WriteString(text)
		b.WriteString("\n\n")
		index++
	}
	return b.String()
}
