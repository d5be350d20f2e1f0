package pipeline

import (
	"fmt"
	"math"
	"sort"

	"autoclipper/internal/types"
)

// ChooseStrategy picks the segmentation strategy from probe output. Chapter
// segmentation needs at least two chapters to say anything useful about
// structure; a single chapter is just the whole video again.
func ChooseStrategy(probe *types.ProbeResult) types.Strategy {
	if len(probe.Chapters) >= 2 {
		return types.StrategyChapter
	}
	return types.StrategySilence
}

// BuildChapterCandidates turns chapter markers into candidate segments.
// Chapters shorter than minClipSec merge into the following chapter; a short
// final chapter merges backward instead.
func BuildChapterCandidates(chapters []types.Chapter, durationSec, minClipSec float64) []types.CandidateSegment {
	type span struct {
		start, end float64
		title      string
	}

	var spans []span
	for _, ch := range chapters {
		start := math.Max(0, ch.StartSec)
		end := math.Min(durationSec, ch.EndSec)
		if end <= start {
			continue
		}
		spans = append(spans, span{start: start, end: end, title: ch.Title})
	}
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	// Forward merge: a short chapter is absorbed by the next one.
	var merged []span
	for i := 0; i < len(spans); i++ {
		cur := spans[i]
		for cur.end-cur.start < minClipSec && i+1 < len(spans) {
			next := spans[i+1]
			cur.end = next.end
			if cur.title != "" && next.title != "" {
				cur.title = cur.title + " / " + next.title
			} else if cur.title == "" {
				cur.title = next.title
			}
			i++
		}
		merged = append(merged, cur)
	}

	// A short trailing chapter merges into its predecessor.
	if n := len(merged); n >= 2 && merged[n-1].end-merged[n-1].start < minClipSec {
		merged[n-2].end = merged[n-1].end
		if merged[n-1].title != "" {
			merged[n-2].title = merged[n-2].title + " / " + merged[n-1].title
		}
		merged = merged[:n-1]
	}

	var out []types.CandidateSegment
	for _, sp := range merged {
		seg, err := types.NewCandidateSegment(sp.start, sp.end, durationSec, types.StrategyChapter, sp.title)
		if err != nil {
			continue
		}
		out = append(out, seg)
	}
	return finalizeCandidates(out)
}

// speechRun is a maximal region of speech between hard silences. Silences
// shorter than hardBreakSilenceSec stay interior to the run and remain
// available as soft split points later.
type speechRun struct {
	start, end float64
	interior   []float64 // midpoints of interior silences
}

const hardBreakSilenceSec = 1.0

// BuildSilenceCandidates derives candidates from detected silences: the
// speech complements, with any run longer than maxClipSec recursively split
// at the interior silence nearest its midpoint.
func BuildSilenceCandidates(silences []types.SilenceInterval, durationSec, maxClipSec float64) []types.CandidateSegment {
	runs := buildSpeechRuns(silences, durationSec)

	var out []types.CandidateSegment
	for _, run := range runs {
		for _, piece := range splitRun(run, maxClipSec) {
			seg, err := types.NewCandidateSegment(piece.start, piece.end, durationSec, types.StrategySilence,
				fmt.Sprintf("speech %.1fs-%.1fs", piece.start, piece.end))
			if err != nil {
				continue
			}
			out = append(out, seg)
		}
	}
	return finalizeCandidates(out)
}

func buildSpeechRuns(silences []types.SilenceInterval, durationSec float64) []speechRun {
	sorted := append([]types.SilenceInterval(nil), silences...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var runs []speechRun
	cur := speechRun{start: 0}
	for _, sil := range sorted {
		if sil.End <= cur.start {
			continue
		}
		if sil.Start <= cur.start {
			cur.start = math.Max(cur.start, sil.End)
			continue
		}
		if sil.End-sil.Start >= hardBreakSilenceSec {
			// A long silence is a real pause: it closes the run.
			cur.end = sil.Start
			if cur.end > cur.start {
				runs = append(runs, cur)
			}
			cur = speechRun{start: sil.End}
		} else {
			// A short silence is a breath, kept as a soft split point.
			cur.interior = append(cur.interior, (sil.Start+sil.End)/2)
		}
	}
	cur.end = durationSec
	if cur.end > cur.start {
		runs = append(runs, cur)
	}
	return runs
}

type runPiece struct {
	start, end float64
}

// splitRun recursively splits an over-long run at the interior silence
// nearest its midpoint. A run with no usable interior silence is capped at
// maxClipSec from its start instead.
func splitRun(run speechRun, maxClipSec float64) []runPiece {
	if run.end-run.start <= maxClipSec {
		return []runPiece{{start: run.start, end: run.end}}
	}

	mid := (run.start + run.end) / 2
	best := -1.0
	for _, p := range run.interior {
		if p <= run.start || p >= run.end {
			continue
		}
		if best < 0 || math.Abs(p-mid) < math.Abs(best-mid) {
			best = p
		}
	}
	if best < 0 {
		return []runPiece{{start: run.start, end: run.start + maxClipSec}}
	}

	left := speechRun{start: run.start, end: best, interior: interiorWithin(run.interior, run.start, best)}
	right := speechRun{start: best, end: run.end, interior: interiorWithin(run.interior, best, run.end)}
	return append(splitRun(left, maxClipSec), splitRun(right, maxClipSec)...)
}

func interiorWithin(points []float64, start, end float64) []float64 {
	var out []float64
	for _, p := range points {
		if p > start && p < end {
			out = append(out, p)
		}
	}
	return out
}

// FallbackCandidate covers sources with neither chapters nor silences.
func FallbackCandidate(durationSec, maxClipSec float64) []types.CandidateSegment {
	end := math.Min(durationSec, maxClipSec)
	seg, err := types.NewCandidateSegment(0, end, durationSec, types.StrategySilence, "whole video fallback")
	if err != nil {
		return nil
	}
	return finalizeCandidates([]types.CandidateSegment{seg})
}

// finalizeCandidates sorts chronologically, drops duplicates and assigns the
// immutable RawIndex positions.
func finalizeCandidates(segments []types.CandidateSegment) []types.CandidateSegment {
	sort.Slice(segments, func(i, j int) bool {
		if segments[i].StartSec != segments[j].StartSec {
			return segments[i].StartSec < segments[j].StartSec
		}
		return segments[i].EndSec < segments[j].EndSec
	})

	var out []types.CandidateSegment
	for _, seg := range segments {
		if n := len(out); n > 0 && out[n-1].StartSec == seg.StartSec && out[n-1].EndSec == seg.EndSec {
			continue
		}
		out = append(out, seg)
	}
	for i := range out {
		out[i].RawIndex = i
	}
	return out
}
