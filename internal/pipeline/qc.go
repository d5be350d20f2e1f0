package pipeline

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"autoclipper/internal/types"
	"autoclipper/log"
)

// maxRecutShiftSec bounds how far a boundary may move to repair a QC
// violation.
const maxRecutShiftSec = 3.0

// boundaryEpsilon tolerates float jitter when deciding whether a boundary
// sits inside a word.
const boundaryEpsilon = 0.05

// runQC verifies each validated clip's boundaries and duration, repairing
// violations with a bounded recut when possible. QC never forces a clip into
// range: an unrepairable clip fails QC and is excluded from render.
func (p *Pipeline) runQC(ctx context.Context) (*Report, error) {
	report := &Report{Stage: "quality_control"}

	for i := range p.clips {
		clip := &p.clips[i]
		if clip.Stage != types.ClipStageValidated {
			report.add(clip.ClipId, OutcomeSkip, "not validated")
			continue
		}

		outcome := p.qcOne(clip)
		if clip.QcPassed {
			clip.Stage = types.ClipStageQCPassed
		} else {
			clip.Stage = types.ClipStageQCFailed
		}
		report.add(clip.ClipId, outcome.kind, outcome.detail)
	}
	return report, nil
}

type qcOutcome struct {
	kind   Outcome
	detail string
}

// qcOne checks one clip. A clip is valid when neither boundary cuts a word
// and the duration sits inside [min, max]; either violation triggers a
// bounded recut. Word times are clip-local, so a start boundary inside a
// word shows as a word with Start < 0 < End, and an end boundary inside a
// word as Start < duration < End.
func (p *Pipeline) qcOne(clip *types.ClipCandidate) qcOutcome {
	words := clip.Words()
	minSec, maxSec := p.minClipSec(), p.maxClipSec()

	startShift, endShift, ok := planRecut(words, clip.StartSec, clip.EndSec, minSec, maxSec)
	if !ok {
		clip.QcPassed = false
		return qcOutcome{OutcomeFail, fmt.Sprintf("no recut within %.0fs keeps duration in [%.0f, %.0f]", maxRecutShiftSec, minSec, maxSec)}
	}

	newStart := clip.StartSec + startShift
	newEnd := clip.EndSec + endShift

	if startShift != 0 || endShift != 0 {
		clip.StartSec = newStart
		clip.EndSec = newEnd
		clip.RecutApplied = true
		clip.TimingOffset += startShift
		clip.SetWords(shiftWords(words, startShift))
		log.GetLogger().Info("recut applied",
			zap.String("clipId", clip.ClipId),
			zap.Float64("startShift", startShift),
			zap.Float64("endShift", endShift))
	}
	clip.QcPassed = true
	if clip.RecutApplied {
		return qcOutcome{OutcomeOK, "recut applied"}
	}
	return qcOutcome{OutcomeOK, ""}
}

// planRecut picks the smallest pair of boundary shifts that leaves both
// boundaries clear of word interiors and the duration inside [min, max].
// Zero shifts win when the clip is already valid; ok=false when no pair
// within maxRecutShiftSec repairs it.
func planRecut(words []types.WordTiming, startAbs, endAbs, minSec, maxSec float64) (float64, float64, bool) {
	duration := endAbs - startAbs
	startShifts := boundaryShifts(words, 0, startAbs)
	endShifts := boundaryShifts(words, duration, endAbs)

	bestStart, bestEnd := 0.0, 0.0
	bestCost := math.Inf(1)
	for _, s := range startShifts {
		for _, e := range endShifts {
			newDur := duration + e - s
			if newDur < minSec || newDur > maxSec {
				continue
			}
			cost := math.Abs(s) + math.Abs(e)
			if cost < bestCost {
				bestCost = cost
				bestStart, bestEnd = s, e
			}
		}
	}
	if math.IsInf(bestCost, 1) {
		return 0, 0, false
	}
	return bestStart, bestEnd, true
}

// boundaryShifts lists the candidate shifts for one boundary: zero when the
// boundary already sits clear of every word, plus every word edge within
// maxRecutShiftSec. An edge inside another word (overlapping timings) is not
// a usable landing point, nor is one that would move the cut before the
// source start.
func boundaryShifts(words []types.WordTiming, local, absPos float64) []float64 {
	var shifts []float64
	if wordAt(words, local) == nil {
		shifts = append(shifts, 0)
	}
	for _, w := range words {
		for _, edge := range []float64{w.Start, w.End} {
			shift := edge - local
			if shift == 0 || math.Abs(shift) > maxRecutShiftSec {
				continue
			}
			if absPos+shift < 0 {
				continue
			}
			if wordAt(words, edge) != nil {
				continue
			}
			shifts = append(shifts, shift)
		}
	}
	return shifts
}

// wordAt returns the word strictly containing the clip-local position, if
// any.
func wordAt(words []types.WordTiming, pos float64) *types.WordTiming {
	for i := range words {
		w := &words[i]
		if w.Start < pos-boundaryEpsilon && w.End > pos+boundaryEpsilon {
			return w
		}
	}
	return nil
}

func shiftWords(words []types.WordTiming, shift float64) []types.WordTiming {
	if shift == 0 {
		return words
	}
	out := make([]types.WordTiming, len(words))
	for i, w := range words {
		out[i] = types.WordTiming{Word: w.Word, Start: w.Start - shift, End: w.End - shift}
	}
	return out
}
