package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"autoclipper/internal/types"
	"autoclipper/log"
	"autoclipper/pkg/errors"
	"autoclipper/pkg/util"
)

type refineReply struct {
	HookText  string   `json:"hook_text"`
	Caption   string   `json:"caption"`
	RiskFlags []string `json:"risk_flags"`
	Keywords  []string `json:"keywords"`
}

type openingReply struct {
	Passed bool   `json:"passed"`
	Reason string `json:"reason"`
}

// openingWindowSec bounds the opening validation window: only words ending
// within the first ten seconds count as the opening.
const openingWindowSec = 10.0

// openingSkipBelowSec exempts short clips from opening validation; under
// thirty seconds the whole clip effectively is the opening.
const openingSkipBelowSec = 30.0

// runRefine polishes hook and caption from the accurate transcript, then
// judges the opening. Neither step ever drops a clip: refine failure keeps
// the raw transcript fields, validation failure just records the verdict.
func (p *Pipeline) runRefine(ctx context.Context) (*Report, error) {
	report := &Report{Stage: "refine"}

	for i := range p.clips {
		clip := &p.clips[i]
		if clip.Stage != types.ClipStageShortlisted {
			report.add(clip.ClipId, OutcomeSkip, "not shortlisted")
			continue
		}

		outcome := OutcomeOK
		detail := ""
		if err := p.refineOne(ctx, clip); err != nil {
			// Keep going with unrefined copy.
			outcome = OutcomeFail
			detail = err.Error()
			log.GetLogger().Warn("refine failed, keeping raw copy",
				zap.String("clipId", clip.ClipId), zap.Error(err))
		}
		clip.Stage = types.ClipStageRefined

		p.validateOpening(ctx, clip)
		clip.Stage = types.ClipStageValidated

		report.add(clip.ClipId, outcome, detail)
	}
	return report, nil
}

func (p *Pipeline) refineOne(ctx context.Context, clip *types.ClipCandidate) error {
	var raw string
	err := util.Retry(ctx, p.opts.RetryAttempts, time.Second, errors.Transient, func() error {
		callCtx, cancel := p.callCtx(ctx)
		defer cancel()
		var callErr error
		raw, callErr = p.collab.Chat.ChatCompletion(callCtx, refineSystemPrompt,
			refineUserPrompt(clip.TranscriptPass2, clip.RiskFlags(), clip.Keywords()))
		return callErr
	})
	if err != nil {
		return err
	}

	var reply refineReply
	if err := json.Unmarshal([]byte(util.ExtractJsonFromText(raw)), &reply); err != nil {
		return errors.Wrap(errors.CodeMalformedResponse, "unparsable refine reply", err)
	}
	if reply.HookText != "" {
		clip.HookText = reply.HookText
	}
	if reply.Caption != "" {
		clip.Caption = reply.Caption
	}
	if len(reply.RiskFlags) > 0 {
		clip.SetRiskFlags(reply.RiskFlags)
	}
	if len(reply.Keywords) > 0 {
		clip.SetKeywords(reply.Keywords)
	}
	return nil
}

// validateOpening judges the first seconds of speech. A validation call
// failure counts as a pass: the rubric is advisory and must never cost a
// clip its slot.
func (p *Pipeline) validateOpening(ctx context.Context, clip *types.ClipCandidate) {
	if clip.Duration() < openingSkipBelowSec {
		clip.OpeningValidated = true
		clip.OpeningInvalidReason = ""
		return
	}

	opening := openingText(clip.Words(), openingWindowSec)
	if opening == "" {
		clip.OpeningValidated = false
		clip.OpeningInvalidReason = "no speech in opening window"
		return
	}

	var raw string
	err := util.Retry(ctx, p.opts.RetryAttempts, time.Second, errors.Transient, func() error {
		callCtx, cancel := p.callCtx(ctx)
		defer cancel()
		var callErr error
		raw, callErr = p.collab.Chat.ChatCompletion(callCtx, openingSystemPrompt, openingUserPrompt(opening))
		return callErr
	})
	if err != nil {
		log.GetLogger().Warn("opening validation unavailable, passing by default",
			zap.String("clipId", clip.ClipId), zap.Error(err))
		clip.OpeningValidated = true
		return
	}

	var reply openingReply
	if err := json.Unmarshal([]byte(util.ExtractJsonFromText(raw)), &reply); err != nil {
		clip.OpeningValidated = true
		return
	}
	clip.OpeningValidated = reply.Passed
	if !reply.Passed {
		clip.OpeningInvalidReason = reply.Reason
	}
}

// openingText joins the words whose end falls inside the opening window.
func openingText(words []types.WordTiming, windowSec float64) string {
	var parts []string
	for _, w := range words {
		if w.End <= 0 {
			continue
		}
		if w.End > windowSec {
			break
		}
		parts = append(parts, w.Word)
	}
	return strings.Join(parts, " ")
}
