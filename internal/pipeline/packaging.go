package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"autoclipper/internal/types"
	"autoclipper/log"
	"autoclipper/pkg/errors"
	"autoclipper/pkg/util"
)

type packagingReply struct {
	KeySentence string   `json:"key_sentence"`
	Title       string   `json:"title"`
	Caption     string   `json:"caption"`
	Hashtags    []string `json:"hashtags"`
	Confidence  float64  `json:"confidence"`
}

// lowConfidenceDefault is recorded when packaging falls back after a
// malformed or ungrounded reply.
const lowConfidenceDefault = 20

// keySentenceDriftRatio is the edit-distance tolerance for accepting a key
// sentence as near-verbatim transcript content.
const keySentenceDriftRatio = 0.2

// runPackaging derives publish metadata from the accurate transcript. A
// malformed or ungrounded reply is a stage-local failure: the clip keeps its
// refined hook and caption, gets a low confidence, and still proceeds to
// render. Confidence is never raised after the fact.
func (p *Pipeline) runPackaging(ctx context.Context) (*Report, error) {
	report := &Report{Stage: "packaging"}

	for i := range p.clips {
		clip := &p.clips[i]
		if clip.Stage != types.ClipStageQCPassed {
			report.add(clip.ClipId, OutcomeSkip, "not qc passed")
			continue
		}

		outcome, detail := p.packageOne(ctx, clip)
		clip.Stage = types.ClipStagePackaged
		report.add(clip.ClipId, outcome, detail)
	}
	return report, nil
}

func (p *Pipeline) packageOne(ctx context.Context, clip *types.ClipCandidate) (Outcome, string) {
	var raw string
	err := util.Retry(ctx, p.opts.RetryAttempts, time.Second, errors.Transient, func() error {
		callCtx, cancel := p.callCtx(ctx)
		defer cancel()
		var callErr error
		raw, callErr = p.collab.Chat.ChatCompletion(callCtx, packagingSystemPrompt,
			packagingUserPrompt(clip.TranscriptPass2))
		return callErr
	})
	if err != nil {
		p.packagingFallback(clip, "packaging call failed: "+err.Error())
		return OutcomeFail, err.Error()
	}

	var reply packagingReply
	if err := json.Unmarshal([]byte(util.ExtractJsonFromText(raw)), &reply); err != nil {
		p.packagingFallback(clip, "unparsable packaging reply")
		return OutcomeFail, "unparsable packaging reply"
	}
	if reply.KeySentence == "" || reply.Title == "" {
		p.packagingFallback(clip, "incomplete packaging reply")
		return OutcomeFail, "incomplete packaging reply"
	}

	// The key sentence must actually occur in the transcript. An invented
	// quote is treated exactly like a malformed reply.
	if !util.NearExactSubstring(clip.TranscriptPass2, reply.KeySentence, keySentenceDriftRatio) {
		p.packagingFallback(clip, "key sentence not grounded in transcript")
		return OutcomeFail, "key sentence not grounded in transcript"
	}

	clip.KeySentence = reply.KeySentence
	clip.HookText = reply.Title
	if reply.Caption != "" {
		clip.Caption = truncate(reply.Caption, 200)
	}
	clip.SetHashtags(reply.Hashtags)
	clip.PackagingConfidence = int(clamp(reply.Confidence, 0, 100))
	return OutcomeOK, ""
}

// packagingFallback keeps whatever the refine stage produced and pins the
// confidence low.
func (p *Pipeline) packagingFallback(clip *types.ClipCandidate, reason string) {
	clip.PackagingConfidence = lowConfidenceDefault
	log.GetLogger().Warn("packaging fell back to refined copy",
		zap.String("clipId", clip.ClipId),
		zap.String("reason", reason))
}
