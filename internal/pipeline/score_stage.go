package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"autoclipper/internal/types"
	"autoclipper/log"
	"autoclipper/pkg/errors"
	"autoclipper/pkg/util"
)

type scoreReply struct {
	ViralScore float64  `json:"viral_score"`
	Reason     string   `json:"reason"`
	RiskFlags  []string `json:"risk_flags"`
	Keywords   []string `json:"keywords"`
}

// runScoring asks the model for a viral score per eligible candidate, fuses
// it with the heuristic subscores, then applies the diversity filter to pick
// the shortlist.
func (p *Pipeline) runScoring(ctx context.Context) (*Report, error) {
	report := &Report{Stage: "scoring"}
	var mu sync.Mutex

	g, gctx := errgroupWithLimit(ctx, p.concurrency())
	for i := range p.clips {
		clip := &p.clips[i]
		if clip.Stage != types.ClipStageCreated {
			report.add(clip.ClipId, OutcomeSkip, "ineligible")
			continue
		}
		if len(clip.TranscriptPass1) < p.opts.MinTranscriptChars {
			clip.Stage = types.ClipStageRejectedNoTranscript
			report.add(clip.ClipId, OutcomeSkip, "transcript too short to score")
			continue
		}
		g.Go(func() error {
			reply, err := p.scoreOne(gctx, clip)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// An unscorable candidate just drops out of contention.
				clip.Stage = types.ClipStageError
				clip.RenderError = err.Error()
				report.add(clip.ClipId, OutcomeFail, err.Error())
				return nil
			}
			clip.ViralScore = int(math.Round(clamp(reply.ViralScore, 0, 100)))
			clip.ScoreRationale = reply.Reason
			clip.SetRiskFlags(reply.RiskFlags)
			clip.SetKeywords(reply.Keywords)
			clip.FinalScore = fuseScore(float64(clip.ViralScore), clip.TranscriptPass1, reply.RiskFlags, clip.Duration())
			clip.DiversityKey = util.TokenSignature(clip.TranscriptPass1)
			clip.Stage = types.ClipStageScored
			report.add(clip.ClipId, OutcomeOK, fmt.Sprintf("score=%d final=%.1f", clip.ViralScore, clip.FinalScore))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.applyDiversityFilter()
	return report, nil
}

func (p *Pipeline) scoreOne(ctx context.Context, clip *types.ClipCandidate) (*scoreReply, error) {
	var raw string
	err := util.Retry(ctx, p.opts.RetryAttempts, time.Second, errors.Transient, func() error {
		callCtx, cancel := p.callCtx(ctx)
		defer cancel()
		var callErr error
		raw, callErr = p.collab.Chat.ChatCompletion(callCtx, scoreSystemPrompt,
			scoreUserPrompt(clip.TranscriptPass1, clip.Duration(), clip.StartSec))
		return callErr
	})
	if err != nil {
		return nil, err
	}

	var reply scoreReply
	if err := json.Unmarshal([]byte(util.ExtractJsonFromText(raw)), &reply); err != nil {
		log.GetLogger().Warn("unparsable score reply",
			zap.String("clipId", clip.ClipId),
			zap.String("raw", truncate(raw, 300)))
		return nil, errors.Wrap(errors.CodeMalformedResponse, "unparsable score reply", err)
	}
	return &reply, nil
}

// applyDiversityFilter greedily keeps the highest scored candidates whose
// pairwise transcript similarity stays under the threshold, up to the
// per-video clip count. Similarity rejects are terminal but stay on the list
// for auditability.
func (p *Pipeline) applyDiversityFilter() {
	scored := lo.Filter(lo.Range(len(p.clips)), func(i int, _ int) bool {
		return p.clips[i].Stage == types.ClipStageScored
	})

	sort.SliceStable(scored, func(a, b int) bool {
		ca, cb := &p.clips[scored[a]], &p.clips[scored[b]]
		if ca.FinalScore != cb.FinalScore {
			return ca.FinalScore > cb.FinalScore
		}
		// Tie-break: closest to the target duration wins.
		target := p.targetClipSec()
		return math.Abs(ca.Duration()-target) < math.Abs(cb.Duration()-target)
	})

	var keptTokens []map[string]struct{}
	kept := 0
	for _, idx := range scored {
		clip := &p.clips[idx]
		if kept >= p.clipsPerVideo() {
			// Beyond the quota: stays SCORED, visible but unselected.
			continue
		}
		tokens := util.NormalizeTokens(clip.TranscriptPass1)
		diverse := true
		for _, existing := range keptTokens {
			if util.JaccardSimilarity(tokens, existing) >= p.opts.SimilarityThreshold {
				diverse = false
				break
			}
		}
		if !diverse {
			clip.Stage = types.ClipStageRejectedDiversity
			continue
		}
		clip.Stage = types.ClipStageShortlisted
		keptTokens = append(keptTokens, tokens)
		kept++
	}

	log.GetLogger().Info("diversity filter applied",
		zap.String("videoId", p.video.VideoId),
		zap.Int("scored", len(scored)),
		zap.Int("shortlisted", kept))
}

func clamp(v, low, high float64) float64 {
	return math.Max(low, math.Min(high, v))
}
