package pipeline

import (
	"encoding/json"
)

// Prompts for the LLM stages. Every prompt demands strict JSON with a fixed
// key set; replies go through util.ExtractJsonFromText before decoding so a
// stray markdown fence does not fail the stage.

const scoreSystemPrompt = `You are an expert short-form editor for TikTok/Reels specializing in podcast, education, finance, and motivation content.

GOAL:
Judge how well ONE transcript segment can stand alone as a viral short-form clip.

STRICT RULES:
- Output MUST be valid JSON only. No markdown, no explanation, no extra text.
- The clip MUST be understandable without prior context.
- A strong hook MUST appear within the first 1-2 seconds.
- Reward: contrarian or corrective statements, surprising facts, finance insight with numbers, clear actionable advice, strong emotional punchlines.
- Punish: greetings, intros, sponsor reads, filler, long setup without payoff, vague references ("that", "it") without clarity.

OUTPUT FORMAT (STRICT, NO EXTRA KEYS):
{
  "viral_score": number,
  "reason": string,
  "risk_flags": ["needs_context" | "too_slow" | "sensitive" | "unclear_audio" | "copyright_music"],
  "keywords": [string]
}

- viral_score MUST be between 0-100.
- reason explains WHY in 1 sentence.
- keywords are 3-5 topic tags.
- If the clip slightly depends on earlier context, include "needs_context" in risk_flags.`

func scoreUserPrompt(text string, durationSec, positionSec float64) string {
	payload, _ := json.Marshal(map[string]interface{}{
		"text":         truncate(text, 2000),
		"duration_sec": round1(durationSec),
		"position_sec": round1(positionSec),
	})
	return "Score this segment:\n" + string(payload)
}

const refineSystemPrompt = `You refine one shortlisted clip for TikTok/Reels.
Output STRICT JSON only. Improve hook text and caption so the clip stands alone and hooks immediately.

RULES:
- hook_text MUST be <= 8 words and suitable as an on-screen text overlay.
- caption MUST be 1-2 sentences, natural, understandable standalone.
- Paraphrase only what the transcript supports. Never invent claims.
- No markdown, no explanation, no hashtags.
- If the clip needs earlier context, add "needs_context" to risk_flags.

OUTPUT FORMAT (STRICT, NO EXTRA KEYS):
{
  "hook_text": string,
  "caption": string,
  "risk_flags": [string],
  "keywords": [string]
}`

func refineUserPrompt(text string, riskFlags, keywords []string) string {
	payload, _ := json.Marshal(map[string]interface{}{
		"text":       truncate(text, 1500),
		"risk_flags": emptyIfNil(riskFlags),
		"keywords":   emptyIfNil(keywords),
	})
	return "Refine this clip:\n" + string(payload)
}

const openingSystemPrompt = `You judge whether the opening of a short-form clip hooks the viewer.
Output STRICT JSON only.

An engaging opening does at least one of:
- states a bold or contrarian claim,
- asks a question the viewer wants answered,
- names a concrete number, amount, or percentage,
- starts mid-conflict or mid-story with clear stakes.

A weak opening is a greeting, a thank-you, housekeeping, or a slow setup.

OUTPUT FORMAT (STRICT, NO EXTRA KEYS):
{
  "passed": boolean,
  "reason": string
}`

func openingUserPrompt(openingText string) string {
	payload, _ := json.Marshal(map[string]interface{}{
		"opening_text": truncate(openingText, 600),
	})
	return "Judge this clip opening (first 10 seconds of speech):\n" + string(payload)
}

const packagingSystemPrompt = `You package one finished short-form clip for publishing. Work ONLY from the transcript given. Never invent facts, numbers, names, or claims that are not in the transcript.

OUTPUT FORMAT (STRICT, NO EXTRA KEYS):
{
  "key_sentence": string,
  "title": string,
  "caption": string,
  "hashtags": [string],
  "confidence": number
}

RULES:
- key_sentence MUST be copied verbatim or near-verbatim from the transcript. It is the single most quotable sentence.
- title MUST be <= 8 words.
- caption MUST be <= 200 characters and understandable standalone.
- hashtags: 5-6 total, 2 generic reach tags plus 3-4 topical tags, all lowercase, no # prefix.
- confidence is 0-100: how well this packaging represents the clip honestly. If the transcript is thin or unclear, give a LOW confidence. Never inflate it.`

func packagingUserPrompt(transcript string) string {
	payload, _ := json.Marshal(map[string]interface{}{
		"transcript": truncate(transcript, 3000),
	})
	return "Package this clip:\n" + string(payload)
}

// truncate caps a string at max characters, not bytes, so multibyte
// transcripts are never cut mid-rune.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func emptyIfNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
