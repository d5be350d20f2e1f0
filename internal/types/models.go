package types

import (
	"encoding/json"
	"time"
)

// SourceVideo is a submitted source video and its pipeline run state.
type SourceVideo struct {
	ID           uint   `gorm:"primarykey"`
	VideoId      string `gorm:"type:varchar(64);uniqueIndex;not null"`
	SourceRef    string `gorm:"type:varchar(1024);not null"`
	Title        string `gorm:"type:varchar(512)"`
	Uploader     string `gorm:"type:varchar(256)"`
	DurationSec  float64
	ChaptersJson string      `gorm:"type:text"`
	Strategy     Strategy    `gorm:"type:varchar(16)"`
	Status       VideoStatus `gorm:"type:varchar(32);not null"`
	ErrorMessage string      `gorm:"type:text"`
	Generation   int         `gorm:"not null;default:0"`

	// Per-video overrides of the pipeline defaults. Zero means use config.
	ClipsPerVideo int
	MinClipSec    float64
	MaxClipSec    float64
	TargetClipSec float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SourceVideo) TableName() string {
	return "videos"
}

func (v *SourceVideo) Chapters() []Chapter {
	if v.ChaptersJson == "" {
		return nil
	}
	var out []Chapter
	if err := json.Unmarshal([]byte(v.ChaptersJson), &out); err != nil {
		return nil
	}
	return out
}

func (v *SourceVideo) SetChapters(chapters []Chapter) {
	if len(chapters) == 0 {
		v.ChaptersJson = ""
		return
	}
	data, _ := json.Marshal(chapters)
	v.ChaptersJson = string(data)
}

// ClipCandidate is one candidate segment and everything the pipeline has
// learned about it. One row per candidate per generation.
type ClipCandidate struct {
	ID         uint   `gorm:"primarykey"`
	ClipId     string `gorm:"type:varchar(64);uniqueIndex;not null"`
	VideoId    string `gorm:"type:varchar(64);index;not null"`
	Generation int    `gorm:"not null"`
	RawIndex   int    `gorm:"not null"`

	StartSec   float64
	EndSec     float64
	Source     Strategy `gorm:"type:varchar(16)"`
	SourceInfo string   `gorm:"type:varchar(512)"`

	TranscriptPass1 string `gorm:"type:text"`
	TranscriptPass2 string `gorm:"type:text"`
	WordTimingJson  string `gorm:"type:text"`

	ViralScore     int
	FinalScore     float64
	ScoreRationale string `gorm:"type:text"`
	DiversityKey   string `gorm:"type:text"`
	RiskFlagsJson  string `gorm:"type:text"`
	KeywordsJson   string `gorm:"type:text"`

	HookText             string `gorm:"type:varchar(512)"`
	Caption              string `gorm:"type:varchar(1024)"`
	KeySentence          string `gorm:"type:varchar(1024)"`
	HashtagsJson         string `gorm:"type:text"`
	PackagingConfidence  int
	OpeningValidated     bool
	OpeningInvalidReason string `gorm:"type:varchar(512)"`

	QcPassed     bool
	RecutApplied bool
	TimingOffset float64

	Stage        ClipStage    `gorm:"type:varchar(32);not null"`
	RenderStatus RenderStatus `gorm:"type:varchar(16)"`
	RenderError  string       `gorm:"type:text"`
	FileRef      string       `gorm:"type:varchar(1024)"`
	ThumbRef     string       `gorm:"type:varchar(1024)"`
	SubtitleRef  string       `gorm:"type:varchar(1024)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ClipCandidate) TableName() string {
	return "clip_candidates"
}

func (c *ClipCandidate) Duration() float64 {
	return c.EndSec - c.StartSec
}

func (c *ClipCandidate) Words() []WordTiming {
	if c.WordTimingJson == "" {
		return nil
	}
	var out []WordTiming
	if err := json.Unmarshal([]byte(c.WordTimingJson), &out); err != nil {
		return nil
	}
	return out
}

func (c *ClipCandidate) SetWords(words []WordTiming) {
	if len(words) == 0 {
		c.WordTimingJson = ""
		return
	}
	data, _ := json.Marshal(words)
	c.WordTimingJson = string(data)
}

func (c *ClipCandidate) Keywords() []string {
	return decodeStringList(c.KeywordsJson)
}

func (c *ClipCandidate) SetKeywords(keywords []string) {
	c.KeywordsJson = encodeStringList(keywords)
}

func (c *ClipCandidate) RiskFlags() []string {
	return decodeStringList(c.RiskFlagsJson)
}

func (c *ClipCandidate) SetRiskFlags(flags []string) {
	c.RiskFlagsJson = encodeStringList(flags)
}

func (c *ClipCandidate) Hashtags() []string {
	return decodeStringList(c.HashtagsJson)
}

func (c *ClipCandidate) SetHashtags(tags []string) {
	c.HashtagsJson = encodeStringList(tags)
}

func decodeStringList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func encodeStringList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	data, _ := json.Marshal(items)
	return string(data)
}
