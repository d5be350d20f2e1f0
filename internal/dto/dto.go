package dto

// SubmitVideoReq starts a production run for one source video.
type SubmitVideoReq struct {
	Url           string  `json:"url" binding:"required"`
	ClipsPerVideo int     `json:"clips_per_video,omitempty"`
	MinClipSec    float64 `json:"min_clip_sec,omitempty"`
	MaxClipSec    float64 `json:"max_clip_sec,omitempty"`
	TargetClipSec float64 `json:"target_clip_sec,omitempty"`
}

type SubmitVideoResp struct {
	VideoId string `json:"video_id"`
}

type VideoResp struct {
	VideoId      string  `json:"video_id"`
	SourceRef    string  `json:"source_ref"`
	Title        string  `json:"title"`
	Uploader     string  `json:"uploader"`
	DurationSec  float64 `json:"duration_sec"`
	Strategy     string  `json:"strategy"`
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message,omitempty"`
	Generation   int     `json:"generation"`
	CreatedAt    string  `json:"created_at"`
}

type ClipResp struct {
	ClipId              string   `json:"clip_id"`
	StartSec            float64  `json:"start_sec"`
	EndSec              float64  `json:"end_sec"`
	Stage               string   `json:"stage"`
	ViralScore          int      `json:"viral_score"`
	FinalScore          float64  `json:"final_score"`
	ScoreRationale      string   `json:"score_rationale,omitempty"`
	HookText            string   `json:"hook_text,omitempty"`
	Caption             string   `json:"caption,omitempty"`
	KeySentence         string   `json:"key_sentence,omitempty"`
	Hashtags            []string `json:"hashtags,omitempty"`
	Keywords            []string `json:"keywords,omitempty"`
	RiskFlags           []string `json:"risk_flags,omitempty"`
	PackagingConfidence int      `json:"packaging_confidence"`
	OpeningValidated    bool     `json:"opening_validated"`
	QcPassed            bool     `json:"qc_passed"`
	RecutApplied        bool     `json:"recut_applied"`
	RenderStatus        string   `json:"render_status"`
	RenderError         string   `json:"render_error,omitempty"`
	FileRef             string   `json:"file_ref,omitempty"`
	ThumbRef            string   `json:"thumb_ref,omitempty"`
	SubtitleRef         string   `json:"subtitle_ref,omitempty"`
}

// ProgressEvent is one websocket frame on the progress stream.
type ProgressEvent struct {
	VideoId string `json:"video_id"`
	Status  string `json:"status"`
}
