package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"autoclipper/log"
)

type AppConfig struct {
	DataDir     string `toml:"data_dir"`
	Proxy       string `toml:"proxy"`
	FfmpegPath  string `toml:"ffmpeg_path"`
	FfprobePath string `toml:"ffprobe_path"`
	YtdlpPath   string `toml:"ytdlp_path"`
	CookiesFile string `toml:"cookies_file"`

	ParsedProxy *url.URL `toml:"-"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type LlmConfig struct {
	BaseUrl string `toml:"base_url"`
	ApiKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

type TranscribeConfig struct {
	BaseUrl    string `toml:"base_url"`
	ApiKey     string `toml:"api_key"`
	Pass1Model string `toml:"pass1_model"`
	Pass2Model string `toml:"pass2_model"`
}

type PipelineConfig struct {
	MinClipSec          float64  `toml:"min_clip_sec"`
	MaxClipSec          float64  `toml:"max_clip_sec"`
	TargetClipSec       float64  `toml:"target_clip_sec"`
	ClipsPerVideo       int      `toml:"clips_per_video"`
	SimilarityThreshold float64  `toml:"similarity_threshold"`
	SilenceNoiseDb      float64  `toml:"silence_noise_db"`
	MinSilenceSec       float64  `toml:"min_silence_sec"`
	Concurrency         int      `toml:"concurrency"`
	RetryAttempts       int      `toml:"retry_attempts"`
	CallTimeoutSec      int      `toml:"call_timeout_sec"`
	MinTranscriptChars  int      `toml:"min_transcript_chars"`
	FillerWords         []string `toml:"filler_words"`
}

type RenderConfig struct {
	Width         int    `toml:"width"`
	Height        int    `toml:"height"`
	Crf           int    `toml:"crf"`
	Preset        string `toml:"preset"`
	SubtitleStyle string `toml:"subtitle_style"`
}

type NotifyConfig struct {
	WebhookUrl string `toml:"webhook_url"`
}

type Config struct {
	App        AppConfig        `toml:"app"`
	Server     ServerConfig     `toml:"server"`
	Redis      RedisConfig      `toml:"redis"`
	Llm        LlmConfig        `toml:"llm"`
	Transcribe TranscribeConfig `toml:"transcribe"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
	Render     RenderConfig     `toml:"render"`
	Notify     NotifyConfig     `toml:"notify"`
}

var Conf Config

// resolveConfigPath is swappable in tests.
var resolveConfigPath = func() (string, error) {
	if p := strings.TrimSpace(os.Getenv("AUTOCLIPPER_CONFIG")); p != "" {
		return p, nil
	}
	return filepath.Join("config", "config.toml"), nil
}

func defaultConfig() Config {
	return Config{
		App: AppConfig{
			DataDir:     "data",
			FfmpegPath:  "ffmpeg",
			FfprobePath: "ffprobe",
			YtdlpPath:   "yt-dlp",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8888,
		},
		Llm: LlmConfig{
			Model: "gpt-4o-mini",
		},
		Transcribe: TranscribeConfig{
			Pass1Model: "whisper-1",
			Pass2Model: "whisper-1",
		},
		Pipeline: PipelineConfig{
			MinClipSec:          20,
			MaxClipSec:          75,
			TargetClipSec:       45,
			ClipsPerVideo:       4,
			SimilarityThreshold: 0.7,
			SilenceNoiseDb:      -35,
			MinSilenceSec:       0.35,
			Concurrency:         3,
			RetryAttempts:       3,
			CallTimeoutSec:      120,
			MinTranscriptChars:  50,
			FillerWords: []string{
				"um", "uh", "er", "hmm", "like", "so", "okay", "well", "right",
			},
		},
		Render: RenderConfig{
			Width:  1080,
			Height: 1920,
			Crf:    22,
			Preset: "medium",
			SubtitleStyle: "Alignment=2,Fontname=Arial,FontSize=16,PrimaryColour=&H00FFFF00," +
				"OutlineColour=&H00000000,BorderStyle=1,Outline=1,Shadow=1,MarginV=20",
		},
	}
}

// LoadOrCreateConfig reads the config file, writing a default one first when
// it does not exist. Returns whether the file was created.
func LoadOrCreateConfig() (bool, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return false, err
	}

	created := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		Conf = defaultConfig()
		if err := SaveConfig(); err != nil {
			return false, err
		}
		created = true
	}

	if _, err := toml.DecodeFile(path, &Conf); err != nil {
		return created, fmt.Errorf("decode config %s: %w", path, err)
	}

	if Conf.App.Proxy != "" {
		parsed, err := url.Parse(Conf.App.Proxy)
		if err != nil {
			return created, fmt.Errorf("invalid proxy address %q: %w", Conf.App.Proxy, err)
		}
		Conf.App.ParsedProxy = parsed
	}

	return created, nil
}

// LoadConfig loads the config and logs the outcome. Returns false when the
// server should not continue.
func LoadConfig() bool {
	created, err := LoadOrCreateConfig()
	if err != nil {
		log.GetLogger().Error("failed to load config: " + err.Error())
		return false
	}
	if created {
		path, _ := resolveConfigPath()
		log.GetLogger().Info("created default config, fill in API keys before use: " + path)
		return false
	}
	return true
}

// CheckConfig validates values the pipeline depends on.
func CheckConfig() error {
	if Conf.Llm.ApiKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	if Conf.Transcribe.ApiKey == "" {
		return fmt.Errorf("transcribe.api_key is required")
	}
	p := Conf.Pipeline
	if p.MinClipSec <= 0 || p.MaxClipSec <= p.MinClipSec {
		return fmt.Errorf("pipeline clip bounds invalid: min=%.1f max=%.1f", p.MinClipSec, p.MaxClipSec)
	}
	if p.ClipsPerVideo <= 0 {
		return fmt.Errorf("pipeline.clips_per_video must be > 0")
	}
	if p.SimilarityThreshold <= 0 || p.SimilarityThreshold > 1 {
		return fmt.Errorf("pipeline.similarity_threshold must be in (0,1]")
	}
	return nil
}

// SaveConfig writes the current config, creating parent directories.
func SaveConfig() error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(Conf)
}
