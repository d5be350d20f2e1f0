// Package deps resolves external binaries the pipeline shells out to.
package deps

import (
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"

	"autoclipper/config"
	"autoclipper/log"
)

type DependencyStatus string

const (
	DependencyStatusOK      DependencyStatus = "ok"
	DependencyStatusMissing DependencyStatus = "missing"
)

type DependencySpec struct {
	Name           string
	Command        string
	ConfiguredPath string
}

type DependencyState struct {
	DependencySpec
	ResolvedPath string
	Status       DependencyStatus
}

// PathResolver locates a binary, preferring the configured path over PATH
// lookup. The lookup funcs are injectable for tests.
type PathResolver struct {
	LookPath func(file string) (string, error)
	Stat     func(name string) (os.FileInfo, error)
}

func NewPathResolver() PathResolver {
	return PathResolver{
		LookPath: exec.LookPath,
		Stat:     os.Stat,
	}
}

func (r PathResolver) Resolve(spec DependencySpec) DependencyState {
	state := DependencyState{DependencySpec: spec, Status: DependencyStatusMissing}

	if spec.ConfiguredPath != "" {
		if info, err := r.Stat(spec.ConfiguredPath); err == nil && !info.IsDir() {
			state.ResolvedPath = spec.ConfiguredPath
			state.Status = DependencyStatusOK
			return state
		}
	}

	if path, err := r.LookPath(spec.Command); err == nil {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		state.ResolvedPath = path
		state.Status = DependencyStatusOK
	}
	return state
}

// CheckDependency resolves ffmpeg, ffprobe and yt-dlp and writes the
// resolved paths back into the config so the shelling clients always get
// absolute paths. Missing binaries are logged; probing will fail loudly
// on first use.
func CheckDependency() {
	resolver := NewPathResolver()
	cfg := &config.Conf.App

	specs := []struct {
		spec   DependencySpec
		target *string
	}{
		{DependencySpec{Name: "ffmpeg", Command: "ffmpeg", ConfiguredPath: cfg.FfmpegPath}, &cfg.FfmpegPath},
		{DependencySpec{Name: "ffprobe", Command: "ffprobe", ConfiguredPath: cfg.FfprobePath}, &cfg.FfprobePath},
		{DependencySpec{Name: "yt-dlp", Command: "yt-dlp", ConfiguredPath: cfg.YtdlpPath}, &cfg.YtdlpPath},
	}

	for _, s := range specs {
		state := resolver.Resolve(s.spec)
		if state.Status != DependencyStatusOK {
			log.GetLogger().Warn("dependency not found",
				zap.String("name", s.spec.Name),
				zap.String("configuredPath", s.spec.ConfiguredPath))
			continue
		}
		*s.target = state.ResolvedPath
		log.GetLogger().Info("dependency resolved",
			zap.String("name", s.spec.Name),
			zap.String("path", state.ResolvedPath))
	}
}
