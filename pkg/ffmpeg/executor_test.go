package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSilenceOutput(t *testing.T) {
	output := `
[silencedetect @ 0x5555] silence_start: 12.345
[silencedetect @ 0x5555] silence_end: 13.100 | silence_duration: 0.755
frame=  100 fps= 25
[silencedetect @ 0x5555] silence_start: 40.0
[silencedetect @ 0x5555] silence_end: 41.5 | silence_duration: 1.5
`
	got := ParseSilenceOutput(output)
	assert.Len(t, got, 2)
	assert.InDelta(t, 12.345, got[0].Start, 1e-9)
	assert.InDelta(t, 13.1, got[0].End, 1e-9)
	assert.InDelta(t, 40.0, got[1].Start, 1e-9)
	assert.InDelta(t, 41.5, got[1].End, 1e-9)
}

func TestParseSilenceOutputTrailingStart(t *testing.T) {
	output := `
[silencedetect @ 0x5555] silence_start: 5.0
[silencedetect @ 0x5555] silence_end: 6.0 | silence_duration: 1.0
[silencedetect @ 0x5555] silence_start: 58.2
`
	got := ParseSilenceOutput(output)
	assert.Len(t, got, 1)
	assert.InDelta(t, 5.0, got[0].Start, 1e-9)
}

func TestParseSilenceOutputEmpty(t *testing.T) {
	assert.Empty(t, ParseSilenceOutput("frame= 1 fps=0.0 q=-0.0 size=N/A"))
}

func TestEscapeFilterPath(t *testing.T) {
	assert.Equal(t, `/tmp/clip\'s.srt`, escapeFilterPath(`/tmp/clip's.srt`))
	assert.Equal(t, `C\:/data/sub.srt`, escapeFilterPath(`C:\data\sub.srt`))
}
