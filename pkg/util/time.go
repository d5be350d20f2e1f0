package util

import "fmt"

// FormatSrtTime renders seconds as an SRT timestamp (HH:MM:SS,mmm).
// Negative inputs clamp to zero.
func FormatSrtTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	ms := int64(sec*1000 + 0.5)
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
