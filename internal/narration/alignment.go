package narration

import (
	"time"
	"unicode/utf8"
)

// Alignment pairs a synthesized character stream with per-character start and
// end offsets in seconds. The three slices are parallel and equal length;
// start times are expected to be non-decreasing (gaps for synthesis breaks
// are tolerated). Produced once per content revision, normalized once, and
// persisted immutably next to the audio artifact; regeneration creates a
// wholly new alignment under a new content hash.
//
// Field names follow the provider's wire format so the stored JSON bundle is
// byte-compatible with what the synthesis endpoint returns.
type Alignment struct {
	Characters []string  `json:"characters"`
	StartTimes []float64 `json:"character_start_times_seconds"`
	EndTimes   []float64 `json:"character_end_times_seconds"`
}

// Metadata describes one generated narration.
type Metadata struct {
	Slug string `json:"slug"`
	// Hash fingerprints the exact text that was synthesized.
	Hash        string    `json:"hash"`
	Duration    float64   `json:"duration"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Data is the bundle served to playback clients.
type Data struct {
	AudioURL  string    `json:"audioUrl"`
	Alignment Alignment `json:"alignment"`
	Metadata  Metadata  `json:"metadata"`
}

// Len returns the number of aligned characters.
func (a Alignment) Len() int {
	return len(a.Characters)
}

// Normalize strips synthesis-only break tags and collapses whitespace runs so
// the character sequence matches what the highlighter's text walker sees in
// the rendered document. A single left-to-right scan: inside a <...> tag every
// character and its timestamps are discarded; outside, the shared Collapser
// decides which characters survive. Emitted timestamps keep their raw values
// and relative order.
func Normalize(raw Alignment) Alignment {
	out := Alignment{
		Characters: make([]string, 0, len(raw.Characters)),
		StartTimes: make([]float64, 0, len(raw.StartTimes)),
		EndTimes:   make([]float64, 0, len(raw.EndTimes)),
	}

	collapser := NewCollapser()
	inBreakTag := false

	n := min(len(raw.Characters), len(raw.StartTimes), len(raw.EndTimes))
	for i, char := range raw.Characters[:n] {
		if char == "<" {
			inBreakTag = true
		}
		if inBreakTag {
			if char == ">" {
				inBreakTag = false
			}
			continue
		}

		r, _ := utf8.DecodeRuneInString(char)
		if !collapser.Keep(r) {
			continue
		}

		out.Characters = append(out.Characters, char)
		out.StartTimes = append(out.StartTimes, raw.StartTimes[i])
		out.EndTimes = append(out.EndTimes, raw.EndTimes[i])
	}

	return out
}

// FindCharIndex returns the index of the character active at time t: the
// greatest index whose start time is <= t, or 0 when no such index exists.
// Binary search; StartTimes is assumed sorted (guaranteed by Normalize
// preserving the raw stream's order).
func (a Alignment) FindCharIndex(t float64) int {
	lo, hi := 0, len(a.StartTimes)-1
	answer := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		if a.StartTimes[mid] <= t {
			answer = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return answer
}

// Duration returns the narration length in seconds: the largest positive end
// time. Characters synthesized with zero timestamps (leading silence, break
// remnants) are ignored.
func (a Alignment) Duration() float64 {
	var max float64
	for _, end := range a.EndTimes {
		if end > max {
			max = end
		}
	}
	return max
}
