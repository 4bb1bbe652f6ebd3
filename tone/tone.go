// Package tone generates the timed supervisory tones and silence periods
// of spec §4.3/§6: CNG (calling tone), CED (called tone), and plain
// silence used throughout phase A and the modem multiplexer's pre-pause/
// shutdown gaps. Detection of these tones (and of echo-cancellor-disable
// tones) is an out-of-scope external collaborator per spec §1.
package tone

import (
	"math"

	"github.com/klehmann/gofax/modem"
)

// Amplitude for -11 dBm0 referenced against full-scale as 0 dBm0, matching
// modem.amplitudeThreshold's convention.
const toneAmplitude = 32767 * 0.282 // 20*log10(0.282) ~= -11 dBm0

// Generator produces a timed tone-then-silence pattern, sample by sample,
// repeating indefinitely until Stop is called. Used for CNG's "0.5s on /
// 3.0s off, repeating" and, with one shot, for CED and plain silence gaps.
type Generator struct {
	hz         float64
	onSamples  int
	offSamples int
	repeat     bool

	phase   float64
	pos     int
	inOn    bool
	stopped bool
}

// NewCNG returns the calling-tone generator: 1100 Hz, 0.5 s on / 3.0 s off,
// repeating (spec §6).
func NewCNG() *Generator {
	return &Generator{
		hz:         1100,
		onSamples:  durationSamples(500),
		offSamples: durationSamples(3000),
		repeat:     true,
		inOn:       true,
	}
}

// NewCED returns a single CED burst: >=200ms silence, 2100 Hz for dur
// (clamped to 2.6-4.0s by the caller), followed by the mandated >=75ms
// trailing silence — modeled here as the tone segment only; callers
// sequence the leading/trailing silence via plain Silence generators, as
// the modem multiplexer already paces pre/post-pauses that way (spec
// §4.4).
func NewCED(durMillis int) *Generator {
	return &Generator{
		hz:        2100,
		onSamples: durationSamples(durMillis),
		repeat:    false,
		inOn:      true,
	}
}

// NewSilence returns a generator that emits durMillis of silence and then
// reports done.
func NewSilence(durMillis int) *Generator {
	return &Generator{
		offSamples: durationSamples(durMillis),
		repeat:     false,
		inOn:       false,
	}
}

func durationSamples(millis int) int {
	return millis * modem.SampleRate / 1000
}

// Stop forces the generator to report done on the next Fill call,
// regardless of where in its cycle it is. Used to truncate CNG when V.21
// is detected mid-cycle.
func (g *Generator) Stop() { g.stopped = true }

// Done reports whether this (non-repeating) generator has emitted its
// full pattern.
func (g *Generator) Done() bool {
	if g.repeat {
		return g.stopped
	}
	return g.stopped || (!g.inOn && g.pos >= g.offSamples) || (g.onSamples == 0 && g.offSamples == 0)
}

// Fill writes up to len(out) samples and returns the count written. A
// repeating generator never returns less than len(out) (it never
// terminates on its own); a one-shot generator returns fewer once its
// pattern has fully emitted.
func (g *Generator) Fill(out []int16) int {
	var n int
	for n < len(out) {
		if g.Done() {
			break
		}
		var limit = g.offSamples
		if g.inOn {
			limit = g.onSamples
		}
		if g.pos >= limit {
			g.pos = 0
			if g.inOn {
				g.inOn = false
				if !g.repeat {
					break
				}
			} else {
				g.inOn = true
				if !g.repeat && g.onSamples == 0 {
					break
				}
			}
			continue
		}
		if g.inOn {
			out[n] = int16(math.Sin(g.phase) * toneAmplitude)
			g.phase += 2 * math.Pi * g.hz / float64(modem.SampleRate)
			if g.phase > math.Pi {
				g.phase -= 2 * math.Pi
			}
		} else {
			out[n] = 0
		}
		g.pos++
		n++
	}
	return n
}
