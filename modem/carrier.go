package modem

import (
	"math"
	"math/cmplx"
)

// trainingStep describes one segment of a training sequence: a count of
// symbol periods and what to transmit/expect during them. Spec §4.3's
// table names these phases (unmodulated carrier, silence, ABAB, scrambled
// CDCD, ones test, V.17's bridge) for each modem family.
type trainingStepKind int

const (
	stepSilence trainingStepKind = iota
	stepUnmodCarrier
	stepAlternating
	stepScrambledOnes
	stepOnesTest
	stepBridge
)

type trainingStep struct {
	kind    trainingStepKind
	symbols int
}

// pskConstellation returns 2^bits unit-magnitude points evenly spaced
// around the circle, indexed directly by the bits value (MSB-first).
func pskConstellation(bits int) []complex128 {
	var n = 1 << uint(bits)
	var pts = make([]complex128, n)
	for i := 0; i < n; i++ {
		var angle = 2 * math.Pi * float64(i) / float64(n)
		pts[i] = cmplx.Rect(1.0, angle)
	}
	return pts
}

// qamConstellation returns 2^bits points on a roughly square grid, scaled
// to unit average power, indexed directly by the bits value.
func qamConstellation(bits int) []complex128 {
	var n = 1 << uint(bits)
	var side = 1
	for side*side < n {
		side++
	}
	var pts = make([]complex128, n)
	var half = float64(side-1) / 2
	var sumSq float64
	for i := 0; i < n; i++ {
		var row = i / side
		var col = i % side
		var re = float64(col) - half
		var im = float64(row) - half
		pts[i] = complex(re, im)
		sumSq += re*re + im*im
	}
	var rms = math.Sqrt(sumSq / float64(n))
	if rms == 0 {
		rms = 1
	}
	for i := range pts {
		pts[i] /= complex(rms, 0)
	}
	return pts
}

func nearestPoint(pts []complex128, sample complex128) int {
	var best = 0
	var bestDist = math.MaxFloat64
	for i, p := range pts {
		var d = cmplx.Abs(sample - p)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// carrierEngine is the shared modulator/demodulator configuration for
// V.27ter, V.29, and V.17 (spec §4.3's carrier modems). See the package doc
// comment for what this stands in for: a coherent, self-consistent tx/rx
// pair driven by the documented training-sequence shape, not a
// conformance-grade adaptive receiver.
type carrierEngine struct {
	symbolRate    int
	carrierHz     float64
	bitsPerSym    int
	constellation []complex128
	training      []trainingStep
	trailingOnes  int // bits of all-ones sign-off after data
	trailingQuiet int // samples of silence after the sign-off ones

	samplesPerSymbol float64
}

func newCarrierEngine(symbolRate int, carrierHz float64, bitsPerSym int, qam bool, training []trainingStep, trailingOnes, trailingQuiet int) *carrierEngine {
	var cons []complex128
	if qam {
		cons = qamConstellation(bitsPerSym)
	} else {
		cons = pskConstellation(bitsPerSym)
	}
	return &carrierEngine{
		symbolRate:       symbolRate,
		carrierHz:        carrierHz,
		bitsPerSym:       bitsPerSym,
		constellation:    cons,
		training:         training,
		trailingOnes:     trailingOnes,
		trailingQuiet:    trailingQuiet,
		samplesPerSymbol: float64(SampleRate) / float64(symbolRate),
	}
}

const txAmplitude = 6000.0

// trainingCursor walks a training plan one symbol at a time. Shared logic
// between transmit and receive so both sides stay lockstep through the
// same sequence of steps.
type trainingCursor struct {
	steps     []trainingStep
	stepIdx   int
	symInStep int
}

func (c *trainingCursor) kind() (trainingStepKind, bool) {
	if c.stepIdx >= len(c.steps) {
		return 0, false
	}
	return c.steps[c.stepIdx].kind, true
}

func (c *trainingCursor) advance() {
	c.symInStep++
	if c.symInStep >= c.steps[c.stepIdx].symbols {
		c.symInStep = 0
		c.stepIdx++
	}
}

func (c *trainingCursor) done() bool { return c.stepIdx >= len(c.steps) }
