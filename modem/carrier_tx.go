package modem

import "math"

// CarrierTransmitter drives the transmit side of a V.27ter/V.29/V.17
// carrier modem: training sequence, then scrambled data, then the trailing
// sign-off (spec §4.3, "Transmit").
type CarrierTransmitter struct {
	engine    *carrierEngine
	scrambler *Scrambler
	src       func() (bit int, ok bool)
	onEvent   func(Event)

	cursor trainingCursor
	phase  float64 // carrier phase accumulator, radians
	symAcc float64 // fractional symbol-period accumulator

	curPoint      complex128
	dataExhausted bool
	onesLeft      int // remaining trailing sign-off bits
	quietLeft     int // remaining trailing silence samples
	finished      bool
}

func newCarrierTransmitter(e *carrierEngine, scrambler *Scrambler, src func() (bit int, ok bool), onEvent func(Event)) *CarrierTransmitter {
	return &CarrierTransmitter{
		engine:    e,
		scrambler: scrambler,
		src:       src,
		onEvent:   onEvent,
		cursor:    trainingCursor{steps: e.training},
	}
}

func (t *CarrierTransmitter) scrambledSymbol() int {
	var v = 0
	for i := 0; i < t.engine.bitsPerSym; i++ {
		v = (v << 1) | t.scrambler.Scramble(1)
	}
	return v
}

func (t *CarrierTransmitter) dataSymbol() (int, bool) {
	var v = 0
	for i := 0; i < t.engine.bitsPerSym; i++ {
		bit, ok := t.src()
		if !ok {
			if i == 0 {
				return 0, false
			}
			// Pad a partial final symbol with ones so the data bits already
			// pulled from src are still sent.
			for ; i < t.engine.bitsPerSym; i++ {
				v = (v << 1) | t.scrambler.Scramble(1)
			}
			return v, true
		}
		v = (v << 1) | t.scrambler.Scramble(bit)
	}
	return v, true
}

// nextSymbolPoint returns the constellation point for the next symbol
// period, walking training, then data, then the trailing ones sign-off in
// order. ok is false once the trailing silence has also drained.
func (t *CarrierTransmitter) nextSymbolPoint() (complex128, bool) {
	if !t.cursor.done() {
		var kind, _ = t.cursor.kind()
		var pt complex128
		switch kind {
		case stepSilence, stepBridge:
			pt = 0
		case stepUnmodCarrier:
			pt = 1
		case stepAlternating:
			if t.cursor.symInStep%2 == 0 {
				pt = t.engine.constellation[0]
			} else {
				pt = t.engine.constellation[len(t.engine.constellation)/2]
			}
		case stepScrambledOnes, stepOnesTest:
			pt = t.engine.constellation[t.scrambledSymbol()]
		}
		t.cursor.advance()
		return pt, true
	}

	if !t.dataExhausted {
		idx, ok := t.dataSymbol()
		if ok {
			return t.engine.constellation[idx], true
		}
		t.dataExhausted = true
		t.onesLeft = t.engine.trailingOnes
	}

	if t.onesLeft > 0 {
		var idx = t.scrambledSymbol()
		t.onesLeft -= t.engine.bitsPerSym
		return t.engine.constellation[idx], true
	}

	return 0, false
}

// TransmitBlock fills out with up to len(out) PCM samples and returns the
// count written. Once the data and sign-off symbols are exhausted it emits
// the trailing silence sample-by-sample (not symbol-paced, per spec §4.3:
// "32 ones then 48 samples of silence"); when that drains too,
// EventShutdownComplete fires and subsequent calls return 0.
func (t *CarrierTransmitter) TransmitBlock(out []int16) int {
	var n int
	for n < len(out) {
		if t.finished {
			break
		}
		if t.quietLeft > 0 {
			out[n] = 0
			t.quietLeft--
			n++
			if t.quietLeft == 0 {
				t.finished = true
				if t.onEvent != nil {
					t.onEvent(EventShutdownComplete)
				}
			}
			continue
		}
		if t.symAcc <= 0 {
			pt, ok := t.nextSymbolPoint()
			if !ok {
				t.quietLeft = t.engine.trailingQuiet
				if t.quietLeft == 0 {
					t.finished = true
					if t.onEvent != nil {
						t.onEvent(EventShutdownComplete)
					}
				}
				continue
			}
			t.curPoint = pt
			t.symAcc += t.engine.samplesPerSymbol
		}
		var s = real(t.curPoint)*math.Cos(t.phase) - imag(t.curPoint)*math.Sin(t.phase)
		out[n] = int16(clampF(s * txAmplitude))
		t.phase += 2 * math.Pi * t.engine.carrierHz / float64(SampleRate)
		if t.phase > math.Pi {
			t.phase -= 2 * math.Pi
		}
		t.symAcc--
		n++
	}
	return n
}

func clampF(v float64) float64 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return v
}
