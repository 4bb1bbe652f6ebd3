package modem

import "math"

// CarrierReceiver drives the receive side of a V.27ter/V.29/V.17 carrier
// modem (spec §4.3, "Receive"). It mirrors the transmitter's carrier phase
// accumulator sample-for-sample (both start the accumulator at
// construction time), recovers each symbol's (I, Q) analytically from two
// samples of known phase, and slices to the nearest constellation point.
// This is exact on a clean channel, which is what this stack's in-scope
// T.30/T.38 logic needs to exercise; conformance-grade reception under
// channel impairments is the out-of-scope equalizer/timing-recovery
// collaborator named in spec §1/§9.
type CarrierReceiver struct {
	engine      *carrierEngine
	modemType   Type
	descrambler *Scrambler
	onBit       func(bit int)
	onEvent     func(Event)
	onTraining  func(ok bool)

	cursor trainingCursor
	phase  float64
	symAcc float64

	symPhase1, symSample1 float64
	symPhase2, symSample2 float64
	haveFirst, haveSecond bool

	carrierPower float64
	carrierOn    bool

	trainingGood, trainingTotal int
}

func newCarrierReceiver(e *carrierEngine, modemType Type, descrambler *Scrambler, onBit func(int), onEvent func(Event), onTraining func(bool)) *CarrierReceiver {
	return &CarrierReceiver{
		engine:      e,
		modemType:   modemType,
		descrambler: descrambler,
		onBit:       onBit,
		onEvent:     onEvent,
		onTraining:  onTraining,
		cursor:      trainingCursor{steps: e.training},
	}
}

// amplitudeThreshold converts a dBm0 figure to a 16-bit PCM amplitude,
// treating full scale (32767) as 0 dBm0. Real telephony power metering
// (spec's "power meter" DSP primitive) is out of scope; this is a
// deliberately simple stand-in sufficient to report carrier on/off.
func amplitudeThreshold(dBm0 float64) float64 {
	return 32767 * math.Pow(10, dBm0/20)
}

// ReceiveBlock feeds PCM samples into the demodulator.
func (r *CarrierReceiver) ReceiveBlock(in []int16) {
	var onThresh = amplitudeThreshold(CarrierOnThresholdDBm0(r.modemType))
	var offThresh = amplitudeThreshold(CarrierOffThresholdDBm0(r.modemType))

	for _, s16 := range in {
		var s = float64(s16)

		r.carrierPower = 0.95*r.carrierPower + 0.05*math.Abs(s)
		if !r.carrierOn && r.carrierPower > onThresh {
			r.carrierOn = true
			if r.onEvent != nil {
				r.onEvent(EventCarrierUp)
			}
		} else if r.carrierOn && r.carrierPower < offThresh {
			r.carrierOn = false
			if r.onEvent != nil {
				r.onEvent(EventCarrierDown)
			}
		}

		if r.symAcc <= 0 {
			r.finalizeSymbol()
			r.symAcc += r.engine.samplesPerSymbol
		}

		if !r.haveFirst {
			r.symPhase1, r.symSample1 = r.phase, s
			r.haveFirst = true
		} else if !r.haveSecond {
			r.symPhase2, r.symSample2 = r.phase, s
			r.haveSecond = true
		}

		r.phase += 2 * math.Pi * r.engine.carrierHz / float64(SampleRate)
		if r.phase > math.Pi {
			r.phase -= 2 * math.Pi
		}

		r.symAcc--
	}
}

func (r *CarrierReceiver) finalizeSymbol() {
	if !r.haveFirst || !r.haveSecond {
		r.haveFirst, r.haveSecond = false, false
		return
	}
	var p1, p2 = r.symPhase1, r.symPhase2
	var s1, s2 = r.symSample1 / txAmplitude, r.symSample2 / txAmplitude
	r.haveFirst, r.haveSecond = false, false

	var det = math.Sin(p1 - p2)
	if math.Abs(det) < 1e-6 {
		return
	}
	var I = (-math.Sin(p2)*s1 + math.Sin(p1)*s2) / det
	var Q = (math.Cos(p1)*s2 - math.Cos(p2)*s1) / det

	var idx = nearestPoint(r.engine.constellation, complex(I, Q))

	if !r.cursor.done() {
		var kind, _ = r.cursor.kind()
		if kind == stepScrambledOnes || kind == stepOnesTest {
			for i := r.engine.bitsPerSym - 1; i >= 0; i-- {
				var bit = (idx >> uint(i)) & 1
				var decoded = r.descrambler.Descramble(bit)
				r.trainingTotal++
				if decoded == 1 {
					r.trainingGood++
				}
			}
		}
		r.cursor.advance()
		if r.cursor.done() && r.onTraining != nil {
			var ok = r.trainingTotal == 0 || float64(r.trainingGood)/float64(r.trainingTotal) > 0.9
			r.onTraining(ok)
			if ok && r.onEvent != nil {
				r.onEvent(EventTrainingSucceeded)
			} else if !ok && r.onEvent != nil {
				r.onEvent(EventTrainingFailed)
			}
		}
		return
	}

	for i := r.engine.bitsPerSym - 1; i >= 0; i-- {
		var bit = (idx >> uint(i)) & 1
		var decoded = r.descrambler.Descramble(bit)
		if r.onBit != nil {
			r.onBit(decoded)
		}
	}
}
