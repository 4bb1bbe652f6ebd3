package modem

import "math"

// v21MarkHz / v21SpaceHz are V.21 channel 2's tone pair, used for the whole
// T.30 control channel at 300 bps (spec §4.3). There is no training
// sequence of its own; the HDLC layer above supplies the flag preamble that
// lets a receiver find bit sync.
const (
	v21MarkHz  = 1650.0
	v21SpaceHz = 1850.0
	v21BitRate = 300
)

// V21Transmitter generates continuous, phase-continuous FSK: the mark tone
// for bit 1, the space tone for bit 0.
type V21Transmitter struct {
	src     func() (bit int, ok bool)
	onEvent func(Event)

	phase  float64
	bitAcc float64
	curBit int

	exhausted bool
	quietLeft int
	finished  bool
}

// NewV21Transmitter builds a V.21 transmitter pulling bits from src.
func NewV21Transmitter(src func() (bit int, ok bool), onEvent func(Event)) *V21Transmitter {
	return &V21Transmitter{src: src, onEvent: onEvent, curBit: 1}
}

// TransmitBlock fills out with up to len(out) PCM samples and returns the
// count written. Once src is exhausted it emits one bit period of silence
// and fires EventShutdownComplete.
func (t *V21Transmitter) TransmitBlock(out []int16) int {
	var samplesPerBit = float64(SampleRate) / v21BitRate
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
		if t.bitAcc <= 0 {
			if t.exhausted {
				t.quietLeft = int(samplesPerBit)
				if t.quietLeft == 0 {
					t.finished = true
					if t.onEvent != nil {
						t.onEvent(EventShutdownComplete)
					}
				}
				continue
			}
			bit, ok := t.src()
			if !ok {
				t.exhausted = true
				continue
			}
			t.curBit = bit
			t.bitAcc += samplesPerBit
		}
		var hz = v21SpaceHz
		if t.curBit == 1 {
			hz = v21MarkHz
		}
		out[n] = int16(clampF(math.Sin(t.phase) * txAmplitude))
		t.phase += 2 * math.Pi * hz / float64(SampleRate)
		if t.phase > math.Pi {
			t.phase -= 2 * math.Pi
		}
		t.bitAcc--
		n++
	}
	return n
}

// V21Receiver demodulates V.21 FSK by correlating each bit period against
// the mark and space tones and taking whichever has more energy — exact on
// a clean, phase-continuous channel, which is this stack's scope (see the
// package doc comment).
type V21Receiver struct {
	onBit   func(bit int)
	onEvent func(Event)

	markPhase, spacePhase  float64
	corrMarkI, corrMarkQ   float64
	corrSpaceI, corrSpaceQ float64
	bitAcc                 float64
	haveSamples            bool
	carrierPower           float64
	carrierOn              bool
}

// NewV21Receiver builds a V.21 receiver.
func NewV21Receiver(onBit func(int), onEvent func(Event)) *V21Receiver {
	return &V21Receiver{onBit: onBit, onEvent: onEvent}
}

// ReceiveBlock feeds PCM samples into the demodulator.
func (r *V21Receiver) ReceiveBlock(in []int16) {
	var samplesPerBit = float64(SampleRate) / v21BitRate
	var onThresh = amplitudeThreshold(CarrierOnThresholdDBm0(TypeV21))
	var offThresh = amplitudeThreshold(CarrierOffThresholdDBm0(TypeV21))

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

		if r.bitAcc <= 0 {
			if r.haveSamples {
				var markEnergy = r.corrMarkI*r.corrMarkI + r.corrMarkQ*r.corrMarkQ
				var spaceEnergy = r.corrSpaceI*r.corrSpaceI + r.corrSpaceQ*r.corrSpaceQ
				var bit = 0
				if markEnergy > spaceEnergy {
					bit = 1
				}
				if r.onBit != nil {
					r.onBit(bit)
				}
			}
			r.corrMarkI, r.corrMarkQ = 0, 0
			r.corrSpaceI, r.corrSpaceQ = 0, 0
			r.haveSamples = true
			r.bitAcc += samplesPerBit
		}

		r.corrMarkI += s * math.Cos(r.markPhase)
		r.corrMarkQ += s * math.Sin(r.markPhase)
		r.corrSpaceI += s * math.Cos(r.spacePhase)
		r.corrSpaceQ += s * math.Sin(r.spacePhase)

		r.markPhase += 2 * math.Pi * v21MarkHz / float64(SampleRate)
		if r.markPhase > math.Pi {
			r.markPhase -= 2 * math.Pi
		}
		r.spacePhase += 2 * math.Pi * v21SpaceHz / float64(SampleRate)
		if r.spacePhase > math.Pi {
			r.spacePhase -= 2 * math.Pi
		}

		r.bitAcc--
	}
}
