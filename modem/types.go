// Package modem implements the V.21/V.27ter/V.29/V.17 modem set of spec
// §4.3. Per spec §1/§9, the adaptive equalizer, Gardner timing recovery,
// and trellis decoding that a conformance-grade modem needs are external
// collaborators — out of scope here. Each modem in this package honors the
// documented contract (training sequence shape and duration, symbol/data
// rate, carrier-up/training/carrier-down event sequence, scrambler
// polynomial) with a self-consistent, round-trippable coherent
// modulator/demodulator, not a channel-impaired-conditions-grade receiver.
package modem

import "time"

// Type enumerates the modems of spec §4.3's table, plus V.21 (the FSK
// control channel). V.22bis has no Type; only its scrambler exists, in
// scrambler.go.
type Type int

const (
	TypeNone Type = iota
	TypeV21
	TypeV27ter2400
	TypeV27ter4800
	TypeV29_4800
	TypeV29_7200
	TypeV29_9600
	TypeV17_7200
	TypeV17_9600
	TypeV17_12000
	TypeV17_14400
)

func (t Type) String() string {
	switch t {
	case TypeV21:
		return "V.21"
	case TypeV27ter2400:
		return "V.27ter-2400"
	case TypeV27ter4800:
		return "V.27ter-4800"
	case TypeV29_4800:
		return "V.29-4800"
	case TypeV29_7200:
		return "V.29-7200"
	case TypeV29_9600:
		return "V.29-9600"
	case TypeV17_7200:
		return "V.17-7200"
	case TypeV17_9600:
		return "V.17-9600"
	case TypeV17_12000:
		return "V.17-12000"
	case TypeV17_14400:
		return "V.17-14400"
	default:
		return "none"
	}
}

// DataRate returns the bps rate for t.
func (t Type) DataRate() int {
	switch t {
	case TypeV21:
		return 300
	case TypeV27ter2400:
		return 2400
	case TypeV27ter4800:
		return 4800
	case TypeV29_4800:
		return 4800
	case TypeV29_7200:
		return 7200
	case TypeV29_9600:
		return 9600
	case TypeV17_7200:
		return 7200
	case TypeV17_9600:
		return 9600
	case TypeV17_12000:
		return 12000
	case TypeV17_14400:
		return 14400
	default:
		return 0
	}
}

// IsV17 / IsV29 / IsV27ter classify t for rate-table stepping
// (spec §4.5 "Rate negotiation").
func (t Type) IsV17() bool {
	return t == TypeV17_7200 || t == TypeV17_9600 || t == TypeV17_12000 || t == TypeV17_14400
}
func (t Type) IsV29() bool { return t == TypeV29_4800 || t == TypeV29_7200 || t == TypeV29_9600 }
func (t Type) IsV27ter() bool {
	return t == TypeV27ter2400 || t == TypeV27ter4800
}

// SampleRate is the PCM sample rate the whole stack runs at (spec §2).
const SampleRate = 8000

// FallbackTable lists the image-transport modem rates in descending order
// of speed, used by spec §4.5's rate negotiation/fallback. Separate tables
// per family since DCS/DIS only ever pick one family at a time in this
// stack — V.17 when both ends declare it, else V.29, else V.27ter.
var FallbackTableV17 = []Type{TypeV17_14400, TypeV17_12000, TypeV17_9600, TypeV17_7200}
var FallbackTableV29 = []Type{TypeV29_9600, TypeV29_7200, TypeV29_4800}
var FallbackTableV27ter = []Type{TypeV27ter4800, TypeV27ter2400}

// Event is a training/carrier lifecycle notification, delivered inline with
// the bit/byte stream per spec §4.3.
type Event int

const (
	EventCarrierUp Event = iota
	EventTrainingSucceeded
	EventTrainingFailed
	EventCarrierDown
	EventShutdownComplete
)

func (e Event) String() string {
	switch e {
	case EventCarrierUp:
		return "carrier-up"
	case EventTrainingSucceeded:
		return "training-succeeded"
	case EventTrainingFailed:
		return "training-failed"
	case EventCarrierDown:
		return "carrier-down"
	case EventShutdownComplete:
		return "shutdown-complete"
	default:
		return "unknown"
	}
}

// CarrierOnThresholdDBm0 / CarrierOffThresholdDBm0 are the dBm0 power
// thresholds of spec §4.3, keyed by family. V.21 has its own value; every
// other modem type (V.17, V.29, V.27ter) shares one on/off pair.
func CarrierOnThresholdDBm0(t Type) float64 {
	if t == TypeV21 {
		return -45.5
	}
	return -43.0
}

func CarrierOffThresholdDBm0(t Type) float64 {
	if t == TypeV21 {
		return -45.5
	}
	return -48.0
}

// TrainingTime returns the nominal training duration for t, used by the
// T.38 terminal's timed-step engine (spec §4.8) and by real-time budgeting.
// "Short" applies only to V.17 (the gateway forces it once CFR has passed;
// spec §4.7).
func TrainingTime(t Type, short bool) time.Duration {
	switch {
	case t == TypeV21:
		return 1000 * time.Millisecond
	case t.IsV27ter():
		return 947 * time.Millisecond // unmod carrier+silence+ABAB+CDCD(1074)+ones(8) at 1600 baud
	case t.IsV29():
		return 265 * time.Millisecond // silence(<=480)+ABAB(128)+CDCD(384)+ones(48) at 2400 baud
	case t.IsV17() && !short:
		return 1393 * time.Millisecond // 256 ABAB+2976 scrambled+64 bridge+48 ones at 2400 baud
	case t.IsV17() && short:
		return 36 * time.Millisecond // 38 scrambled+48 ones at 2400 baud (fast retrain)
	default:
		return 0
	}
}
