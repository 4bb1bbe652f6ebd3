// Package terminal implements the T.38 terminal of spec §4.8: a T.30
// endpoint with no PCM at all, speaking T.30 over IFP directly. The t30
// state machine is unchanged; a timed-step engine simulates modem timings
// against a sample clock so T1-T5 still work, in place of the modem
// package's real carrier tx/rx.
package terminal

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/klehmann/gofax/modem"
	"github.com/klehmann/gofax/t30"
	"github.com/klehmann/gofax/t38"
)

// Step names one state of the timed-step engine (spec §4.8: "NONE,
// NON_ECM_MODEM {1,2,3}, HDLC_MODEM {1,2,3,4}, CED {1,2}, CNG {1,2},
// PAUSE").
type Step int

const (
	StepNone Step = iota
	StepNonECMModem1
	StepNonECMModem2
	StepNonECMModem3
	StepHDLCModem1
	StepHDLCModem2
	StepHDLCModem3
	StepHDLCModem4
	StepCED1
	StepCED2
	StepCNG1
	StepCNG2
	StepPause
)

const preStepSilence = 75 * time.Millisecond

// Config configures one Terminal.
type Config struct {
	Session    *t30.Session
	Redundancy int
	PacedMode  bool // true: merge a frame queued behind the current one into its packet (see emitFrame); no inter-packet delay in either mode
	Logger     *log.Logger
}

// Terminal drives a t30.Session purely over IFP packets, with no PCM.
type Terminal struct {
	cfg Config
	log *log.Logger
	ep  *t38.Endpoint

	step          Step
	stepRemaining int64 // samples until the current step completes
	modemType     modem.Type
	pendingFrame  t30.Frame
}

// New constructs a Terminal. transport carries encoded IFP packets.
func New(cfg Config, transport t38.Transport) *Terminal {
	var l = cfg.Logger
	if l == nil {
		l = log.Default()
	}
	var term = &Terminal{cfg: cfg, log: l, step: StepNone}
	term.ep = t38.NewEndpoint(transport, cfg.Redundancy, term.onPacket, term.onMissing)
	return term
}

// Advance steps the engine and the underlying Session by n samples (spec
// §4.8: "the engine advances when the cumulative sample count crosses the
// scheduled moment"), matching the sample-clocked model of spec §5.
func (t *Terminal) Advance(n int) {
	t.cfg.Session.Tick(n)
	if t.step == StepNone {
		t.maybeStartNextStep()
		return
	}
	t.stepRemaining -= int64(n)
	if t.stepRemaining <= 0 {
		t.completeStep()
	}
}

// PollPackets drains the transport and dispatches received IFP packets into
// the session.
func (t *Terminal) PollPackets() {
	t.ep.Poll()
}

// maybeStartNextStep pulls the next outgoing frame, if any, and schedules
// the silence-then-modem-then-data sequence needed to send it.
func (t *Terminal) maybeStartNextStep() {
	var f, ok = t.cfg.Session.NextOutgoingFrame()
	if !ok {
		return
	}
	t.startHDLCStep(f)
}

func (t *Terminal) startHDLCStep(f t30.Frame) {
	t.modemType = t.cfg.Session.NegotiatedModem()
	if t.modemType == modem.TypeNone {
		t.modemType = modem.TypeV21
	}
	t.ep.Send(t38.Packet{Kind: t38.PacketIndicator, Indicator: indicatorFor(t.modemType, false)})
	t.step = StepHDLCModem1
	t.stepRemaining = durationSamples(preStepSilence + modem.TrainingTime(t.modemType, false))
	t.pendingFrame = f
}

func (t *Terminal) completeStep() {
	switch t.step {
	case StepHDLCModem1:
		t.emitFrame(t.pendingFrame)
		t.step = StepNone
	default:
		t.step = StepNone
	}
	t.maybeStartNextStep()
}

// emitFrame sends f as an HDLC_DATA/HDLC_FCS_OK packet. In paced mode, if
// another frame is already queued behind it, the two are merged into one
// packet carrying both fields (spec §4.8's "merged fields" optimization),
// saving a packet round-trip.
func (t *Terminal) emitFrame(f t30.Frame) {
	var dt = dataTypeFor(t.modemType)
	var fields = []t38.Field{{Type: t38.FieldHDLCData, Data: f.Encode()}, {Type: t38.FieldHDLCFCSOK}}
	if t.cfg.PacedMode {
		if next, ok := t.cfg.Session.NextOutgoingFrame(); ok {
			fields = append(fields, t38.Field{Type: t38.FieldHDLCData, Data: next.Encode()}, t38.Field{Type: t38.FieldHDLCFCSOK})
		}
	}
	t.ep.Send(t38.Packet{Kind: t38.PacketData, DataType: dt, Fields: fields})
}

// onPacket dispatches a received packet's fields. HDLC_DATA is always
// immediately followed by its FCS_OK/FCS_BAD marker (possibly as another
// merged field in the same packet, spec §4.8), so each data field is held
// until its marker arrives.
func (t *Terminal) onPacket(p t38.Packet) {
	if p.Kind == t38.PacketIndicator {
		return
	}
	var pending []byte
	var havePending bool
	for _, fld := range p.Fields {
		switch fld.Type {
		case t38.FieldHDLCData:
			pending = fld.Data
			havePending = true
		case t38.FieldHDLCFCSOK:
			if havePending {
				if f, ok := t30.DecodeFrame(pending); ok {
					t.cfg.Session.HandleFrame(f)
				}
				havePending = false
			}
		case t38.FieldHDLCFCSBad:
			if havePending {
				t.cfg.Session.HandleBadFrame()
				havePending = false
			}
		}
	}
}

// onMissing logs a sequence gap reported by the T.38 core. Unlike the
// gateway's onMissing, it infers no signal transition and changes no state.
func (t *Terminal) onMissing(expected, got uint16) {
	t.log.Warn("t38/terminal: missing packets", "expected", expected, "got", got)
}

func durationSamples(d time.Duration) int64 {
	return int64(d) * 8000 / int64(time.Second)
}

func indicatorFor(t modem.Type, short bool) t38.Indicator {
	switch t {
	case modem.TypeV21:
		return t38.IndV21Preamble
	case modem.TypeV27ter2400:
		return t38.IndV27ter2400Training
	case modem.TypeV27ter4800:
		return t38.IndV27ter4800Training
	case modem.TypeV29_7200:
		return t38.IndV29_7200Training
	case modem.TypeV29_9600:
		return t38.IndV29_9600Training
	case modem.TypeV17_7200:
		if short {
			return t38.IndV17_7200ShortTraining
		}
		return t38.IndV17_7200LongTraining
	case modem.TypeV17_9600:
		if short {
			return t38.IndV17_9600ShortTraining
		}
		return t38.IndV17_9600LongTraining
	case modem.TypeV17_12000:
		if short {
			return t38.IndV17_12000ShortTraining
		}
		return t38.IndV17_12000LongTraining
	case modem.TypeV17_14400:
		if short {
			return t38.IndV17_14400ShortTraining
		}
		return t38.IndV17_14400LongTraining
	default:
		return t38.IndV21Preamble
	}
}

func dataTypeFor(t modem.Type) t38.DataType {
	switch t {
	case modem.TypeV21:
		return t38.DataV21
	case modem.TypeV27ter2400:
		return t38.DataV27ter2400
	case modem.TypeV27ter4800:
		return t38.DataV27ter4800
	case modem.TypeV29_7200:
		return t38.DataV29_7200
	case modem.TypeV29_9600:
		return t38.DataV29_9600
	case modem.TypeV17_7200:
		return t38.DataV17_7200
	case modem.TypeV17_9600:
		return t38.DataV17_9600
	case modem.TypeV17_12000:
		return t38.DataV17_12000
	case modem.TypeV17_14400:
		return t38.DataV17_14400
	default:
		return t38.DataV21
	}
}
