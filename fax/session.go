// Package fax wires the modem set, HDLC framer, and T.30 state machine
// into the PCM-clocked `rx`/`tx` entry points of spec §6 and §2's pipeline
// diagram:
//
//	PCM in  -> rx-modem selector -> bit/byte/HDLC sink -> T.30 -> image sink
//	PCM out <- tx-modem selector <- bit/byte/HDLC src  <- T.30 <- image src
//
// t30.Session only knows T.30 semantics (spec §4.5); modem/mux only knows
// which demodulator/modulator to run (spec §4.4); hdlc only knows framing
// (spec §4.1). Session here is the glue spec §9 describes as replacing the
// original's pointer-swap callback chains: it polls t30.Session's phase and
// state after every sample block and reconciles the active rx/tx target
// against what that phase/state implies, rather than the state machine
// reaching out and flipping a handler pointer itself.
package fax

import (
	"github.com/charmbracelet/log"

	"github.com/klehmann/gofax/hdlc"
	"github.com/klehmann/gofax/modem"
	"github.com/klehmann/gofax/modem/mux"
	"github.com/klehmann/gofax/t30"
	"github.com/klehmann/gofax/tone"
)

// Config configures one Session: the T.30 identity/capability/callback
// config plus the logger shared with it.
type Config struct {
	T30    t30.Config
	Logger *log.Logger
}

// rxMode distinguishes what the currently active receive modem's decoded
// bits are being used for.
type rxMode int

const (
	rxNone rxMode = iota
	rxV21
	rxTCF
	rxFastECM
	rxFastNonECM
)

type rxSignature struct {
	mode rxMode
	typ  modem.Type
}

// txKind mirrors rxMode for the transmit side.
type txKind int

const (
	txIdle txKind = iota
	txV21
	txTCFZeros
	txFastECM
	txFastNonECM
)

type txSignature struct {
	kind txKind
	typ  modem.Type
}

// Session is one PCM-side T.30 facsimile call: a t30.Session plus the
// modem/HDLC plumbing spec §2 draws as its pipeline. All methods run on
// the caller's thread with no internal synchronization (spec §5).
type Session struct {
	t   *t30.Session
	log *log.Logger

	rx *mux.Rx
	tx *mux.Tx

	v21HdlcRx *hdlc.Receiver
	v21HdlcTx *hdlc.Transmitter
	ecmHdlcRx *hdlc.Receiver
	ecmHdlcTx *hdlc.Transmitter

	nonECMSink *byteBitSink
	nonECMSrc  *byteBitSource
	tcf        tcfMeter

	toneGen *tone.Generator
	cedStep *cedSequencer

	curRx rxSignature
	curTx txSignature
}

// NewSession constructs a Session in phase A, not yet started.
func NewSession(cfg Config) *Session {
	var l = cfg.Logger
	if l == nil {
		l = log.Default()
	}
	cfg.T30.Logger = l
	var s = &Session{
		t:   t30.NewSession(cfg.T30),
		log: l,
	}
	s.v21HdlcRx = hdlc.NewReceiver()
	s.v21HdlcRx.OnFrame = s.onV21Frame
	s.v21HdlcTx = hdlc.NewTransmitter()

	s.ecmHdlcRx = hdlc.NewReceiver()
	s.ecmHdlcRx.GoodFlagsNeeded = 1
	s.ecmHdlcRx.OnFrame = s.onECMFrame
	s.ecmHdlcTx = hdlc.NewTransmitter()

	s.nonECMSink = newByteBitSink(s.t.ReceiveNonECMByte)

	s.tx = mux.NewTx(s.onTxStepComplete)
	s.rx = mux.NewRx(nil, s.onRxEvent)
	return s
}

// T30 exposes the wrapped state machine for read-only inspection (phase,
// completion code, negotiated modem) by callers that need it.
func (s *Session) T30() *t30.Session { return s.t }

// Start begins phase A: CNG on the calling side, CED-then-DIS on the
// answering side (spec §4.5 Phase A).
func (s *Session) Start() {
	s.t.Start()
	s.reconcileRx()
	s.reconcileTx()
}

// Rx delivers one block of 8kHz signed-16 PCM samples from the line (spec
// §6's "rx(session, samples[N])").
func (s *Session) Rx(samples []int16) {
	s.pumpFrames()
	s.reconcileRx()
	s.rx.Feed(samples)
}

// Tx fills out with up to len(out) PCM samples and returns the count
// written (spec §6's "tx(session, out[N]) -> n").
func (s *Session) Tx(out []int16) int {
	s.pumpFrames()
	s.reconcileTx()

	if s.cedStep != nil {
		var n = s.cedStep.Fill(out)
		if s.cedStep.Finished() {
			s.cedStep = nil
		}
		if n >= len(out) || s.cedStep != nil {
			return n
		}
		s.reconcileTx()
		return n + s.tx.TransmitBlock(out[n:])
	}
	if s.toneGen != nil {
		return s.toneGen.Fill(out)
	}
	return s.tx.TransmitBlock(out)
}

// Tick advances all T.30 timers by n samples (spec §5: "Timer expiry is
// checked on every block boundary").
func (s *Session) Tick(n int) {
	s.pumpFrames()
	s.t.Tick(n)
}

// pumpFrames drains t30.Session's outgoing control-frame queue into
// whichever HDLC transmitter currently matches the frame's phase: ECM
// image frames (FCD/RCP) ride the fast modem during an active ECM page,
// everything else (DIS/DCS/CFR/MPS/PPS/MCF/...) rides V.21.
func (s *Session) pumpFrames() {
	for {
		f, ok := s.t.NextOutgoingFrame()
		if !ok {
			return
		}
		var raw = f.Encode()
		if s.t.Phase() == t30.PhaseC && s.t.ECMActive() {
			s.ecmHdlcTx.QueueFrame(raw)
		} else {
			s.v21HdlcTx.QueueFrame(raw)
		}
	}
}

func (s *Session) onV21Frame(f hdlc.Frame) {
	switch f.Status {
	case hdlc.StatusOK:
		if fr, ok := t30.DecodeFrame(f.Bytes); ok {
			s.t.HandleFrame(fr)
		}
	case hdlc.StatusBad, hdlc.StatusLengthError:
		s.t.HandleBadFrame()
	}
}

func (s *Session) onECMFrame(f hdlc.Frame) {
	switch f.Status {
	case hdlc.StatusOK:
		if fr, ok := t30.DecodeFrame(f.Bytes); ok {
			s.t.HandleFrame(fr)
		}
	case hdlc.StatusBad, hdlc.StatusLengthError:
		s.t.HandleBadFrame()
	}
}

func (s *Session) onTxStepComplete() {
	s.tx.QueueIdleSilence()
}

// onRxEvent reacts to modem lifecycle events off whichever receiver(s) are
// currently active (spec §4.3's carrier-up/training/carrier-down sequence).
func (s *Session) onRxEvent(ev mux.RxEvent) {
	switch ev.Event {
	case modem.EventCarrierDown:
		if s.t.State() == t30.StateAwaitingTCFResult {
			s.t.TCFResult(s.tcf.Fraction())
			return
		}
		if s.t.Phase() == t30.PhaseC {
			if s.t.ECMActive() {
				s.t.CarrierLost()
			} else {
				s.t.NonECMPageComplete()
			}
		}
	case modem.EventTrainingFailed:
		if s.t.State() == t30.StateAwaitingTCFResult {
			// A training failure reads as a dirty TCF burst: force the
			// fallback path the same way a too-noisy zero burst would.
			s.t.TCFResult(1.0)
		}
	}
}

// desiredRx computes which receiver ought to be running given the current
// T.30 phase/state (spec §4.4's rx rule).
func (s *Session) desiredRx() rxSignature {
	if s.t.State() == t30.StateAwaitingTCFResult {
		return rxSignature{rxTCF, s.t.NegotiatedModem()}
	}
	switch s.t.Phase() {
	case t30.PhaseC:
		if s.t.ECMActive() {
			return rxSignature{rxFastECM, s.t.NegotiatedModem()}
		}
		return rxSignature{rxFastNonECM, s.t.NegotiatedModem()}
	case t30.PhaseDone:
		return rxSignature{rxNone, modem.TypeNone}
	default:
		return rxSignature{rxV21, modem.TypeV21}
	}
}

func (s *Session) reconcileRx() {
	var want = s.desiredRx()
	if want == s.curRx {
		return
	}
	s.curRx = want
	switch want.mode {
	case rxNone:
		s.rx.Stop()
	case rxV21:
		s.rx = mux.NewRx(s.v21HdlcRx.ReceiveBit, s.onRxEvent)
		s.rx.Start(modem.TypeV21)
	case rxTCF:
		s.tcf.Reset()
		s.rx = mux.NewRx(s.tcf.Bit, s.onRxEvent)
		// Race against V.21 too (spec §4.4: "phase-B after CFR, or
		// image-period start" is exactly this moment) in case the far
		// end never actually sends a TCF burst and instead retries DCS.
		s.rx.StartRace(modem.TypeV21, want.typ)
	case rxFastECM:
		s.rx = mux.NewRx(s.ecmHdlcRx.ReceiveBit, s.onRxEvent)
		s.rx.StartRace(modem.TypeV21, want.typ)
	case rxFastNonECM:
		s.rx = mux.NewRx(s.nonECMSink.Bit, s.onRxEvent)
		s.rx.StartRace(modem.TypeV21, want.typ)
	}
}

func (s *Session) reconcileTx() {
	if s.t.State() == t30.StateTrainingTCF {
		var want = txSignature{txTCFZeros, s.t.NegotiatedModem()}
		if want != s.curTx {
			s.curTx = want
			s.toneGen, s.cedStep = nil, nil
			var remaining = tcfZeroBits(s.t.NegotiatedModem())
			s.tx.QueueModem(0, want.typ, false, zeroBitSource(&remaining), nil)
		}
		return
	}

	switch s.t.Phase() {
	case t30.PhaseA:
		s.reconcilePhaseATone()
	case t30.PhaseC:
		var kind = txFastNonECM
		if s.t.ECMActive() {
			kind = txFastECM
		}
		var want = txSignature{kind, s.t.NegotiatedModem()}
		if want != s.curTx {
			s.curTx = want
			s.toneGen, s.cedStep = nil, nil
			if kind == txFastECM {
				s.tx.QueueModem(0, want.typ, false, s.ecmHdlcTx.NextBit, nil)
			} else {
				s.nonECMSrc = newByteBitSource(s.t.NextNonECMByte)
				s.tx.QueueModem(0, want.typ, false, s.nonECMSrc.Bit, nil)
			}
		}
	default: // B, D, E, Done
		var want = txSignature{txV21, modem.TypeV21}
		if want != s.curTx {
			s.curTx = want
			s.toneGen, s.cedStep = nil, nil
			s.tx.QueueModem(0, modem.TypeV21, false, s.v21HdlcTx.NextBit, nil)
		}
	}
}

// reconcilePhaseATone starts CNG (calling) or the CED-then-DIS sequence
// (answering) once, leaving it running until phase A ends (spec §4.5
// Phase A).
func (s *Session) reconcilePhaseATone() {
	if s.toneGen != nil || s.cedStep != nil {
		return
	}
	s.curTx = txSignature{txIdle, modem.TypeNone}
	if s.t.Role() == t30.RoleCalling {
		s.toneGen = tone.NewCNG()
	} else {
		s.cedStep = newCEDSequencer(s.t.ReadyForPhaseB)
	}
}

// tcfZeroBits is the bit count of a 1.5s TCF burst at t's data rate (spec
// §4.5: "TCF (1.5s of zeros)").
func tcfZeroBits(t modem.Type) int {
	return t.DataRate() * 3 / 2
}

func zeroBitSource(remaining *int) func() (int, bool) {
	return func() (int, bool) {
		if *remaining <= 0 {
			return 0, false
		}
		*remaining--
		return 0, true
	}
}

// cedSequencer plays the answering side's fixed phase-A tone plan: >=200ms
// silence, a 2100Hz CED burst, then >=75ms silence before the initial DIS
// goes out over V.21 (spec §6's CED timing, §4.5 Phase A).
type cedSequencer struct {
	steps      []*tone.Generator
	idx        int
	onDone     func()
	doneCalled bool
}

func newCEDSequencer(onDone func()) *cedSequencer {
	return &cedSequencer{
		steps: []*tone.Generator{
			tone.NewSilence(2000),
			tone.NewCED(3000),
			tone.NewSilence(75),
		},
		onDone: onDone,
	}
}

func (c *cedSequencer) Fill(out []int16) int {
	var n int
	for n < len(out) {
		if c.idx >= len(c.steps) {
			if !c.doneCalled {
				c.doneCalled = true
				if c.onDone != nil {
					c.onDone()
				}
			}
			break
		}
		var got = c.steps[c.idx].Fill(out[n:])
		n += got
		if c.steps[c.idx].Done() {
			c.idx++
		} else if got == 0 {
			break
		}
	}
	return n
}

func (c *cedSequencer) Finished() bool { return c.idx >= len(c.steps) }
