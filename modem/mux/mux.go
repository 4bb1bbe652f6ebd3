// Package mux implements the modem multiplexer of spec §4.4: it decides
// which receive demodulator(s) run on each sample block and sequences
// transmit modem changes through their mandated pre-pause.
package mux

import (
	"github.com/klehmann/gofax/modem"
	"github.com/klehmann/gofax/tone"
)

// RxEvent mirrors modem.Event but is reported against the specific modem
// type that produced it, since a race between two receivers needs to know
// which one is reporting.
type RxEvent struct {
	Type  modem.Type
	Event modem.Event
}

// Rx runs either a single receive modem or, during a race (spec §4.4's
// "Rule for rx"), two at once off the same sample block until one reports
// training-succeeded.
type Rx struct {
	onEvent func(RxEvent)
	onBit   func(bit int)

	primary  modem.Receiver
	primaryT modem.Type
	racing   modem.Receiver
	racingT  modem.Type
	isRacing bool
	decided  bool
}

// NewRx builds an Rx with no active receiver. onBit receives decoded bits
// from whichever receiver wins; onEvent receives lifecycle events from
// both, tagged by type, so the caller can see carrier-up from the loser
// too if useful for diagnostics.
func NewRx(onBit func(int), onEvent func(RxEvent)) *Rx {
	return &Rx{onBit: onBit, onEvent: onEvent}
}

// Start begins listening for a single modem type (no race).
func (x *Rx) Start(t modem.Type) {
	x.primaryT = t
	x.primary = x.newReceiver(t, false)
	x.racing = nil
	x.isRacing = false
	x.decided = false
}

// StartRace begins listening for both v21 (control channel) and hs (the
// negotiated high-speed rate) simultaneously. Whichever announces
// training-succeeded first wins; the other is torn down silently. This
// implements spec §4.4: "While expecting HDLC over V.21 and a high-speed
// modem may arrive ... run BOTH ... When either one reports
// training-succeeded, switch off the other."
func (x *Rx) StartRace(v21, hs modem.Type) {
	x.primaryT = v21
	x.primary = x.newReceiver(v21, false)
	x.racingT = hs
	x.racing = x.newReceiver(hs, false)
	x.isRacing = true
	x.decided = false
}

// Stop tears down any active receiver(s).
func (x *Rx) Stop() {
	x.primary = nil
	x.racing = nil
	x.isRacing = false
}

func (x *Rx) newReceiver(t modem.Type, short bool) modem.Receiver {
	var typ = t
	return modem.NewReceiver(typ, short, func(bit int) {
		if x.shouldDeliverBitsFor(typ) {
			if x.onBit != nil {
				x.onBit(bit)
			}
		}
	}, func(e modem.Event) {
		x.handleEvent(typ, e)
	}, func(ok bool) {
		if ok {
			x.handleEvent(typ, modem.EventTrainingSucceeded)
		} else {
			x.handleEvent(typ, modem.EventTrainingFailed)
		}
	})
}

func (x *Rx) shouldDeliverBitsFor(t modem.Type) bool {
	if !x.isRacing {
		return true
	}
	return x.decided && t == x.winnerType()
}

func (x *Rx) winnerType() modem.Type {
	if x.racing == nil {
		return x.primaryT
	}
	return x.racingT
}

func (x *Rx) handleEvent(t modem.Type, e modem.Event) {
	if x.onEvent != nil {
		x.onEvent(RxEvent{Type: t, Event: e})
	}
	if !x.isRacing || x.decided {
		return
	}
	if e == modem.EventTrainingSucceeded {
		x.decided = true
		if t == x.primaryT {
			x.racing = nil
		} else {
			x.primary = nil
		}
		x.isRacing = false
	}
}

// Feed delivers one sample block to whichever receiver(s) are active.
func (x *Rx) Feed(samples []int16) {
	if x.primary != nil {
		x.primary.ReceiveBlock(samples)
	}
	if x.racing != nil {
		x.racing.ReceiveBlock(samples)
	}
}

// txStep is one queued transmit-handler change: a pre-pause duration
// followed by a new active source.
type txStep struct {
	prePauseMillis int
	newType        modem.Type
	short          bool
	src            func() (int, bool)
	onEvent        func(modem.Event)
}

// Tx sequences transmit modem changes through their mandated pre-pause
// (spec §4.4's "Rule for tx"): queue the new handler with its pre-pause,
// switch when the pre-pause completes, and idle on silence between steps.
type Tx struct {
	active  modem.Transmitter
	silence *tone.Generator
	queued  *txStep

	onStepComplete func()
	idleSilence    bool
}

// NewTx builds an idle Tx. onStepComplete fires each time the active
// handler (or a pre-pause) finishes and nothing further is queued, so the
// caller (normally the T.30 state machine) can decide what comes next.
func NewTx(onStepComplete func()) *Tx {
	return &Tx{onStepComplete: onStepComplete}
}

// QueueModem schedules a switch to t after prePauseMillis of silence,
// pulling bits from src once active.
func (x *Tx) QueueModem(prePauseMillis int, t modem.Type, short bool, src func() (int, bool), onEvent func(modem.Event)) {
	x.queued = &txStep{prePauseMillis: prePauseMillis, newType: t, short: short, src: src, onEvent: onEvent}
	x.active = nil
	x.silence = tone.NewSilence(prePauseMillis)
	x.idleSilence = false
}

// QueueIdleSilence makes the multiplexer emit silence indefinitely until
// the next QueueModem/QueueIdleSilence call (spec §4.4: "idles with
// silence" between steps).
func (x *Tx) QueueIdleSilence() {
	x.queued = nil
	x.active = nil
	x.silence = nil
	x.idleSilence = true
}

func (x *Tx) activateQueued() {
	var q = x.queued
	x.queued = nil
	x.silence = nil
	x.active = modem.NewTransmitter(q.newType, q.short, q.src, func(e modem.Event) {
		if q.onEvent != nil {
			q.onEvent(e)
		}
		if e == modem.EventShutdownComplete {
			x.active = nil
			if x.onStepComplete != nil {
				x.onStepComplete()
			}
		}
	})
}

// TransmitBlock fills out with PCM samples: silence during a pre-pause,
// then the active modem's output, then silence again once idle.
func (x *Tx) TransmitBlock(out []int16) int {
	var n int
	for n < len(out) {
		if x.silence != nil {
			var got = x.silence.Fill(out[n:])
			n += got
			if x.silence.Done() {
				x.activateQueued()
			} else if got == 0 {
				break
			}
			continue
		}
		if x.active != nil {
			var got = x.active.TransmitBlock(out[n:])
			n += got
			if got == 0 {
				break
			}
			continue
		}
		if x.idleSilence {
			for ; n < len(out); n++ {
				out[n] = 0
			}
			break
		}
		break
	}
	return n
}
