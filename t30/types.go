// Package t30 implements the ITU-T T.30 facsimile session state machine of
// spec §4.5: phases A-E, frame dispatch by function code, timer
// management, rate negotiation/fallback, and the ECM partial-page protocol
// with selective retransmission. The modem/HDLC/image-stream plumbing that
// drives bytes and frames into and out of this state machine lives in the
// root `fax` package (spec §2's pipeline); this package only knows about
// T.30 semantics.
package t30

import "github.com/klehmann/gofax/modem"

// Role distinguishes the calling (originating) and answering (receiving)
// ends of one session, per spec §3.
type Role int

const (
	RoleCalling Role = iota
	RoleAnswering
)

// Phase is one of the five T.30 phases of spec §3/§4.5.
type Phase int

const (
	PhaseA Phase = iota // call establishment
	PhaseB              // pre-message negotiation
	PhaseC              // message
	PhaseD              // post-message
	PhaseE              // hang-up
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseA:
		return "A"
	case PhaseB:
		return "B"
	case PhaseC:
		return "C"
	case PhaseD:
		return "D"
	case PhaseE:
		return "E"
	case PhaseDone:
		return "done"
	default:
		return "?"
	}
}

// State is the sub-state within a Phase, e.g. "awaiting DIS" or
// "training TCF" (spec §3).
type State int

const (
	StateIdle State = iota
	StateCNGWait
	StateCEDWait
	StateAwaitingDIS
	StateSendDCS
	StateTrainingTCF
	StateAwaitingTCFResult
	StateAwaitingCFRorFTT
	StateSendingImage
	StateAwaitingPostMessageResponse
	StateSendingPostMessageCommand
	StateAwaitingNextCommand
	StateECMAwaitingPPR
	StateSendingDCN
	StateAwaitingDCN
)

// CompletionCode enumerates the outcome reported exactly once, on entering
// PhaseDone, via the phase_e callback (spec §6/§7).
type CompletionCode int

const (
	CompletionOK CompletionCode = iota
	CompletionCannotTrain
	CompletionLinkError
	CompletionFileError
	CompletionTxPhaseEError
	CompletionRxPhaseEError
)

// ModemMask is a bitmask of supported/negotiated image-transport modem
// types, keyed by bit position matching the DCS/DIS bit-field layout
// (spec §3's "supported-modem mask").
type ModemMask uint32

const (
	ModemV27ter2400 ModemMask = 1 << iota
	ModemV27ter4800
	ModemV29_7200
	ModemV29_9600
	ModemV17_7200
	ModemV17_9600
	ModemV17_12000
	ModemV17_14400
)

// Types returns the modem types set in m, ordered fastest-first within
// each family (V.17 preferred over V.29 over V.27ter, matching spec
// §4.5's "Rate negotiation": "Initial rate is the highest jointly
// supported").
func (m ModemMask) Types() []modem.Type {
	var out []modem.Type
	for _, t := range modem.FallbackTableV17 {
		if m.has(t) {
			out = append(out, t)
		}
	}
	for _, t := range modem.FallbackTableV29 {
		if m.has(t) {
			out = append(out, t)
		}
	}
	for _, t := range modem.FallbackTableV27ter {
		if m.has(t) {
			out = append(out, t)
		}
	}
	return out
}

func (m ModemMask) has(t modem.Type) bool {
	switch t {
	case modem.TypeV27ter2400:
		return m&ModemV27ter2400 != 0
	case modem.TypeV27ter4800:
		return m&ModemV27ter4800 != 0
	case modem.TypeV29_7200:
		return m&ModemV29_7200 != 0
	case modem.TypeV29_9600:
		return m&ModemV29_9600 != 0
	case modem.TypeV17_7200:
		return m&ModemV17_7200 != 0
	case modem.TypeV17_9600:
		return m&ModemV17_9600 != 0
	case modem.TypeV17_12000:
		return m&ModemV17_12000 != 0
	case modem.TypeV17_14400:
		return m&ModemV17_14400 != 0
	default:
		return false
	}
}

// CompressionMask bits (spec §3: "compression mask").
type CompressionMask uint8

const (
	CompressionMH CompressionMask = 1 << iota
	CompressionMR
	CompressionMMR
)

// FallbackTable orders every modem in mask family by family, as Types does:
// all V.17 rates, then V.29, then V.27ter, fastest-first within each family.
// A V.17 rate is therefore listed before a faster V.29 rate. The session
// starts at index 0 and steps down one entry per FTT (spec §4.5).
func FallbackTable(mask ModemMask) []modem.Type {
	return mask.Types()
}
