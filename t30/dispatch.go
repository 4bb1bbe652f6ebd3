package t30

import "github.com/klehmann/gofax/modem"

// HandleFrame dispatches one CRC-good HDLC frame on its FCF (spec §4.5:
// "Each received HDLC frame with valid CRC is dispatched on its FCF").
// CRC-bad frames are reported via HandleBadFrame instead; they never reach
// here.
func (s *Session) HandleFrame(f Frame) {
	if s.done {
		return
	}
	if s.cfg.OnRealTimeFrame != nil {
		s.cfg.OnRealTimeFrame(s, DirectionRx, f.Encode())
	}
	s.retries = 0

	switch f.FCF {
	case FCFDIS, FCFDTC:
		s.onDIS(f)
	case FCFCSI:
		s.remoteCSI = string(f.FIF)
	case FCFNSF, FCFNSC:
		// vendor-specific; logged via real-time-frame callback, no action.
	case FCFDCS:
		s.onDCS(f)
	case FCFTSI:
		s.remoteTSI = string(f.FIF)
	case FCFSUB, FCFSEP, FCFPWD, FCFPSA, FCFCIG, FCFCRP:
		// Identity/sub-addressing frames carried alongside DIS/DCS/CSI;
		// observed via the real-time-frame callback, no state change.
	case FCFCFR:
		s.onCFR()
	case FCFFTT:
		s.onFTT()
	case FCFMPS, FCFEOM, FCFEOP:
		s.onPostMessageCommand(f)
	case FCFPPS:
		s.onPPS(f)
	case FCFMCF:
		s.onMCF()
	case FCFRTP:
		s.onRTP()
	case FCFRTN:
		s.onRTN()
	case FCFPPR:
		s.onPPR(f)
	case FCFRNR:
		s.onRNR()
	case FCFRR:
		s.onRR()
	case FCFERR:
		s.onERR()
	case FCFEOR:
		s.onEOR()
	case FCFDCN:
		s.onDCN()
	case FCFFCD:
		s.onFCD(f)
	case FCFRCP:
		s.onRCP()
	default:
		s.log.Warn("t30: unexpected frame", "fcf", f.FCF, "phase", s.phase)
		s.fail(CompletionLinkError, ErrUnexpectedMessage)
	}
}

// HandleBadFrame is called for a CRC-bad HDLC frame. Per spec §4.5's
// propagation policy, a bad frame triggers the same retransmit/T4 behavior
// as an unanswered command: the peer simply never saw a valid reply, so
// the existing T2/T4 timeout logic (handleT2T4Expiry) covers it once the
// timer fires. This method only logs; no state change is needed here.
func (s *Session) HandleBadFrame() {
	s.log.Debug("t30: CRC-bad frame received", "phase", s.phase, "state", s.state)
}

func (s *Session) onDIS(f Frame) {
	if s.cfg.Role != RoleCalling {
		s.fail(CompletionRxPhaseEError, ErrDCSWhenDTCExpected)
		return
	}
	if s.phase != PhaseA && s.phase != PhaseB {
		s.fail(CompletionRxPhaseEError, ErrDCNInsteadOfDIS)
		return
	}
	// The calling side has no explicit "enter phase B" signal of its own
	// (unlike ReadyForPhaseB on the answering side): phase A ends, and
	// phase B begins, the moment the far end's DIS is actually received.
	s.phase = PhaseB
	s.remoteCaps = decodeCapabilities(f.FIF)
	s.timers.Cancel()
	s.beginRateNegotiation()
}

// beginRateNegotiation selects the fastest modem jointly supported by
// local and remote capability masks (spec §4.5: "Initial rate is the
// highest jointly supported"), building the fallback table for FTT
// handling.
func (s *Session) beginRateNegotiation() {
	var joint = s.localCaps.Modems & s.remoteCaps.Modems
	s.fallback = FallbackTable(joint)
	s.fallbackIdx = 0
	if len(s.fallback) == 0 {
		s.fail(CompletionLinkError, ErrIncompatible)
		return
	}
	var comp = s.localCaps.Compressions & s.remoteCaps.Compressions
	if comp == 0 {
		s.fail(CompletionLinkError, ErrRemoteCannotMatchResolution)
		return
	}
	s.negotiatedComp = lowestCompressionBit(comp)
	s.ecmActive = s.localCaps.ECM && s.remoteCaps.ECM
	s.sendDCSAndTCF()
}

func lowestCompressionBit(m CompressionMask) CompressionMask {
	for _, b := range []CompressionMask{CompressionMH, CompressionMR, CompressionMMR} {
		if m&b != 0 {
			return b
		}
	}
	return 0
}

func (s *Session) sendDCSAndTCF() {
	if s.fallbackIdx >= len(s.fallback) {
		s.fail(CompletionCannotTrain, ErrCannotTrain)
		return
	}
	var chosen = s.fallback[s.fallbackIdx]
	s.negotiatedModem = chosen
	var mask = maskForType(chosen)
	var dcs = BuildDCS(mask, s.negotiatedComp, s.ecmActive)
	s.lastDCS = dcs
	s.enqueue(dcs)
	if s.cfg.Ident != "" {
		s.enqueue(BuildTSI(s.cfg.Ident))
	}
	s.state = StateTrainingTCF
	s.timers.Arm(TimerT4, DefaultT4)
}

func maskForType(t modem.Type) ModemMask {
	switch t {
	case modem.TypeV27ter2400:
		return ModemV27ter2400
	case modem.TypeV27ter4800:
		return ModemV27ter4800
	case modem.TypeV29_7200:
		return ModemV29_7200
	case modem.TypeV29_9600:
		return ModemV29_9600
	case modem.TypeV17_7200:
		return ModemV17_7200
	case modem.TypeV17_9600:
		return ModemV17_9600
	case modem.TypeV17_12000:
		return ModemV17_12000
	case modem.TypeV17_14400:
		return ModemV17_14400
	default:
		return 0
	}
}

func (s *Session) onDCS(f Frame) {
	if s.cfg.Role != RoleAnswering {
		s.fail(CompletionRxPhaseEError, ErrUnexpectedAfterPage)
		return
	}
	var caps = decodeCapabilities(f.FIF)
	var chosen modem.Type
	for _, t := range FallbackTable(caps.Modems) {
		chosen = t
		break
	}
	if chosen == modem.TypeNone {
		s.fail(CompletionLinkError, ErrIncompatible)
		return
	}
	s.negotiatedModem = chosen
	s.negotiatedComp = caps.Compressions
	s.ecmActive = caps.ECM && s.cfg.ECMAllowed
	s.timers.Cancel()
	s.state = StateAwaitingTCFResult
}

// TCFResult is called by the fax package once the 1.5s TCF zero-burst has
// been received and its non-zero-bit fraction measured (spec §4.5/§9:
// "the exact threshold ... is tuned empirically ... reproduce ~10% by
// count over the 9600bps TCF window").
const tcfFailThreshold = 0.10

func (s *Session) TCFResult(onesFraction float64) {
	if s.state != StateAwaitingTCFResult {
		return
	}
	if onesFraction < tcfFailThreshold {
		s.enqueue(BuildCFR())
		s.phase = PhaseC
		s.state = StateSendingImage // "sending" named per spec state vocabulary; this side is receiving
		s.beginPageRx()
		if s.cfg.OnPhaseB != nil {
			s.cfg.OnPhaseB(s, PhaseBResult{Negotiated: s.negotiatedModem, ECM: s.ecmActive})
		}
	} else {
		s.enqueue(BuildFTT())
		s.state = StateAwaitingDIS
		s.timers.Arm(TimerT1, DefaultT1)
	}
}

func (s *Session) onCFR() {
	if s.state != StateTrainingTCF && s.state != StateAwaitingCFRorFTT {
		s.fail(CompletionTxPhaseEError, ErrBadResponseToDCS)
		return
	}
	s.timers.Cancel()
	s.phase = PhaseC
	s.state = StateSendingImage
	s.beginPageTx()
	if s.cfg.OnPhaseB != nil {
		s.cfg.OnPhaseB(s, PhaseBResult{Negotiated: s.negotiatedModem, ECM: s.ecmActive})
	}
}

func (s *Session) onFTT() {
	if s.state != StateTrainingTCF && s.state != StateAwaitingCFRorFTT {
		s.fail(CompletionTxPhaseEError, ErrBadResponseToDCS)
		return
	}
	s.timers.Cancel()
	s.fallbackIdx++
	s.sendDCSAndTCF()
}

func (s *Session) beginPageRx() {
	s.currentPage = 0
	s.currentBlock = 0
	if s.ecmActive {
		s.ecmRx.Reset()
		s.ecmFrameLen = ecmFrameLenFor(s.negotiatedModem)
	}
	if s.cfg.OnDocumentHandler != nil {
		s.cfg.OnDocumentHandler(s, DocumentPageStarted)
	}
}

func (s *Session) beginPageTx() {
	s.currentPage = 0
	s.currentBlock = 0
	if s.ecmActive {
		s.ecmFrameLen = ecmFrameLenFor(s.negotiatedModem)
		s.beginECMPageTx()
	}
}

// ecmFrameLenFor returns the ECM fragment size for modem t: 64 bytes below
// 7200bps, 256 bytes at or above (spec §4.5: "up to 256 frames of 64 bytes
// (at <=4800bps) or 256 bytes (at >=7200bps)").
func ecmFrameLenFor(t modem.Type) int {
	if t.DataRate() >= 7200 {
		return 256
	}
	return 64
}
