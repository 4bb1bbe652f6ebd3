package t30

// onPostMessageCommand handles a non-ECM MPS/EOM/EOP received by the
// answering (receiving) side (spec §4.5 Phase D).
func (s *Session) onPostMessageCommand(f Frame) {
	if s.phase != PhaseD {
		s.fail(CompletionRxPhaseEError, ErrUnexpectedAfterPage)
		return
	}
	s.timers.Cancel()
	switch f.FCF {
	case FCFMPS:
		s.pendingPostKind = PostMPS
	case FCFEOM:
		s.pendingPostKind = PostEOM
	case FCFEOP:
		s.pendingPostKind = PostEOP
	}
	s.enqueue(BuildMCF())
	s.respondToPostMessage()
}

func (s *Session) respondToPostMessage() {
	if s.cfg.OnPhaseD != nil {
		s.cfg.OnPhaseD(s, PhaseDResult{Kind: s.pendingPostKind, OK: true})
	}
	switch s.pendingPostKind {
	case PostEOP, PostPPSEOP:
		s.succeed()
	case PostMPS, PostPPSMPS:
		s.currentPage++
		s.currentBlock = 0
		s.phase = PhaseC
		s.state = StateSendingImage
		if s.ecmActive {
			s.ecmRx.Reset()
		}
		if s.cfg.OnDocumentHandler != nil {
			s.cfg.OnDocumentHandler(s, DocumentPageStarted)
		}
	case PostEOM, PostPPSEOM:
		s.currentPage++
		s.currentBlock = 0
		s.phase = PhaseB
		s.state = StateAwaitingDIS
		s.timers.Arm(TimerT1, DefaultT1)
	case PostPPSNull:
		s.currentBlock++
		s.phase = PhaseC
		s.state = StateSendingImage
	}
}

// onPPS handles an ECM PPS command on the receiving side (spec §4.5's
// partial-page protocol): reply MCF once every expected slot is filled,
// else PPR with the bitmap of what's missing.
func (s *Session) onPPS(f Frame) {
	if s.phase != PhaseD && s.phase != PhaseC {
		s.fail(CompletionRxPhaseEError, ErrUnexpectedAfterPage)
		return
	}
	sub, _, _, frameCount, ok := DecodePPS(f)
	if !ok {
		s.fail(CompletionRxPhaseEError, ErrInvalidECMResponseRx)
		return
	}
	s.timers.Cancel()
	s.phase = PhaseD

	if s.ecmRx.AllGood(frameCount) {
		s.enqueue(BuildMCF())
		s.deliverECMPage(frameCount)
		switch sub {
		case PPSNull:
			s.pendingPostKind = PostPPSNull
		case PPSMPS:
			s.pendingPostKind = PostPPSMPS
		case PPSEOM:
			s.pendingPostKind = PostPPSEOM
		case PPSEOP:
			s.pendingPostKind = PostPPSEOP
		}
		s.respondToPostMessage()
		return
	}

	s.receiverNotReadyCount = 0
	var bitmap = s.ecmRx.PPRBitmap()
	s.enqueue(BuildPPR(bitmap))
	s.pprCount++
	if s.pprCount > 4 {
		s.enqueue(BuildEOR())
		s.timers.Arm(TimerT5, DefaultT5)
		return
	}
	s.state = StateAwaitingPostMessageResponse
	s.timers.Arm(TimerT2, DefaultT2)
}

func (s *Session) deliverECMPage(frameCount int) {
	if s.cfg.OnECMFrame != nil {
		for i := 0; i < frameCount; i++ {
			if payload, ok := s.ecmRx.slotPayload(i); ok {
				s.cfg.OnECMFrame(payload)
			}
		}
	}
	s.ecmRx.Reset()
	s.pprCount = 0
}

// onMCF handles a non-ECM MCF / a confirmed ECM page from the sender's
// side: the post-message command just queued succeeded.
func (s *Session) onMCF() {
	if s.state != StateAwaitingPostMessageResponse && s.state != StateECMAwaitingPPR {
		s.fail(CompletionTxPhaseEError, ErrInvalidResponseAfterPage)
		return
	}
	s.timers.Cancel()
	s.pprCount = 0
	if s.cfg.OnPhaseD != nil {
		s.cfg.OnPhaseD(s, PhaseDResult{Kind: s.pendingPostKind, OK: true})
	}
	switch s.pendingPostKind {
	case PostEOP, PostPPSEOP:
		s.succeed()
	case PostMPS, PostPPSMPS:
		s.currentPage++
		s.currentBlock = 0
		s.phase = PhaseC
		s.state = StateSendingImage
		s.beginPageTx()
	case PostEOM, PostPPSEOM:
		s.currentPage++
		s.currentBlock = 0
		s.phase = PhaseB
		s.state = StateSendDCS
		s.beginRateNegotiation()
	case PostPPSNull:
		s.currentBlock++
		s.phase = PhaseC
		s.state = StateSendingImage
		s.beginECMPageTx()
	}
}

// onRTP / onRTN handle non-ECM retrain responses: RTP accepts the page
// at reduced quality, RTN requests a retrain/resend (spec §4.5 Phase D).
func (s *Session) onRTP() {
	if s.state != StateAwaitingPostMessageResponse {
		s.fail(CompletionTxPhaseEError, ErrInvalidResponseAfterPage)
		return
	}
	s.timers.Cancel()
	s.onMCF()
}

func (s *Session) onRTN() {
	if s.state != StateAwaitingPostMessageResponse {
		s.fail(CompletionTxPhaseEError, ErrInvalidResponseAfterPage)
		return
	}
	s.timers.Cancel()
	s.fallbackIdx++
	if s.fallbackIdx >= len(s.fallback) {
		s.fail(CompletionCannotTrain, ErrCannotTrain)
		return
	}
	s.phase = PhaseB
	s.sendDCSAndTCF()
}

// onPPR handles the sender side's selective-retransmission response
// (spec §4.5: "Sender re-sends only the frames whose bit is 0 in PPR,
// followed by a fresh PPS"). Once more than four PPRs have arrived, the
// sender steps down to the next fallback rate by re-sending DCS and TCF
// instead of retrying at the same rate; no CTC frame is sent. With the
// fallback table exhausted it sends EOR and arms T5.
func (s *Session) onPPR(f Frame) {
	if s.state != StateECMAwaitingPPR {
		s.fail(CompletionTxPhaseEError, ErrInvalidECMResponseTx)
		return
	}
	bitmap, ok := DecodePPR(f)
	if !ok {
		s.fail(CompletionTxPhaseEError, ErrInvalidECMResponseTx)
		return
	}
	s.timers.Cancel()
	s.pprCount++
	var bad = BadFramesFromPPR(bitmap, s.ecmTx.Count())
	if len(bad) == 0 {
		// Shouldn't happen (all-good implies MCF), but treat leniently.
		s.onMCF()
		return
	}
	if s.pprCount > 4 {
		s.fallbackIdx++
		if s.fallbackIdx >= len(s.fallback) {
			s.enqueue(BuildEOR())
			s.timers.Arm(TimerT5, DefaultT5)
			return
		}
		s.phase = PhaseB
		s.sendDCSAndTCF()
		return
	}
	for _, n := range bad {
		payload, _ := s.ecmTx.Frame(n)
		s.enqueue(BuildECMFrame(n, payload, n == len(bad)-1))
	}
	s.sendPostMessageCommand()
}

// onRNR / onRR implement the ECM receiver-not-ready loop bounded by T5
// (spec §4.5).
func (s *Session) onRNR() {
	s.receiverNotReadyCount++
	s.enqueue(BuildRR())
	s.timers.Arm(TimerT5, DefaultT5)
}

func (s *Session) onRR() {
	// Sender polls with RR while the receiver works through a backlog;
	// nothing else to do until RNR stops or data resumes.
}

// onERR / onEOR implement the final retransmission-abandon
// handshake (spec §4.5: "after further failure it emits EOR and the
// receiver issues ERR to continue or DCN to abort").
func (s *Session) onERR() {
	if s.phase != PhaseD {
		return
	}
	s.deliverECMPage(s.ecmTx.Count())
	s.succeed()
}

func (s *Session) onEOR() {
	s.enqueue(BuildERR())
}

func (s *Session) onDCN() {
	switch s.phase {
	case PhaseB:
		s.fail(CompletionLinkError, ErrDCNDuringHandshake)
	case PhaseC:
		s.fail(CompletionRxPhaseEError, ErrDCNDuringFax)
	case PhaseD:
		switch s.pendingPostKind {
		case PostMPS, PostPPSMPS:
			s.fail(CompletionRxPhaseEError, ErrDCNAfterEOMorMPS)
		case PostEOM, PostPPSEOM:
			s.fail(CompletionRxPhaseEError, ErrDCNAfterEOMorMPS)
		default:
			s.fail(CompletionRxPhaseEError, ErrDCNAfterPage)
		}
	default:
		s.succeed()
	}
}

func (s *Session) onFCD(f Frame) {
	if s.phase != PhaseC && s.phase != PhaseD {
		return
	}
	n, payload, ok := DecodeECMFrame(f)
	if !ok {
		return
	}
	s.ecmRx.Store(n, payload)
}

func (s *Session) onRCP() {
	// RCP marks the end of this FCD burst; the PPS that follows carries
	// the authoritative frame count, so there is nothing to act on here
	// beyond what onPPS already does. Per spec §9, RCP/SIG_END races are
	// tolerated as an idempotent marker.
}
