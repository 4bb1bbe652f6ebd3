package t30

// NextNonECMByte is pulled by the fax package to feed the non-ECM image
// modem transmitter one byte at a time (spec §3: "delivered byte-by-byte
// from the image source into the modem tx"). RTC and any T.4 framing is
// the page source's responsibility (spec §1: TIFF/T.4 codec work is an
// out-of-scope collaborator) — once it reports end of data, this method
// starts the post-message command.
func (s *Session) NextNonECMByte() (byte, bool) {
	if s.cfg.NextPageByte == nil {
		s.nonECMTxComplete()
		return 0, false
	}
	b, ok := s.cfg.NextPageByte()
	if !ok {
		s.nonECMTxComplete()
	}
	return b, ok
}

// ReceiveNonECMByte delivers one decoded non-ECM image byte to the page
// sink.
func (s *Session) ReceiveNonECMByte(b byte) {
	if s.cfg.OnPageByte != nil {
		s.cfg.OnPageByte(b)
	}
}

// NonECMPageComplete is called by the fax package (receiver side) once
// the non-ECM modem reports carrier-down after RTC, ending the page (spec
// §3's non-ECM stream is "delimited by EOL markers" and terminated by
// RTC, detected at the byte-framing layer, not here).
func (s *Session) NonECMPageComplete() {
	if s.phase != PhaseC {
		return
	}
	if s.cfg.OnDocumentHandler != nil {
		s.cfg.OnDocumentHandler(s, DocumentPageDone)
	}
	s.phase = PhaseD
	s.state = StateAwaitingPostMessageResponse // named for the command-awaiting side too; receiver waits for the command itself here
	s.timers.Arm(TimerT2, DefaultT2)
}

func (s *Session) nonECMTxComplete() {
	if s.cfg.OnDocumentHandler != nil {
		s.cfg.OnDocumentHandler(s, DocumentPageDone)
	}
	s.phase = PhaseD
	var kind = PostMPS
	if s.cfg.HasMorePages == nil || !s.cfg.HasMorePages() {
		kind = PostEOP
	} else {
		kind = PostMPS
	}
	s.pendingPostKind = kind
	s.sendPostMessageCommand()
}

func (s *Session) sendPostMessageCommand() {
	var f Frame
	switch s.pendingPostKind {
	case PostMPS:
		f = BuildMPS()
	case PostEOM:
		f = BuildEOM()
	case PostEOP:
		f = BuildEOP()
	case PostPPSNull:
		f = BuildPPS(PPSNull, s.currentPage, s.currentBlock, s.ecmTx.Count())
	case PostPPSMPS:
		f = BuildPPS(PPSMPS, s.currentPage, s.currentBlock, s.ecmTx.Count())
	case PostPPSEOM:
		f = BuildPPS(PPSEOM, s.currentPage, s.currentBlock, s.ecmTx.Count())
	case PostPPSEOP:
		f = BuildPPS(PPSEOP, s.currentPage, s.currentBlock, s.ecmTx.Count())
	}
	s.lastPPS = f
	s.enqueue(f)
	if s.ecmActive {
		s.state = StateECMAwaitingPPR
	} else {
		s.state = StateAwaitingPostMessageResponse
	}
	s.timers.Arm(TimerT4, DefaultT4)
}

func (s *Session) resendPostMessageCommand() {
	s.enqueue(s.lastPPS)
}

// beginECMPageTx pulls as many ECM fragments as the page source has for
// this partial page (spec §4.5: "up to 256 frames"), queues them as FCD
// HDLC frames followed by RCP, and then the matching PPS.
func (s *Session) beginECMPageTx() {
	s.ecmTx.Reset()
	for i := 0; i < ECMFrameSlots; i++ {
		if s.cfg.NextECMFrame == nil {
			break
		}
		payload, ok := s.cfg.NextECMFrame(s.ecmFrameLen)
		if !ok {
			break
		}
		s.ecmTx.Add(payload)
	}
	var n = s.ecmTx.Count()
	for i := 0; i < n; i++ {
		fr, _ := s.ecmTx.Frame(i)
		s.enqueue(BuildECMFrame(i, fr, i == n-1))
	}
	s.enqueue(BuildRCP())

	if n < ECMFrameSlots {
		if s.cfg.OnDocumentHandler != nil {
			s.cfg.OnDocumentHandler(s, DocumentPageDone)
		}
		s.phase = PhaseD
		if s.cfg.HasMorePages != nil && s.cfg.HasMorePages() {
			s.pendingPostKind = PostPPSMPS
		} else {
			s.pendingPostKind = PostPPSEOP
		}
	} else {
		s.pendingPostKind = PostPPSNull
	}
	s.sendPostMessageCommand()
}
