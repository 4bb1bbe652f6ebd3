package t30

import (
	"github.com/charmbracelet/log"
	"github.com/klehmann/gofax/modem"
)

// PhaseBResult is reported to Config.OnPhaseB once DIS/DCS negotiation
// settles (spec §6 callback "phase_b(session, result)").
type PhaseBResult struct {
	Negotiated modem.Type
	ECM        bool
	Err        error
}

// PhaseDResult is reported to Config.OnPhaseD once a page's post-message
// exchange settles (spec §6 callback "phase_d(session, result)").
type PhaseDResult struct {
	Kind PostMessageKind
	OK   bool
	Err  error
}

// DocumentStatus is reported to Config.OnDocumentHandler as pages
// complete (spec §6 callback "document_handler(session, status)").
type DocumentStatus int

const (
	DocumentPageStarted DocumentStatus = iota
	DocumentPageDone
	DocumentComplete
)

// Direction tags a frame for Config.OnRealTimeFrame (spec §6's
// "real_time_frame(session, direction, bytes)").
type Direction int

const (
	DirectionTx Direction = iota
	DirectionRx
)

// Config configures one Session (spec §3's Session attributes). All
// identity strings are truncated to 20 characters per spec; NonStandard is
// truncated to 100 bytes.
type Config struct {
	Role Role

	SupportedModems       ModemMask
	SupportedCompressions CompressionMask
	ECMAllowed             bool

	Ident                  string
	SubAddress             string
	SenderID               string
	Password               string
	PollingAddress         string
	SelectivePollingAddress string
	NonStandard            []byte
	CountryCode            [3]byte

	Logger *log.Logger

	OnPhaseB          func(*Session, PhaseBResult)
	OnPhaseD          func(*Session, PhaseDResult)
	OnPhaseE          func(*Session, CompletionCode, error)
	OnDocumentHandler func(*Session, DocumentStatus)
	OnRealTimeFrame   func(*Session, Direction, []byte)

	// NextPageByte supplies the next non-ECM image byte for transmit;
	// ok=false signals end of page (spec §3's "Non-ECM image stream").
	NextPageByte func() (byte, bool)
	// OnPageByte receives each non-ECM image byte decoded from the far
	// end.
	OnPageByte func(byte)
	// NextECMFrame supplies the next ECM fragment (<=256 bytes at >=7200
	// bps, else <=64) for transmit; ok=false signals end of page.
	NextECMFrame func(maxLen int) (payload []byte, ok bool)
	// OnECMFrame receives each reassembled ECM fragment, in frame-number
	// order, once the partial page is confirmed complete.
	OnECMFrame func(payload []byte)
	// HasMorePages reports whether another page follows the one just
	// completed, driving the sender's MPS/EOP choice.
	HasMorePages func() bool
}

// Session is one T.30 facsimile call (spec §3). All methods run on the
// caller's thread with no internal synchronization, per spec §5's
// single-threaded cooperative model.
type Session struct {
	cfg Config
	log *log.Logger

	phase Phase
	state State

	timers timerSet

	localCaps  Capabilities
	remoteCaps Capabilities

	negotiatedModem modem.Type
	negotiatedComp  CompressionMask
	ecmActive       bool
	fallback        []modem.Type
	fallbackIdx     int

	remoteTSI, remoteCSI string

	currentPage  int
	currentBlock int
	ecmRx        *ecmBuffer
	ecmTx        *ecmSendBuffer
	ecmFrameLen  int

	pprCount             int
	receiverNotReadyCount int
	retries              int

	pendingPostKind PostMessageKind
	lastDCS         Frame
	lastPPS         Frame

	outQueue []Frame

	completionCode CompletionCode
	completionErr  error
	done           bool
}

// NewSession constructs a Session in Phase A, not yet started.
func NewSession(cfg Config) *Session {
	if len(cfg.NonStandard) > 100 {
		cfg.NonStandard = cfg.NonStandard[:100]
	}
	var l = cfg.Logger
	if l == nil {
		l = log.Default()
	}
	return &Session{
		cfg:   cfg,
		log:   l,
		phase: PhaseA,
		state: StateIdle,
		ecmRx: newECMBuffer(),
		ecmTx: newECMSendBuffer(),
	}
}

func (s *Session) Phase() Phase { return s.phase }
func (s *Session) State() State { return s.state }

// Completion returns the completion code and error once the session has
// reached PhaseDone; ok is false before then.
func (s *Session) Completion() (CompletionCode, error, bool) {
	return s.completionCode, s.completionErr, s.done
}

// Start begins phase A. The calling side arms T1 to bound the whole
// identification attempt (spec §4.5); tone/CNG generation is driven
// externally by the fax package's mux/tone layer, not by this type.
func (s *Session) Start() {
	s.localCaps = Capabilities{Modems: s.cfg.SupportedModems, Compressions: s.cfg.SupportedCompressions, ECM: s.cfg.ECMAllowed}
	s.timers.Arm(TimerT1, DefaultT1)
	if s.cfg.Role == RoleAnswering {
		s.state = StateCEDWait
	} else {
		s.state = StateCNGWait
	}
}

// ReadyForPhaseB is called by the fax package once the answering side's
// CED tone has completed and V.21 carrier can start (spec §4.5 Phase A:
// "followed by 75ms silence and initial DIS"). It queues the initial DIS.
func (s *Session) ReadyForPhaseB() {
	if s.cfg.Role != RoleAnswering {
		return
	}
	s.phase = PhaseB
	s.state = StateAwaitingDIS // awaiting DCS, name kept for spec's state vocabulary
	s.enqueue(BuildDIS(s.localCaps))
	if s.cfg.Ident != "" {
		s.enqueue(BuildCSI(s.cfg.Ident))
	}
	s.timers.Arm(TimerT1, DefaultT1)
}

func (s *Session) enqueue(f Frame) {
	s.outQueue = append(s.outQueue, f)
}

// NextOutgoingFrame dequeues the next control frame queued for
// transmission, if any.
func (s *Session) NextOutgoingFrame() (Frame, bool) {
	if len(s.outQueue) == 0 {
		return Frame{}, false
	}
	var f = s.outQueue[0]
	s.outQueue = s.outQueue[1:]
	if s.cfg.OnRealTimeFrame != nil {
		s.cfg.OnRealTimeFrame(s, DirectionTx, f.Encode())
	}
	return f, true
}

// Tick advances all timers by n samples (one sample block), per spec §5:
// "Timer expiry is checked on every block boundary." If a timer fires, it
// dispatches that timer's escalation directly; nothing is returned.
func (s *Session) Tick(n int) {
	id, fired := s.timers.Tick(n)
	if !fired {
		return
	}
	s.handleTimerExpiry(id)
}

func (s *Session) handleTimerExpiry(id TimerID) {
	switch id {
	case TimerT1:
		if s.cfg.Role == RoleCalling {
			s.fail(CompletionLinkError, ErrT1Expired)
		} else {
			s.fail(CompletionLinkError, ErrT1Expired)
		}
	case TimerT2, TimerT4:
		s.handleT2T4Expiry()
	case TimerT3:
		s.fail(CompletionLinkError, ErrOperatorInterruptFailed)
	case TimerT5:
		s.fail(CompletionTxPhaseEError, ErrT5Expired)
	}
}

// handleT2T4Expiry retransmits the last command up to 3 times (spec
// §4.5's timer discipline), then escalates to DCN with the
// unexpected-message error.
func (s *Session) handleT2T4Expiry() {
	s.retries++
	if s.retries > 3 {
		s.fail(CompletionLinkError, ErrUnexpectedMessage)
		return
	}
	switch s.state {
	case StateAwaitingCFRorFTT:
		s.enqueue(s.lastDCS)
		s.timers.Arm(TimerT4, DefaultT4)
	case StateAwaitingPostMessageResponse:
		s.resendPostMessageCommand()
		s.timers.Arm(TimerT4, DefaultT4)
	case StateECMAwaitingPPR:
		s.enqueue(s.lastPPS)
		s.timers.Arm(TimerT4, DefaultT4)
	case StateAwaitingDCN:
		s.fail(CompletionTxPhaseEError, ErrNoResponseAfterPage)
	default:
		if s.phase == PhaseB {
			s.fail(CompletionLinkError, ErrNoResponseToDCS)
		} else {
			s.fail(CompletionLinkError, ErrT2ExpiredGeneric)
		}
	}
}

func (s *Session) fail(code CompletionCode, err error) {
	if s.done {
		return
	}
	s.phase = PhaseE
	s.enqueue(BuildDCN())
	s.completionCode = code
	s.completionErr = err
	s.state = StateSendingDCN
	s.finish()
}

func (s *Session) finish() {
	if s.done {
		return
	}
	s.done = true
	s.phase = PhaseDone
	if s.cfg.OnPhaseE != nil {
		s.cfg.OnPhaseE(s, s.completionCode, s.completionErr)
	}
}

// NegotiatedModem / ECMActive / CurrentPage expose read-only session state
// the fax package needs to drive the modem multiplexer and image I/O.
func (s *Session) NegotiatedModem() modem.Type { return s.negotiatedModem }
func (s *Session) ECMActive() bool             { return s.ecmActive }
func (s *Session) Role() Role                  { return s.cfg.Role }
func (s *Session) CurrentPage() int            { return s.currentPage }

// CarrierLost is called by the fax package when the active receive modem
// reports carrier-down outside of an expected shutdown (spec §7's
// "carrier-lost" receiver phase-E error).
func (s *Session) CarrierLost() {
	if s.phase == PhaseC {
		s.fail(CompletionRxPhaseEError, ErrCarrierLost)
	}
}

func (s *Session) succeed() {
	s.completionCode = CompletionOK
	s.completionErr = nil
	s.phase = PhaseE
	s.enqueue(BuildDCN())
	s.finish()
}
