package t30

import "errors"

// Error taxonomy of spec §7, as sentinel errors so callers can errors.Is
// against them. Each terminates the session (spec: "Every other condition
// is reported through the phase-E completion callback and terminates the
// session").

// Link errors.
var (
	ErrCEDTooLong             = errors.New("t30: CED tone too long")
	ErrT0Expired              = errors.New("t30: T0 (call answer) expired")
	ErrT1Expired              = errors.New("t30: T1 (identification) expired")
	ErrT3Expired              = errors.New("t30: T3 (operator interrupt) expired")
	ErrHDLCCarrierStuck       = errors.New("t30: HDLC carrier stuck on")
	ErrCannotTrain            = errors.New("t30: cannot train at any supported rate")
	ErrOperatorInterruptFailed = errors.New("t30: operator interrupt failed")
	ErrIncompatible           = errors.New("t30: incompatible with remote terminal")
	ErrRemoteCannotReceive    = errors.New("t30: remote cannot receive")
	ErrRemoteCannotTransmit   = errors.New("t30: remote cannot transmit")
	ErrRemoteCannotMatchResolution = errors.New("t30: remote cannot match resolution")
	ErrRemoteCannotMatchSize  = errors.New("t30: remote cannot match page size")
	ErrUnexpectedMessage      = errors.New("t30: unexpected message")
)

// File errors.
var (
	ErrCannotOpen        = errors.New("t30: cannot open file")
	ErrPageNotFound       = errors.New("t30: page not found")
	ErrUnsupportedFormat  = errors.New("t30: unsupported image format")
	ErrMissingTags        = errors.New("t30: missing image tags")
	ErrNoMemory           = errors.New("t30: no memory")
)

// Transmitter phase-E errors.
var (
	ErrBadResponseToDCS      = errors.New("t30: bad response to DCS")
	ErrDCNAfterPage          = errors.New("t30: DCN received after page")
	ErrInvalidECMResponseTx  = errors.New("t30: invalid ECM response (tx)")
	ErrT5Expired             = errors.New("t30: T5 (ECM receiver-ready) expired")
	ErrDCNInsteadOfDIS       = errors.New("t30: DCN received instead of DIS")
	ErrInvalidResponseAfterPage = errors.New("t30: invalid response after page")
	ErrNonDISResponse        = errors.New("t30: non-DIS response to initial identification")
	ErrNoResponseToDCS       = errors.New("t30: no response to DCS")
	ErrNoResponseAfterPage   = errors.New("t30: no response after page")
)

// Receiver phase-E errors.
var (
	ErrInvalidECMResponseRx = errors.New("t30: invalid ECM response (rx)")
	ErrDCSWhenDTCExpected   = errors.New("t30: DCS received when DTC expected")
	ErrUnexpectedAfterPage  = errors.New("t30: unexpected frame after page")
	ErrCarrierLost          = errors.New("t30: carrier lost")
	ErrNoEOL                = errors.New("t30: no EOL in received image data")
	ErrNoFirstLine          = errors.New("t30: no first scan line received")
	ErrT2ExpiredForDCN      = errors.New("t30: T2 expired waiting for DCN")
	ErrT2ExpiredForPhaseD   = errors.New("t30: T2 expired waiting for phase D command")
	ErrT2ExpiredForFax      = errors.New("t30: T2 expired waiting for fax data")
	ErrT2ExpiredForMPS      = errors.New("t30: T2 expired waiting after MPS")
	ErrT2ExpiredForRR       = errors.New("t30: T2 expired waiting for RR")
	ErrT2ExpiredGeneric     = errors.New("t30: T2 expired")
	ErrDCNDuringHandshake   = errors.New("t30: DCN received during handshake")
	ErrDCNDuringData        = errors.New("t30: DCN received during data")
	ErrDCNDuringFax         = errors.New("t30: DCN received during fax")
	ErrDCNAfterEOMorMPS     = errors.New("t30: DCN received after EOM/MPS")
	ErrDCNAfterRRorRNR      = errors.New("t30: DCN received after RR/RNR")
	ErrDCNAfterRTN          = errors.New("t30: DCN received after RTN")
)
