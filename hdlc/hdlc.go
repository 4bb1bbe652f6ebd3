package hdlc

const (
	// MinFrameLen is the smallest legal HDLC frame: address, control, FCF.
	// The two FCS bytes come on top of this count.
	MinFrameLen = 3
	// MaxFrameLen is the largest frame this stack will build or accept,
	// not counting the two FCS bytes
	// (spec §3, HDLC frame: "an ordered byte sequence of 3-260 bytes").
	MaxFrameLen = 260

	flagOctet  = 0x7E
	abortOctet = 0x7F
)

// Status is the outcome of assembling one candidate frame off the wire.
type Status int

const (
	// StatusOK means the frame is byte-aligned and its FCS checked out.
	StatusOK Status = iota
	// StatusBad means the frame was byte-aligned but failed its FCS, or
	// was misaligned at the closing flag.
	StatusBad
	// StatusAbort means a HDLC abort sequence (seven or more 1 bits) was
	// seen instead of a flag.
	StatusAbort
	// StatusLengthError means the accumulating frame exceeded MaxFrameLen.
	StatusLengthError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusBad:
		return "BAD"
	case StatusAbort:
		return "ABORT"
	case StatusLengthError:
		return "LENGTH_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Frame is one fully assembled candidate frame delivered to the upper
// layer, stripped of its FCS.
type Frame struct {
	Bytes  []byte
	Status Status
}
