// Package t38 implements the T.38 IFP (Internet Facsimile Protocol) packet
// framing layer of spec §4.6: encode/decode, indicator and data-field
// dispatch, redundancy, duplicate suppression, and sequence-number gap
// handling. It is stateless with respect to fax content — a framing layer
// only, driven by a caller-supplied transport.
package t38

// Indicator enumerates the T.38 signal-type indicators of spec §6. The
// V.8/V.34/V.33 members exist only so the wire format round-trips; per
// spec §1/§9 this stack never negotiates V.8/V.34, so those values are
// opaque passthrough.
type Indicator int

const (
	IndNoSignal Indicator = iota
	IndCNG
	IndCED
	IndV21Preamble
	IndV27ter2400Training
	IndV27ter4800Training
	IndV29_7200Training
	IndV29_9600Training
	IndV17_7200ShortTraining
	IndV17_7200LongTraining
	IndV17_9600ShortTraining
	IndV17_9600LongTraining
	IndV17_12000ShortTraining
	IndV17_12000LongTraining
	IndV17_14400ShortTraining
	IndV17_14400LongTraining
	IndV8ANSAM
	IndV8Signal
	IndV34CNTL
	IndV34PRI
	IndV34CC
	IndV34ECC
	IndV33_12000Training
	IndV33_14400Training
)

func (i Indicator) String() string {
	names := [...]string{
		"NO_SIGNAL", "CNG", "CED", "V21_PREAMBLE",
		"V27TER_2400_TRAINING", "V27TER_4800_TRAINING",
		"V29_7200_TRAINING", "V29_9600_TRAINING",
		"V17_7200_SHORT_TRAINING", "V17_7200_LONG_TRAINING",
		"V17_9600_SHORT_TRAINING", "V17_9600_LONG_TRAINING",
		"V17_12000_SHORT_TRAINING", "V17_12000_LONG_TRAINING",
		"V17_14400_SHORT_TRAINING", "V17_14400_LONG_TRAINING",
		"V8_ANSAM", "V8_SIGNAL", "V34_CNTL", "V34_PRI", "V34_CC", "V34_ECC",
		"V33_12000_TRAINING", "V33_14400_TRAINING",
	}
	if int(i) < len(names) {
		return names[i]
	}
	return "UNKNOWN"
}

// FieldType enumerates the data-packet field types of spec §6.
type FieldType int

const (
	FieldHDLCData FieldType = iota
	FieldHDLCFCSOK
	FieldHDLCFCSBad
	FieldHDLCFCSOKSigEnd
	FieldHDLCFCSBadSigEnd
	FieldHDLCSigEnd
	FieldT4NonECMData
	FieldT4NonECMSigEnd
	FieldCMMessage
	FieldJMMessage
	FieldCIMessage
	FieldV34Rate
)

func (f FieldType) String() string {
	names := [...]string{
		"HDLC_DATA", "HDLC_FCS_OK", "HDLC_FCS_BAD", "HDLC_FCS_OK_SIG_END",
		"HDLC_FCS_BAD_SIG_END", "HDLC_SIG_END", "T4_NON_ECM_DATA",
		"T4_NON_ECM_SIG_END", "CM_MESSAGE", "JM_MESSAGE", "CI_MESSAGE", "V34RATE",
	}
	if int(f) < len(names) {
		return names[f]
	}
	return "UNKNOWN"
}

// DataType enumerates the modem/carrier type a data packet's payload is
// carried over (spec §6's "Data-type enumeration"), distinct from
// Indicator (which names the transition, not the ongoing carrier).
type DataType int

const (
	DataV21 DataType = iota
	DataV27ter2400
	DataV27ter4800
	DataV29_7200
	DataV29_9600
	DataV17_7200
	DataV17_9600
	DataV17_12000
	DataV17_14400
	DataV8
	DataV34CNTL
	DataV34PRI
	DataV34CC
	DataV34ECC
	DataV33_12000
	DataV33_14400
)

func (d DataType) String() string {
	names := [...]string{
		"V21", "V27TER_2400", "V27TER_4800", "V29_7200", "V29_9600",
		"V17_7200", "V17_9600", "V17_12000", "V17_14400", "V8",
		"V34_CNTL", "V34_PRI", "V34_CC", "V34_ECC", "V33_12000", "V33_14400",
	}
	if int(d) < len(names) {
		return names[d]
	}
	return "UNKNOWN"
}

// Field is one (type, bytes) record inside a Data packet (spec §3: "a
// Data record (one of ~20 field types ... plus a byte payload)").
type Field struct {
	Type FieldType
	Data []byte
}

// PacketKind distinguishes an Indicator packet from a Data packet (spec
// §3: "carrying either an Indicator ... or a Data record").
type PacketKind int

const (
	PacketIndicator PacketKind = iota
	PacketData
)

// Packet is one T.38 IFP packet.
type Packet struct {
	Kind      PacketKind
	Indicator Indicator
	DataType  DataType
	Fields    []Field
	SeqNo     uint16
}
