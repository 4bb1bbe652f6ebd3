package t30

// Capabilities is the decoded content of a DIS/DTC/DCS frame's FIF: which
// image-transport modems, compressions, and ECM the declaring/commanding
// side supports or selects (spec §3).
//
// The real ITU-T T.30 FIF packs these into specific bit positions spread
// across several octets (spec §4.7 references "byte 4"'s modem nibble and
// "byte 6"'s ECM bit). This implementation keeps the same byte roles
// (FIF[0] = modem selector, FIF[1] = compression selector, FIF[2] = ECM/
// feature flags) but stores each as a direct bitmask byte rather than the
// ITU's scattered bit layout, since nothing outside this module decodes
// the wire format bit-for-bit (§1 scopes out real ITU conformance).
type Capabilities struct {
	Modems       ModemMask
	Compressions CompressionMask
	ECM          bool
}

func (c Capabilities) encodeFIF() []byte {
	var ecmByte byte
	if c.ECM {
		ecmByte = 1
	}
	return []byte{byte(c.Modems), byte(c.Compressions), ecmByte}
}

func decodeCapabilities(fif []byte) Capabilities {
	var c Capabilities
	if len(fif) > 0 {
		c.Modems = ModemMask(fif[0])
	}
	if len(fif) > 1 {
		c.Compressions = CompressionMask(fif[1])
	}
	if len(fif) > 2 {
		c.ECM = fif[2]&1 != 0
	}
	return c
}

// BuildDIS encodes the answering terminal's capabilities frame (spec
// §4.5 Phase B: "Answering sends DIS").
func BuildDIS(caps Capabilities) Frame {
	return Frame{FCF: FCFDIS, FIF: caps.encodeFIF(), Final: true}
}

// BuildDTC encodes a post-FTT/retry "digital transmit command", used when
// the answering side is itself driving polling (spec §4.5/§9 polling
// supplement). Same FIF layout as DIS.
func BuildDTC(caps Capabilities) Frame {
	return Frame{FCF: FCFDTC, FIF: caps.encodeFIF(), Final: true}
}

// BuildDCS encodes the calling terminal's selected single modem/
// compression/ECM choice (spec §4.5: "Sender fills DCS bit-field from
// (supported-modems intersect remote-DIS-declared-modems)").
func BuildDCS(selectedModem ModemMask, compression CompressionMask, ecm bool) Frame {
	return Frame{FCF: FCFDCS, FIF: Capabilities{Modems: selectedModem, Compressions: compression, ECM: ecm}.encodeFIF(), Final: true}
}

// identityFrame builds an ASCII-identity frame (TSI/CSI/CIG/SUB/SEP/PWD/
// PSA), each at most 20 printable characters per spec §3.
func identityFrame(fcf FCF, ident string) Frame {
	if len(ident) > 20 {
		ident = ident[:20]
	}
	return Frame{FCF: fcf, FIF: []byte(ident), Final: true}
}

func BuildTSI(ident string) Frame { return identityFrame(FCFTSI, ident) }
func BuildCSI(ident string) Frame { return identityFrame(FCFCSI, ident) }
func BuildCIG(ident string) Frame { return identityFrame(FCFCIG, ident) }
func BuildSUB(ident string) Frame { return identityFrame(FCFSUB, ident) }
func BuildSEP(ident string) Frame { return identityFrame(FCFSEP, ident) }
func BuildPWD(ident string) Frame { return identityFrame(FCFPWD, ident) }
func BuildPSA(ident string) Frame { return identityFrame(FCFPSA, ident) }

// nonStandardFrame builds NSF/NSS/NSC: a 3-byte country/vendor code
// followed by up to 100 bytes of vendor-specific payload (spec §3's
// "non-standard-frame blob <=100 bytes").
func nonStandardFrame(fcf FCF, countryCode [3]byte, payload []byte) Frame {
	if len(payload) > 100 {
		payload = payload[:100]
	}
	var fif = make([]byte, 0, 3+len(payload))
	fif = append(fif, countryCode[:]...)
	fif = append(fif, payload...)
	return Frame{FCF: fcf, FIF: fif, Final: true}
}

func BuildNSF(countryCode [3]byte, payload []byte) Frame {
	return nonStandardFrame(FCFNSF, countryCode, payload)
}
func BuildNSS(countryCode [3]byte, payload []byte) Frame {
	return nonStandardFrame(FCFNSS, countryCode, payload)
}
func BuildNSC(countryCode [3]byte, payload []byte) Frame {
	return nonStandardFrame(FCFNSC, countryCode, payload)
}

// BuildPPS encodes a PPS command: subtype byte followed by the page/block
// number and the ECM frame count of the partial page just sent (spec
// §4.5's ECM partial-page protocol).
func BuildPPS(sub PPSSubtype, page, block, frameCount int) Frame {
	return Frame{FCF: FCFPPS, FIF: []byte{byte(sub), byte(page), byte(block), byte(frameCount - 1)}, Final: true}
}

// DecodePPS is the inverse of BuildPPS.
func DecodePPS(f Frame) (sub PPSSubtype, page, block, frameCount int, ok bool) {
	if len(f.FIF) < 4 {
		return 0, 0, 0, 0, false
	}
	return PPSSubtype(f.FIF[0]), int(f.FIF[1]), int(f.FIF[2]), int(f.FIF[3]) + 1, true
}

// BuildPPR encodes the receiver's selective-NAK bitmap (spec §4.5: "PPR
// with the map").
func BuildPPR(bitmap [32]byte) Frame {
	return Frame{FCF: FCFPPR, FIF: bitmap[:], Final: true}
}

// DecodePPR is the inverse of BuildPPR.
func DecodePPR(f Frame) (bitmap [32]byte, ok bool) {
	if len(f.FIF) < 32 {
		return bitmap, false
	}
	copy(bitmap[:], f.FIF[:32])
	return bitmap, true
}

// BuildECMFrame wraps one ECM image fragment as an FCD frame, numbered per
// spec §4.5 ("The sender assigns each frame a sequence number 0..255").
func BuildECMFrame(frameNo int, payload []byte, atPageEnd bool) Frame {
	var fif = make([]byte, 0, 1+len(payload))
	fif = append(fif, byte(frameNo))
	fif = append(fif, payload...)
	return Frame{FCF: FCFFCD, FIF: fif, Final: atPageEnd}
}

// DecodeECMFrame is the inverse of BuildECMFrame.
func DecodeECMFrame(f Frame) (frameNo int, payload []byte, ok bool) {
	if len(f.FIF) < 1 {
		return 0, nil, false
	}
	return int(f.FIF[0]), f.FIF[1:], true
}

// BuildRCP returns the "return to control" marker that closes an ECM
// partial page's frame burst (spec §3's "Non-ECM image stream" sibling for
// ECM mode).
func BuildRCP() Frame {
	return Frame{FCF: FCFRCP, Final: true}
}

func simpleFrame(fcf FCF) Frame {
	return Frame{FCF: fcf, Final: true}
}

func BuildCFR() Frame { return simpleFrame(FCFCFR) }
func BuildFTT() Frame { return simpleFrame(FCFFTT) }
func BuildMCF() Frame { return simpleFrame(FCFMCF) }
func BuildRTP() Frame { return simpleFrame(FCFRTP) }
func BuildRTN() Frame { return simpleFrame(FCFRTN) }
func BuildRNR() Frame { return simpleFrame(FCFRNR) }
func BuildRR() Frame  { return simpleFrame(FCFRR) }
func BuildERR() Frame { return simpleFrame(FCFERR) }
func BuildCRP() Frame { return simpleFrame(FCFCRP) }
func BuildEOR() Frame { return simpleFrame(FCFEOR) }

// BuildDCN returns the disconnect frame that closes phase E (spec §4.5
// Phase E).
func BuildDCN() Frame { return simpleFrame(FCFDCN) }

func BuildMPS() Frame { return simpleFrame(FCFMPS) }
func BuildEOM() Frame { return simpleFrame(FCFEOM) }
func BuildEOP() Frame { return simpleFrame(FCFEOP) }
