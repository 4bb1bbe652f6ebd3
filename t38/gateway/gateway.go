// Package gateway implements the T.38 gateway of spec §4.7: a PCM FAX
// endpoint on one side, a T.38 IFP packet stream on the other, with the
// modem set running against PCM and the t38 core framing running against
// packets. Unlike t30.Session, a Gateway tracks no phases — it only
// inspects select frames to adjust its own forwarding behaviour.
package gateway

import (
	"github.com/charmbracelet/log"

	"github.com/klehmann/gofax/hdlc"
	"github.com/klehmann/gofax/modem"
	"github.com/klehmann/gofax/modem/mux"
	"github.com/klehmann/gofax/t30"
	"github.com/klehmann/gofax/t38"
)

// hdlcRingSlots / hdlcRingBytes size the outgoing HDLC jitter buffer (spec
// §4.7: "ring of 256 slots x 260 bytes").
const (
	hdlcRingSlots     = 256
	hdlcRingBytes     = 260
	hdlcReleaseThresh = 8 // bytes queued before releasing to the modem
)

// Config configures one Gateway.
type Config struct {
	SupportedModems t30.ModemMask
	ECMAllowed      bool
	NSXSuppression  bool
	CountryCode     [3]byte
	Logger          *log.Logger
}

// Gateway bridges one PCM fax call to one IFP packet stream.
type Gateway struct {
	cfg Config
	log *log.Logger

	rx  *mux.Rx
	tx  *mux.Tx
	ep  *t38.Endpoint

	hdlcRx *hdlc.Receiver
	hdlcTx *hdlc.Transmitter

	ring      []ringEntry
	ringBytes int

	cfrSeen     bool
	shortRetrain bool

	nonECMFillHigh bool // true until first non-ECM data byte, then fills with 0x00
	nonECMQueue    []byte
	nonECMCur      byte
	nonECMCurLeft  int

	currentDataType t38.DataType
	txDataType      t38.DataType
	txActive        bool
}

// New constructs a Gateway. transport carries encoded IFP packets; redundancy
// is the per-packet repeat count (spec §4.6).
func New(cfg Config, transport t38.Transport, redundancy int) *Gateway {
	var l = cfg.Logger
	if l == nil {
		l = log.Default()
	}
	var g = &Gateway{cfg: cfg, log: l, nonECMFillHigh: true}
	g.ep = t38.NewEndpoint(transport, redundancy, g.onPacket, g.onMissing)
	g.hdlcRx = hdlc.NewReceiver()
	g.hdlcRx.GoodFlagsNeeded = 1
	g.hdlcRx.OnFrame = g.onHDLCFrame
	g.hdlcTx = hdlc.NewTransmitter()
	g.tx = mux.NewTx(g.onTxStepComplete)
	g.rx = mux.NewRx(g.hdlcRx.ReceiveBit, g.onModemEvent)
	return g
}

// FeedPCM delivers PCM samples from the telephone-line side (spec §6's
// rx(session, samples)).
func (g *Gateway) FeedPCM(samples []int16) {
	g.rx.Feed(samples)
}

// FillPCM produces PCM samples for the telephone-line side (spec §6's
// tx(session, out) -> n).
func (g *Gateway) FillPCM(out []int16) int {
	return g.tx.TransmitBlock(out)
}

// PollPackets drains the transport and dispatches received IFP packets.
func (g *Gateway) PollPackets() {
	g.ep.Poll()
}

// StartPCMModem begins receiving PCM with the dual V.21/high-speed race of
// spec §4.4, used while waiting for the far end's next signal.
func (g *Gateway) StartPCMModem(hs modem.Type) {
	g.rx.StartRace(modem.TypeV21, hs)
}

func (g *Gateway) onModemEvent(ev mux.RxEvent) {
	switch ev.Event {
	case modem.EventCarrierDown:
		g.flushHDLCSigEnd()
	}
}

// onHDLCFrame applies the frame-editing rules of spec §4.7, bit-reverses
// the result, and buffers it in the jitter ring; flushReady then decides
// whether enough has accumulated to actually send it as
// T38_FIELD_HDLC_DATA (+ FCS_OK/BAD).
func (g *Gateway) onHDLCFrame(f hdlc.Frame) {
	var edited = g.editFrame(f.Bytes)
	var reversed = bitReverseAll(edited)

	var fieldType = t38.FieldHDLCFCSOK
	if f.Status != hdlc.StatusOK {
		fieldType = t38.FieldHDLCFCSBad
	}
	g.queueHDLC(reversed, fieldType)
	g.flushReady()
}

// flushReady drains the jitter ring once at least hdlcReleaseThresh bytes
// have accumulated, sending every buffered frame as one packet's worth of
// merged HDLC_DATA/marker field pairs (spec §4.8's "merged fields"
// optimisation, applied here to the ring's batching too).
func (g *Gateway) flushReady() {
	if g.ringBytes < hdlcReleaseThresh {
		return
	}
	var fields []t38.Field
	for {
		var data, fieldType, ok = g.ReleaseHDLC()
		if !ok {
			break
		}
		fields = append(fields, t38.Field{Type: t38.FieldHDLCData, Data: data}, t38.Field{Type: fieldType})
	}
	if len(fields) == 0 {
		return
	}
	g.ep.Send(t38.Packet{Kind: t38.PacketData, DataType: g.currentDataType, Fields: fields})
}

// editFrame applies the DIS/DCS clip and NSx overwrite rules in place on a
// copy of raw (spec §4.7 "Frame editing"). raw is the address+control+FCF+
// FIF bytes, pre-FCS (the hdlc package strips the FCS from delivered
// frames).
func (g *Gateway) editFrame(raw []byte) []byte {
	var out = append([]byte{}, raw...)
	if len(out) < 3 {
		return out
	}
	var fcf = t30.FCF(out[2])
	switch fcf {
	case t30.FCFDIS, t30.FCFDTC, t30.FCFDCS:
		if len(out) > 3 {
			var supported = byte(g.cfg.SupportedModems)
			out[3] &= supported
		}
		if fcf != t30.FCFDCS && len(out) > 5 && !g.cfg.ECMAllowed {
			out[5] = 0
		}
	case t30.FCFNSF, t30.FCFNSC, t30.FCFNSS:
		if g.cfg.NSXSuppression && len(out) > 3 {
			for i := 3; i < len(out); i++ {
				if i-3 < len(g.cfg.CountryCode) {
					out[i] = g.cfg.CountryCode[i-3]
				} else {
					out[i] = 0
				}
			}
		}
	}
	if fcf == t30.FCFCFR {
		g.cfrSeen = true
		g.shortRetrain = true
	}
	if fcf == t30.FCFCRP {
		g.shortRetrain = false
	}
	return out
}

// bitReverse swaps a byte's bit order (spec §4.7: "T.38 is MSB-first on the
// wire, HDLC is LSB-first in memory").
func bitReverse(b byte) byte {
	var r byte
	for i := 0; i < 8; i++ {
		r <<= 1
		r |= b & 1
		b >>= 1
	}
	return r
}

// ringEntry is one buffered outgoing HDLC frame awaiting release, paired
// with the FCS marker its status implies.
type ringEntry struct {
	data      []byte
	fieldType t38.FieldType
}

// queueHDLC buffers an outgoing HDLC frame in the jitter ring (spec §4.7's
// "ring of 256 slots x 260 bytes ... not released ... until at least 8
// bytes are queued").
func (g *Gateway) queueHDLC(frame []byte, fieldType t38.FieldType) {
	if len(g.ring) >= hdlcRingSlots {
		g.log.Warn("t38/gateway: HDLC ring full, dropping frame")
		return
	}
	if len(frame) > hdlcRingBytes {
		frame = frame[:hdlcRingBytes]
	}
	g.ring = append(g.ring, ringEntry{data: frame, fieldType: fieldType})
	g.ringBytes += len(frame)
}

// ReleaseHDLC pops the next buffered frame once the release threshold is
// met, for delivery to the IFP side as a T38_FIELD_HDLC_DATA/marker pair.
func (g *Gateway) ReleaseHDLC() ([]byte, t38.FieldType, bool) {
	if g.ringBytes < hdlcReleaseThresh || len(g.ring) == 0 {
		return nil, 0, false
	}
	var e = g.ring[0]
	g.ring = g.ring[1:]
	g.ringBytes -= len(e.data)
	return e.data, e.fieldType, true
}

func (g *Gateway) flushHDLCSigEnd() {
	g.ep.Send(t38.Packet{
		Kind:     t38.PacketData,
		DataType: g.currentDataType,
		Fields:   []t38.Field{{Type: t38.FieldHDLCSigEnd}},
	})
	g.ep.Send(t38.Packet{Kind: t38.PacketIndicator, Indicator: t38.IndNoSignal})
}

// FeedNonECMByte forwards one PCM-side non-ECM image byte as
// T38_FIELD_T4_NON_ECM_DATA (spec §4.7 "Non-ECM forwarding").
func (g *Gateway) FeedNonECMByte(b byte) {
	g.ep.Send(t38.Packet{
		Kind:     t38.PacketData,
		DataType: g.currentDataType,
		Fields:   []t38.Field{{Type: t38.FieldT4NonECMData, Data: []byte{b}}},
	})
}

// NonECMSigEnd signals carrier-down during non-ECM data.
func (g *Gateway) NonECMSigEnd() {
	g.ep.Send(t38.Packet{
		Kind:     t38.PacketData,
		DataType: g.currentDataType,
		Fields:   []t38.Field{{Type: t38.FieldT4NonECMSigEnd}},
	})
	g.nonECMFillHigh = true
}

// NextNonECMFillByte returns the fill octet to feed the PCM-side modem while
// no packet data is available: 0xFF before the first data byte, 0x00
// afterward (spec §4.7).
func (g *Gateway) NextNonECMFillByte() byte {
	if g.nonECMFillHigh {
		return 0xFF
	}
	return 0x00
}

func (g *Gateway) onPacket(p t38.Packet) {
	if p.Kind == t38.PacketIndicator {
		g.currentDataType = indicatorToDataType(p.Indicator)
		if p.Indicator == t38.IndNoSignal {
			g.txActive = false
			return
		}
		g.reconcileTxModem(p.Indicator)
		return
	}
	for _, fld := range p.Fields {
		switch fld.Type {
		case t38.FieldHDLCData:
			g.hdlcTx.QueueFrame(bitReverseAll(fld.Data))
		case t38.FieldHDLCFCSBad:
			g.hdlcTx.CorruptNextFrame()
		case t38.FieldT4NonECMData:
			g.nonECMFillHigh = false
			g.nonECMQueue = append(g.nonECMQueue, fld.Data...)
		case t38.FieldT4NonECMSigEnd, t38.FieldHDLCSigEnd, t38.FieldHDLCFCSOKSigEnd, t38.FieldHDLCFCSBadSigEnd:
			g.txActive = false
		}
	}
}

// reconcileTxModem switches the PCM-side transmitter to match an indicator
// arriving from the IFP side, pulling bits from the HDLC transmitter (for
// V.21 and ECM image frames riding the fast modem) or from the buffered
// T4 non-ECM fill queue (spec §4.7's "Non-ECM forwarding" run in reverse).
func (g *Gateway) reconcileTxModem(ind t38.Indicator) {
	var t = indicatorToModemType(ind)
	if t == modem.TypeNone {
		return
	}
	g.txActive = true
	g.txDataType = g.currentDataType
	if ind == t38.IndV21Preamble {
		g.tx.QueueModem(0, t, false, g.hdlcTx.NextBit, nil)
		return
	}
	if isHDLCCarrier(ind) {
		g.tx.QueueModem(0, t, g.shortRetrain, g.hdlcTx.NextBit, nil)
		return
	}
	g.tx.QueueModem(0, t, g.shortRetrain, g.nextNonECMBit, nil)
}

// nextNonECMBit drains g.nonECMQueue MSB-first, falling back to
// NextNonECMFillByte's 0xFF/0x00 filler once the queue runs dry (spec
// §4.7's "Non-ECM forwarding", applied to PCM-side transmit).
func (g *Gateway) nextNonECMBit() (int, bool) {
	if !g.txActive {
		return 0, false
	}
	if g.nonECMCurLeft == 0 {
		if len(g.nonECMQueue) > 0 {
			g.nonECMCur = g.nonECMQueue[0]
			g.nonECMQueue = g.nonECMQueue[1:]
		} else {
			g.nonECMCur = g.NextNonECMFillByte()
		}
		g.nonECMCurLeft = 8
	}
	g.nonECMCurLeft--
	return int((g.nonECMCur >> uint(g.nonECMCurLeft)) & 1), true
}

func (g *Gateway) onTxStepComplete() {
	g.tx.QueueIdleSilence()
}

// isHDLCCarrier reports whether ind names a carrier used to send HDLC
// frames (V.21 control, or the fast modem carrying ECM FCD/RCP frames);
// the gateway can't distinguish ECM-HDLC from non-ECM-data by indicator
// alone, so callers needing that split track it via DataType elsewhere.
func isHDLCCarrier(ind t38.Indicator) bool {
	return ind == t38.IndV21Preamble
}

func indicatorToModemType(ind t38.Indicator) modem.Type {
	switch ind {
	case t38.IndV21Preamble:
		return modem.TypeV21
	case t38.IndV27ter2400Training:
		return modem.TypeV27ter2400
	case t38.IndV27ter4800Training:
		return modem.TypeV27ter4800
	case t38.IndV29_7200Training:
		return modem.TypeV29_7200
	case t38.IndV29_9600Training:
		return modem.TypeV29_9600
	case t38.IndV17_7200ShortTraining, t38.IndV17_7200LongTraining:
		return modem.TypeV17_7200
	case t38.IndV17_9600ShortTraining, t38.IndV17_9600LongTraining:
		return modem.TypeV17_9600
	case t38.IndV17_12000ShortTraining, t38.IndV17_12000LongTraining:
		return modem.TypeV17_12000
	case t38.IndV17_14400ShortTraining, t38.IndV17_14400LongTraining:
		return modem.TypeV17_14400
	default:
		return modem.TypeNone
	}
}

func bitReverseAll(data []byte) []byte {
	var out = make([]byte, len(data))
	for i, b := range data {
		out[i] = bitReverse(b)
	}
	return out
}

// onMissing implements the queue-missing-indicator behaviour of spec
// §4.6/§4.7: a sequence gap on the packet side means an indicator packet was
// lost, so the gateway must infer the signal transition it never saw rather
// than merely note that one happened. It reconstructs the indicator that
// must have been sent for the in-progress field-class from g.currentDataType
// (the last data-type this endpoint observed) and re-drives the same
// modem-reconciliation path a genuinely received indicator would have taken;
// per §9's "Error-correcting carrier-down races" note, re-running that path
// on a signal already in progress is harmless idempotent re-sync, not a
// second transition.
func (g *Gateway) onMissing(expected, got uint16) {
	g.log.Warn("t38/gateway: missing packets, inferring signal transition", "expected", expected, "got", got)
	var ind = dataTypeToIndicator(g.currentDataType, g.shortRetrain)
	g.reconcileTxModem(ind)
}

// dataTypeToIndicator inverts indicatorToDataType: given the data-type of
// the in-progress field-class, it names the indicator that must have
// preceded it, so a lost indicator packet can be reconstructed from the
// data packets that did arrive.
func dataTypeToIndicator(dt t38.DataType, short bool) t38.Indicator {
	switch dt {
	case t38.DataV21:
		return t38.IndV21Preamble
	case t38.DataV27ter2400:
		return t38.IndV27ter2400Training
	case t38.DataV27ter4800:
		return t38.IndV27ter4800Training
	case t38.DataV29_7200:
		return t38.IndV29_7200Training
	case t38.DataV29_9600:
		return t38.IndV29_9600Training
	case t38.DataV17_7200:
		if short {
			return t38.IndV17_7200ShortTraining
		}
		return t38.IndV17_7200LongTraining
	case t38.DataV17_9600:
		if short {
			return t38.IndV17_9600ShortTraining
		}
		return t38.IndV17_9600LongTraining
	case t38.DataV17_12000:
		if short {
			return t38.IndV17_12000ShortTraining
		}
		return t38.IndV17_12000LongTraining
	case t38.DataV17_14400:
		if short {
			return t38.IndV17_14400ShortTraining
		}
		return t38.IndV17_14400LongTraining
	default:
		return t38.IndV21Preamble
	}
}

func indicatorToDataType(ind t38.Indicator) t38.DataType {
	switch ind {
	case t38.IndV21Preamble:
		return t38.DataV21
	case t38.IndV27ter2400Training:
		return t38.DataV27ter2400
	case t38.IndV27ter4800Training:
		return t38.DataV27ter4800
	case t38.IndV29_7200Training:
		return t38.DataV29_7200
	case t38.IndV29_9600Training:
		return t38.DataV29_9600
	case t38.IndV17_7200ShortTraining, t38.IndV17_7200LongTraining:
		return t38.DataV17_7200
	case t38.IndV17_9600ShortTraining, t38.IndV17_9600LongTraining:
		return t38.DataV17_9600
	case t38.IndV17_12000ShortTraining, t38.IndV17_12000LongTraining:
		return t38.DataV17_12000
	case t38.IndV17_14400ShortTraining, t38.IndV17_14400LongTraining:
		return t38.DataV17_14400
	default:
		return t38.DataV21
	}
}
