package t38

// Transport is the caller-supplied unreliable datagram channel an Endpoint
// rides on (spec §6: "an opaque, unreliable, out-of-order-tolerant
// transport"). Send/Recv carry already-encoded IFP packets.
type Transport interface {
	Send(data []byte) error
	// Recv returns the next received datagram, or ok=false if none is
	// currently available (non-blocking poll, matching the sample-clocked
	// cooperative model of spec §5).
	Recv() (data []byte, ok bool)
}

// Endpoint implements the send-side redundancy and receive-side
// duplicate-suppression/gap-detection of spec §4.6. It does not interpret
// packet contents; the gateway and terminal packages layer T.30/PCM
// semantics on top.
type Endpoint struct {
	transport Transport

	txSeq      uint16
	redundancy int // number of extra repeats per packet, 0 disables

	rxSeq     uint16
	rxStarted bool

	onMissing func(expected, got uint16)
	onPacket  func(Packet)
}

// NewEndpoint wires an Endpoint to transport. redundancy is the number of
// extra repeat transmissions per packet (spec §4.6: "T.38 senders
// customarily repeat each packet two or three times to mask UDP loss");
// pass 0 to disable. onPacket is invoked for every new (non-duplicate)
// packet received, in arrival order; onMissing is invoked once per
// detected sequence-number gap, naming the range of missing sequence
// numbers (first missing, first present).
func NewEndpoint(transport Transport, redundancy int, onPacket func(Packet), onMissing func(expected, got uint16)) *Endpoint {
	return &Endpoint{
		transport:  transport,
		redundancy: redundancy,
		onPacket:   onPacket,
		onMissing:  onMissing,
	}
}

// Send encodes and transmits p, stamping it with the next sequence number
// and repeating it redundancy extra times (spec §4.6).
func (e *Endpoint) Send(p Packet) error {
	p.SeqNo = e.txSeq
	e.txSeq++
	var raw = Encode(p)
	for i := 0; i < 1+e.redundancy; i++ {
		if err := e.transport.Send(raw); err != nil {
			return err
		}
	}
	return nil
}

// Poll drains all currently available datagrams from the transport,
// suppressing duplicates (repeats of a sequence number already delivered)
// and reporting sequence gaps via onMissing before delivering the packet
// that closed the gap.
func (e *Endpoint) Poll() {
	for {
		var raw, ok = e.transport.Recv()
		if !ok {
			return
		}
		var p, err = Decode(raw)
		if err != nil {
			continue
		}
		e.handle(p)
	}
}

func (e *Endpoint) handle(p Packet) {
	if !e.rxStarted {
		e.rxStarted = true
		e.rxSeq = p.SeqNo
		e.deliver(p)
		return
	}
	switch {
	case p.SeqNo == e.rxSeq:
		// duplicate of the last delivered sequence number; a redundant repeat.
		return
	case seqAfter(p.SeqNo, e.rxSeq):
		if p.SeqNo != e.rxSeq+1 && e.onMissing != nil {
			e.onMissing(e.rxSeq+1, p.SeqNo)
		}
		e.rxSeq = p.SeqNo
		e.deliver(p)
	default:
		// stale repeat of an already-advanced-past sequence number.
	}
}

func (e *Endpoint) deliver(p Packet) {
	if e.onPacket != nil {
		e.onPacket(p)
	}
}

// seqAfter reports whether b is strictly after a under 16-bit sequence
// wraparound (spec §4.6's "sequence numbers wrap at 2^16 and comparison
// must account for that").
func seqAfter(b, a uint16) bool {
	return int16(b-a) > 0
}
