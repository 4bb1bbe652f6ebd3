package t38

import (
	"encoding/binary"
	"errors"
)

// ErrTruncated is returned by Decode when the buffer ends before a
// length-prefixed field is fully present.
var ErrTruncated = errors.New("t38: truncated packet")

// Encode renders a Packet as bytes: seqno(2) | kind(1) | indicator-or-
// datatype(1) | field-count(1) | (type(1) len(2) data...)*. This is not the
// UDPTL/T38-over-RTP wire format of ITU-T T.38 Annex A/B — spec §6 only
// requires the gateway and terminal halves of this stack to agree with each
// other, so a simpler self-describing framing is used, documented here
// rather than reverse-engineering the ITU ASN.1/UDPTL encoding byte-for-byte.
func Encode(p Packet) []byte {
	var out = make([]byte, 0, 8+16*len(p.Fields))
	var seq [2]byte
	binary.BigEndian.PutUint16(seq[:], p.SeqNo)
	out = append(out, seq[:]...)
	out = append(out, byte(p.Kind))
	if p.Kind == PacketIndicator {
		out = append(out, byte(p.Indicator))
		return out
	}
	out = append(out, byte(p.DataType))
	out = append(out, byte(len(p.Fields)))
	for _, fld := range p.Fields {
		out = append(out, byte(fld.Type))
		var l [2]byte
		binary.BigEndian.PutUint16(l[:], uint16(len(fld.Data)))
		out = append(out, l[:]...)
		out = append(out, fld.Data...)
	}
	return out
}

// Decode parses bytes produced by Encode.
func Decode(raw []byte) (Packet, error) {
	if len(raw) < 3 {
		return Packet{}, ErrTruncated
	}
	var p Packet
	p.SeqNo = binary.BigEndian.Uint16(raw[0:2])
	p.Kind = PacketKind(raw[2])
	if p.Kind == PacketIndicator {
		if len(raw) < 4 {
			return Packet{}, ErrTruncated
		}
		p.Indicator = Indicator(raw[3])
		return p, nil
	}
	if len(raw) < 5 {
		return Packet{}, ErrTruncated
	}
	p.DataType = DataType(raw[3])
	var count = int(raw[4])
	var off = 5
	for i := 0; i < count; i++ {
		if off+3 > len(raw) {
			return Packet{}, ErrTruncated
		}
		var ft = FieldType(raw[off])
		var l = int(binary.BigEndian.Uint16(raw[off+1 : off+3]))
		off += 3
		if off+l > len(raw) {
			return Packet{}, ErrTruncated
		}
		p.Fields = append(p.Fields, Field{Type: ft, Data: append([]byte{}, raw[off:off+l]...)})
		off += l
	}
	return p, nil
}
