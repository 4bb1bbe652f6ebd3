package modem

import "testing"

// bitSource turns a byte slice into a MSB-first bit supplier suitable for
// Transmitter's src callback.
func bitSource(data []byte) func() (int, bool) {
	var byteIdx, bitIdx int
	return func() (int, bool) {
		if byteIdx >= len(data) {
			return 0, false
		}
		var bit = int(data[byteIdx]>>(7-bitIdx)) & 1
		bitIdx++
		if bitIdx == 8 {
			bitIdx = 0
			byteIdx++
		}
		return bit, true
	}
}

// bitSink collects decoded bits and packs them MSB-first into bytes.
type bitSink struct {
	bits []int
}

func (s *bitSink) onBit(b int) { s.bits = append(s.bits, b) }

func (s *bitSink) bytes(n int) []byte {
	var out = make([]byte, n)
	for i := 0; i < n && i*8+8 <= len(s.bits); i++ {
		var v byte
		for j := 0; j < 8; j++ {
			v = (v << 1) | byte(s.bits[i*8+j])
		}
		out[i] = v
	}
	return out
}

func transmitAll(tx Transmitter) []int16 {
	var out []int16
	var buf = make([]int16, 256)
	for {
		var n = tx.TransmitBlock(buf)
		if n == 0 {
			break
		}
		out = append(out, buf[:n]...)
	}
	return out
}

func roundTripCarrier(t *testing.T, typ Type) {
	t.Helper()
	var payload = []byte("the quick brown fox jumps over the lazy dog 0123456789")

	var tx = NewTransmitter(typ, false, bitSource(payload), nil)
	var samples = transmitAll(tx)

	var sink bitSink
	var trainingOK bool
	var gotTrainingEvent bool
	var rx = NewReceiver(typ, false, sink.onBit, func(e Event) {
		if e == EventTrainingSucceeded {
			gotTrainingEvent = true
		}
	}, func(ok bool) { trainingOK = ok })

	rx.ReceiveBlock(samples)

	if !trainingOK {
		t.Fatalf("%v: training did not converge", typ)
	}
	if !gotTrainingEvent {
		t.Fatalf("%v: EventTrainingSucceeded not fired", typ)
	}

	var got = sink.bytes(len(payload))
	if string(got) != string(payload) {
		t.Fatalf("%v: roundtrip mismatch: got %q want %q", typ, got, payload)
	}
}

func TestCarrierModemRoundTrip(t *testing.T) {
	for _, typ := range []Type{
		TypeV27ter2400, TypeV27ter4800,
		TypeV29_4800, TypeV29_7200, TypeV29_9600,
		TypeV17_7200, TypeV17_9600, TypeV17_12000, TypeV17_14400,
	} {
		typ := typ
		t.Run(typ.String(), func(t *testing.T) {
			roundTripCarrier(t, typ)
		})
	}
}

func TestV17ShortRetrainRoundTrip(t *testing.T) {
	var payload = []byte("short retrain payload")

	var tx = NewTransmitter(TypeV17_9600, true, bitSource(payload), nil)
	var samples = transmitAll(tx)

	var sink bitSink
	var trainingOK bool
	var rx = NewReceiver(TypeV17_9600, true, sink.onBit, nil, func(ok bool) { trainingOK = ok })
	rx.ReceiveBlock(samples)

	if !trainingOK {
		t.Fatal("short retrain: training did not converge")
	}
	var got = sink.bytes(len(payload))
	if string(got) != string(payload) {
		t.Fatalf("short retrain roundtrip mismatch: got %q want %q", got, payload)
	}
}

func TestV21RoundTrip(t *testing.T) {
	var payload = []byte("\x7e\x7e hdlc-ish payload over v21 \x7e\x7e")

	var tx = NewV21Transmitter(bitSource(payload), nil)
	var samples = transmitAll(tx)

	var sink bitSink
	var rx = NewV21Receiver(sink.onBit, nil)
	rx.ReceiveBlock(samples)

	var got = sink.bytes(len(payload))
	if string(got) != string(payload) {
		t.Fatalf("v21 roundtrip mismatch: got %q want %q", got, payload)
	}
}

func TestScramblerRoundTrip(t *testing.T) {
	var tx = NewV29Scrambler()
	var rx = NewV29Scrambler()

	var input = []int{1, 0, 1, 1, 0, 0, 0, 1, 1, 1, 0, 1, 0, 0, 1, 0}
	var out []int
	for _, b := range input {
		out = append(out, tx.Scramble(b))
	}
	var recovered []int
	for _, b := range out {
		recovered = append(recovered, rx.Descramble(b))
	}
	for i := range input {
		if recovered[i] != input[i] {
			t.Fatalf("scrambler roundtrip mismatch at %d: got %v want %v", i, recovered, input)
		}
	}
}
