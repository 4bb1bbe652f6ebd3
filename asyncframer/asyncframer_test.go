package asyncframer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klehmann/gofax/asyncframer"
)

func TestRoundTrip8N1(t *testing.T) {
	var payload = []byte{0x00, 0xFF, 0x55, 0xAA, 0x41}
	var i = 0
	tx, err := asyncframer.NewTransmitter(asyncframer.DefaultConfig(), func() (byte, bool) {
		if i >= len(payload) {
			return 0, false
		}
		var b = payload[i]
		i++
		return b, true
	})
	require.NoError(t, err)

	rx, err := asyncframer.NewReceiver(asyncframer.DefaultConfig())
	require.NoError(t, err)
	var got []byte
	var parityOK []bool
	rx.OnByte = func(b byte, ok bool) {
		got = append(got, b)
		parityOK = append(parityOK, ok)
	}

	for n := 0; n < 200; n++ {
		bit, ok := tx.NextBit()
		if !ok {
			rx.ReceiveBit(1)
			continue
		}
		rx.ReceiveBit(bit)
	}

	require.Len(t, got, len(payload))
	assert.Equal(t, payload, got)
	for _, ok := range parityOK {
		assert.True(t, ok)
	}
}

func TestParityEvenDetectsFault(t *testing.T) {
	var cfg = asyncframer.Config{DataBits: 7, Parity: asyncframer.ParityEven, StopBits: 1}
	i := 0
	payload := []byte{0x41}
	tx, err := asyncframer.NewTransmitter(cfg, func() (byte, bool) {
		if i >= len(payload) {
			return 0, false
		}
		b := payload[i]
		i++
		return b, true
	})
	require.NoError(t, err)

	rx, err := asyncframer.NewReceiver(cfg)
	require.NoError(t, err)
	var parityOK bool
	var gotByte bool
	rx.OnByte = func(b byte, ok bool) { parityOK = ok; gotByte = true }

	var bits []int
	for {
		bit, ok := tx.NextBit()
		if !ok {
			break
		}
		bits = append(bits, bit)
	}
	// Flip the parity bit (index: start + 7 data bits = index 8).
	bits[8] ^= 1
	for _, b := range bits {
		rx.ReceiveBit(b)
	}
	require.True(t, gotByte)
	assert.False(t, parityOK)
}
