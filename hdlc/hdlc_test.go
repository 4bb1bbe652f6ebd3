package hdlc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/klehmann/gofax/hdlc"
)

// roundTrip drives a Transmitter loaded with one frame through a Receiver
// bit-for-bit and returns the frames the receiver reassembled.
func roundTrip(t *testing.T, payload []byte) []hdlc.Frame {
	t.Helper()
	var tx = hdlc.NewTransmitter()
	tx.QueueFrame(payload)

	var rx = hdlc.NewReceiver()
	var got []hdlc.Frame
	rx.OnFrame = func(f hdlc.Frame) { got = append(got, f) }

	for {
		bit, ok := tx.NextBit()
		if !ok {
			break
		}
		rx.ReceiveBit(bit)
	}
	return got
}

func TestHDLCRoundTripExactBytes(t *testing.T) {
	for length := hdlc.MinFrameLen; length <= hdlc.MaxFrameLen; length++ {
		var payload = make([]byte, length)
		for i := range payload {
			payload[i] = byte(i*37 + length)
		}
		var frames = roundTrip(t, payload)
		require.Len(t, frames, 1, "length %d", length)
		assert.Equal(t, hdlc.StatusOK, frames[0].Status, "length %d", length)
		assert.Equal(t, payload, frames[0].Bytes, "length %d", length)
	}
}

func TestHDLCRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(tt *rapid.T) {
		var n = rapid.IntRange(hdlc.MinFrameLen, hdlc.MaxFrameLen).Draw(tt, "len")
		var payload = rapid.SliceOfN(rapid.Byte(), n, n).Draw(tt, "payload")
		var frames = roundTrip(t, payload)
		require.Len(tt, frames, 1)
		require.Equal(tt, hdlc.StatusOK, frames[0].Status)
		require.Equal(tt, payload, frames[0].Bytes)
	})
}

func TestHDLCMinMaxBoundary(t *testing.T) {
	var min = make([]byte, hdlc.MinFrameLen)
	var frames = roundTrip(t, min)
	require.Len(t, frames, 1)
	assert.Equal(t, hdlc.StatusOK, frames[0].Status)

	var max = make([]byte, hdlc.MaxFrameLen)
	frames = roundTrip(t, max)
	require.Len(t, frames, 1)
	assert.Equal(t, hdlc.StatusOK, frames[0].Status)
	assert.Len(t, frames[0].Bytes, hdlc.MaxFrameLen)
}

func TestHDLCCorruptFrameFailsCRC(t *testing.T) {
	var tx = hdlc.NewTransmitter()
	tx.QueueFrame([]byte{0xFF, 0x03, 0x80})
	tx.CorruptNextFrame()

	var rx = hdlc.NewReceiver()
	var got []hdlc.Frame
	rx.OnFrame = func(f hdlc.Frame) { got = append(got, f) }
	for {
		bit, ok := tx.NextBit()
		if !ok {
			break
		}
		rx.ReceiveBit(bit)
	}
	require.Len(t, got, 1)
	assert.Equal(t, hdlc.StatusBad, got[0].Status)
}

func TestHDLCAbortSequence(t *testing.T) {
	var rx = hdlc.NewReceiver()
	var aborted bool
	rx.OnAbort = func() { aborted = true }
	for i := 0; i < 8; i++ {
		rx.ReceiveBit(1)
	}
	assert.True(t, aborted)
}

func TestHDLCFramingOKAfterNFlags(t *testing.T) {
	var rx = hdlc.NewReceiver()
	var okCount int
	rx.OnFramingOK = func() { okCount++ }
	var flag = []int{0, 1, 1, 1, 1, 1, 1, 0}
	for i := 0; i < rx.GoodFlagsNeeded; i++ {
		for _, b := range flag {
			rx.ReceiveBit(b)
		}
	}
	assert.Equal(t, 1, okCount)
}

func TestCRCKnownVector(t *testing.T) {
	var frame = []byte{0xFF, 0x03, 0x80}
	var withFCS = hdlc.AppendFCS(append([]byte{}, frame...))
	assert.True(t, hdlc.CheckFCS(withFCS))
	withFCS[len(withFCS)-1] ^= 0xFF
	assert.False(t, hdlc.CheckFCS(withFCS))
}
