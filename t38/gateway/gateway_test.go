package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klehmann/gofax/t30"
	"github.com/klehmann/gofax/t38"
	"github.com/klehmann/gofax/transport"
)

func newTestGateway(cfg Config) *Gateway {
	var a, _ = transport.NewLoopbackPair()
	return New(cfg, a, 1)
}

func packetWithNonECMByte(b byte) t38.Packet {
	return t38.Packet{
		Kind:   t38.PacketData,
		Fields: []t38.Field{{Type: t38.FieldT4NonECMData, Data: []byte{b}}},
	}
}

func TestEditFrameClipsUnsupportedModems(t *testing.T) {
	var g = newTestGateway(Config{SupportedModems: t30.ModemV29_9600, ECMAllowed: true})
	var dis = t30.Frame{FCF: t30.FCFDIS, FIF: []byte{0xFF, 0, 0, 0, 0, 0, 0}}
	var out = g.editFrame(dis.Encode())
	require.Len(t, out, 10)
	assert.Equal(t, byte(t30.ModemV29_9600), out[3])
}

func TestEditFrameClearsECMBitWhenDisallowed(t *testing.T) {
	var g = newTestGateway(Config{SupportedModems: 0xFF, ECMAllowed: false})
	var dis = t30.Frame{FCF: t30.FCFDIS, FIF: []byte{0, 0, 0xFF, 0, 0, 0xFF, 0}}
	var out = g.editFrame(dis.Encode())
	assert.Equal(t, byte(0), out[5])
}

func TestEditFrameLeavesECMBitWhenAllowed(t *testing.T) {
	var g = newTestGateway(Config{SupportedModems: 0xFF, ECMAllowed: true})
	var dis = t30.Frame{FCF: t30.FCFDIS, FIF: []byte{0, 0, 0xFF, 0, 0, 0xFF, 0}}
	var out = g.editFrame(dis.Encode())
	assert.Equal(t, byte(0xFF), out[5])
}

func TestEditFrameOverwritesNSFWhenSuppressionEnabled(t *testing.T) {
	var g = newTestGateway(Config{
		NSXSuppression: true,
		CountryCode:    [3]byte{0xB5, 0x00, 0x66},
	})
	var nsf = t30.Frame{FCF: t30.FCFNSF, FIF: []byte{1, 2, 3, 4, 5}}
	var out = g.editFrame(nsf.Encode())
	require.Len(t, out, 8)
	assert.Equal(t, []byte{0xB5, 0x00, 0x66, 0, 0}, out[3:])
}

func TestEditFrameLeavesNSFWhenSuppressionDisabled(t *testing.T) {
	var g = newTestGateway(Config{NSXSuppression: false})
	var nsf = t30.Frame{FCF: t30.FCFNSF, FIF: []byte{1, 2, 3}}
	var out = g.editFrame(nsf.Encode())
	assert.Equal(t, []byte{1, 2, 3}, out[3:])
}

func TestEditFrameTracksRetrainOnCFRAndCRP(t *testing.T) {
	var g = newTestGateway(Config{})
	assert.False(t, g.shortRetrain)
	g.editFrame(t30.Frame{FCF: t30.FCFCFR}.Encode())
	assert.True(t, g.cfrSeen)
	assert.True(t, g.shortRetrain)
	g.editFrame(t30.Frame{FCF: t30.FCFCRP}.Encode())
	assert.False(t, g.shortRetrain)
}

func TestBitReverseRoundTrip(t *testing.T) {
	for _, b := range []byte{0x00, 0xFF, 0x01, 0x80, 0xB5, 0x66} {
		assert.Equal(t, b, bitReverse(bitReverse(b)))
	}
	assert.Equal(t, byte(0x01), bitReverse(0x80))
	assert.Equal(t, byte(0xA5), bitReverse(0xA5)) // palindromic bit pattern
}

func TestNonECMFillByteTransitionsOnData(t *testing.T) {
	var g = newTestGateway(Config{})
	assert.Equal(t, byte(0xFF), g.NextNonECMFillByte())
	g.onPacket(packetWithNonECMByte(0x42))
	assert.Equal(t, byte(0x00), g.NextNonECMFillByte())
	g.NonECMSigEnd()
	assert.Equal(t, byte(0xFF), g.NextNonECMFillByte())
}

func TestDataTypeToIndicatorInvertsIndicatorToDataType(t *testing.T) {
	for ind, short := range map[t38.Indicator]bool{
		t38.IndV21Preamble:          false,
		t38.IndV27ter2400Training:   false,
		t38.IndV27ter4800Training:   false,
		t38.IndV29_7200Training:     false,
		t38.IndV29_9600Training:     false,
		t38.IndV17_7200LongTraining: false,
		t38.IndV17_9600ShortTraining: true,
	} {
		var dt = indicatorToDataType(ind)
		assert.Equal(t, ind, dataTypeToIndicator(dt, short))
	}
}

func TestOnMissingInfersSignalTransitionFromCurrentDataType(t *testing.T) {
	var g = newTestGateway(Config{})
	g.currentDataType = t38.DataV29_9600
	assert.False(t, g.txActive)
	g.onMissing(3, 5)
	assert.True(t, g.txActive)
	assert.Equal(t, t38.DataV29_9600, g.txDataType)
}
