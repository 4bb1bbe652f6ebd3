package t38

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeIndicator(t *testing.T) {
	var p = Packet{Kind: PacketIndicator, Indicator: IndCED, SeqNo: 7}
	var got, err = Decode(Encode(p))
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestEncodeDecodeData(t *testing.T) {
	var p = Packet{
		Kind:     PacketData,
		DataType: DataV21,
		SeqNo:    42,
		Fields: []Field{
			{Type: FieldHDLCData, Data: []byte{1, 2, 3}},
			{Type: FieldHDLCFCSOK, Data: nil},
		},
	}
	var got, err = Decode(Encode(p))
	require.NoError(t, err)
	assert.Equal(t, p.Kind, got.Kind)
	assert.Equal(t, p.DataType, got.DataType)
	assert.Equal(t, p.SeqNo, got.SeqNo)
	require.Len(t, got.Fields, 2)
	assert.Equal(t, []byte{1, 2, 3}, got.Fields[0].Data)
}

func TestDecodeTruncated(t *testing.T) {
	_, err := Decode([]byte{0, 1})
	assert.ErrorIs(t, err, ErrTruncated)
}

// fakeTransport is an in-memory Transport for testing Endpoint.
type fakeTransport struct {
	out   [][]byte
	inbox [][]byte
}

func (f *fakeTransport) Send(data []byte) error {
	f.out = append(f.out, append([]byte{}, data...))
	return nil
}

func (f *fakeTransport) Recv() ([]byte, bool) {
	if len(f.inbox) == 0 {
		return nil, false
	}
	var d = f.inbox[0]
	f.inbox = f.inbox[1:]
	return d, true
}

func TestEndpointRedundancy(t *testing.T) {
	var tr = &fakeTransport{}
	var ep = NewEndpoint(tr, 2, nil, nil)
	require.NoError(t, ep.Send(Packet{Kind: PacketIndicator, Indicator: IndCNG}))
	assert.Len(t, tr.out, 3)
}

func TestEndpointDuplicateSuppression(t *testing.T) {
	var tr = &fakeTransport{}
	var delivered int
	var ep = NewEndpoint(tr, 0, func(Packet) { delivered++ }, nil)
	var raw = Encode(Packet{Kind: PacketIndicator, Indicator: IndCED, SeqNo: 5})
	tr.inbox = [][]byte{raw, raw, raw}
	ep.Poll()
	assert.Equal(t, 1, delivered)
}

func TestEndpointMissingGap(t *testing.T) {
	var tr = &fakeTransport{}
	var gaps [][2]uint16
	var ep = NewEndpoint(tr, 0, func(Packet) {}, func(expected, got uint16) {
		gaps = append(gaps, [2]uint16{expected, got})
	})
	tr.inbox = [][]byte{
		Encode(Packet{Kind: PacketIndicator, Indicator: IndCED, SeqNo: 0}),
		Encode(Packet{Kind: PacketIndicator, Indicator: IndCED, SeqNo: 4}),
	}
	ep.Poll()
	require.Len(t, gaps, 1)
	assert.Equal(t, uint16(1), gaps[0][0])
	assert.Equal(t, uint16(4), gaps[0][1])
}
