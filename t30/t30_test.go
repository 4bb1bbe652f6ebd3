package t30

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klehmann/gofax/modem"
)

// link wires two Sessions' outgoing frame queues directly together,
// standing in for the HDLC/modem/PCM plumbing the fax package owns in
// production. This exercises the state machine's protocol logic in
// isolation, matching spec §8's end-to-end scenarios without the
// real-time sample pipeline.
type link struct {
	t            *testing.T
	a, b         *Session
	ecmBitFlip   map[int]bool // frames to corrupt, for scenario 2
}

func (l *link) pump(n int) {
	for i := 0; i < n; i++ {
		if f, ok := l.a.NextOutgoingFrame(); ok {
			l.deliver(l.b, f)
		}
		if f, ok := l.b.NextOutgoingFrame(); ok {
			l.deliver(l.a, f)
		}
	}
}

func (l *link) deliver(to *Session, f Frame) {
	if f.FCF == FCFFCD && l.ecmBitFlip != nil {
		n, _, _ := DecodeECMFrame(f)
		if l.ecmBitFlip[n] {
			to.HandleBadFrame()
			return
		}
	}
	to.HandleFrame(f)
}

func newPair(t *testing.T, ecm bool) (*Session, *Session) {
	t.Helper()
	var answering = NewSession(Config{
		Role:                  RoleAnswering,
		SupportedModems:       ModemV29_9600 | ModemV27ter2400,
		SupportedCompressions: CompressionMH,
		ECMAllowed:            ecm,
		Ident:                 "5551234",
	})
	var calling = NewSession(Config{
		Role:                  RoleCalling,
		SupportedModems:       ModemV29_9600 | ModemV27ter2400,
		SupportedCompressions: CompressionMH,
		ECMAllowed:            ecm,
		Ident:                 "5555678",
	})
	answering.Start()
	calling.Start()
	answering.ReadyForPhaseB()
	return calling, answering
}

func TestHappyPathNonECM(t *testing.T) {
	var calling, answering = newPair(t, false)
	var l = &link{t: t, a: calling, b: answering}
	l.pump(8)

	require.Equal(t, PhaseB, calling.Phase())
	require.Equal(t, StateTrainingTCF, calling.State())

	answering.TCFResult(0.0)
	l.pump(4)

	require.Equal(t, modem.TypeV29_9600, calling.NegotiatedModem())
	require.Equal(t, PhaseC, calling.Phase())
	require.Equal(t, PhaseC, answering.Phase())

	var pageData = []byte{1, 2, 3, 4, 5}
	var pageIdx int
	calling.cfg.NextPageByte = func() (byte, bool) {
		if pageIdx >= len(pageData) {
			return 0, false
		}
		var b = pageData[pageIdx]
		pageIdx++
		return b, true
	}
	for i := 0; i < 5; i++ {
		b, ok := calling.NextNonECMByte()
		_ = b
		require.True(t, ok)
	}
	// exhaust the page
	calling.cfg.NextPageByte = func() (byte, bool) { return 0, false }
	_, ok := calling.NextNonECMByte()
	require.False(t, ok)

	answering.NonECMPageComplete()
	l.pump(4)

	var code, _, done = calling.Completion()
	require.True(t, done)
	assert.Equal(t, CompletionOK, code)
}

func TestECMWithOneBadFrame(t *testing.T) {
	var calling, answering = newPair(t, true)

	var pageBytes = make([][]byte, 3)
	for i := range pageBytes {
		pageBytes[i] = []byte{byte(i), byte(i + 1), byte(i + 2)}
	}
	var idx int
	calling.cfg.NextECMFrame = func(maxLen int) ([]byte, bool) {
		if idx >= len(pageBytes) {
			return nil, false
		}
		var p = pageBytes[idx]
		idx++
		return p, true
	}
	calling.cfg.HasMorePages = func() bool { return false }

	var received [][]byte
	answering.cfg.OnECMFrame = func(payload []byte) {
		received = append(received, append([]byte{}, payload...))
	}

	var l = &link{t: t, a: calling, b: answering}
	l.pump(8)
	answering.TCFResult(0.0)
	l.pump(1)

	require.Equal(t, PhaseD, calling.Phase())

	// First attempt: corrupt frame 1 in flight, just long enough for one
	// PPR round-trip (not so long that retry exhaustion kicks in).
	l.ecmBitFlip = map[int]bool{1: true}
	l.pump(6)

	require.Equal(t, StateECMAwaitingPPR, calling.State())
	require.Empty(t, received)

	// Second attempt: let everything through; only frame 1 should have
	// been queued for retransmission.
	l.ecmBitFlip = nil
	l.pump(10)

	require.Len(t, received, len(pageBytes))
	for i, want := range pageBytes {
		assert.Equal(t, want, received[i])
	}
	var code, _, done = calling.Completion()
	require.True(t, done)
	assert.Equal(t, CompletionOK, code)
}

func TestTrainingFailureFallback(t *testing.T) {
	var calling, answering = newPair(t, false)
	var l = &link{t: t, a: calling, b: answering}
	l.pump(8)

	require.Equal(t, modem.TypeV29_9600, calling.NegotiatedModem())
	answering.TCFResult(1.0) // fails
	l.pump(8)
	require.Equal(t, modem.TypeV27ter2400, calling.NegotiatedModem())

	answering.TCFResult(1.0) // fails again, exhausts fallback table
	l.pump(2)

	var code, err, done = calling.Completion()
	require.True(t, done)
	assert.Equal(t, CompletionCannotTrain, code)
	assert.ErrorIs(t, err, ErrCannotTrain)
}

func TestECMBitmapBitOrder(t *testing.T) {
	var b = newECMBuffer()
	b.Store(0, []byte{1})
	b.Store(255, []byte{2})
	var bm = b.PPRBitmap()
	assert.Equal(t, byte(1), bm[0]&1)
	assert.Equal(t, byte(0x80), bm[31]&0x80)
}

func TestTimerSetFiresExactlyOnce(t *testing.T) {
	var ts timerSet
	ts.Arm(TimerT2, DefaultT2)
	var fires int
	for i := 0; i < 100; i++ {
		if _, ok := ts.Tick(1000); ok {
			fires++
		}
	}
	assert.Equal(t, 1, fires)
}
