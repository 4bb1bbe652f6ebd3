// Package transport supplies concrete t38.Transport implementations for the
// opaque, unreliable datagram channel spec §6 leaves abstract: an in-process
// loopback (for tests and single-process end-to-end scenarios) and a
// WebSocket transport for carrying IFP packets between processes.
package transport

import (
	"math/rand"
)

// Loopback is an in-process, unidirectional datagram channel between two
// t38.Endpoints. Pair two Loopbacks with NewLoopbackPair to get both
// directions of a call. It can simulate the lossy, jittery path a real UDP
// T.38 leg sees (spec §8 scenario 4, "packet loss and reordering") by
// dropping and reordering a configurable fraction of datagrams.
type Loopback struct {
	out chan []byte // written by Send
	in  chan []byte // read by Recv

	// LossProbability, in [0,1], is the chance a Send is silently dropped.
	LossProbability float64
	// ReorderDepth, if > 0, holds back each sent datagram for a random
	// delay of 0..ReorderDepth additional sends before it becomes
	// receivable, simulating UDP reordering.
	ReorderDepth int

	rng     *rand.Rand
	pending [][]byte
}

// NewLoopbackPair returns two Loopback transports, each one's Send feeding
// the other's Recv, with a fixed jitter seed for reproducible scenario
// tests.
func NewLoopbackPair() (a, b *Loopback) {
	var chAB = make(chan []byte, 256)
	var chBA = make(chan []byte, 256)
	a = &Loopback{out: chAB, in: chBA, rng: rand.New(rand.NewSource(1))}
	b = &Loopback{out: chBA, in: chAB, rng: rand.New(rand.NewSource(2))}
	return a, b
}

func (l *Loopback) Send(data []byte) error {
	if l.LossProbability > 0 && l.rng.Float64() < l.LossProbability {
		return nil
	}
	var cp = make([]byte, len(data))
	copy(cp, data)
	if l.ReorderDepth <= 0 {
		l.out <- cp
		return nil
	}
	l.pending = append(l.pending, cp)
	if len(l.pending) <= l.ReorderDepth {
		return nil
	}
	var i = l.rng.Intn(len(l.pending))
	var picked = l.pending[i]
	l.pending = append(l.pending[:i], l.pending[i+1:]...)
	l.out <- picked
	return nil
}

func (l *Loopback) Recv() ([]byte, bool) {
	select {
	case data := <-l.in:
		return data, true
	default:
		return nil, false
	}
}
