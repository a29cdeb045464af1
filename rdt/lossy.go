package rdt

import (
	"math/rand/v2"
	"net"
	"sync"
)

// A LossyConn drops datagrams in both directions with probability Rate.
// It simulates an unreliable network for testing.
type LossyConn struct {
	net.PacketConn

	rate float64

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewLossyConn wraps pc. seed makes the loss pattern reproducible.
func NewLossyConn(pc net.PacketConn, rate float64, seed uint64) *LossyConn {
	return &LossyConn{
		PacketConn: pc,
		rate:       rate,
		rnd:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (c *LossyConn) lose() bool {
	if c.rate <= 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rnd.Float64() < c.rate
}

// ReadFrom reads the next datagram that is not lost.
func (c *LossyConn) ReadFrom(b []byte) (int, net.Addr, error) {
	for {
		n, addr, err := c.PacketConn.ReadFrom(b)
		if err != nil || !c.lose() {
			return n, addr, err
		}
	}
}

// WriteTo pretends to write lost datagrams.
func (c *LossyConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	if c.lose() {
		return len(b), nil
	}
	return c.PacketConn.WriteTo(b, addr)
}
