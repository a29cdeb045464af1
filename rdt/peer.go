package rdt

import (
	"errors"
	"log/slog"
	"net"
	"sync"
)

// A Peer is the reliable channel to one remote address on a shared
// net.PacketConn.
type Peer struct {
	pc   net.PacketConn
	addr net.Addr
	cfg  Config
	log  *slog.Logger
	cnt  *Counters

	pkts  chan []byte
	acks  chan seqbit
	disco chan struct{} // close-only

	closeOnce sync.Once
	onClose   func()

	// Only accessed by Peer.processNetPkts.
	expectedSeq seqbit

	sendMu  sync.Mutex
	sendSeq seqbit
}

func newPeer(pc net.PacketConn, addr net.Addr, cfg Config, cnt *Counters) *Peer {
	cfg = cfg.withDefaults()
	return &Peer{
		pc:   pc,
		addr: addr,
		cfg:  cfg,
		log:  cfg.Logger.With("peer", addr.String()),
		cnt:  cnt,

		pkts:  make(chan []byte, cfg.RecvQueue),
		acks:  make(chan seqbit, 4),
		disco: make(chan struct{}),
	}
}

// Conn returns the net.PacketConn used to communicate with the Peer.
func (p *Peer) Conn() net.PacketConn { return p.pc }

// Addr returns the address of the Peer.
func (p *Peer) Addr() net.Addr { return p.addr }

// Disco returns a channel that is closed when the Peer is closed.
func (p *Peer) Disco() <-chan struct{} { return p.disco }

// Counters returns the counters the Peer reports to.
func (p *Peer) Counters() *Counters { return p.cnt }

// Recv blocks until the next in-sequence payload arrives.
// It returns net.ErrClosed once the Peer is closed.
func (p *Peer) Recv() ([]byte, error) {
	select {
	case pkt := <-p.pkts:
		return pkt, nil
	case <-p.disco:
		return nil, net.ErrClosed
	}
}

// Close closes the Peer, releasing its channel state.
// Blocked Send and Recv calls return net.ErrClosed.
// A later datagram from the same address starts a new Peer.
func (p *Peer) Close() error {
	err := net.ErrClosed
	p.closeOnce.Do(func() {
		close(p.disco)
		if p.onClose != nil {
			p.onClose()
		}
		err = nil
	})
	return err
}

func (p *Peer) closed() bool {
	select {
	case <-p.disco:
		return true
	default:
		return false
	}
}

func (p *Peer) writeRaw(data []byte) error {
	_, err := p.pc.WriteTo(data, p.addr)
	if errors.Is(err, net.ErrWriteToConnected) {
		conn, ok := p.pc.(net.Conn)
		if !ok {
			return err
		}
		_, err = conn.Write(data)
	}
	return err
}
