package rdt

import (
	"net"
	"sync"
)

// A Listener demultiplexes the datagrams arriving on one net.PacketConn
// into one Peer per remote address.
type Listener struct {
	conn net.PacketConn
	cfg  Config
	cnt  Counters

	clts    chan *Peer
	errs    chan error
	closing chan struct{} // close-only
	done    chan struct{} // close-only

	closeOnce sync.Once

	mu        sync.Mutex
	addr2peer map[string]cltPeer
}

type cltPeer struct {
	*Peer
	pkts chan<- []byte
}

// Listen listens for packets on conn until it is closed.
func Listen(conn net.PacketConn, cfg Config) *Listener {
	l := &Listener{
		conn: conn,
		cfg:  cfg.withDefaults(),

		clts:    make(chan *Peer),
		errs:    make(chan error),
		closing: make(chan struct{}),
		done:    make(chan struct{}),

		addr2peer: make(map[string]cltPeer),
	}

	pkts := make(chan netPkt)
	go readNetPkts(l.conn, &l.cnt, pkts, func(err error) {
		select {
		case l.errs <- err:
		case <-l.closing:
		}
	})
	go func() {
		for pkt := range pkts {
			l.processNetPkt(pkt)
		}

		close(l.done)

		for _, clt := range l.peers() {
			clt.Close()
		}
	}()

	return l
}

// Accept waits for and returns a Peer that sent its first packet.
// You should keep calling this until it returns net.ErrClosed
// so it doesn't leak a goroutine.
func (l *Listener) Accept() (*Peer, error) {
	select {
	case clt := <-l.clts:
		return clt, nil
	case err := <-l.errs:
		return nil, err
	case <-l.closing:
		return nil, net.ErrClosed
	case <-l.done:
		return nil, net.ErrClosed
	}
}

// Conn returns the net.PacketConn the Listener is listening on.
func (l *Listener) Conn() net.PacketConn { return l.conn }

// Addr returns the local address of the Listener.
func (l *Listener) Addr() net.Addr { return l.conn.LocalAddr() }

// Counters returns the protocol counters of all Peers of the Listener.
func (l *Listener) Counters() *Counters { return &l.cnt }

// Close closes the underlying net.PacketConn and all Peers.
func (l *Listener) Close() error {
	err := net.ErrClosed
	l.closeOnce.Do(func() {
		close(l.closing)
		err = l.conn.Close()
	})
	return err
}

// Len returns the number of open Peers.
func (l *Listener) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.addr2peer)
}

func (l *Listener) peers() []*Peer {
	l.mu.Lock()
	defer l.mu.Unlock()

	peers := make([]*Peer, 0, len(l.addr2peer))
	for _, clt := range l.addr2peer {
		peers = append(peers, clt.Peer)
	}
	return peers
}

func (l *Listener) processNetPkt(pkt netPkt) {
	l.mu.Lock()
	defer l.mu.Unlock()

	addrstr := pkt.SrcAddr.String()

	clt, ok := l.addr2peer[addrstr]
	if !ok {
		if !isDataPkt(pkt.Data) {
			// Late ACKs for a closed Peer don't open a new one.
			l.cfg.Logger.Debug("ignoring pkt from unknown addr", "addr", addrstr)
			return
		}

		pkts := make(chan []byte, 256)
		clt = cltPeer{
			Peer: newPeer(l.conn, pkt.SrcAddr, l.cfg, &l.cnt),
			pkts: pkts,
		}
		clt.onClose = func() {
			l.mu.Lock()
			defer l.mu.Unlock()

			if cur, ok := l.addr2peer[addrstr]; ok && cur.Peer == clt.Peer {
				delete(l.addr2peer, addrstr)
				close(pkts)
			}
		}
		l.addr2peer[addrstr] = clt

		go clt.processNetPkts(pkts)
		go func() {
			select {
			case l.clts <- clt.Peer:
			case <-clt.Disco():
			case <-l.done:
			}
		}()
	}

	select {
	case clt.pkts <- pkt.Data:
	default:
		l.cfg.Logger.Warn("ignoring pkt because buf is full", "addr", addrstr)
	}
}
