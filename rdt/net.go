package rdt

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"go.uber.org/atomic"
)

var (
	// ErrPktTooBig is returned by Send for data longer than MaxPayloadSize.
	ErrPktTooBig = errors.New("can't send pkt: too big")

	// ErrTimedOut is returned by Send when the retransmission limit
	// is exceeded. The Peer is closed when this happens.
	ErrTimedOut = errors.New("no ack from peer")
)

// Config configures Peers. The zero Config is usable.
type Config struct {
	// RetransmitTimeout is how long to wait for an ACK before resending.
	// Default: RetransmitTimeout.
	RetransmitTimeout time.Duration

	// MaxRetransmits limits resends of one packet; 0 means unlimited.
	MaxRetransmits int

	// RecvQueue is the number of delivered but not yet received payloads
	// kept per Peer. Packets arriving on a full queue are not acked.
	// Default: 16.
	RecvQueue int

	// Logger receives per-packet debug logs. Default: slog.Default().
	Logger *slog.Logger
}

func (cfg Config) withDefaults() Config {
	if cfg.RetransmitTimeout <= 0 {
		cfg.RetransmitTimeout = RetransmitTimeout
	}
	if cfg.MaxRetransmits < 0 {
		cfg.MaxRetransmits = 0
	}
	if cfg.RecvQueue <= 0 {
		cfg.RecvQueue = 16
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

// Counters are protocol event totals, shared by every Peer of a Listener.
type Counters struct {
	Sent          atomic.Uint64 // first transmissions of data packets
	Retransmitted atomic.Uint64
	Delivered     atomic.Uint64 // payloads handed to Recv's queue
	Duplicates    atomic.Uint64 // out-of-sequence packets re-acked
	AcksSent      atomic.Uint64
	Overflows     atomic.Uint64 // packets dropped on a full receive queue
	Malformed     atomic.Uint64
}

// A PktError is an error that occured while processing a packet.
type PktError struct {
	Addr net.Addr
	Data []byte
	Err  error
}

func (e PktError) Error() string {
	return fmt.Sprintf("error processing pkt from %s: %x: %v", e.Addr, e.Data, e.Err)
}

func (e PktError) Unwrap() error { return e.Err }

type netPkt struct {
	SrcAddr net.Addr
	Data    []byte
}

// readNetPkts reads datagrams from conn until it is closed.
// Datagrams longer than MaxNetPktSize are dropped and counted as malformed.
func readNetPkts(conn net.PacketConn, cnt *Counters, pkts chan<- netPkt, gotErr func(error)) {
	defer close(pkts)

	for {
		buf := make([]byte, MaxNetPktSize+1)
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			gotErr(err)
			continue
		}
		if n > MaxNetPktSize {
			cnt.Malformed.Inc()
			continue
		}

		pkts <- netPkt{addr, buf[:n]}
	}
}
