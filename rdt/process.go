package rdt

import (
	"errors"
	"fmt"
	"io"
)

var errRecvQueueFull = errors.New("receive queue full")

func (p *Peer) processNetPkts(pkts <-chan []byte) {
	for data := range pkts {
		if err := p.processNetPkt(data); err != nil {
			p.log.Debug("dropped pkt", "err", PktError{p.addr, data, err})
		}
	}
}

// processNetPkt handles one datagram from the Peer.
// It never blocks on the application.
func (p *Peer) processNetPkt(data []byte) error {
	if sn, ok := parseAck(data); ok {
		select {
		case p.acks <- sn:
		default:
			// The sender drains stale ACKs and retransmits on timeout.
		}
		return nil
	}

	if len(data) < SeqHdrSize {
		p.cnt.Malformed.Inc()
		return io.ErrUnexpectedEOF
	}
	if !isDataPkt(data) {
		p.cnt.Malformed.Inc()
		return fmt.Errorf("invalid seq: %d", data[0])
	}

	sn := seqbit(data[0])
	if sn != p.expectedSeq {
		p.cnt.Duplicates.Inc()
		p.log.Debug("duplicate", "seq", sn)
		return p.sendAck(p.expectedSeq.flip())
	}

	payload := make([]byte, len(data)-SeqHdrSize)
	copy(payload, data[SeqHdrSize:])

	select {
	case p.pkts <- payload:
	default:
		// Not acked, so the sender will retransmit it.
		p.cnt.Overflows.Inc()
		return errRecvQueueFull
	}

	p.cnt.Delivered.Inc()
	p.log.Debug("received", "seq", sn, "len", len(payload))
	p.expectedSeq = sn.flip()

	return p.sendAck(sn)
}

func (p *Peer) sendAck(sn seqbit) error {
	if err := p.writeRaw(ackPkt(sn)); err != nil {
		return fmt.Errorf("can't ack %d: %w", sn, err)
	}
	p.cnt.AcksSent.Inc()
	return nil
}
