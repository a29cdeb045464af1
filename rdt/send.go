package rdt

import (
	"net"
	"time"
)

// Send reliably sends data to the Peer, blocking until it is acked.
// Packets are retransmitted unchanged until then; if Config.MaxRetransmits
// is exceeded the Peer is closed and ErrTimedOut is returned.
//
// Sends to one Peer are serialized, so concurrent callers never share
// a sequence bit.
func (p *Peer) Send(data []byte) error {
	limit := p.cfg.MaxRetransmits
	if limit == 0 {
		limit = unlimited
	}
	err := p.send(data, limit)
	if err == ErrTimedOut {
		p.Close()
	}
	return err
}

// TrySend is like Send but transmits at most attempts times and leaves
// the Peer open when no ACK arrives. A Peer that got ErrTimedOut from
// TrySend may be out of sequence and should be closed.
func (p *Peer) TrySend(data []byte, attempts int) error {
	if attempts < 1 {
		attempts = 1
	}
	return p.send(data, attempts-1)
}

const unlimited = -1

func (p *Peer) send(data []byte, maxRetransmits int) error {
	if len(data) > MaxPayloadSize {
		return ErrPktTooBig
	}

	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	if p.closed() {
		return net.ErrClosed
	}

	sn := p.sendSeq
	pkt := make([]byte, SeqHdrSize+len(data))
	pkt[0] = uint8(sn)
	copy(pkt[SeqHdrSize:], data)

	p.drainAcks()

	timer := time.NewTimer(p.cfg.RetransmitTimeout)
	defer timer.Stop()

	for resends := 0; ; resends++ {
		if err := p.writeRaw(pkt); err != nil {
			return err
		}
		if resends == 0 {
			p.cnt.Sent.Inc()
			p.log.Debug("sent", "seq", sn, "len", len(data))
		} else {
			p.cnt.Retransmitted.Inc()
			p.log.Debug("retransmitted", "seq", sn, "n", resends)
		}

		acked, err := p.awaitAck(sn, timer)
		if err != nil {
			return err
		}
		if acked {
			p.sendSeq = sn.flip()
			return nil
		}

		if maxRetransmits != unlimited && resends >= maxRetransmits {
			p.log.Debug("giving up", "seq", sn, "resends", resends)
			return ErrTimedOut
		}
		timer.Reset(p.cfg.RetransmitTimeout)
	}
}

// awaitAck waits for ACK sn until timer fires. Stale ACKs are ignored.
func (p *Peer) awaitAck(sn seqbit, timer *time.Timer) (acked bool, err error) {
	for {
		select {
		case got := <-p.acks:
			if got != sn {
				continue
			}
			p.log.Debug("acked", "seq", sn)
			return true, nil
		case <-timer.C:
			p.log.Debug("ack timeout", "seq", sn)
			return false, nil
		case <-p.disco:
			return false, net.ErrClosed
		}
	}
}

func (p *Peer) drainAcks() {
	for {
		select {
		case <-p.acks:
		default:
			return
		}
	}
}
