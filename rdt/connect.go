package rdt

import "net"

// Connect returns a Peer for addr using pc and closes pc when the Peer
// is closed. Datagrams on pc from any other address are ignored.
func Connect(pc net.PacketConn, addr net.Addr, cfg Config) *Peer {
	cfg = cfg.withDefaults()
	srv := newPeer(pc, addr, cfg, new(Counters))
	srv.onClose = func() { pc.Close() }

	netPkts := make(chan netPkt)
	go readNetPkts(pc, srv.cnt, netPkts, func(err error) {
		srv.log.Debug("read", "err", err)
	})

	pkts := make(chan []byte, 256)
	go srv.processNetPkts(pkts)
	go func() {
		defer close(pkts)

		for pkt := range netPkts {
			if pkt.SrcAddr.String() != addr.String() {
				continue
			}
			select {
			case pkts <- pkt.Data:
			default:
			}
		}
	}()

	return srv
}
