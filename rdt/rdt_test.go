package rdt

import (
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastCfg = Config{RetransmitTimeout: 20 * time.Millisecond}

func listenUDP(t *testing.T) net.PacketConn {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { pc.Close() })
	return pc
}

func listen(t *testing.T, pc net.PacketConn) *Listener {
	t.Helper()

	l := Listen(pc, fastCfg)
	t.Cleanup(func() { l.Close() })
	return l
}

func connect(t *testing.T, pc net.PacketConn, addr net.Addr) *Peer {
	t.Helper()

	p := Connect(pc, addr, fastCfg)
	t.Cleanup(func() { p.Close() })
	return p
}

func accept(t *testing.T, l *Listener) *Peer {
	t.Helper()

	type result struct {
		p   *Peer
		err error
	}
	ch := make(chan result, 1)
	go func() {
		p, err := l.Accept()
		ch <- result{p, err}
	}()

	select {
	case r := <-ch:
		require.NoError(t, r.err)
		return r.p
	case <-time.After(5 * time.Second):
		t.Fatal("accept timed out")
		return nil
	}
}

func recv(t *testing.T, p *Peer) string {
	t.Helper()

	ch := make(chan []byte, 1)
	go func() {
		data, err := p.Recv()
		if err == nil {
			ch <- data
		}
	}()

	select {
	case data := <-ch:
		return string(data)
	case <-time.After(5 * time.Second):
		t.Fatal("recv timed out")
		return ""
	}
}

// readRaw reads one datagram from a plain socket.
func readRaw(t *testing.T, pc net.PacketConn) ([]byte, net.Addr) {
	t.Helper()

	require.NoError(t, pc.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, MaxNetPktSize)
	n, addr, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	return buf[:n], addr
}

func TestExchange(t *testing.T) {
	l := listen(t, listenUDP(t))
	clt := connect(t, listenUDP(t), l.Addr())

	require.NoError(t, clt.Send([]byte("hello")))

	srv := accept(t, l)
	require.Equal(t, clt.Conn().LocalAddr().String(), srv.Addr().String())
	require.Equal(t, "hello", recv(t, srv))

	require.NoError(t, srv.Send([]byte("world")))
	require.Equal(t, "world", recv(t, clt))

	require.Equal(t, 1, l.Len())
	require.EqualValues(t, 1, l.Counters().Delivered.Load())
}

func TestExactlyOnceUnderLoss(t *testing.T) {
	const n = 40

	l := listen(t, NewLossyConn(listenUDP(t), 0.3, 1))
	clt := connect(t, NewLossyConn(listenUDP(t), 0.3, 2), l.Addr())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			assert.NoError(t, clt.Send([]byte(fmt.Sprint("up-", i))))
		}
	}()

	srv := accept(t, l)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			assert.NoError(t, srv.Send([]byte(fmt.Sprint("down-", i))))
		}
	}()

	for i := 0; i < n; i++ {
		require.Equal(t, fmt.Sprint("up-", i), recv(t, srv))
		require.Equal(t, fmt.Sprint("down-", i), recv(t, clt))
	}
	wg.Wait()

	// Retransmissions of the last packets must not be delivered again.
	time.Sleep(10 * fastCfg.RetransmitTimeout)
	require.Empty(t, srv.pkts)
	require.Empty(t, clt.pkts)
	require.EqualValues(t, n, l.Counters().Delivered.Load())
	require.NotZero(t, l.Counters().Retransmitted.Load()+clt.Counters().Retransmitted.Load())
}

func TestSeqAlternatesAndRetransmitsIdentically(t *testing.T) {
	raw := listenUDP(t)
	clt := Connect(listenUDP(t), raw.LocalAddr(), Config{RetransmitTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { clt.Close() })

	done := make(chan error, 1)
	go func() {
		for i := 0; i < 4; i++ {
			if err := clt.Send([]byte{byte('a' + i)}); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	var seqs []byte
	for i := 0; i < 4; i++ {
		pkt, addr := readRaw(t, raw)
		if i == 0 {
			// Withhold the first ACK; the retransmission must be identical.
			again, _ := readRaw(t, raw)
			require.Equal(t, pkt, again)
		}
		require.Equal(t, []byte{byte('a' + i)}, pkt[SeqHdrSize:])
		seqs = append(seqs, pkt[0])

		_, err := raw.WriteTo(ackPkt(seqbit(pkt[0])), addr)
		require.NoError(t, err)
	}

	require.NoError(t, <-done)
	require.Equal(t, []byte{0, 1, 0, 1}, seqs)
}

func TestDuplicateIsReackedNotDelivered(t *testing.T) {
	l := listen(t, listenUDP(t))
	raw := listenUDP(t)

	send := func(pkt ...byte) string {
		_, err := raw.WriteTo(pkt, l.Addr())
		require.NoError(t, err)
		ack, _ := readRaw(t, raw)
		return string(ack)
	}

	require.Equal(t, "ACK0", send(0, 'a'))
	require.Equal(t, "ACK0", send(0, 'a')) // our ACK0 was "lost"
	require.Equal(t, "ACK1", send(1, 'b'))
	require.Equal(t, "ACK1", send(1, 'b'))

	srv := accept(t, l)
	require.Equal(t, "a", recv(t, srv))
	require.Equal(t, "b", recv(t, srv))
	require.Empty(t, srv.pkts)
	require.EqualValues(t, 2, l.Counters().Duplicates.Load())
}

func TestTrySendGivesUp(t *testing.T) {
	raw := listenUDP(t)
	clt := connect(t, listenUDP(t), raw.LocalAddr())

	require.ErrorIs(t, clt.TrySend([]byte("bye"), 3), ErrTimedOut)

	for i := 0; i < 3; i++ {
		pkt, _ := readRaw(t, raw)
		require.Equal(t, "\x00bye", string(pkt))
	}

	select {
	case <-clt.Disco():
		t.Fatal("TrySend closed the peer")
	default:
	}
}

func TestMaxRetransmitsClosesPeer(t *testing.T) {
	raw := listenUDP(t)
	cfg := fastCfg
	cfg.MaxRetransmits = 2
	clt := Connect(listenUDP(t), raw.LocalAddr(), cfg)

	require.ErrorIs(t, clt.Send([]byte("x")), ErrTimedOut)
	<-clt.Disco()

	_, err := clt.Recv()
	require.ErrorIs(t, err, net.ErrClosed)
}

func TestCloseUnblocksSend(t *testing.T) {
	raw := listenUDP(t)
	clt := Connect(listenUDP(t), raw.LocalAddr(), fastCfg)

	errs := make(chan error, 1)
	go func() { errs <- clt.Send([]byte("stuck")) }()

	readRaw(t, raw)
	require.NoError(t, clt.Close())
	require.ErrorIs(t, <-errs, net.ErrClosed)
	require.ErrorIs(t, clt.Close(), net.ErrClosed)
}

func TestPktTooBig(t *testing.T) {
	clt := connect(t, listenUDP(t), listenUDP(t).LocalAddr())
	require.ErrorIs(t, clt.Send(make([]byte, MaxPayloadSize+1)), ErrPktTooBig)
}

func TestListenerIgnoresStrayAcks(t *testing.T) {
	l := listen(t, listenUDP(t))
	raw := listenUDP(t)

	_, err := raw.WriteTo([]byte("ACK1"), l.Addr())
	require.NoError(t, err)
	require.Never(t, func() bool { return l.Len() != 0 }, 100*time.Millisecond, 10*time.Millisecond)

	_, err = raw.WriteTo([]byte{0, 'x'}, l.Addr())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return l.Len() == 1 }, time.Second, 10*time.Millisecond)
}

func TestOversizePktIsDropped(t *testing.T) {
	l := listen(t, listenUDP(t))
	raw := listenUDP(t)

	pkt := make([]byte, MaxNetPktSize+1)
	pkt[0] = 0
	_, err := raw.WriteTo(pkt, l.Addr())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return l.Counters().Malformed.Load() == 1 }, time.Second, 10*time.Millisecond)
	require.Zero(t, l.Len())
	require.Zero(t, l.Counters().Delivered.Load())

	// The largest valid packet still gets through.
	pkt = pkt[:MaxNetPktSize]
	_, err = raw.WriteTo(pkt, l.Addr())
	require.NoError(t, err)
	p := accept(t, l)
	require.Len(t, recv(t, p), MaxPayloadSize)
}

func TestClosedPeerIsReplaced(t *testing.T) {
	l := listen(t, listenUDP(t))
	raw := listenUDP(t)

	_, err := raw.WriteTo([]byte{0, 'a'}, l.Addr())
	require.NoError(t, err)
	first := accept(t, l)
	require.Equal(t, "a", recv(t, first))
	readRaw(t, raw)

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 10*time.Millisecond)

	// A fresh Peer expects seq 0 again.
	_, err = raw.WriteTo([]byte{0, 'b'}, l.Addr())
	require.NoError(t, err)
	second := accept(t, l)
	require.NotSame(t, first, second)
	require.Equal(t, "b", recv(t, second))
}

func TestListenerClose(t *testing.T) {
	l := Listen(listenUDP(t), fastCfg)
	clt := connect(t, listenUDP(t), l.Addr())
	require.NoError(t, clt.Send([]byte("hi")))
	srv := accept(t, l)

	require.NoError(t, l.Close())
	<-srv.Disco()

	_, err := l.Accept()
	require.ErrorIs(t, err, net.ErrClosed)
}
