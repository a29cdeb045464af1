package cinners

import (
	"net"

	"github.com/anon55555/cinners/rdt"
)

// Peer wraps rdt.Peer, exchanging text messages.
type Peer struct {
	*rdt.Peer
}

// SendMsg reliably sends a text message.
func (p Peer) SendMsg(msg string) error {
	return p.Send([]byte(msg))
}

// TrySendMsg sends a text message, giving up after attempts transmissions.
func (p Peer) TrySendMsg(msg string, attempts int) error {
	return p.TrySend([]byte(msg), attempts)
}

// RecvMsg receives the next text message.
func (p Peer) RecvMsg() (string, error) {
	data, err := p.Recv()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SendCmd sends the wire form of cmd.
func (p Peer) SendCmd(cmd ToSrvCmd) error {
	return p.SendMsg(cmd.String())
}

// RecvCmd receives and parses the next command.
func (p Peer) RecvCmd() (ToSrvCmd, error) {
	msg, err := p.RecvMsg()
	if err != nil {
		return nil, err
	}
	return ParseCmd(msg)
}

// Connect returns a Peer for the server at addr, using pc.
func Connect(pc net.PacketConn, addr net.Addr, cfg rdt.Config) Peer {
	return Peer{rdt.Connect(pc, addr, cfg)}
}

// Listener wraps rdt.Listener, accepting text Peers.
type Listener struct {
	*rdt.Listener
}

// Listen listens for Peers on pc.
func Listen(pc net.PacketConn, cfg rdt.Config) Listener {
	return Listener{rdt.Listen(pc, cfg)}
}

// Accept waits for and returns the next Peer.
// It returns net.ErrClosed once the Listener is closed.
func (l Listener) Accept() (Peer, error) {
	rpeer, err := l.Listener.Accept()
	return Peer{rpeer}, err
}
