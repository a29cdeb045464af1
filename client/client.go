// Package client is a cinners client: it logs in, sends commands and
// surfaces every message the server sends, responses and notifications
// alike, in arrival order.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"go.uber.org/atomic"

	"github.com/anon55555/cinners"
	"github.com/anon55555/cinners/rdt"
)

// ErrDisconnected is returned once the server has ended the session.
var ErrDisconnected = errors.New("disconnected by server")

// A RejectedError is an error response to a login.
type RejectedError struct {
	Msg string
}

func (e *RejectedError) Error() string { return "login rejected: " + e.Msg }

type Client struct {
	peer cinners.Peer
	log  *slog.Logger
	msgs chan string

	// Set once MsgDisconnected has been received.
	disconnected atomic.Bool
}

// Dial connects to the server at addr from an ephemeral local UDP port.
func Dial(addr string, cfg rdt.Config) (*Client, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	pc, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return nil, err
	}
	return New(pc, raddr, cfg), nil
}

// New returns a Client talking to the server at addr over pc.
// Closing the Client closes pc.
func New(pc net.PacketConn, addr net.Addr, cfg rdt.Config) *Client {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	c := &Client{
		peer: cinners.Connect(pc, addr, cfg),
		log:  log.With("server", addr.String()),
		msgs: make(chan string, 64),
	}
	go c.recvMsgs()
	return c
}

func (c *Client) recvMsgs() {
	defer close(c.msgs)

	for {
		msg, err := c.peer.RecvMsg()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				c.log.Error("recv", "err", err)
			}
			return
		}

		if msg == cinners.MsgDisconnected {
			c.disconnected.Store(true)
		}

		select {
		case c.msgs <- msg:
		case <-c.peer.Disco():
			return
		}

		if msg == cinners.MsgDisconnected {
			c.log.Debug("disconnected by server")
			c.peer.Close()
			return
		}
	}
}

// Messages returns the messages received from the server. It is closed
// after MsgDisconnected or when the Client is closed.
func (c *Client) Messages() <-chan string { return c.msgs }

// Done is closed when the Client is closed.
func (c *Client) Done() <-chan struct{} { return c.peer.Disco() }

// LocalAddr returns the address the server knows the Client by.
func (c *Client) LocalAddr() net.Addr { return c.peer.Conn().LocalAddr() }

// Next waits for the next message from the server.
func (c *Client) Next(ctx context.Context) (string, error) {
	select {
	case msg, ok := <-c.msgs:
		if !ok {
			return "", ErrDisconnected
		}
		return msg, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Send sends cmd, blocking until the server has acknowledged it.
// The response arrives on Messages.
func (c *Client) Send(cmd cinners.ToSrvCmd) error {
	return c.peer.SendCmd(cmd)
}

// SendLine parses and sends one command line.
func (c *Client) SendLine(line string) error {
	cmd, err := cinners.ParseCmd(line)
	if err != nil {
		return err
	}
	return c.Send(cmd)
}

// Login must be called first. It returns a *RejectedError if the server
// refuses the username.
func (c *Client) Login(ctx context.Context, username string) error {
	if err := c.Send(cinners.ToSrvLogin{Username: username}); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	msg, err := c.Next(ctx)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if cinners.IsErrorMsg(msg) {
		c.Close()
		return &RejectedError{msg}
	}
	if msg != cinners.MsgOnline {
		c.log.Warn("unexpected login response", "msg", msg)
	}
	return nil
}

// Logout ends the session and waits for the server to confirm it,
// discarding any messages received meanwhile. The Client is closed
// when Logout returns.
func (c *Client) Logout(ctx context.Context) error {
	defer c.Close()

	if err := c.Send(cinners.ToSrvLogout{}); err != nil {
		// The server may end the session before its ACK arrives.
		if errors.Is(err, net.ErrClosed) && c.disconnected.Load() {
			return nil
		}
		return fmt.Errorf("logout: %w", err)
	}
	for {
		msg, err := c.Next(ctx)
		if errors.Is(err, ErrDisconnected) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("logout: %w", err)
		}
		if msg == cinners.MsgDisconnected {
			return nil
		}
	}
}

func (c *Client) Close() error {
	return c.peer.Close()
}
