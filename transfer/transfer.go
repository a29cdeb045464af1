// Package transfer moves files over rdt Peers.
//
// A transfer is the file name, then the content in chunks of at most
// rdt.MaxPayloadSize bytes, then the payload "EOF". An echo server
// receives a file and sends it straight back under a new name made of
// five random letters, an underscore and the original name.
package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"unicode/utf8"

	"github.com/anon55555/cinners/internal/token"
	"github.com/anon55555/cinners/rdt"
)

// EOF ends the content of a transfer.
const EOF = "EOF"

// MaxEchoSize is the largest file an echo server buffers.
const MaxEchoSize = 64 << 20

var (
	ErrBadName  = errors.New("invalid file name")
	ErrTooLarge = errors.New("file too large")
)

// Send sends r as the file called name and returns the number of
// content bytes sent.
func Send(p *rdt.Peer, name string, r io.Reader) (int64, error) {
	if name == "" || !utf8.ValidString(name) || len(name) > rdt.MaxPayloadSize {
		return 0, ErrBadName
	}
	if err := p.Send([]byte(name)); err != nil {
		return 0, fmt.Errorf("sending name: %w", err)
	}

	var n int64
	buf := make([]byte, rdt.MaxPayloadSize)
	for {
		nr, rerr := io.ReadFull(r, buf)
		chunk := buf[:nr]

		if nr > 0 {
			// A content chunk must not read as the terminator.
			if string(chunk) == EOF {
				if err := p.Send(chunk[:1]); err != nil {
					return n, err
				}
				n++
				chunk = chunk[1:]
			}
			if err := p.Send(chunk); err != nil {
				return n, err
			}
			n += int64(len(chunk))
		}

		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return n, rerr
		}
	}

	if err := p.Send([]byte(EOF)); err != nil {
		return n, err
	}
	return n, nil
}

// Receive receives one file, writing its content to w.
func Receive(p *rdt.Peer, w io.Writer) (name string, n int64, err error) {
	data, err := p.Recv()
	if err != nil {
		return "", 0, fmt.Errorf("receiving name: %w", err)
	}
	name = string(data)
	if name == "" || !utf8.ValidString(name) {
		return "", 0, ErrBadName
	}

	for {
		data, err := p.Recv()
		if err != nil {
			return name, n, err
		}
		if string(data) == EOF {
			return name, n, nil
		}

		nw, err := w.Write(data)
		n += int64(nw)
		if err != nil {
			return name, n, err
		}
	}
}

// EchoName returns the name a file called name is echoed under.
func EchoName(name string) string {
	return token.New(token.Letters, 5) + "_" + name
}

// Echo receives one file and sends it back under EchoName.
// It returns the new name.
func Echo(p *rdt.Peer) (string, error) {
	var buf bytes.Buffer
	name, _, err := Receive(p, &limitWriter{&buf, MaxEchoSize})
	if err != nil {
		return "", err
	}

	newName := EchoName(name)
	if _, err := Send(p, newName, &buf); err != nil {
		return "", fmt.Errorf("echoing %s: %w", name, err)
	}
	return newName, nil
}

// Serve runs an echo server on l until ctx is done or l is closed.
// Every Peer gets one echo and is then closed.
func Serve(ctx context.Context, l *rdt.Listener, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		l.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		p, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return ctx.Err()
			}
			log.Warn("accept", "err", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer p.Close()

			log := log.With("addr", p.Addr().String())
			newName, err := Echo(p)
			if err != nil {
				log.Error("echo", "err", err)
				return
			}
			log.Info("echoed file", "name", newName)
		}()
	}
}

type limitWriter struct {
	w io.Writer
	n int64
}

func (lw *limitWriter) Write(p []byte) (int, error) {
	if int64(len(p)) > lw.n {
		return 0, ErrTooLarge
	}
	n, err := lw.w.Write(p)
	lw.n -= int64(n)
	return n, err
}
