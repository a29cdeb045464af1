// Package server runs cinners sessions: it accepts peers from a
// cinners.Listener, logs them in and dispatches their commands to a
// store.Store, delivering the resulting notifications to other users.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/anon55555/cinners"
	"github.com/anon55555/cinners/store"
)

const tracerName = "github.com/anon55555/cinners/server"

// DefaultDisconnectAttempts bounds the transmissions of messages sent to
// a peer that is being dropped.
const DefaultDisconnectAttempts = 5

var errNoLogin = errors.New("Comando login não recebido.")

type Server struct {
	store    *store.Store
	log      *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics
	tracer   trace.Tracer

	disconnectAttempts int

	wg sync.WaitGroup
}

// An Option configures a Server.
type Option func(*Server)

func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithRegistry sets the registry metrics are registered in and served from.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Server) { s.tracer = tracer }
}

// WithDisconnectAttempts sets how many times login rejections and the
// final MsgDisconnected are transmitted before giving up.
func WithDisconnectAttempts(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.disconnectAttempts = n
		}
	}
}

func New(st *store.Store, opts ...Option) *Server {
	s := &Server{
		store:              st,
		disconnectAttempts: DefaultDisconnectAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		s.log = slog.Default()
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	s.metrics = newMetrics(s.registry)
	return s
}

// Store returns the store the Server dispatches to.
func (s *Server) Store() *store.Store { return s.store }

// Serve accepts peers from l until ctx is done or l is closed,
// handling each in its own goroutine. l is closed when Serve returns,
// after all sessions have ended.
func (s *Server) Serve(ctx context.Context, l cinners.Listener) error {
	s.metrics.watch(l.Counters())

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		l.Close()
	}()

	s.log.Info("listening", "addr", l.Addr().String())
	for {
		p, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break
			}
			s.log.Warn("accept", "err", err)
			continue
		}

		s.wg.Add(1)
		go s.handle(ctx, p)
	}

	s.wg.Wait()
	s.log.Info("stopped listening", "addr", l.Addr().String())
	return ctx.Err()
}

func (s *Server) handle(ctx context.Context, p cinners.Peer) {
	defer s.wg.Done()

	log := s.log.With("session", uuid.NewString(), "addr", p.Addr().String())
	log.Debug("connected")

	sess, err := s.login(p)
	if err != nil {
		log.Info("login rejected", "err", err)
		if err := p.TrySendMsg(cinners.ErrorMsg(err), s.disconnectAttempts); err != nil {
			log.Debug("sending login rejection", "err", err)
		} else if err := p.TrySendMsg(cinners.MsgDisconnected, s.disconnectAttempts); err != nil {
			log.Debug("peer already disconnected", "err", err)
		}
		p.Close()
		return
	}

	log = log.With("user", sess.Username)
	log.Info("logged in")

	defer s.terminate(p, log)
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic handling session", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if err := p.SendMsg(cinners.MsgOnline); err != nil {
		log.Warn("sending login response", "err", err)
		return
	}

	for {
		msg, err := p.RecvMsg()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Error("recv", "err", err)
			}
			return
		}

		msg = strings.TrimSpace(msg)
		if msg == "" {
			continue
		}
		if !s.serveCmd(ctx, p, sess, msg, log) {
			return
		}
	}
}

// login receives the first message, which must be a login command,
// and registers the session.
func (s *Server) login(p cinners.Peer) (*store.Session, error) {
	cmd, err := p.RecvCmd()
	if errors.Is(err, net.ErrClosed) {
		return nil, err
	}

	login, ok := cmd.(cinners.ToSrvLogin)
	if err == nil && !ok {
		err = errNoLogin
	}
	if err != nil {
		s.metrics.logins.WithLabelValues("invalid").Inc()
		return nil, err
	}

	sess, err := s.store.RegisterLogin(login.Username, p.Addr(), p)
	if err != nil {
		s.metrics.logins.WithLabelValues("duplicate").Inc()
		return nil, err
	}

	s.metrics.logins.WithLabelValues("ok").Inc()
	s.metrics.sessions.Inc()
	return sess, nil
}

// terminate removes the session's state, tells the users affected and
// sends the peer a final MsgDisconnected.
func (s *Server) terminate(p cinners.Peer, log *slog.Logger) {
	notes := s.store.Unregister(p.Addr())
	s.metrics.sessions.Dec()

	s.notify(notes, log)

	if err := p.TrySendMsg(cinners.MsgDisconnected, s.disconnectAttempts); err != nil {
		log.Debug("peer already disconnected", "err", err)
	}
	p.Close()

	log.Info("logged out")
}

// notify delivers notes, logging failures.
func (s *Server) notify(notes []store.Note, log *slog.Logger) {
	for _, n := range notes {
		if err := n.Peer.SendMsg(n.Msg); err != nil {
			s.metrics.notifications.WithLabelValues("failed").Inc()
			log.Warn("notifying", "to", n.To, "err", err)
			continue
		}
		s.metrics.notifications.WithLabelValues("sent").Inc()
	}
}
