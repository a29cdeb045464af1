package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/anon55555/cinners"
	"github.com/anon55555/cinners/store"
)

var errLoggedIn = errors.New("Você já está online.")

// serveCmd handles one message of a logged in session.
// It returns false when the session is over.
func (s *Server) serveCmd(ctx context.Context, p cinners.Peer, sess *store.Session, msg string, log *slog.Logger) bool {
	cmd, err := cinners.ParseCmd(msg)
	if err != nil {
		s.metrics.commands.WithLabelValues("unknown", "error").Inc()
		return s.reply(p, cinners.ErrorMsg(err), log)
	}

	name := cinners.CmdName(cmd)
	if _, ok := cmd.(cinners.ToSrvLogout); ok {
		s.metrics.commands.WithLabelValues(name, "ok").Inc()
		return false
	}

	_, span := s.tracer.Start(ctx, "cinners."+name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("cinners.command", name),
			attribute.String("cinners.user", sess.Username),
			attribute.String("net.peer.addr", p.Addr().String()),
		),
	)
	defer span.End()

	start := time.Now()
	res, err := s.dispatch(sess.Username, cmd)
	s.metrics.cmdDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	reply := res.Reply
	if err != nil {
		s.metrics.commands.WithLabelValues(name, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Debug("command failed", "cmd", name, "err", err)
		reply = cinners.ErrorMsg(err)
	} else {
		s.metrics.commands.WithLabelValues(name, "ok").Inc()
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(attribute.Int("cinners.notes", len(res.Notes)))

	s.notify(res.Notes, log)
	return s.reply(p, reply, log)
}

func (s *Server) reply(p cinners.Peer, msg string, log *slog.Logger) bool {
	if err := p.SendMsg(msg); err != nil {
		if !errors.Is(err, net.ErrClosed) {
			log.Warn("sending response", "err", err)
		}
		return false
	}
	return true
}

// dispatch runs cmd on behalf of user.
func (s *Server) dispatch(user string, cmd cinners.ToSrvCmd) (store.Result, error) {
	st := s.store

	switch cmd := cmd.(type) {
	case cinners.ToSrvLogin:
		return store.Result{}, errLoggedIn

	case cinners.ToSrvListCinners:
		return store.Result{Reply: st.ListOnlineUsers()}, nil
	case cinners.ToSrvListFriends:
		return store.Result{Reply: st.ListMutualFriends(user)}, nil
	case cinners.ToSrvListFollowers:
		return store.Result{Reply: st.ListFollowers(user)}, nil
	case cinners.ToSrvListGroups:
		return store.Result{Reply: st.ListGroups(user)}, nil
	case cinners.ToSrvListMyGroups:
		return store.Result{Reply: st.ListOwnedGroups(user)}, nil

	case cinners.ToSrvFollow:
		return st.Follow(user, cmd.User)
	case cinners.ToSrvUnfollow:
		return st.Unfollow(user, cmd.User)

	case cinners.ToSrvCreateGroup:
		return st.CreateGroup(user, cmd.Name)
	case cinners.ToSrvDeleteGroup:
		return st.DeleteGroup(user, cmd.Name)
	case cinners.ToSrvJoin:
		return st.JoinGroup(user, cmd.Name, cmd.Key)
	case cinners.ToSrvLeave:
		return st.LeaveGroup(user, cmd.Name)
	case cinners.ToSrvBan:
		return st.Ban(user, cmd.User)

	case cinners.ToSrvChatGroup:
		return st.ChatGroup(user, cmd.Name, cmd.Key, cmd.Msg)
	case cinners.ToSrvChatFriend:
		return st.ChatFriend(user, cmd.Friend, cmd.Msg)
	}

	return store.Result{}, cinners.ErrUnknownCmd
}
