// Package store holds the shared state of a cinners server: who is online
// at which address, who follows whom, and the groups.
//
// Every operation runs under one mutex and never blocks on the network.
// Operations that affect other users return Notes, which the caller
// delivers after the operation has returned.
package store

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/anon55555/cinners/internal/token"
)

// KeyLen is the length of group join keys.
const KeyLen = 8

var (
	ErrDuplicateUser    = errors.New("nome de usuário já está em uso")
	ErrAddrInUse        = errors.New("endereço já tem uma sessão")
	ErrNotLoggedIn      = errors.New("usuário não está online")
	ErrSelfFollow       = errors.New("não pode seguir a si mesmo")
	ErrUserNotFound     = errors.New("usuário não encontrado")
	ErrAlreadyFollowing = errors.New("já está seguindo")
	ErrNotFollowing     = errors.New("não está seguindo")
	ErrGroupExists      = errors.New("grupo já existe")
	ErrGroupNotFound    = errors.New("grupo não encontrado")
	ErrBadKey           = errors.New("chave inválida")
	ErrNotMember        = errors.New("não é membro do grupo")
	ErrNotAdmin         = errors.New("não é o administrador")
	ErrSelfBan          = errors.New("não pode banir a si mesmo")
	ErrNotMutual        = errors.New("não são amigos mútuos")
	ErrOffline          = errors.New("usuário não está online")
)

// An OpError is a failed operation. Its message is meant for the user,
// Unwrap returns one of the Err* values.
type OpError struct {
	Kind error
	Msg  string
}

func (e *OpError) Error() string { return e.Msg }
func (e *OpError) Unwrap() error { return e.Kind }

func fail(kind error, format string, a ...interface{}) error {
	return &OpError{kind, fmt.Sprintf(format, a...)}
}

// A Notifier delivers a message to one online user.
type Notifier interface {
	SendMsg(msg string) error
}

// A Session is an online user.
type Session struct {
	Username string
	Addr     net.Addr
	Peer     Notifier
	LoginAt  time.Time
}

// tag identifies the session in notifications.
func (s *Session) tag() string {
	return fmt.Sprintf("[%s/%s]", s.Username, s.Addr)
}

// A Note is a message for a user other than the one who caused it.
type Note struct {
	To   string
	Peer Notifier
	Msg  string
}

// A Result is the response to the requesting user plus any Notes.
type Result struct {
	Reply string
	Notes []Note
}

type groupID struct {
	admin, name string
}

type group struct {
	groupID
	key       string
	members   set
	createdAt time.Time
}

type set map[string]struct{}

func (s set) has(k string) bool {
	_, ok := s[k]
	return ok
}

// Store is safe for concurrent use.
type Store struct {
	now    func() time.Time
	newKey func() string

	mu      sync.Mutex
	byAddr  map[string]*Session
	byName  map[string]*Session
	follows map[string]set // follower -> followees
	groups  map[groupID]*group
}

// An Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for login and group creation times.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithKeyGen sets the generator of group join keys.
func WithKeyGen(newKey func() string) Option {
	return func(s *Store) { s.newKey = newKey }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:    time.Now,
		newKey: func() string { return token.New(token.Alphanumeric, KeyLen) },

		byAddr:  make(map[string]*Session),
		byName:  make(map[string]*Session),
		follows: make(map[string]set),
		groups:  make(map[groupID]*group),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// session returns the session of an online user.
// REQUIRE: s.mu held.
func (s *Store) session(user string) (*Session, error) {
	sess, ok := s.byName[user]
	if !ok {
		return nil, fail(ErrNotLoggedIn, "Usuário %s não está online.", user)
	}
	return sess, nil
}

// notes builds one Note per online user in to, skipping except.
// REQUIRE: s.mu held.
func (s *Store) notes(to []string, except, msg string) []Note {
	var notes []Note
	for _, user := range to {
		if user == except {
			continue
		}
		if sess, ok := s.byName[user]; ok {
			notes = append(notes, Note{user, sess.Peer, msg})
		}
	}
	return notes
}
