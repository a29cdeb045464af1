package store

import (
	"net"
	"sort"
)

// RegisterLogin binds username to addr. At most one session may hold a
// username and at most one session may exist per address.
func (s *Store) RegisterLogin(username string, addr net.Addr, peer Notifier) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[username]; ok {
		return nil, fail(ErrDuplicateUser, "Nome de usuário já está em uso.")
	}
	if _, ok := s.byAddr[addr.String()]; ok {
		return nil, fail(ErrAddrInUse, "Endereço %s já tem uma sessão.", addr)
	}

	sess := &Session{
		Username: username,
		Addr:     addr,
		Peer:     peer,
		LoginAt:  s.now(),
	}
	s.byName[username] = sess
	s.byAddr[addr.String()] = sess
	return sess, nil
}

func (s *Store) LookupByAddr(addr net.Addr) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byAddr[addr.String()]
	return sess, ok
}

func (s *Store) LookupByUsername(username string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byName[username]
	return sess, ok
}

// Unregister ends the session at addr: the user's follow edges and group
// memberships are dropped, emptied groups are removed and groups the user
// administered are deleted. It returns Notes for members of deleted groups.
// Unregister is idempotent.
func (s *Store) Unregister(addr net.Addr) []Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byAddr[addr.String()]
	if !ok {
		return nil
	}
	user := sess.Username

	delete(s.byAddr, addr.String())
	delete(s.byName, user)
	delete(s.follows, user)

	var notes []Note
	for _, g := range s.sortedGroups() {
		delete(g.members, user)

		switch {
		case g.admin == user:
			delete(s.groups, g.groupID)
			msg := sess.tag() + " O grupo " + g.name + " foi deletado pelo administrador"
			notes = append(notes, s.notes(g.memberList(), user, msg)...)
		case len(g.members) == 0:
			delete(s.groups, g.groupID)
		}
	}
	return notes
}

// A SessionInfo describes an online user.
type SessionInfo struct {
	Username string `json:"username"`
	Addr     string `json:"addr"`
	LoginAt  string `json:"login_at"`
}

// Sessions lists online users sorted by username.
func (s *Store) Sessions() []SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]SessionInfo, 0, len(s.byName))
	for _, sess := range s.byName {
		infos = append(infos, SessionInfo{
			Username: sess.Username,
			Addr:     sess.Addr.String(),
			LoginAt:  sess.LoginAt.UTC().Format(timeFormatJSON),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Username < infos[j].Username })
	return infos
}
