package store

import (
	"strings"
	"time"
)

const timeFormatJSON = time.RFC3339

// Listings are newline-joined lines, or a sentence saying there is nothing
// to list.

func listing(lines []string, none string) string {
	if len(lines) == 0 {
		return none
	}
	return strings.Join(lines, "\n")
}

// ListOnlineUsers lists "<user> <host>:<port>" for every online user.
func (s *Store) ListOnlineUsers() string {
	var lines []string
	for _, info := range s.Sessions() {
		lines = append(lines, info.Username+" "+info.Addr)
	}
	return listing(lines, "Nenhum usuário conectado.")
}

func (s *Store) ListFollowers(user string) string {
	return listing(s.Followers(user), "Ninguém segue você.")
}

func (s *Store) ListMutualFriends(user string) string {
	return listing(s.MutualFriends(user), "Você não tem amigos mútuos.")
}

// ListGroups lists the groups user is a member of.
func (s *Store) ListGroups(user string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lines []string
	for _, g := range s.sortedGroups() {
		if g.members.has(user) {
			lines = append(lines, "Nome: "+g.name+", Admin: "+g.admin+", Criado em: "+g.createdAt.Format(time.ANSIC))
		}
	}
	return listing(lines, "Você não está em nenhum grupo.")
}

// ListOwnedGroups lists the groups user administers, with their keys.
func (s *Store) ListOwnedGroups(user string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lines []string
	for _, g := range s.groupInfos(func(g *group) bool { return g.admin == user }) {
		lines = append(lines, "Nome: "+g.Name+", Chave: "+g.Key)
	}
	return listing(lines, "Você não criou nenhum grupo.")
}
