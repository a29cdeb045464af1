package store

import (
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type nopNotifier struct{}

func (nopNotifier) SendMsg(string) error { return nil }

var epoch = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

func addr(port int) net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
}

// newStore returns a Store with users logged in at ports 5001, 5002, ...
func newStore(t *testing.T, users ...string) *Store {
	t.Helper()

	n := 0
	s := New(
		WithClock(func() time.Time { return epoch }),
		WithKeyGen(func() string {
			n++
			return fmt.Sprintf("Key%05d", n)
		}),
	)
	for i, user := range users {
		_, err := s.RegisterLogin(user, addr(5001+i), nopNotifier{})
		require.NoError(t, err)
	}
	return s
}

func noteTargets(notes []Note) []string {
	var to []string
	for _, n := range notes {
		to = append(to, n.To)
	}
	return to
}

func TestRegisterLoginDuplicate(t *testing.T) {
	s := newStore(t, "alice")

	_, err := s.RegisterLogin("alice", addr(6000), nopNotifier{})
	require.ErrorIs(t, err, ErrDuplicateUser)

	sess, ok := s.LookupByUsername("alice")
	require.True(t, ok)
	require.Equal(t, addr(5001).String(), sess.Addr.String())
	_, ok = s.LookupByAddr(addr(6000))
	require.False(t, ok)

	_, err = s.RegisterLogin("bob", addr(5001), nopNotifier{})
	require.ErrorIs(t, err, ErrAddrInUse)
}

func TestConcurrentLoginsClaimOnce(t *testing.T) {
	s := newStore(t)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.RegisterLogin("alice", addr(7000+i), nopNotifier{}); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, ok)
	require.Len(t, s.Sessions(), 1)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	s := newStore(t, "alice")

	s.Unregister(addr(5001))
	require.Nil(t, s.Unregister(addr(5001)))

	_, ok := s.LookupByUsername("alice")
	require.False(t, ok)

	_, err := s.RegisterLogin("alice", addr(6000), nopNotifier{})
	require.NoError(t, err)
}

func TestFollowErrors(t *testing.T) {
	s := newStore(t, "a", "b")

	_, err := s.Follow("a", "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
	require.EqualError(t, err, "Usuário ghost não encontrado.")

	_, err = s.Follow("a", "a")
	require.ErrorIs(t, err, ErrSelfFollow)

	_, err = s.Follow("a", "b")
	require.NoError(t, err)
	_, err = s.Follow("a", "b")
	require.ErrorIs(t, err, ErrAlreadyFollowing)

	_, err = s.Unfollow("b", "a")
	require.ErrorIs(t, err, ErrNotFollowing)

	_, err = s.Follow("ghost", "a")
	require.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestFollowNotifies(t *testing.T) {
	s := newStore(t, "alice", "bob")

	res, err := s.Follow("alice", "bob")
	require.NoError(t, err)
	require.Equal(t, "bob foi adicionado à sua lista de amigos.", res.Reply)
	require.Len(t, res.Notes, 1)
	require.Equal(t, "bob", res.Notes[0].To)
	require.Equal(t, "Você foi seguido por alice 127.0.0.1:5001", res.Notes[0].Msg)

	res, err = s.Unfollow("alice", "bob")
	require.NoError(t, err)
	require.Equal(t, []string{"bob"}, noteTargets(res.Notes))
	require.Equal(t, "[alice/127.0.0.1:5001] alice deixou de seguir você", res.Notes[0].Msg)
}

func TestMutualFriends(t *testing.T) {
	s := newStore(t, "a", "b", "c")

	_, err := s.Follow("a", "b")
	require.NoError(t, err)
	require.Empty(t, s.MutualFriends("a"))
	require.Equal(t, []string{"a"}, s.Followers("b"))

	_, err = s.Follow("b", "a")
	require.NoError(t, err)
	_, err = s.Follow("c", "a")
	require.NoError(t, err)

	require.Equal(t, []string{"b"}, s.MutualFriends("a"))
	require.Equal(t, []string{"a"}, s.MutualFriends("b"))
	require.Equal(t, []string{"b", "c"}, s.Followers("a"))

	_, err = s.Unfollow("b", "a")
	require.NoError(t, err)
	require.Empty(t, s.MutualFriends("a"))
	require.Empty(t, s.MutualFriends("b"))
	require.Equal(t, "Você não tem amigos mútuos.", s.ListMutualFriends("a"))
}

func TestGroupJoin(t *testing.T) {
	s := newStore(t, "admin", "bob", "carol")

	res, err := s.CreateGroup("admin", "g")
	require.NoError(t, err)
	require.Equal(t, "Grupo 'g' criado com sucesso. Chave: Key00001", res.Reply)

	_, err = s.CreateGroup("admin", "g")
	require.ErrorIs(t, err, ErrGroupExists)

	_, err = s.JoinGroup("bob", "g", "wrong")
	require.ErrorIs(t, err, ErrBadKey)

	res, err = s.JoinGroup("bob", "g", "Key00001")
	require.NoError(t, err)
	require.Equal(t, "Você entrou no grupo 'g'.", res.Reply)
	require.Equal(t, []string{"admin"}, noteTargets(res.Notes))

	res, err = s.JoinGroup("bob", "g", "Key00001")
	require.NoError(t, err)
	require.Equal(t, "Você já está neste grupo.", res.Reply)
	require.Empty(t, res.Notes)

	res, err = s.JoinGroup("carol", "g", "Key00001")
	require.NoError(t, err)
	require.Equal(t, []string{"admin", "bob"}, noteTargets(res.Notes))

	groups := s.Groups()
	require.Len(t, groups, 1)
	require.Equal(t, []string{"admin", "bob", "carol"}, groups[0].Members)
}

func TestSameNameDifferentAdmins(t *testing.T) {
	s := newStore(t, "a1", "a2", "bob")

	_, err := s.CreateGroup("a1", "g")
	require.NoError(t, err)
	_, err = s.CreateGroup("a2", "g")
	require.NoError(t, err)

	_, err = s.JoinGroup("bob", "g", "Key00002")
	require.NoError(t, err)

	require.Equal(t, "Nome: g, Admin: a2, Criado em: Tue Mar  5 14:07:09 2024", s.ListGroups("bob"))
	require.Equal(t, "Nome: g, Chave: Key00001", s.ListOwnedGroups("a1"))
}

func TestDeleteGroup(t *testing.T) {
	s := newStore(t, "admin", "bob")

	_, err := s.CreateGroup("admin", "g")
	require.NoError(t, err)
	_, err = s.JoinGroup("bob", "g", "Key00001")
	require.NoError(t, err)

	_, err = s.DeleteGroup("bob", "g")
	require.ErrorIs(t, err, ErrNotAdmin)
	_, err = s.DeleteGroup("admin", "nope")
	require.ErrorIs(t, err, ErrGroupNotFound)

	res, err := s.DeleteGroup("admin", "g")
	require.NoError(t, err)
	require.Equal(t, []string{"bob"}, noteTargets(res.Notes))
	require.Equal(t, "[admin/127.0.0.1:5001] O grupo g foi deletado pelo administrador", res.Notes[0].Msg)

	_, err = s.JoinGroup("bob", "g", "Key00001")
	require.ErrorIs(t, err, ErrGroupNotFound)
	require.Empty(t, s.Groups())
}

func TestLeaveGroup(t *testing.T) {
	s := newStore(t, "admin", "bob", "carol")

	_, err := s.CreateGroup("admin", "g")
	require.NoError(t, err)
	for _, u := range []string{"bob", "carol"} {
		_, err = s.JoinGroup(u, "g", "Key00001")
		require.NoError(t, err)
	}

	_, err = s.LeaveGroup("bob", "other")
	require.ErrorIs(t, err, ErrNotMember)

	res, err := s.LeaveGroup("bob", "g")
	require.NoError(t, err)
	require.Equal(t, []string{"admin", "carol"}, noteTargets(res.Notes))

	_, err = s.LeaveGroup("bob", "g")
	require.ErrorIs(t, err, ErrNotMember)

	for _, u := range []string{"admin", "carol"} {
		_, err = s.LeaveGroup(u, "g")
		require.NoError(t, err)
	}
	require.Empty(t, s.Groups(), "empty group must be removed")
}

func TestBan(t *testing.T) {
	s := newStore(t, "admin", "bob", "carol")

	_, err := s.CreateGroup("admin", "g")
	require.NoError(t, err)
	for _, u := range []string{"bob", "carol"} {
		_, err = s.JoinGroup(u, "g", "Key00001")
		require.NoError(t, err)
	}

	_, err = s.Ban("bob", "carol")
	require.ErrorIs(t, err, ErrNotAdmin)
	_, err = s.Ban("admin", "admin")
	require.ErrorIs(t, err, ErrSelfBan)

	res, err := s.Ban("admin", "bob")
	require.NoError(t, err)
	require.Equal(t, "bob foi banido do grupo 'g'.", res.Reply)
	require.Equal(t, []string{"carol", "bob"}, noteTargets(res.Notes))
	require.Equal(t, "[admin/127.0.0.1:5001] O administrador do grupo g baniu você.", res.Notes[1].Msg)
	require.Equal(t, []string{"admin", "carol"}, s.Groups()[0].Members)

	_, err = s.Ban("admin", "bob")
	require.ErrorIs(t, err, ErrNotAdmin)
}

func TestBanLastMemberRemovesGroup(t *testing.T) {
	s := newStore(t, "admin", "bob")

	_, err := s.CreateGroup("admin", "g")
	require.NoError(t, err)
	_, err = s.JoinGroup("bob", "g", "Key00001")
	require.NoError(t, err)
	_, err = s.LeaveGroup("admin", "g")
	require.NoError(t, err)

	res, err := s.Ban("admin", "bob")
	require.NoError(t, err)
	require.Equal(t, []string{"bob"}, noteTargets(res.Notes))

	require.Empty(t, s.Groups())
	require.Equal(t, "Você não criou nenhum grupo.", s.ListOwnedGroups("admin"))
}

func TestChatGroup(t *testing.T) {
	s := newStore(t, "admin", "bob", "carol")

	_, err := s.CreateGroup("admin", "team")
	require.NoError(t, err)
	_, err = s.JoinGroup("bob", "team", "Key00001")
	require.NoError(t, err)

	res, err := s.ChatGroup("admin", "team", "Key00001", "hello")
	require.NoError(t, err)
	require.Equal(t, "Mensagem enviada ao grupo.", res.Reply)
	require.Equal(t, []Note{{"bob", nopNotifier{}, "[admin/127.0.0.1:5001] hello"}}, res.Notes)

	_, err = s.ChatGroup("admin", "team", "bad", "hello")
	require.ErrorIs(t, err, ErrGroupNotFound)
	_, err = s.ChatGroup("carol", "team", "Key00001", "hello")
	require.ErrorIs(t, err, ErrNotMember)
}

func TestChatFriend(t *testing.T) {
	s := newStore(t, "a", "b")

	_, err := s.Follow("a", "b")
	require.NoError(t, err)
	_, err = s.ChatFriend("a", "b", "oi")
	require.ErrorIs(t, err, ErrNotMutual)

	_, err = s.Follow("b", "a")
	require.NoError(t, err)
	res, err := s.ChatFriend("a", "b", "oi")
	require.NoError(t, err)
	require.Equal(t, "Mensagem enviada para b.", res.Reply)
	require.Equal(t, []Note{{"b", nopNotifier{}, "[a/127.0.0.1:5001] oi"}}, res.Notes)
}

func TestUnregisterCleansUp(t *testing.T) {
	s := newStore(t, "alice", "bob", "carol")

	_, err := s.CreateGroup("alice", "mine") // Key00001
	require.NoError(t, err)
	_, err = s.JoinGroup("bob", "mine", "Key00001")
	require.NoError(t, err)
	_, err = s.CreateGroup("bob", "theirs") // Key00002
	require.NoError(t, err)
	_, err = s.JoinGroup("alice", "theirs", "Key00002")
	require.NoError(t, err)
	_, err = s.CreateGroup("carol", "solo") // Key00003
	require.NoError(t, err)
	_, err = s.JoinGroup("alice", "solo", "Key00003")
	require.NoError(t, err)
	_, err = s.LeaveGroup("carol", "solo")
	require.NoError(t, err)

	_, err = s.Follow("alice", "bob")
	require.NoError(t, err)
	_, err = s.Follow("bob", "alice")
	require.NoError(t, err)

	notes := s.Unregister(addr(5001))
	require.Equal(t, []string{"bob"}, noteTargets(notes))
	require.Equal(t, "[alice/127.0.0.1:5001] O grupo mine foi deletado pelo administrador", notes[0].Msg)

	groups := s.Groups()
	require.Len(t, groups, 1)
	require.Equal(t, "theirs", groups[0].Name)
	require.Equal(t, []string{"bob"}, groups[0].Members)

	require.Empty(t, s.MutualFriends("bob"))
	require.Equal(t, "bob 127.0.0.1:5002\ncarol 127.0.0.1:5003", s.ListOnlineUsers())
}

func TestListingsWhenEmpty(t *testing.T) {
	s := newStore(t, "a")

	require.Equal(t, "Ninguém segue você.", s.ListFollowers("a"))
	require.Equal(t, "Você não tem amigos mútuos.", s.ListMutualFriends("a"))
	require.Equal(t, "Você não está em nenhum grupo.", s.ListGroups("a"))
	require.Equal(t, "Você não criou nenhum grupo.", s.ListOwnedGroups("a"))
	require.Equal(t, "a 127.0.0.1:5001", s.ListOnlineUsers())
	require.Equal(t, "Nenhum usuário conectado.", New().ListOnlineUsers())
}
