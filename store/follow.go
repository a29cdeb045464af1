package store

import "sort"

// Follow adds the edge follower -> followee. followee must be online.
func (s *Store) Follow(follower, followee string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(follower)
	if err != nil {
		return Result{}, err
	}
	if followee == follower {
		return Result{}, fail(ErrSelfFollow, "Não pode seguir a si mesmo.")
	}
	if _, ok := s.byName[followee]; !ok {
		return Result{}, fail(ErrUserNotFound, "Usuário %s não encontrado.", followee)
	}
	if s.following(follower, followee) {
		return Result{}, fail(ErrAlreadyFollowing, "Você já está seguindo %s.", followee)
	}

	if s.follows[follower] == nil {
		s.follows[follower] = make(set)
	}
	s.follows[follower][followee] = struct{}{}

	msg := "Você foi seguido por " + follower + " " + sess.Addr.String()
	return Result{
		Reply: followee + " foi adicionado à sua lista de amigos.",
		Notes: s.notes([]string{followee}, follower, msg),
	}, nil
}

// Unfollow removes the edge follower -> followee.
func (s *Store) Unfollow(follower, followee string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(follower)
	if err != nil {
		return Result{}, err
	}
	if !s.following(follower, followee) {
		return Result{}, fail(ErrNotFollowing, "Você não está seguindo %s.", followee)
	}

	delete(s.follows[follower], followee)
	if len(s.follows[follower]) == 0 {
		delete(s.follows, follower)
	}

	msg := sess.tag() + " " + follower + " deixou de seguir você"
	return Result{
		Reply: "Você deixou de seguir " + followee + ".",
		Notes: s.notes([]string{followee}, follower, msg),
	}, nil
}

// ChatFriend sends msg to friend, who must be a mutual follower and online.
func (s *Store) ChatFriend(user, friend, msg string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(user)
	if err != nil {
		return Result{}, err
	}
	if !s.mutual(user, friend) {
		return Result{}, fail(ErrNotMutual, "Você só pode enviar mensagens para amigos mútuos.")
	}
	to, ok := s.byName[friend]
	if !ok {
		return Result{}, fail(ErrOffline, "%s não está online.", friend)
	}

	return Result{
		Reply: "Mensagem enviada para " + friend + ".",
		Notes: []Note{{friend, to.Peer, sess.tag() + " " + msg}},
	}, nil
}

// Followers returns the users following user, sorted.
func (s *Store) Followers(user string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []string
	for follower := range s.follows {
		if s.following(follower, user) {
			users = append(users, follower)
		}
	}
	sort.Strings(users)
	return users
}

// MutualFriends returns the users that follow user and are followed back,
// sorted.
func (s *Store) MutualFriends(user string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []string
	for followee := range s.follows[user] {
		if s.following(followee, user) {
			users = append(users, followee)
		}
	}
	sort.Strings(users)
	return users
}

// REQUIRE: s.mu held.
func (s *Store) following(follower, followee string) bool {
	return s.follows[follower].has(followee)
}

// REQUIRE: s.mu held.
func (s *Store) mutual(a, b string) bool {
	return s.following(a, b) && s.following(b, a)
}
