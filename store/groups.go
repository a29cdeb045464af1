package store

import "sort"

// CreateGroup creates the group (admin, name) with admin as its only member.
func (s *Store) CreateGroup(admin, name string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.session(admin); err != nil {
		return Result{}, err
	}
	id := groupID{admin, name}
	if _, ok := s.groups[id]; ok {
		return Result{}, fail(ErrGroupExists, "Você já possui um grupo '%s'.", name)
	}

	g := &group{
		groupID:   id,
		key:       s.newKey(),
		members:   set{admin: {}},
		createdAt: s.now(),
	}
	s.groups[id] = g

	return Result{Reply: "Grupo '" + name + "' criado com sucesso. Chave: " + g.key}, nil
}

// DeleteGroup deletes the group (admin, name) and notifies its members.
func (s *Store) DeleteGroup(admin, name string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(admin)
	if err != nil {
		return Result{}, err
	}
	g, ok := s.groups[groupID{admin, name}]
	if !ok {
		for _, g := range s.groups {
			if g.name == name && g.members.has(admin) {
				return Result{}, fail(ErrNotAdmin, "Você não é o administrador do grupo '%s'.", name)
			}
		}
		return Result{}, fail(ErrGroupNotFound, "Grupo '%s' não encontrado.", name)
	}

	delete(s.groups, g.groupID)

	msg := sess.tag() + " O grupo " + name + " foi deletado pelo administrador"
	return Result{
		Reply: "Grupo '" + name + "' deletado com sucesso.",
		Notes: s.notes(g.memberList(), admin, msg),
	}, nil
}

// JoinGroup adds user to the group called name whose key is key.
// Joining a group twice is not an error.
func (s *Store) JoinGroup(user, name, key string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(user)
	if err != nil {
		return Result{}, err
	}

	named := false
	for _, g := range s.sortedGroups() {
		if g.name != name {
			continue
		}
		named = true
		if g.key != key {
			continue
		}

		if g.members.has(user) {
			return Result{Reply: "Você já está neste grupo."}, nil
		}
		g.members[user] = struct{}{}

		msg := sess.tag() + " " + user + " acabou de entrar no grupo"
		return Result{
			Reply: "Você entrou no grupo '" + name + "'.",
			Notes: s.notes(g.memberList(), user, msg),
		}, nil
	}

	if named {
		return Result{}, fail(ErrBadKey, "Chave inválida para o grupo '%s'.", name)
	}
	return Result{}, fail(ErrGroupNotFound, "Grupo '%s' não encontrado.", name)
}

// LeaveGroup removes user from the first group called name it is a member of.
func (s *Store) LeaveGroup(user, name string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(user)
	if err != nil {
		return Result{}, err
	}

	for _, g := range s.sortedGroups() {
		if g.name != name || !g.members.has(user) {
			continue
		}

		delete(g.members, user)
		if len(g.members) == 0 {
			delete(s.groups, g.groupID)
		}

		msg := sess.tag() + " " + user + " saiu do grupo"
		return Result{
			Reply: "Você saiu do grupo '" + name + "'.",
			Notes: s.notes(g.memberList(), user, msg),
		}, nil
	}

	return Result{}, fail(ErrNotMember, "Você não está no grupo '%s'.", name)
}

// Ban removes target from the first group administered by admin that
// contains target.
func (s *Store) Ban(admin, target string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(admin)
	if err != nil {
		return Result{}, err
	}
	if target == admin {
		return Result{}, fail(ErrSelfBan, "Não pode banir a si mesmo.")
	}

	for _, g := range s.sortedGroups() {
		if g.admin != admin || !g.members.has(target) {
			continue
		}

		delete(g.members, target)
		if len(g.members) == 0 {
			delete(s.groups, g.groupID)
		}

		notes := s.notes(g.memberList(), admin, sess.tag()+" "+target+" foi banido do grupo "+g.name)
		notes = append(notes, s.notes([]string{target}, admin,
			sess.tag()+" O administrador do grupo "+g.name+" baniu você.")...)
		return Result{
			Reply: target + " foi banido do grupo '" + g.name + "'.",
			Notes: notes,
		}, nil
	}

	return Result{}, fail(ErrNotAdmin, "Você não é admin de um grupo onde %s está.", target)
}

// ChatGroup sends msg to the other members of the group called name
// whose key is key. user must be a member.
func (s *Store) ChatGroup(user, name, key, msg string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(user)
	if err != nil {
		return Result{}, err
	}

	found := false
	for _, g := range s.sortedGroups() {
		if g.name != name || g.key != key {
			continue
		}
		found = true
		if !g.members.has(user) {
			continue
		}

		return Result{
			Reply: "Mensagem enviada ao grupo.",
			Notes: s.notes(g.memberList(), user, sess.tag()+" "+msg),
		}, nil
	}

	if found {
		return Result{}, fail(ErrNotMember, "Você não é membro do grupo '%s'.", name)
	}
	return Result{}, fail(ErrGroupNotFound, "Grupo não encontrado ou chave inválida.")
}

// A GroupInfo describes a group. Key is only set for the admin's listing.
type GroupInfo struct {
	Name      string   `json:"name"`
	Admin     string   `json:"admin"`
	Key       string   `json:"-"`
	Members   []string `json:"members"`
	CreatedAt string   `json:"created_at"`
}

// Groups returns all groups sorted by name and admin.
func (s *Store) Groups() []GroupInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.groupInfos(func(*group) bool { return true })
}

// REQUIRE: s.mu held.
func (s *Store) groupInfos(keep func(*group) bool) []GroupInfo {
	var infos []GroupInfo
	for _, g := range s.sortedGroups() {
		if !keep(g) {
			continue
		}
		infos = append(infos, GroupInfo{
			Name:      g.name,
			Admin:     g.admin,
			Key:       g.key,
			Members:   g.memberList(),
			CreatedAt: g.createdAt.UTC().Format(timeFormatJSON),
		})
	}
	return infos
}

// sortedGroups returns the groups ordered by name, then admin.
// REQUIRE: s.mu held.
func (s *Store) sortedGroups() []*group {
	groups := make([]*group, 0, len(s.groups))
	for _, g := range s.groups {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].name != groups[j].name {
			return groups[i].name < groups[j].name
		}
		return groups[i].admin < groups[j].admin
	})
	return groups
}

func (g *group) memberList() []string {
	members := make([]string, 0, len(g.members))
	for m := range g.members {
		members = append(members, m)
	}
	sort.Strings(members)
	return members
}
