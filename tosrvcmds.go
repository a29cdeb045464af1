package cinners

// A ToSrvCmd is a command sent by a client. String returns its wire form.
type ToSrvCmd interface {
	String() string
	toSrvCmd()
}

// ToSrvLogin must be the first message of a session.
type ToSrvLogin struct {
	Username string
}

// ToSrvLogout ends the session. The server answers with MsgDisconnected.
type ToSrvLogout struct{}

// ToSrvListCinners lists online users with their addresses.
type ToSrvListCinners struct{}

// ToSrvListFriends lists mutual followers.
type ToSrvListFriends struct{}

// ToSrvListFollowers lists users following the sender.
type ToSrvListFollowers struct{}

// ToSrvListGroups lists the groups the sender is a member of.
type ToSrvListGroups struct{}

// ToSrvListMyGroups lists the groups the sender administers, with their keys.
type ToSrvListMyGroups struct{}

type ToSrvFollow struct {
	User string
}

type ToSrvUnfollow struct {
	User string
}

// ToSrvCreateGroup creates a group administered by the sender.
// The response contains the group's join key.
type ToSrvCreateGroup struct {
	Name string
}

type ToSrvDeleteGroup struct {
	Name string
}

type ToSrvJoin struct {
	Name, Key string
}

type ToSrvLeave struct {
	Name string
}

// ToSrvBan removes User from a group administered by the sender.
type ToSrvBan struct {
	User string
}

type ToSrvChatGroup struct {
	Name, Key string
	Msg       string
}

// ToSrvChatFriend sends Msg to a mutual follower.
type ToSrvChatFriend struct {
	Friend string
	Msg    string
}

func (ToSrvLogin) toSrvCmd()         {}
func (ToSrvLogout) toSrvCmd()        {}
func (ToSrvListCinners) toSrvCmd()   {}
func (ToSrvListFriends) toSrvCmd()   {}
func (ToSrvListFollowers) toSrvCmd() {}
func (ToSrvListGroups) toSrvCmd()    {}
func (ToSrvListMyGroups) toSrvCmd()  {}
func (ToSrvFollow) toSrvCmd()        {}
func (ToSrvUnfollow) toSrvCmd()      {}
func (ToSrvCreateGroup) toSrvCmd()   {}
func (ToSrvDeleteGroup) toSrvCmd()   {}
func (ToSrvJoin) toSrvCmd()          {}
func (ToSrvLeave) toSrvCmd()         {}
func (ToSrvBan) toSrvCmd()           {}
func (ToSrvChatGroup) toSrvCmd()     {}
func (ToSrvChatFriend) toSrvCmd()    {}

func (c ToSrvLogin) String() string       { return "login " + c.Username }
func (ToSrvLogout) String() string        { return "logout" }
func (ToSrvListCinners) String() string   { return "list:cinners" }
func (ToSrvListFriends) String() string   { return "list:friends" }
func (ToSrvListFollowers) String() string { return "list:followers" }
func (ToSrvListGroups) String() string    { return "list:groups" }
func (ToSrvListMyGroups) String() string  { return "list:mygroups" }
func (c ToSrvFollow) String() string      { return "follow " + c.User }
func (c ToSrvUnfollow) String() string    { return "unfollow " + c.User }
func (c ToSrvCreateGroup) String() string { return "create_group " + c.Name }
func (c ToSrvDeleteGroup) String() string { return "delete_group " + c.Name }
func (c ToSrvJoin) String() string        { return "join " + c.Name + " " + c.Key }
func (c ToSrvLeave) String() string       { return "leave " + c.Name }
func (c ToSrvBan) String() string         { return "ban " + c.User }
func (c ToSrvChatGroup) String() string   { return "chat_group " + c.Name + " " + c.Key + " " + c.Msg }
func (c ToSrvChatFriend) String() string  { return "chat_friend " + c.Friend + " " + c.Msg }

// CmdName returns the keyword of cmd.
func CmdName(cmd ToSrvCmd) string {
	name, _ := cutField(cmd.String())
	return name
}
