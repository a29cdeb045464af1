package cinners

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCmd   = errors.New("comando vazio")
	ErrUnknownCmd = errors.New("Comando não reconhecido.")
)

// A UsageError reports a command with missing arguments.
type UsageError struct {
	Cmd   string
	Usage string
}

func (e UsageError) Error() string {
	return fmt.Sprintf("Comando %s requer %s.", e.Cmd, e.Usage)
}

type cmdDef struct {
	usage string
	nargs int  // required arguments
	rest  bool // text after the last argument
	parse func(args []string) ToSrvCmd
}

var cmdDefs = map[string]cmdDef{
	"login":  {"<nome_do_usuario>", 1, false, func(a []string) ToSrvCmd { return ToSrvLogin{a[0]} }},
	"logout": {"", 0, false, func([]string) ToSrvCmd { return ToSrvLogout{} }},

	"list:cinners":   {"", 0, false, func([]string) ToSrvCmd { return ToSrvListCinners{} }},
	"list:friends":   {"", 0, false, func([]string) ToSrvCmd { return ToSrvListFriends{} }},
	"list:followers": {"", 0, false, func([]string) ToSrvCmd { return ToSrvListFollowers{} }},
	"list:groups":    {"", 0, false, func([]string) ToSrvCmd { return ToSrvListGroups{} }},
	"list:mygroups":  {"", 0, false, func([]string) ToSrvCmd { return ToSrvListMyGroups{} }},

	"follow":   {"<nome_do_usuario>", 1, false, func(a []string) ToSrvCmd { return ToSrvFollow{a[0]} }},
	"unfollow": {"<nome_do_usuario>", 1, false, func(a []string) ToSrvCmd { return ToSrvUnfollow{a[0]} }},

	"create_group": {"<nome_do_grupo>", 1, false, func(a []string) ToSrvCmd { return ToSrvCreateGroup{a[0]} }},
	"delete_group": {"<nome_do_grupo>", 1, false, func(a []string) ToSrvCmd { return ToSrvDeleteGroup{a[0]} }},
	"join":         {"<nome_do_grupo> <chave_grupo>", 2, false, func(a []string) ToSrvCmd { return ToSrvJoin{a[0], a[1]} }},
	"leave":        {"<nome_do_grupo>", 1, false, func(a []string) ToSrvCmd { return ToSrvLeave{a[0]} }},
	"ban":          {"<nome_do_usuario>", 1, false, func(a []string) ToSrvCmd { return ToSrvBan{a[0]} }},

	"chat_group":  {"<nome_grupo> <chave> <mensagem>", 2, true, func(a []string) ToSrvCmd { return ToSrvChatGroup{a[0], a[1], a[2]} }},
	"chat_friend": {"<nome_amigo> <mensagem>", 1, true, func(a []string) ToSrvCmd { return ToSrvChatFriend{a[0], a[1]} }},
}

// ParseCmd parses one command line. The keyword is case-insensitive;
// arguments are separated by whitespace, except that the message of
// chat commands keeps its inner spacing.
func ParseCmd(line string) (ToSrvCmd, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, ErrEmptyCmd
	}

	kw, rest := cutField(line)
	kw = strings.ToLower(kw)

	def, ok := cmdDefs[kw]
	if !ok {
		return nil, ErrUnknownCmd
	}

	args := make([]string, 0, def.nargs+1)
	for i := 0; i < def.nargs; i++ {
		var arg string
		arg, rest = cutField(rest)
		if arg == "" {
			return nil, UsageError{kw, def.usage}
		}
		args = append(args, arg)
	}
	if def.rest {
		if rest == "" {
			return nil, UsageError{kw, def.usage}
		}
		args = append(args, rest)
	}

	return def.parse(args), nil
}

// cutField splits s after its first whitespace-delimited field.
func cutField(s string) (field, rest string) {
	s = strings.TrimLeft(s, " \t\r\n")
	i := strings.IndexAny(s, " \t\r\n")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeft(s[i:], " \t\r\n")
}
