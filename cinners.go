// Package cinners implements the cinners presence and chat protocol,
// a line-oriented text protocol carried over rdt reliable channels.
//
// A client sends ToSrvLogin as its first message, then any other ToSrvCmd.
// Every command gets exactly one text response; the server may also send
// notifications caused by other users at any time.
package cinners

import "strings"

const (
	// MsgOnline is the response to a successful login.
	MsgOnline = "Você está online!"

	// MsgDisconnected is the last message the server sends to a peer.
	MsgDisconnected = "disconnected"

	// ErrPrefix starts every error response.
	ErrPrefix = "Erro: "
)

// IsErrorMsg reports whether msg is an error response.
func IsErrorMsg(msg string) bool {
	return len(msg) >= 4 && strings.EqualFold(msg[:4], "erro")
}

// ErrorMsg formats err as an error response.
func ErrorMsg(err error) string {
	return ErrPrefix + err.Error()
}
