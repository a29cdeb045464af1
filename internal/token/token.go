// Package token generates random tokens.
package token

import (
	"crypto/rand"
	"math/big"
)

const (
	Letters      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Alphanumeric = Letters + "0123456789"
)

// New returns n characters chosen uniformly from alphabet.
func New(alphabet string, n int) string {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		j, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("token: " + err.Error())
		}
		b[i] = alphabet[j.Int64()]
	}
	return string(b)
}
