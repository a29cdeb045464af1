package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok := New(Alphanumeric, 8)
		require.Len(t, tok, 8)
		for _, r := range tok {
			require.True(t, strings.ContainsRune(Alphanumeric, r), tok)
		}
		seen[tok] = true
	}
	require.Greater(t, len(seen), 90)

	require.Empty(t, New(Letters, 0))
}
