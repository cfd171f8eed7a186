package dardanova

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const randomCharacters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var randomMax = big.NewInt(int64(len(randomCharacters)))

// RandomString returns a new string of a specified size containing only [a-zA-Z0-9] characters.
// It reads from crypto/rand, so the result is usable as a session identifier.
func RandomString(size int) string {
	sb := strings.Builder{}
	sb.Grow(size)
	for ; size > 0; size-- {
		n, err := rand.Int(rand.Reader, randomMax)
		if err != nil {
			panic(err)
		}
		sb.WriteByte(randomCharacters[n.Int64()])
	}
	return sb.String()
}
