// Package secret generates and masks API key secrets.
package secret

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	// Alphabet is the set of characters a secret is drawn from.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	// Length is the exact length of every secret.
	Length = 32

	// visiblePrefix is how many leading characters stay readable when masked.
	visiblePrefix = 10
	maskGlyph     = "•"
	maskRun       = 16
)

// Generate returns a new random secret of Length characters.
// len(Alphabet) is 64, so masking a random byte with 63 picks every symbol
// with equal probability.
func Generate() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = Alphabet[b&63]
	}
	return string(buf), nil
}

// Mask hides all but the first characters of s unless visible is set.
func Mask(s string, visible bool) string {
	if visible {
		return s
	}
	prefix := s
	if len(prefix) > visiblePrefix {
		prefix = prefix[:visiblePrefix]
	}
	return prefix + strings.Repeat(maskGlyph, maskRun)
}

// InAlphabet reports whether every byte of s belongs to Alphabet.
func InAlphabet(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isAlphabetByte(s[i]) {
			return false
		}
	}
	return true
}

func isAlphabetByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '-' || b == '_'
}
