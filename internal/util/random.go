package util

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomHex : 2*n hex characters from crypto/rand
func RandomHex(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", LogError("[util] random generation failed", err)
	}
	return hex.EncodeToString(bytes), nil
}
