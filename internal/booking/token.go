package booking

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const tokenBytes = 24

// NewToken returns 24 random bytes, hex encoded.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate confirm token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
