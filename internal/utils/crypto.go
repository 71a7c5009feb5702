package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateDeviceKey returns a random shared secret for a new device. Hex so
// it can be typed into ATM firmware configs without escaping.
func GenerateDeviceKey() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
