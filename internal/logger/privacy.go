package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

var hashSalt string

func init() {
	// Load salt from environment or fall back to a default.
	// In production, set LOG_HASH_SALT environment variable.
	hashSalt = os.Getenv("LOG_HASH_SALT")
	if hashSalt == "" {
		hashSalt = "default-salt-change-in-production"
	}
}

// HashRoomNumber creates a privacy-preserving hash of a room number.
// Room numbers identify tenants, so raw values never reach the logs.
func HashRoomNumber(roomNumber string) string {
	if roomNumber == "" {
		return "<empty>"
	}
	data := fmt.Sprintf("%s:%s", roomNumber, hashSalt)
	hash := sha256.Sum256([]byte(data))
	// First 8 characters are enough to correlate log lines.
	return hex.EncodeToString(hash[:])[:8]
}

// SanitizeName redacts a tenant or meter name while preserving length
// information for debugging.
func SanitizeName(name string) string {
	if name == "" {
		return "<empty>"
	}

	words := strings.Fields(name)
	return fmt.Sprintf("<redacted: %d words, %d chars>", len(words), len(name))
}

// SanitizeText is a general-purpose sanitizer for any user-provided text.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}

	if len(text) <= 10 {
		return fmt.Sprintf("<%d chars>", len(text))
	}

	return fmt.Sprintf("%s...<%d chars>", text[:3], len(text))
}
