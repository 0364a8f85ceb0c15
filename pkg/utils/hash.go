package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprintBytes is the digest prefix kept for content fingerprints (128 bits).
const fingerprintBytes = 16

// CalculateStringSHA256 computes the SHA-256 hash of a string.
func CalculateStringSHA256(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// ContentFingerprint returns a 128-bit hex digest of text after collapsing all
// whitespace runs to a single space, so layout-only differences hash equally.
func ContentFingerprint(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:fingerprintBytes])
}
