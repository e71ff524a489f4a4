// Package antibody computes deterministic fingerprints of adversarial inputs.
//
// An antibody is the SHA-256 digest of a detected threat's raw text. Two
// agents that observe the same input derive the same antibody, which is what
// lets the registry act as shared immune memory.
package antibody

import (
	"crypto/sha256"
	"encoding/hex"
)

// FingerprintLen is the length of a hex-encoded antibody fingerprint.
const FingerprintLen = 64

// Fingerprint returns the lowercase hex SHA-256 digest of the input text.
// An empty input has no fingerprint and yields the empty string.
func Fingerprint(text string) string {
	if text == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Short returns the abbreviated display form of a fingerprint:
// the first 12 hex characters, an ellipsis, and the last 8.
// Fingerprints too short to abbreviate are returned unchanged.
func Short(fp string) string {
	if len(fp) < 21 {
		return fp
	}
	return fp[:12] + "..." + fp[len(fp)-8:]
}

// IsValid reports whether fp is a well-formed fingerprint:
// exactly 64 lowercase hex characters.
func IsValid(fp string) bool {
	if len(fp) != FingerprintLen {
		return false
	}
	for i := 0; i < len(fp); i++ {
		c := fp[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
