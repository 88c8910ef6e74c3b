package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const fingerprintNonceSize = 16

// Fingerprint derives a device identifier from the client's user agent and a
// random nonce. The nonce makes fingerprints unique per login, so two devices
// with identical user agents still get distinct sessions.
func Fingerprint(userAgent string) (string, error) {
	nonce := make([]byte, fingerprintNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("fingerprint: read nonce: %w", err)
	}

	digest := sha256.New()
	digest.Write([]byte(userAgent))
	digest.Write(nonce)

	return hex.EncodeToString(digest.Sum(nil)), nil
}
