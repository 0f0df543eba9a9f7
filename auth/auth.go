// Package auth covers both halves of credential handling: the deterministic
// digest clients put on the wire, and the salted hash accounts carry at rest.
package auth

import (
	"crypto/md5"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// Digest returns the wire digest for a password. Clients hash before
// sending; the server never sees the plain password.
func Digest(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}

// HashDigest converts a wire digest into its at-rest form.
func HashDigest(digest string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(digest), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckDigest reports whether a wire digest matches a stored hash.
func CheckDigest(stored, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(digest)) == nil
}
