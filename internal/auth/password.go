// Package auth hashes and verifies account passwords. New hashes use
// scrypt; verification also accepts the legacy lower-hex SHA-256 digests
// written by the previous generation of the platform.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// Scrypt parameters for newly created hashes.
const (
	scryptN = 32768
	scryptR = 8
	scryptP = 1
	saltLen = 16
	keyLen  = 32
)

const scryptPrefix = "scrypt"

// HashPassword derives a scrypt hash in the form
// scrypt$N$r$p$hexsalt$hexkey.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return "", fmt.Errorf("deriving key: %w", err)
	}
	return fmt.Sprintf("%s$%d$%d$%d$%s$%s",
		scryptPrefix, scryptN, scryptR, scryptP,
		hex.EncodeToString(salt), hex.EncodeToString(key)), nil
}

// VerifyPassword reports whether password matches the stored hash. Both the
// scrypt form and the legacy SHA-256 hex digest are accepted.
func VerifyPassword(password, stored string) bool {
	if strings.HasPrefix(stored, scryptPrefix+"$") {
		return verifyScrypt(password, stored)
	}
	digest := sha256.Sum256([]byte(password))
	computed := hex.EncodeToString(digest[:])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1
}

func verifyScrypt(password, stored string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 6 {
		return false
	}
	n, err1 := strconv.Atoi(parts[1])
	r, err2 := strconv.Atoi(parts[2])
	p, err3 := strconv.Atoi(parts[3])
	salt, err4 := hex.DecodeString(parts[4])
	want, err5 := hex.DecodeString(parts[5])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return false
	}
	got, err := scrypt.Key([]byte(password), salt, n, r, p, len(want))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}

// LegacySHA256 returns the lower-hex SHA-256 digest of password, the hash
// format used by the original platform. Kept for import tooling and tests.
func LegacySHA256(password string) string {
	digest := sha256.Sum256([]byte(password))
	return hex.EncodeToString(digest[:])
}
