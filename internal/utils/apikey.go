package utils

import "golang.org/x/crypto/bcrypt"

// HashAPIKey returns the bcrypt hash of a scanner device key using the
// given cost.  Used by the provisioning tooling; the server only ever
// stores and compares hashes.
func HashAPIKey(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyAPIKey safely compares a bcrypt hash and a presented key.
func VerifyAPIKey(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
