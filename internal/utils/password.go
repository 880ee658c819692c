package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword runs bcrypt at the configured cost. Cost is a config
// knob so tests can use the minimum and production something slower.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	return string(b), err
}

// VerifyPassword reports whether plain matches the stored hash.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
