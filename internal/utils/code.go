package utils

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
)

// NewNumericCode returns n uniformly random decimal digits. Verification
// and password-reset codes use 6 digits; leading zeros are allowed.
func NewNumericCode(n int) (string, error) {
	buf := make([]byte, n)
	for i := range buf {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + d.Int64())
	}
	return string(buf), nil
}

// NewURLSafeToken returns a base64url-encoded string built from n random
// bytes. Used for invitation codes and tenant API keys, which travel in
// deeplinks and headers.
func NewURLSafeToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
