package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors. Middleware surfaces all of them uniformly as 401 so a
// client cannot probe which check failed; the distinction exists for logs
// and tests.
var (
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenMalformed      = errors.New("token malformed")
	ErrTokenTenantMismatch = errors.New("token tenant mismatch")
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// SignedToken pairs a serialized JWT with its expiry so handlers can echo
// the expiration back to clients without re-parsing the token.
type SignedToken struct {
	Token string
	Exp   time.Time
}

// Claims is the decoded payload of an access or refresh token. Audience is
// the tenant the token was minted for; a token never authenticates against
// any other tenant.
type Claims struct {
	UserID    string
	TenantID  string
	TokenType string
	ExpiresAt time.Time
}

// NewAccessToken signs a short-lived HS256 token bound to (user, tenant).
func NewAccessToken(secret, userID, tenantID string, ttlMin int) (SignedToken, error) {
	return newToken(secret, userID, tenantID, TokenTypeAccess, time.Duration(ttlMin)*time.Minute)
}

// NewRefreshToken signs a long-lived HS256 token bound to (user, tenant).
// Refresh tokens are stateless: validity is signature plus expiry, there is
// no server-side revocation list.
func NewRefreshToken(secret, userID, tenantID string, ttlDays int) (SignedToken, error) {
	return newToken(secret, userID, tenantID, TokenTypeRefresh, time.Duration(ttlDays)*24*time.Hour)
}

func newToken(secret, userID, tenantID, typ string, ttl time.Duration) (SignedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub": userID,
		"aud": tenantID,
		"typ": typ,
		"exp": exp.Unix(),
		"iat": now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// ValidateToken parses and verifies a token and checks its tenant audience
// against the tenant the request resolved to. The audience check is the
// tenant-isolation boundary: a token minted for tenant A must never
// authenticate a request on tenant B even if user IDs were to coincide.
func ValidateToken(secret, raw, expectedTenantID string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenMalformed
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenMalformed
	}
	if !tok.Valid {
		return Claims{}, ErrTokenMalformed
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrTokenMalformed
	}
	sub, _ := mc["sub"].(string)
	aud, _ := mc["aud"].(string)
	typ, _ := mc["typ"].(string)
	if sub == "" || aud == "" {
		return Claims{}, ErrTokenMalformed
	}
	if expectedTenantID != "" && aud != expectedTenantID {
		return Claims{}, ErrTokenTenantMismatch
	}
	var exp time.Time
	if e, err := mc.GetExpirationTime(); err == nil && e != nil {
		exp = e.Time
	}
	return Claims{UserID: sub, TenantID: aud, TokenType: typ, ExpiresAt: exp}, nil
}
