package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA-256 hashing for refresh tokens
	"encoding/hex"  // hex encoding of the digest
	"errors"
	"time" // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"       // unique token id (jti)
)

// ErrInvalidToken is returned for any token that fails signature, expiry or
// shape checks.  Callers never learn which check failed.
var ErrInvalidToken = errors.New("invalid token")

// Values of the "typ" claim.  Each parser accepts only its own kind, so a
// refresh token never passes as an access token even under a shared secret.
const (
	typAccess  = "access"
	typRefresh = "refresh"
)

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken is a signed refresh JWT.  Only the SHA-256 hash of Raw is
// persisted; Raw itself goes to the client in a cookie.
type RefreshToken struct {
	Raw string    // signed JWT returned to the client
	ID  string    // jti claim, unique per issued token
	Exp time.Time // UTC expiration time
}

// AccessClaims are the fields read back from a verified access token.  The
// role is informational only; authorization reloads the user.
type AccessClaims struct {
	UserID string
	Role   string
	Exp    time.Time
}

// RefreshClaims are the fields read back from a verified refresh token.
type RefreshClaims struct {
	UserID string
	ID     string
	Exp    time.Time
}

// NewAccessToken builds and signs an HS256 JWT carrying subject (sub),
// role, token kind (typ), expiration (exp) and issued at (iat).
func NewAccessToken(secret, userID, role string, ttl time.Duration, now time.Time) (AccessToken, error) {
	now = now.UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"typ":  typAccess,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken signs a refresh JWT with its own secret.  A random jti
// keeps two tokens issued in the same second distinct, so their hashes
// never collide in storage.
func NewRefreshToken(secret, userID string, ttl time.Duration, now time.Time) (RefreshToken, error) {
	now = now.UTC()
	exp := now.Add(ttl)
	jti := uuid.NewString()
	claims := jwt.MapClaims{
		"sub": userID,
		"jti": jti,
		"typ": typRefresh,
		"exp": exp.Unix(),
		"iat": now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Raw: signed, ID: jti, Exp: exp}, nil
}

// ParseAccessToken verifies signature and expiry of an access token.
func ParseAccessToken(secret, raw string) (AccessClaims, error) {
	claims, err := parse(secret, raw, typAccess)
	if err != nil {
		return AccessClaims{}, err
	}
	sub, _ := claims.GetSubject()
	role, _ := claims["role"].(string)
	if sub == "" {
		return AccessClaims{}, ErrInvalidToken
	}
	return AccessClaims{UserID: sub, Role: role, Exp: expiry(claims)}, nil
}

// ParseRefreshToken verifies signature and expiry of a refresh token.  It
// does not consult storage; the caller must still match the stored hash.
func ParseRefreshToken(secret, raw string) (RefreshClaims, error) {
	claims, err := parse(secret, raw, typRefresh)
	if err != nil {
		return RefreshClaims{}, err
	}
	sub, _ := claims.GetSubject()
	jti, _ := claims["jti"].(string)
	if sub == "" || jti == "" {
		return RefreshClaims{}, ErrInvalidToken
	}
	return RefreshClaims{UserID: sub, ID: jti, Exp: expiry(claims)}, nil
}

func parse(secret, raw, typ string) (jwt.MapClaims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject anything that is not HMAC; "none" and RSA confusion included.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || claims["typ"] != typ {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func expiry(c jwt.MapClaims) time.Time {
	if exp, err := c.GetExpirationTime(); err == nil && exp != nil {
		return exp.Time.UTC()
	}
	return time.Time{}
}

// HashToken returns the SHA-256 hash of a raw token as a hex string.
// Storing only the hash prevents stolen database rows from being replayed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
