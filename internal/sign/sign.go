package sign

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

var (
	// ErrInvalidToken covers malformed tokens and bad signatures.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned for structurally valid but stale tokens.
	ErrExpiredToken = errors.New("token expired")
)

// Link is the payload of a signed direct-download token: the source URL and
// format a client may fetch without server-side task tracking.
type Link struct {
	URL       string
	Format    string
	ExpiresAt time.Time
}

// Signer issues and verifies HS256 tokens for the instant delivery mode.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

func New(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl}
}

// Sign issues a time-limited token for url/format.
func (s *Signer) Sign(url, format string) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.ttl)
	claims := jwt.MapClaims{
		"url":    url,
		"format": format,
		"exp":    expiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify parses a token and returns its link payload.
func (s *Signer) Verify(tokenString string) (*Link, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	url, _ := claims["url"].(string)
	format, _ := claims["format"].(string)
	if url == "" {
		return nil, ErrInvalidToken
	}

	link := &Link{URL: url, Format: format}
	if exp, ok := claims["exp"].(float64); ok {
		link.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return link, nil
}
