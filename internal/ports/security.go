package ports

import "time"

type AuthClaims struct {
	UserID    string
	Role      string
	ExpiresAt time.Time
}

// TokenVerifier validates bearer tokens issued by the platform's auth service.
type TokenVerifier interface {
	ParseAndValidate(raw string) (AuthClaims, error)
}
