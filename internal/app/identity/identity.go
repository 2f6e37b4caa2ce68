// Package identity resolves the caller behind each request. Session issuance
// is an external collaborator; this package only turns an incoming request
// into a Caller or an authorization error.
package identity

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vitaltrack/healthd/internal/apperrors"
)

// Caller is the resolved identity owning the records a request touches.
// OwnerKey is the opaque key every record table is scoped by.
type Caller struct {
	OwnerKey string
	Name     string
}

// Resolver turns a request into a caller. Implementations must return an
// authorization error (never a zero Caller) when resolution fails.
type Resolver interface {
	Resolve(r *http.Request) (Caller, error)
}

// Static resolves every request to one fixed identity. This mirrors the
// demo-session behavior of the reference deployment and is the default when
// no JWT secret is configured.
type Static struct {
	caller Caller
}

// NewStatic builds a fixed-identity resolver.
func NewStatic(ownerKey, name string) *Static {
	if strings.TrimSpace(ownerKey) == "" {
		ownerKey = "demo@local"
	}
	if strings.TrimSpace(name) == "" {
		name = "Demo User"
	}
	return &Static{caller: Caller{OwnerKey: ownerKey, Name: name}}
}

func (s *Static) Resolve(_ *http.Request) (Caller, error) {
	return s.caller, nil
}

// Claims are the JWT claims carried by a session token.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWT resolves callers from a Bearer token signed with a shared HS256 secret.
type JWT struct {
	secret []byte
}

// NewJWT builds a JWT resolver.
func NewJWT(secret string) *JWT {
	return &JWT{secret: []byte(secret)}
}

func (j *JWT) Resolve(r *http.Request) (Caller, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Caller{}, apperrors.Authorization("missing Authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return Caller{}, apperrors.Authorization("invalid Authorization header format")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.Authorization("unexpected signing method")
		}
		return j.secret, nil
	})
	if err != nil || !token.Valid {
		return Caller{}, apperrors.Authorization("invalid session token")
	}
	if strings.TrimSpace(claims.Email) == "" {
		return Caller{}, apperrors.Authorization("token carries no identity")
	}

	return Caller{OwnerKey: claims.Email, Name: claims.Name}, nil
}

// Issue signs a session token for the given caller. Used by tests and by
// operators minting tokens out of band.
func (j *JWT) Issue(caller Caller, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Email: caller.OwnerKey,
		Name:  caller.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}
