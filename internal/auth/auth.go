package auth

import (
	"context"

	"token-ledger-service/internal/apperr"

	"github.com/golang-jwt/jwt/v5"
)

// Actor is the authenticated principal behind a request. Every engine call
// takes it explicitly; nothing in the ledger reads request-scoped globals.
type Actor struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Roles
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// IsAdmin reports whether the actor carries the admin role
func (a *Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IdentityProvider resolves a bearer credential to an actor
type IdentityProvider interface {
	Authenticate(ctx context.Context, token string) (*Actor, error)
}

// JWTProvider validates HMAC-signed bearer tokens issued by the
// marketplace's auth service.
type JWTProvider struct {
	secret []byte
}

func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret)}
}

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticate parses and verifies a bearer token, returning the actor it
// identifies. Any parse or signature failure is an AuthenticationError.
func (p *JWTProvider) Authenticate(ctx context.Context, tokenString string) (*Actor, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Authentication("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.Authentication("invalid bearer token")
	}
	if c.Subject == "" {
		return nil, apperr.Authentication("token missing subject")
	}

	return &Actor{
		UserID: c.Subject,
		Email:  c.Email,
		Role:   c.Role,
	}, nil
}

// IssueToken signs a token for an actor. Used by tests and local tooling;
// production tokens come from the marketplace auth service.
func (p *JWTProvider) IssueToken(actor *Actor) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: actor.Email,
		Role:  actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: actor.UserID,
		},
	})
	return token.SignedString(p.secret)
}
