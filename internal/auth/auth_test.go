package auth

import (
	"context"
	"testing"

	"token-ledger-service/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTProviderRoundTrip(t *testing.T) {
	provider := NewJWTProvider("test-secret")

	actor := &Actor{UserID: "user-42", Email: "buyer@example.com", Role: RoleBuyer}

	token, err := provider.IssueToken(actor)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	resolved, err := provider.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, actor.UserID, resolved.UserID)
	assert.Equal(t, actor.Email, resolved.Email)
	assert.Equal(t, actor.Role, resolved.Role)
}

func TestJWTProviderRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTProvider("secret-a")
	verifier := NewJWTProvider("secret-b")

	token, err := issuer.IssueToken(&Actor{UserID: "user-1", Role: RoleSeller})
	require.NoError(t, err)

	_, err = verifier.Authenticate(context.Background(), token)
	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(err))
}

func TestJWTProviderRejectsGarbage(t *testing.T) {
	provider := NewJWTProvider("test-secret")

	_, err := provider.Authenticate(context.Background(), "not-a-token")
	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(err))
}

func TestJWTProviderRequiresSubject(t *testing.T) {
	provider := NewJWTProvider("test-secret")

	token, err := provider.IssueToken(&Actor{Email: "nobody@example.com"})
	require.NoError(t, err)

	_, err = provider.Authenticate(context.Background(), token)
	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(err))
}

func TestActorIsAdmin(t *testing.T) {
	assert.True(t, (&Actor{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&Actor{Role: RoleBuyer}).IsAdmin())
}
