package jwt

import (
	"context"
	"testing"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAccessToken(t *testing.T) {
	svc := NewJWTService("test-secret", "1h")
	op := Operator{UserID: "u-1", OrganizationID: "org-1", Role: RolePayrollManager}

	tokenString, expiresAt, err := svc.GenerateAccessToken(op)
	require.NoError(t, err)
	assert.NotZero(t, expiresAt)

	token, err := svc.JWTAuth().Decode(tokenString)
	require.NoError(t, err)

	ctx := jwtauth.NewContext(context.Background(), token, nil)
	got, err := OperatorFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, op, got)
	assert.True(t, got.CanApprove())
}

func TestGenerateAccessTokenInvalidExpiry(t *testing.T) {
	svc := NewJWTService("test-secret", "soon")
	_, _, err := svc.GenerateAccessToken(Operator{UserID: "u"})
	assert.Error(t, err)
}

func TestOperatorFromContextMissingClaims(t *testing.T) {
	svc := NewJWTService("test-secret", "1h")
	ctx, err := ContextWithOperator(context.Background(), svc.JWTAuth(), Operator{OrganizationID: "org-1"})
	require.NoError(t, err)

	_, err = OperatorFromContext(ctx)
	assert.ErrorIs(t, err, ErrMissingClaims)
}

func TestOperatorScope(t *testing.T) {
	other := "org-2"

	agencyWide := Operator{UserID: "u-1"}
	assert.True(t, agencyWide.Allows("org-9"))
	assert.Equal(t, &other, agencyWide.ScopeOrganization(&other))
	assert.Nil(t, agencyWide.ScopeOrganization(nil))

	scoped := Operator{UserID: "u-2", OrganizationID: "org-1"}
	assert.False(t, scoped.Allows("org-2"))
	assert.Equal(t, "org-1", *scoped.ScopeOrganization(&other))
}

func TestCanApprove(t *testing.T) {
	assert.True(t, Operator{Role: RoleAdmin}.CanApprove())
	assert.True(t, Operator{Role: RolePayrollManager}.CanApprove())
	assert.False(t, Operator{Role: RoleCoordinator}.CanApprove())
}
