package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/supervitec/field-movement-api/internal/auth"
	"github.com/supervitec/field-movement-api/internal/model"
)

const (
	accessSecret  = "test-access-secret"
	refreshSecret = "test-refresh-secret"
)

func testUser() model.User {
	return model.User{
		ID:        42,
		FullName:  "Maria Lopez",
		Email:     "maria@example.com",
		Role:      model.RoleInspector,
		Region:    model.RegionCaldas,
		Transport: model.TransportCar,
		IsActive:  true,
	}
}

func TestIssueAndVerifyAccess(t *testing.T) {
	issuer := auth.NewIssuer(accessSecret, refreshSecret, 15, 7)

	access, err := issuer.IssueAccess(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, access.Token)
	require.NotEmpty(t, access.TokenID)

	claims, err := issuer.VerifyAccess(access.Token)
	require.NoError(t, err)
	require.Equal(t, uint64(42), claims.UserID)
	require.Equal(t, "maria@example.com", claims.Email)
	require.Equal(t, model.RoleInspector, claims.Role)
	require.Equal(t, "Maria Lopez", claims.Name)
	require.Equal(t, access.TokenID, claims.TokenID)
}

func TestVerifyAccessWrongSecret(t *testing.T) {
	issuer := auth.NewIssuer(accessSecret, refreshSecret, 15, 7)
	other := auth.NewIssuer("different-secret", refreshSecret, 15, 7)

	access, err := issuer.IssueAccess(testUser())
	require.NoError(t, err)

	_, err = other.VerifyAccess(access.Token)
	require.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestVerifyAccessExpired(t *testing.T) {
	// A negative TTL mints a token that is already past its expiry.
	issuer := auth.NewIssuer(accessSecret, refreshSecret, -1, 7)

	access, err := issuer.IssueAccess(testUser())
	require.NoError(t, err)

	_, err = issuer.VerifyAccess(access.Token)
	require.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestPairSharesTokenID(t *testing.T) {
	issuer := auth.NewIssuer(accessSecret, refreshSecret, 15, 7)

	pair, err := issuer.IssuePair(testUser())
	require.NoError(t, err)

	refreshClaims, err := issuer.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, pair.Access.TokenID, refreshClaims.TokenID)
	require.Equal(t, uint64(42), refreshClaims.UserID)
}

func TestTokenClassesAreNotInterchangeable(t *testing.T) {
	issuer := auth.NewIssuer(accessSecret, refreshSecret, 15, 7)

	pair, err := issuer.IssuePair(testUser())
	require.NoError(t, err)

	// An access token must not verify as a refresh token, and the
	// other way around: different secrets and a typ claim check.
	_, err = issuer.VerifyRefresh(pair.Access.Token)
	require.ErrorIs(t, err, auth.ErrTokenInvalid)

	_, err = issuer.VerifyAccess(pair.RefreshToken)
	require.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestRefreshCarriesIdentityForward(t *testing.T) {
	issuer := auth.NewIssuer(accessSecret, refreshSecret, 15, 7)
	u := testUser()

	first, err := issuer.IssuePair(u)
	require.NoError(t, err)

	// Simulate the refresh flow: verify the refresh token, then
	// mint a fresh pair for the same identity.
	claims, err := issuer.VerifyRefresh(first.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, u.ID, claims.UserID)

	second, err := issuer.IssuePair(u)
	require.NoError(t, err)
	require.NotEqual(t, first.Access.Token, second.Access.Token)

	newClaims, err := issuer.VerifyAccess(second.Access.Token)
	require.NoError(t, err)
	require.Equal(t, u.ID, newClaims.UserID)
	require.Equal(t, u.Role, newClaims.Role)
}
