package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supervitec/field-movement-api/internal/auth"
	"github.com/supervitec/field-movement-api/internal/middleware"
	"github.com/supervitec/field-movement-api/internal/model"
)

const (
	accessSecret  = "mw-access-secret"
	refreshSecret = "mw-refresh-secret"
)

func newIssuer(ttlMin int) *auth.Issuer {
	return auth.NewIssuer(accessSecret, refreshSecret, ttlMin, 7)
}

// do runs a request through Authenticate (and optional extra
// middleware) into a probe handler that records the context claims.
func do(t *testing.T, issuer *auth.Issuer, header string, extra ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	seen := map[string]interface{}{}
	var handler echo.HandlerFunc = func(c echo.Context) error {
		seen["user_id"] = middleware.UserID(c)
		seen["role"] = middleware.Role(c)
		return c.NoContent(http.StatusOK)
	}
	chain := handler
	for i := len(extra) - 1; i >= 0; i-- {
		chain = extra[i](chain)
	}
	chain = middleware.Authenticate(issuer, nil)(chain)
	require.NoError(t, chain(c))
	return rec, seen
}

func TestAuthenticateMissingHeader(t *testing.T) {
	rec, _ := do(t, newIssuer(15), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing bearer token")
}

func TestAuthenticateMalformedHeader(t *testing.T) {
	rec, _ := do(t, newIssuer(15), "Token abc123")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateGarbageToken(t *testing.T) {
	rec, _ := do(t, newIssuer(15), "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}

func TestAuthenticateExpiredToken(t *testing.T) {
	expired := newIssuer(-1)
	tok, err := expired.IssueAccess(model.User{ID: 7, Role: model.RoleEngineer})
	require.NoError(t, err)

	rec, _ := do(t, newIssuer(15), "Bearer "+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token expired")
}

func TestAuthenticateInjectsClaims(t *testing.T) {
	issuer := newIssuer(15)
	tok, err := issuer.IssueAccess(model.User{
		ID: 7, Email: "e@example.com", Role: model.RoleEngineer, FullName: "E",
	})
	require.NoError(t, err)

	rec, seen := do(t, issuer, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(7), seen["user_id"])
	assert.Equal(t, model.RoleEngineer, seen["role"])
}

func TestRequireRoleForbidsOutsiders(t *testing.T) {
	issuer := newIssuer(15)
	tok, err := issuer.IssueAccess(model.User{ID: 7, Role: model.RoleInspector})
	require.NoError(t, err)

	rec, _ := do(t, issuer, "Bearer "+tok.Token, middleware.RequireAdmin())
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleAllowsMember(t *testing.T) {
	issuer := newIssuer(15)
	tok, err := issuer.IssueAccess(model.User{ID: 7, Role: model.RoleAdmin})
	require.NoError(t, err)

	rec, _ := do(t, issuer, "Bearer "+tok.Token, middleware.RequireAdmin())
	assert.Equal(t, http.StatusOK, rec.Code)
}

// Admin tokens issued before the claims schema was unified carry the
// role under "rol". The guard must honor them until they age out.
func TestRequireAdminAcceptsLegacyRolClaim(t *testing.T) {
	now := time.Now().UTC()
	legacy := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      uint64(9),
		"email":    "admin@example.com",
		"rol":      model.RoleAdmin,
		"token_id": "legacy-token-id",
		"typ":      "access",
		"iat":      now.Unix(),
		"exp":      now.Add(10 * time.Minute).Unix(),
	})
	signed, err := legacy.SignedString([]byte(accessSecret))
	require.NoError(t, err)

	rec, seen := do(t, newIssuer(15), "Bearer "+signed, middleware.RequireAdmin())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.RoleAdmin, seen["role"])
}
