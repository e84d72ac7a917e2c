package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supervitec/field-movement-api/internal/auth"
	"github.com/supervitec/field-movement-api/internal/config"
	"github.com/supervitec/field-movement-api/internal/mailer"
	"github.com/supervitec/field-movement-api/internal/middleware"
	"github.com/supervitec/field-movement-api/internal/model"
	"github.com/supervitec/field-movement-api/internal/repository"
)

// fakeUsers keeps accounts in memory so the token lifecycle can be
// exercised end to end without a database.
type fakeUsers struct {
	byID map[uint64]model.User
}

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{byID: map[uint64]model.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u model.User, _ string, _ int) (uint64, error) {
	id := uint64(len(f.byID) + 1)
	u.ID = id
	f.byID[id] = u
	return id, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) TouchLogin(context.Context, uint64) error { return nil }

func (f *fakeUsers) UpdatePassword(_ context.Context, id uint64, password string, _ int) error {
	u := f.byID[id]
	u.PasswordHash = password
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) SetResetToken(context.Context, uint64, string, time.Time) error { return nil }

func (f *fakeUsers) GetByResetToken(context.Context, string) (model.User, error) {
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) ClearResetToken(context.Context, uint64) error { return nil }

// fakeSessions records revocations and ended sessions in memory.
type fakeSessions struct {
	revoked map[string]bool
	ended   []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{revoked: map[string]bool{}}
}

func (f *fakeSessions) RecordActivity(context.Context, uint64, string, string, string) error {
	return nil
}

func (f *fakeSessions) EndSession(_ context.Context, _ uint64, tokenID string) error {
	f.ended = append(f.ended, tokenID)
	return nil
}

func (f *fakeSessions) RevokeToken(_ context.Context, tokenID string, _ time.Duration) error {
	f.revoked[tokenID] = true
	return nil
}

func (f *fakeSessions) IsRevoked(_ context.Context, tokenID string) bool {
	return f.revoked[tokenID]
}

func rotationFixture(t *testing.T, u model.User) (*AuthHandler, *fakeSessions, auth.Pair) {
	t.Helper()
	issuer := auth.NewIssuer("a-secret", "r-secret", 15, 7)
	sessions := newFakeSessions()
	h := &AuthHandler{
		Users:    newFakeUsers(u),
		Issuer:   issuer,
		Sessions: sessions,
		Log:      zerolog.Nop(),
	}
	pair, err := issuer.IssuePair(u)
	require.NoError(t, err)
	return h, sessions, pair
}

func activeInspector() model.User {
	return model.User{
		ID:        7,
		FullName:  "Rosa Field",
		Email:     "rosa@example.com",
		Role:      model.RoleInspector,
		Region:    model.RegionCaldas,
		Transport: model.TransportMotorcycle,
		IsActive:  true,
	}
}

func TestRefreshRotatesPairAndRevokesConsumedToken(t *testing.T) {
	h, sessions, pair := rotationFixture(t, activeInspector())

	c, rec := ctxFor(http.MethodPost, "/api/v1/auth/refresh",
		fmt.Sprintf(`{"refresh_token":%q}`, pair.RefreshToken))
	require.NoError(t, h.Refresh(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeEnvelope(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["access_token"])
	assert.NotEqual(t, pair.RefreshToken, body["refresh_token"])

	// The consumed token id must be in the revocation set and its
	// session closed.
	assert.True(t, sessions.revoked[pair.Access.TokenID])
	assert.Contains(t, sessions.ended, pair.Access.TokenID)
}

func TestRefreshReplayIsRejected(t *testing.T) {
	h, _, pair := rotationFixture(t, activeInspector())

	body := fmt.Sprintf(`{"refresh_token":%q}`, pair.RefreshToken)
	c, rec := ctxFor(http.MethodPost, "/api/v1/auth/refresh", body)
	require.NoError(t, h.Refresh(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// Presenting the same refresh token a second time must fail even
	// though its signature and expiry still verify.
	c, rec = ctxFor(http.MethodPost, "/api/v1/auth/refresh", body)
	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}

func TestRefreshRejectsDisabledAccount(t *testing.T) {
	u := activeInspector()
	u.IsActive = false
	h, _, pair := rotationFixture(t, u)

	c, rec := ctxFor(http.MethodPost, "/api/v1/auth/refresh",
		fmt.Sprintf(`{"refresh_token":%q}`, pair.RefreshToken))
	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "account is disabled")
}

func TestLogoutRevokesHandedBackRefreshToken(t *testing.T) {
	u := activeInspector()
	h, sessions, pair := rotationFixture(t, u)

	c, rec := ctxFor(http.MethodPost, "/api/v1/auth/logout",
		fmt.Sprintf(`{"refresh_token":%q}`, pair.RefreshToken))
	c.Set(middleware.CtxUserID, u.ID)
	c.Set(middleware.CtxTokenID, pair.Access.TokenID)
	require.NoError(t, h.Logout(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, sessions.revoked[pair.Access.TokenID])

	// The revoked refresh token must not rotate into a new pair.
	c, rec = ctxFor(http.MethodPost, "/api/v1/auth/refresh",
		fmt.Sprintf(`{"refresh_token":%q}`, pair.RefreshToken))
	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPasswordResetRequiresMailService(t *testing.T) {
	mail, err := mailer.New(config.SMTPConfig{}, zerolog.Nop())
	require.NoError(t, err)

	h := &AuthHandler{
		Users: newFakeUsers(activeInspector()),
		Mail:  mail,
		Log:   zerolog.Nop(),
	}
	c, rec := ctxFor(http.MethodPost, "/api/v1/auth/request-password-reset",
		`{"email":"rosa@example.com"}`)
	require.NoError(t, h.RequestPasswordReset(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "mail service is not available")
}
