package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supervitec/field-movement-api/internal/auth"
)

// The handlers talk to concrete repositories over *sql.DB, so these
// tests cover the request-shaped paths that reject before any storage
// access: body binding, field validation and token verification.

func ctxFor(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRegisterValidationEnumeratesFields(t *testing.T) {
	h := &AuthHandler{Log: zerolog.Nop()}
	c, rec := ctxFor(http.MethodPost, "/api/v1/auth/register",
		`{"email":"x@example.com","password":"123"}`)

	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeEnvelope(t, rec)
	assert.Equal(t, false, body["success"])
	fields := body["fields"].([]interface{})
	assert.ElementsMatch(t, []interface{}{
		"full_name", "password", "region", "transport",
	}, fields)
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	h := &AuthHandler{Log: zerolog.Nop()}
	c, rec := ctxFor(http.MethodPost, "/api/v1/auth/register",
		`{"full_name":"A","email":"x@example.com","password":"secret1",
		  "role":"admin","region":"Caldas","transport":"car"}`)

	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role"`)
}

func TestLoginRequiresCredentials(t *testing.T) {
	h := &AuthHandler{Log: zerolog.Nop()}
	c, rec := ctxFor(http.MethodPost, "/api/v1/auth/login", `{"email":"x@example.com"}`)

	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	h := &AuthHandler{
		Issuer: auth.NewIssuer("a-secret", "r-secret", 15, 7),
		Log:    zerolog.Nop(),
	}
	c, rec := ctxFor(http.MethodPost, "/api/v1/auth/refresh",
		`{"refresh_token":"not-a-jwt"}`)

	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}

func TestRefreshRequiresToken(t *testing.T) {
	h := &AuthHandler{Log: zerolog.Nop()}
	c, rec := ctxFor(http.MethodPost, "/api/v1/auth/refresh", `{}`)

	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMovementRegisterValidation(t *testing.T) {
	h := &MovementHandler{Log: zerolog.Nop()}
	c, rec := ctxFor(http.MethodPost, "/api/v1/movements",
		`{"distance_km":-2,"region":"Nowhere","date":"2026-03-15"}`)

	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeEnvelope(t, rec)
	fields := body["fields"].([]interface{})
	assert.Contains(t, fields, "start_location")
	assert.Contains(t, fields, "distance_km")
	assert.Contains(t, fields, "region")
	assert.NotContains(t, fields, "date")
}

func TestMovementDailyRejectsBadDate(t *testing.T) {
	h := &MovementHandler{Log: zerolog.Nop()}
	c, rec := ctxFor(http.MethodGet, "/api/v1/movements/daily/March-1", "")
	c.SetParamNames("date")
	c.SetParamValues("March-1")

	require.NoError(t, h.Daily(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"date"`)
}

func TestMovementMonthlyRejectsBadMonth(t *testing.T) {
	h := &MovementHandler{Log: zerolog.Nop()}
	c, rec := ctxFor(http.MethodGet, "/api/v1/movements/monthly/13/2026", "")
	c.SetParamNames("month", "year")
	c.SetParamValues("13", "2026")

	require.NoError(t, h.Monthly(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMovementUpdateRejectsBadID(t *testing.T) {
	h := &MovementHandler{Log: zerolog.Nop()}
	c, rec := ctxFor(http.MethodPatch, "/api/v1/movements/abc", `{}`)
	c.SetParamNames("id")
	c.SetParamValues("abc")

	require.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessageSendValidation(t *testing.T) {
	h := &MessageHandler{Log: zerolog.Nop()}
	c, rec := ctxFor(http.MethodPost, "/api/v1/messages", `{"kind":"carrier-pigeon"}`)

	require.NoError(t, h.Send(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeEnvelope(t, rec)
	fields := body["fields"].([]interface{})
	assert.ElementsMatch(t, []interface{}{"recipient_id", "body", "kind"}, fields)
}
