package handler

import (
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminConfigUpdateRequiresAtLeastOneSetting(t *testing.T) {
	h := &AdminConfigHandler{Log: zerolog.Nop()}
	c, rec := ctxFor(http.MethodPut, "/api/v1/admin/config", `{}`)

	require.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no settings to update")
}
