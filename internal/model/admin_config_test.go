package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultAdminConfig(t *testing.T) {
	cfg := DefaultAdminConfig(3)

	assert.Equal(t, uint64(3), cfg.AdminID)
	assert.True(t, cfg.PushNotifications)
	assert.True(t, cfg.AutoReports)
	assert.True(t, cfg.SecurityAlerts)
	assert.False(t, cfg.AutoBackups, "automatic backups are opt-in")
}
