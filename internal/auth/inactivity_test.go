package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckInactivity(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		lastActivity time.Time
		wantInactive bool
		wantExpired  bool
		wantMinutes  int
	}{
		{
			name:         "recent activity",
			lastActivity: now.Add(-5 * time.Minute),
			wantInactive: false,
			wantExpired:  false,
			wantMinutes:  5,
		},
		{
			name:         "exactly at threshold is still active",
			lastActivity: now.Add(-30 * time.Minute),
			wantInactive: false,
			wantExpired:  false,
			wantMinutes:  30,
		},
		{
			name:         "31 minutes idle",
			lastActivity: now.Add(-31 * time.Minute),
			wantInactive: true,
			wantExpired:  false,
			wantMinutes:  31,
		},
		{
			name:         "9 hours idle",
			lastActivity: now.Add(-9 * time.Hour),
			wantInactive: true,
			wantExpired:  true,
			wantMinutes:  540,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkInactivityAt(tt.lastActivity, now)
			assert.Equal(t, tt.wantInactive, got.IsInactive)
			assert.Equal(t, tt.wantExpired, got.IsExpiredSession)
			assert.Equal(t, tt.wantMinutes, got.InactiveMinutes)
		})
	}
}
